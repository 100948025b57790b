package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/infrastructure/config"
	"github.com/stocksync/backend/internal/infrastructure/logger"
	"github.com/stocksync/backend/internal/infrastructure/persistence"
)

func main() {
	var logLevel string
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	switch command {
	case "up":
		log.Info("Applying schema migration",
			zap.String("host", cfg.Database.Host),
			zap.String("dbname", cfg.Database.DBName),
		)
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		log.Info("Schema is up to date")

	case "ping":
		if err := db.Ping(); err != nil {
			log.Fatal("Database unreachable", zap.Error(err))
		}
		log.Info("Database reachable")

	default:
		log.Error("Unknown command", zap.String("command", command))
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Stock Sync Schema Tool

Usage:
  migrate [flags] <command>

Commands:
  up      Create or update the schema for all sync tables
  ping    Verify database connectivity

Flags:
  -log-level string   Log level: debug, info, warn, error (default: info)

Environment Variables:
  STOCKSYNC_DATABASE_HOST, STOCKSYNC_DATABASE_PORT, STOCKSYNC_DATABASE_USER,
  STOCKSYNC_DATABASE_PASSWORD, STOCKSYNC_DATABASE_DBNAME`)
}
