package guard

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocksync/backend/internal/application/stocksync"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

// unreachableRedis points at a closed port so connection attempts fail fast
func unreachableRedis() config.RedisConfig {
	return config.RedisConfig{Host: "127.0.0.1", Port: 1, DB: 0}
}

func TestFactory_FallsBackToMemoryGuard(t *testing.T) {
	factory := NewFactory(unreachableRedis())

	g, err := factory.CreateGuard()
	require.NoError(t, err)
	assert.IsType(t, &stocksync.MemoryPushGuard{}, g)
}

func TestFactory_ErrorsWithoutFallback(t *testing.T) {
	factory := NewFactory(unreachableRedis(), WithInMemoryFallback(false))

	g, err := factory.CreateGuard()
	assert.Nil(t, g)
	assert.Error(t, err)
}

func TestGuardKey(t *testing.T) {
	storeID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t,
		"stocksync:recent_push:11111111-2222-3333-4444-555555555555:SKU-1",
		guardKey(storeID, "SKU-1"),
	)
}
