package stocksync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RecentPushGuard remembers which SKUs had a push completed recently so a
// scheduled pull does not immediately undo a push still settling elsewhere.
// The deliberate post-push correction bypasses the guard.
type RecentPushGuard interface {
	// MarkPushed records a completed push for (storeID, sku) with the given TTL
	MarkPushed(ctx context.Context, storeID uuid.UUID, sku string, ttl time.Duration) error

	// RecentlyPushed reports whether (storeID, sku) was pushed within its TTL
	RecentlyPushed(ctx context.Context, storeID uuid.UUID, sku string) (bool, error)
}

// MemoryPushGuard is the in-process RecentPushGuard used in tests and in
// redis-less deployments.
type MemoryPushGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryPushGuard creates an empty in-memory guard
func NewMemoryPushGuard() *MemoryPushGuard {
	return &MemoryPushGuard{entries: make(map[string]time.Time)}
}

func guardKey(storeID uuid.UUID, sku string) string {
	return fmt.Sprintf("%s:%s", storeID, sku)
}

// MarkPushed records a completed push for (storeID, sku)
func (g *MemoryPushGuard) MarkPushed(_ context.Context, storeID uuid.UUID, sku string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[guardKey(storeID, sku)] = time.Now().Add(ttl)
	return nil
}

// RecentlyPushed reports whether the guard window for (storeID, sku) is open
func (g *MemoryPushGuard) RecentlyPushed(_ context.Context, storeID uuid.UUID, sku string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := guardKey(storeID, sku)
	deadline, ok := g.entries[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(deadline) {
		delete(g.entries, key)
		return false, nil
	}
	return true, nil
}
