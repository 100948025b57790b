package connector

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stocksync/backend/internal/domain/connector"
)

// rateLimitTracker keeps the latest rate-limit snapshot parsed from platform
// response headers. Safe for concurrent use; adapters update it after every
// response.
type rateLimitTracker struct {
	mu       sync.RWMutex
	snapshot connector.RateLimitSnapshot
}

// Snapshot returns the latest observed rate budget
func (t *rateLimitTracker) Snapshot() connector.RateLimitSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// observeShopify parses the X-Shopify-Shop-Api-Call-Limit header ("32/40":
// 32 used out of a 40-call bucket).
func (t *rateLimitTracker) observeShopify(resp *http.Response) {
	header := resp.Header.Get("X-Shopify-Shop-Api-Call-Limit")
	if header == "" {
		return
	}
	parts := strings.SplitN(header, "/", 2)
	if len(parts) != 2 {
		return
	}
	used, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	limit, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil || limit <= 0 {
		return
	}
	t.mu.Lock()
	t.snapshot = connector.RateLimitSnapshot{
		Remaining: limit - used,
		Limit:     limit,
		Observed:  time.Now(),
	}
	t.mu.Unlock()
}

// observeGeneric parses the X-RateLimit-Remaining/Limit/Reset header family
// used by WooCommerce rate-limiting plugins.
func (t *rateLimitTracker) observeGeneric(resp *http.Response) {
	remaining, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil {
		return
	}
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))

	snapshot := connector.RateLimitSnapshot{
		Remaining: remaining,
		Limit:     limit,
		Observed:  time.Now(),
	}
	if resetUnix, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil && resetUnix > 0 {
		snapshot.ResetTime = time.Unix(resetUnix, 0)
	}

	t.mu.Lock()
	t.snapshot = snapshot
	t.mu.Unlock()
}
