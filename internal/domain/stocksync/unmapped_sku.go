package stocksync

import (
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
)

// UnmappedSku tracks SKUs that repeatedly fail ledger lookup or stock checks.
// It surfaces persistent mapping gaps to operators; it never drives sync logic.
type UnmappedSku struct {
	shared.BaseEntity
	StoreID     uuid.UUID
	Sku         string
	Reason      string
	Occurrences int
	LastSeenAt  time.Time
	Resolved    bool
}

// NewUnmappedSku creates a tracking entry with a single occurrence
func NewUnmappedSku(storeID uuid.UUID, sku, reason string) *UnmappedSku {
	return &UnmappedSku{
		BaseEntity:  shared.NewBaseEntity(),
		StoreID:     storeID,
		Sku:         sku,
		Reason:      reason,
		Occurrences: 1,
		LastSeenAt:  time.Now(),
	}
}

// RecordOccurrence increments the counter and reopens a resolved entry
func (u *UnmappedSku) RecordOccurrence(reason string) {
	u.Occurrences++
	u.Reason = reason
	u.LastSeenAt = time.Now()
	u.Resolved = false
	u.Touch()
}

// Resolve marks the mapping gap as handled
func (u *UnmappedSku) Resolve() {
	u.Resolved = true
	u.Touch()
}
