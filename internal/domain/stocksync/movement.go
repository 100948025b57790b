package stocksync

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Movement Errors
// ---------------------------------------------------------------------------

var (
	ErrMovementInvalidQuantity  = errors.New("stocksync: movement quantity must be positive")
	ErrMovementInvalidSku       = errors.New("stocksync: movement SKU is required")
	ErrMovementInvalidOrder     = errors.New("stocksync: movement order ID is required")
	ErrMovementInvalidDirection = errors.New("stocksync: invalid movement direction")
	ErrMovementNotPending       = errors.New("stocksync: movement is not pending")
	ErrMovementNotProcessing    = errors.New("stocksync: movement is not processing")
	ErrMovementAlreadyCompleted = errors.New("stocksync: movement already completed")
	ErrMovementExhausted        = errors.New("stocksync: movement retry attempts exhausted")
)

// DefaultMaxAttempts is the default number of processing attempts per movement
const DefaultMaxAttempts = 5

// ---------------------------------------------------------------------------
// MovementDirection
// ---------------------------------------------------------------------------

// MovementDirection represents the direction of a stock movement against the ledger
type MovementDirection string

const (
	// MovementDebit decreases ledger stock (an order took units from the storefront)
	MovementDebit MovementDirection = "DEBIT"
	// MovementCredit increases ledger stock (a cancellation or refund returned units)
	MovementCredit MovementDirection = "CREDIT"
)

// IsValid returns true if the direction is valid
func (d MovementDirection) IsValid() bool {
	switch d {
	case MovementDebit, MovementCredit:
		return true
	default:
		return false
	}
}

// String returns the string representation of MovementDirection
func (d MovementDirection) String() string {
	return string(d)
}

// SignedDelta returns the signed cache delta for the given quantity:
// negative for a debit, positive for a credit.
func (d MovementDirection) SignedDelta(quantity int64) int64 {
	if d == MovementDebit {
		return -quantity
	}
	return quantity
}

// ---------------------------------------------------------------------------
// MovementStatus
// ---------------------------------------------------------------------------

// MovementStatus represents the lifecycle state of a queued movement
type MovementStatus string

const (
	// MovementStatusPending indicates the movement is waiting to be processed
	MovementStatusPending MovementStatus = "PENDING"
	// MovementStatusProcessing indicates a worker holds the movement
	MovementStatusProcessing MovementStatus = "PROCESSING"
	// MovementStatusCompleted indicates the movement was posted to the ledger
	MovementStatusCompleted MovementStatus = "COMPLETED"
	// MovementStatusFailed indicates the movement failed terminally
	MovementStatusFailed MovementStatus = "FAILED"
)

// IsValid returns true if the status is valid
func (s MovementStatus) IsValid() bool {
	switch s {
	case MovementStatusPending, MovementStatusProcessing, MovementStatusCompleted, MovementStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of MovementStatus
func (s MovementStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a final state
func (s MovementStatus) IsTerminal() bool {
	return s == MovementStatusCompleted || s == MovementStatusFailed
}

// ---------------------------------------------------------------------------
// Movement
// ---------------------------------------------------------------------------

// Movement is a durable queue entry describing a stock adjustment that must be
// posted to the ledger exactly once per (store, order, SKU, direction) key.
// The natural key is enforced by a unique index; the state machine is
// PENDING -> PROCESSING -> {COMPLETED | PENDING(retry) | FAILED}.
type Movement struct {
	shared.BaseEntity
	TenantID      uuid.UUID
	StoreID       uuid.UUID
	IntegrationID uuid.UUID
	Direction     MovementDirection
	Sku           string
	Quantity      int64
	OrderID       string
	EventType     string
	Status        MovementStatus
	Attempts      int
	MaxAttempts   int
	LastAttemptAt *time.Time
	NextAttemptAt *time.Time
	ProcessedAt   *time.Time
	ErrorMessage  string
	Metadata      string
}

// NewMovement creates a pending movement for a storefront order event
func NewMovement(tenantID, storeID, integrationID uuid.UUID, direction MovementDirection, sku string, quantity int64, orderID, eventType string) (*Movement, error) {
	if !direction.IsValid() {
		return nil, ErrMovementInvalidDirection
	}
	if sku == "" {
		return nil, ErrMovementInvalidSku
	}
	if quantity <= 0 {
		return nil, ErrMovementInvalidQuantity
	}
	if orderID == "" {
		return nil, ErrMovementInvalidOrder
	}
	return &Movement{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		StoreID:       storeID,
		IntegrationID: integrationID,
		Direction:     direction,
		Sku:           sku,
		Quantity:      quantity,
		OrderID:       orderID,
		EventType:     eventType,
		Status:        MovementStatusPending,
		Attempts:      0,
		MaxAttempts:   DefaultMaxAttempts,
	}, nil
}

// DedupKey returns the natural deduplication key of the movement
func (m *Movement) DedupKey() string {
	return fmt.Sprintf("%s:%s:%s:%s", m.StoreID, m.OrderID, m.Sku, m.Direction)
}

// IsDue returns true if the movement is pending and its retry time has passed
func (m *Movement) IsDue(now time.Time) bool {
	if m.Status != MovementStatusPending {
		return false
	}
	if m.NextAttemptAt == nil {
		return true
	}
	return !m.NextAttemptAt.After(now)
}

// CanRetry returns true if the movement has attempts left
func (m *Movement) CanRetry() bool {
	return m.Attempts < m.MaxAttempts
}

// MarkProcessing transitions the movement to PROCESSING and counts the attempt
func (m *Movement) MarkProcessing() error {
	if m.Status != MovementStatusPending {
		return ErrMovementNotPending
	}
	now := time.Now()
	m.Status = MovementStatusProcessing
	m.Attempts++
	m.LastAttemptAt = &now
	m.Touch()
	return nil
}

// Complete transitions the movement to its terminal COMPLETED state
func (m *Movement) Complete() error {
	if m.Status != MovementStatusProcessing {
		return ErrMovementNotProcessing
	}
	now := time.Now()
	m.Status = MovementStatusCompleted
	m.ProcessedAt = &now
	m.ErrorMessage = ""
	m.NextAttemptAt = nil
	m.Touch()
	return nil
}

// Requeue returns a processing movement to PENDING with an exponential
// backoff: nextAttemptAt = now + 2^attempts minutes. If attempts are
// exhausted the movement fails terminally instead.
func (m *Movement) Requeue(cause string) error {
	if m.Status != MovementStatusProcessing {
		return ErrMovementNotProcessing
	}
	if !m.CanRetry() {
		return m.failNow(cause)
	}
	next := time.Now().Add(time.Duration(1<<uint(m.Attempts)) * time.Minute)
	m.Status = MovementStatusPending
	m.NextAttemptAt = &next
	m.ErrorMessage = cause
	m.Touch()
	return nil
}

// Reschedule pushes the next attempt out by the given delay without counting
// it as a failure. Used when the store lock is contended: lock contention is
// not a business failure, so attempts stays untouched.
func (m *Movement) Reschedule(delay time.Duration) error {
	if m.Status != MovementStatusPending {
		return ErrMovementNotPending
	}
	next := time.Now().Add(delay)
	m.NextAttemptAt = &next
	m.Touch()
	return nil
}

// FailPermanently transitions the movement to its terminal FAILED state,
// regardless of remaining attempts. Used for business-terminal conditions
// such as insufficient stock or a missing warehouse configuration.
func (m *Movement) FailPermanently(cause string) error {
	if m.Status.IsTerminal() {
		return ErrMovementAlreadyCompleted
	}
	return m.failNow(cause)
}

// ForceRetry returns a failed or stalled movement to the front of the queue.
// Exhausted attempts are reset so the operator-triggered retry gets a fresh
// budget. Completed movements cannot be retried.
func (m *Movement) ForceRetry() error {
	if m.Status == MovementStatusCompleted {
		return ErrMovementAlreadyCompleted
	}
	if m.Attempts >= m.MaxAttempts {
		m.Attempts = 0
	}
	m.Status = MovementStatusPending
	m.NextAttemptAt = nil
	m.ProcessedAt = nil
	m.ErrorMessage = ""
	m.Touch()
	return nil
}

func (m *Movement) failNow(cause string) error {
	now := time.Now()
	m.Status = MovementStatusFailed
	m.ProcessedAt = &now
	m.ErrorMessage = cause
	m.NextAttemptAt = nil
	m.Touch()
	return nil
}
