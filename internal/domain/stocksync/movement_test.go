package stocksync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMovement(t *testing.T) *Movement {
	t.Helper()
	m, err := NewMovement(uuid.New(), uuid.New(), uuid.New(), MovementDebit, "SKU-1", 3, "order-1", "orders/create")
	require.NoError(t, err)
	return m
}

func TestNewMovement(t *testing.T) {
	m := newTestMovement(t)

	assert.Equal(t, MovementStatusPending, m.Status)
	assert.Equal(t, 0, m.Attempts)
	assert.Equal(t, DefaultMaxAttempts, m.MaxAttempts)
	assert.NotEqual(t, uuid.Nil, m.ID)
}

func TestNewMovement_Validation(t *testing.T) {
	tenantID, storeID, integrationID := uuid.New(), uuid.New(), uuid.New()

	tests := []struct {
		name      string
		direction MovementDirection
		sku       string
		quantity  int64
		orderID   string
		wantErr   error
	}{
		{"invalid direction", MovementDirection("SIDEWAYS"), "SKU-1", 1, "o-1", ErrMovementInvalidDirection},
		{"empty sku", MovementCredit, "", 1, "o-1", ErrMovementInvalidSku},
		{"zero quantity", MovementDebit, "SKU-1", 0, "o-1", ErrMovementInvalidQuantity},
		{"negative quantity", MovementDebit, "SKU-1", -2, "o-1", ErrMovementInvalidQuantity},
		{"empty order", MovementDebit, "SKU-1", 1, "", ErrMovementInvalidOrder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMovement(tenantID, storeID, integrationID, tt.direction, tt.sku, tt.quantity, tt.orderID, "orders/create")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMovementDirection_SignedDelta(t *testing.T) {
	assert.Equal(t, int64(-5), MovementDebit.SignedDelta(5))
	assert.Equal(t, int64(5), MovementCredit.SignedDelta(5))
}

func TestMovement_DedupKey(t *testing.T) {
	m := newTestMovement(t)
	other := newTestMovement(t)

	assert.NotEqual(t, m.DedupKey(), other.DedupKey())

	other.StoreID = m.StoreID
	other.OrderID = m.OrderID
	other.Sku = m.Sku
	other.Direction = m.Direction
	assert.Equal(t, m.DedupKey(), other.DedupKey())
}

func TestMovement_MarkProcessing(t *testing.T) {
	m := newTestMovement(t)

	require.NoError(t, m.MarkProcessing())
	assert.Equal(t, MovementStatusProcessing, m.Status)
	assert.Equal(t, 1, m.Attempts)
	assert.NotNil(t, m.LastAttemptAt)

	assert.ErrorIs(t, m.MarkProcessing(), ErrMovementNotPending)
}

func TestMovement_Complete(t *testing.T) {
	m := newTestMovement(t)

	assert.ErrorIs(t, m.Complete(), ErrMovementNotProcessing)

	require.NoError(t, m.MarkProcessing())
	require.NoError(t, m.Complete())
	assert.Equal(t, MovementStatusCompleted, m.Status)
	assert.NotNil(t, m.ProcessedAt)
	assert.Nil(t, m.NextAttemptAt)
	assert.True(t, m.Status.IsTerminal())
}

func TestMovement_Requeue_Backoff(t *testing.T) {
	m := newTestMovement(t)
	require.NoError(t, m.MarkProcessing())

	before := time.Now()
	require.NoError(t, m.Requeue("ledger timeout"))

	assert.Equal(t, MovementStatusPending, m.Status)
	assert.Equal(t, "ledger timeout", m.ErrorMessage)
	require.NotNil(t, m.NextAttemptAt)
	// 2^1 minutes after the first attempt
	assert.WithinDuration(t, before.Add(2*time.Minute), *m.NextAttemptAt, time.Second)
	assert.False(t, m.IsDue(time.Now()))
	assert.True(t, m.IsDue(time.Now().Add(3*time.Minute)))
}

func TestMovement_Requeue_ExhaustionFailsTerminally(t *testing.T) {
	m := newTestMovement(t)

	for i := 0; i < m.MaxAttempts-1; i++ {
		require.NoError(t, m.MarkProcessing())
		require.NoError(t, m.Requeue("transient"))
	}
	require.NoError(t, m.MarkProcessing())
	assert.Equal(t, m.MaxAttempts, m.Attempts)
	assert.False(t, m.CanRetry())

	require.NoError(t, m.Requeue("transient"))
	assert.Equal(t, MovementStatusFailed, m.Status)
	assert.NotNil(t, m.ProcessedAt)
	assert.Equal(t, "transient", m.ErrorMessage)
}

func TestMovement_Reschedule_DoesNotCountAttempt(t *testing.T) {
	m := newTestMovement(t)

	require.NoError(t, m.Reschedule(2 * time.Minute))
	assert.Equal(t, 0, m.Attempts)
	assert.Equal(t, MovementStatusPending, m.Status)
	require.NotNil(t, m.NextAttemptAt)
	assert.False(t, m.IsDue(time.Now()))
}

func TestMovement_FailPermanently(t *testing.T) {
	m := newTestMovement(t)
	require.NoError(t, m.MarkProcessing())

	require.NoError(t, m.FailPermanently("insufficient stock"))
	assert.Equal(t, MovementStatusFailed, m.Status)
	assert.Equal(t, "insufficient stock", m.ErrorMessage)

	assert.ErrorIs(t, m.FailPermanently("again"), ErrMovementAlreadyCompleted)
}

func TestMovement_ForceRetry(t *testing.T) {
	m := newTestMovement(t)
	for i := 0; i < m.MaxAttempts; i++ {
		require.NoError(t, m.MarkProcessing())
		require.NoError(t, m.Requeue("transient"))
	}
	require.Equal(t, MovementStatusFailed, m.Status)

	require.NoError(t, m.ForceRetry())
	assert.Equal(t, MovementStatusPending, m.Status)
	assert.Equal(t, 0, m.Attempts)
	assert.Nil(t, m.NextAttemptAt)
	assert.Empty(t, m.ErrorMessage)
	assert.True(t, m.IsDue(time.Now()))
}

func TestMovement_ForceRetry_CompletedRejected(t *testing.T) {
	m := newTestMovement(t)
	require.NoError(t, m.MarkProcessing())
	require.NoError(t, m.Complete())

	assert.ErrorIs(t, m.ForceRetry(), ErrMovementAlreadyCompleted)
}

func TestMovementStatus_IsValid(t *testing.T) {
	for _, s := range []MovementStatus{MovementStatusPending, MovementStatusProcessing, MovementStatusCompleted, MovementStatusFailed} {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, MovementStatus("SHIPPED").IsValid())
}
