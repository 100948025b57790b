package stocksync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncLock(t *testing.T) {
	lock, err := NewSyncLock(uuid.New(), LockPull, "owner-1", time.Minute)
	require.NoError(t, err)

	assert.Equal(t, LockPull, lock.Direction)
	assert.False(t, lock.IsExpired())
	assert.WithinDuration(t, time.Now().Add(time.Minute), lock.ExpiresAt, time.Second)
}

func TestNewSyncLock_Validation(t *testing.T) {
	_, err := NewSyncLock(uuid.New(), LockDirection("BOTH"), "owner-1", time.Minute)
	assert.ErrorIs(t, err, ErrLockInvalidDirection)

	_, err = NewSyncLock(uuid.New(), LockPush, "owner-1", 0)
	assert.ErrorIs(t, err, ErrLockInvalidTTL)
}

func TestSyncLock_IsExpired(t *testing.T) {
	lock, err := NewSyncLock(uuid.New(), LockPush, "owner-1", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	assert.True(t, lock.IsExpired())
}

func TestLockDirection_IsValid(t *testing.T) {
	assert.True(t, LockPull.IsValid())
	assert.True(t, LockPush.IsValid())
	assert.False(t, LockDirection("").IsValid())
}
