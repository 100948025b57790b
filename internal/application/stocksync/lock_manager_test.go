package stocksync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
)

func TestLockManager_AcquireAndRelease(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())
	storeID := uuid.New()
	ctx := context.Background()

	lock, err := manager.Acquire(ctx, storeID, syncdomain.LockPull, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, lock)

	held, err := manager.HasActiveLock(ctx, storeID, syncdomain.LockPull)
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, manager.Release(ctx, storeID, syncdomain.LockPull))

	held, err = manager.HasActiveLock(ctx, storeID, syncdomain.LockPull)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestLockManager_ContentionReturnsNil(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())
	storeID := uuid.New()
	ctx := context.Background()

	first, err := manager.Acquire(ctx, storeID, syncdomain.LockPush, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := manager.Acquire(ctx, storeID, syncdomain.LockPush, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestLockManager_PushAndPullAreMutuallyExclusive(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())
	storeID := uuid.New()
	ctx := context.Background()

	pull, err := manager.Acquire(ctx, storeID, syncdomain.LockPull, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, pull)

	// A live pull lock blocks the push direction too
	push, err := manager.Acquire(ctx, storeID, syncdomain.LockPush, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, push)

	require.NoError(t, manager.Release(ctx, storeID, syncdomain.LockPull))

	push, err = manager.Acquire(ctx, storeID, syncdomain.LockPush, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, push)

	// And the held push lock blocks a new pull
	pull, err = manager.Acquire(ctx, storeID, syncdomain.LockPull, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, pull)
}

func TestLockManager_StoresAreIndependent(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())
	ctx := context.Background()

	first, err := manager.Acquire(ctx, uuid.New(), syncdomain.LockPush, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := manager.Acquire(ctx, uuid.New(), syncdomain.LockPull, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, second)
}

func TestLockManager_ExpiredLockIsReaped(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())
	storeID := uuid.New()
	ctx := context.Background()

	stale, err := manager.Acquire(ctx, storeID, syncdomain.LockPull, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, stale)
	time.Sleep(5 * time.Millisecond)

	fresh, err := manager.Acquire(ctx, storeID, syncdomain.LockPull, time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestLockManager_ReleaseMissingLockIsNoop(t *testing.T) {
	manager := NewLockManager(newFakeLockRepo())

	assert.NoError(t, manager.Release(context.Background(), uuid.New(), syncdomain.LockPull))
}

func TestLockManager_ReleaseAll(t *testing.T) {
	repo := newFakeLockRepo()
	manager := NewLockManager(repo)
	storeID := uuid.New()
	ctx := context.Background()

	// Seed both directions directly; Acquire would refuse the second one
	for _, direction := range []syncdomain.LockDirection{syncdomain.LockPull, syncdomain.LockPush} {
		lock, err := syncdomain.NewSyncLock(storeID, direction, uuid.NewString(), time.Minute)
		require.NoError(t, err)
		require.NoError(t, repo.Insert(ctx, lock))
	}

	require.NoError(t, manager.ReleaseAll(ctx, storeID))

	for _, direction := range []syncdomain.LockDirection{syncdomain.LockPull, syncdomain.LockPush} {
		held, err := manager.HasActiveLock(ctx, storeID, direction)
		require.NoError(t, err)
		assert.False(t, held, direction)
	}
}
