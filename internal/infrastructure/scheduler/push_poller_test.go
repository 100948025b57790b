package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
)

type fakeProcessor struct {
	calls atomic.Int32
	delay time.Duration
	limit int
}

func (f *fakeProcessor) ProcessPendingMovements(ctx context.Context, limit int) (*stocksync.BatchResult, error) {
	f.calls.Add(1)
	f.limit = limit
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return &stocksync.BatchResult{Processed: 1, Completed: 1}, nil
}

func TestPushPoller_DrainsOnInterval(t *testing.T) {
	processor := &fakeProcessor{}
	poller, err := NewPushPoller(PushPollerConfig{
		PollInterval: 20 * time.Millisecond,
		BatchLimit:   25,
		BatchTimeout: time.Second,
	}, processor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, poller.Start(context.Background()))
	defer func() { _ = poller.Stop(context.Background()) }()

	assert.Eventually(t, func() bool {
		return processor.calls.Load() >= 3
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 25, processor.limit)
}

func TestPushPoller_SkipsOverlappingBatches(t *testing.T) {
	// Batch takes far longer than the poll interval; overlapping ticks must
	// be dropped instead of stacking batches.
	processor := &fakeProcessor{delay: 300 * time.Millisecond}
	poller, err := NewPushPoller(PushPollerConfig{
		PollInterval: 10 * time.Millisecond,
		BatchLimit:   50,
		BatchTimeout: time.Second,
	}, processor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, poller.Start(context.Background()))
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, poller.Stop(context.Background()))

	assert.Equal(t, int32(1), processor.calls.Load())
}

func TestPushPoller_StopWaitsForBatch(t *testing.T) {
	processor := &fakeProcessor{delay: 50 * time.Millisecond}
	poller, err := NewPushPoller(PushPollerConfig{
		PollInterval: time.Hour,
		BatchLimit:   50,
		BatchTimeout: time.Second,
	}, processor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, poller.Start(context.Background()))
	time.Sleep(10 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, poller.Stop(stopCtx))
}

func TestPushPoller_StartIsIdempotent(t *testing.T) {
	processor := &fakeProcessor{}
	poller, err := NewPushPoller(DefaultPushPollerConfig(), processor, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, poller.Start(context.Background()))
	require.NoError(t, poller.Start(context.Background()))
	require.NoError(t, poller.Stop(context.Background()))
	require.NoError(t, poller.Stop(context.Background()))
}

func TestPushPollerConfig_Validate(t *testing.T) {
	cfg := DefaultPushPollerConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.PollInterval = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)

	bad = cfg
	bad.BatchLimit = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfig)
}
