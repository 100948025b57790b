package stocksync

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSyncLog(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "scheduled", false)

	assert.Equal(t, SyncRunStatusRunning, l.Status)
	assert.False(t, l.StartedAt.IsZero())
	assert.Nil(t, l.FinishedAt)
}

func TestSyncLog_Finish_Success(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "scheduled", false)
	l.RecordUpdated("SKU-1", 10, 7)
	l.RecordSkipped("SKU-2", CategoryNoChanges)
	l.Finish()

	assert.Equal(t, SyncRunStatusSuccess, l.Status)
	assert.NotNil(t, l.FinishedAt)
	assert.Equal(t, 1, l.SuccessCount)
	assert.Equal(t, 1, l.SkippedCount)
	assert.Len(t, l.Items, 2)
}

func TestSyncLog_Finish_Partial(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "forced", false)
	l.RecordUpdated("SKU-1", 10, 7)
	l.RecordFailed("SKU-2", CategoryAPIError, "502 from storefront")
	l.Finish()

	assert.Equal(t, SyncRunStatusPartial, l.Status)
	assert.Equal(t, 1, l.FailedCount)
}

func TestSyncLog_Finish_AllFailed(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeSelective, "forced", false)
	l.RecordFailed("SKU-1", CategoryNotFoundLedger, "unknown SKU")
	l.Finish()

	assert.Equal(t, SyncRunStatusFailed, l.Status)
}

func TestSyncLog_Finish_AggregatesSkipReasons(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "scheduled", false)
	l.RecordSkipped("SKU-1", CategoryNoChanges)
	l.RecordSkipped("SKU-2", CategoryNoChanges)
	l.RecordSkipped("SKU-3", CategoryRecentPush)
	l.Finish()

	var reasons map[string]int
	require.NoError(t, json.Unmarshal([]byte(l.SkipReasons), &reasons))
	assert.Equal(t, 2, reasons[CategoryNoChanges])
	assert.Equal(t, 1, reasons[CategoryRecentPush])
}

func TestSyncLog_RecordDryRun(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "forced", true)
	l.RecordDryRun("SKU-1", 10, 4)
	l.Finish()

	assert.Equal(t, SyncRunStatusSuccess, l.Status)
	assert.Equal(t, 0, l.SuccessCount)
	assert.Equal(t, 1, l.SkippedCount)
	require.Len(t, l.Items, 1)
	assert.Equal(t, CategoryDryRun, l.Items[0].Category)
	assert.Equal(t, int64(10), l.Items[0].OldQuantity)
	assert.Equal(t, int64(4), l.Items[0].NewQuantity)
}

func TestSyncLog_Fail(t *testing.T) {
	l := NewSyncLog(uuid.New(), uuid.New(), SyncKindPull, SyncModeFull, "scheduled", false)
	l.Fail("storefront unreachable")

	assert.Equal(t, SyncRunStatusFailed, l.Status)
	assert.Equal(t, "storefront unreachable", l.Detail)
	assert.NotNil(t, l.FinishedAt)
}
