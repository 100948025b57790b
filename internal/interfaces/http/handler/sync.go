package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stocksync/backend/internal/application/stocksync"
	syncdomain "github.com/stocksync/backend/internal/domain/stocksync"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// PullTrigger runs a reconciliation for a store
type PullTrigger interface {
	PullStore(ctx context.Context, storeID uuid.UUID, opts stocksync.PullOptions) (*stocksync.PullSummary, error)
}

// MovementRetrier force-retries a queued movement
type MovementRetrier interface {
	RetryMovement(ctx context.Context, movementID uuid.UUID) (*stocksync.MovementResponse, error)
}

// SyncQueries serves the read-only queue and audit views
type SyncQueries interface {
	ListMovements(ctx context.Context, filter syncdomain.MovementFilter) ([]stocksync.MovementResponse, int64, error)
	GetMovement(ctx context.Context, id uuid.UUID) (*stocksync.MovementResponse, error)
	ListSyncLogs(ctx context.Context, storeID uuid.UUID, filter syncdomain.SyncLogFilter) ([]stocksync.SyncLogResponse, int64, error)
	GetSyncLog(ctx context.Context, id uuid.UUID) (*syncdomain.SyncLog, error)
	ListCachedStock(ctx context.Context, storeID uuid.UUID) ([]syncdomain.StoreProductCache, error)
	ListUnmappedSkus(ctx context.Context, storeID uuid.UUID) ([]syncdomain.UnmappedSku, error)
}

// SyncHandler exposes the operational sync triggers and read views
type SyncHandler struct {
	BaseHandler
	puller  PullTrigger
	retrier MovementRetrier
	queries SyncQueries
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(puller PullTrigger, retrier MovementRetrier, queries SyncQueries) *SyncHandler {
	return &SyncHandler{
		puller:  puller,
		retrier: retrier,
		queries: queries,
	}
}

// RegisterRoutes registers the sync API routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores")
	{
		stores.POST("/:id/pull", h.ForcePull)
		stores.POST("/:id/pull/selective", h.SelectivePull)
		stores.GET("/:id/sync-logs", h.ListSyncLogs)
		stores.GET("/:id/stock-cache", h.ListCachedStock)
		stores.GET("/:id/unmapped-skus", h.ListUnmappedSkus)
	}

	movements := rg.Group("/movements")
	{
		movements.GET("", h.ListMovements)
		movements.GET("/:id", h.GetMovement)
		movements.POST("/:id/retry", h.RetryMovement)
	}

	rg.GET("/sync-logs/:id", h.GetSyncLog)
}

// ForcePullRequest is the request body for a forced full pull
type ForcePullRequest struct {
	DryRun bool `json:"dry_run"`
}

// SelectivePullRequest is the request body for a selective pull
type SelectivePullRequest struct {
	Skus   []string `json:"skus" binding:"required,min=1,max=500"`
	DryRun bool     `json:"dry_run"`
}

// ForcePull triggers a full reconciliation for a store
func (h *SyncHandler) ForcePull(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req ForcePullRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BadRequest(c, "Invalid request body")
			return
		}
	}

	summary, err := h.puller.PullStore(c.Request.Context(), storeID, stocksync.PullOptions{
		Mode:    stocksync.PullModeFull,
		DryRun:  req.DryRun,
		Trigger: "forced",
	})
	if err != nil {
		h.handlePullError(c, err)
		return
	}
	h.Success(c, summary)
}

// SelectivePull triggers a reconciliation of an explicit SKU list
func (h *SyncHandler) SelectivePull(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req SelectivePullRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "A non-empty skus list is required")
		return
	}

	summary, err := h.puller.PullStore(c.Request.Context(), storeID, stocksync.PullOptions{
		Mode:    stocksync.PullModeSelective,
		Skus:    req.Skus,
		DryRun:  req.DryRun,
		Trigger: "forced",
	})
	if err != nil {
		h.handlePullError(c, err)
		return
	}
	h.Success(c, summary)
}

func (h *SyncHandler) handlePullError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, stocksync.ErrPullLocked):
		h.Conflict(c, dto.ErrCodeSyncLocked, "A reconciliation is already running for this store")
	case errors.Is(err, storedomain.ErrStoreInactive):
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "Store is inactive")
	default:
		h.HandleError(c, err)
	}
}

// RetryMovement resets an exhausted movement and processes it immediately
func (h *SyncHandler) RetryMovement(c *gin.Context) {
	movementID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid movement ID")
		return
	}

	resp, err := h.retrier.RetryMovement(c.Request.Context(), movementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListMovements lists queued movements with optional filters
func (h *SyncHandler) ListMovements(c *gin.Context) {
	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	list.Normalize()

	filter := syncdomain.MovementFilter{
		Sku:      c.Query("sku"),
		Page:     list.Page,
		PageSize: list.PageSize,
	}

	if raw := c.Query("store_id"); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid store_id filter")
			return
		}
		filter.StoreID = &storeID
	}
	if raw := c.Query("status"); raw != "" {
		status := syncdomain.MovementStatus(raw)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("direction"); raw != "" {
		direction := syncdomain.MovementDirection(raw)
		if !direction.IsValid() {
			h.BadRequest(c, "Invalid direction filter")
			return
		}
		filter.Direction = &direction
	}

	movements, total, err := h.queries.ListMovements(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, movements, total, list.Page, list.PageSize)
}

// GetMovement returns one movement
func (h *SyncHandler) GetMovement(c *gin.Context) {
	movementID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid movement ID")
		return
	}

	movement, err := h.queries.GetMovement(c.Request.Context(), movementID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movement)
}

// ListSyncLogs lists audit entries for a store
func (h *SyncHandler) ListSyncLogs(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var list dto.ListRequest
	if err := c.ShouldBindQuery(&list); err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	list.Normalize()

	filter := syncdomain.SyncLogFilter{
		Page:     list.Page,
		PageSize: list.PageSize,
	}
	if raw := c.Query("kind"); raw != "" {
		kind := syncdomain.SyncKind(raw)
		filter.Kind = &kind
	}
	if raw := c.Query("status"); raw != "" {
		status := syncdomain.SyncRunStatus(raw)
		filter.Status = &status
	}

	logs, total, err := h.queries.ListSyncLogs(c.Request.Context(), storeID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, logs, total, list.Page, list.PageSize)
}

// GetSyncLog returns one audit entry with its per-SKU items
func (h *SyncHandler) GetSyncLog(c *gin.Context) {
	logID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid sync log ID")
		return
	}

	runLog, err := h.queries.GetSyncLog(c.Request.Context(), logID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, runLog)
}

// ListCachedStock returns the cached stock projection for a store
func (h *SyncHandler) ListCachedStock(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	entries, err := h.queries.ListCachedStock(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// ListUnmappedSkus returns the unresolved mapping gaps for a store
func (h *SyncHandler) ListUnmappedSkus(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	entries, err := h.queries.ListUnmappedSkus(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}
