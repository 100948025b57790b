package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/domain/connector"
	storedomain "github.com/stocksync/backend/internal/domain/store"
)

// StoreHandler manages storefront registrations and their sync configuration
type StoreHandler struct {
	BaseHandler
	stores       storedomain.StoreRepository
	integrations storedomain.IntegrationRepository
	registry     connector.Registry
	logger       *zap.Logger
}

// NewStoreHandler creates a StoreHandler
func NewStoreHandler(
	stores storedomain.StoreRepository,
	integrations storedomain.IntegrationRepository,
	registry connector.Registry,
	logger *zap.Logger,
) *StoreHandler {
	return &StoreHandler{
		stores:       stores,
		integrations: integrations,
		registry:     registry,
		logger:       logger,
	}
}

// RegisterRoutes registers the store management routes
func (h *StoreHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores")
	{
		stores.POST("", h.CreateStore)
		stores.GET("/:id", h.GetStore)
		stores.POST("/:id/test-connection", h.TestConnection)
		stores.PUT("/:id/integration", h.UpsertIntegration)
	}
}

// CreateStoreRequest is the request body for registering a store
type CreateStoreRequest struct {
	TenantID      string `json:"tenant_id" binding:"required,uuid"`
	Name          string `json:"name" binding:"required,min=1,max=200"`
	Platform      string `json:"platform" binding:"required,oneof=SHOPIFY WOOCOMMERCE"`
	BaseURL       string `json:"base_url" binding:"required,url"`
	APIKey        string `json:"api_key" binding:"required"`
	APISecret     string `json:"api_secret"`
	WebhookSecret string `json:"webhook_secret" binding:"required"`
}

// UpsertIntegrationRequest is the request body for the sync configuration
type UpsertIntegrationRequest struct {
	WarehouseID            string `json:"warehouse_id"`
	SyncIntervalMinutes    int    `json:"sync_interval_minutes" binding:"omitempty,min=1"`
	ActiveHoursStart       int    `json:"active_hours_start" binding:"omitempty,min=0,max=23"`
	ActiveHoursEnd         int    `json:"active_hours_end" binding:"omitempty,min=0,max=23"`
	DryRun                 bool   `json:"dry_run"`
	RecentPushGuardMinutes int    `json:"recent_push_guard_minutes" binding:"omitempty,min=0"`
	Enabled                *bool  `json:"enabled"`
}

// StoreResponse is the outward projection of a store, credentials omitted
type StoreResponse struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	BaseURL  string `json:"base_url"`
	Active   bool   `json:"active"`
}

func toStoreResponse(st *storedomain.Store) StoreResponse {
	return StoreResponse{
		ID:       st.ID.String(),
		TenantID: st.TenantID.String(),
		Name:     st.Name,
		Platform: st.Platform.String(),
		BaseURL:  st.BaseURL,
		Active:   st.Active,
	}
}

// CreateStore registers a storefront
func (h *StoreHandler) CreateStore(c *gin.Context) {
	var req CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid store payload")
		return
	}

	tenantID, err := parseUUIDField(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	st, err := storedomain.NewStore(tenantID, req.Name, connector.PlatformCode(req.Platform),
		req.BaseURL, req.APIKey, req.APISecret, req.WebhookSecret)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.stores.Save(c.Request.Context(), st); err != nil {
		h.HandleError(c, err)
		return
	}

	h.logger.Info("store registered",
		zap.String("store_id", st.ID.String()),
		zap.String("platform", st.Platform.String()),
	)
	h.Created(c, toStoreResponse(st))
}

// GetStore returns one store
func (h *StoreHandler) GetStore(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	st, err := h.stores.FindByID(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toStoreResponse(st))
}

// TestConnection verifies the store's credentials against its platform
func (h *StoreHandler) TestConnection(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	st, err := h.stores.FindByID(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	conn, err := h.registry.ForStore(st.Platform, st.BaseURL, st.APIKey, st.APISecret)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := conn.TestConnection(c.Request.Context()); err != nil {
		h.Success(c, gin.H{"connected": false, "error": err.Error()})
		return
	}
	h.Success(c, gin.H{"connected": true})
}

// UpsertIntegration creates or updates the store's sync configuration
func (h *StoreHandler) UpsertIntegration(c *gin.Context) {
	storeID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	var req UpsertIntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid integration payload")
		return
	}

	if _, err := h.stores.FindByID(c.Request.Context(), storeID); err != nil {
		h.HandleError(c, err)
		return
	}

	integration, err := h.integrations.FindByStore(c.Request.Context(), storeID)
	if err != nil {
		integration = storedomain.NewIntegration(storeID, req.WarehouseID, req.SyncIntervalMinutes)
	}

	integration.WarehouseID = req.WarehouseID
	if req.SyncIntervalMinutes > 0 {
		integration.SyncIntervalMinutes = req.SyncIntervalMinutes
	}
	integration.ActiveHoursStart = req.ActiveHoursStart
	integration.ActiveHoursEnd = req.ActiveHoursEnd
	integration.DryRun = req.DryRun
	integration.RecentPushGuardMinutes = req.RecentPushGuardMinutes
	if req.Enabled != nil {
		integration.Enabled = *req.Enabled
	}
	integration.Touch()

	if err := h.integrations.Save(c.Request.Context(), integration); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, integration)
}
