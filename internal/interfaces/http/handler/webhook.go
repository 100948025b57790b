package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/stocksync/backend/internal/application/stocksync"
	"github.com/stocksync/backend/internal/domain/connector"
	storedomain "github.com/stocksync/backend/internal/domain/store"
	"github.com/stocksync/backend/internal/interfaces/http/dto"
)

// Signature headers per platform
const (
	shopifySignatureHeader = "X-Shopify-Hmac-Sha256"
	wooSignatureHeader     = "X-WC-Webhook-Signature"

	shopifyTopicHeader = "X-Shopify-Topic"
	wooTopicHeader     = "X-WC-Webhook-Topic"
)

// OrderEnqueuer turns a normalized order event into queued movements
type OrderEnqueuer interface {
	EnqueueOrderEvent(ctx context.Context, st *storedomain.Store, integration *storedomain.Integration, event stocksync.OrderEvent) (*stocksync.EnqueueResult, error)
}

// WebhookHandler receives storefront order webhooks. The signature is checked
// against the store's webhook secret before the payload is parsed.
type WebhookHandler struct {
	BaseHandler
	stores       storedomain.StoreRepository
	integrations storedomain.IntegrationRepository
	enqueuer     OrderEnqueuer
	logger       *zap.Logger
}

// NewWebhookHandler creates a WebhookHandler
func NewWebhookHandler(
	stores storedomain.StoreRepository,
	integrations storedomain.IntegrationRepository,
	enqueuer OrderEnqueuer,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		stores:       stores,
		integrations: integrations,
		enqueuer:     enqueuer,
		logger:       logger,
	}
}

// RegisterRoutes registers the webhook ingress routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/shopify/:storeID", h.HandleShopify)
	rg.POST("/woocommerce/:storeID", h.HandleWooCommerce)
}

// HandleShopify receives a Shopify order webhook
func (h *WebhookHandler) HandleShopify(c *gin.Context) {
	h.handle(c, connector.PlatformShopify, shopifySignatureHeader, shopifyTopicHeader)
}

// HandleWooCommerce receives a WooCommerce order webhook
func (h *WebhookHandler) HandleWooCommerce(c *gin.Context) {
	h.handle(c, connector.PlatformWooCommerce, wooSignatureHeader, wooTopicHeader)
}

func (h *WebhookHandler) handle(c *gin.Context, platform connector.PlatformCode, signatureHeader, topicHeader string) {
	storeID, err := parseIDParam(c, "storeID")
	if err != nil {
		h.BadRequest(c, "Invalid store ID")
		return
	}

	st, err := h.stores.FindByID(c.Request.Context(), storeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if st.Platform != platform {
		h.NotFound(c, "Store is not registered for this platform")
		return
	}

	// The raw body is needed twice: signature verification runs over the
	// exact bytes the platform signed.
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	if !verifySignature(body, st.WebhookSecret, c.GetHeader(signatureHeader)) {
		h.logger.Warn("webhook signature rejected",
			zap.String("store_id", st.ID.String()),
			zap.String("platform", platform.String()),
		)
		h.Unauthorized(c, "Invalid webhook signature")
		return
	}

	topic := c.GetHeader(topicHeader)
	if _, err := stocksync.ClassifyEventType(topic); err != nil {
		// Topics without stock semantics are acknowledged so the platform
		// does not retry delivery.
		h.Success(c, gin.H{"ignored": true, "topic": topic})
		return
	}

	event, err := parseOrderPayload(body, topic)
	if err != nil {
		h.BadRequest(c, "Malformed order payload")
		return
	}

	integration, err := h.integrations.FindByStore(c.Request.Context(), st.ID)
	if err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, "Store has no sync integration configured")
		return
	}

	result, err := h.enqueuer.EnqueueOrderEvent(c.Request.Context(), st, integration, event)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"direction":      result.Direction,
		"enqueued":       result.Enqueued,
		"duplicates":     result.Duplicates,
		"skipped_no_sku": result.SkippedNoSku,
	})
}

// verifySignature checks the base64 HMAC-SHA256 of the raw body in constant
// time. A missing header never verifies.
func verifySignature(body []byte, secret, signature string) bool {
	if signature == "" || secret == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// orderPayload is the shared shape of Shopify and WooCommerce order webhooks,
// trimmed to the fields the sync engine reads.
type orderPayload struct {
	ID        int64 `json:"id"`
	LineItems []struct {
		Sku      string `json:"sku"`
		Quantity int64  `json:"quantity"`
	} `json:"line_items"`
}

// parseOrderPayload normalizes a platform order payload into an OrderEvent
func parseOrderPayload(body []byte, topic string) (stocksync.OrderEvent, error) {
	var payload orderPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return stocksync.OrderEvent{}, err
	}

	event := stocksync.OrderEvent{
		OrderID:   strconv.FormatInt(payload.ID, 10),
		EventType: topic,
	}
	if payload.ID == 0 {
		event.OrderID = ""
	}
	for _, line := range payload.LineItems {
		event.LineItems = append(event.LineItems, stocksync.OrderLineItem{
			Sku:      line.Sku,
			Quantity: line.Quantity,
		})
	}
	return event, nil
}
