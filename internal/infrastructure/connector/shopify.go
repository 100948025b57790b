package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/connector"
)

const (
	shopifyAPIVersion      = "2024-01"
	shopifyDefaultPageSize = 250
)

// ShopifyAdapter implements the Connector port over the Shopify Admin REST
// API. Stock writes go through inventory levels, which requires resolving the
// shop's primary location once; the location is cached for the adapter's
// lifetime.
type ShopifyAdapter struct {
	baseURL     string
	accessToken string
	client      *retryingClient
	limits      *rateLimitTracker

	locationMu sync.Mutex
	locationID int64
}

// NewShopifyAdapter creates a Shopify connector for one store
func NewShopifyAdapter(baseURL, accessToken string, timeout time.Duration) *ShopifyAdapter {
	return &ShopifyAdapter{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      newRetryingClient(timeout),
		limits:      &rateLimitTracker{},
	}
}

// Platform returns the platform code this connector handles
func (a *ShopifyAdapter) Platform() connector.PlatformCode {
	return connector.PlatformShopify
}

// TestConnection verifies credentials by fetching the shop resource
func (a *ShopifyAdapter) TestConnection(ctx context.Context) error {
	var envelope shopifyShopEnvelope
	if err := a.get(ctx, "/shop.json", nil, &envelope); err != nil {
		return fmt.Errorf("%w: %v", connector.ErrConnectionFailed, err)
	}
	return nil
}

// GetProducts returns one page of products. Shopify paginates with an opaque
// page_info cursor carried in the Link response header; the page argument is
// ignored after the first call.
func (a *ShopifyAdapter) GetProducts(ctx context.Context, page int, cursor string, pageSize int) (*connector.ProductPage, error) {
	if pageSize <= 0 || pageSize > shopifyDefaultPageSize {
		pageSize = shopifyDefaultPageSize
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		query.Set("page_info", cursor)
	}

	var envelope shopifyProductsEnvelope
	resp, err := a.getWithResponse(ctx, "/products.json", query, &envelope)
	if err != nil {
		return nil, err
	}

	result := &connector.ProductPage{}
	for _, product := range envelope.Products {
		result.Products = append(result.Products, normalizeShopifyProduct(product)...)
	}
	result.NextCursor = parseShopifyNextCursor(resp.Header.Get("Link"))
	result.HasMore = result.NextCursor != ""
	return result, nil
}

// GetProduct retrieves a single product by its Shopify ID
func (a *ShopifyAdapter) GetProduct(ctx context.Context, productID string) (*connector.Product, error) {
	var envelope shopifyProductEnvelope
	if err := a.get(ctx, "/products/"+url.PathEscape(productID)+".json", nil, &envelope); err != nil {
		return nil, err
	}
	products := normalizeShopifyProduct(envelope.Product)
	if len(products) == 0 {
		return nil, connector.ErrProductNotFound
	}
	return &products[0], nil
}

// GetProductBySku scans the catalog for a variant carrying the SKU. The REST
// API has no SKU filter, so this walks pages until it finds a match.
func (a *ShopifyAdapter) GetProductBySku(ctx context.Context, sku string) (*connector.Product, error) {
	cursor := ""
	for {
		page, err := a.GetProducts(ctx, 1, cursor, shopifyDefaultPageSize)
		if err != nil {
			return nil, err
		}
		for i := range page.Products {
			if page.Products[i].Sku == sku {
				return &page.Products[i], nil
			}
		}
		if !page.HasMore {
			return nil, connector.ErrProductNotFound
		}
		cursor = page.NextCursor
	}
}

// UpdateStock writes an absolute quantity through the inventory levels API
func (a *ShopifyAdapter) UpdateStock(ctx context.Context, ref connector.ProductRef, quantity int64) error {
	if ref.InventoryItemID == "" {
		return connector.ErrProductNotFound
	}
	inventoryItemID, err := strconv.ParseInt(ref.InventoryItemID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid inventory item id %q: %w", ref.InventoryItemID, err)
	}

	locationID, err := a.primaryLocation(ctx)
	if err != nil {
		return err
	}

	body := shopifyInventoryLevelRequest{
		LocationID:      locationID,
		InventoryItemID: inventoryItemID,
		Available:       quantity,
	}
	return a.post(ctx, "/inventory_levels/set.json", body, nil)
}

// GetProductsWithSku scans every page and returns all SKU-bearing variants
func (a *ShopifyAdapter) GetProductsWithSku(ctx context.Context) ([]connector.Product, error) {
	var products []connector.Product
	cursor := ""
	for {
		page, err := a.GetProducts(ctx, 1, cursor, shopifyDefaultPageSize)
		if err != nil {
			return nil, err
		}
		for _, p := range page.Products {
			if p.Sku != "" {
				products = append(products, p)
			}
		}
		if !page.HasMore {
			return products, nil
		}
		cursor = page.NextCursor
	}
}

// RateLimit returns the latest rate-limit snapshot
func (a *ShopifyAdapter) RateLimit() connector.RateLimitSnapshot {
	return a.limits.Snapshot()
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

// primaryLocation resolves and caches the first active location of the shop
func (a *ShopifyAdapter) primaryLocation(ctx context.Context) (int64, error) {
	a.locationMu.Lock()
	defer a.locationMu.Unlock()
	if a.locationID != 0 {
		return a.locationID, nil
	}

	var envelope shopifyLocationsEnvelope
	if err := a.get(ctx, "/locations.json", nil, &envelope); err != nil {
		return 0, err
	}
	for _, loc := range envelope.Locations {
		if loc.Active {
			a.locationID = loc.ID
			return a.locationID, nil
		}
	}
	return 0, a.platformError("shop has no active location", http.StatusUnprocessableEntity, "")
}

func (a *ShopifyAdapter) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := a.getWithResponse(ctx, path, query, out)
	return err
}

func (a *ShopifyAdapter) getWithResponse(ctx context.Context, path string, query url.Values, out any) (*http.Response, error) {
	endpoint := a.endpoint(path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, req, nil, out)
}

func (a *ShopifyAdapter) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = a.execute(ctx, req, body, out)
	return err
}

func (a *ShopifyAdapter) execute(ctx context.Context, req *http.Request, body []byte, out any) (*http.Response, error) {
	req.Header.Set("X-Shopify-Access-Token", a.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(ctx, req, body)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			return nil, a.platformError("request failed after retries", statusErr.StatusCode(), "")
		}
		return nil, err
	}
	a.limits.observeShopify(resp)

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, connector.ErrProductNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, a.platformError(shopifyErrorMessage(raw), resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode shopify response: %w", err)
		}
	}
	return resp, nil
}

func (a *ShopifyAdapter) endpoint(path string) string {
	return a.baseURL + "/admin/api/" + shopifyAPIVersion + path
}

func (a *ShopifyAdapter) platformError(message string, status int, raw string) error {
	return &connector.PlatformError{
		Platform:   connector.PlatformShopify,
		Message:    message,
		HTTPStatus: status,
		RawDetails: raw,
	}
}

func shopifyErrorMessage(raw []byte) string {
	var envelope shopifyErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Errors != nil {
		return fmt.Sprintf("%v", envelope.Errors)
	}
	return "shopify request failed"
}

// normalizeShopifyProduct flattens a product into one entry per variant
func normalizeShopifyProduct(product shopifyProduct) []connector.Product {
	result := make([]connector.Product, 0, len(product.Variants))
	for _, variant := range product.Variants {
		price, err := decimal.NewFromString(variant.Price)
		if err != nil {
			price = decimal.Zero
		}
		result = append(result, connector.Product{
			Ref: connector.ProductRef{
				ProductID:       strconv.FormatInt(product.ID, 10),
				VariantID:       strconv.FormatInt(variant.ID, 10),
				InventoryItemID: strconv.FormatInt(variant.InventoryItemID, 10),
			},
			Sku:           variant.Sku,
			Name:          product.Title,
			Price:         price,
			StockQuantity: variant.InventoryQuantity,
			Managed:       variant.InventoryManagement == "shopify",
		})
	}
	return result
}

// parseShopifyNextCursor extracts the page_info cursor of the rel="next" link
func parseShopifyNextCursor(linkHeader string) string {
	for _, part := range strings.Split(linkHeader, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		linkURL, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return linkURL.Query().Get("page_info")
	}
	return ""
}

// Ensure ShopifyAdapter implements the Connector port
var _ connector.Connector = (*ShopifyAdapter)(nil)
