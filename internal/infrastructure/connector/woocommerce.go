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
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocksync/backend/internal/domain/connector"
)

const (
	wooAPIBase         = "/wp-json/wc/v3"
	wooDefaultPageSize = 100
)

// WooCommerceAdapter implements the Connector port over the WooCommerce REST
// API (wc/v3). Authentication uses consumer key/secret as query parameters,
// which WooCommerce accepts over HTTPS.
type WooCommerceAdapter struct {
	baseURL        string
	consumerKey    string
	consumerSecret string
	client         *retryingClient
	limits         *rateLimitTracker
}

// NewWooCommerceAdapter creates a WooCommerce connector for one store
func NewWooCommerceAdapter(baseURL, consumerKey, consumerSecret string, timeout time.Duration) *WooCommerceAdapter {
	return &WooCommerceAdapter{
		baseURL:        strings.TrimRight(baseURL, "/"),
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		client:         newRetryingClient(timeout),
		limits:         &rateLimitTracker{},
	}
}

// Platform returns the platform code this connector handles
func (a *WooCommerceAdapter) Platform() connector.PlatformCode {
	return connector.PlatformWooCommerce
}

// TestConnection verifies credentials with a minimal products query
func (a *WooCommerceAdapter) TestConnection(ctx context.Context) error {
	query := url.Values{}
	query.Set("per_page", "1")
	var products []wooProduct
	if err := a.get(ctx, "/products", query, &products); err != nil {
		return fmt.Errorf("%w: %v", connector.ErrConnectionFailed, err)
	}
	return nil
}

// GetProducts returns one page of products. WooCommerce paginates by page
// number; the total page count comes from the X-WP-TotalPages header.
func (a *WooCommerceAdapter) GetProducts(ctx context.Context, page int, cursor string, pageSize int) (*connector.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > wooDefaultPageSize {
		pageSize = wooDefaultPageSize
	}
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(pageSize))

	var wooProducts []wooProduct
	resp, err := a.getWithResponse(ctx, "/products", query, &wooProducts)
	if err != nil {
		return nil, err
	}

	result := &connector.ProductPage{}
	for _, p := range wooProducts {
		result.Products = append(result.Products, normalizeWooProduct(p))
	}

	totalPages, _ := strconv.Atoi(resp.Header.Get("X-WP-TotalPages"))
	if page < totalPages {
		result.NextPage = page + 1
		result.HasMore = true
	}
	return result, nil
}

// GetProduct retrieves a single product by its WooCommerce ID
func (a *WooCommerceAdapter) GetProduct(ctx context.Context, productID string) (*connector.Product, error) {
	var p wooProduct
	if err := a.get(ctx, "/products/"+url.PathEscape(productID), nil, &p); err != nil {
		return nil, err
	}
	product := normalizeWooProduct(p)
	return &product, nil
}

// GetProductBySku retrieves a product by SKU via the native sku filter
func (a *WooCommerceAdapter) GetProductBySku(ctx context.Context, sku string) (*connector.Product, error) {
	query := url.Values{}
	query.Set("sku", sku)
	var wooProducts []wooProduct
	if err := a.get(ctx, "/products", query, &wooProducts); err != nil {
		return nil, err
	}
	if len(wooProducts) == 0 {
		return nil, connector.ErrProductNotFound
	}
	product := normalizeWooProduct(wooProducts[0])
	return &product, nil
}

// UpdateStock writes an absolute quantity to the product or variation
func (a *WooCommerceAdapter) UpdateStock(ctx context.Context, ref connector.ProductRef, quantity int64) error {
	path := "/products/" + url.PathEscape(ref.ProductID)
	if ref.VariantID != "" {
		path = "/products/" + url.PathEscape(ref.ProductID) + "/variations/" + url.PathEscape(ref.VariantID)
	}
	body := wooStockUpdateRequest{
		StockQuantity: quantity,
		ManageStock:   true,
	}
	return a.put(ctx, path, body, nil)
}

// GetProductsWithSku scans every page and returns all SKU-bearing products
func (a *WooCommerceAdapter) GetProductsWithSku(ctx context.Context) ([]connector.Product, error) {
	var products []connector.Product
	page := 1
	for {
		result, err := a.GetProducts(ctx, page, "", wooDefaultPageSize)
		if err != nil {
			return nil, err
		}
		for _, p := range result.Products {
			if p.Sku != "" {
				products = append(products, p)
			}
		}
		if !result.HasMore {
			return products, nil
		}
		page = result.NextPage
	}
}

// RateLimit returns the latest rate-limit snapshot
func (a *WooCommerceAdapter) RateLimit() connector.RateLimitSnapshot {
	return a.limits.Snapshot()
}

// ---------------------------------------------------------------------------
// internals
// ---------------------------------------------------------------------------

func (a *WooCommerceAdapter) get(ctx context.Context, path string, query url.Values, out any) error {
	_, err := a.getWithResponse(ctx, path, query, out)
	return err
}

func (a *WooCommerceAdapter) getWithResponse(ctx context.Context, path string, query url.Values, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.endpoint(path, query), nil)
	if err != nil {
		return nil, err
	}
	return a.execute(ctx, req, nil, out)
}

func (a *WooCommerceAdapter) put(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.endpoint(path, nil), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = a.execute(ctx, req, body, out)
	return err
}

func (a *WooCommerceAdapter) execute(ctx context.Context, req *http.Request, body []byte, out any) (*http.Response, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(ctx, req, body)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) {
			return nil, a.platformError("request failed after retries", "", statusErr.StatusCode(), "")
		}
		return nil, err
	}
	a.limits.observeGeneric(resp)

	raw, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, connector.ErrProductNotFound
	}
	if resp.StatusCode >= 400 {
		var wooErr wooError
		message := "woocommerce request failed"
		if err := json.Unmarshal(raw, &wooErr); err == nil && wooErr.Message != "" {
			message = wooErr.Message
		}
		return nil, a.platformError(message, wooErr.Code, resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("decode woocommerce response: %w", err)
		}
	}
	return resp, nil
}

func (a *WooCommerceAdapter) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", a.consumerKey)
	query.Set("consumer_secret", a.consumerSecret)
	return a.baseURL + wooAPIBase + path + "?" + query.Encode()
}

func (a *WooCommerceAdapter) platformError(message, code string, status int, raw string) error {
	return &connector.PlatformError{
		Platform:   connector.PlatformWooCommerce,
		Message:    message,
		Code:       code,
		HTTPStatus: status,
		RawDetails: raw,
	}
}

// normalizeWooProduct maps a WooCommerce product to the uniform projection
func normalizeWooProduct(p wooProduct) connector.Product {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		price = decimal.Zero
	}
	ref := connector.ProductRef{
		ProductID: strconv.FormatInt(p.ID, 10),
	}
	if p.Type == "variation" && p.ParentID > 0 {
		ref.ProductID = strconv.FormatInt(p.ParentID, 10)
		ref.VariantID = strconv.FormatInt(p.ID, 10)
	}
	var quantity int64
	if p.StockQuantity != nil {
		quantity = *p.StockQuantity
	}
	return connector.Product{
		Ref:           ref,
		Sku:           p.Sku,
		Name:          p.Name,
		Price:         price,
		StockQuantity: quantity,
		Managed:       p.ManageStock,
	}
}

// Ensure WooCommerceAdapter implements the Connector port
var _ connector.Connector = (*WooCommerceAdapter)(nil)
