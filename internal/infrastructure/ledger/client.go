// Package ledger provides the HTTP client for the ERP ledger API, the
// external system of record for stock quantities.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

// maxResponseSize bounds ledger response bodies (1MB; responses are tiny)
const maxResponseSize = 1 << 20

// Client is the bearer-token REST client for the ledger API
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewClient creates a ledger client from configuration
func NewClient(cfg *config.LedgerConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FindProductIDBySku resolves a SKU to the ledger product ID
func (c *Client) FindProductIDBySku(ctx context.Context, sku string) (string, error) {
	query := url.Values{}
	query.Set("sku", sku)

	var payload struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/lookup?"+query.Encode(), nil, &payload); err != nil {
		return "", err
	}
	if payload.ID == "" {
		return "", ledger.ErrProductNotFound
	}
	return payload.ID, nil
}

// GetStock reads the current quantity for a product, warehouse-scoped when
// warehouseID is non-empty.
func (c *Client) GetStock(ctx context.Context, productID, sku, warehouseID string) (int64, error) {
	query := url.Values{}
	query.Set("sku", sku)
	if warehouseID != "" {
		query.Set("warehouse_id", warehouseID)
	}

	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	path := "/api/v1/products/" + url.PathEscape(productID) + "/stock?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return 0, err
	}
	return payload.Quantity, nil
}

// PostMovement posts a debit or credit movement. The ledger deduplicates on
// its own reference key and answers 409 for an already-posted movement, which
// surfaces as ErrMovementConflict.
func (c *Client) PostMovement(ctx context.Context, req ledger.MovementRequest) (string, error) {
	body := map[string]any{
		"kind":         string(req.Kind),
		"warehouse_id": req.WarehouseID,
		"sku":          req.Sku,
		"quantity":     req.Quantity,
		"reference_id": req.ReferenceID,
		"note":         req.Note,
	}

	var payload struct {
		MovementID string `json:"movement_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/movements", body, &payload); err != nil {
		return "", err
	}
	return payload.MovementID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%w: %v", ledger.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ledger.ErrProductNotFound
	case resp.StatusCode == http.StatusConflict:
		return ledger.ErrMovementConflict
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ledger.ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("ledger request failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode ledger response: %w", err)
		}
	}
	return nil
}

// Ensure Client implements the Ledger port
var _ ledger.Ledger = (*Client)(nil)
