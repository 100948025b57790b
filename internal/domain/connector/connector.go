package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Connector Errors
// ---------------------------------------------------------------------------

var (
	ErrPlatformNotSupported = errors.New("connector: platform not supported")
	ErrProductNotFound      = errors.New("connector: product not found on storefront")
	ErrConnectionFailed     = errors.New("connector: connection test failed")
)

// PlatformError is the normalized error shape every adapter maps platform
// failures into, regardless of how each API reports them.
type PlatformError struct {
	Platform   PlatformCode
	Message    string
	Code       string
	HTTPStatus int
	RawDetails string
}

// Error implements the error interface
func (e *PlatformError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code=%s, status=%d)", e.Platform, e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("%s: %s (status=%d)", e.Platform, e.Message, e.HTTPStatus)
}

// IsRetryable reports whether the error is transient per the shared retry
// policy: HTTP 429 and 5xx responses are retryable, everything else is not.
func (e *PlatformError) IsRetryable() bool {
	return e.HTTPStatus == 429 || e.HTTPStatus >= 500
}

// ---------------------------------------------------------------------------
// PlatformCode
// ---------------------------------------------------------------------------

// PlatformCode represents a supported storefront platform
type PlatformCode string

const (
	// PlatformShopify is the Shopify admin API
	PlatformShopify PlatformCode = "SHOPIFY"
	// PlatformWooCommerce is the WooCommerce REST API
	PlatformWooCommerce PlatformCode = "WOOCOMMERCE"
)

// IsValid returns true if the platform code is valid
func (c PlatformCode) IsValid() bool {
	switch c {
	case PlatformShopify, PlatformWooCommerce:
		return true
	default:
		return false
	}
}

// String returns the string representation of PlatformCode
func (c PlatformCode) String() string {
	return string(c)
}

// ---------------------------------------------------------------------------
// Value Objects
// ---------------------------------------------------------------------------

// ProductRef identifies a product on its platform for stock writes. Shopify
// needs both the product and inventory item references; WooCommerce only the
// product (or variation) ID.
type ProductRef struct {
	// ProductID is the platform product identifier
	ProductID string
	// VariantID is the platform variant/variation identifier, when applicable
	VariantID string
	// InventoryItemID is the Shopify inventory item behind the variant
	InventoryItemID string
}

// Product is the normalized storefront product projection
type Product struct {
	Ref           ProductRef
	Sku           string
	Name          string
	Price         decimal.Decimal
	StockQuantity int64
	Managed       bool // false when the platform does not track stock for it
}

// ProductPage is one page of a storefront product scan. Page-number platforms
// set NextPage, cursor platforms set NextCursor; HasMore is authoritative.
type ProductPage struct {
	Products   []Product
	NextPage   int
	NextCursor string
	HasMore    bool
}

// RateLimitSnapshot is the per-connector view of the platform's rate budget,
// refreshed from response headers so callers can throttle proactively.
type RateLimitSnapshot struct {
	Remaining int
	Limit     int
	ResetTime time.Time
	Observed  time.Time
}

// Exhausted reports whether the platform budget is (close to) spent
func (s RateLimitSnapshot) Exhausted() bool {
	return s.Limit > 0 && s.Remaining <= 0
}

// ---------------------------------------------------------------------------
// Connector Port Interface
// ---------------------------------------------------------------------------

// Connector is the uniform contract over heterogeneous storefront APIs. One
// implementation exists per platform; callers never branch on the platform
// beyond resolving the adapter once at store-load time via the Registry.
type Connector interface {
	// Platform returns the platform code this connector handles
	Platform() PlatformCode

	// TestConnection verifies credentials and reachability
	TestConnection(ctx context.Context) error

	// GetProducts returns one page of products. page is 1-indexed for
	// page-number platforms; cursor platforms ignore it after the first call
	// and continue from the cursor instead.
	GetProducts(ctx context.Context, page int, cursor string, pageSize int) (*ProductPage, error)

	// GetProduct retrieves a single product by platform ID
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// GetProductBySku retrieves a product by SKU. Returns ErrProductNotFound
	// when the storefront has no product with that SKU.
	GetProductBySku(ctx context.Context, sku string) (*Product, error)

	// UpdateStock writes an absolute stock quantity to the storefront
	UpdateStock(ctx context.Context, ref ProductRef, quantity int64) error

	// GetProductsWithSku scans every page and returns all products that carry
	// a non-empty SKU.
	GetProductsWithSku(ctx context.Context) ([]Product, error)

	// RateLimit returns the latest rate-limit snapshot
	RateLimit() RateLimitSnapshot
}

// Registry resolves a store's platform to its connector. The set of
// platforms is closed; resolution happens once when the store is loaded.
type Registry interface {
	// ForStore builds a connector bound to the given store credentials
	ForStore(platform PlatformCode, baseURL, apiKey, apiSecret string) (Connector, error)
}
