package connector

import (
	"time"

	"github.com/stocksync/backend/internal/domain/connector"
)

// defaultRequestTimeout bounds every platform API call
const defaultRequestTimeout = 30 * time.Second

// PlatformRegistry resolves platform codes to connectors bound to store
// credentials. The platform set is closed; unknown codes fail fast.
type PlatformRegistry struct {
	timeout time.Duration
}

// NewPlatformRegistry creates a registry with the default request timeout
func NewPlatformRegistry() *PlatformRegistry {
	return &PlatformRegistry{timeout: defaultRequestTimeout}
}

// NewPlatformRegistryWithTimeout creates a registry with a custom timeout
func NewPlatformRegistryWithTimeout(timeout time.Duration) *PlatformRegistry {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &PlatformRegistry{timeout: timeout}
}

// ForStore builds a connector bound to the given store credentials. For
// Shopify the apiKey is the admin access token; for WooCommerce apiKey and
// apiSecret are the consumer key/secret pair.
func (r *PlatformRegistry) ForStore(platform connector.PlatformCode, baseURL, apiKey, apiSecret string) (connector.Connector, error) {
	switch platform {
	case connector.PlatformShopify:
		return NewShopifyAdapter(baseURL, apiKey, r.timeout), nil
	case connector.PlatformWooCommerce:
		return NewWooCommerceAdapter(baseURL, apiKey, apiSecret, r.timeout), nil
	default:
		return nil, connector.ErrPlatformNotSupported
	}
}

// Ensure PlatformRegistry implements the Registry port
var _ connector.Registry = (*PlatformRegistry)(nil)
