package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ledgerdomain "github.com/stocksync/backend/internal/domain/ledger"
	"github.com/stocksync/backend/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&config.LedgerConfig{
		BaseURL:  server.URL,
		APIToken: "test-token",
		Timeout:  5 * time.Second,
	})
}

func TestClient_FindProductIDBySku(t *testing.T) {
	t.Run("resolves product id", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "/api/v1/products/lookup", r.URL.Path)
			assert.Equal(t, "SKU-1", r.URL.Query().Get("sku"))
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "prod-77"})
		})

		id, err := client.FindProductIDBySku(context.Background(), "SKU-1")
		require.NoError(t, err)
		assert.Equal(t, "prod-77", id)
	})

	t.Run("maps 404 to ErrProductNotFound", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.FindProductIDBySku(context.Background(), "MISSING")
		assert.ErrorIs(t, err, ledgerdomain.ErrProductNotFound)
	})
}

func TestClient_GetStock(t *testing.T) {
	t.Run("reads warehouse-scoped stock", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/v1/products/prod-77/stock", r.URL.Path)
			assert.Equal(t, "wh-1", r.URL.Query().Get("warehouse_id"))
			_ = json.NewEncoder(w).Encode(map[string]int64{"quantity": 31})
		})

		qty, err := client.GetStock(context.Background(), "prod-77", "SKU-1", "wh-1")
		require.NoError(t, err)
		assert.Equal(t, int64(31), qty)
	})

	t.Run("omits warehouse param for global stock", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.False(t, r.URL.Query().Has("warehouse_id"))
			_ = json.NewEncoder(w).Encode(map[string]int64{"quantity": 5})
		})

		qty, err := client.GetStock(context.Background(), "prod-77", "SKU-1", "")
		require.NoError(t, err)
		assert.Equal(t, int64(5), qty)
	})
}

func TestClient_PostMovement(t *testing.T) {
	t.Run("posts movement and returns ledger id", func(t *testing.T) {
		var posted map[string]any
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/movements", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]string{"movement_id": "mv-1"})
		})

		id, err := client.PostMovement(context.Background(), ledgerdomain.MovementRequest{
			Kind:        ledgerdomain.MovementKindDebit,
			WarehouseID: "wh-1",
			Sku:         "SKU-1",
			Quantity:    3,
			ReferenceID: "order-9",
		})
		require.NoError(t, err)
		assert.Equal(t, "mv-1", id)
		assert.Equal(t, "DEBIT", posted["kind"])
		assert.Equal(t, float64(3), posted["quantity"])
		assert.Equal(t, "order-9", posted["reference_id"])
	})

	t.Run("maps 409 to ErrMovementConflict", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		})

		_, err := client.PostMovement(context.Background(), ledgerdomain.MovementRequest{
			Kind: ledgerdomain.MovementKindCredit, Sku: "SKU-1", Quantity: 1,
		})
		assert.ErrorIs(t, err, ledgerdomain.ErrMovementConflict)
	})

	t.Run("maps 5xx to ErrUnavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := client.PostMovement(context.Background(), ledgerdomain.MovementRequest{
			Kind: ledgerdomain.MovementKindDebit, Sku: "SKU-1", Quantity: 1,
		})
		assert.ErrorIs(t, err, ledgerdomain.ErrUnavailable)
	})
}
