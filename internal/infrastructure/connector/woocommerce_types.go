package connector

// WooCommerce REST API (wc/v3) payloads, trimmed to the fields the sync
// engine reads. Quantities arrive as *int64 because unmanaged products carry
// null stock.

type wooProduct struct {
	ID            int64  `json:"id"`
	ParentID      int64  `json:"parent_id"`
	Name          string `json:"name"`
	Sku           string `json:"sku"`
	Price         string `json:"price"`
	Type          string `json:"type"`
	ManageStock   bool   `json:"manage_stock"`
	StockQuantity *int64 `json:"stock_quantity"`
}

type wooStockUpdateRequest struct {
	StockQuantity int64 `json:"stock_quantity"`
	ManageStock   bool  `json:"manage_stock"`
}

type wooError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
