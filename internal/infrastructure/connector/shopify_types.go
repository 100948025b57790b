package connector

// Shopify Admin REST API payloads, trimmed to the fields the sync engine reads.

type shopifyShopEnvelope struct {
	Shop struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"shop"`
}

type shopifyProductsEnvelope struct {
	Products []shopifyProduct `json:"products"`
}

type shopifyProductEnvelope struct {
	Product shopifyProduct `json:"product"`
}

type shopifyProduct struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Variants []shopifyVariant `json:"variants"`
}

type shopifyVariant struct {
	ID                  int64  `json:"id"`
	ProductID           int64  `json:"product_id"`
	Sku                 string `json:"sku"`
	Price               string `json:"price"`
	InventoryItemID     int64  `json:"inventory_item_id"`
	InventoryQuantity   int64  `json:"inventory_quantity"`
	InventoryManagement string `json:"inventory_management"`
}

type shopifyLocationsEnvelope struct {
	Locations []shopifyLocation `json:"locations"`
}

type shopifyLocation struct {
	ID     int64 `json:"id"`
	Active bool  `json:"active"`
}

type shopifyInventoryLevelRequest struct {
	LocationID      int64 `json:"location_id"`
	InventoryItemID int64 `json:"inventory_item_id"`
	Available       int64 `json:"available"`
}

type shopifyErrorEnvelope struct {
	Errors any `json:"errors"`
}
