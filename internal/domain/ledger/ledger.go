// Package ledger defines the port to the external ERP system of record for
// true stock quantities. Concrete clients live in the infrastructure layer.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrProductNotFound indicates the ledger has no product for the SKU
	ErrProductNotFound = errors.New("ledger: product not found")
	// ErrMovementConflict indicates the ledger already holds an equivalent
	// movement (HTTP 409). Callers must treat this as success: the movement
	// is semantically idempotent from the ledger's point of view.
	ErrMovementConflict = errors.New("ledger: movement already exists")
	// ErrUnavailable indicates the ledger could not be reached
	ErrUnavailable = errors.New("ledger: temporarily unavailable")
)

// MovementKind is the ledger-side direction of a stock movement
type MovementKind string

const (
	// MovementKindDebit decreases ledger stock
	MovementKindDebit MovementKind = "DEBIT"
	// MovementKindCredit increases ledger stock
	MovementKindCredit MovementKind = "CREDIT"
)

// MovementRequest describes one stock movement to post to the ledger
type MovementRequest struct {
	Kind        MovementKind
	WarehouseID string
	Sku         string
	Quantity    int64
	// ReferenceID ties the movement back to the originating storefront order
	ReferenceID string
	Note        string
}

// Ledger is the thin typed port over the abstract ERP ledger
type Ledger interface {
	// FindProductIDBySku resolves a SKU to the ledger product ID.
	// Returns ErrProductNotFound when the ledger has no such product.
	FindProductIDBySku(ctx context.Context, sku string) (string, error)

	// GetStock reads the current quantity for a product. When warehouseID is
	// non-empty the read is scoped to that warehouse, otherwise it is global.
	GetStock(ctx context.Context, productID, sku, warehouseID string) (int64, error)

	// PostMovement posts a debit or credit movement and returns the ledger
	// movement ID. A conflict response surfaces as ErrMovementConflict.
	PostMovement(ctx context.Context, req MovementRequest) (string, error)
}
