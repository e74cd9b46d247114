package repository

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockKey clave del ledger. BranchID vacío o entity.MainStoreID apunta al pool principal.
type StockKey struct {
	ShopID    string
	ProductID string
	BranchID  string
}

// LedgerResult resultado de aplicar un delta.
type LedgerResult struct {
	Previous int
	Current  int
	Negative bool // el stock quedó por debajo de cero (solo con política allow)
}

// LowStockItem producto en o por debajo de su punto de reorden en una ubicación.
type LowStockItem struct {
	ProductID       string
	Name            string
	SKU             string
	BranchID        string
	Stock           int
	ReorderPoint    int
	ReorderQuantity int
	UnitCost        decimal.Decimal
}

// LedgerRepository almacén del stock por (tienda, producto, sucursal | principal).
// ApplyDelta es atómico por clave: se implementa como incremento condicional en el almacén,
// nunca como lectura + escritura desde la aplicación.
type LedgerRepository interface {
	GetStock(ctx context.Context, key StockKey) (int, error)
	// ApplyDelta suma delta al stock. Con allowNegative=false rechaza con
	// *domain.InsufficientStockError si el resultado sería negativo. La primera escritura
	// sobre una sucursal sin entrada parte del valor actual del pool principal.
	ApplyDelta(ctx context.Context, key StockKey, delta int, allowNegative bool) (LedgerResult, error)
	GetBranchStock(ctx context.Context, key StockKey) (*entity.BranchStock, error)
	// SetReorderSettings fija punto y cantidad de reorden de una sucursal (sembrando la entrada si no existe).
	SetReorderSettings(ctx context.Context, key StockKey, reorderPoint, reorderQuantity int) error
	MarkRestocked(ctx context.Context, key StockKey, at time.Time) error
	ListBelowReorderPoint(ctx context.Context, shopID, branchID string) ([]LowStockItem, error)
}
