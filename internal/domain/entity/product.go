package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MainStoreID identificador de ubicación para el pool principal de la tienda (sin sucursal).
const MainStoreID = "none"

// IsMainStore indica si el id de ubicación apunta al pool principal.
func IsMainStore(branchID string) bool {
	return branchID == "" || branchID == MainStoreID
}

// LocationLabel texto legible de una ubicación del ledger.
func LocationLabel(branchID string) string {
	if IsMainStore(branchID) {
		return "el almacén principal"
	}
	return "la sucursal " + branchID
}

// Product representa un producto del catálogo de una tienda.
// Stock es el pool principal; el stock por sucursal vive en BranchStock.
type Product struct {
	ID              string
	ShopID          string
	Name            string
	SKU             string
	Barcode         string
	Description     string
	UnitCost        decimal.Decimal // costo promedio ponderado
	UnitPrice       decimal.Decimal
	Stock           int
	ReorderPoint    int
	ReorderQuantity int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BranchStock entrada del ledger para un producto en una sucursal.
// Si no existe, el stock efectivo de la sucursal es el pool principal del producto.
type BranchStock struct {
	ShopID          string
	ProductID       string
	BranchID        string
	Quantity        int
	ReorderPoint    int
	ReorderQuantity int
	LastRestockDate *time.Time
	UpdatedAt       time.Time
}
