package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockLevelResponse stock efectivo de un producto en una ubicación.
type StockLevelResponse struct {
	ProductID       string     `json:"product_id"`
	BranchID        string     `json:"branch_id"`
	Stock           int        `json:"stock"`
	FromMainPool    bool       `json:"from_main_pool"` // la sucursal no tiene entrada propia
	ReorderPoint    int        `json:"reorder_point"`
	ReorderQuantity int        `json:"reorder_quantity"`
	LastRestockDate *time.Time `json:"last_restock_date,omitempty"`
}

// AdjustStockRequest body para POST /api/inventory/adjustments.
type AdjustStockRequest struct {
	ProductID      string           `json:"product_id"`
	BranchID       string           `json:"branch_id,omitempty"`
	QuantityChange int              `json:"quantity_change"`
	Reason         string           `json:"reason"`
	Notes          string           `json:"notes"`
	Reference      string           `json:"reference"`
	UnitCost       *decimal.Decimal `json:"unit_cost,omitempty"` // solo purchase_received
}

// AdjustmentResponse salida de un ajuste de stock.
type AdjustmentResponse struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	BranchID       string    `json:"branch_id"`
	QuantityChange int       `json:"quantity_change"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason"`
	ActorID        string    `json:"actor_id"`
	Reference      string    `json:"reference"`
	Notes          string    `json:"notes"`
	NegativeStock  bool      `json:"negative_stock,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AdjustmentListResponse lista paginada de ajustes.
type AdjustmentListResponse struct {
	Items []AdjustmentResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}

// ReorderSettingsRequest body para PUT /api/inventory/stock/:product_id/settings.
type ReorderSettingsRequest struct {
	BranchID        string `json:"branch_id"`
	ReorderPoint    int    `json:"reorder_point"`
	ReorderQuantity int    `json:"reorder_quantity"`
}

// ReplenishmentSuggestionDTO sugerencia de reposición para un SKU en o por debajo de su punto de reorden.
type ReplenishmentSuggestionDTO struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	ProductName        string          `json:"product_name"`
	BranchID           string          `json:"branch_id"`
	CurrentStock       int             `json:"current_stock"`
	ReorderPoint       int             `json:"reorder_point"`
	SuggestedOrderQty  int             `json:"suggested_order_qty"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}
