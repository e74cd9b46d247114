package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto. InitialStock carga el pool principal.
type CreateProductRequest struct {
	SKU             string          `json:"sku" validate:"required,min=1,max=100"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name" validate:"required,min=1,max=200"`
	Description     string          `json:"description"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	InitialStock    int             `json:"initial_stock"`
	ReorderPoint    int             `json:"reorder_point"`
	ReorderQuantity int             `json:"reorder_quantity"`
}

// UpdateProductRequest entrada para actualizar un producto (sin costo ni stock: esos cambian vía ajustes).
type UpdateProductRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Barcode         *string          `json:"barcode"`
	Description     *string          `json:"description"`
	UnitPrice       *decimal.Decimal `json:"unit_price"`
	ReorderPoint    *int             `json:"reorder_point"`
	ReorderQuantity *int             `json:"reorder_quantity"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID              string          `json:"id"`
	ShopID          string          `json:"shop_id"`
	SKU             string          `json:"sku"`
	Barcode         string          `json:"barcode"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Stock           int             `json:"stock"`
	ReorderPoint    int             `json:"reorder_point"`
	ReorderQuantity int             `json:"reorder_quantity"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
