package dto

import (
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/shopspring/decimal"
)

// CheckoutItemRequest línea vendida.
type CheckoutItemRequest struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PaymentRequest pago recibido.
type PaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// CheckoutRequest body para POST /api/checkout.
type CheckoutRequest struct {
	OrderReference string                `json:"order_reference"`
	BranchID       string                `json:"branch_id"`
	Items          []CheckoutItemRequest `json:"items"`
	Payments       []PaymentRequest      `json:"payments"`
	Status         string                `json:"status"` // completed (por defecto) | partial
}

// LineOutcome resultado del descuento de una línea.
type LineOutcome struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"` // applied | pending | failed
	Error     string `json:"error,omitempty"`
}

// CheckoutResponse resultado de la venta. Success=false solo con faltantes de stock.
type CheckoutResponse struct {
	Success       bool               `json:"success"`
	OrderID       string             `json:"order_id,omitempty"`
	OrderNumber   string             `json:"order_number,omitempty"`
	Shortfalls    []domain.Shortfall `json:"shortfalls,omitempty"`
	Lines         []LineOutcome      `json:"lines,omitempty"`
	StockWarnings []string           `json:"stock_warnings,omitempty"`
}

// VoidOrderRequest body para POST /api/orders/:id/void.
type VoidOrderRequest struct {
	Reason string `json:"reason"`
}

// OrderResponse proyección de una orden.
type OrderResponse struct {
	ID            string                `json:"id"`
	OrderNumber   string                `json:"order_number"`
	BranchID      string                `json:"branch_id"`
	CashierID     string                `json:"cashier_id"`
	Items         []CheckoutItemRequest `json:"items"`
	Payments      []PaymentRequest      `json:"payments"`
	Total         decimal.Decimal       `json:"total"`
	Status        string                `json:"status"`
	StockWarnings []string              `json:"stock_warnings,omitempty"`
	VoidReason    string                `json:"void_reason,omitempty"`
	VoidedBy      string                `json:"voided_by,omitempty"`
	VoidedAt      *time.Time            `json:"voided_at,omitempty"`
	CreatedAt     time.Time             `json:"created_at"`
}

// DeductionJobResponse entrada de la cola de descuentos.
type DeductionJobResponse struct {
	ID            string     `json:"id"`
	OrderID       string     `json:"order_id"`
	OrderNumber   string     `json:"order_number"`
	ProductID     string     `json:"product_id"`
	BranchID      string     `json:"branch_id"`
	Quantity      int        `json:"quantity"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastError     string     `json:"last_error,omitempty"`
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	AppliedAt     *time.Time `json:"applied_at,omitempty"`
}
