package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus estado de una orden de venta.
type OrderStatus string

const (
	OrderCompleted OrderStatus = "completed"
	OrderPartial   OrderStatus = "partial" // pago parcial (crédito o abono)
	OrderVoid      OrderStatus = "void"
)

// PaymentMethod medio de pago.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentMpesa  PaymentMethod = "mpesa"
	PaymentCard   PaymentMethod = "card"
	PaymentCredit PaymentMethod = "credit"
	PaymentOther  PaymentMethod = "other"
)

// Valid indica si el medio de pago es conocido.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentMpesa, PaymentCard, PaymentCredit, PaymentOther:
		return true
	}
	return false
}

// OrderItem línea de una orden.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Payment pago aplicado a la orden.
type Payment struct {
	Method PaymentMethod   `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// Order venta capturada en caja. Una vez persistida no se revierte por fallas de inventario;
// esas fallas se anotan en StockWarnings.
type Order struct {
	ID            string
	ShopID        string
	OrderNumber   string
	BranchID      string
	CashierID     string
	Items         []OrderItem
	Payments      []Payment
	Total         decimal.Decimal
	Status        OrderStatus
	StockWarnings []string
	VoidReason    string
	VoidedBy      string
	VoidedAt      *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaidWith suma los pagos con el método indicado.
func (o *Order) PaidWith(method PaymentMethod) decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Payments {
		if p.Method == method {
			total = total.Add(p.Amount)
		}
	}
	return total
}

// Clone copia profunda.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	c.Payments = append([]Payment(nil), o.Payments...)
	c.StockWarnings = append([]string(nil), o.StockWarnings...)
	c.VoidedAt = cloneTime(o.VoidedAt)
	return &c
}
