package repository

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// OrderRepository persistencia de órdenes de venta.
type OrderRepository interface {
	// Create falla con domain.ErrDuplicate si el número de orden ya existe en la tienda.
	Create(ctx context.Context, o *entity.Order) error
	GetByID(ctx context.Context, shopID, id string) (*entity.Order, error)
	AppendWarning(ctx context.Context, shopID, orderID, warning string) error
	// UpdateIfStatus guarda el estado de anulación solo si la orden sigue en fromStatus.
	UpdateIfStatus(ctx context.Context, o *entity.Order, fromStatus entity.OrderStatus) (bool, error)
	// SumPayments suma pagos del método dado en órdenes con alguno de los estados, creadas en [from, to).
	SumPayments(ctx context.Context, shopID, branchID string, method entity.PaymentMethod, statuses []entity.OrderStatus, from, to time.Time) (decimal.Decimal, error)
}
