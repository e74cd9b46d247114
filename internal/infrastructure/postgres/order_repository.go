package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

const orderColumns = `id, shop_id, order_number, branch_id, cashier_id, items, payments, total, status,
	stock_warnings, void_reason, voided_by, voided_at, created_at, updated_at`

// OrderRepo órdenes de venta sobre PostgreSQL. Líneas, pagos y avisos en JSONB.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

func (r *OrderRepo) Create(ctx context.Context, o *entity.Order) error {
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		o.ID, o.ShopID, o.OrderNumber, o.BranchID, o.CashierID, jsonList(o.Items), jsonList(o.Payments),
		o.Total, string(o.Status), jsonList(o.StockWarnings), o.VoidReason, o.VoidedBy, o.VoidedAt,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (r *OrderRepo) GetByID(ctx context.Context, shopID, id string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND shop_id = $2`
	var o entity.Order
	var status string
	err := r.q.QueryRow(ctx, query, id, shopID).Scan(
		&o.ID, &o.ShopID, &o.OrderNumber, &o.BranchID, &o.CashierID, &o.Items, &o.Payments, &o.Total, &status,
		&o.StockWarnings, &o.VoidReason, &o.VoidedBy, &o.VoidedAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.Status = entity.OrderStatus(status)
	return &o, nil
}

// AppendWarning agrega un aviso de inventario sin tocar el resto de la orden.
func (r *OrderRepo) AppendWarning(ctx context.Context, shopID, orderID, warning string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET stock_warnings = stock_warnings || jsonb_build_array($3::text), updated_at = now()
		WHERE id = $1 AND shop_id = $2`,
		orderID, shopID, warning)
	if err != nil {
		return fmt.Errorf("append order warning: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("orden", orderID)
	}
	return nil
}

func (r *OrderRepo) UpdateIfStatus(ctx context.Context, o *entity.Order, fromStatus entity.OrderStatus) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE orders SET status = $4, void_reason = $5, voided_by = $6, voided_at = $7, updated_at = $8
		WHERE id = $1 AND shop_id = $2 AND status = $3`,
		o.ID, o.ShopID, string(fromStatus), string(o.Status), o.VoidReason, o.VoidedBy, o.VoidedAt, o.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("update order: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SumPayments suma en SQL los pagos del método sobre las órdenes del rango [from, to).
func (r *OrderRepo) SumPayments(ctx context.Context, shopID, branchID string, method entity.PaymentMethod, statuses []entity.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	var total decimal.Decimal
	err := r.q.QueryRow(ctx, `
		SELECT COALESCE(SUM((p->>'amount')::numeric), 0)
		FROM orders o, jsonb_array_elements(o.payments) p
		WHERE o.shop_id = $1
		  AND ($2 = '' OR o.branch_id = $2)
		  AND o.status = ANY($3)
		  AND o.created_at >= $4 AND o.created_at < $5
		  AND p->>'method' = $6`,
		shopID, branchID, names, from, to, string(method)).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum payments: %w", err)
	}
	return total, nil
}
