package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo órdenes en memoria.
type OrderRepo struct {
	base
}

// NewOrderRepository construye el adaptador.
func NewOrderRepository(s *Store) *OrderRepo {
	return &OrderRepo{base: base{s: s}}
}

func (r *OrderRepo) Create(_ context.Context, o *entity.Order) error {
	defer r.lock()()
	for _, existing := range r.s.orders {
		if existing.ShopID == o.ShopID && existing.OrderNumber == o.OrderNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.orders[o.ID] = o.Clone()
	r.tx.onRollback(func() { delete(r.s.orders, o.ID) })
	return nil
}

func (r *OrderRepo) GetByID(_ context.Context, shopID, id string) (*entity.Order, error) {
	defer r.lock()()
	o, ok := r.s.orders[id]
	if !ok || o.ShopID != shopID {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r *OrderRepo) AppendWarning(_ context.Context, shopID, orderID, warning string) error {
	defer r.lock()()
	o, ok := r.s.orders[orderID]
	if !ok || o.ShopID != shopID {
		return domain.NewNotFoundError("orden", orderID)
	}
	prev := o.Clone()
	o.StockWarnings = append(o.StockWarnings, warning)
	o.UpdatedAt = time.Now()
	r.tx.onRollback(func() { r.s.orders[orderID] = prev })
	return nil
}

func (r *OrderRepo) UpdateIfStatus(_ context.Context, o *entity.Order, fromStatus entity.OrderStatus) (bool, error) {
	defer r.lock()()
	cur, ok := r.s.orders[o.ID]
	if !ok || cur.ShopID != o.ShopID {
		return false, domain.NewNotFoundError("orden", o.ID)
	}
	if cur.Status != fromStatus {
		return false, nil
	}
	next := cur.Clone()
	next.Status = o.Status
	next.VoidReason = o.VoidReason
	next.VoidedBy = o.VoidedBy
	next.VoidedAt = o.VoidedAt
	next.UpdatedAt = o.UpdatedAt
	r.s.orders[o.ID] = next
	r.tx.onRollback(func() { r.s.orders[o.ID] = cur })
	return true, nil
}

func (r *OrderRepo) SumPayments(_ context.Context, shopID, branchID string, method entity.PaymentMethod, statuses []entity.OrderStatus, from, to time.Time) (decimal.Decimal, error) {
	defer r.lock()()
	total := decimal.Zero
	for _, o := range r.s.orders {
		if o.ShopID != shopID || o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		if branchID != "" && o.BranchID != branchID {
			continue
		}
		if !hasStatus(statuses, o.Status) {
			continue
		}
		total = total.Add(o.PaidWith(method))
	}
	return total, nil
}

func hasStatus(statuses []entity.OrderStatus, s entity.OrderStatus) bool {
	for _, v := range statuses {
		if v == s {
			return true
		}
	}
	return false
}
