package memory

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo log append-only en memoria.
type AdjustmentRepo struct {
	base
}

// NewAdjustmentRepository construye el adaptador.
func NewAdjustmentRepository(s *Store) *AdjustmentRepo {
	return &AdjustmentRepo{base: base{s: s}}
}

func (r *AdjustmentRepo) Append(_ context.Context, adj *entity.StockAdjustment) error {
	defer r.lock()()
	c := *adj
	n := len(r.s.adjustments)
	r.s.adjustments = append(r.s.adjustments, &c)
	r.tx.onRollback(func() { r.s.adjustments = r.s.adjustments[:n] })
	return nil
}

// List devuelve los ajustes más recientes primero.
func (r *AdjustmentRepo) List(_ context.Context, shopID string, f repository.AdjustmentFilter) ([]*entity.StockAdjustment, error) {
	defer r.lock()()
	var all []*entity.StockAdjustment
	for i := len(r.s.adjustments) - 1; i >= 0; i-- {
		a := r.s.adjustments[i]
		if a.ShopID != shopID ||
			(f.ProductID != "" && a.ProductID != f.ProductID) ||
			(f.BranchID != "" && a.BranchID != f.BranchID) ||
			(f.Reference != "" && a.Reference != f.Reference) ||
			(f.Reason != "" && a.Reason != f.Reason) {
			continue
		}
		c := *a
		all = append(all, &c)
	}
	from, to := page(len(all), f.Limit, f.Offset)
	return all[from:to], nil
}
