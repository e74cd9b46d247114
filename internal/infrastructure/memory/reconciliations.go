package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.ReconciliationRepository = (*ReconciliationRepo)(nil)

// ReconciliationRepo conciliaciones en memoria.
type ReconciliationRepo struct {
	base
}

// NewReconciliationRepository construye el adaptador.
func NewReconciliationRepository(s *Store) *ReconciliationRepo {
	return &ReconciliationRepo{base: base{s: s}}
}

func (r *ReconciliationRepo) Create(_ context.Context, rec *entity.Reconciliation) error {
	defer r.lock()()
	if rec.Type == entity.ReconciliationCash {
		for _, existing := range r.s.reconciliations {
			if existing.ShopID == rec.ShopID && existing.Type == rec.Type &&
				existing.BranchID == rec.BranchID && existing.Date.Equal(rec.Date) {
				return domain.ErrDuplicate
			}
		}
	}
	r.s.reconciliations[rec.ID] = rec.Clone()
	r.tx.onRollback(func() { delete(r.s.reconciliations, rec.ID) })
	return nil
}

func (r *ReconciliationRepo) GetByID(_ context.Context, shopID, id string) (*entity.Reconciliation, error) {
	defer r.lock()()
	rec, ok := r.s.reconciliations[id]
	if !ok || rec.ShopID != shopID {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (r *ReconciliationRepo) AppendVariance(_ context.Context, shopID, id string, v entity.VarianceRecord, at time.Time) (*entity.Reconciliation, error) {
	defer r.lock()()
	cur, ok := r.s.reconciliations[id]
	if !ok || cur.ShopID != shopID {
		return nil, nil
	}
	next := cur.Clone()
	next.Variances = append(next.Variances, v)
	next.UpdatedAt = at
	r.s.reconciliations[id] = next
	r.tx.onRollback(func() { r.s.reconciliations[id] = cur })
	return next.Clone(), nil
}

func (r *ReconciliationRepo) Approve(_ context.Context, shopID, id, approvedBy string, at time.Time) (*entity.Reconciliation, error) {
	defer r.lock()()
	cur, ok := r.s.reconciliations[id]
	if !ok || cur.ShopID != shopID || cur.ApprovedBy != "" {
		return nil, nil
	}
	next := cur.Clone()
	t := at
	next.ApprovedBy = approvedBy
	next.ApprovalTime = &t
	next.Status = entity.ReconciliationReconciled
	next.UpdatedAt = at
	r.s.reconciliations[id] = next
	r.tx.onRollback(func() { r.s.reconciliations[id] = cur })
	return next.Clone(), nil
}

func (r *ReconciliationRepo) List(_ context.Context, shopID string, f repository.ReconciliationFilter) ([]*entity.Reconciliation, error) {
	defer r.lock()()
	var all []*entity.Reconciliation
	for _, rec := range r.s.reconciliations {
		if rec.ShopID != shopID || (f.Type != "" && rec.Type != f.Type) {
			continue
		}
		if !f.From.IsZero() && rec.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Date.After(f.To) {
			continue
		}
		all = append(all, rec.Clone())
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date.Equal(all[j].Date) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Date.After(all[j].Date)
	})
	from, to := page(len(all), f.Limit, f.Offset)
	return all[from:to], nil
}
