package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo transferencias en memoria.
type TransferRepo struct {
	base
}

// NewTransferRepository construye el adaptador.
func NewTransferRepository(s *Store) *TransferRepo {
	return &TransferRepo{base: base{s: s}}
}

func (r *TransferRepo) Create(_ context.Context, t *entity.StockTransfer) error {
	defer r.lock()()
	for _, existing := range r.s.transfers {
		if existing.ShopID == t.ShopID && existing.TransferNumber == t.TransferNumber {
			return domain.ErrDuplicate
		}
	}
	r.s.transfers[t.ID] = t.Clone()
	r.tx.onRollback(func() { delete(r.s.transfers, t.ID) })
	return nil
}

func (r *TransferRepo) GetByID(_ context.Context, shopID, id string) (*entity.StockTransfer, error) {
	defer r.lock()()
	t, ok := r.s.transfers[id]
	if !ok || t.ShopID != shopID {
		return nil, nil
	}
	return t.Clone(), nil
}

func (r *TransferRepo) UpdateIfStatus(_ context.Context, t *entity.StockTransfer, fromStatus entity.TransferStatus, fromVersion int) (bool, error) {
	defer r.lock()()
	cur, ok := r.s.transfers[t.ID]
	if !ok || cur.ShopID != t.ShopID {
		return false, domain.NewNotFoundError("transferencia", t.ID)
	}
	if cur.Status != fromStatus || cur.Version != fromVersion {
		return false, nil
	}
	t.Version = fromVersion + 1
	r.s.transfers[t.ID] = t.Clone()
	r.tx.onRollback(func() { r.s.transfers[t.ID] = cur })
	return true, nil
}

func (r *TransferRepo) List(_ context.Context, shopID string, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	defer r.lock()()
	var all []*entity.StockTransfer
	for _, t := range r.s.transfers {
		if t.ShopID != shopID ||
			(f.Status != "" && t.Status != f.Status) ||
			(f.BranchID != "" && t.SourceLocation() != f.BranchID && t.DestinationLocation() != f.BranchID) {
			continue
		}
		all = append(all, t.Clone())
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	from, to := page(len(all), f.Limit, f.Offset)
	return all[from:to], nil
}

func (r *TransferRepo) ListInTransitSince(_ context.Context, shopID string, shippedBefore time.Time) ([]*entity.StockTransfer, error) {
	defer r.lock()()
	var out []*entity.StockTransfer
	for _, t := range r.s.transfers {
		if t.ShopID != shopID || t.ShippedAt == nil || !t.ShippedAt.Before(shippedBefore) {
			continue
		}
		if t.Status == entity.TransferInTransit || t.Status == entity.TransferPartiallyReceived {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShippedAt.Before(*out[j].ShippedAt) })
	return out, nil
}
