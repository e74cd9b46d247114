package memory

import (
	"context"
	"sort"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo ledger en memoria: pool principal en Product.Stock y sucursales en branchStock.
type LedgerRepo struct {
	base
}

// NewLedgerRepository construye el adaptador.
func NewLedgerRepository(s *Store) *LedgerRepo {
	return &LedgerRepo{base: base{s: s}}
}

func (r *LedgerRepo) product(key repository.StockKey) (*entity.Product, error) {
	p, ok := r.s.products[key.ProductID]
	if !ok || p.ShopID != key.ShopID {
		return nil, domain.NewNotFoundError("producto", key.ProductID)
	}
	return p, nil
}

func (r *LedgerRepo) GetStock(_ context.Context, key repository.StockKey) (int, error) {
	defer r.lock()()
	p, err := r.product(key)
	if err != nil {
		return 0, err
	}
	if entity.IsMainStore(key.BranchID) {
		return p.Stock, nil
	}
	if bs, ok := r.s.branchStock[stockKey{key.ProductID, key.BranchID}]; ok {
		return bs.Quantity, nil
	}
	return p.Stock, nil
}

func (r *LedgerRepo) ApplyDelta(_ context.Context, key repository.StockKey, delta int, allowNegative bool) (repository.LedgerResult, error) {
	defer r.lock()()
	p, err := r.product(key)
	if err != nil {
		return repository.LedgerResult{}, err
	}

	if entity.IsMainStore(key.BranchID) {
		prev := p.Stock
		next := prev + delta
		if next < 0 && !allowNegative {
			return repository.LedgerResult{}, shortfall(p, key.BranchID, prev, -delta)
		}
		p.Stock = next
		r.tx.onRollback(func() { p.Stock = prev })
		return repository.LedgerResult{Previous: prev, Current: next, Negative: next < 0}, nil
	}

	sk := stockKey{key.ProductID, key.BranchID}
	bs, exists := r.s.branchStock[sk]
	prev := p.Stock
	if exists {
		prev = bs.Quantity
	}
	next := prev + delta
	if next < 0 && !allowNegative {
		return repository.LedgerResult{}, shortfall(p, key.BranchID, prev, -delta)
	}
	if !exists {
		bs = r.seed(p, key.BranchID)
	}
	bs.Quantity = next
	bs.UpdatedAt = time.Now()
	if exists {
		r.tx.onRollback(func() { bs.Quantity = prev })
	}
	return repository.LedgerResult{Previous: prev, Current: next, Negative: next < 0}, nil
}

// seed crea la entrada de sucursal partiendo del pool principal actual.
func (r *LedgerRepo) seed(p *entity.Product, branchID string) *entity.BranchStock {
	sk := stockKey{p.ID, branchID}
	bs := &entity.BranchStock{
		ShopID:          p.ShopID,
		ProductID:       p.ID,
		BranchID:        branchID,
		Quantity:        p.Stock,
		ReorderPoint:    p.ReorderPoint,
		ReorderQuantity: p.ReorderQuantity,
		UpdatedAt:       time.Now(),
	}
	r.s.branchStock[sk] = bs
	r.tx.onRollback(func() { delete(r.s.branchStock, sk) })
	return bs
}

func (r *LedgerRepo) GetBranchStock(_ context.Context, key repository.StockKey) (*entity.BranchStock, error) {
	defer r.lock()()
	if _, err := r.product(key); err != nil {
		return nil, err
	}
	bs, ok := r.s.branchStock[stockKey{key.ProductID, key.BranchID}]
	if !ok {
		return nil, nil
	}
	c := *bs
	return &c, nil
}

func (r *LedgerRepo) SetReorderSettings(_ context.Context, key repository.StockKey, reorderPoint, reorderQuantity int) error {
	defer r.lock()()
	p, err := r.product(key)
	if err != nil {
		return err
	}
	if entity.IsMainStore(key.BranchID) {
		prevPoint, prevQty := p.ReorderPoint, p.ReorderQuantity
		p.ReorderPoint, p.ReorderQuantity = reorderPoint, reorderQuantity
		r.tx.onRollback(func() { p.ReorderPoint, p.ReorderQuantity = prevPoint, prevQty })
		return nil
	}
	bs, ok := r.s.branchStock[stockKey{key.ProductID, key.BranchID}]
	if !ok {
		bs = r.seed(p, key.BranchID)
	}
	prevPoint, prevQty := bs.ReorderPoint, bs.ReorderQuantity
	bs.ReorderPoint, bs.ReorderQuantity = reorderPoint, reorderQuantity
	r.tx.onRollback(func() { bs.ReorderPoint, bs.ReorderQuantity = prevPoint, prevQty })
	return nil
}

func (r *LedgerRepo) MarkRestocked(_ context.Context, key repository.StockKey, at time.Time) error {
	defer r.lock()()
	p, err := r.product(key)
	if err != nil {
		return err
	}
	if entity.IsMainStore(key.BranchID) {
		return nil
	}
	bs, ok := r.s.branchStock[stockKey{key.ProductID, key.BranchID}]
	if !ok {
		bs = r.seed(p, key.BranchID)
	}
	prev := bs.LastRestockDate
	t := at
	bs.LastRestockDate = &t
	r.tx.onRollback(func() { bs.LastRestockDate = prev })
	return nil
}

func (r *LedgerRepo) ListBelowReorderPoint(_ context.Context, shopID, branchID string) ([]repository.LowStockItem, error) {
	defer r.lock()()
	var out []repository.LowStockItem
	for _, p := range r.s.products {
		if p.ShopID != shopID {
			continue
		}
		item := repository.LowStockItem{
			ProductID:       p.ID,
			Name:            p.Name,
			SKU:             p.SKU,
			BranchID:        entity.MainStoreID,
			Stock:           p.Stock,
			ReorderPoint:    p.ReorderPoint,
			ReorderQuantity: p.ReorderQuantity,
			UnitCost:        p.UnitCost,
		}
		if !entity.IsMainStore(branchID) {
			item.BranchID = branchID
			if bs, ok := r.s.branchStock[stockKey{p.ID, branchID}]; ok {
				item.Stock = bs.Quantity
				item.ReorderPoint = bs.ReorderPoint
				item.ReorderQuantity = bs.ReorderQuantity
			}
		}
		if item.ReorderPoint > 0 && item.Stock <= item.ReorderPoint {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func shortfall(p *entity.Product, branchID string, available, requested int) error {
	return &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{{
		ProductID: p.ID,
		Name:      p.Name,
		Location:  entity.LocationLabel(branchID),
		Available: available,
		Requested: requested,
	}}}
}
