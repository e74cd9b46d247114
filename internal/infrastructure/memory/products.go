package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo productos en memoria.
type ProductRepo struct {
	base
}

// NewProductRepository construye el adaptador.
func NewProductRepository(s *Store) *ProductRepo {
	return &ProductRepo{base: base{s: s}}
}

func (r *ProductRepo) Create(_ context.Context, p *entity.Product) error {
	defer r.lock()()
	for _, existing := range r.s.products {
		if existing.ShopID == p.ShopID && existing.SKU == p.SKU {
			return domain.ErrDuplicate
		}
	}
	c := *p
	r.s.products[p.ID] = &c
	r.tx.onRollback(func() { delete(r.s.products, p.ID) })
	return nil
}

func (r *ProductRepo) GetByID(_ context.Context, shopID, id string) (*entity.Product, error) {
	defer r.lock()()
	p, ok := r.s.products[id]
	if !ok || p.ShopID != shopID {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *ProductRepo) GetBySKU(_ context.Context, shopID, sku string) (*entity.Product, error) {
	defer r.lock()()
	for _, p := range r.s.products {
		if p.ShopID == shopID && p.SKU == sku {
			c := *p
			return &c, nil
		}
	}
	return nil, nil
}

// Update no toca Stock ni UnitCost: esos solo cambian por el ledger y UpdateUnitCost.
func (r *ProductRepo) Update(_ context.Context, p *entity.Product) error {
	defer r.lock()()
	cur, ok := r.s.products[p.ID]
	if !ok || cur.ShopID != p.ShopID {
		return domain.NewNotFoundError("producto", p.ID)
	}
	prev := *cur
	cur.Name = p.Name
	cur.Barcode = p.Barcode
	cur.Description = p.Description
	cur.UnitPrice = p.UnitPrice
	cur.ReorderPoint = p.ReorderPoint
	cur.ReorderQuantity = p.ReorderQuantity
	cur.UpdatedAt = p.UpdatedAt
	r.tx.onRollback(func() { *cur = prev })
	return nil
}

func (r *ProductRepo) UpdateUnitCost(_ context.Context, shopID, id string, cost decimal.Decimal) error {
	defer r.lock()()
	cur, ok := r.s.products[id]
	if !ok || cur.ShopID != shopID {
		return domain.NewNotFoundError("producto", id)
	}
	prev, prevAt := cur.UnitCost, cur.UpdatedAt
	cur.UnitCost = cost
	cur.UpdatedAt = time.Now()
	r.tx.onRollback(func() { cur.UnitCost, cur.UpdatedAt = prev, prevAt })
	return nil
}

func (r *ProductRepo) List(_ context.Context, shopID string, limit, offset int) ([]*entity.Product, error) {
	defer r.lock()()
	var all []*entity.Product
	for _, p := range r.s.products {
		if p.ShopID == shopID {
			c := *p
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	from, to := page(len(all), limit, offset)
	return all[from:to], nil
}
