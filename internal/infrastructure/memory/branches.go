package memory

import (
	"context"
	"sort"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.BranchRepository = (*BranchRepo)(nil)

// BranchRepo sucursales en memoria.
type BranchRepo struct {
	base
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(s *Store) *BranchRepo {
	return &BranchRepo{base: base{s: s}}
}

func (r *BranchRepo) Create(_ context.Context, b *entity.Branch) error {
	defer r.lock()()
	if b.Code != "" {
		for _, existing := range r.s.branches {
			if existing.ShopID == b.ShopID && existing.Code == b.Code {
				return domain.ErrDuplicate
			}
		}
	}
	c := *b
	r.s.branches[b.ID] = &c
	return nil
}

func (r *BranchRepo) GetByID(_ context.Context, shopID, id string) (*entity.Branch, error) {
	defer r.lock()()
	b, ok := r.s.branches[id]
	if !ok || b.ShopID != shopID {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *BranchRepo) Update(_ context.Context, b *entity.Branch) error {
	defer r.lock()()
	cur, ok := r.s.branches[b.ID]
	if !ok || cur.ShopID != b.ShopID {
		return domain.NewNotFoundError("sucursal", b.ID)
	}
	c := *b
	r.s.branches[b.ID] = &c
	return nil
}

func (r *BranchRepo) List(_ context.Context, shopID string, limit, offset int) ([]*entity.Branch, error) {
	defer r.lock()()
	var all []*entity.Branch
	for _, b := range r.s.branches {
		if b.ShopID == shopID {
			c := *b
			all = append(all, &c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	from, to := page(len(all), limit, offset)
	return all[from:to], nil
}
