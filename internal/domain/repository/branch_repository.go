package repository

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// BranchRepository define el puerto de persistencia para Branch (DIP).
type BranchRepository interface {
	Create(ctx context.Context, branch *entity.Branch) error
	GetByID(ctx context.Context, shopID, id string) (*entity.Branch, error)
	Update(ctx context.Context, branch *entity.Branch) error
	List(ctx context.Context, shopID string, limit, offset int) ([]*entity.Branch, error)
}
