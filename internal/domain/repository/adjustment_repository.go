package repository

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// AdjustmentFilter filtros para listar ajustes.
type AdjustmentFilter struct {
	ProductID string
	BranchID  string
	Reference string
	Reason    entity.AdjustmentReason
	Limit     int
	Offset    int
}

// AdjustmentRepository log append-only de ajustes de stock. No expone Update ni Delete.
type AdjustmentRepository interface {
	Append(ctx context.Context, adj *entity.StockAdjustment) error
	List(ctx context.Context, shopID string, f AdjustmentFilter) ([]*entity.StockAdjustment, error)
}
