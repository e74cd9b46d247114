package postgres

import (
	"context"
	"fmt"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo log append-only de ajustes (stock_adjustments). Solo INSERT y SELECT.
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

func (r *AdjustmentRepo) Append(ctx context.Context, a *entity.StockAdjustment) error {
	query := `
		INSERT INTO stock_adjustments (id, shop_id, product_id, branch_id, quantity_change, quantity_before,
			quantity_after, reason, actor_id, reference, notes, negative_stock, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		a.ID, a.ShopID, a.ProductID, a.BranchID, a.QuantityChange, a.QuantityBefore,
		a.QuantityAfter, string(a.Reason), a.ActorID, a.Reference, a.Notes, a.NegativeStock, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	return nil
}

// List ajustes de la tienda con filtros opcionales, más recientes primero.
func (r *AdjustmentRepo) List(ctx context.Context, shopID string, f repository.AdjustmentFilter) ([]*entity.StockAdjustment, error) {
	query := `
		SELECT id, shop_id, product_id, branch_id, quantity_change, quantity_before, quantity_after,
			reason, actor_id, reference, notes, negative_stock, created_at
		FROM stock_adjustments WHERE shop_id = $1`
	args := []any{shopID}
	pos := 2
	add := func(column string, value any) {
		query += fmt.Sprintf(" AND %s = $%d", column, pos)
		args = append(args, value)
		pos++
	}
	if f.ProductID != "" {
		add("product_id", f.ProductID)
	}
	if f.BranchID != "" {
		add("branch_id", f.BranchID)
	}
	if f.Reference != "" {
		add("reference", f.Reference)
	}
	if f.Reason != "" {
		add("reason", string(f.Reason))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockAdjustment
	for rows.Next() {
		var a entity.StockAdjustment
		var reason string
		if err := rows.Scan(&a.ID, &a.ShopID, &a.ProductID, &a.BranchID, &a.QuantityChange, &a.QuantityBefore,
			&a.QuantityAfter, &reason, &a.ActorID, &a.Reference, &a.Notes, &a.NegativeStock, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		a.Reason = entity.AdjustmentReason(reason)
		list = append(list, &a)
	}
	return list, rows.Err()
}
