package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.BranchRepository = (*BranchRepo)(nil)

// BranchRepo implementación de BranchRepository sobre PostgreSQL.
type BranchRepo struct {
	q Querier
}

// NewBranchRepository construye el adaptador.
func NewBranchRepository(q Querier) *BranchRepo {
	return &BranchRepo{q: q}
}

func (r *BranchRepo) Create(ctx context.Context, b *entity.Branch) error {
	query := `
		INSERT INTO branches (id, shop_id, code, name, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query, b.ID, b.ShopID, b.Code, b.Name, b.Address, b.Active, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert branch: %w", err)
	}
	return nil
}

func (r *BranchRepo) GetByID(ctx context.Context, shopID, id string) (*entity.Branch, error) {
	query := `
		SELECT id, shop_id, code, name, address, active, created_at, updated_at
		FROM branches WHERE id = $1 AND shop_id = $2`
	var b entity.Branch
	err := r.q.QueryRow(ctx, query, id, shopID).Scan(
		&b.ID, &b.ShopID, &b.Code, &b.Name, &b.Address, &b.Active, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get branch: %w", err)
	}
	return &b, nil
}

func (r *BranchRepo) Update(ctx context.Context, b *entity.Branch) error {
	query := `
		UPDATE branches SET code = $3, name = $4, address = $5, active = $6, updated_at = $7
		WHERE id = $1 AND shop_id = $2`
	tag, err := r.q.Exec(ctx, query, b.ID, b.ShopID, b.Code, b.Name, b.Address, b.Active, b.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("sucursal", b.ID)
	}
	return nil
}

func (r *BranchRepo) List(ctx context.Context, shopID string, limit, offset int) ([]*entity.Branch, error) {
	query := `
		SELECT id, shop_id, code, name, address, active, created_at, updated_at
		FROM branches WHERE shop_id = $1 ORDER BY name LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Branch
	for rows.Next() {
		var b entity.Branch
		if err := rows.Scan(&b.ID, &b.ShopID, &b.Code, &b.Name, &b.Address, &b.Active, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan branch: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
