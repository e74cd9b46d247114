package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.ReconciliationRepository = (*ReconciliationRepo)(nil)

const reconciliationColumns = `id, shop_id, branch_id, type, date, expected_value, actual_value, variance,
	variance_percentage, status, variances, stock_lines, notes, reconciled_by, approved_by, approval_time,
	created_at, updated_at`

// ReconciliationRepo conciliaciones sobre PostgreSQL. El índice único parcial
// reconciliations_cash_day_uq impide dos conciliaciones de caja el mismo día.
type ReconciliationRepo struct {
	q Querier
}

// NewReconciliationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReconciliationRepository(q Querier) *ReconciliationRepo {
	return &ReconciliationRepo{q: q}
}

func (r *ReconciliationRepo) Create(ctx context.Context, rec *entity.Reconciliation) error {
	query := `
		INSERT INTO reconciliations (` + reconciliationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		rec.ID, rec.ShopID, rec.BranchID, string(rec.Type), rec.Date, rec.ExpectedValue, rec.ActualValue, rec.Variance,
		rec.VariancePercentage, string(rec.Status), jsonList(rec.Variances), jsonList(rec.StockLines), rec.Notes,
		rec.ReconciledBy, rec.ApprovedBy, rec.ApprovalTime, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert reconciliation: %w", err)
	}
	return nil
}

func (r *ReconciliationRepo) GetByID(ctx context.Context, shopID, id string) (*entity.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE id = $1 AND shop_id = $2`
	rec, err := scanReconciliation(r.q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reconciliation: %w", err)
	}
	return rec, nil
}

// AppendVariance concatena el registro al arreglo JSONB en la misma sentencia, así dos
// investigaciones concurrentes no se pisan.
func (r *ReconciliationRepo) AppendVariance(ctx context.Context, shopID, id string, v entity.VarianceRecord, at time.Time) (*entity.Reconciliation, error) {
	query := `
		UPDATE reconciliations SET variances = variances || $3::jsonb, updated_at = $4
		WHERE id = $1 AND shop_id = $2
		RETURNING ` + reconciliationColumns
	rec, err := scanReconciliation(r.q.QueryRow(ctx, query, id, shopID, []entity.VarianceRecord{v}, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("append reconciliation variance: %w", err)
	}
	return rec, nil
}

// Approve solo actualiza filas sin aprobador; la segunda aprobación concurrente no encuentra fila.
func (r *ReconciliationRepo) Approve(ctx context.Context, shopID, id, approvedBy string, at time.Time) (*entity.Reconciliation, error) {
	query := `
		UPDATE reconciliations SET approved_by = $3, approval_time = $4, status = $5, updated_at = $4
		WHERE id = $1 AND shop_id = $2 AND approved_by = ''
		RETURNING ` + reconciliationColumns
	rec, err := scanReconciliation(r.q.QueryRow(ctx, query, id, shopID, approvedBy, at, string(entity.ReconciliationReconciled)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("approve reconciliation: %w", err)
	}
	return rec, nil
}

// List conciliaciones de la tienda por fecha descendente.
func (r *ReconciliationRepo) List(ctx context.Context, shopID string, f repository.ReconciliationFilter) ([]*entity.Reconciliation, error) {
	query := `SELECT ` + reconciliationColumns + ` FROM reconciliations WHERE shop_id = $1`
	args := []any{shopID}
	pos := 2
	if f.Type != "" {
		query += fmt.Sprintf(" AND type = $%d", pos)
		args = append(args, string(f.Type))
		pos++
	}
	if !f.From.IsZero() {
		query += fmt.Sprintf(" AND date >= $%d", pos)
		args = append(args, f.From)
		pos++
	}
	if !f.To.IsZero() {
		query += fmt.Sprintf(" AND date <= $%d", pos)
		args = append(args, f.To)
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reconciliations: %w", err)
	}
	defer rows.Close()
	var list []*entity.Reconciliation
	for rows.Next() {
		rec, err := scanReconciliation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reconciliation: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanReconciliation(row pgx.Row) (*entity.Reconciliation, error) {
	var rec entity.Reconciliation
	var kind, status string
	err := row.Scan(&rec.ID, &rec.ShopID, &rec.BranchID, &kind, &rec.Date, &rec.ExpectedValue, &rec.ActualValue,
		&rec.Variance, &rec.VariancePercentage, &status, &rec.Variances, &rec.StockLines, &rec.Notes,
		&rec.ReconciledBy, &rec.ApprovedBy, &rec.ApprovalTime, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Type = entity.ReconciliationType(kind)
	rec.Status = entity.ReconciliationStatus(status)
	return &rec, nil
}
