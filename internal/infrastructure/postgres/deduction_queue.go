package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.DeductionQueue = (*DeductionQueue)(nil)

const jobColumns = `id, shop_id, order_id, order_number, product_id, product_name, branch_id, quantity,
	actor_id, status, attempts, last_error, next_attempt_at, applied_at, created_at, updated_at`

// DeductionQueue cola durable en la tabla deduction_jobs. Las transiciones son UPDATE
// condicionales al estado: el que no afecta filas perdió la carrera.
type DeductionQueue struct {
	q Querier
}

// NewDeductionQueue construye el adaptador. Pasar pool o tx (Querier).
func NewDeductionQueue(q Querier) *DeductionQueue {
	return &DeductionQueue{q: q}
}

func (r *DeductionQueue) Enqueue(ctx context.Context, jobs []*entity.DeductionJob) error {
	query := `
		INSERT INTO deduction_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	for _, j := range jobs {
		_, err := r.q.Exec(ctx, query,
			j.ID, j.ShopID, j.OrderID, j.OrderNumber, j.ProductID, j.ProductName, j.BranchID, j.Quantity,
			j.ActorID, string(j.Status), j.Attempts, j.LastError, j.NextAttemptAt, j.AppliedAt, j.CreatedAt, j.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("enqueue deduction: %w", err)
		}
	}
	return nil
}

func (r *DeductionQueue) Get(ctx context.Context, shopID, id string) (*entity.DeductionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM deduction_jobs WHERE id = $1 AND shop_id = $2`
	j, err := scanJob(r.q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deduction: %w", err)
	}
	return j, nil
}

// ListDue jobs pending/failed vencidos de todas las tiendas, en orden de vencimiento.
func (r *DeductionQueue) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.DeductionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM deduction_jobs
		WHERE status IN ('pending', 'failed') AND next_attempt_at <= $1
		ORDER BY next_attempt_at, seq LIMIT $2`
	return r.list(ctx, query, now, limit)
}

func (r *DeductionQueue) ListByOrder(ctx context.Context, shopID, orderID string) ([]*entity.DeductionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM deduction_jobs WHERE shop_id = $1 AND order_id = $2 ORDER BY seq`
	return r.list(ctx, query, shopID, orderID)
}

func (r *DeductionQueue) ListByStatus(ctx context.Context, shopID string, statuses []entity.DeductionStatus, limit, offset int) ([]*entity.DeductionJob, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + jobColumns + ` FROM deduction_jobs
		WHERE shop_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC, seq DESC LIMIT $3 OFFSET $4`
	return r.list(ctx, query, shopID, names, limit, offset)
}

func (r *DeductionQueue) MarkApplied(ctx context.Context, id string, at time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE deduction_jobs SET status = 'applied', attempts = attempts + 1, applied_at = $2,
			last_error = '', updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'failed')`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark deduction applied: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DeductionQueue) MarkFailed(ctx context.Context, id, lastError string, nextAttempt time.Time, dead bool) error {
	status := entity.DeductionFailed
	if dead {
		status = entity.DeductionDead
	}
	_, err := r.q.Exec(ctx, `
		UPDATE deduction_jobs SET status = $2, attempts = attempts + 1, last_error = $3,
			next_attempt_at = $4, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed')`, id, string(status), lastError, nextAttempt)
	if err != nil {
		return fmt.Errorf("mark deduction failed: %w", err)
	}
	return nil
}

func (r *DeductionQueue) Cancel(ctx context.Context, id string) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE deduction_jobs SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'failed', 'dead')`, id)
	if err != nil {
		return false, fmt.Errorf("cancel deduction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DeductionQueue) Requeue(ctx context.Context, shopID, id string, now time.Time) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE deduction_jobs SET status = 'pending', attempts = 0, next_attempt_at = $3, updated_at = $3
		WHERE id = $1 AND shop_id = $2 AND status = 'dead'`, id, shopID, now)
	if err != nil {
		return false, fmt.Errorf("requeue deduction: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *DeductionQueue) list(ctx context.Context, query string, args ...any) ([]*entity.DeductionJob, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list deductions: %w", err)
	}
	defer rows.Close()
	var list []*entity.DeductionJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deduction: %w", err)
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func scanJob(row pgx.Row) (*entity.DeductionJob, error) {
	var j entity.DeductionJob
	var status string
	err := row.Scan(&j.ID, &j.ShopID, &j.OrderID, &j.OrderNumber, &j.ProductID, &j.ProductName, &j.BranchID,
		&j.Quantity, &j.ActorID, &status, &j.Attempts, &j.LastError, &j.NextAttemptAt, &j.AppliedAt,
		&j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = entity.DeductionStatus(status)
	return &j, nil
}
