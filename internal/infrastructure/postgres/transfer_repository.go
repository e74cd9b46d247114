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

var _ repository.TransferRepository = (*TransferRepo)(nil)

const transferColumns = `id, shop_id, transfer_number, from_branch_id, to_branch_id, is_from_main_store,
	is_to_main_store, items, status, priority, reason, notes, total_value,
	requested_by, requested_at, approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	shipped_by, shipped_at, tracking_number, carrier, expected_arrival, received_by, received_at,
	cancelled_by, cancelled_at, cancellation_reason, version, created_at, updated_at`

// TransferRepo transferencias sobre PostgreSQL. Las líneas se guardan como JSONB.
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

func (r *TransferRepo) Create(ctx context.Context, t *entity.StockTransfer) error {
	query := `
		INSERT INTO stock_transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33)`
	_, err := r.q.Exec(ctx, query,
		t.ID, t.ShopID, t.TransferNumber, t.FromBranchID, t.ToBranchID, t.IsFromMainStore,
		t.IsToMainStore, jsonList(t.Items), string(t.Status), string(t.Priority), t.Reason, t.Notes, t.TotalValue,
		t.RequestedBy, t.RequestedAt, t.ApprovedBy, t.ApprovedAt, t.RejectedBy, t.RejectedAt, t.RejectionReason,
		t.ShippedBy, t.ShippedAt, t.TrackingNumber, t.Carrier, t.ExpectedArrival, t.ReceivedBy, t.ReceivedAt,
		t.CancelledBy, t.CancelledAt, t.CancellationReason, t.Version, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (r *TransferRepo) GetByID(ctx context.Context, shopID, id string) (*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE id = $1 AND shop_id = $2`
	t, err := scanTransfer(r.q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// UpdateIfStatus escritura condicional por estado y versión (concurrencia optimista).
func (r *TransferRepo) UpdateIfStatus(ctx context.Context, t *entity.StockTransfer, fromStatus entity.TransferStatus, fromVersion int) (bool, error) {
	query := `
		UPDATE stock_transfers SET
			items = $5, status = $6, priority = $7, reason = $8, notes = $9,
			approved_by = $10, approved_at = $11, rejected_by = $12, rejected_at = $13, rejection_reason = $14,
			shipped_by = $15, shipped_at = $16, tracking_number = $17, carrier = $18, expected_arrival = $19,
			received_by = $20, received_at = $21, cancelled_by = $22, cancelled_at = $23, cancellation_reason = $24,
			version = version + 1, updated_at = $25
		WHERE id = $1 AND shop_id = $2 AND status = $3 AND version = $4`
	tag, err := r.q.Exec(ctx, query,
		t.ID, t.ShopID, string(fromStatus), fromVersion,
		jsonList(t.Items), string(t.Status), string(t.Priority), t.Reason, t.Notes,
		t.ApprovedBy, t.ApprovedAt, t.RejectedBy, t.RejectedAt, t.RejectionReason,
		t.ShippedBy, t.ShippedAt, t.TrackingNumber, t.Carrier, t.ExpectedArrival,
		t.ReceivedBy, t.ReceivedAt, t.CancelledBy, t.CancelledAt, t.CancellationReason,
		t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update transfer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.q.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM stock_transfers WHERE id = $1 AND shop_id = $2)`,
			t.ID, t.ShopID).Scan(&exists)
		if err != nil {
			return false, fmt.Errorf("check transfer: %w", err)
		}
		if !exists {
			return false, domain.NewNotFoundError("transferencia", t.ID)
		}
		return false, nil
	}
	t.Version = fromVersion + 1
	return true, nil
}

// List transferencias de la tienda, más recientes primero. BranchID filtra por origen o destino.
func (r *TransferRepo) List(ctx context.Context, shopID string, f repository.TransferFilter) ([]*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers WHERE shop_id = $1`
	args := []any{shopID}
	pos := 2
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, string(f.Status))
		pos++
	}
	if f.BranchID != "" {
		query += fmt.Sprintf(` AND (CASE WHEN is_from_main_store THEN 'none' ELSE from_branch_id END = $%d
			OR CASE WHEN is_to_main_store THEN 'none' ELSE to_branch_id END = $%d)`, pos, pos)
		args = append(args, f.BranchID)
		pos++
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, f.Offset)
	return r.list(ctx, query, args...)
}

// ListInTransitSince transferencias despachadas antes de shippedBefore que siguen sin cerrar la recepción.
func (r *TransferRepo) ListInTransitSince(ctx context.Context, shopID string, shippedBefore time.Time) ([]*entity.StockTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM stock_transfers
		WHERE shop_id = $1 AND status IN ('in_transit', 'partially_received') AND shipped_at < $2
		ORDER BY shipped_at`
	return r.list(ctx, query, shopID, shippedBefore)
}

func (r *TransferRepo) list(ctx context.Context, query string, args ...any) ([]*entity.StockTransfer, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.StockTransfer, error) {
	var t entity.StockTransfer
	var status, priority string
	err := row.Scan(
		&t.ID, &t.ShopID, &t.TransferNumber, &t.FromBranchID, &t.ToBranchID, &t.IsFromMainStore,
		&t.IsToMainStore, &t.Items, &status, &priority, &t.Reason, &t.Notes, &t.TotalValue,
		&t.RequestedBy, &t.RequestedAt, &t.ApprovedBy, &t.ApprovedAt, &t.RejectedBy, &t.RejectedAt, &t.RejectionReason,
		&t.ShippedBy, &t.ShippedAt, &t.TrackingNumber, &t.Carrier, &t.ExpectedArrival, &t.ReceivedBy, &t.ReceivedAt,
		&t.CancelledBy, &t.CancelledAt, &t.CancellationReason, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = entity.TransferStatus(status)
	t.Priority = entity.TransferPriority(priority)
	return &t, nil
}
