package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
)

var _ ports.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(ctx context.Context, s ports.Stores) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, NewStores(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewStores arma el juego de repos sobre un Querier (pool o tx).
func NewStores(q Querier) ports.Stores {
	return ports.Stores{
		Ledger:          NewLedgerRepository(q),
		Adjustments:     NewAdjustmentRepository(q),
		Products:        NewProductRepository(q),
		Transfers:       NewTransferRepository(q),
		Orders:          NewOrderRepository(q),
		Deductions:      NewDeductionQueue(q),
		Reconciliations: NewReconciliationRepository(q),
	}
}
