package ports

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// Stores repositorios atados a una misma transacción.
type Stores struct {
	Ledger          repository.LedgerRepository
	Adjustments     repository.AdjustmentRepository
	Products        repository.ProductRepository
	Transfers       repository.TransferRepository
	Orders          repository.OrderRepository
	Deductions      repository.DeductionQueue
	Reconciliations repository.ReconciliationRepository
}

// TxRunner ejecuta fn dentro de una transacción y hace Commit si fn no devuelve error,
// Rollback en caso contrario. Dentro de fn solo deben usarse los repos recibidos.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
