package repository

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// ReconciliationFilter filtros para listar conciliaciones.
type ReconciliationFilter struct {
	Type   entity.ReconciliationType
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// ReconciliationRepository persistencia de conciliaciones.
type ReconciliationRepository interface {
	// Create falla con domain.ErrDuplicate si ya existe una conciliación de caja para (tienda, sucursal, fecha).
	Create(ctx context.Context, r *entity.Reconciliation) error
	GetByID(ctx context.Context, shopID, id string) (*entity.Reconciliation, error)
	// AppendVariance agrega una investigación sin reescribir las anteriores. Devuelve nil si no existe.
	AppendVariance(ctx context.Context, shopID, id string, v entity.VarianceRecord, at time.Time) (*entity.Reconciliation, error)
	// Approve registra la aprobación solo si nadie aprobó antes. Devuelve nil si no existe o ya estaba aprobada.
	Approve(ctx context.Context, shopID, id, approvedBy string, at time.Time) (*entity.Reconciliation, error)
	List(ctx context.Context, shopID string, f ReconciliationFilter) ([]*entity.Reconciliation, error)
}
