package repository

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// DeductionQueue cola durable de descuentos de stock posteriores a la venta.
// Las transiciones son condicionales al estado para que dos consumidores no apliquen el mismo job.
type DeductionQueue interface {
	Enqueue(ctx context.Context, jobs []*entity.DeductionJob) error
	Get(ctx context.Context, shopID, id string) (*entity.DeductionJob, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.DeductionJob, error)
	ListByOrder(ctx context.Context, shopID, orderID string) ([]*entity.DeductionJob, error)
	ListByStatus(ctx context.Context, shopID string, statuses []entity.DeductionStatus, limit, offset int) ([]*entity.DeductionJob, error)
	// MarkApplied pasa el job de pending/failed a applied. false si ya no estaba en esos estados.
	MarkApplied(ctx context.Context, id string, at time.Time) (bool, error)
	// MarkFailed registra un intento fallido; dead=true lo saca de la cola.
	MarkFailed(ctx context.Context, id, lastError string, nextAttempt time.Time, dead bool) error
	// Cancel pasa el job de pending/failed/dead a cancelled.
	Cancel(ctx context.Context, id string) (bool, error)
	// Requeue devuelve un job dead a pending con los intentos en cero.
	Requeue(ctx context.Context, shopID, id string, now time.Time) (bool, error)
}
