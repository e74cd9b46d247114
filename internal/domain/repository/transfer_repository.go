package repository

import (
	"context"
	"time"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// TransferFilter filtros para listar transferencias.
type TransferFilter struct {
	Status   entity.TransferStatus
	BranchID string // origen o destino
	Limit    int
	Offset   int
}

// TransferRepository persistencia de transferencias.
type TransferRepository interface {
	Create(ctx context.Context, t *entity.StockTransfer) error
	GetByID(ctx context.Context, shopID, id string) (*entity.StockTransfer, error)
	// UpdateIfStatus guarda t solo si la fila sigue en fromStatus con la versión fromVersion,
	// e incrementa la versión. Devuelve false si otra escritura ganó la carrera.
	UpdateIfStatus(ctx context.Context, t *entity.StockTransfer, fromStatus entity.TransferStatus, fromVersion int) (bool, error)
	List(ctx context.Context, shopID string, f TransferFilter) ([]*entity.StockTransfer, error)
	// ListInTransitSince transferencias en tránsito (o recibidas parcialmente) enviadas antes de shippedBefore.
	ListInTransitSince(ctx context.Context, shopID string, shippedBefore time.Time) ([]*entity.StockTransfer, error)
}
