package ports

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// DeliveryNote datos para la guía de remisión de una transferencia.
type DeliveryNote struct {
	ShopName string
	Transfer *entity.StockTransfer
	FromName string
	ToName   string
}

// DeliveryNoteGenerator genera el PDF de la guía de remisión.
type DeliveryNoteGenerator interface {
	GenerateDeliveryNote(ctx context.Context, note DeliveryNote) ([]byte, error)
}
