package repository

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// Todas las lecturas filtran por shopID; un id de otra tienda se trata como inexistente.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, shopID, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, shopID, sku string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	UpdateUnitCost(ctx context.Context, shopID, id string, cost decimal.Decimal) error
	List(ctx context.Context, shopID string, limit, offset int) ([]*entity.Product, error)
}
