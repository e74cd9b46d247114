package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, shop_id, sku, name, barcode, description, unit_cost, unit_price, stock,
	reorder_point, reorder_quantity, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto. El stock inicial entra luego por el ledger.
func (r *ProductRepo) Create(ctx context.Context, p *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.q.Exec(ctx, query,
		p.ID, p.ShopID, p.SKU, p.Name, p.Barcode, p.Description, p.UnitCost, p.UnitPrice, p.Stock,
		p.ReorderPoint, p.ReorderQuantity, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto de la tienda. nil, nil si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, shopID, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND shop_id = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id, shopID))
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetBySKU obtiene un producto por tienda y SKU.
func (r *ProductRepo) GetBySKU(ctx context.Context, shopID, sku string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE shop_id = $1 AND sku = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, shopID, sku))
	if err != nil {
		return nil, fmt.Errorf("get product by sku: %w", err)
	}
	return p, nil
}

// Update no toca stock ni unit_cost: esos solo cambian por el ledger y UpdateUnitCost.
func (r *ProductRepo) Update(ctx context.Context, p *entity.Product) error {
	query := `
		UPDATE products SET name = $3, barcode = $4, description = $5, unit_price = $6,
			reorder_point = $7, reorder_quantity = $8, updated_at = $9
		WHERE id = $1 AND shop_id = $2`
	tag, err := r.q.Exec(ctx, query,
		p.ID, p.ShopID, p.Name, p.Barcode, p.Description, p.UnitPrice,
		p.ReorderPoint, p.ReorderQuantity, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("producto", p.ID)
	}
	return nil
}

// UpdateUnitCost fija el costo promedio ponderado.
func (r *ProductRepo) UpdateUnitCost(ctx context.Context, shopID, id string, cost decimal.Decimal) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE products SET unit_cost = $3, updated_at = now() WHERE id = $1 AND shop_id = $2`,
		id, shopID, cost)
	if err != nil {
		return fmt.Errorf("update unit cost: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("producto", id)
	}
	return nil
}

// List lista productos de la tienda, más recientes primero.
func (r *ProductRepo) List(ctx context.Context, shopID string, limit, offset int) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE shop_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, shopID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.ShopID, &p.SKU, &p.Name, &p.Barcode, &p.Description, &p.UnitCost, &p.UnitPrice,
		&p.Stock, &p.ReorderPoint, &p.ReorderQuantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}
