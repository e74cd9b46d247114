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

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo ledger sobre PostgreSQL. El pool principal vive en products.stock y las
// sucursales en branch_stock. Los deltas son UPDATE condicionales: nunca lectura + escritura.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// GetStock stock efectivo; una sucursal sin entrada refleja el pool principal.
func (r *LedgerRepo) GetStock(ctx context.Context, key repository.StockKey) (int, error) {
	var qty int
	var err error
	if entity.IsMainStore(key.BranchID) {
		err = r.q.QueryRow(ctx,
			`SELECT stock FROM products WHERE id = $1 AND shop_id = $2`,
			key.ProductID, key.ShopID).Scan(&qty)
	} else {
		err = r.q.QueryRow(ctx, `
			SELECT COALESCE(bs.quantity, p.stock)
			FROM products p
			LEFT JOIN branch_stock bs ON bs.product_id = p.id AND bs.branch_id = $3
			WHERE p.id = $1 AND p.shop_id = $2`,
			key.ProductID, key.ShopID, key.BranchID).Scan(&qty)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.NewNotFoundError("producto", key.ProductID)
		}
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return qty, nil
}

// ApplyDelta incremento condicional. Con allowNegative=false el WHERE descarta el cambio si el
// resultado quedaría negativo y se devuelve el faltante.
func (r *LedgerRepo) ApplyDelta(ctx context.Context, key repository.StockKey, delta int, allowNegative bool) (repository.LedgerResult, error) {
	if entity.IsMainStore(key.BranchID) {
		return r.applyMain(ctx, key, delta, allowNegative)
	}
	return r.applyBranch(ctx, key, delta, allowNegative)
}

func (r *LedgerRepo) applyMain(ctx context.Context, key repository.StockKey, delta int, allowNegative bool) (repository.LedgerResult, error) {
	var res repository.LedgerResult
	err := r.q.QueryRow(ctx, `
		UPDATE products SET stock = stock + $3, updated_at = now()
		WHERE id = $1 AND shop_id = $2 AND ($4::boolean OR stock + $3 >= 0)
		RETURNING stock - $3, stock`,
		key.ProductID, key.ShopID, delta, allowNegative).Scan(&res.Previous, &res.Current)
	if err == nil {
		res.Negative = res.Current < 0
		return res, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return res, fmt.Errorf("apply delta: %w", err)
	}
	name, stock, err := r.productStock(ctx, key)
	if err != nil {
		return res, err
	}
	return res, shortfall(key, name, stock, -delta)
}

func (r *LedgerRepo) applyBranch(ctx context.Context, key repository.StockKey, delta int, allowNegative bool) (repository.LedgerResult, error) {
	var res repository.LedgerResult
	// Dos vueltas como máximo: si otra transacción sembró la entrada entre el UPDATE y el
	// INSERT, el segundo UPDATE la encuentra.
	for attempt := 0; attempt < 2; attempt++ {
		err := r.q.QueryRow(ctx, `
			UPDATE branch_stock SET quantity = quantity + $4, updated_at = now()
			WHERE product_id = $1 AND branch_id = $3 AND shop_id = $2
			  AND ($5::boolean OR quantity + $4 >= 0)
			RETURNING quantity - $4, quantity`,
			key.ProductID, key.ShopID, key.BranchID, delta, allowNegative).Scan(&res.Previous, &res.Current)
		if err == nil {
			res.Negative = res.Current < 0
			return res, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return res, fmt.Errorf("apply branch delta: %w", err)
		}

		var current int
		err = r.q.QueryRow(ctx,
			`SELECT quantity FROM branch_stock WHERE product_id = $1 AND branch_id = $2 AND shop_id = $3`,
			key.ProductID, key.BranchID, key.ShopID).Scan(&current)
		if err == nil {
			name, _, perr := r.productStock(ctx, key)
			if perr != nil {
				return res, perr
			}
			return res, shortfall(key, name, current, -delta)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return res, fmt.Errorf("get branch stock: %w", err)
		}

		// Primera escritura: la entrada parte del pool principal actual.
		err = r.q.QueryRow(ctx, `
			INSERT INTO branch_stock (shop_id, product_id, branch_id, quantity, reorder_point, reorder_quantity, updated_at)
			SELECT p.shop_id, p.id, $3::text, p.stock + $4, p.reorder_point, p.reorder_quantity, now()
			FROM products p
			WHERE p.id = $1 AND p.shop_id = $2 AND ($5::boolean OR p.stock + $4 >= 0)
			ON CONFLICT (product_id, branch_id) DO NOTHING
			RETURNING quantity - $4, quantity`,
			key.ProductID, key.ShopID, key.BranchID, delta, allowNegative).Scan(&res.Previous, &res.Current)
		if err == nil {
			res.Negative = res.Current < 0
			return res, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return res, fmt.Errorf("seed branch stock: %w", err)
		}
		name, stock, err := r.productStock(ctx, key)
		if err != nil {
			return res, err
		}
		if !allowNegative && stock+delta < 0 {
			return res, shortfall(key, name, stock, -delta)
		}
	}
	return res, &domain.ConflictError{Resource: "stock", ID: key.ProductID}
}

// productStock nombre y pool principal del producto; NotFound si no pertenece a la tienda.
func (r *LedgerRepo) productStock(ctx context.Context, key repository.StockKey) (string, int, error) {
	var name string
	var stock int
	err := r.q.QueryRow(ctx,
		`SELECT name, stock FROM products WHERE id = $1 AND shop_id = $2`,
		key.ProductID, key.ShopID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, domain.NewNotFoundError("producto", key.ProductID)
		}
		return "", 0, fmt.Errorf("get product stock: %w", err)
	}
	return name, stock, nil
}

func (r *LedgerRepo) GetBranchStock(ctx context.Context, key repository.StockKey) (*entity.BranchStock, error) {
	var (
		qty, point, reorderQty *int
		lastRestock, updatedAt *time.Time
	)
	err := r.q.QueryRow(ctx, `
		SELECT bs.quantity, bs.reorder_point, bs.reorder_quantity, bs.last_restock_date, bs.updated_at
		FROM products p
		LEFT JOIN branch_stock bs ON bs.product_id = p.id AND bs.branch_id = $3
		WHERE p.id = $1 AND p.shop_id = $2`,
		key.ProductID, key.ShopID, key.BranchID).Scan(&qty, &point, &reorderQty, &lastRestock, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("producto", key.ProductID)
		}
		return nil, fmt.Errorf("get branch stock: %w", err)
	}
	if qty == nil {
		return nil, nil
	}
	bs := &entity.BranchStock{
		ShopID:          key.ShopID,
		ProductID:       key.ProductID,
		BranchID:        key.BranchID,
		Quantity:        *qty,
		ReorderPoint:    *point,
		ReorderQuantity: *reorderQty,
		LastRestockDate: lastRestock,
	}
	if updatedAt != nil {
		bs.UpdatedAt = *updatedAt
	}
	return bs, nil
}

func (r *LedgerRepo) SetReorderSettings(ctx context.Context, key repository.StockKey, reorderPoint, reorderQuantity int) error {
	var query string
	args := []any{key.ProductID, key.ShopID, reorderPoint, reorderQuantity}
	if entity.IsMainStore(key.BranchID) {
		query = `
			UPDATE products SET reorder_point = $3, reorder_quantity = $4, updated_at = now()
			WHERE id = $1 AND shop_id = $2`
	} else {
		query = `
			INSERT INTO branch_stock (shop_id, product_id, branch_id, quantity, reorder_point, reorder_quantity, updated_at)
			SELECT p.shop_id, p.id, $5::text, p.stock, $3, $4, now()
			FROM products p WHERE p.id = $1 AND p.shop_id = $2
			ON CONFLICT (product_id, branch_id)
			DO UPDATE SET reorder_point = EXCLUDED.reorder_point, reorder_quantity = EXCLUDED.reorder_quantity, updated_at = now()`
		args = append(args, key.BranchID)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set reorder settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("producto", key.ProductID)
	}
	return nil
}

func (r *LedgerRepo) MarkRestocked(ctx context.Context, key repository.StockKey, at time.Time) error {
	if entity.IsMainStore(key.BranchID) {
		_, _, err := r.productStock(ctx, key)
		return err
	}
	tag, err := r.q.Exec(ctx, `
		INSERT INTO branch_stock (shop_id, product_id, branch_id, quantity, reorder_point, reorder_quantity, last_restock_date, updated_at)
		SELECT p.shop_id, p.id, $3::text, p.stock, p.reorder_point, p.reorder_quantity, $4, now()
		FROM products p WHERE p.id = $1 AND p.shop_id = $2
		ON CONFLICT (product_id, branch_id)
		DO UPDATE SET last_restock_date = EXCLUDED.last_restock_date, updated_at = now()`,
		key.ProductID, key.ShopID, key.BranchID, at)
	if err != nil {
		return fmt.Errorf("mark restocked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("producto", key.ProductID)
	}
	return nil
}

// ListBelowReorderPoint productos con stock <= punto de reorden (> 0) en la ubicación.
func (r *LedgerRepo) ListBelowReorderPoint(ctx context.Context, shopID, branchID string) ([]repository.LowStockItem, error) {
	var (
		rows pgx.Rows
		err  error
	)
	location := entity.MainStoreID
	if entity.IsMainStore(branchID) {
		rows, err = r.q.Query(ctx, `
			SELECT id, name, sku, stock, reorder_point, reorder_quantity, unit_cost
			FROM products
			WHERE shop_id = $1 AND reorder_point > 0 AND stock <= reorder_point
			ORDER BY name`, shopID)
	} else {
		location = branchID
		rows, err = r.q.Query(ctx, `
			SELECT p.id, p.name, p.sku,
			       COALESCE(bs.quantity, p.stock),
			       COALESCE(bs.reorder_point, p.reorder_point),
			       COALESCE(bs.reorder_quantity, p.reorder_quantity),
			       p.unit_cost
			FROM products p
			LEFT JOIN branch_stock bs ON bs.product_id = p.id AND bs.branch_id = $2
			WHERE p.shop_id = $1
			  AND COALESCE(bs.reorder_point, p.reorder_point) > 0
			  AND COALESCE(bs.quantity, p.stock) <= COALESCE(bs.reorder_point, p.reorder_point)
			ORDER BY p.name`, shopID, branchID)
	}
	if err != nil {
		return nil, fmt.Errorf("list below reorder point: %w", err)
	}
	defer rows.Close()
	var list []repository.LowStockItem
	for rows.Next() {
		item := repository.LowStockItem{BranchID: location}
		if err := rows.Scan(&item.ProductID, &item.Name, &item.SKU, &item.Stock,
			&item.ReorderPoint, &item.ReorderQuantity, &item.UnitCost); err != nil {
			return nil, fmt.Errorf("scan low stock item: %w", err)
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func shortfall(key repository.StockKey, name string, available, requested int) error {
	return &domain.InsufficientStockError{Shortfalls: []domain.Shortfall{{
		ProductID: key.ProductID,
		Name:      name,
		Location:  entity.LocationLabel(key.BranchID),
		Available: available,
		Requested: requested,
	}}}
}
