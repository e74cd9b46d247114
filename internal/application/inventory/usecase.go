package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	domaininv "github.com/DTBbuilds/smartduka-inventory/internal/domain/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/pkg/telemetry"
)

// manualReasons motivos admitidos en ajustes manuales. sale y transfer los emiten
// exclusivamente el checkout y el motor de transferencias.
var manualReasons = map[entity.AdjustmentReason]int{
	entity.ReasonPurchaseReceived: 1,
	entity.ReasonReturn:           1,
	entity.ReasonDamage:           -1,
	entity.ReasonLoss:             -1,
	entity.ReasonCorrection:       0,
	entity.ReasonOther:            0,
}

// StockUseCase consultas del ledger y ajustes manuales de stock.
type StockUseCase struct {
	txRunner    ports.TxRunner
	recorder    *Recorder
	ledger      repository.LedgerRepository
	products    repository.ProductRepository
	branches    repository.BranchRepository
	adjustments repository.AdjustmentRepository
	audit       ports.AuditTrail
}

// NewStockUseCase construye el caso de uso.
func NewStockUseCase(
	txRunner ports.TxRunner,
	recorder *Recorder,
	ledger repository.LedgerRepository,
	products repository.ProductRepository,
	branches repository.BranchRepository,
	adjustments repository.AdjustmentRepository,
	audit ports.AuditTrail,
) *StockUseCase {
	if audit == nil {
		audit = ports.NopAudit{}
	}
	return &StockUseCase{
		txRunner:    txRunner,
		recorder:    recorder,
		ledger:      ledger,
		products:    products,
		branches:    branches,
		adjustments: adjustments,
		audit:       audit,
	}
}

// GetStock devuelve el stock efectivo de un producto. branchID vacío = pool principal;
// una sucursal sin entrada propia refleja el pool principal.
func (uc *StockUseCase) GetStock(ctx context.Context, shopID, productID, branchID string) (*dto.StockLevelResponse, error) {
	product, err := uc.products.GetByID(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFoundError("producto", productID)
	}
	if err := ValidateLocation(ctx, uc.branches, shopID, branchID); err != nil {
		return nil, err
	}

	key := repository.StockKey{ShopID: shopID, ProductID: productID, BranchID: branchID}
	qty, err := uc.ledger.GetStock(ctx, key)
	if err != nil {
		return nil, err
	}
	out := &dto.StockLevelResponse{
		ProductID:       productID,
		BranchID:        entity.MainStoreID,
		Stock:           qty,
		FromMainPool:    true,
		ReorderPoint:    product.ReorderPoint,
		ReorderQuantity: product.ReorderQuantity,
	}
	if entity.IsMainStore(branchID) {
		return out, nil
	}
	out.BranchID = branchID
	bs, err := uc.ledger.GetBranchStock(ctx, key)
	if err != nil {
		return nil, err
	}
	if bs != nil {
		out.FromMainPool = false
		out.ReorderPoint = bs.ReorderPoint
		out.ReorderQuantity = bs.ReorderQuantity
		out.LastRestockDate = bs.LastRestockDate
	}
	return out, nil
}

// AdjustStock registra un ajuste manual. purchase_received con unit_cost recalcula el costo
// promedio ponderado del producto con el stock previo de la ubicación que recibe. Las entradas de
// sucursal se siembran copiando el pool principal, así que sumar ubicaciones contaría dos veces
// las mismas unidades.
func (uc *StockUseCase) AdjustStock(ctx context.Context, shopID, actorID string, in dto.AdjustStockRequest) (out *dto.AdjustmentResponse, err error) {
	ctx, span := telemetry.Start(ctx, "inventory", "inventory.AdjustStock", shopID)
	defer func() { telemetry.End(span, err) }()

	reason := entity.AdjustmentReason(in.Reason)
	sign, ok := manualReasons[reason]
	switch {
	case in.ProductID == "":
		return nil, domain.NewValidationError("product_id", "es requerido")
	case in.QuantityChange == 0:
		return nil, domain.NewValidationError("quantity_change", "debe ser distinto de cero")
	case !ok:
		return nil, domain.NewValidationError("reason", fmt.Sprintf("motivo %q no admitido en ajustes manuales", in.Reason))
	case sign > 0 && in.QuantityChange < 0:
		return nil, domain.NewValidationError("quantity_change", fmt.Sprintf("%s debe ser positivo", reason))
	case sign < 0 && in.QuantityChange > 0:
		return nil, domain.NewValidationError("quantity_change", fmt.Sprintf("%s debe ser negativo", reason))
	case in.UnitCost != nil && reason != entity.ReasonPurchaseReceived:
		return nil, domain.NewValidationError("unit_cost", "solo aplica a purchase_received")
	case in.UnitCost != nil && in.UnitCost.IsNegative():
		return nil, domain.NewValidationError("unit_cost", "no puede ser negativo")
	}
	if err := ValidateLocation(ctx, uc.branches, shopID, in.BranchID); err != nil {
		return nil, err
	}

	var (
		adj      *entity.StockAdjustment
		res      repository.LedgerResult
		costFrom decimal.Decimal
		costTo   decimal.Decimal
	)
	err = uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		product, err := s.Products.GetByID(ctx, shopID, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFoundError("producto", in.ProductID)
		}
		adj, res, err = uc.recorder.Apply(ctx, s, Movement{
			ShopID:    shopID,
			ProductID: in.ProductID,
			BranchID:  in.BranchID,
			Delta:     in.QuantityChange,
			Reason:    reason,
			ActorID:   actorID,
			Reference: in.Reference,
			Notes:     in.Notes,
		})
		if err != nil {
			return EnrichShortfall(err, product.Name)
		}

		if reason == entity.ReasonPurchaseReceived {
			if in.UnitCost != nil {
				costFrom = product.UnitCost
				costTo = domaininv.WeightedUnitCost(res.Previous, product.UnitCost, in.QuantityChange, *in.UnitCost)
				if err := s.Products.UpdateUnitCost(ctx, shopID, product.ID, costTo); err != nil {
					return err
				}
			}
			if !entity.IsMainStore(in.BranchID) {
				key := repository.StockKey{ShopID: shopID, ProductID: product.ID, BranchID: in.BranchID}
				if err := s.Ledger.MarkRestocked(ctx, key, adj.CreatedAt); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	after := map[string]any{"stock": res.Current}
	if !costTo.IsZero() {
		after["unit_cost"] = costTo.String()
	}
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "inventory.adjust",
		Resource:   "product",
		ResourceID: in.ProductID,
		Before:     map[string]any{"stock": res.Previous, "unit_cost": costFrom.String()},
		After:      after,
		OccurredAt: adj.CreatedAt,
	})

	return toAdjustmentResponse(adj), nil
}

// ListAdjustments historial de ajustes de la tienda (más recientes primero).
func (uc *StockUseCase) ListAdjustments(ctx context.Context, shopID string, f repository.AdjustmentFilter) (*dto.AdjustmentListResponse, error) {
	list, err := uc.adjustments.List(ctx, shopID, f)
	if err != nil {
		return nil, err
	}
	items := make([]dto.AdjustmentResponse, 0, len(list))
	for _, a := range list {
		items = append(items, *toAdjustmentResponse(a))
	}
	return &dto.AdjustmentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: f.Limit, Offset: f.Offset},
	}, nil
}

// SetReorderSettings fija punto y cantidad de reorden de un producto en una ubicación.
func (uc *StockUseCase) SetReorderSettings(ctx context.Context, shopID, actorID, productID string, in dto.ReorderSettingsRequest) (*dto.StockLevelResponse, error) {
	if in.ReorderPoint < 0 || in.ReorderQuantity < 0 {
		return nil, domain.NewValidationError("reorder_point", "los valores de reorden no pueden ser negativos")
	}
	product, err := uc.products.GetByID(ctx, shopID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFoundError("producto", productID)
	}
	if err := ValidateLocation(ctx, uc.branches, shopID, in.BranchID); err != nil {
		return nil, err
	}
	key := repository.StockKey{ShopID: shopID, ProductID: productID, BranchID: in.BranchID}
	if err := uc.ledger.SetReorderSettings(ctx, key, in.ReorderPoint, in.ReorderQuantity); err != nil {
		return nil, err
	}
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "inventory.reorder_settings",
		Resource:   "product",
		ResourceID: productID,
		After:      in,
		OccurredAt: time.Now(),
	})
	return uc.GetStock(ctx, shopID, productID, in.BranchID)
}

// ValidateLocation verifica que la sucursal exista en la tienda y esté activa. El pool principal siempre es válido.
func ValidateLocation(ctx context.Context, branches repository.BranchRepository, shopID, branchID string) error {
	if entity.IsMainStore(branchID) {
		return nil
	}
	b, err := branches.GetByID(ctx, shopID, branchID)
	if err != nil {
		return err
	}
	if b == nil {
		return domain.NewNotFoundError("sucursal", branchID)
	}
	if !b.Active {
		return domain.NewValidationError("branch_id", fmt.Sprintf("la sucursal %s está inactiva", b.Name))
	}
	return nil
}

// EnrichShortfall completa el nombre del producto en los faltantes que devuelve el ledger.
func EnrichShortfall(err error, name string) error {
	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		for i := range ise.Shortfalls {
			if ise.Shortfalls[i].Name == "" {
				ise.Shortfalls[i].Name = name
			}
		}
	}
	return err
}

func toAdjustmentResponse(a *entity.StockAdjustment) *dto.AdjustmentResponse {
	return &dto.AdjustmentResponse{
		ID:             a.ID,
		ProductID:      a.ProductID,
		BranchID:       a.BranchID,
		QuantityChange: a.QuantityChange,
		QuantityBefore: a.QuantityBefore,
		QuantityAfter:  a.QuantityAfter,
		Reason:         string(a.Reason),
		ActorID:        a.ActorID,
		Reference:      a.Reference,
		Notes:          a.Notes,
		NegativeStock:  a.NegativeStock,
		CreatedAt:      a.CreatedAt,
	}
}
