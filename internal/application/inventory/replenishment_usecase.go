package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
)

// ReplenishmentUseCase genera la lista de reposición de una ubicación a partir del ledger.
type ReplenishmentUseCase struct {
	ledger   repository.LedgerRepository
	branches repository.BranchRepository
}

// NewReplenishmentUseCase construye el caso de uso de reposición.
func NewReplenishmentUseCase(ledger repository.LedgerRepository, branches repository.BranchRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{ledger: ledger, branches: branches}
}

// GenerateReplenishmentList devuelve los productos en o por debajo del punto de reorden con la
// cantidad sugerida de pedido. branchID vacío = pool principal.
// Prioridad: mayor déficit relativo al punto de reorden primero.
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context, shopID, branchID string) ([]dto.ReplenishmentSuggestionDTO, error) {
	if err := ValidateLocation(ctx, uc.branches, shopID, branchID); err != nil {
		return nil, err
	}
	rawItems, err := uc.ledger.ListBelowReorderPoint(ctx, shopID, branchID)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.ReplenishmentSuggestionDTO{}, nil
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0, len(rawItems))
	for _, item := range rawItems {
		qty := suggestedQuantity(item)
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:          item.ProductID,
			SKU:                item.SKU,
			ProductName:        item.Name,
			BranchID:           item.BranchID,
			CurrentStock:       item.Stock,
			ReorderPoint:       item.ReorderPoint,
			SuggestedOrderQty:  qty,
			UnitCost:           item.UnitCost,
			EstimatedOrderCost: item.UnitCost.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return deficitRatio(suggestions[i]).GreaterThan(deficitRatio(suggestions[j]))
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// suggestedQuantity usa la cantidad de reorden configurada; sin ella repone hasta 1.5 × punto de reorden.
func suggestedQuantity(item repository.LowStockItem) int {
	if item.ReorderQuantity > 0 {
		if missing := item.ReorderPoint - item.Stock; missing > item.ReorderQuantity {
			return missing
		}
		return item.ReorderQuantity
	}
	ideal := (item.ReorderPoint*3 + 1) / 2
	if q := ideal - item.Stock; q > 0 {
		return q
	}
	return 0
}

func deficitRatio(s dto.ReplenishmentSuggestionDTO) decimal.Decimal {
	if s.ReorderPoint <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.ReorderPoint - s.CurrentStock)).
		Div(decimal.NewFromInt(int64(s.ReorderPoint)))
}
