package inventory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

const (
	shopID  = "shop-1"
	actorID = "manager-1"
)

func newStockUseCase(t *testing.T, allowNegative bool) (*inventory.StockUseCase, *memory.Store) {
	t.Helper()
	s := memory.NewStore()
	ctx := context.Background()
	repos := s.Repos()
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{
		ID: "p1", ShopID: shopID, Name: "Harina", SKU: "HAR", UnitCost: decimal.NewFromInt(10), Stock: 10, ReorderPoint: 5, ReorderQuantity: 20,
	}))
	branches := memory.NewBranchRepository(s)
	require.NoError(t, branches.Create(ctx, &entity.Branch{ID: "b1", ShopID: shopID, Code: "CEN", Name: "Centro", Active: true}))

	uc := inventory.NewStockUseCase(
		memory.NewTxRunner(s),
		inventory.NewRecorder(allowNegative, logger.Nop()),
		repos.Ledger,
		repos.Products,
		branches,
		repos.Adjustments,
		nil,
	)
	return uc, s
}

func TestAdjustStock_CompraRecalculaCostoPromedio(t *testing.T) {
	uc, s := newStockUseCase(t, false)
	ctx := context.Background()
	cost := decimal.NewFromInt(16)

	out, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{
		ProductID: "p1", QuantityChange: 10, Reason: "purchase_received", UnitCost: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, out.QuantityBefore)
	assert.Equal(t, 20, out.QuantityAfter)

	p, err := s.Repos().Products.GetByID(ctx, shopID, "p1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(13).Equal(p.UnitCost), "(10×10 + 10×16) / 20")
}

func TestAdjustStock_ReglasDeSignoYMotivo(t *testing.T) {
	uc, _ := newStockUseCase(t, false)
	ctx := context.Background()
	cost := decimal.NewFromInt(1)

	cases := []dto.AdjustStockRequest{
		{ProductID: "p1", QuantityChange: -1, Reason: "purchase_received"},
		{ProductID: "p1", QuantityChange: 2, Reason: "damage"},
		{ProductID: "p1", QuantityChange: -1, Reason: "sale"},
		{ProductID: "p1", QuantityChange: 1, Reason: "transfer"},
		{ProductID: "p1", QuantityChange: 0, Reason: "correction"},
		{ProductID: "p1", QuantityChange: 1, Reason: "correction", UnitCost: &cost},
	}
	for _, in := range cases {
		_, err := uc.AdjustStock(ctx, shopID, actorID, in)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), "%+v", in)
	}
}

func TestAdjustStock_PerdidaSinStockSegunPolitica(t *testing.T) {
	ctx := context.Background()

	uc, _ := newStockUseCase(t, false)
	_, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{ProductID: "p1", QuantityChange: -12, Reason: "loss"})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	assert.Equal(t, "Harina", ise.Shortfalls[0].Name)

	uc, s := newStockUseCase(t, true)
	out, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{ProductID: "p1", QuantityChange: -12, Reason: "loss"})
	require.NoError(t, err)
	assert.True(t, out.NegativeStock)
	assert.Equal(t, -2, out.QuantityAfter)

	stored, err := s.Repos().Adjustments.List(ctx, shopID, repository.AdjustmentFilter{ProductID: "p1", Reason: entity.ReasonLoss})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].NegativeStock, "la marca queda en el ajuste guardado")

	list, err := uc.ListAdjustments(ctx, shopID, repository.AdjustmentFilter{ProductID: "p1"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].NegativeStock)
}

func TestAdjustStock_CompraEnSucursalMarcaReposicion(t *testing.T) {
	uc, _ := newStockUseCase(t, false)
	ctx := context.Background()

	_, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{ProductID: "p1", BranchID: "b1", QuantityChange: 5, Reason: "purchase_received"})
	require.NoError(t, err)

	lvl, err := uc.GetStock(ctx, shopID, "p1", "b1")
	require.NoError(t, err)
	assert.Equal(t, 15, lvl.Stock)
	assert.False(t, lvl.FromMainPool)
	assert.NotNil(t, lvl.LastRestockDate)

	main, err := uc.GetStock(ctx, shopID, "p1", "")
	require.NoError(t, err)
	assert.Equal(t, 10, main.Stock)
	assert.Equal(t, entity.MainStoreID, main.BranchID)
}

func TestAdjustStock_CostoPonderaConStockDeLaUbicacionQueRecibe(t *testing.T) {
	uc, s := newStockUseCase(t, false)
	ctx := context.Background()

	_, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{ProductID: "p1", BranchID: "b1", QuantityChange: -8, Reason: "loss"})
	require.NoError(t, err)

	cost := decimal.NewFromInt(16)
	out, err := uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{
		ProductID: "p1", BranchID: "b1", QuantityChange: 2, Reason: "purchase_received", UnitCost: &cost,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.QuantityBefore)

	p, err := s.Repos().Products.GetByID(ctx, shopID, "p1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(13).Equal(p.UnitCost), "(2×10 + 2×16) / 4, sin contar el pool principal")
	assert.Equal(t, 10, p.Stock)
}

func TestGetStock_SucursalInexistente(t *testing.T) {
	uc, _ := newStockUseCase(t, false)
	_, err := uc.GetStock(context.Background(), shopID, "p1", "zz")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReplenishment_ListaPorSucursalConPrioridad(t *testing.T) {
	uc, s := newStockUseCase(t, false)
	ctx := context.Background()
	repos := s.Repos()
	require.NoError(t, repos.Products.Create(ctx, &entity.Product{
		ID: "p2", ShopID: shopID, Name: "Sal", SKU: "SAL", UnitCost: decimal.NewFromInt(2), Stock: 1, ReorderPoint: 10,
	}))
	_, err := uc.SetReorderSettings(ctx, shopID, actorID, "p1", dto.ReorderSettingsRequest{BranchID: "b1", ReorderPoint: 12, ReorderQuantity: 30})
	require.NoError(t, err)
	_, err = uc.AdjustStock(ctx, shopID, actorID, dto.AdjustStockRequest{ProductID: "p1", BranchID: "b1", QuantityChange: -4, Reason: "damage"})
	require.NoError(t, err)

	rep := inventory.NewReplenishmentUseCase(repos.Ledger, memory.NewBranchRepository(s))
	list, err := rep.GenerateReplenishmentList(ctx, shopID, "b1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	// p2 en b1 refleja el pool: 1 de 10 (90% de déficit) va primero
	assert.Equal(t, "p2", list[0].ProductID)
	assert.Equal(t, 14, list[0].SuggestedOrderQty, "sin cantidad de reorden: 15 - 1")
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, "p1", list[1].ProductID)
	assert.Equal(t, 6, list[1].CurrentStock)
	assert.Equal(t, 30, list[1].SuggestedOrderQty)
	assert.True(t, decimal.NewFromInt(300).Equal(list[1].EstimatedOrderCost))

	main, err := rep.GenerateReplenishmentList(ctx, shopID, "")
	require.NoError(t, err)
	require.Len(t, main, 1)
	assert.Equal(t, "p2", main[0].ProductID)
}
