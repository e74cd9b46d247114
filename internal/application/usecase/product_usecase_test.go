package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/usecase"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

const shopID = "shop-1"

func TestProductUseCase_CreateConStockInicialDejaAjuste(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewProductUseCase(memory.NewTxRunner(s), appinv.NewRecorder(false, logger.Nop()), s.Repos().Products, nil)
	ctx := context.Background()

	out, err := uc.Create(ctx, shopID, "admin-1", dto.CreateProductRequest{
		SKU: "CAF-250", Name: "Café 250g", UnitCost: decimal.NewFromInt(80), UnitPrice: decimal.NewFromInt(120), InitialStock: 24,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, out.Stock)

	got, err := uc.GetByID(ctx, shopID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, got.Stock)

	adjs, err := s.Repos().Adjustments.List(ctx, shopID, repository.AdjustmentFilter{ProductID: out.ID})
	require.NoError(t, err)
	require.Len(t, adjs, 1)
	assert.Equal(t, entity.ReasonPurchaseReceived, adjs[0].Reason)
	assert.Equal(t, 0, adjs[0].QuantityBefore)
	assert.Equal(t, 24, adjs[0].QuantityAfter)
}

func TestProductUseCase_SKUDuplicadoYOtraTienda(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewProductUseCase(memory.NewTxRunner(s), appinv.NewRecorder(false, logger.Nop()), s.Repos().Products, nil)
	ctx := context.Background()

	out, err := uc.Create(ctx, shopID, "admin-1", dto.CreateProductRequest{SKU: "X1", Name: "Uno"})
	require.NoError(t, err)

	_, err = uc.Create(ctx, shopID, "admin-1", dto.CreateProductRequest{SKU: "X1", Name: "Otro"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = uc.GetByID(ctx, "shop-2", out.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProductUseCase_UpdateNoTocaStockNiCosto(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewProductUseCase(memory.NewTxRunner(s), appinv.NewRecorder(false, logger.Nop()), s.Repos().Products, nil)
	ctx := context.Background()
	out, err := uc.Create(ctx, shopID, "admin-1", dto.CreateProductRequest{SKU: "X1", Name: "Uno", UnitCost: decimal.NewFromInt(5), InitialStock: 3})
	require.NoError(t, err)

	name := "Uno renombrado"
	price := decimal.NewFromInt(9)
	upd, err := uc.Update(ctx, shopID, "admin-1", out.ID, dto.UpdateProductRequest{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, name, upd.Name)
	assert.True(t, price.Equal(upd.UnitPrice))

	got, err := uc.GetByID(ctx, shopID, out.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock)
	assert.True(t, decimal.NewFromInt(5).Equal(got.UnitCost))
}

func TestBranchUseCase_CodigoUnicoYReservado(t *testing.T) {
	s := memory.NewStore()
	uc := usecase.NewBranchUseCase(memory.NewBranchRepository(s))
	ctx := context.Background()

	b, err := uc.Create(ctx, shopID, dto.CreateBranchRequest{Code: "cen", Name: "Centro"})
	require.NoError(t, err)
	assert.Equal(t, "CEN", b.Code)
	assert.True(t, b.Active)

	_, err = uc.Create(ctx, shopID, dto.CreateBranchRequest{Code: "CEN", Name: "Centro 2"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = uc.Create(ctx, shopID, dto.CreateBranchRequest{Code: "none", Name: "Principal"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	inactive := false
	upd, err := uc.Update(ctx, shopID, b.ID, dto.UpdateBranchRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, upd.Active)
}
