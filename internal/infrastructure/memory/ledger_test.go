package memory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
)

const shop = "shop-1"

func seedProduct(t *testing.T, s *memory.Store, id string, stock int) {
	t.Helper()
	err := s.Repos().Products.Create(context.Background(), &entity.Product{
		ID:        id,
		ShopID:    shop,
		Name:      "Producto " + id,
		SKU:       "SKU-" + id,
		UnitCost:  decimal.NewFromInt(10),
		UnitPrice: decimal.NewFromInt(15),
		Stock:     stock,
	})
	require.NoError(t, err)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sembrado de sucursal y fallback al pool principal
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_SucursalSinEntradaReflejaPoolPrincipal(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 40)
	ledger := memory.NewLedgerRepository(s)
	ctx := context.Background()

	qty, err := ledger.GetStock(ctx, repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"})
	require.NoError(t, err)
	assert.Equal(t, 40, qty)

	bs, err := ledger.GetBranchStock(ctx, repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"})
	require.NoError(t, err)
	assert.Nil(t, bs)
}

func TestLedger_PrimeraEscrituraSiembraDesdePoolPrincipal(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 40)
	ledger := memory.NewLedgerRepository(s)
	ctx := context.Background()
	key := repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"}

	res, err := ledger.ApplyDelta(ctx, key, -5, false)
	require.NoError(t, err)
	assert.Equal(t, 40, res.Previous)
	assert.Equal(t, 35, res.Current)

	// el pool principal no cambia
	main, err := ledger.GetStock(ctx, repository.StockKey{ShopID: shop, ProductID: "p1"})
	require.NoError(t, err)
	assert.Equal(t, 40, main)
}

func TestLedger_ProductoDeOtraTiendaEsNotFound(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 10)
	ledger := memory.NewLedgerRepository(s)

	_, err := ledger.ApplyDelta(context.Background(), repository.StockKey{ShopID: "otra", ProductID: "p1"}, 1, false)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

// ──────────────────────────────────────────────────────────────────────────────
// Política de stock negativo
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_RechazaNegativoConFaltanteEstructurado(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 3)
	ledger := memory.NewLedgerRepository(s)

	_, err := ledger.ApplyDelta(context.Background(), repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"}, -5, false)
	require.Error(t, err)
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	require.Len(t, ise.Shortfalls, 1)
	assert.Equal(t, 3, ise.Shortfalls[0].Available)
	assert.Equal(t, 5, ise.Shortfalls[0].Requested)
	assert.Contains(t, err.Error(), "Disponible: 3, Solicitado: 5")
}

func TestLedger_PermiteNegativoConBandera(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 3)
	ledger := memory.NewLedgerRepository(s)

	res, err := ledger.ApplyDelta(context.Background(), repository.StockKey{ShopID: shop, ProductID: "p1"}, -5, true)
	require.NoError(t, err)
	assert.Equal(t, -2, res.Current)
	assert.True(t, res.Negative)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia: sin actualizaciones perdidas
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_DeltasConcurrentesNoPierdenActualizaciones(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 1000)
	runner := memory.NewTxRunner(s)
	ctx := context.Background()
	key := repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			delta := -3
			if i%2 == 0 {
				delta = 1
			}
			err := runner.Run(ctx, func(ctx context.Context, st ports.Stores) error {
				_, err := st.Ledger.ApplyDelta(ctx, key, delta, false)
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	qty, err := memory.NewLedgerRepository(s).GetStock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 1000+50*1-50*3, qty)
}

func TestLedger_UltimaUnidadSoloUnaVentaGana(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 1)
	ledger := memory.NewLedgerRepository(s)
	key := repository.StockKey{ShopID: shop, ProductID: "p1"}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.ApplyDelta(context.Background(), key, -1, false); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
}

// ──────────────────────────────────────────────────────────────────────────────
// Transacciones
// ──────────────────────────────────────────────────────────────────────────────

func TestTxRunner_RollbackDeshaceLedgerYAjustes(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 10)
	runner := memory.NewTxRunner(s)
	ctx := context.Background()
	key := repository.StockKey{ShopID: shop, ProductID: "p1", BranchID: "b1"}
	boom := errors.New("boom")

	err := runner.Run(ctx, func(ctx context.Context, st ports.Stores) error {
		if _, err := st.Ledger.ApplyDelta(ctx, key, -4, false); err != nil {
			return err
		}
		if err := st.Adjustments.Append(ctx, &entity.StockAdjustment{
			ID: "a1", ShopID: shop, ProductID: "p1", BranchID: "b1",
			QuantityChange: -4, Reason: entity.ReasonCorrection, CreatedAt: time.Now(),
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	repos := s.Repos()
	bs, err := repos.Ledger.GetBranchStock(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, bs, "la entrada sembrada debe desaparecer")

	adjs, err := repos.Adjustments.List(ctx, shop, repository.AdjustmentFilter{})
	require.NoError(t, err)
	assert.Empty(t, adjs)
}

func TestTxRunner_PanicHaceRollback(t *testing.T) {
	s := memory.NewStore()
	seedProduct(t, s, "p1", 10)
	runner := memory.NewTxRunner(s)
	ctx := context.Background()
	key := repository.StockKey{ShopID: shop, ProductID: "p1"}

	err := runner.Run(ctx, func(ctx context.Context, st ports.Stores) error {
		_, _ = st.Ledger.ApplyDelta(ctx, key, -4, false)
		panic("fallo inesperado")
	})
	require.Error(t, err)

	qty, err := s.Repos().Ledger.GetStock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cola de descuentos
// ──────────────────────────────────────────────────────────────────────────────

func TestDeductionQueue_MarkAppliedEsIdempotente(t *testing.T) {
	s := memory.NewStore()
	q := memory.NewDeductionQueue(s)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, q.Enqueue(ctx, []*entity.DeductionJob{{
		ID: "j1", ShopID: shop, OrderID: "o1", ProductID: "p1", Quantity: 1,
		Status: entity.DeductionPending, NextAttemptAt: now,
	}}))

	ok, err := q.MarkApplied(ctx, "j1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.MarkApplied(ctx, "j1", now)
	require.NoError(t, err)
	assert.False(t, ok, "un job aplicado no se vuelve a reclamar")

	due, err := q.ListDue(ctx, now.Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestDeductionQueue_DeadSeReencola(t *testing.T) {
	s := memory.NewStore()
	q := memory.NewDeductionQueue(s)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, q.Enqueue(ctx, []*entity.DeductionJob{{
		ID: "j1", ShopID: shop, OrderID: "o1", ProductID: "p1", Quantity: 1,
		Status: entity.DeductionPending, NextAttemptAt: now,
	}}))
	require.NoError(t, q.MarkFailed(ctx, "j1", "sin stock", now, true))

	dead, err := q.ListByStatus(ctx, shop, []entity.DeductionStatus{entity.DeductionDead}, 10, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 1, dead[0].Attempts)

	ok, err := q.Requeue(ctx, shop, "j1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	due, err := q.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 0, due[0].Attempts)
}

func TestSequencer_ConsecutivoPorDia(t *testing.T) {
	seq := memory.NewSequencer()
	ctx := context.Background()
	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	n1, _ := seq.Next(ctx, shop, "transfer", day)
	n2, _ := seq.Next(ctx, shop, "transfer", day)
	n3, _ := seq.Next(ctx, shop, "transfer", day.AddDate(0, 0, 1))
	assert.Equal(t, int64(1), n1)
	assert.Equal(t, int64(2), n2)
	assert.Equal(t, int64(1), n3)
}
