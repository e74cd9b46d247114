package checkout_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/checkout"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

const (
	shopID    = "shop-1"
	cashierID = "cashier-1"
)

// ──────────────────────────────────────────────────────────────────────────────
// Ledger con fallas inyectadas
// ──────────────────────────────────────────────────────────────────────────────

// flakyRunner envuelve el TxRunner en memoria y hace fallar los descuentos de un producto
// mientras queden fallas configuradas.
type flakyRunner struct {
	inner    ports.TxRunner
	product  string
	mu       sync.Mutex
	failures int
}

func (r *flakyRunner) setFailures(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
}

func (r *flakyRunner) take() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures == 0 {
		return false
	}
	r.failures--
	return true
}

func (r *flakyRunner) Run(ctx context.Context, fn func(ctx context.Context, s ports.Stores) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		s.Ledger = &flakyLedger{LedgerRepository: s.Ledger, r: r}
		return fn(ctx, s)
	})
}

type flakyLedger struct {
	repository.LedgerRepository
	r *flakyRunner
}

func (l *flakyLedger) ApplyDelta(ctx context.Context, key repository.StockKey, delta int, allowNegative bool) (repository.LedgerResult, error) {
	if key.ProductID == l.r.product && delta < 0 && l.r.take() {
		return repository.LedgerResult{}, errors.New("ledger no disponible")
	}
	return l.LedgerRepository.ApplyDelta(ctx, key, delta, allowNegative)
}

// interleavedRunner ejecuta after una sola vez, justo después del primer commit exitoso.
type interleavedRunner struct {
	inner ports.TxRunner
	armed atomic.Bool
	after func()
}

func (r *interleavedRunner) Run(ctx context.Context, fn func(ctx context.Context, s ports.Stores) error) error {
	err := r.inner.Run(ctx, fn)
	if err == nil && r.armed.CompareAndSwap(true, false) {
		r.after()
	}
	return err
}

// staleRunner hace que GetStock vea unidades que otra transacción ya consumió.
type staleRunner struct {
	inner ports.TxRunner
	extra int
}

func (r *staleRunner) Run(ctx context.Context, fn func(ctx context.Context, s ports.Stores) error) error {
	return r.inner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		s.Ledger = &staleLedger{LedgerRepository: s.Ledger, extra: r.extra}
		return fn(ctx, s)
	})
}

type staleLedger struct {
	repository.LedgerRepository
	extra int
}

func (l *staleLedger) GetStock(ctx context.Context, key repository.StockKey) (int, error) {
	qty, err := l.LedgerRepository.GetStock(ctx, key)
	return qty + l.extra, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

type fixture struct {
	store  *memory.Store
	runner *flakyRunner
	binder *checkout.Binder
	now    time.Time
}

func newFixture(t *testing.T, allowNegative bool, maxAttempts int) *fixture {
	t.Helper()
	s := memory.NewStore()
	ctx := context.Background()
	repos := s.Repos()
	for _, p := range []*entity.Product{
		{ID: "p1", ShopID: shopID, Name: "Leche 1L", SKU: "LEC-1", UnitPrice: decimal.NewFromInt(60), Stock: 10},
		{ID: "p2", ShopID: shopID, Name: "Pan tajado", SKU: "PAN-1", UnitPrice: decimal.NewFromInt(45), Stock: 2},
	} {
		require.NoError(t, repos.Products.Create(ctx, p))
	}
	branches := memory.NewBranchRepository(s)
	require.NoError(t, branches.Create(ctx, &entity.Branch{ID: "b1", ShopID: shopID, Code: "CEN", Name: "Centro", Active: true}))

	f := &fixture{
		store:  s,
		runner: &flakyRunner{inner: memory.NewTxRunner(s), product: "p1"},
		now:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.binder = checkout.NewBinder(checkout.Config{MaxAttempts: maxAttempts, BaseBackoff: 10 * time.Second, BatchSize: 10}, checkout.Deps{
		TxRunner:   f.runner,
		Recorder:   appinv.NewRecorder(allowNegative, logger.Nop()),
		Orders:     repos.Orders,
		Deductions: repos.Deductions,
		Branches:   branches,
		Sequencer:  memory.NewSequencer(),
		Logger:     logger.Nop(),
	})
	f.binder.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) stock(t *testing.T, productID, branchID string) int {
	t.Helper()
	qty, err := f.store.Repos().Ledger.GetStock(context.Background(), repository.StockKey{ShopID: shopID, ProductID: productID, BranchID: branchID})
	require.NoError(t, err)
	return qty
}

func (f *fixture) adjustments(t *testing.T, reference string) []*entity.StockAdjustment {
	t.Helper()
	list, err := f.store.Repos().Adjustments.List(context.Background(), shopID, repository.AdjustmentFilter{Reference: reference})
	require.NoError(t, err)
	return list
}

func sale(items ...dto.CheckoutItemRequest) dto.CheckoutRequest {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return dto.CheckoutRequest{
		Items:    items,
		Payments: []dto.PaymentRequest{{Method: "cash", Amount: total}},
	}
}

func item(productID string, qty int) dto.CheckoutItemRequest {
	return dto.CheckoutItemRequest{ProductID: productID, Quantity: qty, UnitPrice: decimal.NewFromInt(50)}
}

// ──────────────────────────────────────────────────────────────────────────────
// Checkout
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_TodoEnStockDescuentaYRegistraVentaPorLinea(t *testing.T) {
	f := newFixture(t, false, 3)

	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, sale(item("p1", 3), item("p2", 2)))
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, "ORD-20240301-0001", out.OrderNumber)
	require.Len(t, out.Lines, 2)
	for _, l := range out.Lines {
		assert.Equal(t, "applied", l.Status)
	}
	assert.Empty(t, out.StockWarnings)

	assert.Equal(t, 7, f.stock(t, "p1", ""))
	assert.Equal(t, 0, f.stock(t, "p2", ""))

	adjs := f.adjustments(t, out.OrderNumber)
	require.Len(t, adjs, 2)
	for _, a := range adjs {
		assert.Equal(t, entity.ReasonSale, a.Reason)
		assert.Equal(t, cashierID, a.ActorID)
	}
}

func TestCheckout_LineaDosSinStockRechazaTodo(t *testing.T) {
	f := newFixture(t, false, 3)
	req := sale(item("p1", 1), item("p2", 5))
	req.OrderReference = "POS-77"

	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, req)
	require.NoError(t, err)
	assert.False(t, out.Success)
	require.Len(t, out.Shortfalls, 1)
	assert.Equal(t, "p2", out.Shortfalls[0].ProductID)
	assert.Equal(t, 2, out.Shortfalls[0].Available)
	assert.Equal(t, 5, out.Shortfalls[0].Requested)
	assert.Equal(t, "Stock insuficiente de Pan tajado en el almacén principal. Disponible: 2, Solicitado: 5", out.Shortfalls[0].Message())

	assert.Empty(t, f.adjustments(t, "POS-77"))
	assert.Equal(t, 10, f.stock(t, "p1", ""))
	jobs, err := f.binder.ListDeductions(context.Background(), shopID, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCheckout_LineasRepetidasSeAgreganAlValidar(t *testing.T) {
	f := newFixture(t, false, 3)
	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, sale(item("p2", 1), item("p2", 2)))
	require.NoError(t, err)
	assert.False(t, out.Success)
	require.Len(t, out.Shortfalls, 1)
	assert.Equal(t, 3, out.Shortfalls[0].Requested)
}

func TestCheckout_PoliticaAllowVendeContraStockEntranteConAdvertencia(t *testing.T) {
	f := newFixture(t, true, 3)
	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, sale(item("p2", 5)))
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Len(t, out.StockWarnings, 1)
	assert.Equal(t, -3, f.stock(t, "p2", ""))
}

func TestCheckout_SucursalSembradaDesdePool(t *testing.T) {
	f := newFixture(t, false, 3)
	req := sale(item("p1", 4))
	req.BranchID = "b1"
	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, req)
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, 6, f.stock(t, "p1", "b1"))
	assert.Equal(t, 10, f.stock(t, "p1", ""))
}

func TestCheckout_ValidacionesDeEntrada(t *testing.T) {
	f := newFixture(t, false, 3)
	ctx := context.Background()

	_, err := f.binder.Checkout(ctx, shopID, cashierID, dto.CheckoutRequest{})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	req := sale(item("p1", 1))
	req.Payments[0].Method = "cheque"
	_, err = f.binder.Checkout(ctx, shopID, cashierID, req)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.binder.Checkout(ctx, shopID, cashierID, sale(item("zz", 1)))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCheckout_ReferenciaDuplicadaEsConflicto(t *testing.T) {
	f := newFixture(t, false, 3)
	req := sale(item("p1", 1))
	req.OrderReference = "POS-1"
	_, err := f.binder.Checkout(context.Background(), shopID, cashierID, req)
	require.NoError(t, err)

	_, err = f.binder.Checkout(context.Background(), shopID, cashierID, req)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, 9, f.stock(t, "p1", ""))
}

func TestCheckout_RejectDosVentasSobreUltimasUnidadesSoloUnaGana(t *testing.T) {
	f := newFixture(t, false, 3)
	ctx := context.Background()

	var second *dto.CheckoutResponse
	var secondErr error
	ir := &interleavedRunner{inner: f.runner.inner}
	ir.after = func() {
		second, secondErr = f.binder.Checkout(ctx, shopID, "cashier-2", sale(item("p2", 1)))
	}
	ir.armed.Store(true)
	f.runner.inner = ir

	first, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p2", 2)))
	require.NoError(t, err)
	require.True(t, first.Success)
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "applied", first.Lines[0].Status)

	require.NoError(t, secondErr)
	require.NotNil(t, second)
	assert.False(t, second.Success)
	require.Len(t, second.Shortfalls, 1)
	assert.Equal(t, 0, second.Shortfalls[0].Available)
	assert.Equal(t, 1, second.Shortfalls[0].Requested)

	assert.Equal(t, 0, f.stock(t, "p2", ""))
	assert.Len(t, f.adjustments(t, first.OrderNumber), 1)
	jobs, err := f.binder.ListDeductions(ctx, shopID, []string{"applied", "pending", "failed"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "applied", jobs[0].Status)
	assert.Equal(t, 1, jobs[0].Attempts)
	assert.Equal(t, first.OrderNumber, jobs[0].OrderNumber)
}

func TestCheckout_RejectLecturaDesactualizadaLaFrenaElDecrementoCondicional(t *testing.T) {
	f := newFixture(t, false, 3)
	ctx := context.Background()
	f.runner.inner = &staleRunner{inner: f.runner.inner, extra: 5}
	req := sale(item("p1", 1), item("p2", 3))
	req.OrderReference = "POS-9"

	out, err := f.binder.Checkout(ctx, shopID, cashierID, req)
	require.NoError(t, err)
	assert.False(t, out.Success)
	require.Len(t, out.Shortfalls, 1)
	assert.Equal(t, "p2", out.Shortfalls[0].ProductID)
	assert.Equal(t, "Pan tajado", out.Shortfalls[0].Name)
	assert.Equal(t, 2, out.Shortfalls[0].Available)

	assert.Equal(t, 10, f.stock(t, "p1", ""))
	assert.Equal(t, 2, f.stock(t, "p2", ""))
	assert.Empty(t, f.adjustments(t, "POS-9"))
	jobs, err := f.binder.ListDeductions(ctx, shopID, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestCheckout_RejectFallaDelLedgerNoRegistraVenta(t *testing.T) {
	f := newFixture(t, false, 3)
	ctx := context.Background()
	f.runner.setFailures(1)
	req := sale(item("p1", 2))
	req.OrderReference = "POS-10"

	_, err := f.binder.Checkout(ctx, shopID, cashierID, req)
	require.Error(t, err)
	assert.Equal(t, 10, f.stock(t, "p1", ""))
	jobs, err := f.binder.ListDeductions(ctx, shopID, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// el reintento del cliente con la misma referencia no choca con una orden fantasma
	out, err := f.binder.Checkout(ctx, shopID, cashierID, req)
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, 8, f.stock(t, "p1", ""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Fallas post-venta y cola de reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestCheckout_FallaPostVentaNoRevierteOrdenYSeReintenta(t *testing.T) {
	f := newFixture(t, true, 5)
	ctx := context.Background()
	f.runner.setFailures(1)

	out, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p1", 2), item("p2", 1)))
	require.NoError(t, err)
	require.True(t, out.Success)
	require.Len(t, out.Lines, 2)
	assert.Equal(t, "pending", out.Lines[0].Status)
	assert.Equal(t, "applied", out.Lines[1].Status)
	require.Len(t, out.StockWarnings, 1)
	assert.Contains(t, out.StockWarnings[0], "Leche 1L")

	order, err := f.binder.GetOrder(ctx, shopID, out.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "completed", order.Status)
	assert.Len(t, order.StockWarnings, 1)
	assert.Equal(t, 10, f.stock(t, "p1", ""))
	assert.Equal(t, 1, f.stock(t, "p2", ""))

	// antes del backoff no hay nada vencido
	applied, failed, err := f.binder.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied+failed)

	f.now = f.now.Add(11 * time.Second)
	applied, failed, err = f.binder.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Zero(t, failed)
	assert.Equal(t, 8, f.stock(t, "p1", ""))
	assert.Len(t, f.adjustments(t, out.OrderNumber), 2)
}

func TestDeductions_AgotaReintentosYQuedaDeadLuegoSeReencola(t *testing.T) {
	f := newFixture(t, true, 2)
	ctx := context.Background()
	f.runner.setFailures(100)

	out, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p1", 1)))
	require.NoError(t, err)
	require.True(t, out.Success)
	assert.Equal(t, "pending", out.Lines[0].Status)

	f.now = f.now.Add(time.Minute)
	_, failed, err := f.binder.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	dead, err := f.binder.ListDeductions(ctx, shopID, []string{"dead"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Attempts)
	assert.Equal(t, "ledger no disponible", dead[0].LastError)

	// un job dead no vuelve a procesarse solo
	f.now = f.now.Add(time.Hour)
	applied, failed, err := f.binder.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied+failed)

	f.runner.setFailures(0)
	job, err := f.binder.RequeueDeduction(ctx, shopID, "manager-1", dead[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "applied", job.Status)
	assert.Equal(t, 9, f.stock(t, "p1", ""))

	_, err = f.binder.RequeueDeduction(ctx, shopID, "manager-1", dead[0].ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRequeueDeduction_FallaDeNuevoDevuelveElError(t *testing.T) {
	f := newFixture(t, true, 1)
	ctx := context.Background()
	f.runner.setFailures(100)

	out, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p1", 1)))
	require.NoError(t, err)
	assert.Equal(t, "failed", out.Lines[0].Status)

	dead, err := f.binder.ListDeductions(ctx, shopID, []string{"dead"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, dead, 1)

	job, err := f.binder.RequeueDeduction(ctx, shopID, "manager-1", dead[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "dead", job.Status)
	assert.Equal(t, "ledger no disponible", job.LastError)
	assert.Equal(t, 10, f.stock(t, "p1", ""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Anulación
// ──────────────────────────────────────────────────────────────────────────────

func TestVoidOrder_DevuelveDescuentosAplicados(t *testing.T) {
	f := newFixture(t, false, 3)
	ctx := context.Background()
	out, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p1", 3)))
	require.NoError(t, err)

	_, err = f.binder.VoidOrder(ctx, shopID, "manager-1", out.OrderID, dto.VoidOrderRequest{Reason: ""})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	order, err := f.binder.VoidOrder(ctx, shopID, "manager-1", out.OrderID, dto.VoidOrderRequest{Reason: "cliente devolvió"})
	require.NoError(t, err)
	assert.Equal(t, "void", order.Status)
	assert.Equal(t, 10, f.stock(t, "p1", ""))

	adjs, err := f.store.Repos().Adjustments.List(ctx, shopID, repository.AdjustmentFilter{Reference: out.OrderNumber, Reason: entity.ReasonReturn})
	require.NoError(t, err)
	assert.Len(t, adjs, 1)

	_, err = f.binder.VoidOrder(ctx, shopID, "manager-1", out.OrderID, dto.VoidOrderRequest{Reason: "otra vez"})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestVoidOrder_CancelaDescuentosPendientesSinDevolver(t *testing.T) {
	f := newFixture(t, true, 5)
	ctx := context.Background()
	f.runner.setFailures(1)
	out, err := f.binder.Checkout(ctx, shopID, cashierID, sale(item("p1", 3)))
	require.NoError(t, err)
	require.Equal(t, "pending", out.Lines[0].Status)

	_, err = f.binder.VoidOrder(ctx, shopID, "manager-1", out.OrderID, dto.VoidOrderRequest{Reason: "error de caja"})
	require.NoError(t, err)
	assert.Equal(t, 10, f.stock(t, "p1", ""))

	cancelled, err := f.binder.ListDeductions(ctx, shopID, []string{"cancelled"}, 10, 0)
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)

	f.now = f.now.Add(time.Hour)
	applied, _, err := f.binder.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, applied)
}

func TestGetOrder_OtraTiendaEsNotFound(t *testing.T) {
	f := newFixture(t, false, 3)
	out, err := f.binder.Checkout(context.Background(), shopID, cashierID, sale(item("p1", 1)))
	require.NoError(t, err)
	_, err = f.binder.GetOrder(context.Background(), "otra", out.OrderID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
