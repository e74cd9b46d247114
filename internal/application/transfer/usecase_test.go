package transfer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/transfer"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/internal/infrastructure/memory"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

const (
	shopID  = "shop-1"
	actorID = "user-1"
)

type fixture struct {
	store *memory.Store
	uc    *transfer.UseCase
	notes *mockNotes
	audit *auditSpy
}

type mockNotes struct{ mock.Mock }

func (m *mockNotes) GenerateDeliveryNote(ctx context.Context, note ports.DeliveryNote) ([]byte, error) {
	args := m.Called(ctx, note)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

type auditSpy struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditSpy) Record(_ context.Context, e entity.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, e.Action)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	ctx := context.Background()
	repos := s.Repos()
	for _, p := range []*entity.Product{
		{ID: "p1", ShopID: shopID, Name: "Arroz 1kg", SKU: "ARZ-1", UnitCost: decimal.NewFromInt(100), Stock: 50},
		{ID: "p2", ShopID: shopID, Name: "Azúcar 2kg", SKU: "AZU-2", UnitCost: decimal.NewFromInt(250), Stock: 20},
	} {
		require.NoError(t, repos.Products.Create(ctx, p))
	}
	branches := memory.NewBranchRepository(s)
	for _, b := range []*entity.Branch{
		{ID: "b1", ShopID: shopID, Code: "CEN", Name: "Centro", Active: true},
		{ID: "b2", ShopID: shopID, Code: "NOR", Name: "Norte", Active: true},
		{ID: "b3", ShopID: shopID, Code: "CER", Name: "Cerrada", Active: false},
	} {
		require.NoError(t, branches.Create(ctx, b))
	}

	f := &fixture{store: s, notes: &mockNotes{}, audit: &auditSpy{}}
	f.uc = transfer.NewUseCase(transfer.Config{StaleAfter: 72 * time.Hour, NumberPrefix: "TRF", ConflictRetries: 3}, transfer.Deps{
		TxRunner:  memory.NewTxRunner(s),
		Recorder:  appinv.NewRecorder(false, logger.Nop()),
		Transfers: repos.Transfers,
		Branches:  branches,
		Sequencer: memory.NewSequencer(),
		Notes:     f.notes,
		Audit:     f.audit,
		Logger:    logger.Nop(),
	})
	return f
}

func (f *fixture) stock(t *testing.T, productID, branchID string) int {
	t.Helper()
	qty, err := f.store.Repos().Ledger.GetStock(context.Background(), repository.StockKey{ShopID: shopID, ProductID: productID, BranchID: branchID})
	require.NoError(t, err)
	return qty
}

func (f *fixture) create(t *testing.T, from, to string, items ...dto.TransferItemRequest) *dto.TransferResponse {
	t.Helper()
	out, err := f.uc.Create(context.Background(), shopID, actorID, dto.CreateTransferRequest{
		FromBranchID: from,
		ToBranchID:   to,
		Items:        items,
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) shipped(t *testing.T, from, to string, items ...dto.TransferItemRequest) *dto.TransferResponse {
	t.Helper()
	ctx := context.Background()
	tr := f.create(t, from, to, items...)
	_, err := f.uc.Approve(ctx, shopID, "manager-1", tr.ID)
	require.NoError(t, err)
	out, err := f.uc.Ship(ctx, shopID, actorID, tr.ID, dto.ShipTransferRequest{TrackingNumber: "GUIA-1", Carrier: "Moto"})
	require.NoError(t, err)
	return out
}

func line(productID string, qty int) dto.TransferItemRequest {
	return dto.TransferItemRequest{ProductID: productID, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_PendienteConSnapshotDeCostoYNumero(t *testing.T) {
	f := newFixture(t)
	f.uc.SetClock(func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) })

	out := f.create(t, "", "b1", line("p1", 10), line("p2", 2))

	assert.Equal(t, "pending_approval", out.Status)
	assert.Equal(t, "TRF-20240301-0001", out.TransferNumber)
	assert.True(t, out.IsFromMainStore)
	assert.False(t, out.IsToMainStore)
	assert.Equal(t, entity.MainStoreID, out.FromBranchID)
	assert.Equal(t, "normal", out.Priority)
	assert.True(t, decimal.NewFromInt(1500).Equal(out.TotalValue), "10×100 + 2×250")
	assert.Equal(t, 50, f.stock(t, "p1", ""), "crear no descuenta stock")
	assert.Equal(t, []string{"transfer.create"}, f.audit.actions)

	second := f.create(t, "", "b2", line("p1", 1))
	assert.Equal(t, "TRF-20240301-0002", second.TransferNumber)
}

func TestCreate_OrigenIgualDestinoEsValidacion(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Create(context.Background(), shopID, actorID, dto.CreateTransferRequest{
		FromBranchID: "none", ToBranchID: "", Items: []dto.TransferItemRequest{line("p1", 1)},
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCreate_StockInsuficienteDevuelveFaltantes(t *testing.T) {
	f := newFixture(t)
	_, err := f.uc.Create(context.Background(), shopID, actorID, dto.CreateTransferRequest{
		FromBranchID: "b1", ToBranchID: "b2", Items: []dto.TransferItemRequest{line("p1", 60), line("p2", 25)},
	})
	var ise *domain.InsufficientStockError
	require.True(t, errors.As(err, &ise))
	require.Len(t, ise.Shortfalls, 2)
	assert.Equal(t, "Stock insuficiente de Arroz 1kg en la sucursal b1. Disponible: 50, Solicitado: 60", ise.Shortfalls[0].Message())
}

func TestCreate_SucursalInactivaOInexistente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Create(ctx, shopID, actorID, dto.CreateTransferRequest{ToBranchID: "b3", Items: []dto.TransferItemRequest{line("p1", 1)}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.uc.Create(ctx, shopID, actorID, dto.CreateTransferRequest{ToBranchID: "zz", Items: []dto.TransferItemRequest{line("p1", 1)}})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreate_BorradorDifiereValidacionHastaSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	draft, err := f.uc.Create(ctx, shopID, actorID, dto.CreateTransferRequest{
		ToBranchID: "b1", Items: []dto.TransferItemRequest{line("p1", 80)}, SaveAsDraft: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "draft", draft.Status)

	_, err = f.uc.Submit(ctx, shopID, actorID, draft.ID)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	got, err := f.uc.Get(ctx, shopID, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Status)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ciclo de vida
// ──────────────────────────────────────────────────────────────────────────────

func TestLifecycle_EnvioDescuentaOrigenYRecepcionSumaUtilizables(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tr := f.shipped(t, "", "b1", line("p1", 10))
	assert.Equal(t, "in_transit", tr.Status)
	assert.Equal(t, 40, f.stock(t, "p1", ""))
	assert.Equal(t, 40, f.stock(t, "p1", "b1"), "b1 sin entrada refleja el pool principal")

	out, err := f.uc.Receive(ctx, shopID, "user-2", tr.ID, dto.ReceiveTransferRequest{
		Items: []dto.ReceiveItemRequest{{ProductID: "p1", ReceivedQuantity: 10, DamagedQuantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "received", out.Status)
	assert.Equal(t, 10, out.Items[0].ReceivedQuantity)
	assert.Equal(t, 2, out.Items[0].DamagedQuantity)
	// b1 se siembra desde el pool (40) y suma 8 utilizables
	assert.Equal(t, 48, f.stock(t, "p1", "b1"))

	bs, err := f.store.Repos().Ledger.GetBranchStock(ctx, repository.StockKey{ShopID: shopID, ProductID: "p1", BranchID: "b1"})
	require.NoError(t, err)
	require.NotNil(t, bs)
	assert.NotNil(t, bs.LastRestockDate)

	adjs, err := f.store.Repos().Adjustments.List(ctx, shopID, repository.AdjustmentFilter{Reference: tr.TransferNumber})
	require.NoError(t, err)
	require.Len(t, adjs, 2)
	for _, a := range adjs {
		assert.Equal(t, entity.ReasonTransfer, a.Reason)
	}
}

func TestReceive_ParcialYLuegoCompleta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.shipped(t, "b1", "b2", line("p1", 10), line("p2", 4))

	out, err := f.uc.Receive(ctx, shopID, actorID, tr.ID, dto.ReceiveTransferRequest{Items: []dto.ReceiveItemRequest{
		{ProductID: "p1", ReceivedQuantity: 6},
		{ProductID: "p2", ReceivedQuantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "partially_received", out.Status)

	out, err = f.uc.Receive(ctx, shopID, actorID, tr.ID, dto.ReceiveTransferRequest{Items: []dto.ReceiveItemRequest{
		{ProductID: "p1", ReceivedQuantity: 4},
		{ProductID: "p2", ReceivedQuantity: 3},
	}})
	require.NoError(t, err)
	assert.Equal(t, "received", out.Status)
	for _, it := range out.Items {
		assert.Equal(t, it.Quantity, it.ReceivedQuantity)
	}
	assert.Equal(t, 40, f.stock(t, "p1", "b1"))
	assert.Equal(t, 60, f.stock(t, "p1", "b2"))
}

func TestReceive_ExcesoNoModificaNada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.shipped(t, "", "b1", line("p1", 5))

	_, err := f.uc.Receive(ctx, shopID, actorID, tr.ID, dto.ReceiveTransferRequest{Items: []dto.ReceiveItemRequest{
		{ProductID: "p1", ReceivedQuantity: 6},
	}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	got, err := f.uc.Get(ctx, shopID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_transit", got.Status)
	assert.Equal(t, 0, got.Items[0].ReceivedQuantity)
}

func TestShip_RequiereAprobada(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "", "b1", line("p1", 1))

	_, err := f.uc.Ship(context.Background(), shopID, actorID, tr.ID, dto.ShipTransferRequest{})
	var ce *domain.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "pending_approval", ce.Current)
	assert.Equal(t, 50, f.stock(t, "p1", ""))
}

func TestShip_SinStockAlEnviarNoDescuentaNingunaLinea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, "", "b1", line("p1", 10), line("p2", 15))
	_, err := f.uc.Approve(ctx, shopID, "manager-1", tr.ID)
	require.NoError(t, err)

	// el stock no se reserva al crear: otra salida lo consume antes del envío
	_, err = f.store.Repos().Ledger.ApplyDelta(ctx, repository.StockKey{ShopID: shopID, ProductID: "p2"}, -10, false)
	require.NoError(t, err)

	_, err = f.uc.Ship(ctx, shopID, actorID, tr.ID, dto.ShipTransferRequest{})
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, 50, f.stock(t, "p1", ""))

	got, err := f.uc.Get(ctx, shopID, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, "approved", got.Status)
}

func TestShip_ConcurrenteSoloUnoGana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, "", "b1", line("p1", 10))
	_, err := f.uc.Approve(ctx, shopID, "manager-1", tr.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Ship(ctx, shopID, actorID, tr.ID, dto.ShipTransferRequest{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, domain.ErrConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, conflicts)
	assert.Equal(t, 40, f.stock(t, "p1", ""), "se descuenta una sola vez")
}

// ──────────────────────────────────────────────────────────────────────────────
// Rechazo y cancelación
// ──────────────────────────────────────────────────────────────────────────────

func TestReject_MotivoObligatorio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, "", "b1", line("p1", 1))

	_, err := f.uc.Reject(ctx, shopID, "manager-1", tr.ID, dto.RejectTransferRequest{Reason: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	out, err := f.uc.Reject(ctx, shopID, "manager-1", tr.ID, dto.RejectTransferRequest{Reason: "sin transporte"})
	require.NoError(t, err)
	assert.Equal(t, "rejected", out.Status)
	assert.Equal(t, "sin transporte", out.RejectionReason)

	_, err = f.uc.Cancel(ctx, shopID, actorID, tr.ID, dto.CancelTransferRequest{Reason: "x"})
	assert.True(t, errors.Is(err, domain.ErrConflict), "rejected es terminal")
}

func TestCancel_EnTransitoEsNetoCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	before := f.stock(t, "p1", "b1")
	tr := f.shipped(t, "b1", "b2", line("p1", 7))
	assert.Equal(t, before-7, f.stock(t, "p1", "b1"))

	out, err := f.uc.Cancel(ctx, shopID, actorID, tr.ID, dto.CancelTransferRequest{Reason: "vehículo averiado"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	assert.Equal(t, before, f.stock(t, "p1", "b1"))
}

func TestCancel_ParcialDevuelveSoloLoPendiente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.shipped(t, "", "b1", line("p1", 10))
	_, err := f.uc.Receive(ctx, shopID, actorID, tr.ID, dto.ReceiveTransferRequest{Items: []dto.ReceiveItemRequest{
		{ProductID: "p1", ReceivedQuantity: 4},
	}})
	require.NoError(t, err)

	_, err = f.uc.Cancel(ctx, shopID, actorID, tr.ID, dto.CancelTransferRequest{Reason: "resto extraviado"})
	require.NoError(t, err)
	assert.Equal(t, 46, f.stock(t, "p1", ""), "50 - 10 enviados + 6 devueltos")
}

func TestCancel_AntesDeEnviarNoTocaLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr := f.create(t, "", "b1", line("p1", 3))
	_, err := f.uc.Approve(ctx, shopID, "manager-1", tr.ID)
	require.NoError(t, err)

	_, err = f.uc.Cancel(ctx, shopID, actorID, tr.ID, dto.CancelTransferRequest{Reason: "ya no se requiere"})
	require.NoError(t, err)
	assert.Equal(t, 50, f.stock(t, "p1", ""))
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

func TestListStale_SoloEnviadasAntiguas(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f.uc.SetClock(func() time.Time { return base })
	old := f.shipped(t, "", "b1", line("p1", 1))

	f.uc.SetClock(func() time.Time { return base.Add(70 * time.Hour) })
	f.shipped(t, "", "b2", line("p1", 1))

	f.uc.SetClock(func() time.Time { return base.Add(80 * time.Hour) })
	out, err := f.uc.ListStale(context.Background(), shopID)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, old.ID, out.Items[0].ID)
}

func TestGet_OtraTiendaEsNotFound(t *testing.T) {
	f := newFixture(t)
	tr := f.create(t, "", "b1", line("p1", 1))
	_, err := f.uc.Get(context.Background(), "otra-tienda", tr.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDeliveryNote_RequiereEnvio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t, "", "b1", line("p1", 1))
	_, _, err := f.uc.DeliveryNote(ctx, shopID, "Duka", pending.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	tr := f.shipped(t, "", "b1", line("p1", 2))
	f.notes.On("GenerateDeliveryNote", mock.Anything, mock.MatchedBy(func(n ports.DeliveryNote) bool {
		return n.FromName == "Almacén principal" && n.ToName == "Centro" && n.Transfer.ID == tr.ID
	})).Return([]byte("%PDF"), nil).Once()

	pdf, name, err := f.uc.DeliveryNote(ctx, shopID, "Duka", tr.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), pdf)
	assert.Equal(t, tr.TransferNumber+".pdf", name)
	f.notes.AssertExpectations(t)
}
