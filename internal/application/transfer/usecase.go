// Package transfer implementa el motor de transferencias de stock entre ubicaciones de una tienda.
//
// Cada transición se ejecuta en una transacción y se confirma con una actualización condicionada
// al estado y la versión leídos; si otra escritura gana la carrera la llamada falla con
// domain.ConflictError y se reintenta un número acotado de veces.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
	"github.com/DTBbuilds/smartduka-inventory/pkg/telemetry"
)

const sequenceScope = "transfer"

// Config parámetros del motor.
type Config struct {
	StaleAfter      time.Duration
	NumberPrefix    string
	ConflictRetries int
}

// Deps colaboradores del motor.
type Deps struct {
	TxRunner  ports.TxRunner
	Recorder  *appinv.Recorder
	Transfers repository.TransferRepository
	Branches  repository.BranchRepository
	Sequencer repository.Sequencer
	Notes     ports.DeliveryNoteGenerator
	Audit     ports.AuditTrail
	Logger    *logger.Logger
}

// UseCase motor de transferencias.
type UseCase struct {
	cfg       Config
	txRunner  ports.TxRunner
	recorder  *appinv.Recorder
	transfers repository.TransferRepository
	branches  repository.BranchRepository
	sequencer repository.Sequencer
	notes     ports.DeliveryNoteGenerator
	audit     ports.AuditTrail
	log       *logger.Logger
	now       func() time.Time
}

// NewUseCase construye el motor.
func NewUseCase(cfg Config, d Deps) *UseCase {
	if cfg.NumberPrefix == "" {
		cfg.NumberPrefix = "TRF"
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 72 * time.Hour
	}
	if cfg.ConflictRetries < 1 {
		cfg.ConflictRetries = 3
	}
	if d.Audit == nil {
		d.Audit = ports.NopAudit{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &UseCase{
		cfg:       cfg,
		txRunner:  d.TxRunner,
		recorder:  d.Recorder,
		transfers: d.Transfers,
		branches:  d.Branches,
		sequencer: d.Sequencer,
		notes:     d.Notes,
		audit:     d.Audit,
		log:       d.Logger.Named("transfer"),
		now:       time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (uc *UseCase) SetClock(now func() time.Time) { uc.now = now }

// ──────────────────────────────────────────────────────────────────────────────
// Creación
// ──────────────────────────────────────────────────────────────────────────────

// Create registra una transferencia. Sin SaveAsDraft valida stock en origen (lectura puntual,
// sin reserva) y la deja en pending_approval; como borrador la validación se difiere a Submit.
func (uc *UseCase) Create(ctx context.Context, shopID, actorID string, in dto.CreateTransferRequest) (out *dto.TransferResponse, err error) {
	ctx, span := telemetry.Start(ctx, "transfer", "transfer.Create", shopID)
	defer func() { telemetry.End(span, err) }()

	from, to := normalizeLocation(in.FromBranchID), normalizeLocation(in.ToBranchID)
	if from == to {
		return nil, domain.NewValidationError("to_branch_id", "el origen y el destino deben ser distintos")
	}
	priority := entity.TransferPriority(in.Priority)
	if priority == "" {
		priority = entity.PriorityNormal
	}
	if !priority.Valid() {
		return nil, domain.NewValidationError("priority", fmt.Sprintf("prioridad %q desconocida", in.Priority))
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	if err := appinv.ValidateLocation(ctx, uc.branches, shopID, from); err != nil {
		return nil, err
	}
	if err := appinv.ValidateLocation(ctx, uc.branches, shopID, to); err != nil {
		return nil, err
	}

	now := uc.now()
	number, err := uc.nextNumber(ctx, shopID, now)
	if err != nil {
		return nil, err
	}

	t := &entity.StockTransfer{
		ID:              uuid.New().String(),
		ShopID:          shopID,
		TransferNumber:  number,
		FromBranchID:    from,
		ToBranchID:      to,
		IsFromMainStore: entity.IsMainStore(from),
		IsToMainStore:   entity.IsMainStore(to),
		Status:          entity.TransferPendingApproval,
		Priority:        priority,
		Reason:          strings.TrimSpace(in.Reason),
		Notes:           strings.TrimSpace(in.Notes),
		RequestedBy:     actorID,
		RequestedAt:     now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.SaveAsDraft {
		t.Status = entity.TransferDraft
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		total := decimal.Zero
		t.Items = make([]entity.TransferItem, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := s.Products.GetByID(ctx, shopID, it.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return domain.NewNotFoundError("producto", it.ProductID)
			}
			t.Items = append(t.Items, entity.TransferItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				SKU:         p.SKU,
				Quantity:    it.Quantity,
				UnitCost:    p.UnitCost,
			})
			total = total.Add(p.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		t.TotalValue = total
		if t.Status == entity.TransferPendingApproval {
			if err := checkSourceStock(ctx, s, t); err != nil {
				return err
			}
		}
		return s.Transfers.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actorID, "transfer.create", t, "")
	uc.log.Info().
		Str("shop_id", shopID).
		Str("transfer_number", t.TransferNumber).
		Str("status", string(t.Status)).
		Msg("transferencia creada")
	return ToResponse(t), nil
}

// Submit envía un borrador a aprobación repitiendo las validaciones de creación.
func (uc *UseCase) Submit(ctx context.Context, shopID, actorID, id string) (*dto.TransferResponse, error) {
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionSubmit, func(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error {
		if err := checkSourceStock(ctx, s, t); err != nil {
			return err
		}
		t.Status = entity.TransferPendingApproval
		t.RequestedBy = actorID
		t.RequestedAt = uc.now()
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Aprobación
// ──────────────────────────────────────────────────────────────────────────────

// Approve aprueba una transferencia pendiente. No toca el ledger.
func (uc *UseCase) Approve(ctx context.Context, shopID, actorID, id string) (*dto.TransferResponse, error) {
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionApprove, func(_ context.Context, _ ports.Stores, t *entity.StockTransfer) error {
		now := uc.now()
		t.Status = entity.TransferApproved
		t.ApprovedBy = actorID
		t.ApprovedAt = &now
		return nil
	})
}

// Reject rechaza un borrador o una transferencia pendiente. El motivo es obligatorio.
func (uc *UseCase) Reject(ctx context.Context, shopID, actorID, id string, in dto.RejectTransferRequest) (*dto.TransferResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "el motivo de rechazo es requerido")
	}
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionReject, func(_ context.Context, _ ports.Stores, t *entity.StockTransfer) error {
		now := uc.now()
		t.Status = entity.TransferRejected
		t.RejectedBy = actorID
		t.RejectedAt = &now
		t.RejectionReason = reason
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Envío y recepción
// ──────────────────────────────────────────────────────────────────────────────

// Ship descuenta el stock del origen por la cantidad solicitada de cada línea y pasa a in_transit.
// Si alguna línea no tiene stock suficiente no se descuenta ninguna.
func (uc *UseCase) Ship(ctx context.Context, shopID, actorID, id string, in dto.ShipTransferRequest) (*dto.TransferResponse, error) {
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionShip, func(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error {
		var shortfalls []domain.Shortfall
		for _, it := range t.Items {
			_, _, err := uc.recorder.Apply(ctx, s, appinv.Movement{
				ShopID:    shopID,
				ProductID: it.ProductID,
				BranchID:  t.SourceLocation(),
				Delta:     -it.Quantity,
				Reason:    entity.ReasonTransfer,
				ActorID:   actorID,
				Reference: t.TransferNumber,
				Notes:     "Envío hacia " + entity.LocationLabel(t.DestinationLocation()),
			})
			var ise *domain.InsufficientStockError
			if errors.As(appinv.EnrichShortfall(err, it.ProductName), &ise) {
				shortfalls = append(shortfalls, ise.Shortfalls...)
				continue
			}
			if err != nil {
				return err
			}
		}
		if len(shortfalls) > 0 {
			return &domain.InsufficientStockError{Shortfalls: shortfalls}
		}

		now := uc.now()
		t.Status = entity.TransferInTransit
		t.ShippedBy = actorID
		t.ShippedAt = &now
		t.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
		t.Carrier = strings.TrimSpace(in.Carrier)
		t.ExpectedArrival = in.ExpectedArrival
		t.Notes = appendNote(t.Notes, in.Notes)
		return nil
	})
}

// Receive acumula una entrega. Solo las unidades no dañadas entran al stock destino.
// Queda received cuando todas las líneas completan su cantidad; si no, partially_received.
func (uc *UseCase) Receive(ctx context.Context, shopID, actorID, id string, in dto.ReceiveTransferRequest) (*dto.TransferResponse, error) {
	lines := make([]inventory.ReceiptLine, 0, len(in.Items))
	for _, it := range in.Items {
		lines = append(lines, inventory.ReceiptLine{
			ProductID:        it.ProductID,
			ReceivedQuantity: it.ReceivedQuantity,
			DamagedQuantity:  it.DamagedQuantity,
		})
	}
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionReceive, func(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error {
		effects, err := inventory.ApplyReceipt(t, lines)
		if err != nil {
			return err
		}
		now := uc.now()
		dest := t.DestinationLocation()
		for _, e := range effects {
			if e.Usable > 0 {
				notes := "Recepción desde " + entity.LocationLabel(t.SourceLocation())
				if e.Damaged > 0 {
					notes += fmt.Sprintf(" (%d dañadas no ingresadas)", e.Damaged)
				}
				if _, _, err := uc.recorder.Apply(ctx, s, appinv.Movement{
					ShopID:    shopID,
					ProductID: e.ProductID,
					BranchID:  dest,
					Delta:     e.Usable,
					Reason:    entity.ReasonTransfer,
					ActorID:   actorID,
					Reference: t.TransferNumber,
					Notes:     notes,
				}); err != nil {
					return err
				}
				if !entity.IsMainStore(dest) {
					key := repository.StockKey{ShopID: shopID, ProductID: e.ProductID, BranchID: dest}
					if err := s.Ledger.MarkRestocked(ctx, key, now); err != nil {
						return err
					}
				}
			}
			if e.Damaged > 0 {
				uc.log.Warn().
					Str("shop_id", shopID).
					Str("transfer_number", t.TransferNumber).
					Str("product_id", e.ProductID).
					Int("damaged", e.Damaged).
					Msg("unidades dañadas en recepción")
			}
		}
		t.Status = inventory.StatusAfterReceipt(t)
		t.ReceivedBy = actorID
		t.ReceivedAt = &now
		t.Notes = appendNote(t.Notes, in.Notes)
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Cancelación
// ──────────────────────────────────────────────────────────────────────────────

// Cancel cancela una transferencia no terminal. Si el stock ya salió del origen se devuelve lo
// no recibido en la misma transacción.
func (uc *UseCase) Cancel(ctx context.Context, shopID, actorID, id string, in dto.CancelTransferRequest) (*dto.TransferResponse, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "el motivo de cancelación es requerido")
	}
	return uc.transition(ctx, shopID, actorID, id, inventory.ActionCancel, func(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error {
		returns := inventory.CancellationReturns(t)
		for _, it := range t.Items {
			n := returns[it.ProductID]
			if n == 0 {
				continue
			}
			delete(returns, it.ProductID)
			if _, _, err := uc.recorder.Apply(ctx, s, appinv.Movement{
				ShopID:    shopID,
				ProductID: it.ProductID,
				BranchID:  t.SourceLocation(),
				Delta:     n,
				Reason:    entity.ReasonTransfer,
				ActorID:   actorID,
				Reference: t.TransferNumber,
				Notes:     "Devolución por cancelación: " + reason,
			}); err != nil {
				return err
			}
		}
		now := uc.now()
		t.Status = entity.TransferCancelled
		t.CancelledBy = actorID
		t.CancelledAt = &now
		t.CancellationReason = reason
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Consultas
// ──────────────────────────────────────────────────────────────────────────────

// Get devuelve una transferencia de la tienda.
func (uc *UseCase) Get(ctx context.Context, shopID, id string) (*dto.TransferResponse, error) {
	t, err := uc.load(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	return ToResponse(t), nil
}

// List lista transferencias con filtros.
func (uc *UseCase) List(ctx context.Context, shopID string, f repository.TransferFilter) (*dto.TransferListResponse, error) {
	if f.Status != "" && !validStatus(f.Status) {
		return nil, domain.NewValidationError("status", fmt.Sprintf("estado %q desconocido", f.Status))
	}
	list, err := uc.transfers.List(ctx, shopID, f)
	if err != nil {
		return nil, err
	}
	return toListResponse(list, f.Limit, f.Offset), nil
}

// ListStale transferencias enviadas hace más de StaleAfter que siguen sin recibirse por completo.
// Es una consulta de anomalías: no cancela nada.
func (uc *UseCase) ListStale(ctx context.Context, shopID string) (*dto.TransferListResponse, error) {
	list, err := uc.transfers.ListInTransitSince(ctx, shopID, uc.now().Add(-uc.cfg.StaleAfter))
	if err != nil {
		return nil, err
	}
	return toListResponse(list, 0, 0), nil
}

// DeliveryNote genera la guía de remisión en PDF de una transferencia ya enviada.
func (uc *UseCase) DeliveryNote(ctx context.Context, shopID, shopName, id string) ([]byte, string, error) {
	if uc.notes == nil {
		return nil, "", fmt.Errorf("transfer: generador de guías no configurado")
	}
	t, err := uc.load(ctx, shopID, id)
	if err != nil {
		return nil, "", err
	}
	if t.ShippedAt == nil || t.Status == entity.TransferCancelled {
		return nil, "", &domain.ConflictError{
			Resource: "transferencia",
			ID:       t.TransferNumber,
			Current:  string(t.Status),
			Expected: []string{string(entity.TransferInTransit), string(entity.TransferPartiallyReceived), string(entity.TransferReceived)},
		}
	}
	fromName, err := uc.locationName(ctx, shopID, t.SourceLocation())
	if err != nil {
		return nil, "", err
	}
	toName, err := uc.locationName(ctx, shopID, t.DestinationLocation())
	if err != nil {
		return nil, "", err
	}
	pdf, err := uc.notes.GenerateDeliveryNote(ctx, ports.DeliveryNote{
		ShopName: shopName,
		Transfer: t,
		FromName: fromName,
		ToName:   toName,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generar guía de remisión: %w", err)
	}
	return pdf, t.TransferNumber + ".pdf", nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Internos
// ──────────────────────────────────────────────────────────────────────────────

type mutation func(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error

// transition lee la transferencia dentro de la transacción, valida la acción, aplica mutate y
// confirma con UpdateIfStatus. Los conflictos se reintentan hasta ConflictRetries veces.
func (uc *UseCase) transition(ctx context.Context, shopID, actorID, id string, action inventory.TransferAction, mutate mutation) (out *dto.TransferResponse, err error) {
	ctx, span := telemetry.Start(ctx, "transfer", "transfer."+string(action), shopID,
		attribute.String("transfer.id", id))
	defer func() { telemetry.End(span, err) }()

	var (
		result *entity.StockTransfer
		from   entity.TransferStatus
	)
	err = domain.RetryOnConflict(ctx, uc.cfg.ConflictRetries, func() error {
		return uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
			t, err := s.Transfers.GetByID(ctx, shopID, id)
			if err != nil {
				return err
			}
			if t == nil {
				return domain.NewNotFoundError("transferencia", id)
			}
			if err := inventory.CheckTransition(t, action); err != nil {
				return err
			}
			from = t.Status
			fromVersion := t.Version
			if err := mutate(ctx, s, t); err != nil {
				return err
			}
			t.UpdatedAt = uc.now()
			ok, err := s.Transfers.UpdateIfStatus(ctx, t, from, fromVersion)
			if err != nil {
				return err
			}
			if !ok {
				return &domain.ConflictError{Resource: "transferencia", ID: t.TransferNumber}
			}
			result = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actorID, "transfer."+string(action), result, from)
	uc.log.Info().
		Str("shop_id", shopID).
		Str("transfer_number", result.TransferNumber).
		Str("action", string(action)).
		Str("from", string(from)).
		Str("to", string(result.Status)).
		Msg("transición de transferencia")
	return ToResponse(result), nil
}

func (uc *UseCase) load(ctx context.Context, shopID, id string) (*entity.StockTransfer, error) {
	t, err := uc.transfers.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.NewNotFoundError("transferencia", id)
	}
	return t, nil
}

func (uc *UseCase) nextNumber(ctx context.Context, shopID string, now time.Time) (string, error) {
	n, err := uc.sequencer.Next(ctx, shopID, sequenceScope, now)
	if err != nil {
		return "", fmt.Errorf("generar número de transferencia: %w", err)
	}
	return fmt.Sprintf("%s-%s-%04d", uc.cfg.NumberPrefix, now.Format("20060102"), n), nil
}

func (uc *UseCase) locationName(ctx context.Context, shopID, branchID string) (string, error) {
	if entity.IsMainStore(branchID) {
		return "Almacén principal", nil
	}
	b, err := uc.branches.GetByID(ctx, shopID, branchID)
	if err != nil {
		return "", err
	}
	if b == nil {
		return branchID, nil
	}
	return b.Name, nil
}

func (uc *UseCase) record(ctx context.Context, actorID, action string, t *entity.StockTransfer, from entity.TransferStatus) {
	var before any
	if from != "" {
		before = map[string]any{"status": from}
	}
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     t.ShopID,
		ActorID:    actorID,
		Action:     action,
		Resource:   "stock_transfer",
		ResourceID: t.ID,
		Before:     before,
		After: map[string]any{
			"status":          t.Status,
			"transfer_number": t.TransferNumber,
			"version":         t.Version,
		},
		OccurredAt: t.UpdatedAt,
	})
}

// checkSourceStock compara cada línea contra el stock actual del origen y devuelve todos los faltantes juntos.
func checkSourceStock(ctx context.Context, s ports.Stores, t *entity.StockTransfer) error {
	var shortfalls []domain.Shortfall
	for _, it := range t.Items {
		key := repository.StockKey{ShopID: t.ShopID, ProductID: it.ProductID, BranchID: t.SourceLocation()}
		available, err := s.Ledger.GetStock(ctx, key)
		if err != nil {
			return err
		}
		if it.Quantity > available {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID: it.ProductID,
				Name:      it.ProductName,
				Location:  entity.LocationLabel(t.SourceLocation()),
				Available: available,
				Requested: it.Quantity,
			})
		}
	}
	if len(shortfalls) > 0 {
		return &domain.InsufficientStockError{Shortfalls: shortfalls}
	}
	return nil
}

func validateItems(items []dto.TransferItemRequest) error {
	if len(items) == 0 {
		return domain.NewValidationError("items", "la transferencia debe tener al menos una línea")
	}
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ProductID == "" {
			return domain.NewValidationError("product_id", "es requerido")
		}
		if it.Quantity <= 0 {
			return domain.NewValidationError("quantity", "debe ser mayor que cero")
		}
		if _, dup := seen[it.ProductID]; dup {
			return domain.NewValidationError("items", fmt.Sprintf("el producto %s está repetido", it.ProductID))
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

func normalizeLocation(branchID string) string {
	branchID = strings.TrimSpace(branchID)
	if entity.IsMainStore(branchID) {
		return entity.MainStoreID
	}
	return branchID
}

func appendNote(notes, extra string) string {
	extra = strings.TrimSpace(extra)
	switch {
	case extra == "":
		return notes
	case notes == "":
		return extra
	}
	return notes + "\n" + extra
}

func validStatus(s entity.TransferStatus) bool {
	switch s {
	case entity.TransferDraft, entity.TransferPendingApproval, entity.TransferApproved,
		entity.TransferInTransit, entity.TransferPartiallyReceived, entity.TransferReceived,
		entity.TransferRejected, entity.TransferCancelled:
		return true
	}
	return false
}
