// Package reconciliation compara valores esperados contra observados. Caja y stock físico son
// flujos separados: la de caja solo lee órdenes; la de stock corrige el ledger con ajustes
// correction por cada diferencia contada.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

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

const dateLayout = "2006-01-02"

// Estados de orden que cuentan para el efectivo esperado.
var cashOrderStatuses = []entity.OrderStatus{entity.OrderCompleted, entity.OrderPartial}

// Config política de clasificación.
type Config struct {
	CashThreshold decimal.Decimal
}

// Deps colaboradores del motor de conciliación.
type Deps struct {
	TxRunner        ports.TxRunner
	Recorder        *appinv.Recorder
	Orders          repository.OrderRepository
	Reconciliations repository.ReconciliationRepository
	Branches        repository.BranchRepository
	Audit           ports.AuditTrail
	Logger          *logger.Logger
}

// UseCase motor de conciliación.
type UseCase struct {
	cfg             Config
	txRunner        ports.TxRunner
	recorder        *appinv.Recorder
	orders          repository.OrderRepository
	reconciliations repository.ReconciliationRepository
	branches        repository.BranchRepository
	audit           ports.AuditTrail
	log             *logger.Logger
	now             func() time.Time
}

// NewUseCase construye el motor.
func NewUseCase(cfg Config, d Deps) *UseCase {
	if d.Audit == nil {
		d.Audit = ports.NopAudit{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &UseCase{
		cfg:             cfg,
		txRunner:        d.TxRunner,
		recorder:        d.Recorder,
		orders:          d.Orders,
		reconciliations: d.Reconciliations,
		branches:        d.Branches,
		audit:           d.Audit,
		log:             d.Logger.Named("reconciliation"),
		now:             time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (uc *UseCase) SetClock(now func() time.Time) { uc.now = now }

// ReconcileCash compara el efectivo contado contra la suma de pagos en efectivo de las órdenes
// completed/partial del día. BranchID vacío concilia toda la tienda.
func (uc *UseCase) ReconcileCash(ctx context.Context, shopID, actorID string, in dto.CashReconciliationRequest) (out *dto.ReconciliationResponse, err error) {
	ctx, span := telemetry.Start(ctx, "reconciliation", "reconciliation.Cash", shopID)
	defer func() { telemetry.End(span, err) }()

	day, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if in.ActualCash.IsNegative() {
		return nil, domain.NewValidationError("actual_cash", "no puede ser negativo")
	}
	branchID := strings.TrimSpace(in.BranchID)
	if branchID != "" {
		if err := appinv.ValidateLocation(ctx, uc.branches, shopID, branchID); err != nil {
			return nil, err
		}
	}

	expected, err := uc.orders.SumPayments(ctx, shopID, branchID, entity.PaymentCash, cashOrderStatuses, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	cv := inventory.ClassifyCashVariance(expected, in.ActualCash, uc.cfg.CashThreshold)

	now := uc.now()
	rec := &entity.Reconciliation{
		ID:                 uuid.New().String(),
		ShopID:             shopID,
		BranchID:           branchID,
		Type:               entity.ReconciliationCash,
		Date:               day,
		ExpectedValue:      expected,
		ActualValue:        in.ActualCash,
		Variance:           cv.Variance,
		VariancePercentage: cv.Percentage,
		Status:             cv.Status,
		Notes:              strings.TrimSpace(in.Notes),
		ReconciledBy:       actorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.reconciliations.Create(ctx, rec); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, &domain.ConflictError{Resource: "conciliación de caja", ID: in.Date, Current: "existente"}
		}
		return nil, err
	}

	if rec.Status == entity.ReconciliationVariancePending {
		uc.log.Warn().
			Str("shop_id", shopID).
			Str("date", in.Date).
			Str("expected", expected.String()).
			Str("actual", in.ActualCash.String()).
			Str("variance", cv.Variance.String()).
			Msg("diferencia de caja fuera del umbral")
	}
	uc.record(ctx, actorID, "reconciliation.cash", rec, nil)
	return ToResponse(rec), nil
}

// ReconcileStock registra un conteo físico. Cada diferencia genera un ajuste correction igual a
// physical - system en la misma transacción. Queda reconciled si todo cuadra, si no variance_pending.
func (uc *UseCase) ReconcileStock(ctx context.Context, shopID, actorID string, in dto.StockReconciliationRequest) (out *dto.ReconciliationResponse, err error) {
	ctx, span := telemetry.Start(ctx, "reconciliation", "reconciliation.Stock", shopID)
	defer func() { telemetry.End(span, err) }()

	day, err := parseDate(in.Date)
	if err != nil {
		return nil, err
	}
	if len(in.Counts) == 0 {
		return nil, domain.NewValidationError("counts", "el conteo debe tener al menos un producto")
	}
	seen := make(map[string]struct{}, len(in.Counts))
	for _, c := range in.Counts {
		if c.ProductID == "" {
			return nil, domain.NewValidationError("product_id", "es requerido")
		}
		if c.PhysicalCount < 0 {
			return nil, domain.NewValidationError("physical_count", "no puede ser negativo")
		}
		if _, dup := seen[c.ProductID]; dup {
			return nil, domain.NewValidationError("counts", fmt.Sprintf("el producto %s está repetido", c.ProductID))
		}
		seen[c.ProductID] = struct{}{}
	}
	branchID := in.BranchID
	if entity.IsMainStore(branchID) {
		branchID = entity.MainStoreID
	}
	if err := appinv.ValidateLocation(ctx, uc.branches, shopID, branchID); err != nil {
		return nil, err
	}

	now := uc.now()
	rec := &entity.Reconciliation{
		ID:           uuid.New().String(),
		ShopID:       shopID,
		BranchID:     branchID,
		Type:         entity.ReconciliationStock,
		Date:         day,
		Notes:        strings.TrimSpace(in.Notes),
		ReconciledBy: actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		rec.StockLines = rec.StockLines[:0]
		systemTotal, physicalTotal := 0, 0
		for _, c := range in.Counts {
			p, err := s.Products.GetByID(ctx, shopID, c.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return domain.NewNotFoundError("producto", c.ProductID)
			}
			system, err := s.Ledger.GetStock(ctx, repository.StockKey{ShopID: shopID, ProductID: p.ID, BranchID: branchID})
			if err != nil {
				return err
			}
			line := entity.StockCountLine{
				ProductID:     p.ID,
				ProductName:   p.Name,
				SystemStock:   system,
				PhysicalCount: c.PhysicalCount,
				Variance:      c.PhysicalCount - system,
			}
			if line.Variance != 0 {
				adj, _, err := uc.recorder.Apply(ctx, s, appinv.Movement{
					ShopID:    shopID,
					ProductID: p.ID,
					BranchID:  branchID,
					Delta:     line.Variance,
					Reason:    entity.ReasonCorrection,
					ActorID:   actorID,
					Reference: rec.ID,
					Notes:     "Conteo físico " + in.Date,
				})
				if err != nil {
					return appinv.EnrichShortfall(err, p.Name)
				}
				line.AdjustmentID = adj.ID
			}
			systemTotal += system
			physicalTotal += c.PhysicalCount
			rec.StockLines = append(rec.StockLines, line)
		}

		rec.ExpectedValue = decimal.NewFromInt(int64(systemTotal))
		rec.ActualValue = decimal.NewFromInt(int64(physicalTotal))
		rec.Variance = rec.ActualValue.Sub(rec.ExpectedValue)
		if systemTotal > 0 {
			rec.VariancePercentage = rec.Variance.Div(rec.ExpectedValue).Mul(decimal.NewFromInt(100)).Round(2)
		}
		rec.Status = entity.ReconciliationReconciled
		for _, l := range rec.StockLines {
			if l.Variance != 0 {
				rec.Status = entity.ReconciliationVariancePending
				break
			}
		}
		return s.Reconciliations.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	uc.record(ctx, actorID, "reconciliation.stock", rec, nil)
	return ToResponse(rec), nil
}

// InvestigateVariance agrega un registro de investigación. No cambia el estado.
func (uc *UseCase) InvestigateVariance(ctx context.Context, shopID, actorID, id string, in dto.InvestigateVarianceRequest) (*dto.ReconciliationResponse, error) {
	notes := strings.TrimSpace(in.InvestigationNotes)
	if notes == "" {
		return nil, domain.NewValidationError("investigation_notes", "las notas de investigación son requeridas")
	}
	var rec *entity.Reconciliation
	err := uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		r, err := load(ctx, s.Reconciliations, shopID, id)
		if err != nil {
			return err
		}
		kind := strings.TrimSpace(in.Type)
		if kind == "" {
			kind = string(r.Type)
		}
		now := uc.now()
		rec, err = s.Reconciliations.AppendVariance(ctx, shopID, id, entity.VarianceRecord{
			Type:               kind,
			Amount:             in.Amount,
			InvestigationNotes: notes,
			RecordedBy:         actorID,
			RecordedAt:         now,
		}, now)
		if err != nil {
			return err
		}
		if rec == nil {
			return domain.NewNotFoundError("conciliación", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.record(ctx, actorID, "reconciliation.investigate", rec, nil)
	return ToResponse(rec), nil
}

// ApproveReconciliation registra la aprobación y fuerza reconciled, aunque la diferencia siga abierta.
func (uc *UseCase) ApproveReconciliation(ctx context.Context, shopID, actorID, id string) (*dto.ReconciliationResponse, error) {
	var (
		rec  *entity.Reconciliation
		prev entity.ReconciliationStatus
	)
	err := uc.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		r, err := load(ctx, s.Reconciliations, shopID, id)
		if err != nil {
			return err
		}
		if r.ApprovedBy != "" {
			return &domain.ConflictError{Resource: "conciliación", ID: id, Current: "aprobada", Expected: []string{"sin aprobar"}}
		}
		prev = r.Status
		rec, err = s.Reconciliations.Approve(ctx, shopID, id, actorID, uc.now())
		if err != nil {
			return err
		}
		if rec == nil {
			return &domain.ConflictError{Resource: "conciliación", ID: id, Current: "aprobada", Expected: []string{"sin aprobar"}}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.record(ctx, actorID, "reconciliation.approve", rec, map[string]any{"status": prev})
	return ToResponse(rec), nil
}

// Get devuelve una conciliación de la tienda.
func (uc *UseCase) Get(ctx context.Context, shopID, id string) (*dto.ReconciliationResponse, error) {
	r, err := load(ctx, uc.reconciliations, shopID, id)
	if err != nil {
		return nil, err
	}
	return ToResponse(r), nil
}

// List lista conciliaciones por tipo y rango de fechas (YYYY-MM-DD, inclusivo).
func (uc *UseCase) List(ctx context.Context, shopID, kind, from, to string, limit, offset int) (*dto.ReconciliationListResponse, error) {
	f := repository.ReconciliationFilter{Type: entity.ReconciliationType(kind), Limit: limit, Offset: offset}
	switch f.Type {
	case "", entity.ReconciliationCash, entity.ReconciliationStock:
	default:
		return nil, domain.NewValidationError("type", "debe ser cash o stock")
	}
	var err error
	if from != "" {
		if f.From, err = parseDate(from); err != nil {
			return nil, err
		}
	}
	if to != "" {
		if f.To, err = parseDate(to); err != nil {
			return nil, err
		}
	}
	list, err := uc.reconciliations.List(ctx, shopID, f)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ReconciliationResponse, 0, len(list))
	for _, r := range list {
		items = append(items, *ToResponse(r))
	}
	return &dto.ReconciliationListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}}, nil
}

func (uc *UseCase) record(ctx context.Context, actorID, action string, r *entity.Reconciliation, before any) {
	uc.audit.Record(ctx, entity.AuditEntry{
		ShopID:     r.ShopID,
		ActorID:    actorID,
		Action:     action,
		Resource:   "reconciliation",
		ResourceID: r.ID,
		Before:     before,
		After: map[string]any{
			"type":     r.Type,
			"status":   r.Status,
			"variance": r.Variance.String(),
		},
		OccurredAt: r.UpdatedAt,
	})
}

func load(ctx context.Context, repo repository.ReconciliationRepository, shopID, id string) (*entity.Reconciliation, error) {
	r, err := repo.GetByID(ctx, shopID, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, domain.NewNotFoundError("conciliación", id)
	}
	return r, nil
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, domain.NewValidationError("date", "es requerida (YYYY-MM-DD)")
	}
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidationError("date", "formato inválido, se espera YYYY-MM-DD")
	}
	return d, nil
}
