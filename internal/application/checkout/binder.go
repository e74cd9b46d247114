// Package checkout enlaza las ventas con el ledger de inventario.
//
// La orden y sus descuentos se guardan en una sola transacción. Con política reject los
// descuentos se aplican dentro de esa misma transacción con el decremento condicional del ledger,
// así dos ventas concurrentes no venden la misma unidad. Con política allow cada descuento se
// intenta después del commit; lo que falle queda en la cola durable, se anota en la orden y lo
// reintenta el Worker con backoff exponencial. Una venta confirmada nunca se revierte por fallas de stock.
package checkout

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
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
	"github.com/DTBbuilds/smartduka-inventory/pkg/telemetry"
)

const (
	orderSequenceScope = "order"
	maxBackoff         = time.Hour
)

// Config política de reintentos de la cola de descuentos.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	BatchSize   int
}

// Deps colaboradores del binder.
type Deps struct {
	TxRunner   ports.TxRunner
	Recorder   *appinv.Recorder
	Orders     repository.OrderRepository
	Deductions repository.DeductionQueue
	Branches   repository.BranchRepository
	Sequencer  repository.Sequencer
	Audit      ports.AuditTrail
	Logger     *logger.Logger
}

// Binder valida y descuenta el stock de las ventas.
type Binder struct {
	cfg        Config
	txRunner   ports.TxRunner
	recorder   *appinv.Recorder
	orders     repository.OrderRepository
	deductions repository.DeductionQueue
	branches   repository.BranchRepository
	sequencer  repository.Sequencer
	audit      ports.AuditTrail
	log        *logger.Logger
	now        func() time.Time
}

// NewBinder construye el binder.
func NewBinder(cfg Config, d Deps) *Binder {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 8
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 5 * time.Second
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if d.Audit == nil {
		d.Audit = ports.NopAudit{}
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	return &Binder{
		cfg:        cfg,
		txRunner:   d.TxRunner,
		recorder:   d.Recorder,
		orders:     d.Orders,
		deductions: d.Deductions,
		branches:   d.Branches,
		sequencer:  d.Sequencer,
		audit:      d.Audit,
		log:        d.Logger.Named("checkout"),
		now:        time.Now,
	}
}

// SetClock reemplaza el reloj (tests).
func (b *Binder) SetClock(now func() time.Time) { b.now = now }

// Checkout registra la venta. Si alguna línea no tiene stock suficiente la venta se rechaza
// completa y la respuesta trae Success=false con los faltantes; no se escribe nada.
// Con política allow los faltantes no bloquean y quedan como advertencias.
// Con política reject un error del ledger dentro de la transacción deja la venta sin registrar.
func (b *Binder) Checkout(ctx context.Context, shopID, cashierID string, in dto.CheckoutRequest) (out *dto.CheckoutResponse, err error) {
	ctx, span := telemetry.Start(ctx, "checkout", "checkout.Checkout", shopID,
		attribute.Int("order.lines", len(in.Items)))
	defer func() { telemetry.End(span, err) }()

	status, err := validateCheckout(in)
	if err != nil {
		return nil, err
	}
	branchID := in.BranchID
	if entity.IsMainStore(branchID) {
		branchID = entity.MainStoreID
	}
	if err := appinv.ValidateLocation(ctx, b.branches, shopID, branchID); err != nil {
		return nil, err
	}

	now := b.now()
	number := strings.TrimSpace(in.OrderReference)
	if number == "" {
		n, err := b.sequencer.Next(ctx, shopID, orderSequenceScope, now)
		if err != nil {
			return nil, fmt.Errorf("generar número de orden: %w", err)
		}
		number = fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), n)
	}

	order := &entity.Order{
		ID:          uuid.New().String(),
		ShopID:      shopID,
		OrderNumber: number,
		BranchID:    branchID,
		CashierID:   cashierID,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var jobs []*entity.DeductionJob

	err = b.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		names, shortfalls, err := b.prevalidate(ctx, s, shopID, branchID, in.Items)
		if err != nil {
			return err
		}
		if len(shortfalls) > 0 {
			if !b.recorder.AllowNegative() {
				return &domain.InsufficientStockError{Shortfalls: shortfalls}
			}
			for _, sf := range shortfalls {
				order.StockWarnings = append(order.StockWarnings, sf.Message())
			}
		}

		total := decimal.Zero
		for _, it := range in.Items {
			name := strings.TrimSpace(it.Name)
			if name == "" {
				name = names[it.ProductID]
			}
			order.Items = append(order.Items, entity.OrderItem{
				ProductID: it.ProductID,
				Name:      name,
				Quantity:  it.Quantity,
				UnitPrice: it.UnitPrice,
			})
			total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
			jobs = append(jobs, &entity.DeductionJob{
				ID:            uuid.New().String(),
				ShopID:        shopID,
				OrderID:       order.ID,
				OrderNumber:   number,
				ProductID:     it.ProductID,
				ProductName:   name,
				BranchID:      branchID,
				Quantity:      it.Quantity,
				ActorID:       cashierID,
				Status:        entity.DeductionPending,
				NextAttemptAt: now,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
		}
		for _, p := range in.Payments {
			order.Payments = append(order.Payments, entity.Payment{Method: entity.PaymentMethod(p.Method), Amount: p.Amount})
		}
		order.Total = total

		if err := s.Orders.Create(ctx, order); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				return &domain.ConflictError{Resource: "orden", ID: number, Current: "existente"}
			}
			return err
		}
		if !b.recorder.AllowNegative() {
			for _, job := range jobs {
				if err := b.applyJob(ctx, s, job); err != nil {
					return err
				}
				applied := now
				job.Status = entity.DeductionApplied
				job.Attempts = 1
				job.AppliedAt = &applied
			}
		}
		return s.Deductions.Enqueue(ctx, jobs)
	})

	var ise *domain.InsufficientStockError
	if errors.As(err, &ise) {
		b.log.Info().
			Str("shop_id", shopID).
			Str("order_number", number).
			Int("shortfalls", len(ise.Shortfalls)).
			Msg("venta rechazada por stock insuficiente")
		return &dto.CheckoutResponse{Success: false, Shortfalls: ise.Shortfalls}, nil
	}
	if err != nil {
		return nil, err
	}

	resp := &dto.CheckoutResponse{
		Success:       true,
		OrderID:       order.ID,
		OrderNumber:   number,
		Lines:         make([]dto.LineOutcome, 0, len(jobs)),
		StockWarnings: order.StockWarnings,
	}
	for _, job := range jobs {
		outcome := dto.LineOutcome{ProductID: job.ProductID, Quantity: job.Quantity, Status: string(entity.DeductionApplied)}
		if job.Status == entity.DeductionApplied {
			resp.Lines = append(resp.Lines, outcome)
			continue
		}
		if perr := b.process(ctx, job); perr != nil {
			outcome.Status = "pending"
			if job.Attempts+1 >= b.cfg.MaxAttempts {
				outcome.Status = "failed"
			}
			outcome.Error = perr.Error()
			resp.StockWarnings = append(resp.StockWarnings, warning(job, perr))
		}
		resp.Lines = append(resp.Lines, outcome)
	}

	b.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    cashierID,
		Action:     "order.checkout",
		Resource:   "order",
		ResourceID: order.ID,
		After: map[string]any{
			"order_number": number,
			"total":        order.Total.String(),
			"lines":        len(order.Items),
		},
		OccurredAt: now,
	})
	return resp, nil
}

// prevalidate agrega cantidades por producto y las compara con el stock de la ubicación.
func (b *Binder) prevalidate(ctx context.Context, s ports.Stores, shopID, branchID string, items []dto.CheckoutItemRequest) (map[string]string, []domain.Shortfall, error) {
	requested := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := requested[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}

	names := make(map[string]string, len(order))
	var shortfalls []domain.Shortfall
	for _, pid := range order {
		p, err := s.Products.GetByID(ctx, shopID, pid)
		if err != nil {
			return nil, nil, err
		}
		if p == nil {
			return nil, nil, domain.NewNotFoundError("producto", pid)
		}
		names[pid] = p.Name
		available, err := s.Ledger.GetStock(ctx, repository.StockKey{ShopID: shopID, ProductID: pid, BranchID: branchID})
		if err != nil {
			return nil, nil, err
		}
		if requested[pid] > available {
			shortfalls = append(shortfalls, domain.Shortfall{
				ProductID: pid,
				Name:      p.Name,
				Location:  entity.LocationLabel(branchID),
				Available: available,
				Requested: requested[pid],
			})
		}
	}
	return names, shortfalls, nil
}

// process aplica un descuento. El job se reclama con MarkApplied dentro de la misma transacción
// que el movimiento, así dos consumidores no lo aplican dos veces. Si falla se registra el intento
// fuera de la transacción.
func (b *Binder) process(ctx context.Context, job *entity.DeductionJob) error {
	now := b.now()
	claimed := true
	err := b.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		ok, err := s.Deductions.MarkApplied(ctx, job.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			claimed = false
			return nil
		}
		return b.applyJob(ctx, s, job)
	})
	if err == nil {
		if claimed && job.Attempts > 0 {
			b.log.Info().
				Str("shop_id", job.ShopID).
				Str("order_number", job.OrderNumber).
				Str("product_id", job.ProductID).
				Int("attempts", job.Attempts+1).
				Msg("descuento de stock aplicado tras reintento")
		}
		return nil
	}

	attempts := job.Attempts + 1
	dead := attempts >= b.cfg.MaxAttempts
	next := now.Add(b.backoff(attempts))
	if ferr := b.deductions.MarkFailed(ctx, job.ID, err.Error(), next, dead); ferr != nil {
		b.log.Error().Err(ferr).Str("job_id", job.ID).Msg("no se pudo registrar el intento fallido")
	}
	if job.Attempts == 0 || dead {
		if werr := b.orders.AppendWarning(ctx, job.ShopID, job.OrderID, warning(job, err)); werr != nil {
			b.log.Error().Err(werr).Str("order_id", job.OrderID).Msg("no se pudo anotar la advertencia en la orden")
		}
	}
	b.log.Error().
		Err(err).
		Str("shop_id", job.ShopID).
		Str("order_id", job.OrderID).
		Str("order_number", job.OrderNumber).
		Str("product_id", job.ProductID).
		Str("branch_id", job.BranchID).
		Int("quantity", job.Quantity).
		Int("attempts", attempts).
		Bool("dead", dead).
		Time("next_attempt_at", next).
		Msg("descuento de stock post-venta falló")
	return err
}

// applyJob descuenta la línea del ledger con los repos de la transacción en curso.
func (b *Binder) applyJob(ctx context.Context, s ports.Stores, job *entity.DeductionJob) error {
	_, _, err := b.recorder.Apply(ctx, s, appinv.Movement{
		ShopID:    job.ShopID,
		ProductID: job.ProductID,
		BranchID:  job.BranchID,
		Delta:     -job.Quantity,
		Reason:    entity.ReasonSale,
		ActorID:   job.ActorID,
		Reference: job.OrderNumber,
		Notes:     "Venta " + job.OrderNumber,
	})
	return appinv.EnrichShortfall(err, job.ProductName)
}

// backoff base × 2^(intentos-1), con tope de una hora.
func (b *Binder) backoff(attempts int) time.Duration {
	d := b.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// ProcessDue procesa un lote de descuentos vencidos de todas las tiendas.
func (b *Binder) ProcessDue(ctx context.Context) (applied, failed int, err error) {
	jobs, err := b.deductions.ListDue(ctx, b.now(), b.cfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}
	for _, job := range jobs {
		if ctx.Err() != nil {
			return applied, failed, ctx.Err()
		}
		if perr := b.process(ctx, job); perr != nil {
			failed++
			continue
		}
		applied++
	}
	return applied, failed, nil
}

func validateCheckout(in dto.CheckoutRequest) (entity.OrderStatus, error) {
	if len(in.Items) == 0 {
		return "", domain.NewValidationError("items", "la venta debe tener al menos una línea")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return "", domain.NewValidationError("product_id", "es requerido")
		}
		if it.Quantity <= 0 {
			return "", domain.NewValidationError("quantity", "debe ser mayor que cero")
		}
		if it.UnitPrice.IsNegative() {
			return "", domain.NewValidationError("unit_price", "no puede ser negativo")
		}
	}
	for _, p := range in.Payments {
		if !entity.PaymentMethod(p.Method).Valid() {
			return "", domain.NewValidationError("payments.method", fmt.Sprintf("medio de pago %q desconocido", p.Method))
		}
		if p.Amount.IsNegative() {
			return "", domain.NewValidationError("payments.amount", "no puede ser negativo")
		}
	}
	switch entity.OrderStatus(in.Status) {
	case "", entity.OrderCompleted:
		return entity.OrderCompleted, nil
	case entity.OrderPartial:
		return entity.OrderPartial, nil
	}
	return "", domain.NewValidationError("status", "debe ser completed o partial")
}

func warning(job *entity.DeductionJob, err error) string {
	name := job.ProductName
	if name == "" {
		name = job.ProductID
	}
	return fmt.Sprintf("No se descontaron %d de %s: %s", job.Quantity, name, err.Error())
}
