package checkout

import (
	"context"
	"strings"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	appinv "github.com/DTBbuilds/smartduka-inventory/internal/application/inventory"
	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/pkg/telemetry"
)

// VoidOrder anula una venta. Los descuentos ya aplicados se devuelven al ledger con motivo return
// y los pendientes se cancelan, todo en una transacción.
func (b *Binder) VoidOrder(ctx context.Context, shopID, actorID, orderID string, in dto.VoidOrderRequest) (out *dto.OrderResponse, err error) {
	ctx, span := telemetry.Start(ctx, "checkout", "checkout.VoidOrder", shopID)
	defer func() { telemetry.End(span, err) }()

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "el motivo de anulación es requerido")
	}

	var (
		order    *entity.Order
		restored int
	)
	err = b.txRunner.Run(ctx, func(ctx context.Context, s ports.Stores) error {
		o, err := s.Orders.GetByID(ctx, shopID, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return domain.NewNotFoundError("orden", orderID)
		}
		from := o.Status
		if from != entity.OrderCompleted && from != entity.OrderPartial {
			return &domain.ConflictError{
				Resource: "orden",
				ID:       o.OrderNumber,
				Current:  string(from),
				Expected: []string{string(entity.OrderCompleted), string(entity.OrderPartial)},
			}
		}

		jobs, err := s.Deductions.ListByOrder(ctx, shopID, o.ID)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			applied := job.Status == entity.DeductionApplied
			if !applied {
				ok, err := s.Deductions.Cancel(ctx, job.ID)
				if err != nil {
					return err
				}
				if ok {
					continue
				}
				// otro consumidor lo aplicó entre la lectura y la cancelación
				cur, err := s.Deductions.Get(ctx, shopID, job.ID)
				if err != nil {
					return err
				}
				applied = cur != nil && cur.Status == entity.DeductionApplied
			}
			if !applied {
				continue
			}
			if _, _, err := b.recorder.Apply(ctx, s, appinv.Movement{
				ShopID:    shopID,
				ProductID: job.ProductID,
				BranchID:  job.BranchID,
				Delta:     job.Quantity,
				Reason:    entity.ReasonReturn,
				ActorID:   actorID,
				Reference: o.OrderNumber,
				Notes:     "Anulación de venta: " + reason,
			}); err != nil {
				return err
			}
			restored++
		}

		now := b.now()
		o.Status = entity.OrderVoid
		o.VoidReason = reason
		o.VoidedBy = actorID
		o.VoidedAt = &now
		o.UpdatedAt = now
		ok, err := s.Orders.UpdateIfStatus(ctx, o, from)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ConflictError{Resource: "orden", ID: o.OrderNumber}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	b.log.Info().
		Str("shop_id", shopID).
		Str("order_number", order.OrderNumber).
		Int("restored_lines", restored).
		Msg("venta anulada")
	b.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "order.void",
		Resource:   "order",
		ResourceID: order.ID,
		After:      map[string]any{"status": order.Status, "reason": reason, "restored_lines": restored},
		OccurredAt: order.UpdatedAt,
	})
	return toOrderResponse(order), nil
}

// GetOrder devuelve una orden de la tienda.
func (b *Binder) GetOrder(ctx context.Context, shopID, orderID string) (*dto.OrderResponse, error) {
	o, err := b.orders.GetByID(ctx, shopID, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.NewNotFoundError("orden", orderID)
	}
	return toOrderResponse(o), nil
}

// ListDeductions lista la cola de descuentos por estado. Sin estados lista pending, failed y dead.
func (b *Binder) ListDeductions(ctx context.Context, shopID string, statuses []string, limit, offset int) ([]dto.DeductionJobResponse, error) {
	want := make([]entity.DeductionStatus, 0, len(statuses))
	for _, s := range statuses {
		st := entity.DeductionStatus(s)
		switch st {
		case entity.DeductionPending, entity.DeductionFailed, entity.DeductionApplied, entity.DeductionDead, entity.DeductionCancelled:
			want = append(want, st)
		default:
			return nil, domain.NewValidationError("status", "estado de descuento desconocido: "+s)
		}
	}
	if len(want) == 0 {
		want = []entity.DeductionStatus{entity.DeductionPending, entity.DeductionFailed, entity.DeductionDead}
	}
	jobs, err := b.deductions.ListByStatus(ctx, shopID, want, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DeductionJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toJobResponse(j))
	}
	return out, nil
}

// RequeueDeduction devuelve a la cola un descuento dead y lo intenta de inmediato.
func (b *Binder) RequeueDeduction(ctx context.Context, shopID, actorID, jobID string) (*dto.DeductionJobResponse, error) {
	now := b.now()
	ok, err := b.deductions.Requeue(ctx, shopID, jobID, now)
	if err != nil {
		return nil, err
	}
	job, err := b.deductions.Get(ctx, shopID, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, domain.NewNotFoundError("descuento", jobID)
	}
	if !ok {
		return nil, &domain.ConflictError{
			Resource: "descuento",
			ID:       jobID,
			Current:  string(job.Status),
			Expected: []string{string(entity.DeductionDead)},
		}
	}

	b.audit.Record(ctx, entity.AuditEntry{
		ShopID:     shopID,
		ActorID:    actorID,
		Action:     "deduction.requeue",
		Resource:   "deduction_job",
		ResourceID: jobID,
		Before:     map[string]any{"status": entity.DeductionDead},
		After:      map[string]any{"status": entity.DeductionPending},
		OccurredAt: now,
	})

	perr := b.process(ctx, job)
	job, err = b.deductions.Get(ctx, shopID, jobID)
	if err != nil {
		return nil, err
	}
	resp := toJobResponse(job)
	if perr != nil {
		// MarkFailed pudo no persistir; el error del intento va igual en la respuesta.
		resp.LastError = perr.Error()
	}
	return &resp, nil
}
