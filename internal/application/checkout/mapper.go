package checkout

import (
	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

func toOrderResponse(o *entity.Order) *dto.OrderResponse {
	items := make([]dto.CheckoutItemRequest, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, dto.CheckoutItemRequest{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	payments := make([]dto.PaymentRequest, 0, len(o.Payments))
	for _, p := range o.Payments {
		payments = append(payments, dto.PaymentRequest{Method: string(p.Method), Amount: p.Amount})
	}
	return &dto.OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		BranchID:      o.BranchID,
		CashierID:     o.CashierID,
		Items:         items,
		Payments:      payments,
		Total:         o.Total,
		Status:        string(o.Status),
		StockWarnings: o.StockWarnings,
		VoidReason:    o.VoidReason,
		VoidedBy:      o.VoidedBy,
		VoidedAt:      o.VoidedAt,
		CreatedAt:     o.CreatedAt,
	}
}

func toJobResponse(j *entity.DeductionJob) dto.DeductionJobResponse {
	return dto.DeductionJobResponse{
		ID:            j.ID,
		OrderID:       j.OrderID,
		OrderNumber:   j.OrderNumber,
		ProductID:     j.ProductID,
		BranchID:      j.BranchID,
		Quantity:      j.Quantity,
		Status:        string(j.Status),
		Attempts:      j.Attempts,
		LastError:     j.LastError,
		NextAttemptAt: j.NextAttemptAt,
		AppliedAt:     j.AppliedAt,
	}
}
