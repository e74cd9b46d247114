package transfer

import (
	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// ToResponse proyecta una transferencia a su DTO.
func ToResponse(t *entity.StockTransfer) *dto.TransferResponse {
	items := make([]dto.TransferItemResponse, 0, len(t.Items))
	for _, it := range t.Items {
		items = append(items, dto.TransferItemResponse{
			ProductID:        it.ProductID,
			ProductName:      it.ProductName,
			SKU:              it.SKU,
			Quantity:         it.Quantity,
			ReceivedQuantity: it.ReceivedQuantity,
			DamagedQuantity:  it.DamagedQuantity,
			UnitCost:         it.UnitCost,
		})
	}
	return &dto.TransferResponse{
		ID:                 t.ID,
		TransferNumber:     t.TransferNumber,
		FromBranchID:       t.FromBranchID,
		ToBranchID:         t.ToBranchID,
		IsFromMainStore:    t.IsFromMainStore,
		IsToMainStore:      t.IsToMainStore,
		Items:              items,
		Status:             string(t.Status),
		Priority:           string(t.Priority),
		Reason:             t.Reason,
		Notes:              t.Notes,
		TotalValue:         t.TotalValue,
		RequestedBy:        t.RequestedBy,
		RequestedAt:        t.RequestedAt,
		ApprovedBy:         t.ApprovedBy,
		ApprovedAt:         t.ApprovedAt,
		RejectedBy:         t.RejectedBy,
		RejectedAt:         t.RejectedAt,
		RejectionReason:    t.RejectionReason,
		ShippedBy:          t.ShippedBy,
		ShippedAt:          t.ShippedAt,
		TrackingNumber:     t.TrackingNumber,
		Carrier:            t.Carrier,
		ExpectedArrival:    t.ExpectedArrival,
		ReceivedBy:         t.ReceivedBy,
		ReceivedAt:         t.ReceivedAt,
		CancelledBy:        t.CancelledBy,
		CancelledAt:        t.CancelledAt,
		CancellationReason: t.CancellationReason,
		Version:            t.Version,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func toListResponse(list []*entity.StockTransfer, limit, offset int) *dto.TransferListResponse {
	items := make([]dto.TransferResponse, 0, len(list))
	for _, t := range list {
		items = append(items, *ToResponse(t))
	}
	return &dto.TransferListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}
}
