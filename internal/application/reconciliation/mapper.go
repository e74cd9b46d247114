package reconciliation

import (
	"github.com/DTBbuilds/smartduka-inventory/internal/application/dto"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// ToResponse proyecta una conciliación a su DTO.
func ToResponse(r *entity.Reconciliation) *dto.ReconciliationResponse {
	variances := make([]dto.VarianceRecordResponse, 0, len(r.Variances))
	for _, v := range r.Variances {
		variances = append(variances, dto.VarianceRecordResponse{
			Type:               v.Type,
			Amount:             v.Amount,
			InvestigationNotes: v.InvestigationNotes,
			RecordedBy:         v.RecordedBy,
			RecordedAt:         v.RecordedAt,
		})
	}
	var lines []dto.StockCountLineResponse
	for _, l := range r.StockLines {
		lines = append(lines, dto.StockCountLineResponse{
			ProductID:     l.ProductID,
			ProductName:   l.ProductName,
			SystemStock:   l.SystemStock,
			PhysicalCount: l.PhysicalCount,
			Variance:      l.Variance,
			AdjustmentID:  l.AdjustmentID,
		})
	}
	return &dto.ReconciliationResponse{
		ID:                 r.ID,
		Type:               string(r.Type),
		BranchID:           r.BranchID,
		Date:               r.Date.Format(dateLayout),
		ExpectedValue:      r.ExpectedValue,
		ActualValue:        r.ActualValue,
		Variance:           r.Variance,
		VariancePercentage: r.VariancePercentage,
		Status:             string(r.Status),
		Variances:          variances,
		StockLines:         lines,
		Notes:              r.Notes,
		ReconciledBy:       r.ReconciledBy,
		ApprovedBy:         r.ApprovedBy,
		ApprovalTime:       r.ApprovalTime,
		CreatedAt:          r.CreatedAt,
	}
}
