package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CashReconciliationRequest body para POST /api/reconciliations/cash.
// Date en formato YYYY-MM-DD.
type CashReconciliationRequest struct {
	Date       string          `json:"date"`
	BranchID   string          `json:"branch_id"`
	ActualCash decimal.Decimal `json:"actual_cash"`
	Notes      string          `json:"notes"`
}

// StockCountRequest conteo físico de un producto.
type StockCountRequest struct {
	ProductID     string `json:"product_id"`
	PhysicalCount int    `json:"physical_count"`
}

// StockReconciliationRequest body para POST /api/reconciliations/stock.
type StockReconciliationRequest struct {
	Date     string              `json:"date"`
	BranchID string              `json:"branch_id"`
	Counts   []StockCountRequest `json:"counts"`
	Notes    string              `json:"notes"`
}

// InvestigateVarianceRequest body para POST /api/reconciliations/:id/investigate.
type InvestigateVarianceRequest struct {
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	InvestigationNotes string          `json:"investigation_notes"`
}

// VarianceRecordResponse registro de investigación.
type VarianceRecordResponse struct {
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	InvestigationNotes string          `json:"investigation_notes"`
	RecordedBy         string          `json:"recorded_by"`
	RecordedAt         time.Time       `json:"recorded_at"`
}

// StockCountLineResponse resultado por producto de una conciliación de stock.
type StockCountLineResponse struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	SystemStock   int    `json:"system_stock"`
	PhysicalCount int    `json:"physical_count"`
	Variance      int    `json:"variance"`
	AdjustmentID  string `json:"adjustment_id,omitempty"`
}

// ReconciliationResponse proyección de una conciliación.
type ReconciliationResponse struct {
	ID                 string                   `json:"id"`
	Type               string                   `json:"type"`
	BranchID           string                   `json:"branch_id,omitempty"`
	Date               string                   `json:"date"`
	ExpectedValue      decimal.Decimal          `json:"expected_value"`
	ActualValue        decimal.Decimal          `json:"actual_value"`
	Variance           decimal.Decimal          `json:"variance"`
	VariancePercentage decimal.Decimal          `json:"variance_percentage"`
	Status             string                   `json:"status"`
	Variances          []VarianceRecordResponse `json:"variances"`
	StockLines         []StockCountLineResponse `json:"stock_lines,omitempty"`
	Notes              string                   `json:"notes,omitempty"`
	ReconciledBy       string                   `json:"reconciled_by"`
	ApprovedBy         string                   `json:"approved_by,omitempty"`
	ApprovalTime       *time.Time               `json:"approval_time,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
}

// ReconciliationListResponse lista paginada de conciliaciones.
type ReconciliationListResponse struct {
	Items []ReconciliationResponse `json:"items"`
	Page  PageResponse             `json:"page"`
}
