package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReconciliationType eje de conciliación. Caja y stock físico son flujos independientes.
type ReconciliationType string

const (
	ReconciliationCash  ReconciliationType = "cash"
	ReconciliationStock ReconciliationType = "stock"
)

// ReconciliationStatus estado de una conciliación.
type ReconciliationStatus string

const (
	ReconciliationPending         ReconciliationStatus = "pending"
	ReconciliationReconciled      ReconciliationStatus = "reconciled"
	ReconciliationVariancePending ReconciliationStatus = "variance_pending"
)

// VarianceRecord registro append-only de investigación de una diferencia.
type VarianceRecord struct {
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	InvestigationNotes string          `json:"investigation_notes"`
	RecordedBy         string          `json:"recorded_by"`
	RecordedAt         time.Time       `json:"recorded_at"`
}

// StockCountLine conteo físico de un producto.
type StockCountLine struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	SystemStock   int    `json:"system_stock"`
	PhysicalCount int    `json:"physical_count"`
	Variance      int    `json:"variance"`
	AdjustmentID  string `json:"adjustment_id,omitempty"`
}

// Reconciliation snapshot de conciliación por (tienda, fecha). Nunca alimenta el ledger
// salvo a través de un ajuste correction.
type Reconciliation struct {
	ID                 string
	ShopID             string
	BranchID           string
	Type               ReconciliationType
	Date               time.Time // truncada al día
	ExpectedValue      decimal.Decimal
	ActualValue        decimal.Decimal
	Variance           decimal.Decimal
	VariancePercentage decimal.Decimal
	Status             ReconciliationStatus
	Variances          []VarianceRecord
	StockLines         []StockCountLine
	Notes              string
	ReconciledBy       string
	ApprovedBy         string
	ApprovalTime       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Clone copia profunda.
func (r *Reconciliation) Clone() *Reconciliation {
	if r == nil {
		return nil
	}
	c := *r
	c.Variances = append([]VarianceRecord(nil), r.Variances...)
	c.StockLines = append([]StockCountLine(nil), r.StockLines...)
	c.ApprovalTime = cloneTime(r.ApprovalTime)
	return &c
}
