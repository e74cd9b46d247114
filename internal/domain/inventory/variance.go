package inventory

import (
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CashVariance resultado de comparar efectivo esperado contra contado.
type CashVariance struct {
	Variance   decimal.Decimal
	Percentage decimal.Decimal
	Status     entity.ReconciliationStatus
}

// ClassifyCashVariance variance = actual - expected; porcentaje sobre expected (0 si expected <= 0).
// Dentro del umbral (|variance| <= threshold) queda reconciled; fuera, variance_pending.
func ClassifyCashVariance(expected, actual, threshold decimal.Decimal) CashVariance {
	variance := actual.Sub(expected)
	pct := decimal.Zero
	if expected.GreaterThan(decimal.Zero) {
		pct = variance.Div(expected).Mul(hundred).Round(2)
	}
	status := entity.ReconciliationReconciled
	if variance.Abs().GreaterThan(threshold) {
		status = entity.ReconciliationVariancePending
	}
	return CashVariance{Variance: variance, Percentage: pct, Status: status}
}
