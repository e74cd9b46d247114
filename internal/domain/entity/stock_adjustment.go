package entity

import "time"

// AdjustmentReason motivo de un cambio de stock.
type AdjustmentReason string

const (
	ReasonSale             AdjustmentReason = "sale"
	ReasonPurchaseReceived AdjustmentReason = "purchase_received"
	ReasonCorrection       AdjustmentReason = "correction"
	ReasonTransfer         AdjustmentReason = "transfer"
	ReasonDamage           AdjustmentReason = "damage"
	ReasonLoss             AdjustmentReason = "loss"
	ReasonReturn           AdjustmentReason = "return"
	ReasonOther            AdjustmentReason = "other"
)

// Valid indica si el motivo pertenece al catálogo cerrado.
func (r AdjustmentReason) Valid() bool {
	switch r {
	case ReasonSale, ReasonPurchaseReceived, ReasonCorrection, ReasonTransfer,
		ReasonDamage, ReasonLoss, ReasonReturn, ReasonOther:
		return true
	}
	return false
}

// StockAdjustment hecho inmutable que explica un delta del ledger.
// Nunca se actualiza ni se elimina.
type StockAdjustment struct {
	ID             string
	ShopID         string
	ProductID      string
	BranchID       string // MainStoreID para el pool principal
	QuantityChange int
	QuantityBefore int
	QuantityAfter  int
	Reason         AdjustmentReason
	ActorID        string
	Reference      string // número de orden, transferencia o conciliación
	Notes          string
	NegativeStock  bool // el ajuste dejó el stock bajo cero por política allow
	CreatedAt      time.Time
}
