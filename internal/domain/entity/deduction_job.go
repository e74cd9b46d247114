package entity

import "time"

// DeductionStatus estado de un descuento de stock pendiente de una venta.
type DeductionStatus string

const (
	DeductionPending   DeductionStatus = "pending"
	DeductionFailed    DeductionStatus = "failed" // reintentable
	DeductionApplied   DeductionStatus = "applied"
	DeductionDead      DeductionStatus = "dead" // agotó reintentos; requiere intervención
	DeductionCancelled DeductionStatus = "cancelled"
)

// DeductionJob entrada de la cola durable de descuentos post-venta.
// Se escribe en la misma transacción que la orden.
type DeductionJob struct {
	ID            string
	ShopID        string
	OrderID       string
	OrderNumber   string
	ProductID     string
	ProductName   string
	BranchID      string
	Quantity      int
	ActorID       string
	Status        DeductionStatus
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	AppliedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
