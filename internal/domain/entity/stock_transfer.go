package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferStatus estado de una transferencia entre ubicaciones.
type TransferStatus string

const (
	TransferDraft             TransferStatus = "draft"
	TransferPendingApproval   TransferStatus = "pending_approval"
	TransferApproved          TransferStatus = "approved"
	TransferInTransit         TransferStatus = "in_transit"
	TransferPartiallyReceived TransferStatus = "partially_received"
	TransferReceived          TransferStatus = "received"
	TransferRejected          TransferStatus = "rejected"
	TransferCancelled         TransferStatus = "cancelled"
)

// Terminal indica si el estado ya no admite transiciones.
func (s TransferStatus) Terminal() bool {
	return s == TransferReceived || s == TransferRejected || s == TransferCancelled
}

// TransferPriority prioridad operativa.
type TransferPriority string

const (
	PriorityLow    TransferPriority = "low"
	PriorityNormal TransferPriority = "normal"
	PriorityHigh   TransferPriority = "high"
	PriorityUrgent TransferPriority = "urgent"
)

// Valid indica si la prioridad es conocida.
func (p TransferPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TransferItem línea de una transferencia.
// Invariante: DamagedQuantity <= ReceivedQuantity <= Quantity.
type TransferItem struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"received_quantity"`
	DamagedQuantity  int             `json:"damaged_quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
}

// Outstanding cantidad pendiente de recibir.
func (i TransferItem) Outstanding() int {
	return i.Quantity - i.ReceivedQuantity
}

// StockTransfer solicitud de mover stock entre dos ubicaciones.
// El pool principal se modela como FromBranchID/ToBranchID = MainStoreID junto con
// IsFromMainStore/IsToMainStore.
type StockTransfer struct {
	ID              string
	ShopID          string
	TransferNumber  string
	FromBranchID    string
	ToBranchID      string
	IsFromMainStore bool
	IsToMainStore   bool
	Items           []TransferItem
	Status          TransferStatus
	Priority        TransferPriority
	Reason          string
	Notes           string
	TotalValue      decimal.Decimal // snapshot de UnitCost × Quantity al crear

	RequestedBy        string
	RequestedAt        time.Time
	ApprovedBy         string
	ApprovedAt         *time.Time
	RejectedBy         string
	RejectedAt         *time.Time
	RejectionReason    string
	ShippedBy          string
	ShippedAt          *time.Time
	TrackingNumber     string
	Carrier            string
	ExpectedArrival    *time.Time
	ReceivedBy         string
	ReceivedAt         *time.Time
	CancelledBy        string
	CancelledAt        *time.Time
	CancellationReason string

	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceLocation id de ubicación origen para el ledger.
func (t *StockTransfer) SourceLocation() string {
	if t.IsFromMainStore {
		return MainStoreID
	}
	return t.FromBranchID
}

// DestinationLocation id de ubicación destino para el ledger.
func (t *StockTransfer) DestinationLocation() string {
	if t.IsToMainStore {
		return MainStoreID
	}
	return t.ToBranchID
}

// FullyReceived indica si todas las líneas recibieron su cantidad solicitada.
func (t *StockTransfer) FullyReceived() bool {
	for _, it := range t.Items {
		if it.ReceivedQuantity < it.Quantity {
			return false
		}
	}
	return true
}

// Clone copia profunda (items y punteros de tiempo).
func (t *StockTransfer) Clone() *StockTransfer {
	if t == nil {
		return nil
	}
	c := *t
	c.Items = append([]TransferItem(nil), t.Items...)
	c.ApprovedAt = cloneTime(t.ApprovedAt)
	c.RejectedAt = cloneTime(t.RejectedAt)
	c.ShippedAt = cloneTime(t.ShippedAt)
	c.ExpectedArrival = cloneTime(t.ExpectedArrival)
	c.ReceivedAt = cloneTime(t.ReceivedAt)
	c.CancelledAt = cloneTime(t.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
