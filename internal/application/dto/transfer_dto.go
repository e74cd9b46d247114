package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferItemRequest línea solicitada.
type TransferItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CreateTransferRequest body para POST /api/transfers.
// Origen o destino vacíos (o "none") apuntan al pool principal.
type CreateTransferRequest struct {
	FromBranchID string                `json:"from_branch_id"`
	ToBranchID   string                `json:"to_branch_id"`
	Items        []TransferItemRequest `json:"items"`
	Priority     string                `json:"priority"`
	Reason       string                `json:"reason"`
	Notes        string                `json:"notes"`
	SaveAsDraft  bool                  `json:"save_as_draft"`
}

// RejectTransferRequest body para POST /api/transfers/:id/reject.
type RejectTransferRequest struct {
	Reason string `json:"reason"`
}

// ShipTransferRequest metadatos de envío.
type ShipTransferRequest struct {
	TrackingNumber  string     `json:"tracking_number"`
	Carrier         string     `json:"carrier"`
	ExpectedArrival *time.Time `json:"expected_arrival,omitempty"`
	Notes           string     `json:"notes"`
}

// ReceiveItemRequest cantidades recibidas en esta entrega (se acumulan).
type ReceiveItemRequest struct {
	ProductID        string `json:"product_id"`
	ReceivedQuantity int    `json:"received_quantity"`
	DamagedQuantity  int    `json:"damaged_quantity"`
}

// ReceiveTransferRequest body para POST /api/transfers/:id/receive.
type ReceiveTransferRequest struct {
	Items []ReceiveItemRequest `json:"items"`
	Notes string               `json:"notes"`
}

// CancelTransferRequest body para POST /api/transfers/:id/cancel.
type CancelTransferRequest struct {
	Reason string `json:"reason"`
}

// TransferItemResponse línea de transferencia.
type TransferItemResponse struct {
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku"`
	Quantity         int             `json:"quantity"`
	ReceivedQuantity int             `json:"received_quantity"`
	DamagedQuantity  int             `json:"damaged_quantity"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
}

// TransferResponse proyección de una transferencia.
type TransferResponse struct {
	ID                 string                 `json:"id"`
	TransferNumber     string                 `json:"transfer_number"`
	FromBranchID       string                 `json:"from_branch_id"`
	ToBranchID         string                 `json:"to_branch_id"`
	IsFromMainStore    bool                   `json:"is_from_main_store"`
	IsToMainStore      bool                   `json:"is_to_main_store"`
	Items              []TransferItemResponse `json:"items"`
	Status             string                 `json:"status"`
	Priority           string                 `json:"priority"`
	Reason             string                 `json:"reason,omitempty"`
	Notes              string                 `json:"notes,omitempty"`
	TotalValue         decimal.Decimal        `json:"total_value"`
	RequestedBy        string                 `json:"requested_by"`
	RequestedAt        time.Time              `json:"requested_at"`
	ApprovedBy         string                 `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time             `json:"approved_at,omitempty"`
	RejectedBy         string                 `json:"rejected_by,omitempty"`
	RejectedAt         *time.Time             `json:"rejected_at,omitempty"`
	RejectionReason    string                 `json:"rejection_reason,omitempty"`
	ShippedBy          string                 `json:"shipped_by,omitempty"`
	ShippedAt          *time.Time             `json:"shipped_at,omitempty"`
	TrackingNumber     string                 `json:"tracking_number,omitempty"`
	Carrier            string                 `json:"carrier,omitempty"`
	ExpectedArrival    *time.Time             `json:"expected_arrival,omitempty"`
	ReceivedBy         string                 `json:"received_by,omitempty"`
	ReceivedAt         *time.Time             `json:"received_at,omitempty"`
	CancelledBy        string                 `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time             `json:"cancelled_at,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	Version            int                    `json:"version"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// TransferListResponse lista paginada de transferencias.
type TransferListResponse struct {
	Items []TransferResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
