package inventory

import (
	"fmt"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// TransferAction acción sobre la máquina de estados de transferencias.
type TransferAction string

const (
	ActionSubmit  TransferAction = "submit"
	ActionApprove TransferAction = "approve"
	ActionReject  TransferAction = "reject"
	ActionShip    TransferAction = "ship"
	ActionReceive TransferAction = "receive"
	ActionCancel  TransferAction = "cancel"
)

// allowedFrom estados de origen válidos por acción.
//
//	draft → pending_approval → approved → in_transit → {partially_received | received}
//	rejected   solo desde draft / pending_approval
//	cancelled  desde cualquier estado no terminal
var allowedFrom = map[TransferAction][]entity.TransferStatus{
	ActionSubmit:  {entity.TransferDraft},
	ActionApprove: {entity.TransferPendingApproval},
	ActionReject:  {entity.TransferDraft, entity.TransferPendingApproval},
	ActionShip:    {entity.TransferApproved},
	ActionReceive: {entity.TransferInTransit, entity.TransferPartiallyReceived},
	ActionCancel: {
		entity.TransferDraft,
		entity.TransferPendingApproval,
		entity.TransferApproved,
		entity.TransferInTransit,
		entity.TransferPartiallyReceived,
	},
}

// AllowedFrom devuelve los estados desde los que la acción es válida.
func AllowedFrom(a TransferAction) []entity.TransferStatus {
	return allowedFrom[a]
}

// CanApply indica si la acción es válida desde el estado dado.
func CanApply(a TransferAction, from entity.TransferStatus) bool {
	for _, s := range allowedFrom[a] {
		if s == from {
			return true
		}
	}
	return false
}

// CheckTransition devuelve un ConflictError si la transferencia no admite la acción en su estado actual.
func CheckTransition(t *entity.StockTransfer, a TransferAction) error {
	if CanApply(a, t.Status) {
		return nil
	}
	expected := make([]string, 0, len(allowedFrom[a]))
	for _, s := range allowedFrom[a] {
		expected = append(expected, string(s))
	}
	return &domain.ConflictError{
		Resource: "transferencia",
		ID:       t.TransferNumber,
		Current:  string(t.Status),
		Expected: expected,
	}
}

// ReceiptLine cantidades recibidas en una entrega (incrementales).
type ReceiptLine struct {
	ProductID        string
	ReceivedQuantity int
	DamagedQuantity  int
}

// ReceiptEffect efecto de una línea recibida sobre el ledger destino.
type ReceiptEffect struct {
	ProductID string
	Received  int
	Damaged   int
	Usable    int // Received - Damaged; lo único que entra al stock destino
}

// ApplyReceipt acumula una entrega sobre los items de la transferencia y calcula los efectos.
// No modifica t si alguna línea es inválida.
func ApplyReceipt(t *entity.StockTransfer, lines []ReceiptLine) ([]ReceiptEffect, error) {
	if len(lines) == 0 {
		return nil, domain.NewValidationError("items", "la entrega no tiene líneas")
	}
	index := make(map[string]int, len(t.Items))
	for i, it := range t.Items {
		index[it.ProductID] = i
	}

	received := make(map[string]int, len(lines))
	damaged := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := index[l.ProductID]; !ok {
			return nil, domain.NewValidationError("product_id", fmt.Sprintf("el producto %s no pertenece a la transferencia", l.ProductID))
		}
		if l.ReceivedQuantity < 0 || l.DamagedQuantity < 0 {
			return nil, domain.NewValidationError("quantity", "las cantidades no pueden ser negativas")
		}
		if l.DamagedQuantity > l.ReceivedQuantity {
			return nil, domain.NewValidationError("damaged_quantity",
				fmt.Sprintf("dañados (%d) no puede superar recibidos (%d)", l.DamagedQuantity, l.ReceivedQuantity))
		}
		if _, seen := received[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		received[l.ProductID] += l.ReceivedQuantity
		damaged[l.ProductID] += l.DamagedQuantity
	}

	total := 0
	for _, pid := range order {
		it := t.Items[index[pid]]
		if it.ReceivedQuantity+received[pid] > it.Quantity {
			return nil, domain.NewValidationError("received_quantity",
				fmt.Sprintf("se recibirían %d de %s pero solo se enviaron %d",
					it.ReceivedQuantity+received[pid], it.ProductName, it.Quantity))
		}
		total += received[pid]
	}
	if total == 0 {
		return nil, domain.NewValidationError("received_quantity", "la entrega no recibe ninguna unidad")
	}

	effects := make([]ReceiptEffect, 0, len(order))
	for _, pid := range order {
		i := index[pid]
		t.Items[i].ReceivedQuantity += received[pid]
		t.Items[i].DamagedQuantity += damaged[pid]
		effects = append(effects, ReceiptEffect{
			ProductID: pid,
			Received:  received[pid],
			Damaged:   damaged[pid],
			Usable:    received[pid] - damaged[pid],
		})
	}
	return effects, nil
}

// StatusAfterReceipt received si todas las líneas están completas, si no partially_received.
func StatusAfterReceipt(t *entity.StockTransfer) entity.TransferStatus {
	if t.FullyReceived() {
		return entity.TransferReceived
	}
	return entity.TransferPartiallyReceived
}

// CancellationReturns cantidades a devolver al origen al cancelar.
// Solo hay devolución si el stock ya salió (in_transit o partially_received); se devuelve lo no recibido.
func CancellationReturns(t *entity.StockTransfer) map[string]int {
	if t.Status != entity.TransferInTransit && t.Status != entity.TransferPartiallyReceived {
		return nil
	}
	out := make(map[string]int, len(t.Items))
	for _, it := range t.Items {
		if n := it.Outstanding(); n > 0 {
			out[it.ProductID] += n
		}
	}
	return out
}
