package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/DTBbuilds/smartduka-inventory/internal/application/ports"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
	"github.com/DTBbuilds/smartduka-inventory/internal/domain/repository"
	"github.com/DTBbuilds/smartduka-inventory/pkg/logger"
)

// Movement delta a registrar sobre el ledger junto con su motivo.
type Movement struct {
	ShopID    string
	ProductID string
	BranchID  string // vacío o entity.MainStoreID = pool principal
	Delta     int
	Reason    entity.AdjustmentReason
	ActorID   string
	Reference string
	Notes     string
}

// Recorder es el único camino de escritura al ledger: checkout, ajustes manuales y
// transferencias pasan por Apply, que usa el incremento atómico del almacén y deja
// el StockAdjustment correspondiente en la misma transacción.
type Recorder struct {
	allowNegative bool
	log           *logger.Logger
	now           func() time.Time
}

// NewRecorder construye el registrador con la política de stock negativo.
func NewRecorder(allowNegative bool, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{allowNegative: allowNegative, log: log, now: time.Now}
}

// AllowNegative política vigente.
func (r *Recorder) AllowNegative() bool { return r.allowNegative }

// Apply aplica el delta y agrega el ajuste. Debe ejecutarse dentro de TxRunner.Run con los repos de la tx.
func (r *Recorder) Apply(ctx context.Context, s ports.Stores, m Movement) (*entity.StockAdjustment, repository.LedgerResult, error) {
	if m.Delta == 0 {
		return nil, repository.LedgerResult{}, domain.NewValidationError("quantity_change", "debe ser distinto de cero")
	}
	if !m.Reason.Valid() {
		return nil, repository.LedgerResult{}, domain.NewValidationError("reason", "motivo de ajuste desconocido: "+string(m.Reason))
	}
	branchID := m.BranchID
	if entity.IsMainStore(branchID) {
		branchID = entity.MainStoreID
	}

	key := repository.StockKey{ShopID: m.ShopID, ProductID: m.ProductID, BranchID: branchID}
	res, err := s.Ledger.ApplyDelta(ctx, key, m.Delta, r.allowNegative)
	if err != nil {
		return nil, repository.LedgerResult{}, err
	}
	if res.Negative {
		r.log.Warn().
			Str("shop_id", m.ShopID).
			Str("product_id", m.ProductID).
			Str("branch_id", branchID).
			Int("stock", res.Current).
			Str("reason", string(m.Reason)).
			Msg("stock negativo permitido por política")
	}

	adj := &entity.StockAdjustment{
		ID:             uuid.New().String(),
		ShopID:         m.ShopID,
		ProductID:      m.ProductID,
		BranchID:       branchID,
		QuantityChange: m.Delta,
		QuantityBefore: res.Previous,
		QuantityAfter:  res.Current,
		Reason:         m.Reason,
		ActorID:        m.ActorID,
		Reference:      m.Reference,
		Notes:          m.Notes,
		NegativeStock:  res.Negative,
		CreatedAt:      r.now(),
	}
	if err := s.Adjustments.Append(ctx, adj); err != nil {
		return nil, repository.LedgerResult{}, err
	}
	return adj, res, nil
}
