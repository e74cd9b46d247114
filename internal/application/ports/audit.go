package ports

import (
	"context"

	"github.com/DTBbuilds/smartduka-inventory/internal/domain/entity"
)

// AuditTrail sumidero de auditoría. Record no bloquea ni devuelve error: la entrega es
// responsabilidad del adaptador.
type AuditTrail interface {
	Record(ctx context.Context, entry entity.AuditEntry)
}

// NopAudit descarta los registros.
type NopAudit struct{}

func (NopAudit) Record(context.Context, entity.AuditEntry) {}
