package entity

import "time"

// AuditEntry registro de una acción mutante para cumplimiento.
type AuditEntry struct {
	ShopID     string    `json:"shop_id"`
	ActorID    string    `json:"actor_id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resource_id"`
	Before     any       `json:"before,omitempty"`
	After      any       `json:"after,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
