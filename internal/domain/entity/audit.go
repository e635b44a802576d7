package entity

import "time"

const (
	AuditNegotiation    = "negotiation"
	AuditPurchaseIntent = "purchase_intent"
)

// AuditEntry is one recorded state change of a negotiation or intent.
type AuditEntry struct {
	ID         string    `json:"id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Event      string    `json:"event"`
	FromStatus string    `json:"from_status,omitempty"`
	ToStatus   string    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
