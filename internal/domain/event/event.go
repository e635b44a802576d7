package event

import "time"

type Type string

const (
	NegotiationCreated       Type = "negotiation.created"
	NegotiationMessageSent   Type = "negotiation.message_sent"
	NegotiationStatusChanged Type = "negotiation.status_changed"
	NegotiationRead          Type = "negotiation.read"

	PurchaseIntentCreated   Type = "purchase_intent.created"
	PurchaseIntentSubmitted Type = "purchase_intent.submitted"
	PurchaseIntentAccepted  Type = "purchase_intent.accepted"
	PurchaseIntentCancelled Type = "purchase_intent.cancelled"
)

// Event describes a committed change. Recipients are channel keys of the
// parties that should hear about it (profile ids for shops and suppliers).
type Event struct {
	Type       Type        `json:"type"`
	EntityType string      `json:"entity_type"`
	EntityID   string      `json:"entity_id"`
	ActorID    string      `json:"actor_id"`
	FromStatus string      `json:"from_status,omitempty"`
	ToStatus   string      `json:"to_status,omitempty"`
	Notes      string      `json:"notes,omitempty"`
	Recipients []string    `json:"-"`
	Payload    interface{} `json:"payload,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// IsTransition reports whether the event records a status change and so
// belongs in the audit trail.
func (e Event) IsTransition() bool {
	return e.ToStatus != ""
}
