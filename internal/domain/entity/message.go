package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// NegotiationMessage belongs to exactly one negotiation. It is never edited
// or deleted; ReadAt is set once by the counterpart.
type NegotiationMessage struct {
	ID            string           `json:"id"`
	NegotiationID string           `json:"negotiation_id"`
	Sequence      int64            `json:"sequence"`
	SenderID      string           `json:"sender_id"`
	SenderRole    Role             `json:"sender_role"`
	Body          string           `json:"body"`
	ProposedPrice *decimal.Decimal `json:"proposed_price,omitempty"`
	ReadAt        *time.Time       `json:"read_at,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}
