package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type NegotiationStatus string

const (
	NegotiationInitiated       NegotiationStatus = "INITIATED"
	NegotiationAgreed          NegotiationStatus = "AGREED"
	NegotiationClosedCancelled NegotiationStatus = "CLOSED_CANCELLED"
)

func (s NegotiationStatus) Valid() bool {
	switch s {
	case NegotiationInitiated, NegotiationAgreed, NegotiationClosedCancelled:
		return true
	}
	return false
}

func (s NegotiationStatus) IsTerminal() bool {
	switch s {
	case NegotiationAgreed, NegotiationClosedCancelled:
		return true
	case NegotiationInitiated:
		return false
	}
	return false
}

// CanTransitionTo reports whether target is reachable from s in one step.
// Only INITIATED has outgoing edges.
func (s NegotiationStatus) CanTransitionTo(target NegotiationStatus) bool {
	switch s {
	case NegotiationInitiated:
		return target == NegotiationAgreed || target == NegotiationClosedCancelled
	case NegotiationAgreed, NegotiationClosedCancelled:
		return false
	}
	return false
}

type Negotiation struct {
	ID         string            `json:"id"`
	ShopID     string            `json:"shop_id"`
	SupplierID string            `json:"supplier_id"`
	ProductID  string            `json:"product_id"`
	Status     NegotiationStatus `json:"status"`

	MessageCount       int64            `json:"message_count"`
	LastMessageAt      *time.Time       `json:"last_message_at,omitempty"`
	LastMessagePreview string           `json:"last_message_preview,omitempty"`
	LastProposedPrice  *decimal.Decimal `json:"last_proposed_price,omitempty"`

	AgreedPrice *decimal.Decimal `json:"agreed_price,omitempty"`
	ClosedBy    string           `json:"closed_by,omitempty"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const previewLength = 120

// AppendMessage assigns the next sequence number to msg and folds it into
// the negotiation's thread summary. Callers persist both in one unit.
func (n *Negotiation) AppendMessage(msg *NegotiationMessage, at time.Time) {
	n.MessageCount++
	msg.NegotiationID = n.ID
	msg.Sequence = n.MessageCount
	msg.CreatedAt = at

	n.LastMessageAt = &at
	n.LastMessagePreview = preview(msg.Body)
	if msg.ProposedPrice != nil {
		price := *msg.ProposedPrice
		n.LastProposedPrice = &price
	}
	n.UpdatedAt = at
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength]) + "…"
}

// NegotiationWithMessages is the create/get payload: the negotiation and
// the first page of its thread.
type NegotiationWithMessages struct {
	*Negotiation
	Messages []*NegotiationMessage `json:"messages"`
}
