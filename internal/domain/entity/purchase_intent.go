package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type PurchaseIntentStatus string

const (
	IntentDraft     PurchaseIntentStatus = "DRAFT"
	IntentSubmitted PurchaseIntentStatus = "SUBMITTED"
	IntentAccepted  PurchaseIntentStatus = "ACCEPTED"
	IntentCancelled PurchaseIntentStatus = "CANCELLED"
)

func (s PurchaseIntentStatus) Valid() bool {
	switch s {
	case IntentDraft, IntentSubmitted, IntentAccepted, IntentCancelled:
		return true
	}
	return false
}

func (s PurchaseIntentStatus) IsTerminal() bool {
	switch s {
	case IntentAccepted, IntentCancelled:
		return true
	case IntentDraft, IntentSubmitted:
		return false
	}
	return false
}

// CanTransitionTo encodes the forward-only graph
// DRAFT→SUBMITTED→ACCEPTED with cancellation from either open state.
func (s PurchaseIntentStatus) CanTransitionTo(target PurchaseIntentStatus) bool {
	switch s {
	case IntentDraft:
		return target == IntentSubmitted || target == IntentCancelled
	case IntentSubmitted:
		return target == IntentAccepted || target == IntentCancelled
	case IntentAccepted, IntentCancelled:
		return false
	}
	return false
}

// LineItem prices are a snapshot taken when the intent is created.
type LineItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type PurchaseIntent struct {
	ID            string               `json:"id"`
	IntentNumber  string               `json:"intent_number"`
	ShopID        string               `json:"shop_id"`
	SupplierID    string               `json:"supplier_id"`
	NegotiationID string               `json:"negotiation_id,omitempty"`
	Status        PurchaseIntentStatus `json:"status"`
	LineItems     []LineItem           `json:"line_items"`
	TotalAmount   decimal.Decimal      `json:"total_amount"`
	Notes         string               `json:"notes,omitempty"`

	CancellationReason *string `json:"cancellation_reason,omitempty"`
	CancelledBy        string  `json:"cancelled_by,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

func (p *PurchaseIntent) RecalculateTotal() {
	total := decimal.Zero
	for _, item := range p.LineItems {
		total = total.Add(item.Subtotal())
	}
	p.TotalAmount = RoundPrice(total)
}
