package repository

import (
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"b2bmarket/internal/domain/entity"
)

// Firestore has no decimal type, so prices are stored as canonical strings
// and every entity crosses the boundary through one of these documents.

const (
	negotiationsCollection    = "negotiations"
	messagesCollection        = "messages"
	purchaseIntentsCollection = "purchase_intents"
	intentNumbersCollection   = "purchase_intent_numbers"
	productsCollection        = "products"
	usersCollection           = "users"
	auditCollection           = "audit_log"
)

func priceString(p *decimal.Decimal) *string {
	if p == nil {
		return nil
	}
	s := entity.RoundPrice(*p).StringFixed(entity.PriceScale)
	return &s
}

func parsePrice(s *string) (*decimal.Decimal, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "parse price %q", *s)
	}
	return &d, nil
}

type negotiationDoc struct {
	ID                 string     `firestore:"id"`
	ShopID             string     `firestore:"shopId"`
	SupplierID         string     `firestore:"supplierId"`
	ProductID          string     `firestore:"productId"`
	Status             string     `firestore:"status"`
	MessageCount       int64      `firestore:"messageCount"`
	LastMessageAt      *time.Time `firestore:"lastMessageAt"`
	LastMessagePreview string     `firestore:"lastMessagePreview"`
	LastProposedPrice  *string    `firestore:"lastProposedPrice"`
	AgreedPrice        *string    `firestore:"agreedPrice"`
	ClosedBy           string     `firestore:"closedBy"`
	ClosedAt           *time.Time `firestore:"closedAt"`
	CreatedAt          time.Time  `firestore:"createdAt"`
	UpdatedAt          time.Time  `firestore:"updatedAt"`
}

func toNegotiationDoc(n *entity.Negotiation) negotiationDoc {
	return negotiationDoc{
		ID:                 n.ID,
		ShopID:             n.ShopID,
		SupplierID:         n.SupplierID,
		ProductID:          n.ProductID,
		Status:             string(n.Status),
		MessageCount:       n.MessageCount,
		LastMessageAt:      n.LastMessageAt,
		LastMessagePreview: n.LastMessagePreview,
		LastProposedPrice:  priceString(n.LastProposedPrice),
		AgreedPrice:        priceString(n.AgreedPrice),
		ClosedBy:           n.ClosedBy,
		ClosedAt:           n.ClosedAt,
		CreatedAt:          n.CreatedAt,
		UpdatedAt:          n.UpdatedAt,
	}
}

func (d negotiationDoc) toEntity() (*entity.Negotiation, error) {
	lastPrice, err := parsePrice(d.LastProposedPrice)
	if err != nil {
		return nil, err
	}
	agreed, err := parsePrice(d.AgreedPrice)
	if err != nil {
		return nil, err
	}
	return &entity.Negotiation{
		ID:                 d.ID,
		ShopID:             d.ShopID,
		SupplierID:         d.SupplierID,
		ProductID:          d.ProductID,
		Status:             entity.NegotiationStatus(d.Status),
		MessageCount:       d.MessageCount,
		LastMessageAt:      d.LastMessageAt,
		LastMessagePreview: d.LastMessagePreview,
		LastProposedPrice:  lastPrice,
		AgreedPrice:        agreed,
		ClosedBy:           d.ClosedBy,
		ClosedAt:           d.ClosedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}, nil
}

type messageDoc struct {
	ID            string     `firestore:"id"`
	NegotiationID string     `firestore:"negotiationId"`
	Sequence      int64      `firestore:"sequence"`
	SenderID      string     `firestore:"senderId"`
	SenderRole    string     `firestore:"senderRole"`
	Body          string     `firestore:"body"`
	ProposedPrice *string    `firestore:"proposedPrice"`
	ReadAt        *time.Time `firestore:"readAt"`
	CreatedAt     time.Time  `firestore:"createdAt"`
}

func toMessageDoc(m *entity.NegotiationMessage) messageDoc {
	return messageDoc{
		ID:            m.ID,
		NegotiationID: m.NegotiationID,
		Sequence:      m.Sequence,
		SenderID:      m.SenderID,
		SenderRole:    string(m.SenderRole),
		Body:          m.Body,
		ProposedPrice: priceString(m.ProposedPrice),
		ReadAt:        m.ReadAt,
		CreatedAt:     m.CreatedAt,
	}
}

func (d messageDoc) toEntity() (*entity.NegotiationMessage, error) {
	price, err := parsePrice(d.ProposedPrice)
	if err != nil {
		return nil, err
	}
	return &entity.NegotiationMessage{
		ID:            d.ID,
		NegotiationID: d.NegotiationID,
		Sequence:      d.Sequence,
		SenderID:      d.SenderID,
		SenderRole:    entity.Role(d.SenderRole),
		Body:          d.Body,
		ProposedPrice: price,
		ReadAt:        d.ReadAt,
		CreatedAt:     d.CreatedAt,
	}, nil
}

type lineItemDoc struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	Quantity    int    `firestore:"quantity"`
	UnitPrice   string `firestore:"unitPrice"`
}

type purchaseIntentDoc struct {
	ID                 string        `firestore:"id"`
	IntentNumber       string        `firestore:"intentNumber"`
	ShopID             string        `firestore:"shopId"`
	SupplierID         string        `firestore:"supplierId"`
	NegotiationID      string        `firestore:"negotiationId"`
	Status             string        `firestore:"status"`
	LineItems          []lineItemDoc `firestore:"lineItems"`
	TotalAmount        string        `firestore:"totalAmount"`
	Notes              string        `firestore:"notes"`
	CancellationReason *string       `firestore:"cancellationReason"`
	CancelledBy        string        `firestore:"cancelledBy"`
	CreatedAt          time.Time     `firestore:"createdAt"`
	UpdatedAt          time.Time     `firestore:"updatedAt"`
	SubmittedAt        *time.Time    `firestore:"submittedAt"`
	AcceptedAt         *time.Time    `firestore:"acceptedAt"`
	CancelledAt        *time.Time    `firestore:"cancelledAt"`
}

func toPurchaseIntentDoc(p *entity.PurchaseIntent) purchaseIntentDoc {
	items := make([]lineItemDoc, len(p.LineItems))
	for i, item := range p.LineItems {
		items[i] = lineItemDoc{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(entity.PriceScale),
		}
	}
	return purchaseIntentDoc{
		ID:                 p.ID,
		IntentNumber:       p.IntentNumber,
		ShopID:             p.ShopID,
		SupplierID:         p.SupplierID,
		NegotiationID:      p.NegotiationID,
		Status:             string(p.Status),
		LineItems:          items,
		TotalAmount:        p.TotalAmount.StringFixed(entity.PriceScale),
		Notes:              p.Notes,
		CancellationReason: p.CancellationReason,
		CancelledBy:        p.CancelledBy,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
		SubmittedAt:        p.SubmittedAt,
		AcceptedAt:         p.AcceptedAt,
		CancelledAt:        p.CancelledAt,
	}
}

func (d purchaseIntentDoc) toEntity() (*entity.PurchaseIntent, error) {
	items := make([]entity.LineItem, len(d.LineItems))
	for i, item := range d.LineItems {
		price, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "parse unit price of %s", item.ProductID)
		}
		items[i] = entity.LineItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		}
	}
	total, err := decimal.NewFromString(d.TotalAmount)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "parse total amount")
	}
	return &entity.PurchaseIntent{
		ID:                 d.ID,
		IntentNumber:       d.IntentNumber,
		ShopID:             d.ShopID,
		SupplierID:         d.SupplierID,
		NegotiationID:      d.NegotiationID,
		Status:             entity.PurchaseIntentStatus(d.Status),
		LineItems:          items,
		TotalAmount:        total,
		Notes:              d.Notes,
		CancellationReason: d.CancellationReason,
		CancelledBy:        d.CancelledBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
		SubmittedAt:        d.SubmittedAt,
		AcceptedAt:         d.AcceptedAt,
		CancelledAt:        d.CancelledAt,
	}, nil
}
