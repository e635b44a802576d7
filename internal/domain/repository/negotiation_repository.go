package repository

import (
	"context"
	"time"

	"b2bmarket/internal/domain/entity"
)

type NegotiationFilter struct {
	Role      entity.Role
	ProfileID string
	Status    entity.NegotiationStatus
	Limit     int
	Offset    int
}

// NegotiationMutation runs against the freshly locked negotiation. It may
// change n in place and return a message to append in the same unit; any
// error aborts the whole unit.
type NegotiationMutation func(n *entity.Negotiation) (*entity.NegotiationMessage, error)

type NegotiationRepository interface {
	// Create stores the negotiation and, when first is non-nil, its opening
	// message atomically.
	Create(ctx context.Context, negotiation *entity.Negotiation, first *entity.NegotiationMessage) error
	GetByID(ctx context.Context, id string) (*entity.Negotiation, error)
	ListByParticipant(ctx context.Context, filter NegotiationFilter) ([]*entity.Negotiation, int64, error)

	// Mutate serialises read-modify-write on one negotiation row.
	Mutate(ctx context.Context, id string, fn NegotiationMutation) (*entity.Negotiation, *entity.NegotiationMessage, error)

	ListMessages(ctx context.Context, negotiationID string, limit, offset int, newestFirst bool) ([]*entity.NegotiationMessage, int64, error)
	// MarkMessagesRead stamps readAt on unread messages sent by the other
	// side than readerRole and returns how many were stamped.
	MarkMessagesRead(ctx context.Context, negotiationID string, readerRole entity.Role, at time.Time) (int, error)
}
