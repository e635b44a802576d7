package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
	"b2bmarket/pkg/utils"
)

type NegotiationUseCase struct {
	negotiationRepo repository.NegotiationRepository
	productRepo     repository.ProductRepository
	userRepo        repository.UserRepository
	notifier        Notifier
	now             func() time.Time
}

func NewNegotiationUseCase(
	negotiationRepo repository.NegotiationRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
) *NegotiationUseCase {
	return &NegotiationUseCase{
		negotiationRepo: negotiationRepo,
		productRepo:     productRepo,
		userRepo:        userRepo,
		notifier:        notifier,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type CreateNegotiationInput struct {
	ProductID      string
	InitialMessage string
	ProposedPrice  *decimal.Decimal
	// ShopID is honoured only for administrators acting for a shop.
	ShopID string
}

type SendNegotiationMessageInput struct {
	Body          string
	ProposedPrice *decimal.Decimal
}

type UpdateNegotiationStatusInput struct {
	Status        entity.NegotiationStatus
	Message       string
	ProposedPrice *decimal.Decimal
}

type ListNegotiationsInput struct {
	Status string
	Page   int
	Limit  int
}

type ListMessagesInput struct {
	Page        int
	Limit       int
	NewestFirst bool
}

func negotiationNotFound() error {
	return errors.NotFound("Negotiation", nil)
}

func validatePrice(price *decimal.Decimal) (*decimal.Decimal, error) {
	if price == nil {
		return nil, nil
	}
	if !price.IsPositive() {
		return nil, errors.BadRequest("proposed_price must be greater than zero", nil)
	}
	rounded := entity.RoundPrice(*price)
	return &rounded, nil
}

func (uc *NegotiationUseCase) CreateNegotiation(ctx context.Context, identity entity.Identity, input CreateNegotiationInput) (*entity.NegotiationWithMessages, error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.CreateNegotiation")
	defer span.End()

	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	var shopID string
	switch identity.Role {
	case entity.RoleShop:
		if input.ShopID != "" && input.ShopID != identity.ProfileID {
			return nil, errors.Forbidden("Shops can only negotiate for themselves", nil)
		}
		if err := requireVerifiedEmail(identity); err != nil {
			return nil, err
		}
		shopID = identity.ProfileID
	case entity.RoleAdmin:
		if input.ShopID == "" {
			return nil, errors.BadRequest("shop_id is required when acting on behalf of a shop", nil)
		}
		if _, err := uc.userRepo.GetByProfileID(ctx, entity.RoleShop, input.ShopID); err != nil {
			if errors.Is(err, "NOT_FOUND") {
				return nil, errors.NotFound("Shop", err)
			}
			return nil, err
		}
		shopID = input.ShopID
	case entity.RoleSupplier:
		return nil, errors.Forbidden("Only shops can start a negotiation", nil)
	}

	price, err := validatePrice(input.ProposedPrice)
	if err != nil {
		return nil, err
	}

	product, err := uc.productRepo.GetByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.NotFound("Product", err)
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, errors.NotFound("Product", nil)
	}

	now := uc.now()
	negotiation := &entity.Negotiation{
		ID:         uuid.NewString(),
		ShopID:     shopID,
		SupplierID: product.SupplierID,
		ProductID:  product.ID,
		Status:     entity.NegotiationInitiated,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	var first *entity.NegotiationMessage
	body := strings.TrimSpace(input.InitialMessage)
	if body != "" || price != nil {
		first = &entity.NegotiationMessage{
			ID:            uuid.NewString(),
			SenderID:      identity.UserID,
			SenderRole:    identity.Role,
			Body:          body,
			ProposedPrice: price,
		}
		negotiation.AppendMessage(first, now)
	}

	if err := uc.negotiationRepo.Create(ctx, negotiation, first); err != nil {
		logger.Error("CreateNegotiation: failed to persist negotiation for product %s: %v", product.ID, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("negotiation.id", negotiation.ID))

	uc.notifier.Publish(ctx, event.Event{
		Type:       event.NegotiationCreated,
		EntityType: entity.AuditNegotiation,
		EntityID:   negotiation.ID,
		ActorID:    identity.UserID,
		ToStatus:   string(negotiation.Status),
		Recipients: recipients(negotiation.ShopID, negotiation.SupplierID),
		Payload:    negotiation,
		OccurredAt: now,
	})

	messages := []*entity.NegotiationMessage{}
	if first != nil {
		messages = append(messages, first)
		uc.notifier.Publish(ctx, uc.messageEvent(negotiation, first, identity))
	}

	return &entity.NegotiationWithMessages{Negotiation: negotiation, Messages: messages}, nil
}

// GetNegotiationByID answers NOT_FOUND both for unknown ids and for
// negotiations the caller does not take part in.
func (uc *NegotiationUseCase) GetNegotiationByID(ctx context.Context, identity entity.Identity, negotiationID string) (*entity.Negotiation, error) {
	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	negotiation, err := uc.negotiationRepo.GetByID(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, negotiationNotFound()
		}
		return nil, err
	}

	if resolveSide(identity, negotiation.ShopID, negotiation.SupplierID) == SideNone {
		return nil, negotiationNotFound()
	}

	return negotiation, nil
}

func (uc *NegotiationUseCase) ListNegotiations(ctx context.Context, identity entity.Identity, input ListNegotiationsInput) ([]*entity.Negotiation, int64, error) {
	if err := checkAccount(identity); err != nil {
		return nil, 0, err
	}

	role, err := listScope(identity)
	if err != nil {
		return nil, 0, err
	}

	status := entity.NegotiationStatus(strings.ToUpper(input.Status))
	if status != "" && !status.Valid() {
		return nil, 0, errors.BadRequest("Unknown negotiation status", nil)
	}

	pagination := utils.NewPaginationParams(input.Page, input.Limit)
	return uc.negotiationRepo.ListByParticipant(ctx, repository.NegotiationFilter{
		Role:      role,
		ProfileID: identity.ProfileID,
		Status:    status,
		Limit:     pagination.PageSize,
		Offset:    pagination.Offset,
	})
}

func (uc *NegotiationUseCase) SendMessage(ctx context.Context, identity entity.Identity, negotiationID string, input SendNegotiationMessageInput) (*entity.NegotiationMessage, error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("negotiation.id", negotiationID))

	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	body := strings.TrimSpace(input.Body)
	price, err := validatePrice(input.ProposedPrice)
	if err != nil {
		return nil, err
	}
	if body == "" && price == nil {
		return nil, errors.BadRequest("A message needs a body or a proposed price", nil)
	}

	negotiation, message, err := uc.negotiationRepo.Mutate(ctx, negotiationID, func(n *entity.Negotiation) (*entity.NegotiationMessage, error) {
		side := resolveSide(identity, n.ShopID, n.SupplierID)
		switch side {
		case SideNone:
			return nil, negotiationNotFound()
		case SideAdmin:
			return nil, errors.Forbidden("Administrators cannot post in a negotiation", nil)
		case SideShop, SideSupplier:
		}

		if n.Status.IsTerminal() {
			return nil, errors.InvalidStateTransition("Negotiation", string(n.Status), string(n.Status))
		}

		msg := &entity.NegotiationMessage{
			ID:            uuid.NewString(),
			SenderID:      identity.UserID,
			SenderRole:    side.Role(),
			Body:          body,
			ProposedPrice: price,
		}
		n.AppendMessage(msg, uc.now())
		return msg, nil
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, negotiationNotFound()
		}
		return nil, err
	}

	uc.notifier.Publish(ctx, uc.messageEvent(negotiation, message, identity))

	return message, nil
}

func (uc *NegotiationUseCase) GetMessages(ctx context.Context, identity entity.Identity, negotiationID string, input ListMessagesInput) ([]*entity.NegotiationMessage, int64, error) {
	if _, err := uc.GetNegotiationByID(ctx, identity, negotiationID); err != nil {
		return nil, 0, err
	}

	pagination := utils.NewPaginationParams(input.Page, input.Limit)
	return uc.negotiationRepo.ListMessages(ctx, negotiationID, pagination.PageSize, pagination.Offset, input.NewestFirst)
}

// MarkAsRead stamps every unread message sent by the counterpart side.
// Calling it again changes nothing. Administrators are not a side, so
// their reads leave the markers alone.
func (uc *NegotiationUseCase) MarkAsRead(ctx context.Context, identity entity.Identity, negotiationID string) (int, error) {
	negotiation, err := uc.GetNegotiationByID(ctx, identity, negotiationID)
	if err != nil {
		return 0, err
	}

	side := resolveSide(identity, negotiation.ShopID, negotiation.SupplierID)
	if !side.IsParticipant() {
		return 0, nil
	}

	now := uc.now()
	marked, err := uc.negotiationRepo.MarkMessagesRead(ctx, negotiationID, side.Role(), now)
	if err != nil {
		return 0, err
	}

	if marked > 0 {
		uc.notifier.Publish(ctx, event.Event{
			Type:       event.NegotiationRead,
			EntityType: entity.AuditNegotiation,
			EntityID:   negotiation.ID,
			ActorID:    identity.UserID,
			Recipients: recipients(negotiation.ShopID, negotiation.SupplierID),
			Payload:    map[string]interface{}{"marked": marked, "reader_id": identity.UserID},
			OccurredAt: now,
		})
	}

	return marked, nil
}

// UpdateStatus closes an INITIATED negotiation. Either participant may
// agree or cancel on their own; administrators may only cancel.
func (uc *NegotiationUseCase) UpdateStatus(ctx context.Context, identity entity.Identity, negotiationID string, input UpdateNegotiationStatusInput) (*entity.Negotiation, error) {
	ctx, span := tracer.Start(ctx, "NegotiationUseCase.UpdateStatus")
	defer span.End()
	span.SetAttributes(
		attribute.String("negotiation.id", negotiationID),
		attribute.String("negotiation.target_status", string(input.Status)),
	)

	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	target := input.Status
	if target != entity.NegotiationAgreed && target != entity.NegotiationClosedCancelled {
		return nil, errors.BadRequest("status must be one of AGREED, CLOSED_CANCELLED", nil)
	}

	price, err := validatePrice(input.ProposedPrice)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Message)

	var from entity.NegotiationStatus
	negotiation, message, err := uc.negotiationRepo.Mutate(ctx, negotiationID, func(n *entity.Negotiation) (*entity.NegotiationMessage, error) {
		side := resolveSide(identity, n.ShopID, n.SupplierID)
		switch side {
		case SideNone:
			return nil, negotiationNotFound()
		case SideAdmin:
			if target == entity.NegotiationAgreed {
				return nil, errors.Forbidden("Only a participant can agree to terms", nil)
			}
		case SideShop, SideSupplier:
		}

		if !n.Status.CanTransitionTo(target) {
			return nil, errors.InvalidStateTransition("Negotiation", string(n.Status), string(target))
		}

		from = n.Status
		now := uc.now()

		var msg *entity.NegotiationMessage
		if body != "" || price != nil {
			msg = &entity.NegotiationMessage{
				ID:            uuid.NewString(),
				SenderID:      identity.UserID,
				SenderRole:    side.Role(),
				Body:          body,
				ProposedPrice: price,
			}
			n.AppendMessage(msg, now)
		}

		n.Status = target
		n.ClosedBy = identity.UserID
		n.ClosedAt = &now
		n.UpdatedAt = now

		if target == entity.NegotiationAgreed && n.LastProposedPrice != nil {
			agreed := *n.LastProposedPrice
			n.AgreedPrice = &agreed
		}

		return msg, nil
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, negotiationNotFound()
		}
		return nil, err
	}

	if message != nil {
		uc.notifier.Publish(ctx, uc.messageEvent(negotiation, message, identity))
	}
	uc.notifier.Publish(ctx, event.Event{
		Type:       event.NegotiationStatusChanged,
		EntityType: entity.AuditNegotiation,
		EntityID:   negotiation.ID,
		ActorID:    identity.UserID,
		FromStatus: string(from),
		ToStatus:   string(negotiation.Status),
		Recipients: recipients(negotiation.ShopID, negotiation.SupplierID),
		Payload:    negotiation,
		OccurredAt: negotiation.UpdatedAt,
	})

	return negotiation, nil
}

func (uc *NegotiationUseCase) messageEvent(n *entity.Negotiation, msg *entity.NegotiationMessage, identity entity.Identity) event.Event {
	return event.Event{
		Type:       event.NegotiationMessageSent,
		EntityType: entity.AuditNegotiation,
		EntityID:   n.ID,
		ActorID:    identity.UserID,
		Recipients: recipients(n.ShopID, n.SupplierID),
		Payload:    msg,
		OccurredAt: msg.CreatedAt,
	}
}
