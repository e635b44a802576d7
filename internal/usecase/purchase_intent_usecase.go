package usecase

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
	"b2bmarket/pkg/logger"
	"b2bmarket/pkg/utils"
)

const (
	maxIntentNumberAttempts = 3
	maxLineItems            = 100
)

type PurchaseIntentUseCase struct {
	intentRepo      repository.PurchaseIntentRepository
	productRepo     repository.ProductRepository
	negotiationRepo repository.NegotiationRepository
	auditRepo       repository.AuditRepository
	notifier        Notifier
	newNumber       IntentNumberGenerator
	now             func() time.Time
}

func NewPurchaseIntentUseCase(
	intentRepo repository.PurchaseIntentRepository,
	productRepo repository.ProductRepository,
	negotiationRepo repository.NegotiationRepository,
	auditRepo repository.AuditRepository,
	notifier Notifier,
) *PurchaseIntentUseCase {
	return &PurchaseIntentUseCase{
		intentRepo:      intentRepo,
		productRepo:     productRepo,
		negotiationRepo: negotiationRepo,
		auditRepo:       auditRepo,
		notifier:        notifier,
		newNumber:       NewIntentNumber,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

type LineItemInput struct {
	ProductID string
	Quantity  int
}

type CreatePurchaseIntentInput struct {
	LineItems     []LineItemInput
	NegotiationID string
	Notes         string
}

type ListPurchaseIntentsInput struct {
	Status string
	Page   int
	Limit  int
}

func intentNotFound() error {
	return errors.NotFound("Purchase intent", nil)
}

func validateLineItems(items []LineItemInput) error {
	if len(items) == 0 {
		return errors.BadRequest("At least one line item is required", nil)
	}
	if len(items) > maxLineItems {
		return errors.BadRequest("Too many line items", nil)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ProductID) == "" {
			return errors.BadRequest("product_id is required for every line item", nil)
		}
		if item.Quantity <= 0 {
			return errors.BadRequest("quantity must be greater than zero", nil)
		}
		if _, dup := seen[item.ProductID]; dup {
			return errors.BadRequest("Duplicate product in line items: "+item.ProductID, nil)
		}
		seen[item.ProductID] = struct{}{}
	}
	return nil
}

// resolveProducts looks every product up concurrently, preserving order.
func (uc *PurchaseIntentUseCase) resolveProducts(ctx context.Context, items []LineItemInput) ([]*entity.Product, error) {
	products := make([]*entity.Product, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		i, productID := i, item.ProductID
		g.Go(func() error {
			product, err := uc.productRepo.GetByID(gctx, productID)
			if err != nil {
				if errors.Is(err, "NOT_FOUND") {
					return errors.NotFound("Product", err)
				}
				return err
			}
			if !product.IsActive {
				return errors.NotFound("Product", nil)
			}
			products[i] = product
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return products, nil
}

func (uc *PurchaseIntentUseCase) CreatePurchaseIntent(ctx context.Context, identity entity.Identity, input CreatePurchaseIntentInput) (*entity.PurchaseIntent, error) {
	ctx, span := tracer.Start(ctx, "PurchaseIntentUseCase.CreatePurchaseIntent")
	defer span.End()

	if err := checkAccount(identity); err != nil {
		return nil, err
	}
	switch identity.Role {
	case entity.RoleShop:
	case entity.RoleSupplier, entity.RoleAdmin:
		return nil, errors.Forbidden("Only shops can create purchase intents", nil)
	}
	if err := requireVerifiedEmail(identity); err != nil {
		return nil, err
	}
	if err := validateLineItems(input.LineItems); err != nil {
		return nil, err
	}

	products, err := uc.resolveProducts(ctx, input.LineItems)
	if err != nil {
		return nil, err
	}

	supplierID := products[0].SupplierID
	for _, product := range products[1:] {
		if product.SupplierID != supplierID {
			return nil, errors.MixedSuppliers()
		}
	}

	lineItems := make([]entity.LineItem, len(input.LineItems))
	for i, item := range input.LineItems {
		lineItems[i] = entity.LineItem{
			ProductID:   products[i].ID,
			ProductName: products[i].Name,
			Quantity:    item.Quantity,
			UnitPrice:   entity.RoundPrice(products[i].BasePrice),
		}
	}

	if input.NegotiationID != "" {
		if err := uc.applyNegotiation(ctx, identity, input.NegotiationID, supplierID, lineItems); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	intent := &entity.PurchaseIntent{
		ID:            uuid.NewString(),
		ShopID:        identity.ProfileID,
		SupplierID:    supplierID,
		NegotiationID: input.NegotiationID,
		Status:        entity.IntentDraft,
		LineItems:     lineItems,
		Notes:         strings.TrimSpace(input.Notes),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	intent.RecalculateTotal()

	for attempt := 1; ; attempt++ {
		intent.IntentNumber = uc.newNumber(now)
		err = uc.intentRepo.Create(ctx, intent)
		if err == nil {
			break
		}
		if !stderrors.Is(err, repository.ErrDuplicateIntentNumber) {
			return nil, err
		}
		if attempt >= maxIntentNumberAttempts {
			logger.Error("CreatePurchaseIntent: gave up after %d intent number collisions", attempt)
			return nil, errors.Internal("Could not allocate an intent number", err)
		}
		logger.Warn("CreatePurchaseIntent: intent number %s already taken, retrying", intent.IntentNumber)
	}
	span.SetAttributes(
		attribute.String("purchase_intent.id", intent.ID),
		attribute.String("purchase_intent.number", intent.IntentNumber),
	)

	uc.notifier.Publish(ctx, event.Event{
		Type:       event.PurchaseIntentCreated,
		EntityType: entity.AuditPurchaseIntent,
		EntityID:   intent.ID,
		ActorID:    identity.UserID,
		ToStatus:   string(intent.Status),
		Recipients: []string{intent.ShopID},
		Payload:    intent,
		OccurredAt: now,
	})

	return intent, nil
}

// applyNegotiation checks the linked negotiation and carries its agreed
// price onto the matching line.
func (uc *PurchaseIntentUseCase) applyNegotiation(ctx context.Context, identity entity.Identity, negotiationID, supplierID string, lineItems []entity.LineItem) error {
	negotiation, err := uc.negotiationRepo.GetByID(ctx, negotiationID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return negotiationNotFound()
		}
		return err
	}
	if resolveSide(identity, negotiation.ShopID, negotiation.SupplierID) != SideShop {
		return negotiationNotFound()
	}
	if negotiation.Status != entity.NegotiationAgreed {
		return errors.BadRequest("Linked negotiation must be AGREED", nil)
	}
	if negotiation.SupplierID != supplierID {
		return errors.BadRequest("Linked negotiation belongs to a different supplier", nil)
	}

	for i := range lineItems {
		if lineItems[i].ProductID != negotiation.ProductID {
			continue
		}
		if negotiation.AgreedPrice != nil {
			lineItems[i].UnitPrice = entity.RoundPrice(*negotiation.AgreedPrice)
		}
		return nil
	}
	return errors.BadRequest("Negotiated product is not among the line items", nil)
}

func (uc *PurchaseIntentUseCase) authorize(identity entity.Identity, intent *entity.PurchaseIntent) (Side, error) {
	side := resolveSide(identity, intent.ShopID, intent.SupplierID)
	if side == SideNone {
		return side, intentNotFound()
	}
	return side, nil
}

func (uc *PurchaseIntentUseCase) GetPurchaseIntent(ctx context.Context, identity entity.Identity, id string) (*entity.PurchaseIntent, error) {
	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	intent, err := uc.intentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, intentNotFound()
		}
		return nil, err
	}

	if _, err := uc.authorize(identity, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (uc *PurchaseIntentUseCase) GetPurchaseIntentByNumber(ctx context.Context, identity entity.Identity, number string) (*entity.PurchaseIntent, error) {
	if err := checkAccount(identity); err != nil {
		return nil, err
	}

	intent, err := uc.intentRepo.GetByIntentNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, intentNotFound()
		}
		return nil, err
	}

	if _, err := uc.authorize(identity, intent); err != nil {
		return nil, err
	}
	return intent, nil
}

func (uc *PurchaseIntentUseCase) ListPurchaseIntents(ctx context.Context, identity entity.Identity, input ListPurchaseIntentsInput) ([]*entity.PurchaseIntent, int64, error) {
	if err := checkAccount(identity); err != nil {
		return nil, 0, err
	}

	role, err := listScope(identity)
	if err != nil {
		return nil, 0, err
	}

	status := entity.PurchaseIntentStatus(strings.ToUpper(input.Status))
	if status != "" && !status.Valid() {
		return nil, 0, errors.BadRequest("Unknown purchase intent status", nil)
	}

	pagination := utils.NewPaginationParams(input.Page, input.Limit)
	return uc.intentRepo.ListByParticipant(ctx, repository.PurchaseIntentFilter{
		Role:      role,
		ProfileID: identity.ProfileID,
		Status:    status,
		Limit:     pagination.PageSize,
		Offset:    pagination.Offset,
	})
}

// transition runs one guarded status change. allowed decides, on the
// locked row, whether the caller's side may perform it.
func (uc *PurchaseIntentUseCase) transition(
	ctx context.Context,
	identity entity.Identity,
	id string,
	target entity.PurchaseIntentStatus,
	allowed func(Side) error,
	apply func(intent *entity.PurchaseIntent, now time.Time),
) (*entity.PurchaseIntent, entity.PurchaseIntentStatus, error) {
	ctx, span := tracer.Start(ctx, "PurchaseIntentUseCase.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("purchase_intent.id", id),
		attribute.String("purchase_intent.target_status", string(target)),
	)

	if err := checkAccount(identity); err != nil {
		return nil, "", err
	}

	var from entity.PurchaseIntentStatus
	intent, err := uc.intentRepo.Mutate(ctx, id, func(p *entity.PurchaseIntent) error {
		side, err := uc.authorize(identity, p)
		if err != nil {
			return err
		}
		if err := allowed(side); err != nil {
			return err
		}
		if !p.Status.CanTransitionTo(target) {
			return errors.InvalidStateTransition("PurchaseIntent", string(p.Status), string(target))
		}

		from = p.Status
		now := uc.now()
		p.Status = target
		p.UpdatedAt = now
		apply(p, now)
		return nil
	})
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, "", intentNotFound()
		}
		if errors.Is(err, "INVALID_STATE_TRANSITION") {
			logger.LogTransitionError(entity.AuditPurchaseIntent, id, string(target), err)
		}
		return nil, "", err
	}
	return intent, from, nil
}

func (uc *PurchaseIntentUseCase) publishTransition(ctx context.Context, typ event.Type, intent *entity.PurchaseIntent, from entity.PurchaseIntentStatus, actorID, notes string) {
	uc.notifier.Publish(ctx, event.Event{
		Type:       typ,
		EntityType: entity.AuditPurchaseIntent,
		EntityID:   intent.ID,
		ActorID:    actorID,
		FromStatus: string(from),
		ToStatus:   string(intent.Status),
		Notes:      notes,
		Recipients: recipients(intent.ShopID, intent.SupplierID),
		Payload:    intent,
		OccurredAt: intent.UpdatedAt,
	})
}

func (uc *PurchaseIntentUseCase) SubmitPurchaseIntent(ctx context.Context, identity entity.Identity, id string) (*entity.PurchaseIntent, error) {
	intent, from, err := uc.transition(ctx, identity, id, entity.IntentSubmitted,
		func(side Side) error {
			switch side {
			case SideShop:
				return nil
			case SideSupplier, SideAdmin, SideNone:
			}
			return errors.Forbidden("Only the owning shop can submit a purchase intent", nil)
		},
		func(p *entity.PurchaseIntent, now time.Time) {
			p.SubmittedAt = &now
		},
	)
	if err != nil {
		return nil, err
	}

	uc.publishTransition(ctx, event.PurchaseIntentSubmitted, intent, from, identity.UserID, "")
	return intent, nil
}

func (uc *PurchaseIntentUseCase) AcceptPurchaseIntent(ctx context.Context, identity entity.Identity, id string) (*entity.PurchaseIntent, error) {
	intent, from, err := uc.transition(ctx, identity, id, entity.IntentAccepted,
		func(side Side) error {
			switch side {
			case SideSupplier, SideAdmin:
				return nil
			case SideShop, SideNone:
			}
			return errors.Forbidden("Only the supplier can accept a purchase intent", nil)
		},
		func(p *entity.PurchaseIntent, now time.Time) {
			p.AcceptedAt = &now
		},
	)
	if err != nil {
		return nil, err
	}

	uc.publishTransition(ctx, event.PurchaseIntentAccepted, intent, from, identity.UserID, "")
	return intent, nil
}

// CancelPurchaseIntent covers both a shop withdrawing and a supplier
// rejecting.
func (uc *PurchaseIntentUseCase) CancelPurchaseIntent(ctx context.Context, identity entity.Identity, id, reason string) (*entity.PurchaseIntent, error) {
	reason = strings.TrimSpace(reason)

	intent, from, err := uc.transition(ctx, identity, id, entity.IntentCancelled,
		func(side Side) error {
			switch side {
			case SideShop, SideSupplier:
				return nil
			case SideAdmin, SideNone:
			}
			return errors.Forbidden("Only the shop or the supplier can cancel a purchase intent", nil)
		},
		func(p *entity.PurchaseIntent, now time.Time) {
			p.CancelledAt = &now
			p.CancelledBy = identity.UserID
			if reason != "" {
				p.CancellationReason = &reason
			}
		},
	)
	if err != nil {
		return nil, err
	}

	uc.publishTransition(ctx, event.PurchaseIntentCancelled, intent, from, identity.UserID, reason)
	return intent, nil
}

func (uc *PurchaseIntentUseCase) GetHistory(ctx context.Context, identity entity.Identity, id string) ([]*entity.AuditEntry, error) {
	if _, err := uc.GetPurchaseIntent(ctx, identity, id); err != nil {
		return nil, err
	}
	return uc.auditRepo.ListByEntity(ctx, entity.AuditPurchaseIntent, id)
}
