package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

var (
	shopA = entity.Identity{UserID: "user-shop-a", Role: entity.RoleShop, ProfileID: "shop-a", AccountStatus: entity.AccountActive, EmailVerified: true}
	shopB = entity.Identity{UserID: "user-shop-b", Role: entity.RoleShop, ProfileID: "shop-b", AccountStatus: entity.AccountActive, EmailVerified: true}

	supplierX = entity.Identity{UserID: "user-sup-x", Role: entity.RoleSupplier, ProfileID: "sup-x", AccountStatus: entity.AccountActive, EmailVerified: true}
	supplierY = entity.Identity{UserID: "user-sup-y", Role: entity.RoleSupplier, ProfileID: "sup-y", AccountStatus: entity.AccountActive, EmailVerified: true}

	admin = entity.Identity{UserID: "user-admin", Role: entity.RoleAdmin, AccountStatus: entity.AccountActive, EmailVerified: true}
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type memoryNegotiationRepository struct {
	mu           sync.Mutex
	negotiations map[string]entity.Negotiation
	messages     map[string][]*entity.NegotiationMessage
}

func newMemoryNegotiationRepository() *memoryNegotiationRepository {
	return &memoryNegotiationRepository{
		negotiations: map[string]entity.Negotiation{},
		messages:     map[string][]*entity.NegotiationMessage{},
	}
}

func (r *memoryNegotiationRepository) Create(_ context.Context, n *entity.Negotiation, first *entity.NegotiationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.negotiations[n.ID] = *n
	if first != nil {
		copied := *first
		r.messages[n.ID] = append(r.messages[n.ID], &copied)
	}
	return nil
}

func (r *memoryNegotiationRepository) GetByID(_ context.Context, id string) (*entity.Negotiation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.negotiations[id]
	if !ok {
		return nil, errors.NotFound("Negotiation", nil)
	}
	return &n, nil
}

func (r *memoryNegotiationRepository) ListByParticipant(_ context.Context, filter repository.NegotiationFilter) ([]*entity.Negotiation, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []*entity.Negotiation{}
	for _, n := range r.negotiations {
		n := n
		owner := n.ShopID
		if filter.Role == entity.RoleSupplier {
			owner = n.SupplierID
		}
		if owner != filter.ProfileID || (filter.Status != "" && n.Status != filter.Status) {
			continue
		}
		matched = append(matched, &n)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*entity.Negotiation{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func (r *memoryNegotiationRepository) Mutate(_ context.Context, id string, fn repository.NegotiationMutation) (*entity.Negotiation, *entity.NegotiationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.negotiations[id]
	if !ok {
		return nil, nil, errors.NotFound("Negotiation", nil)
	}

	working := stored
	msg, err := fn(&working)
	if err != nil {
		return nil, nil, err
	}

	r.negotiations[id] = working
	if msg != nil {
		copied := *msg
		r.messages[id] = append(r.messages[id], &copied)
	}
	return &working, msg, nil
}

func (r *memoryNegotiationRepository) ListMessages(_ context.Context, negotiationID string, limit, offset int, newestFirst bool) ([]*entity.NegotiationMessage, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]*entity.NegotiationMessage, 0, len(r.messages[negotiationID]))
	for _, m := range r.messages[negotiationID] {
		copied := *m
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if newestFirst {
			return all[i].Sequence > all[j].Sequence
		}
		return all[i].Sequence < all[j].Sequence
	})

	total := int64(len(all))
	if offset >= len(all) {
		return []*entity.NegotiationMessage{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *memoryNegotiationRepository) MarkMessagesRead(_ context.Context, negotiationID string, readerRole entity.Role, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	marked := 0
	for _, m := range r.messages[negotiationID] {
		if m.ReadAt != nil || m.SenderRole == readerRole {
			continue
		}
		stamp := at
		m.ReadAt = &stamp
		marked++
	}
	return marked, nil
}

type memoryUserRepository struct {
	profiles []entity.UserProfile
}

func (r *memoryUserRepository) GetByUserID(_ context.Context, userID string) (*entity.UserProfile, error) {
	for _, p := range r.profiles {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, errors.NotFound("User", nil)
}

func (r *memoryUserRepository) GetByProfileID(_ context.Context, role entity.Role, profileID string) (*entity.UserProfile, error) {
	for _, p := range r.profiles {
		if p.Role == role && p.ProfileID == profileID {
			p := p
			return &p, nil
		}
	}
	return nil, errors.NotFound("Profile", nil)
}

func defaultAccounts() *memoryUserRepository {
	profile := func(id entity.Identity) entity.UserProfile {
		return entity.UserProfile{UserID: id.UserID, Role: id.Role, ProfileID: id.ProfileID, AccountStatus: id.AccountStatus, EmailVerified: id.EmailVerified}
	}
	return &memoryUserRepository{profiles: []entity.UserProfile{
		profile(shopA), profile(shopB), profile(supplierX), profile(supplierY), profile(admin),
	}}
}

type memoryProductRepository struct {
	mu       sync.Mutex
	products map[string]entity.Product
}

func newMemoryProductRepository(products ...entity.Product) *memoryProductRepository {
	r := &memoryProductRepository{products: map[string]entity.Product{}}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memoryProductRepository) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return &p, nil
}

func (r *memoryProductRepository) setPrice(id, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.products[id]
	p.BasePrice = decimal.RequireFromString(value)
	r.products[id] = p
}

func defaultCatalog() *memoryProductRepository {
	return newMemoryProductRepository(
		entity.Product{ID: "prod-1", SupplierID: "sup-x", Name: "Arabica beans 1kg", BasePrice: decimal.RequireFromString("10.00"), IsActive: true},
		entity.Product{ID: "prod-2", SupplierID: "sup-x", Name: "Paper cups x100", BasePrice: decimal.RequireFromString("4.25"), IsActive: true},
		entity.Product{ID: "prod-3", SupplierID: "sup-y", Name: "Oat milk 1l", BasePrice: decimal.RequireFromString("2.10"), IsActive: true},
		entity.Product{ID: "prod-retired", SupplierID: "sup-x", Name: "Old blend", BasePrice: decimal.RequireFromString("9.00"), IsActive: false},
	)
}

type memoryPurchaseIntentRepository struct {
	mu      sync.Mutex
	intents map[string]entity.PurchaseIntent
	numbers map[string]string
}

func newMemoryPurchaseIntentRepository() *memoryPurchaseIntentRepository {
	return &memoryPurchaseIntentRepository{
		intents: map[string]entity.PurchaseIntent{},
		numbers: map[string]string{},
	}
}

func cloneIntent(p entity.PurchaseIntent) entity.PurchaseIntent {
	p.LineItems = append([]entity.LineItem(nil), p.LineItems...)
	return p
}

func (r *memoryPurchaseIntentRepository) Create(_ context.Context, intent *entity.PurchaseIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.numbers[intent.IntentNumber]; taken {
		return repository.ErrDuplicateIntentNumber
	}
	r.numbers[intent.IntentNumber] = intent.ID
	r.intents[intent.ID] = cloneIntent(*intent)
	return nil
}

func (r *memoryPurchaseIntentRepository) GetByID(_ context.Context, id string) (*entity.PurchaseIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.intents[id]
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}
	p = cloneIntent(p)
	return &p, nil
}

func (r *memoryPurchaseIntentRepository) GetByIntentNumber(ctx context.Context, number string) (*entity.PurchaseIntent, error) {
	r.mu.Lock()
	id, ok := r.numbers[number]
	r.mu.Unlock()
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}
	return r.GetByID(ctx, id)
}

func (r *memoryPurchaseIntentRepository) ListByParticipant(_ context.Context, filter repository.PurchaseIntentFilter) ([]*entity.PurchaseIntent, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := []*entity.PurchaseIntent{}
	for _, p := range r.intents {
		owner := p.ShopID
		if filter.Role == entity.RoleSupplier {
			owner = p.SupplierID
		}
		if owner != filter.ProfileID || (filter.Status != "" && p.Status != filter.Status) {
			continue
		}
		copied := cloneIntent(p)
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*entity.PurchaseIntent{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[filter.Offset:end], total, nil
}

func (r *memoryPurchaseIntentRepository) Mutate(_ context.Context, id string, fn repository.PurchaseIntentMutation) (*entity.PurchaseIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.intents[id]
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}

	working := cloneIntent(stored)
	if err := fn(&working); err != nil {
		return nil, err
	}
	r.intents[id] = cloneIntent(working)
	return &working, nil
}

type mockAuditRepository struct {
	mock.Mock
}

func (m *mockAuditRepository) Append(ctx context.Context, entry *entity.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *mockAuditRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*entity.AuditEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	entries, _ := args.Get(0).([]*entity.AuditEntry)
	return entries, args.Error(1)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []event.Event
}

func (n *recordingNotifier) Publish(_ context.Context, evt event.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *recordingNotifier) types() []event.Type {
	n.mu.Lock()
	defer n.mu.Unlock()

	types := make([]event.Type, 0, len(n.events))
	for _, evt := range n.events {
		types = append(types, evt.Type)
	}
	return types
}

func (n *recordingNotifier) last() event.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

// fixedClock advances by one second per call so timestamps stay ordered.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
