package router

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/pkg/errors"
)

type stubVerifier map[string]string

func (v stubVerifier) VerifyToken(_ context.Context, token string) (*entity.TokenClaims, error) {
	uid, ok := v[token]
	if !ok {
		return nil, errors.Unauthorized("bad token", nil)
	}
	return &entity.TokenClaims{UserID: uid, EmailVerified: true}, nil
}

type userStore map[string]*entity.UserProfile

func (s userStore) GetByUserID(_ context.Context, userID string) (*entity.UserProfile, error) {
	p, ok := s[userID]
	if !ok {
		return nil, errors.NotFound("User", nil)
	}
	copied := *p
	return &copied, nil
}

func (s userStore) GetByProfileID(_ context.Context, role entity.Role, profileID string) (*entity.UserProfile, error) {
	for _, p := range s {
		if p.Role == role && p.ProfileID == profileID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, errors.NotFound("Profile", nil)
}

type productStore map[string]entity.Product

func (s productStore) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, errors.NotFound("Product", nil)
	}
	return &p, nil
}

type negotiationStore struct {
	mu       sync.Mutex
	items    map[string]entity.Negotiation
	messages map[string][]entity.NegotiationMessage
}

func newNegotiationStore() *negotiationStore {
	return &negotiationStore{items: map[string]entity.Negotiation{}, messages: map[string][]entity.NegotiationMessage{}}
}

func (s *negotiationStore) Create(_ context.Context, n *entity.Negotiation, first *entity.NegotiationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[n.ID] = *n
	if first != nil {
		s.messages[n.ID] = append(s.messages[n.ID], *first)
	}
	return nil
}

func (s *negotiationStore) GetByID(_ context.Context, id string) (*entity.Negotiation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, errors.NotFound("Negotiation", nil)
	}
	return &n, nil
}

func (s *negotiationStore) ListByParticipant(_ context.Context, filter repository.NegotiationFilter) ([]*entity.Negotiation, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*entity.Negotiation{}
	for _, n := range s.items {
		n := n
		if n.ShopID == filter.ProfileID || n.SupplierID == filter.ProfileID {
			out = append(out, &n)
		}
	}
	return out, int64(len(out)), nil
}

func (s *negotiationStore) Mutate(_ context.Context, id string, fn repository.NegotiationMutation) (*entity.Negotiation, *entity.NegotiationMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.items[id]
	if !ok {
		return nil, nil, errors.NotFound("Negotiation", nil)
	}
	msg, err := fn(&n)
	if err != nil {
		return nil, nil, err
	}
	s.items[id] = n
	if msg != nil {
		s.messages[id] = append(s.messages[id], *msg)
	}
	return &n, msg, nil
}

func (s *negotiationStore) ListMessages(_ context.Context, negotiationID string, limit, offset int, newestFirst bool) ([]*entity.NegotiationMessage, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*entity.NegotiationMessage{}
	for i := range s.messages[negotiationID] {
		m := s.messages[negotiationID][i]
		out = append(out, &m)
	}
	return out, int64(len(out)), nil
}

func (s *negotiationStore) MarkMessagesRead(_ context.Context, negotiationID string, readerRole entity.Role, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	marked := 0
	for i, m := range s.messages[negotiationID] {
		if m.ReadAt == nil && m.SenderRole != readerRole {
			s.messages[negotiationID][i].ReadAt = &at
			marked++
		}
	}
	return marked, nil
}

type intentStore struct {
	mu    sync.Mutex
	items map[string]entity.PurchaseIntent
}

func newIntentStore() *intentStore {
	return &intentStore{items: map[string]entity.PurchaseIntent{}}
}

func (s *intentStore) Create(_ context.Context, p *entity.PurchaseIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[p.ID] = *p
	return nil
}

func (s *intentStore) GetByID(_ context.Context, id string) (*entity.PurchaseIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}
	return &p, nil
}

func (s *intentStore) GetByIntentNumber(_ context.Context, number string) (*entity.PurchaseIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.items {
		if p.IntentNumber == number {
			return &p, nil
		}
	}
	return nil, errors.NotFound("Purchase intent", nil)
}

func (s *intentStore) ListByParticipant(_ context.Context, filter repository.PurchaseIntentFilter) ([]*entity.PurchaseIntent, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*entity.PurchaseIntent{}
	for _, p := range s.items {
		p := p
		if p.ShopID == filter.ProfileID || p.SupplierID == filter.ProfileID {
			out = append(out, &p)
		}
	}
	return out, int64(len(out)), nil
}

func (s *intentStore) Mutate(_ context.Context, id string, fn repository.PurchaseIntentMutation) (*entity.PurchaseIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.items[id]
	if !ok {
		return nil, errors.NotFound("Purchase intent", nil)
	}
	if err := fn(&p); err != nil {
		return nil, err
	}
	s.items[id] = p
	return &p, nil
}

type auditStore struct{}

func (auditStore) Append(context.Context, *entity.AuditEntry) error { return nil }

func (auditStore) ListByEntity(context.Context, string, string) ([]*entity.AuditEntry, error) {
	return []*entity.AuditEntry{}, nil
}

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, event.Event) {}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func catalog() productStore {
	return productStore{
		"prod-1": {ID: "prod-1", SupplierID: "sup-x", Name: "Arabica beans 1kg", BasePrice: decimal.RequireFromString("10.00"), IsActive: true},
		"prod-2": {ID: "prod-2", SupplierID: "sup-x", Name: "Paper cups x100", BasePrice: decimal.RequireFromString("4.25"), IsActive: true},
		"prod-3": {ID: "prod-3", SupplierID: "sup-y", Name: "Oat milk 1l", BasePrice: decimal.RequireFromString("2.10"), IsActive: true},
	}
}

func accounts() userStore {
	active := func(uid string, role entity.Role, profile string) *entity.UserProfile {
		return &entity.UserProfile{UserID: uid, Role: role, ProfileID: profile, AccountStatus: entity.AccountActive}
	}
	return userStore{
		"user-shop-a": active("user-shop-a", entity.RoleShop, "shop-a"),
		"user-shop-b": active("user-shop-b", entity.RoleShop, "shop-b"),
		"user-sup-x":  active("user-sup-x", entity.RoleSupplier, "sup-x"),
		"user-admin":  active("user-admin", entity.RoleAdmin, ""),
	}
}
