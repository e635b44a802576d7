package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/pkg/errors"
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

type negotiationFixture struct {
	uc       *NegotiationUseCase
	repo     *memoryNegotiationRepository
	products *memoryProductRepository
	notifier *recordingNotifier
}

func newNegotiationFixture() *negotiationFixture {
	f := &negotiationFixture{
		repo:     newMemoryNegotiationRepository(),
		products: defaultCatalog(),
		notifier: &recordingNotifier{},
	}
	f.uc = NewNegotiationUseCase(f.repo, f.products, defaultAccounts(), f.notifier)
	f.uc.now = newFixedClock().Now
	return f
}

func (f *negotiationFixture) open(t *testing.T) *entity.Negotiation {
	t.Helper()
	created, err := f.uc.CreateNegotiation(context.Background(), shopA, CreateNegotiationInput{
		ProductID:      "prod-1",
		InitialMessage: "interested, can you do 5000/unit?",
		ProposedPrice:  price("5000"),
	})
	require.NoError(t, err)
	return created.Negotiation
}

func TestCreateNegotiation(t *testing.T) {
	f := newNegotiationFixture()

	created, err := f.uc.CreateNegotiation(context.Background(), shopA, CreateNegotiationInput{
		ProductID:      "prod-1",
		InitialMessage: "  interested, can you do 5000/unit?  ",
		ProposedPrice:  price("5000"),
	})

	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationInitiated, created.Status)
	assert.Equal(t, "shop-a", created.ShopID)
	assert.Equal(t, "sup-x", created.SupplierID)
	assert.Equal(t, int64(1), created.MessageCount)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, "interested, can you do 5000/unit?", created.Messages[0].Body)
	assert.Equal(t, int64(1), created.Messages[0].Sequence)
	assert.Equal(t, entity.RoleShop, created.Messages[0].SenderRole)
	require.NotNil(t, created.LastProposedPrice)
	assert.Equal(t, "5000", created.LastProposedPrice.String())

	stored, err := f.repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.MessageCount)

	assert.Equal(t, []event.Type{event.NegotiationCreated, event.NegotiationMessageSent}, f.notifier.types())
	assert.ElementsMatch(t, []string{"shop-a", "sup-x"}, f.notifier.last().Recipients)
}

func TestCreateNegotiationWithoutOpeningMessage(t *testing.T) {
	f := newNegotiationFixture()

	created, err := f.uc.CreateNegotiation(context.Background(), shopA, CreateNegotiationInput{ProductID: "prod-2"})

	require.NoError(t, err)
	assert.Empty(t, created.Messages)
	assert.Zero(t, created.MessageCount)
	assert.Nil(t, created.LastMessageAt)
	assert.Equal(t, []event.Type{event.NegotiationCreated}, f.notifier.types())
}

func TestCreateNegotiationRejections(t *testing.T) {
	unverified := shopA
	unverified.EmailVerified = false
	suspended := shopA
	suspended.AccountStatus = entity.AccountSuspended

	tests := []struct {
		name     string
		identity entity.Identity
		input    CreateNegotiationInput
		code     string
	}{
		{"supplier", supplierX, CreateNegotiationInput{ProductID: "prod-1"}, "FORBIDDEN"},
		{"unverified email", unverified, CreateNegotiationInput{ProductID: "prod-1"}, "FORBIDDEN"},
		{"suspended account", suspended, CreateNegotiationInput{ProductID: "prod-1"}, "ACCOUNT_INACTIVE"},
		{"unknown product", shopA, CreateNegotiationInput{ProductID: "nope"}, "NOT_FOUND"},
		{"inactive product", shopA, CreateNegotiationInput{ProductID: "prod-retired"}, "NOT_FOUND"},
		{"zero price", shopA, CreateNegotiationInput{ProductID: "prod-1", ProposedPrice: price("0")}, "BAD_REQUEST"},
		{"negative price", shopA, CreateNegotiationInput{ProductID: "prod-1", ProposedPrice: price("-3")}, "BAD_REQUEST"},
		{"shop acting for another shop", shopA, CreateNegotiationInput{ProductID: "prod-1", ShopID: "shop-b"}, "FORBIDDEN"},
		{"admin without shop", admin, CreateNegotiationInput{ProductID: "prod-1"}, "BAD_REQUEST"},
		{"admin for unknown shop", admin, CreateNegotiationInput{ProductID: "prod-1", ShopID: "shop-ghost"}, "NOT_FOUND"},
		{"admin naming a supplier as shop", admin, CreateNegotiationInput{ProductID: "prod-1", ShopID: "sup-x"}, "NOT_FOUND"},
		{"anonymous", entity.Identity{}, CreateNegotiationInput{ProductID: "prod-1"}, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newNegotiationFixture()

			_, err := f.uc.CreateNegotiation(context.Background(), tt.identity, tt.input)

			assertCode(t, err, tt.code)
			assert.Empty(t, f.repo.negotiations)
			assert.Empty(t, f.notifier.types())
		})
	}
}

func TestAdminCreatesNegotiationForShop(t *testing.T) {
	f := newNegotiationFixture()

	created, err := f.uc.CreateNegotiation(context.Background(), admin, CreateNegotiationInput{
		ProductID:      "prod-1",
		ShopID:         "shop-b",
		InitialMessage: "opening on behalf of shop-b",
	})

	require.NoError(t, err)
	assert.Equal(t, "shop-b", created.ShopID)
	assert.Equal(t, entity.RoleAdmin, created.Messages[0].SenderRole)
}

func TestSupplierAgreesThenThreadIsClosed(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	agreed, err := f.uc.UpdateStatus(context.Background(), supplierX, n.ID, UpdateNegotiationStatusInput{
		Status: entity.NegotiationAgreed,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationAgreed, agreed.Status)
	require.NotNil(t, agreed.AgreedPrice)
	assert.Equal(t, "5000", agreed.AgreedPrice.String())
	assert.Equal(t, supplierX.UserID, agreed.ClosedBy)
	assert.NotNil(t, agreed.ClosedAt)

	evt := f.notifier.last()
	assert.Equal(t, event.NegotiationStatusChanged, evt.Type)
	assert.Equal(t, "INITIATED", evt.FromStatus)
	assert.Equal(t, "AGREED", evt.ToStatus)

	_, err = f.uc.SendMessage(context.Background(), shopA, n.ID, SendNegotiationMessageInput{Body: "one more thing"})
	assertCode(t, err, "INVALID_STATE_TRANSITION")

	_, err = f.uc.UpdateStatus(context.Background(), shopA, n.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationClosedCancelled})
	assertCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestTerminalNegotiationRejectsChanges(t *testing.T) {
	for _, terminal := range []entity.NegotiationStatus{entity.NegotiationAgreed, entity.NegotiationClosedCancelled} {
		t.Run(string(terminal), func(t *testing.T) {
			f := newNegotiationFixture()
			n := f.open(t)

			_, err := f.uc.UpdateStatus(context.Background(), shopA, n.ID, UpdateNegotiationStatusInput{Status: terminal})
			require.NoError(t, err)

			for _, target := range []entity.NegotiationStatus{entity.NegotiationAgreed, entity.NegotiationClosedCancelled} {
				_, err = f.uc.UpdateStatus(context.Background(), supplierX, n.ID, UpdateNegotiationStatusInput{Status: target})
				assertCode(t, err, "INVALID_STATE_TRANSITION")
			}

			_, err = f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{Body: "hello?"})
			assertCode(t, err, "INVALID_STATE_TRANSITION")

			stored, err := f.repo.GetByID(context.Background(), n.ID)
			require.NoError(t, err)
			assert.Equal(t, terminal, stored.Status)
			assert.Equal(t, int64(1), stored.MessageCount)
		})
	}
}

func TestUpdateStatusRejectsUnknownTarget(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	_, err := f.uc.UpdateStatus(context.Background(), shopA, n.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationInitiated})
	assertCode(t, err, "BAD_REQUEST")

	_, err = f.uc.UpdateStatus(context.Background(), shopA, n.ID, UpdateNegotiationStatusInput{Status: "REOPENED"})
	assertCode(t, err, "BAD_REQUEST")
}

func TestUpdateStatusWithClosingMessage(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	agreed, err := f.uc.UpdateStatus(context.Background(), shopA, n.ID, UpdateNegotiationStatusInput{
		Status:        entity.NegotiationAgreed,
		Message:       "deal at 4800",
		ProposedPrice: price("4800"),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), agreed.MessageCount)
	assert.Equal(t, "4800", agreed.AgreedPrice.String())
	assert.Equal(t, []event.Type{
		event.NegotiationCreated,
		event.NegotiationMessageSent,
		event.NegotiationMessageSent,
		event.NegotiationStatusChanged,
	}, f.notifier.types())
}

func TestNonParticipantCannotTellNegotiationExists(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	_, hiddenErr := f.uc.GetNegotiationByID(context.Background(), shopB, n.ID)
	_, missingErr := f.uc.GetNegotiationByID(context.Background(), shopB, "does-not-exist")

	hidden, ok := errors.As(hiddenErr)
	require.True(t, ok)
	missing, ok := errors.As(missingErr)
	require.True(t, ok)

	assert.Equal(t, missing.Code, hidden.Code)
	assert.Equal(t, missing.Message, hidden.Message)
	assert.Equal(t, missing.Status, hidden.Status)
	assert.Equal(t, "NOT_FOUND", hidden.Code)

	_, err := f.uc.GetNegotiationByID(context.Background(), supplierY, n.ID)
	assertCode(t, err, "NOT_FOUND")
	_, err = f.uc.SendMessage(context.Background(), shopB, n.ID, SendNegotiationMessageInput{Body: "hi"})
	assertCode(t, err, "NOT_FOUND")
	_, err = f.uc.UpdateStatus(context.Background(), supplierY, n.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationClosedCancelled})
	assertCode(t, err, "NOT_FOUND")
	_, _, err = f.uc.GetMessages(context.Background(), shopB, n.ID, ListMessagesInput{})
	assertCode(t, err, "NOT_FOUND")
	_, err = f.uc.MarkAsRead(context.Background(), shopB, n.ID)
	assertCode(t, err, "NOT_FOUND")
}

func TestAdminModeration(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	got, err := f.uc.GetNegotiationByID(context.Background(), admin, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)

	_, err = f.uc.SendMessage(context.Background(), admin, n.ID, SendNegotiationMessageInput{Body: "moderator here"})
	assertCode(t, err, "FORBIDDEN")

	_, err = f.uc.UpdateStatus(context.Background(), admin, n.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationAgreed})
	assertCode(t, err, "FORBIDDEN")

	cancelled, err := f.uc.UpdateStatus(context.Background(), admin, n.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationClosedCancelled})
	require.NoError(t, err)
	assert.Equal(t, entity.NegotiationClosedCancelled, cancelled.Status)
	assert.Nil(t, cancelled.AgreedPrice)
}

func TestSendMessageValidation(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	_, err := f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{Body: "   "})
	assertCode(t, err, "BAD_REQUEST")

	_, err = f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{ProposedPrice: price("-1")})
	assertCode(t, err, "BAD_REQUEST")

	msg, err := f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{ProposedPrice: price("4899.999")})
	require.NoError(t, err)
	assert.Equal(t, "4900", msg.ProposedPrice.String())
	assert.Equal(t, entity.RoleSupplier, msg.SenderRole)
}

func TestMessagesAreOrderedAcrossPages(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	for i := 0; i < 4; i++ {
		sender := supplierX
		if i%2 == 1 {
			sender = shopA
		}
		_, err := f.uc.SendMessage(context.Background(), sender, n.ID, SendNegotiationMessageInput{Body: "counter"})
		require.NoError(t, err)
	}

	var sequences []int64
	for page := 1; page <= 3; page++ {
		messages, total, err := f.uc.GetMessages(context.Background(), shopA, n.ID, ListMessagesInput{Page: page, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		for _, m := range messages {
			sequences = append(sequences, m.Sequence)
		}
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sequences)

	newest, _, err := f.uc.GetMessages(context.Background(), supplierX, n.ID, ListMessagesInput{Limit: 2, NewestFirst: true})
	require.NoError(t, err)
	require.Len(t, newest, 2)
	assert.Equal(t, int64(5), newest[0].Sequence)
	assert.Equal(t, int64(4), newest[1].Sequence)
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	_, err := f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{Body: "best I can do is 5200"})
	require.NoError(t, err)

	marked, err := f.uc.MarkAsRead(context.Background(), supplierX, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	first, _, err := f.uc.GetMessages(context.Background(), supplierX, n.ID, ListMessagesInput{})
	require.NoError(t, err)

	marked, err = f.uc.MarkAsRead(context.Background(), supplierX, n.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)

	second, _, err := f.uc.GetMessages(context.Background(), supplierX, n.ID, ListMessagesInput{})
	require.NoError(t, err)

	require.Len(t, second, 2)
	require.NotNil(t, second[0].ReadAt)
	assert.Equal(t, *first[0].ReadAt, *second[0].ReadAt)
	// the supplier's own message stays unread until the shop reads it
	assert.Nil(t, second[1].ReadAt)

	reads := 0
	for _, typ := range f.notifier.types() {
		if typ == event.NegotiationRead {
			reads++
		}
	}
	assert.Equal(t, 1, reads)
}

func TestAdminReadLeavesMarkersAlone(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	marked, err := f.uc.MarkAsRead(context.Background(), admin, n.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)

	messages, _, err := f.uc.GetMessages(context.Background(), supplierX, n.ID, ListMessagesInput{})
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Nil(t, messages[0].ReadAt)
	assert.NotContains(t, f.notifier.types(), event.NegotiationRead)
}

func TestMarkAsReadIsKeyedOnProfileSide(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	_, err := f.uc.SendMessage(context.Background(), supplierX, n.ID, SendNegotiationMessageInput{Body: "5200 and it ships friday"})
	require.NoError(t, err)

	colleague := shopA
	colleague.UserID = "user-shop-a-2"

	marked, err := f.uc.MarkAsRead(context.Background(), colleague, n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	messages, _, err := f.uc.GetMessages(context.Background(), shopA, n.ID, ListMessagesInput{})
	require.NoError(t, err)
	require.Len(t, messages, 2)
	// the shop's opening message is still waiting for the supplier
	assert.Nil(t, messages[0].ReadAt)
	assert.NotNil(t, messages[1].ReadAt)

	marked, err = f.uc.MarkAsRead(context.Background(), shopA, n.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)
}

func TestConcurrentStatusChangesHaveOneWinner(t *testing.T) {
	f := newNegotiationFixture()
	n := f.open(t)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		identity, target := shopA, entity.NegotiationClosedCancelled
		if i%2 == 0 {
			identity, target = supplierX, entity.NegotiationAgreed
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.UpdateStatus(context.Background(), identity, n.ID, UpdateNegotiationStatusInput{Status: target})

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			if errors.Is(err, "INVALID_STATE_TRANSITION") {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, conflicts)
}

func TestListNegotiations(t *testing.T) {
	f := newNegotiationFixture()
	first := f.open(t)
	f.open(t)

	_, err := f.uc.UpdateStatus(context.Background(), supplierX, first.ID, UpdateNegotiationStatusInput{Status: entity.NegotiationAgreed})
	require.NoError(t, err)

	all, total, err := f.uc.ListNegotiations(context.Background(), shopA, ListNegotiationsInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	agreed, total, err := f.uc.ListNegotiations(context.Background(), supplierX, ListNegotiationsInput{Status: "agreed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, first.ID, agreed[0].ID)

	none, total, err := f.uc.ListNegotiations(context.Background(), shopB, ListNegotiationsInput{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)

	_, _, err = f.uc.ListNegotiations(context.Background(), admin, ListNegotiationsInput{})
	assertCode(t, err, "FORBIDDEN")

	_, _, err = f.uc.ListNegotiations(context.Background(), shopA, ListNegotiationsInput{Status: "PENDING"})
	assertCode(t, err, "BAD_REQUEST")
}
