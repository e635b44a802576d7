package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNegotiationStatusTransitions(t *testing.T) {
	tests := []struct {
		from   NegotiationStatus
		to     NegotiationStatus
		expect bool
	}{
		{NegotiationInitiated, NegotiationAgreed, true},
		{NegotiationInitiated, NegotiationClosedCancelled, true},
		{NegotiationInitiated, NegotiationInitiated, false},
		{NegotiationAgreed, NegotiationClosedCancelled, false},
		{NegotiationAgreed, NegotiationInitiated, false},
		{NegotiationClosedCancelled, NegotiationAgreed, false},
		{NegotiationClosedCancelled, NegotiationInitiated, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNegotiationStatusTerminal(t *testing.T) {
	assert.False(t, NegotiationInitiated.IsTerminal())
	assert.True(t, NegotiationAgreed.IsTerminal())
	assert.True(t, NegotiationClosedCancelled.IsTerminal())
	assert.False(t, NegotiationStatus("OPEN").Valid())
}

func TestAppendMessageAssignsSequenceAndSummary(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	n := &Negotiation{ID: "neg-1", Status: NegotiationInitiated, CreatedAt: start, UpdatedAt: start}

	price := decimal.RequireFromString("12.50")
	first := &NegotiationMessage{ID: "m1", Body: "Can you do 12.50?", ProposedPrice: &price}
	n.AppendMessage(first, start.Add(time.Minute))

	second := &NegotiationMessage{ID: "m2", Body: "Let me check"}
	n.AppendMessage(second, start.Add(2*time.Minute))

	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, int64(2), second.Sequence)
	assert.Equal(t, "neg-1", second.NegotiationID)
	assert.Equal(t, int64(2), n.MessageCount)
	assert.Equal(t, "Let me check", n.LastMessagePreview)
	require.NotNil(t, n.LastMessageAt)
	assert.Equal(t, start.Add(2*time.Minute), *n.LastMessageAt)
	assert.Equal(t, start.Add(2*time.Minute), n.UpdatedAt)

	// a message without a price keeps the last proposal
	require.NotNil(t, n.LastProposedPrice)
	assert.True(t, price.Equal(*n.LastProposedPrice))
}

func TestAppendMessageTruncatesPreview(t *testing.T) {
	n := &Negotiation{ID: "neg-1"}
	body := strings.Repeat("é", previewLength+10)

	n.AppendMessage(&NegotiationMessage{Body: body}, time.Now())

	assert.Equal(t, previewLength+1, len([]rune(n.LastMessagePreview)))
	assert.True(t, strings.HasSuffix(n.LastMessagePreview, "…"))
}
