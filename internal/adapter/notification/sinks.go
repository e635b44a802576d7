package notification

import (
	"context"

	"github.com/pkg/errors"

	"b2bmarket/internal/domain/entity"
	"b2bmarket/internal/domain/event"
	"b2bmarket/internal/domain/repository"
	"b2bmarket/internal/infrastructure/websocket"
	"b2bmarket/pkg/logger"
)

// Pusher is the part of the websocket manager the push sink needs.
type Pusher interface {
	SendToChannel(channelKey string, message []byte) int
}

type PushSink struct {
	pusher Pusher
}

func NewPushSink(pusher Pusher) *PushSink {
	return &PushSink{pusher: pusher}
}

func (s *PushSink) Name() string { return "websocket" }

// Deliver pushes the event to every recipient channel. Offline recipients
// are not an error.
func (s *PushSink) Deliver(_ context.Context, evt event.Event) error {
	frame, err := websocket.NewFrame(string(evt.Type), evt, evt.OccurredAt)
	if err != nil {
		return errors.Wrapf(err, "encode %s frame", evt.Type)
	}
	for _, key := range evt.Recipients {
		if key == "" {
			continue
		}
		s.pusher.SendToChannel(key, frame)
	}
	return nil
}

type AuditSink struct {
	repo repository.AuditRepository
}

func NewAuditSink(repo repository.AuditRepository) *AuditSink {
	return &AuditSink{repo: repo}
}

func (s *AuditSink) Name() string { return "audit" }

// Deliver records status transitions only; messages and read receipts
// live in the thread itself.
func (s *AuditSink) Deliver(ctx context.Context, evt event.Event) error {
	if !evt.IsTransition() {
		return nil
	}
	err := s.repo.Append(ctx, &entity.AuditEntry{
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		Event:      string(evt.Type),
		FromStatus: evt.FromStatus,
		ToStatus:   evt.ToStatus,
		ActorID:    evt.ActorID,
		Notes:      evt.Notes,
		CreatedAt:  evt.OccurredAt,
	})
	return errors.Wrapf(err, "audit %s", evt.EntityID)
}

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, evt event.Event) error {
	fields := map[string]interface{}{
		"event":       evt.Type,
		"entity_type": evt.EntityType,
		"entity_id":   evt.EntityID,
		"actor_id":    evt.ActorID,
	}
	if evt.IsTransition() {
		fields["from"] = evt.FromStatus
		fields["to"] = evt.ToStatus
	}
	logger.WithFields(fields).Info("domain event")
	return nil
}
