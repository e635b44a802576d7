package usecase

import (
	"context"

	"b2bmarket/internal/domain/event"
)

// Notifier receives committed state changes. Publish must return
// immediately; delivery failures are the notifier's concern and never
// reach the caller.
type Notifier interface {
	Publish(ctx context.Context, evt event.Event)
}
