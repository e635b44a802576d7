package notification

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"b2bmarket/internal/domain/event"
	"b2bmarket/pkg/logger"
)

var tracer = otel.Tracer("b2bmarket/notification")

// Sink delivers one event to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt event.Event) error
}

// Dispatcher fans committed events out to its sinks in the background.
// Sink failures are logged and never reach the publisher.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, sinks ...Sink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
	}
}

func (d *Dispatcher) Publish(ctx context.Context, evt event.Event) {
	// The request context ends with the response; keep its values (trace
	// span) but not its cancellation.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("notification dispatch of %s panicked: %v", evt.Type, r)
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		ctx, span := tracer.Start(ctx, "Dispatcher.Publish")
		defer span.End()
		span.SetAttributes(
			attribute.String("event.type", string(evt.Type)),
			attribute.String("event.entity_id", evt.EntityID),
		)

		for _, sink := range d.sinks {
			if err := sink.Deliver(ctx, evt); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "sink delivery failed")
				logger.WithFields(map[string]interface{}{
					"sink":      sink.Name(),
					"event":     evt.Type,
					"entity_id": evt.EntityID,
				}).Warnf("notification delivery failed: %v", err)
			}
		}
	}()
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
