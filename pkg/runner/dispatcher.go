package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
)

// EventHandler processes one inbound event. *switchboard.Engine implements it.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.InboundEvent) ([]domain.OutboundMessage, *domain.Session, error)
}

// Sink receives the outbound messages of one handled event.
type Sink func(ctx context.Context, msgs []domain.OutboundMessage)

// ErrorFunc receives events that could not be handled. Conflicts such as
// domain.ErrStaleWrite land here so the transport can decide to re-deliver.
type ErrorFunc func(ctx context.Context, ev domain.InboundEvent, err error)

// Dispatcher runs one worker per inbound event. Different conversations
// proceed in parallel; the handler serializes events of the same one.
type Dispatcher struct {
	handler EventHandler
	sink    Sink
	onError ErrorFunc
	logger  *slog.Logger
	slots   chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSink sets where outbound messages go.
func WithSink(sink Sink) DispatcherOption {
	return func(d *Dispatcher) {
		d.sink = sink
	}
}

// WithErrorHandler sets the callback for failed events.
func WithErrorHandler(fn ErrorFunc) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// WithDispatcherLogger sets the logger.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMaxInFlight caps concurrently handled events (0: unbounded).
func WithMaxInFlight(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.slots = make(chan struct{}, n)
		}
	}
}

// NewDispatcher creates a dispatcher over handler.
func NewDispatcher(handler EventHandler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handler: handler,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run consumes events until the channel closes or ctx is done, then waits
// for in-flight workers.
func (d *Dispatcher) Run(ctx context.Context, events <-chan domain.InboundEvent) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if d.slots != nil {
				select {
				case d.slots <- struct{}{}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if d.slots != nil {
					defer func() { <-d.slots }()
				}
				d.dispatch(ctx, ev)
			}()
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev domain.InboundEvent) {
	msgs, _, err := d.handler.Handle(ctx, ev)
	if err != nil {
		d.logger.Warn("event failed", "conversation_id", ev.ConversationID, "kind", ev.Kind, "err", err)
		if d.onError != nil {
			d.onError(ctx, ev, err)
		}
		return
	}
	if d.sink != nil && len(msgs) > 0 {
		d.sink(ctx, msgs)
	}
}
