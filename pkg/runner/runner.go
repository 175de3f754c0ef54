package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
)

// Runner drives one conversation interactively through an IOHandler.
// It is what a flow author uses to try a flow from the terminal.
type Runner struct {
	Handler        IOHandler
	Logger         *slog.Logger
	ConversationID string
	Variables      map[string]string

	// IdleTimeout, when set, sends a Timer event after this long without
	// input, which re-prompts a pending decision.
	IdleTimeout time.Duration

	engine *switchboard.Engine
}

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithEngine configures the engine the conversation runs on.
func WithEngine(engine *switchboard.Engine) Option {
	return func(r *Runner) {
		r.engine = engine
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithConversationID sets the conversation id (default "local").
func WithConversationID(id string) Option {
	return func(r *Runner) {
		r.ConversationID = id
	}
}

// WithVariables seeds the session context.
func WithVariables(vars map[string]string) Option {
	return func(r *Runner) {
		r.Variables = vars
	}
}

// WithIdleTimeout re-prompts pending decisions after d without input.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.IdleTimeout = d
	}
}

// NewRunner creates a Runner. WithEngine is required.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		ConversationID: "local",
		Logger:         logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run starts a fresh conversation on the active flow and loops until the
// session is terminal, the input is exhausted or ctx is done.
// It returns the final session.
func (r *Runner) Run(ctx context.Context) (*domain.Session, error) {
	if r.engine == nil {
		return nil, errors.New("runner has no engine")
	}

	s, err := r.engine.Start(ctx, r.ConversationID, r.Variables)
	if err != nil {
		return nil, fmt.Errorf("failed to start conversation: %w", err)
	}

	// The opening event only kicks the flow off; its text is never matched.
	ev := domain.UserText(r.ConversationID, "")
	for {
		msgs, next, err := r.engine.Handle(ctx, ev)
		if err != nil {
			return s, fmt.Errorf("step failed: %w", err)
		}
		s = next
		if err := r.Handler.Output(ctx, msgs); err != nil {
			return s, fmt.Errorf("output error: %w", err)
		}

		if s.Status.Terminal() {
			r.Logger.Debug("conversation finished", "conversation_id", s.ConversationID, "status", s.Status)
			return s, r.Handler.SystemOutput(ctx, describe(s))
		}
		if s.PendingAction != "" {
			if err := r.Handler.SystemOutput(ctx, fmt.Sprintf("waiting for action %s", s.PendingAction)); err != nil {
				return s, err
			}
		}

		text, err := r.read(ctx)
		switch {
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			ev = domain.Timer(r.ConversationID)
			continue
		case errors.Is(err, io.EOF):
			return s, nil
		case err != nil:
			return s, err
		}
		ev = domain.UserText(r.ConversationID, text)
	}
}

func (r *Runner) read(ctx context.Context) (string, error) {
	if r.IdleTimeout <= 0 {
		return r.Handler.Input(ctx)
	}
	inputCtx, cancel := context.WithTimeout(ctx, r.IdleTimeout)
	defer cancel()
	return r.Handler.Input(inputCtx)
}

func describe(s *domain.Session) string {
	switch s.Status {
	case domain.StatusCompleted:
		return "conversation completed"
	case domain.StatusHandedOff:
		return "conversation handed off to an agent"
	}
	if s.Detail != "" {
		return fmt.Sprintf("conversation failed (%s): %s", s.Reason, s.Detail)
	}
	return fmt.Sprintf("conversation failed (%s)", s.Reason)
}
