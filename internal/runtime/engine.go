package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Defaults for the execution policy.
const (
	DefaultStepBudget      = 50
	DefaultDecisionRetries = 3
	DefaultActionRetries   = 2
	DefaultActionTimeout   = 10 * time.Second
	DefaultHistoryLimit    = 64
)

// DefaultActionDelays are the waits before the 1st and 2nd action retries.
var DefaultActionDelays = []time.Duration{1 * time.Second, 3 * time.Second}

// Engine is the flow state machine. It is stateless between calls:
// everything it needs comes in through the session and the flow.
type Engine struct {
	provider ports.ActionProvider

	stepBudget      int
	decisionRetries int
	actionRetries   int
	actionDelays    []time.Duration
	actionTimeout   time.Duration
	historyLimit    int
	handoffMessage  string

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithStepBudget bounds the node visits of a single step.
func WithStepBudget(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.stepBudget = n
		}
	}
}

// WithDecisionRetries sets how many consecutive unmatched inputs a decision
// tolerates before the conversation is handed off.
func WithDecisionRetries(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.decisionRetries = n
		}
	}
}

// WithActionRetries sets the retry count and the waits between attempts.
// The last delay repeats if retries outnumber delays.
func WithActionRetries(retries int, delays ...time.Duration) EngineOption {
	return func(e *Engine) {
		if retries >= 0 {
			e.actionRetries = retries
		}
		if len(delays) > 0 {
			e.actionDelays = delays
		}
	}
}

// WithActionTimeout bounds every single provider attempt.
func WithActionTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.actionTimeout = d
		}
	}
}

// WithHistoryLimit bounds the node history kept in sessions (<= 0: unbounded).
func WithHistoryLimit(n int) EngineOption {
	return func(e *Engine) {
		e.historyLimit = n
	}
}

// WithHandoffMessage sets a message emitted when decision retries run out.
func WithHandoffMessage(text string) EngineOption {
	return func(e *Engine) {
		e.handoffMessage = text
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides time.Now (tests).
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine invoking actions on provider.
// A nil provider fails every action node.
func NewEngine(provider ports.ActionProvider, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:        provider,
		stepBudget:      DefaultStepBudget,
		decisionRetries: DefaultDecisionRetries,
		actionRetries:   DefaultActionRetries,
		actionDelays:    DefaultActionDelays,
		actionTimeout:   DefaultActionTimeout,
		historyLimit:    DefaultHistoryLimit,
		logger:          logging.NewNop(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.provider == nil {
		e.provider = ports.ActionFunc(func(context.Context, string, map[string]string) (domain.ActionResult, error) {
			return domain.ActionResult{}, ports.ErrUnknownAction
		})
	}
	return e
}

// Begin creates the session of a conversation bound to a flow version.
// The start node is evaluated immediately: the session comes back
// positioned at the start node's target, running, with no output.
func (e *Engine) Begin(ctx context.Context, f *flow.Validated, conversationID string, vars map[string]string) *domain.Session {
	start, _ := f.Node(f.StartNodeID())

	s := domain.NewSession(conversationID, f.ID(), f.Version(), start.ID)
	now := e.now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	for k, v := range vars {
		s.Context[k] = v
	}

	e.enter(ctx, s, start)
	s.CurrentNodeID = start.Next.Target()

	e.logger.Debug("session started", "conversation_id", conversationID, "flow_id", f.ID(), "flow_version", f.Version())
	return s
}

// Abort moves a session into a terminal status outside of normal evaluation
// (for example when its flow version disappeared).
func (e *Engine) Abort(ctx context.Context, s *domain.Session, status domain.Status, reason domain.FailureReason, detail string) *domain.Session {
	if s.Status.Terminal() {
		return s
	}
	next := s.Clone()
	next.Step++
	from := next.Status
	next.Status, next.Reason, next.Detail = status, reason, detail
	next.PendingAction = ""
	next.UpdatedAt = e.now().UTC()
	e.emitStatus(ctx, next, from)
	return next
}
