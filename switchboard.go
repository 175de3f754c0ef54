package switchboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/switchboard/internal/logging"
	"github.com/aretw0/switchboard/internal/runtime"
	"github.com/aretw0/switchboard/pkg/adapters/memory"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/aretw0/switchboard/pkg/registry"
	"github.com/aretw0/switchboard/pkg/session"
)

// Engine is the high-level entry point for Switchboard.
// It ties the flow registry, the session store and the runtime state
// machine together, and serializes work per conversation.
type Engine struct {
	runtime  *runtime.Engine
	registry *registry.Registry
	sessions *session.Manager

	store          ports.SessionStore
	locker         ports.DistributedLocker
	provider       ports.ActionProvider
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	runtimeOpts    []runtime.EngineOption
	handoffActions []string
	autoStart      bool
	lockTTL        time.Duration
}

// LockMargin is added to the worst-case action time when deriving the
// distributed lock lease.
const LockMargin = 5 * time.Second

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store (default: in-memory).
func WithStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed per-conversation locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the lease of distributed locks. The lease never drops
// below the derived bound of one action node (see Engine.LockTTL).
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithProvider sets the action provider.
func WithProvider(provider ports.ActionProvider) Option {
	return func(e *Engine) {
		e.provider = provider
	}
}

// WithRegistry shares an existing flow registry.
func WithRegistry(r *registry.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithStepBudget bounds node visits per inbound event (default 50).
func WithStepBudget(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStepBudget(n))
	}
}

// WithDecisionRetries sets the unmatched inputs tolerated per decision (default 3).
func WithDecisionRetries(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithDecisionRetries(n))
	}
}

// WithActionRetries sets action retries and the waits between them (default 2: 1s, 3s).
func WithActionRetries(retries int, delays ...time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithActionRetries(retries, delays...))
	}
}

// WithActionTimeout bounds each action provider attempt (default 10s).
func WithActionTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithActionTimeout(d))
	}
}

// WithHistoryLimit bounds the node history kept per session (default 64).
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHistoryLimit(n))
	}
}

// WithHandoffMessage sets the message sent when a decision gives up.
func WithHandoffMessage(text string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithHandoffMessage(text))
	}
}

// WithHandoffActions names the actions that count as a human hand-off path
// during validation.
func WithHandoffActions(names ...string) Option {
	return func(e *Engine) {
		e.handoffActions = names
	}
}

// WithAutoStart controls whether Handle opens a session on the active flow
// for conversations that have none (default true).
func WithAutoStart(enabled bool) Option {
	return func(e *Engine) {
		e.autoStart = enabled
	}
}

// New initializes a Switchboard Engine.
func New(opts ...Option) *Engine {
	e := &Engine{autoStart: true}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.registry == nil {
		e.registry = registry.New()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
	}
	runtimeOpts = append(runtimeOpts, e.runtimeOpts...)
	e.runtime = runtime.NewEngine(e.provider, runtimeOpts...)

	// A lease shorter than one action would let another replica step the
	// conversation while the action is still running.
	if bound := e.runtime.ActionBound() + LockMargin; e.lockTTL < bound {
		e.lockTTL = bound
	}

	sessionOpts := []session.Option{
		session.WithLogger(e.logger),
		session.WithLockTTL(e.lockTTL),
	}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	return e
}

// Validate checks a draft flow without registering it.
func (e *Engine) Validate(def domain.FlowDefinition) (*flow.Validated, error) {
	var opts []flow.Option
	if len(e.handoffActions) > 0 {
		opts = append(opts, flow.WithHandoffActions(e.handoffActions...))
	}
	return flow.Validate(def, opts...)
}

// Publish validates and registers a draft flow. Publishing an existing id
// creates a new version; running conversations keep their version.
// On failure the error is a *flow.ValidationError listing every defect.
func (e *Engine) Publish(def domain.FlowDefinition) (string, int, error) {
	v, err := e.Validate(def)
	if err != nil {
		return "", 0, err
	}
	for _, w := range v.Warnings() {
		e.logger.Warn("flow warning", "flow_id", def.ID, "warning", w.String())
	}
	id, version, err := e.registry.Register(v)
	if err != nil {
		return "", 0, err
	}
	e.logger.Info("flow published", "flow_id", id, "version", version)
	return id, version, nil
}

// Activate makes id the single active flow.
func (e *Engine) Activate(id string) error {
	if err := e.registry.Activate(id); err != nil {
		return err
	}
	e.logger.Info("flow activated", "flow_id", id)
	return nil
}

// Deactivate clears the active flag of id.
func (e *Engine) Deactivate(id string) error {
	return e.registry.Deactivate(id)
}

// Import publishes every flow of a source and activates the one marked
// active. Flows that fail validation are reported together.
func (e *Engine) Import(ctx context.Context, source ports.FlowSource) (int, error) {
	ids, err := source.ListFlows(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list flows: %w", err)
	}

	var errs []error
	activate := ""
	published := 0
	for _, id := range ids {
		def, err := source.LoadFlow(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("flow %s: %w", id, err))
			continue
		}
		flowID, _, err := e.Publish(def)
		if err != nil {
			errs = append(errs, fmt.Errorf("flow %s: %w", id, err))
			continue
		}
		published++
		if def.Active {
			if activate != "" {
				e.logger.Warn("several flows marked active, keeping the first", "flow_id", activate, "ignored", flowID)
				continue
			}
			activate = flowID
		}
	}
	if activate != "" {
		if err := e.Activate(activate); err != nil {
			errs = append(errs, err)
		}
	}
	return published, errors.Join(errs...)
}

// LockTTL is the distributed lock lease: the configured value, raised to
// the worst case of one action node (all attempts timing out plus the
// backoff waits) plus LockMargin. Flows chaining several slow actions in
// one step need WithLockTTL.
func (e *Engine) LockTTL() time.Duration {
	return e.lockTTL
}

// Registry exposes the flow registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Sessions exposes the session manager.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Start opens a session for a conversation on the active flow, replacing
// a terminal one. It fails with domain.ErrAlreadyRunning if the
// conversation is still in progress.
func (e *Engine) Start(ctx context.Context, conversationID string, vars map[string]string) (*domain.Session, error) {
	var started *domain.Session
	err := e.sessions.WithLock(ctx, conversationID, func(ctx context.Context) error {
		var err error
		started, err = e.begin(ctx, conversationID, vars)
		return err
	})
	return started, err
}

func (e *Engine) begin(ctx context.Context, conversationID string, vars map[string]string) (*domain.Session, error) {
	f, err := e.registry.Active()
	if err != nil {
		return nil, err
	}
	s := e.runtime.Begin(ctx, f, conversationID, vars)
	if err := e.store.Create(ctx, s); err != nil {
		return nil, err
	}
	e.logger.Info("conversation started", "conversation_id", conversationID, "flow_id", f.ID(), "flow_version", f.Version())
	return s, nil
}

// Handle processes one inbound event: it takes the conversation's lock,
// loads the session, steps it and saves the result before releasing.
// Events for terminal sessions are discarded without error.
func (e *Engine) Handle(ctx context.Context, ev domain.InboundEvent) ([]domain.OutboundMessage, *domain.Session, error) {
	if ev.ConversationID == "" {
		return nil, nil, errors.New("event has no conversation id")
	}

	var out []domain.OutboundMessage
	var result *domain.Session
	err := e.sessions.WithLock(ctx, ev.ConversationID, func(ctx context.Context) error {
		current, err := e.store.Load(ctx, ev.ConversationID)
		if errors.Is(err, domain.ErrSessionNotFound) && e.autoStart && ev.Kind == domain.EventUserText {
			current, err = e.begin(ctx, ev.ConversationID, nil)
		}
		if err != nil {
			return err
		}

		next, msgs, err := e.step(ctx, current, ev)
		if err != nil {
			return err
		}
		if next.Step != current.Step {
			if err := e.store.Save(ctx, next); err != nil {
				return err
			}
		}
		out, result = msgs, next
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrStaleWrite) {
			e.logger.Warn("stale write rejected", "conversation_id", ev.ConversationID, "kind", ev.Kind, "err", err)
		} else {
			e.logger.Debug("event not handled", "conversation_id", ev.ConversationID, "kind", ev.Kind, "err", err)
		}
		return nil, nil, err
	}
	return out, result, nil
}

func (e *Engine) step(ctx context.Context, current *domain.Session, ev domain.InboundEvent) (*domain.Session, []domain.OutboundMessage, error) {
	if current.Status.Terminal() {
		return current, nil, nil
	}
	f, err := e.registry.Get(current.FlowID, current.FlowVersion)
	if errors.Is(err, domain.ErrFlowNotFound) {
		e.logger.Warn("flow version unavailable",
			"conversation_id", current.ConversationID, "flow_id", current.FlowID, "flow_version", current.FlowVersion)
		return e.runtime.Abort(ctx, current, domain.StatusFailed, domain.ReasonFlowUnavailable, err.Error()), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return e.runtime.Step(ctx, f, current, ev)
}

// Session returns the current session of a conversation.
func (e *Engine) Session(ctx context.Context, conversationID string) (*domain.Session, error) {
	return e.sessions.Load(ctx, conversationID)
}

// Close forces a conversation into a terminal status.
func (e *Engine) Close(ctx context.Context, conversationID string, final domain.Status) (*domain.Session, error) {
	return e.sessions.Close(ctx, conversationID, final)
}
