package switchboard_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/switchboard"
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/dsl"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func greeting() domain.FlowDefinition {
	b := dsl.New("greeting").Name("Greeting")
	b.Add("start").Start().Go("hi")
	b.Add("hi").Message("Hi {name}").Go("choose")
	b.Add("choose").Decision("Pick one").Branch("A", "end1").Branch("B", "end2")
	b.Add("end1").End()
	b.Add("end2").End()
	return b.Build()
}

func deferredOrders() domain.FlowDefinition {
	b := dsl.New("orders")
	b.Add("start").Start().Go("lookup")
	b.Add("lookup").Action("checkOrderStatus").Branch("Found", "found").Otherwise("end")
	b.Add("found").Message("Your order is {status}.").Go("more")
	b.Add("more").Decision("Anything else?").Branch("No", "end")
	b.Add("end").End()
	return b.Build()
}

func publish(t *testing.T, eng *switchboard.Engine, def domain.FlowDefinition) string {
	t.Helper()
	id, _, err := eng.Publish(def)
	require.NoError(t, err)
	require.NoError(t, eng.Activate(id))
	return id
}

func TestEngine_PublishRejectsInvalidFlow(t *testing.T) {
	eng := switchboard.New()
	b := dsl.New("broken")
	b.Add("a").Message("no start").Go("ghost")
	_, _, err := eng.Publish(b.Build())

	var verr *flow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Defects)
	assert.Empty(t, eng.Registry().List())
}

func TestEngine_Conversation(t *testing.T) {
	eng := switchboard.New()
	publish(t, eng, greeting())
	ctx := context.Background()

	s, err := eng.Start(ctx, "c1", map[string]string{"name": "Sam"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, s.Status)

	_, err = eng.Start(ctx, "c1", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyRunning)

	out, s, err := eng.Handle(ctx, domain.UserText("c1", "hello"))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Hi Sam", out[0].Text)
	assert.Equal(t, domain.StatusAwaitingInput, s.Status)

	_, s, err = eng.Handle(ctx, domain.UserText("c1", "b"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, s.Status)
	assert.Equal(t, "end2", s.CurrentNodeID)

	stored, err := eng.Session(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, s.Step, stored.Step)

	// Terminal conversations discard further events.
	out, s, err = eng.Handle(ctx, domain.UserText("c1", "again"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, stored.Step, s.Step)

	// And can be restarted explicitly.
	_, err = eng.Start(ctx, "c1", nil)
	assert.NoError(t, err)
}

func TestEngine_AutoStart(t *testing.T) {
	ctx := context.Background()

	eng := switchboard.New()
	_, _, err := eng.Handle(ctx, domain.UserText("c1", "hi"))
	assert.ErrorIs(t, err, domain.ErrNoActiveFlow)

	publish(t, eng, greeting())
	out, s, err := eng.Handle(ctx, domain.UserText("c1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, []domain.OutboundMessage{{ConversationID: "c1", NodeID: "hi", Text: "Hi "}}, out)
	assert.Equal(t, domain.StatusAwaitingInput, s.Status)

	manual := switchboard.New(switchboard.WithAutoStart(false))
	publish(t, manual, greeting())
	_, _, err = manual.Handle(ctx, domain.UserText("c2", "hi"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEngine_VersionPinning(t *testing.T) {
	eng := switchboard.New()
	publish(t, eng, greeting())
	ctx := context.Background()

	_, _, err := eng.Handle(ctx, domain.UserText("old", "hi"))
	require.NoError(t, err)

	edited := greeting()
	for i := range edited.Nodes {
		if edited.Nodes[i].ID == "hi" {
			edited.Nodes[i].Content = "Welcome back {name}"
		}
	}
	_, version, err := eng.Publish(edited)
	require.NoError(t, err)
	assert.Equal(t, 2, version)

	// The running conversation stays on version 1.
	_, s, err := eng.Handle(ctx, domain.UserText("old", "A"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.FlowVersion)
	assert.Equal(t, domain.StatusCompleted, s.Status)

	out, s, err := eng.Handle(ctx, domain.UserText("new", "hi"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.FlowVersion)
	assert.Equal(t, "Welcome back ", out[0].Text)
}

func TestEngine_DeletedFlowFailsSession(t *testing.T) {
	eng := switchboard.New()
	id := publish(t, eng, greeting())
	ctx := context.Background()

	_, _, err := eng.Handle(ctx, domain.UserText("c1", "hi"))
	require.NoError(t, err)
	require.NoError(t, eng.Registry().Delete(id))

	out, s, err := eng.Handle(ctx, domain.UserText("c1", "A"))
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, domain.StatusFailed, s.Status)
	assert.Equal(t, domain.ReasonFlowUnavailable, s.Reason)
}

func TestEngine_CallbackReplayIsStale(t *testing.T) {
	provider := ports.ActionFunc(func(context.Context, string, map[string]string) (domain.ActionResult, error) {
		return domain.ActionResult{}, ports.ErrDeferred
	})
	eng := switchboard.New(switchboard.WithProvider(provider))
	publish(t, eng, deferredOrders())
	ctx := context.Background()

	_, s, err := eng.Handle(ctx, domain.UserText("c1", "where is my order?"))
	require.NoError(t, err)
	require.Equal(t, "lookup", s.PendingAction)

	cb := domain.ActionCallback("c1", "Found", map[string]string{"status": "shipped"})
	cb.Step = s.Step
	out, s, err := eng.Handle(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, "Your order is shipped.", out[0].Text)

	replay := domain.ActionCallback("c1", "Found", map[string]string{"status": "lost"})
	replay.Step = cb.Step
	_, _, err = eng.Handle(ctx, replay)
	assert.ErrorIs(t, err, domain.ErrStaleWrite)

	stored, err := eng.Session(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "shipped", stored.Context["status"])
	assert.Equal(t, s.Step, stored.Step)
}

type leaseLocker struct {
	mu  sync.Mutex
	ttl []time.Duration
}

func (l *leaseLocker) Lock(_ context.Context, _ string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ttl = append(l.ttl, ttl)
	return func(context.Context) error { return nil }, nil
}

func TestEngine_LockLeaseCoversSlowestAction(t *testing.T) {
	tests := []struct {
		name string
		opts []switchboard.Option
		want time.Duration
	}{
		{"defaults", nil, 3*10*time.Second + 4*time.Second + switchboard.LockMargin},
		{"derived from policy", []switchboard.Option{
			switchboard.WithActionRetries(1, 2*time.Second),
			switchboard.WithActionTimeout(4 * time.Second),
		}, 2*4*time.Second + 2*time.Second + switchboard.LockMargin},
		{"short lease is raised", []switchboard.Option{
			switchboard.WithLockTTL(time.Second),
		}, 34*time.Second + switchboard.LockMargin},
		{"longer lease is kept", []switchboard.Option{
			switchboard.WithLockTTL(2 * time.Minute),
		}, 2 * time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locker := &leaseLocker{}
			eng := switchboard.New(append(tt.opts, switchboard.WithLocker(locker))...)
			publish(t, eng, greeting())
			assert.Equal(t, tt.want, eng.LockTTL())

			_, _, err := eng.Handle(context.Background(), domain.UserText("c1", "hi"))
			require.NoError(t, err)
			require.NotEmpty(t, locker.ttl)
			for _, ttl := range locker.ttl {
				assert.Equal(t, tt.want, ttl)
			}
		})
	}
}

func TestEngine_Close(t *testing.T) {
	eng := switchboard.New()
	publish(t, eng, greeting())
	ctx := context.Background()

	_, _, err := eng.Handle(ctx, domain.UserText("c1", "hi"))
	require.NoError(t, err)

	s, err := eng.Close(ctx, "c1", domain.StatusHandedOff)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusHandedOff, s.Status)

	out, _, err := eng.Handle(ctx, domain.UserText("c1", "A"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

type importSource map[string]domain.FlowDefinition

func (s importSource) LoadFlow(_ context.Context, id string) (domain.FlowDefinition, error) {
	def, ok := s[id]
	if !ok {
		return domain.FlowDefinition{}, domain.ErrFlowNotFound
	}
	return def, nil
}

func (s importSource) ListFlows(context.Context) ([]string, error) {
	return []string{"greeting", "broken", "orders"}, nil
}

func TestEngine_Import(t *testing.T) {
	active := greeting()
	active.Active = true
	broken := dsl.New("broken").Build()

	eng := switchboard.New()
	n, err := eng.Import(context.Background(), importSource{
		"greeting": active,
		"broken":   broken,
		"orders":   deferredOrders(),
	})
	assert.Equal(t, 2, n)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, eng.Registry().IsActive("greeting"))
}

func TestEngine_StepsNeverOverlapPerConversation(t *testing.T) {
	var mu sync.Mutex
	inFlight := map[string]int{}
	var overlaps int32

	hooks := domain.LifecycleHooks{
		OnStepStart: func(_ context.Context, e *domain.StepEvent) {
			mu.Lock()
			inFlight[e.ConversationID]++
			if inFlight[e.ConversationID] > 1 {
				atomic.AddInt32(&overlaps, 1)
			}
			mu.Unlock()
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			mu.Lock()
			inFlight[e.ConversationID]--
			mu.Unlock()
		},
	}

	// A slow provider widens the window for overlapping steps.
	provider := ports.ActionFunc(func(context.Context, string, map[string]string) (domain.ActionResult, error) {
		time.Sleep(time.Millisecond)
		return domain.ActionResult{Outcome: "ok"}, nil
	})

	b := dsl.New("loop")
	b.Add("start").Start().Go("work")
	b.Add("work").Action("noop").Go("ask")
	b.Add("ask").Message("again?").Go("menu")
	b.Add("menu").Decision("yes or no").Branch("yes", "work").Branch("no", "end")
	b.Add("end").End()

	eng := switchboard.New(
		switchboard.WithProvider(provider),
		switchboard.WithLifecycleHooks(hooks),
	)
	publish(t, eng, b.Build())
	ctx := context.Background()

	const conversations = 5
	const events = 20
	var wg sync.WaitGroup
	var handled int32
	for c := 0; c < conversations; c++ {
		conv := fmt.Sprintf("conv-%d", c)
		for i := 0; i < events; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := eng.Handle(ctx, domain.UserText(conv, "yes"))
				if err == nil || errors.Is(err, domain.ErrAlreadyRunning) {
					atomic.AddInt32(&handled, 1)
				}
			}()
		}
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps))
	assert.Equal(t, int32(conversations*events), handled)
	for c := 0; c < conversations; c++ {
		s, err := eng.Session(ctx, fmt.Sprintf("conv-%d", c))
		require.NoError(t, err)
		assert.Equal(t, uint64(events), s.Step, "every event advanced the session exactly once")
	}
}
