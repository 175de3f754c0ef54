package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
	"github.com/cenkalti/backoff/v4"
)

// schedule replays a fixed list of delays, repeating the last one.
type schedule struct {
	delays []time.Duration
	next   int
}

func (s *schedule) NextBackOff() time.Duration {
	if len(s.delays) == 0 {
		return 0
	}
	i := s.next
	if i >= len(s.delays) {
		i = len(s.delays) - 1
	}
	s.next++
	return s.delays[i]
}

func (s *schedule) Reset() { s.next = 0 }

// ActionBound is the longest one action node can run under the retry
// policy: every attempt hits the timeout and every backoff wait elapses.
func (e *Engine) ActionBound() time.Duration {
	total := time.Duration(e.actionRetries+1) * e.actionTimeout
	waits := &schedule{delays: e.actionDelays}
	for i := 0; i < e.actionRetries; i++ {
		total += waits.NextBackOff()
	}
	return total
}

// invoke calls the action provider for node with the retry, backoff and
// timeout policy. ErrDeferred and ErrUnknownAction are never retried.
func (e *Engine) invoke(ctx context.Context, s *domain.Session, node domain.FlowNode) (domain.ActionResult, error) {
	var result domain.ActionResult
	attempt := 0
	policy := backoff.WithContext(
		backoff.WithMaxRetries(&schedule{delays: e.actionDelays}, uint64(e.actionRetries)),
		ctx,
	)

	err := backoff.Retry(func() error {
		attempt++
		res, err := e.attempt(ctx, s, node, attempt)
		if err == nil {
			result = res
			return nil
		}
		if errors.Is(err, ports.ErrDeferred) || errors.Is(err, ports.ErrUnknownAction) {
			return backoff.Permanent(err)
		}
		e.logger.Warn("action attempt failed",
			"conversation_id", s.ConversationID,
			"node_id", node.ID,
			"action", node.Content,
			"attempt", attempt,
			"err", err,
		)
		return err
	}, policy)

	if err != nil {
		if errors.Is(err, ports.ErrDeferred) {
			return domain.ActionResult{}, err
		}
		return domain.ActionResult{}, &ActionError{NodeID: node.ID, Action: node.Content, Attempts: attempt, Err: err}
	}
	return result, nil
}

// attempt performs one bounded provider call. A provider that ignores its
// context is abandoned when the deadline passes.
func (e *Engine) attempt(ctx context.Context, s *domain.Session, node domain.FlowNode, n int) (domain.ActionResult, error) {
	// Each attempt gets its own copy: an abandoned call may still hold the previous one.
	vars := make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		vars[k] = v
	}

	callCtx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	ev := &domain.ActionEvent{
		Timestamp:      e.now(),
		ConversationID: s.ConversationID,
		NodeID:         node.ID,
		Action:         node.Content,
		Attempt:        n,
	}
	if e.hooks.OnActionCall != nil {
		e.hooks.OnActionCall(ctx, ev)
	}

	type reply struct {
		res domain.ActionResult
		err error
	}
	done := make(chan reply, 1)
	go func() {
		res, err := e.provider.Invoke(callCtx, node.Content, vars)
		done <- reply{res, err}
	}()

	var rep reply
	select {
	case rep = <-done:
	case <-callCtx.Done():
		rep.err = callCtx.Err()
	}

	ev.Outcome = rep.res.Outcome
	ev.Err = rep.err
	ev.Duration = e.now().Sub(ev.Timestamp)
	if e.hooks.OnActionReturn != nil {
		e.hooks.OnActionReturn(ctx, ev)
	}
	return rep.res, rep.err
}
