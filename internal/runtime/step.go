package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/aretw0/switchboard/pkg/ports"
)

// run carries the mutable state of one step.
type run struct {
	session  *domain.Session
	flow     *flow.Validated
	out      []domain.OutboundMessage
	visits   int
	prev     domain.NodeType
	input    string
	hasInput bool
}

func (r *run) emit(nodeID, text string) {
	r.out = append(r.out, domain.OutboundMessage{
		ConversationID: r.session.ConversationID,
		NodeID:         nodeID,
		Text:           text,
	})
}

func (r *run) halt(status domain.Status) {
	r.session.Status = status
}

func (r *run) fail(reason domain.FailureReason, detail string) {
	r.session.Status = domain.StatusFailed
	r.session.Reason = reason
	r.session.Detail = detail
	r.session.PendingAction = ""
}

// Step evaluates one inbound event against a session and returns the
// advanced session together with the messages produced, in evaluation order.
//
// Events for terminal sessions are discarded: the input session is returned
// unchanged with no messages. Callers can detect "nothing to persist" by
// comparing Step counters. The input session is never mutated.
func (e *Engine) Step(ctx context.Context, f *flow.Validated, s *domain.Session, ev domain.InboundEvent) (*domain.Session, []domain.OutboundMessage, error) {
	if s.Status.Terminal() {
		e.logger.Debug("event discarded for terminal session",
			"conversation_id", s.ConversationID, "kind", ev.Kind, "status", s.Status)
		return s, nil, nil
	}

	current, ok := f.Node(s.CurrentNodeID)
	if !ok {
		return e.Abort(ctx, s, domain.StatusFailed, domain.ReasonFlowUnavailable,
			fmt.Sprintf("node %q missing from flow %s v%d", s.CurrentNodeID, f.ID(), f.Version())), nil, nil
	}

	awaitingDecision := s.Status == domain.StatusAwaitingInput && current.Type == domain.NodeDecision
	awaitingAction := s.Status == domain.StatusAwaitingInput && s.PendingAction != ""

	switch ev.Kind {
	case domain.EventActionCallback:
		if !awaitingAction || s.PendingAction != current.ID || (ev.Step != 0 && ev.Step != s.Step) {
			return nil, nil, fmt.Errorf("%w: no pending action for step %d", domain.ErrStaleWrite, ev.Step)
		}
	case domain.EventTimer:
		if !awaitingDecision {
			return s, nil, nil
		}
	case domain.EventUserText:
		if awaitingAction {
			e.logger.Debug("user text ignored while action pending",
				"conversation_id", s.ConversationID, "action", s.PendingAction)
			return s, nil, nil
		}
	default:
		return nil, nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	next := s.Clone()
	next.Step++
	from := next.Status
	next.Status = domain.StatusRunning

	r := &run{session: next, flow: f, prev: domain.NodeStart}

	stepEvent := &domain.StepEvent{
		Timestamp:      e.now(),
		ConversationID: next.ConversationID,
		FlowID:         next.FlowID,
		Kind:           ev.Kind,
	}
	if e.hooks.OnStepStart != nil {
		e.hooks.OnStepStart(ctx, stepEvent)
	}

	var err error
	switch ev.Kind {
	case domain.EventTimer:
		e.prompt(r, current, false)
		r.halt(domain.StatusAwaitingInput)
	case domain.EventActionCallback:
		next.PendingAction = ""
		if target, ok := e.applyResult(r, current, domain.ActionResult{Outcome: ev.Outcome, Variables: ev.Variables}); ok {
			next.CurrentNodeID = target
			r.prev = domain.NodeAction
			err = e.loop(ctx, r)
		}
	case domain.EventUserText:
		if awaitingDecision {
			r.input, r.hasInput = ev.Text, true
		}
		err = e.loop(ctx, r)
	}
	if err != nil {
		return nil, nil, err
	}

	next.UpdatedAt = e.now().UTC()
	if next.Status != from {
		e.emitStatus(ctx, next, from)
	}

	stepEvent.Status = next.Status
	stepEvent.Reason = next.Reason
	stepEvent.Visits = r.visits
	stepEvent.Duration = e.now().Sub(stepEvent.Timestamp)
	if e.hooks.OnStepEnd != nil {
		e.hooks.OnStepEnd(ctx, stepEvent)
	}

	e.logger.Debug("step finished",
		"conversation_id", next.ConversationID,
		"node_id", next.CurrentNodeID,
		"status", next.Status,
		"visits", r.visits,
		"messages", len(r.out),
	)
	return next, r.out, nil
}

// loop evaluates nodes until the session suspends or terminates.
// It only returns an error when ctx is done mid-action.
func (e *Engine) loop(ctx context.Context, r *run) error {
	s := r.session
	for {
		node, ok := r.flow.Node(s.CurrentNodeID)
		if !ok {
			r.fail(domain.ReasonFlowUnavailable, fmt.Sprintf("node %q missing", s.CurrentNodeID))
			return nil
		}

		r.visits++
		if r.visits > e.stepBudget {
			e.logger.Warn("step budget exceeded",
				"conversation_id", s.ConversationID, "node_id", node.ID, "budget", e.stepBudget)
			r.fail(domain.ReasonStepBudgetExceeded, fmt.Sprintf("more than %d node visits in one step", e.stepBudget))
			return nil
		}
		e.enter(ctx, s, node)

		switch node.Type {
		case domain.NodeStart:
			s.CurrentNodeID = node.Next.Target()

		case domain.NodeMessage:
			r.emit(node.ID, flow.Render(node.Content, s.Context))
			target := node.Next.Target()
			s.CurrentNodeID = target
			if t, ok := r.flow.Node(target); ok && t.Type == domain.NodeDecision {
				r.halt(domain.StatusAwaitingInput)
				return nil
			}

		case domain.NodeDecision:
			if !r.hasInput {
				if r.prev != domain.NodeMessage {
					e.prompt(r, node, false)
				}
				r.halt(domain.StatusAwaitingInput)
				return nil
			}
			input := r.input
			r.input, r.hasInput = "", false

			target, ok := matchBranch(input, node.Next.Branches())
			if !ok {
				e.miss(r, node, input)
				return nil
			}
			delete(s.Retries, node.ID)
			s.CurrentNodeID = target

		case domain.NodeAction:
			result, err := e.invoke(ctx, s, node)
			switch {
			case errors.Is(err, ports.ErrDeferred):
				s.PendingAction = node.ID
				r.halt(domain.StatusAwaitingInput)
				return nil
			case err != nil && ctx.Err() != nil:
				return ctx.Err()
			case err != nil:
				r.fail(domain.ReasonActionProviderError, err.Error())
				return nil
			}
			target, ok := e.applyResult(r, node, result)
			if !ok {
				return nil
			}
			s.CurrentNodeID = target

		case domain.NodeEnd:
			r.halt(domain.StatusCompleted)
			return nil

		default:
			r.fail(domain.ReasonFlowUnavailable, fmt.Sprintf("node %q has unknown type %q", node.ID, node.Type))
			return nil
		}
		r.prev = node.Type
	}
}

// miss records an unmatched decision input.
func (e *Engine) miss(r *run, node domain.FlowNode, input string) {
	s := r.session
	s.Retries[node.ID]++
	e.logger.Debug("decision input unmatched",
		"conversation_id", s.ConversationID, "node_id", node.ID, "input", input, "retries", s.Retries[node.ID])

	if s.Retries[node.ID] >= e.decisionRetries {
		delete(s.Retries, node.ID)
		if e.handoffMessage != "" {
			r.emit(node.ID, flow.Render(e.handoffMessage, s.Context))
		}
		s.Reason = domain.ReasonRetriesExhausted
		s.Detail = fmt.Sprintf("%d unmatched inputs at %s", e.decisionRetries, node.ID)
		r.halt(domain.StatusHandedOff)
		return
	}
	e.prompt(r, node, true)
	r.halt(domain.StatusAwaitingInput)
}

// prompt emits the decision content, optionally listing the choices.
func (e *Engine) prompt(r *run, node domain.FlowNode, withChoices bool) {
	text := flow.Render(node.Content, r.session.Context)
	if withChoices {
		text = choicesPrompt(text, node.Next.Branches())
	}
	r.emit(node.ID, text)
}

// applyResult merges action variables and resolves the outgoing transition.
func (e *Engine) applyResult(r *run, node domain.FlowNode, result domain.ActionResult) (string, bool) {
	s := r.session
	for k, v := range result.Variables {
		s.Context[k] = v
	}

	switch node.Next.Kind() {
	case domain.TransitionDirect:
		return node.Next.Target(), true
	case domain.TransitionBranching:
		if target, ok := node.Next.Lookup(result.Outcome); ok {
			return target, true
		}
		if target, ok := node.Next.Lookup(domain.WildcardBranch); ok {
			return target, true
		}
	}
	r.fail(domain.ReasonActionProviderError, fmt.Sprintf("action %s: unmatched outcome %q", node.Content, result.Outcome))
	return "", false
}

func (e *Engine) enter(ctx context.Context, s *domain.Session, node domain.FlowNode) {
	s.Visit(node.ID, e.historyLimit)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			Timestamp:      e.now(),
			ConversationID: s.ConversationID,
			NodeID:         node.ID,
			NodeType:       node.Type,
		})
	}
}

func (e *Engine) emitStatus(ctx context.Context, s *domain.Session, from domain.Status) {
	e.logger.Info("session status changed",
		"conversation_id", s.ConversationID,
		"from", from,
		"to", s.Status,
		"reason", s.Reason,
	)
	if e.hooks.OnStatusChange != nil {
		e.hooks.OnStatusChange(ctx, &domain.StatusEvent{
			Timestamp:      e.now(),
			ConversationID: s.ConversationID,
			From:           from,
			To:             s.Status,
			Reason:         s.Reason,
		})
	}
}
