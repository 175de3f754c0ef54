package domain

import (
	"context"
	"time"
)

// EventKind defines the category of an inbound event.
type EventKind string

const (
	EventUserText       EventKind = "user_text"
	EventActionCallback EventKind = "action_callback"
	EventTimer          EventKind = "timer"
)

// InboundEvent is what the messaging transport delivers to the engine.
type InboundEvent struct {
	ConversationID string    `json:"conversation_id"`
	Kind           EventKind `json:"kind"`

	// Text is set for EventUserText.
	Text string `json:"text,omitempty"`

	// Outcome and Variables are set for EventActionCallback.
	Outcome   string            `json:"outcome,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`

	// Step optionally pins an ActionCallback to the session step it answers.
	// Zero means "the currently pending action".
	Step uint64 `json:"step,omitempty"`
}

// UserText builds a user message event.
func UserText(conversationID, text string) InboundEvent {
	return InboundEvent{ConversationID: conversationID, Kind: EventUserText, Text: text}
}

// ActionCallback builds an asynchronous action result event.
func ActionCallback(conversationID, outcome string, vars map[string]string) InboundEvent {
	return InboundEvent{ConversationID: conversationID, Kind: EventActionCallback, Outcome: outcome, Variables: vars}
}

// Timer builds a timer event.
func Timer(conversationID string) InboundEvent {
	return InboundEvent{ConversationID: conversationID, Kind: EventTimer}
}

// OutboundMessage is a rendered message for the messaging transport.
type OutboundMessage struct {
	ConversationID string `json:"conversation_id"`
	NodeID         string `json:"node_id"`
	Text           string `json:"text"`
}

// ActionResult is what an action provider returns on success.
type ActionResult struct {
	Outcome   string            `json:"outcome"`
	Variables map[string]string `json:"variables,omitempty"`
}

// StepEvent describes one step of one conversation.
type StepEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	FlowID         string        `json:"flow_id"`
	Kind           EventKind     `json:"kind"`
	Status         Status        `json:"status,omitempty"`
	Reason         FailureReason `json:"reason,omitempty"`
	Visits         int           `json:"visits,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// NodeEvent represents entry into a node.
type NodeEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	NodeID         string    `json:"node_id"`
	NodeType       NodeType  `json:"node_type"`
}

// ActionEvent represents one action provider attempt.
type ActionEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	NodeID         string        `json:"node_id"`
	Action         string        `json:"action"`
	Attempt        int           `json:"attempt"`
	Outcome        string        `json:"outcome,omitempty"`
	Err            error         `json:"-"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// StatusEvent represents a status transition of a session.
type StatusEvent struct {
	Timestamp      time.Time     `json:"timestamp"`
	ConversationID string        `json:"conversation_id"`
	From           Status        `json:"from"`
	To             Status        `json:"to"`
	Reason         FailureReason `json:"reason,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
// Every hook is optional.
type LifecycleHooks struct {
	OnStepStart    func(context.Context, *StepEvent)
	OnStepEnd      func(context.Context, *StepEvent)
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnStatusChange func(context.Context, *StatusEvent)
}

// MergeHooks fans every callback out to all given hook sets, in order.
func MergeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStepStart != nil {
					h.OnStepStart(ctx, e)
				}
			}
		},
		OnStepEnd: func(ctx context.Context, e *StepEvent) {
			for _, h := range all {
				if h.OnStepEnd != nil {
					h.OnStepEnd(ctx, e)
				}
			}
		},
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnActionCall: func(ctx context.Context, e *ActionEvent) {
			for _, h := range all {
				if h.OnActionCall != nil {
					h.OnActionCall(ctx, e)
				}
			}
		},
		OnActionReturn: func(ctx context.Context, e *ActionEvent) {
			for _, h := range all {
				if h.OnActionReturn != nil {
					h.OnActionReturn(ctx, e)
				}
			}
		},
		OnStatusChange: func(ctx context.Context, e *StatusEvent) {
			for _, h := range all {
				if h.OnStatusChange != nil {
					h.OnStatusChange(ctx, e)
				}
			}
		},
	}
}
