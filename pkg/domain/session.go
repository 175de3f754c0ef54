package domain

import "time"

// Status defines the lifecycle position of a conversation session.
type Status string

const (
	StatusRunning       Status = "running"        // A step is being evaluated
	StatusAwaitingInput Status = "awaiting-input" // Suspended until the next inbound event
	StatusCompleted     Status = "completed"      // An end node was reached
	StatusHandedOff     Status = "handed-off"     // Control passed to a human agent
	StatusFailed        Status = "failed"         // A runtime transition error ended the session
)

// Terminal reports whether no further step can change the session.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusHandedOff || s == StatusFailed
}

// FailureReason explains why a session left the happy path.
type FailureReason string

const (
	ReasonNone                FailureReason = ""
	ReasonStepBudgetExceeded  FailureReason = "StepBudgetExceeded"
	ReasonActionProviderError FailureReason = "ActionProviderError"
	ReasonRetriesExhausted    FailureReason = "DecisionRetriesExhausted"
	ReasonFlowUnavailable     FailureReason = "FlowUnavailable"
	ReasonClosed              FailureReason = "Closed"
)

// Session represents the live runtime state of one conversation.
type Session struct {
	// ConversationID maps 1:1 to a contact of the surrounding console.
	ConversationID string `json:"conversation_id"`

	FlowID      string `json:"flow_id"`
	FlowVersion int    `json:"flow_version"`

	// CurrentNodeID is the identifier of the node to evaluate next.
	CurrentNodeID string `json:"current_node_id"`

	// Context holds the variables used for template substitution.
	Context map[string]string `json:"context"`

	// History is a bounded trail of visited node ids (oldest first).
	History []string `json:"history"`

	Status Status        `json:"status"`
	Reason FailureReason `json:"reason,omitempty"`
	Detail string        `json:"detail,omitempty"`

	// Step counts persisted steps. Stores use it as the optimistic
	// concurrency token: a save is accepted only if the stored counter
	// is exactly Step-1.
	Step uint64 `json:"step"`

	// Retries counts consecutive unmatched inputs per decision node.
	Retries map[string]int `json:"retries,omitempty"`

	// PendingAction is the action node waiting for an ActionCallback.
	PendingAction string `json:"pending_action,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a session bound to a flow version, positioned at startNodeID.
func NewSession(conversationID, flowID string, flowVersion int, startNodeID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ConversationID: conversationID,
		FlowID:         flowID,
		FlowVersion:    flowVersion,
		CurrentNodeID:  startNodeID,
		Context:        make(map[string]string),
		History:        []string{},
		Status:         StatusRunning,
		Retries:        make(map[string]int),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := *s
	next.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		next.Context[k] = v
	}
	next.History = append([]string(nil), s.History...)
	next.Retries = make(map[string]int, len(s.Retries))
	for k, v := range s.Retries {
		next.Retries[k] = v
	}
	return &next
}

// Visit appends a node id to the history, dropping the oldest entries
// beyond limit. A limit <= 0 keeps the history unbounded.
func (s *Session) Visit(nodeID string, limit int) {
	s.History = append(s.History, nodeID)
	if limit > 0 && len(s.History) > limit {
		s.History = append([]string(nil), s.History[len(s.History)-limit:]...)
	}
}
