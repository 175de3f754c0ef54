package domain

import "errors"

// ErrSessionNotFound is returned when a conversation has no stored session.
var ErrSessionNotFound = errors.New("session not found")

// ErrAlreadyRunning is returned when creating a session for a conversation
// that already has a non-terminal one.
var ErrAlreadyRunning = errors.New("session already running")

// ErrStaleWrite is returned when a save (or an action callback) is based on
// a session step that has since advanced.
var ErrStaleWrite = errors.New("stale session write")

// ErrFlowNotFound is returned when a flow id or version is unknown.
var ErrFlowNotFound = errors.New("flow not found")

// ErrNoActiveFlow is returned when automation is requested but no flow is active.
var ErrNoActiveFlow = errors.New("no active flow")

// ErrNotValidated is returned when an operation requires a validated flow.
var ErrNotValidated = errors.New("flow not validated")
