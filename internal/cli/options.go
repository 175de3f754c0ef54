package cli

import (
	"time"
)

// EncryptionKeyEnv holds the session encryption key (32 bytes, hex or base64).
const EncryptionKeyEnv = "SWITCHBOARD_ENCRYPTION_KEY"

// EngineOptions contains the configuration shared by every command that
// drives conversations.
type EngineOptions struct {
	FlowsPath string
	Loam      bool
	Activate  string

	ActionsPath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration
	LockTTL       time.Duration

	StepBudget      int
	DecisionRetries int
	ActionRetries   int
	ActionTimeout   time.Duration
	HandoffMessage  string

	MaskVars      []string
	EncryptionKey string
}

// DefaultEngineOptions mirrors the engine defaults.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		FlowsPath:       "flows",
		ActionsPath:     "actions.yaml",
		SessionTTL:      24 * time.Hour,
		StepBudget:      50,
		DecisionRetries: 3,
		ActionTimeout:   10 * time.Second,
	}
}

// ChatOptions configures an interactive terminal conversation.
type ChatOptions struct {
	ConversationID string
	Variables      map[string]string
	JSON           bool
	Markdown       bool
	Color          bool
	Banner         bool
	IdleTimeout    time.Duration
}

// ServeOptions configures the HTTP (and optionally MCP) server.
type ServeOptions struct {
	Addr        string
	MCPAddr     string
	MCPBaseURL  string
	Watch       bool
	MaxBodySize int64
}
