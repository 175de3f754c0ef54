package runner

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// IOHandler defines the strategy for talking to the person on the other
// end of a conversation. This allows switching between Text (terminal)
// and JSON (structured) modes.
type IOHandler interface {
	// Output presents the bot's messages, in order.
	Output(ctx context.Context, msgs []domain.OutboundMessage) error

	// Input reads the next user message. It returns ctx.Err() when ctx is
	// done first and io.EOF when the conversation source is exhausted.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (status changes, errors),
	// distinct from flow content.
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms message text before output (e.g. markdown to ANSI).
type ContentRenderer func(string) (string, error)
