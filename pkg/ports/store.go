package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// SessionStore defines the interface for persisting conversation sessions.
// At most one non-terminal session exists per conversation.
type SessionStore interface {
	// Create persists a brand-new session (its Step must be zero).
	// Returns domain.ErrAlreadyRunning if a non-terminal session exists for
	// the conversation. A terminal session is replaced.
	Create(ctx context.Context, session *domain.Session) error

	// Load retrieves the session of a conversation.
	// Returns domain.ErrSessionNotFound if the conversation has none.
	Load(ctx context.Context, conversationID string) (*domain.Session, error)

	// Save persists an advanced session. The write is accepted only if the
	// stored step counter equals session.Step-1, otherwise it is rejected
	// with domain.ErrStaleWrite.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes the session of a conversation.
	Delete(ctx context.Context, conversationID string) error

	// List returns the conversation ids with a stored session.
	List(ctx context.Context) ([]string, error)
}
