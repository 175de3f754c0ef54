package ports

import (
	"context"

	"github.com/aretw0/switchboard/pkg/domain"
)

// FlowSource defines where draft flow definitions are authored.
// Drafts still have to go through validation before registration.
type FlowSource interface {
	// LoadFlow reads the draft definition with the given id.
	LoadFlow(ctx context.Context, id string) (domain.FlowDefinition, error)

	// ListFlows returns the ids of every flow available in the source.
	ListFlows(ctx context.Context) ([]string, error)
}
