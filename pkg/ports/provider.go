package ports

import (
	"context"
	"errors"

	"github.com/aretw0/switchboard/pkg/domain"
)

// ErrDeferred is returned by an ActionProvider that accepted the request
// but will deliver the outcome later as an ActionCallback event.
var ErrDeferred = errors.New("action result deferred")

// ErrUnknownAction is returned by providers that do not implement an action.
var ErrUnknownAction = errors.New("unknown action")

// ActionProvider performs the side-effecting operation named by an action node.
//
// The caller bounds every invocation with a deadline on ctx; providers
// should honor it, and the engine abandons calls that outlive it.
type ActionProvider interface {
	Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error)
}

// ActionFunc adapts a plain function to the ActionProvider interface.
type ActionFunc func(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error)

// Invoke calls f.
func (f ActionFunc) Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error) {
	return f(ctx, action, vars)
}
