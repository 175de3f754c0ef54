package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Router dispatches actions by name. Unrouted actions go to the fallback
// providers in order, skipping those that answer ErrUnknownAction.
type Router struct {
	mu       sync.RWMutex
	routes   map[string]ports.ActionProvider
	fallback []ports.ActionProvider
}

// NewRouter creates a router with optional fallback providers.
func NewRouter(fallback ...ports.ActionProvider) *Router {
	return &Router{
		routes:   make(map[string]ports.ActionProvider),
		fallback: fallback,
	}
}

// Route sends action to provider.
func (r *Router) Route(action string, provider ports.ActionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[action] = provider
}

// Fallback appends a provider tried for unrouted actions.
func (r *Router) Fallback(provider ports.ActionProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = append(r.fallback, provider)
}

// Invoke runs the action on its provider.
func (r *Router) Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error) {
	r.mu.RLock()
	provider, ok := r.routes[action]
	fallback := r.fallback
	r.mu.RUnlock()

	if ok {
		return provider.Invoke(ctx, action, vars)
	}
	for _, p := range fallback {
		res, err := p.Invoke(ctx, action, vars)
		if errors.Is(err, ports.ErrUnknownAction) {
			continue
		}
		return res, err
	}
	return domain.ActionResult{}, fmt.Errorf("%w: %s", ports.ErrUnknownAction, action)
}
