package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/ports"
)

// Func implements one action in-process.
type Func func(ctx context.Context, vars map[string]string) (domain.ActionResult, error)

// Funcs manages in-process actions.
type Funcs struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewFuncs creates an empty function registry.
func NewFuncs() *Funcs {
	return &Funcs{
		funcs: make(map[string]Func),
	}
}

// Register adds an action. An existing action with the same name is replaced.
func (f *Funcs) Register(name string, fn Func) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.funcs[name] = fn
}

// Names lists the registered actions.
func (f *Funcs) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.funcs))
	for name := range f.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up an action by name and runs it.
func (f *Funcs) Invoke(ctx context.Context, action string, vars map[string]string) (domain.ActionResult, error) {
	f.mu.RLock()
	fn, ok := f.funcs[action]
	f.mu.RUnlock()

	if !ok {
		return domain.ActionResult{}, fmt.Errorf("%w: %s", ports.ErrUnknownAction, action)
	}
	return fn(ctx, vars)
}
