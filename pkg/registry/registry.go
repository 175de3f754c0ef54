package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
	"github.com/google/uuid"
)

// Summary describes one registered flow.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     int    `json:"version"`
	Versions    int    `json:"versions"`
	Active      bool   `json:"active"`
}

// snapshot is an immutable view of the registry. It is replaced, never mutated.
type snapshot struct {
	flows  map[string][]*flow.Validated // id -> versions, index = version-1
	order  []string                     // registration order
	active string
}

// Registry holds validated flows and the single active flow id.
// Reads never block: they load the current snapshot. Writers are
// serialized and publish a fresh snapshot with an atomic swap.
type Registry struct {
	mu   sync.Mutex // writer lock
	snap atomic.Pointer[snapshot]
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{}
	r.snap.Store(&snapshot{flows: map[string][]*flow.Validated{}})
	return r
}

// Register stores a validated flow and returns its id and version.
// A flow without id gets a generated one. Registering an existing id
// appends a new version; sessions bound to older versions keep them.
func (r *Registry) Register(v *flow.Validated) (string, int, error) {
	if v == nil {
		return "", 0, domain.ErrNotValidated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snap.Load()
	next := cur.clone()

	id := v.ID()
	if id == "" {
		id = uuid.NewString()
	}
	versions := next.flows[id]
	if versions == nil {
		next.order = append(next.order, id)
	}
	version := len(versions) + 1
	stamped := v.WithID(id).WithVersion(version)

	// Copy so older snapshots never see the append.
	grown := make([]*flow.Validated, 0, version)
	grown = append(grown, versions...)
	next.flows[id] = append(grown, stamped)

	r.snap.Store(next)
	return id, version, nil
}

// Activate makes id the active flow and every other flow inactive in a
// single swap: no reader ever observes two active flows.
func (r *Registry) Activate(id string) error {
	return r.update(func(next *snapshot) error {
		if _, ok := next.flows[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
		}
		next.active = id
		return nil
	})
}

// Deactivate clears the active flag of id. Deactivating an inactive flow
// is a no-op.
func (r *Registry) Deactivate(id string) error {
	return r.update(func(next *snapshot) error {
		if _, ok := next.flows[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
		}
		if next.active == id {
			next.active = ""
		}
		return nil
	})
}

// Delete removes every version of a flow. Sessions still bound to it
// fail with FlowUnavailable on their next event.
func (r *Registry) Delete(id string) error {
	return r.update(func(next *snapshot) error {
		if _, ok := next.flows[id]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
		}
		delete(next.flows, id)
		order := make([]string, 0, len(next.order))
		for _, existing := range next.order {
			if existing != id {
				order = append(order, existing)
			}
		}
		next.order = order
		if next.active == id {
			next.active = ""
		}
		return nil
	})
}

// Get returns a specific version of a flow; version 0 means the latest.
func (r *Registry) Get(id string, version int) (*flow.Validated, error) {
	return r.snap.Load().version(id, version)
}

func (s *snapshot) version(id string, version int) (*flow.Validated, error) {
	versions := s.flows[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	if version == 0 {
		return versions[len(versions)-1], nil
	}
	if version < 0 || version > len(versions) {
		return nil, fmt.Errorf("%w: %s version %d", domain.ErrFlowNotFound, id, version)
	}
	return versions[version-1], nil
}

// Definition returns a copy of a flow version with its Active flag derived
// from the registry.
func (r *Registry) Definition(id string, version int) (domain.FlowDefinition, error) {
	snap := r.snap.Load()
	v, err := snap.version(id, version)
	if err != nil {
		return domain.FlowDefinition{}, err
	}
	def := v.Definition()
	def.Active = snap.active == id
	return def, nil
}

// Active returns the latest version of the active flow.
func (r *Registry) Active() (*flow.Validated, error) {
	snap := r.snap.Load()
	if snap.active == "" {
		return nil, domain.ErrNoActiveFlow
	}
	versions := snap.flows[snap.active]
	return versions[len(versions)-1], nil
}

// IsActive reports whether id is the active flow.
func (r *Registry) IsActive(id string) bool {
	return r.snap.Load().active == id
}

// Versions lists the version numbers of a flow, oldest first.
func (r *Registry) Versions(id string) ([]int, error) {
	versions := r.snap.Load().flows[id]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrFlowNotFound, id)
	}
	out := make([]int, len(versions))
	for i := range versions {
		out[i] = i + 1
	}
	return out, nil
}

// List summarizes all flows in registration order. All entries come from
// one snapshot, so at most one reports Active.
func (r *Registry) List() []Summary {
	snap := r.snap.Load()
	out := make([]Summary, 0, len(snap.order))
	for _, id := range snap.order {
		versions := snap.flows[id]
		latest := versions[len(versions)-1]
		out = append(out, Summary{
			ID:          id,
			Name:        latest.Name(),
			Description: latest.Description(),
			Version:     latest.Version(),
			Versions:    len(versions),
			Active:      snap.active == id,
		})
	}
	return out
}

func (r *Registry) update(fn func(next *snapshot) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snap.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	r.snap.Store(next)
	return nil
}

// clone copies the maps; version slices are shared because they are append-only
// through fresh allocations.
func (s *snapshot) clone() *snapshot {
	flows := make(map[string][]*flow.Validated, len(s.flows))
	for id, versions := range s.flows {
		flows[id] = versions
	}
	return &snapshot{
		flows:  flows,
		order:  append([]string(nil), s.order...),
		active: s.active,
	}
}
