package flow

import "github.com/aretw0/switchboard/pkg/domain"

// Validated is an immutable, structurally valid flow.
// It can only be produced by Validate.
type Validated struct {
	def       domain.FlowDefinition
	index     map[string]int
	start     string
	variables []string
	warnings  []Warning
}

// ID returns the flow identifier (empty until registered, unless authored).
func (v *Validated) ID() string { return v.def.ID }

// Name returns the human-readable flow name.
func (v *Validated) Name() string { return v.def.Name }

// Description returns the flow description.
func (v *Validated) Description() string { return v.def.Description }

// Version returns the registry version (zero until registered).
func (v *Validated) Version() int { return v.def.Version }

// StartNodeID returns the id of the single start node.
func (v *Validated) StartNodeID() string { return v.start }

// Node returns a copy of the node with the given id.
func (v *Validated) Node(id string) (domain.FlowNode, bool) {
	i, ok := v.index[id]
	if !ok {
		return domain.FlowNode{}, false
	}
	return v.def.Nodes[i].Clone(), true
}

// Len returns the number of nodes.
func (v *Validated) Len() int { return len(v.def.Nodes) }

// Definition returns a deep copy of the underlying graph.
func (v *Validated) Definition() domain.FlowDefinition {
	return v.def.Clone()
}

// Variables lists every {variable} referenced by message and decision templates.
func (v *Validated) Variables() []string {
	return append([]string(nil), v.variables...)
}

// Warnings returns the soft findings of validation.
func (v *Validated) Warnings() []Warning {
	return append([]Warning(nil), v.warnings...)
}

// WithID returns a copy carrying a different flow id.
func (v *Validated) WithID(id string) *Validated {
	out := v.shallow()
	out.def.ID = id
	return out
}

// WithVersion returns a copy stamped with a registry version.
func (v *Validated) WithVersion(version int) *Validated {
	out := v.shallow()
	out.def.Version = version
	return out
}

// shallow copies the wrapper; node data is shared since it is never mutated.
func (v *Validated) shallow() *Validated {
	out := *v
	return &out
}
