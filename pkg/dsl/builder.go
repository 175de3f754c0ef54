package dsl

import (
	"github.com/aretw0/switchboard/pkg/domain"
	"github.com/aretw0/switchboard/pkg/flow"
)

// Builder manages the flow graph construction.
type Builder struct {
	def   domain.FlowDefinition
	nodes map[string]*NodeBuilder
	order []string
}

// New creates a new flow builder for the given flow id.
func New(id string) *Builder {
	return &Builder{
		def: domain.FlowDefinition{
			ID:            id,
			SchemaVersion: domain.SchemaVersion,
		},
		nodes: make(map[string]*NodeBuilder),
	}
}

// Name sets the human-readable flow name.
func (b *Builder) Name(name string) *Builder {
	b.def.Name = name
	return b
}

// Description sets the flow description.
func (b *Builder) Description(desc string) *Builder {
	b.def.Description = desc
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.FlowNode{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build returns the draft definition, with nodes in insertion order.
func (b *Builder) Build() domain.FlowDefinition {
	def := b.def
	def.Nodes = make([]domain.FlowNode, 0, len(b.order))
	for _, id := range b.order {
		def.Nodes = append(def.Nodes, b.nodes[id].Build())
	}
	return def
}

// Validate builds the draft and runs it through flow.Validate.
func (b *Builder) Validate(opts ...flow.Option) (*flow.Validated, error) {
	return flow.Validate(b.Build(), opts...)
}

// MustValidate is like Validate but panics on defects. Intended for tests
// and statically known flows.
func (b *Builder) MustValidate(opts ...flow.Option) *flow.Validated {
	v, err := b.Validate(opts...)
	if err != nil {
		panic(err)
	}
	return v
}
