package dsl

import "github.com/aretw0/switchboard/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node     domain.FlowNode
	branches []domain.Branch
	builder  *Builder
}

// Start marks the node as the flow entry point.
func (n *NodeBuilder) Start() *NodeBuilder {
	n.node.Type = domain.NodeStart
	return n
}

// Message sets the template of the node and marks it as a message node.
func (n *NodeBuilder) Message(template string) *NodeBuilder {
	n.node.Type = domain.NodeMessage
	n.node.Content = template
	return n
}

// Decision sets the prompt template of the node and marks it as a decision node.
func (n *NodeBuilder) Decision(template string) *NodeBuilder {
	n.node.Type = domain.NodeDecision
	n.node.Content = template
	return n
}

// Action names the provider operation to invoke and marks it as an action node.
func (n *NodeBuilder) Action(name string) *NodeBuilder {
	n.node.Type = domain.NodeAction
	n.node.Content = name
	return n
}

// End marks the node as a terminal node (end of the flow).
func (n *NodeBuilder) End() *NodeBuilder {
	n.node.Type = domain.NodeEnd
	n.node.Next = domain.None()
	n.branches = nil
	return n
}

// Go adds an unconditional transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.node.Next = domain.Direct(target)
	n.branches = nil
	return n
}

// Branch adds a labelled transition. For decisions the label is matched
// against user input, for actions against the provider outcome.
func (n *NodeBuilder) Branch(label, target string) *NodeBuilder {
	n.branches = append(n.branches, domain.Branch{Label: label, Target: target})
	n.node.Next = domain.Branching(n.branches...)
	return n
}

// Otherwise adds the wildcard branch taken by unmatched action outcomes.
func (n *NodeBuilder) Otherwise(target string) *NodeBuilder {
	return n.Branch(domain.WildcardBranch, target)
}

// At records the editor position of the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = &domain.Position{X: x, Y: y}
	return n
}

// Add continues building with another node.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}

// Build returns the underlying domain.FlowNode.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.FlowNode {
	return n.node.Clone()
}
