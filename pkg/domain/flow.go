package domain

import "fmt"

// SchemaVersion is the current version of the flow definition format.
const SchemaVersion = 1

// NodeType defines the control flow behavior of a node.
type NodeType string

const (
	// NodeStart is the single entry point of a flow. It advances silently.
	NodeStart NodeType = "start"
	// NodeMessage renders its content and continues (soft step).
	NodeMessage NodeType = "message"
	// NodeDecision waits for user input and branches on it (hard step).
	NodeDecision NodeType = "decision"
	// NodeAction invokes an external action provider named by its content.
	NodeAction NodeType = "action"
	// NodeEnd completes the conversation.
	NodeEnd NodeType = "end"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeStart, NodeMessage, NodeDecision, NodeAction, NodeEnd:
		return true
	}
	return false
}

// Position is editor layout metadata. The engine never reads it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// FlowNode represents a single step in a flow.
type FlowNode struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`

	// Content is a message template for message/decision nodes,
	// or the action provider name for action nodes.
	Content string `json:"content"`

	Next     Transition `json:"next"`
	Position *Position  `json:"position,omitempty"`
}

// FlowDefinition is the authored graph describing a chatbot script.
// Definitions are treated as values: edits produce a new definition
// (and a new registry version) instead of mutating one in place.
type FlowDefinition struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Active        bool       `json:"active"`
	Version       int        `json:"version,omitempty"`
	SchemaVersion int        `json:"schema_version"`
	Nodes         []FlowNode `json:"nodes"`
}

// Node looks up a node by id with a linear scan.
// Validated flows index their nodes; this is meant for authoring code.
func (d FlowDefinition) Node(id string) (FlowNode, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return FlowNode{}, false
}

// Clone returns a deep copy of the definition.
func (d FlowDefinition) Clone() FlowDefinition {
	out := d
	out.Nodes = make([]FlowNode, len(d.Nodes))
	for i, n := range d.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Clone returns a deep copy of the node.
func (n FlowNode) Clone() FlowNode {
	out := n
	out.Next = n.Next.clone()
	if n.Position != nil {
		p := *n.Position
		out.Position = &p
	}
	return out
}

func (n FlowNode) String() string {
	return fmt.Sprintf("%s(%s)", n.Type, n.ID)
}
