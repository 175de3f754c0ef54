package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/switchboard/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned for input without any flow content.
var ErrEmptyDocument = errors.New("empty flow document")

type document struct {
	ID            string         `yaml:"id"`
	Name          string         `yaml:"name"`
	Description   string         `yaml:"description,omitempty"`
	Active        bool           `yaml:"active,omitempty"`
	Version       int            `yaml:"version,omitempty"`
	SchemaVersion int            `yaml:"schema_version,omitempty"`
	Nodes         []nodeDocument `yaml:"nodes"`
}

type nodeDocument struct {
	ID       string           `yaml:"id"`
	Type     string           `yaml:"type"`
	Content  string           `yaml:"content,omitempty"`
	Position *domain.Position `yaml:"position,omitempty"`
	Next     yaml.Node        `yaml:"next,omitempty"`
}

// Decode parses a YAML (or JSON) flow document into a draft definition.
func Decode(data []byte) (domain.FlowDefinition, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.FlowDefinition{}, ErrEmptyDocument
		}
		return domain.FlowDefinition{}, fmt.Errorf("decode flow: %w", err)
	}
	if doc.SchemaVersion > domain.SchemaVersion {
		return domain.FlowDefinition{}, fmt.Errorf("unsupported schema version %d", doc.SchemaVersion)
	}

	def := domain.FlowDefinition{
		ID:            doc.ID,
		Name:          doc.Name,
		Description:   doc.Description,
		Active:        doc.Active,
		SchemaVersion: domain.SchemaVersion,
		Nodes:         make([]domain.FlowNode, 0, len(doc.Nodes)),
	}
	for _, n := range doc.Nodes {
		next, err := decodeTransition(&n.Next)
		if err != nil {
			return domain.FlowDefinition{}, fmt.Errorf("node %q: %w", n.ID, err)
		}
		def.Nodes = append(def.Nodes, domain.FlowNode{
			ID:       n.ID,
			Type:     domain.NodeType(n.Type),
			Content:  n.Content,
			Next:     next,
			Position: n.Position,
		})
	}
	return def, nil
}

func decodeTransition(n *yaml.Node) (domain.Transition, error) {
	switch n.Kind {
	case 0:
		return domain.None(), nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return domain.None(), nil
		}
		return domain.Direct(n.Value), nil
	case yaml.MappingNode:
		branches := make([]domain.Branch, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if v.Kind != yaml.ScalarNode {
				return domain.Transition{}, fmt.Errorf("line %d: branch %q must map to a node id", v.Line, k.Value)
			}
			branches = append(branches, domain.Branch{Label: k.Value, Target: v.Value})
		}
		return domain.Branching(branches...), nil
	}
	return domain.Transition{}, fmt.Errorf("line %d: next must be a node id or a mapping of labels to node ids", n.Line)
}

// Encode renders a definition in the same YAML shape Decode accepts.
func Encode(def domain.FlowDefinition) ([]byte, error) {
	doc := document{
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Active:      def.Active,
		Nodes:       make([]nodeDocument, 0, len(def.Nodes)),
	}
	for _, n := range def.Nodes {
		doc.Nodes = append(doc.Nodes, nodeDocument{
			ID:       n.ID,
			Type:     string(n.Type),
			Content:  n.Content,
			Position: n.Position,
			Next:     encodeTransition(n.Next),
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeTransition(t domain.Transition) yaml.Node {
	switch t.Kind() {
	case domain.TransitionDirect:
		return yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: t.Target()}
	case domain.TransitionBranching:
		out := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, b := range t.Branches() {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: b.Label},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: b.Target},
			)
		}
		return out
	}
	return yaml.Node{}
}

// ReadFile decodes the flow stored at path.
func ReadFile(path string) (domain.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.FlowDefinition{}, err
	}
	def, err := Decode(data)
	if err != nil {
		return domain.FlowDefinition{}, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}
