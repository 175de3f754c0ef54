package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// GraphOverlay contains session state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// Overlay builds a GraphOverlay from a session.
func Overlay(s *domain.Session) *GraphOverlay {
	if s == nil {
		return nil
	}
	return &GraphOverlay{VisitedNodes: s.History, CurrentNode: s.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart for a flow definition.
// Shapes follow node types:
// - Start: ((Circle))
// - Action: [[Subroutine]]
// - Decision: {Rhombus}
// - End: ([Stadium])
// - Message: [Rectangle]
func GenerateMermaid(def domain.FlowDefinition, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range def.Nodes {
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch node.Type {
		case domain.NodeStart:
			opener, closer = "((", "))"
		case domain.NodeAction:
			opener, closer = "[[", "]]"
		case domain.NodeDecision:
			opener, closer = "{", "}"
		case domain.NodeEnd:
			opener, closer = "([", "])"
		}

		label := node.ID
		if node.Type == domain.NodeAction && node.Content != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, escape(node.Content))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		switch node.Next.Kind() {
		case domain.TransitionDirect:
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, sanitizeMermaidID(node.Next.Target())))
		case domain.TransitionBranching:
			for _, b := range node.Next.Branches() {
				arrow := fmt.Sprintf("-- \"%s\" -->", escape(b.Label))
				if b.Label == domain.WildcardBranch {
					arrow = "-. \"otherwise\" .->"
				}
				sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(b.Target)))
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
