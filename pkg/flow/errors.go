package flow

import (
	"errors"
	"fmt"
	"strings"
)

// DefectKind classifies a structural problem in a draft flow.
type DefectKind string

const (
	DefectDuplicateNodeID       DefectKind = "DuplicateNodeId"
	DefectMissingStartNode      DefectKind = "MissingStartNode"
	DefectMultipleStartNodes    DefectKind = "MultipleStartNodes"
	DefectDanglingTransition    DefectKind = "DanglingTransition"
	DefectEmptyBranchMap        DefectKind = "EmptyBranchMap"
	DefectTerminalHasTransition DefectKind = "TerminalNodeHasTransition"
	DefectEmptyNodeID           DefectKind = "EmptyNodeId"
	DefectUnknownNodeType       DefectKind = "UnknownNodeType"
	DefectInvalidTransition     DefectKind = "InvalidTransition"
	DefectMissingActionName     DefectKind = "MissingActionName"
	DefectDuplicateBranchLabel  DefectKind = "DuplicateBranchLabel"
)

// Defect is a single validation failure.
type Defect struct {
	Kind   DefectKind `json:"kind"`
	NodeID string     `json:"node_id,omitempty"`
	Target string     `json:"target,omitempty"`
	Label  string     `json:"label,omitempty"`
}

func (d Defect) Error() string {
	switch d.Kind {
	case DefectMissingStartNode:
		return "flow has no start node"
	case DefectDanglingTransition:
		return fmt.Sprintf("node %q: transition target %q does not exist", d.NodeID, d.Target)
	case DefectDuplicateBranchLabel:
		return fmt.Sprintf("node %q: branch label %q declared more than once", d.NodeID, d.Label)
	case DefectEmptyNodeID:
		return "node without id"
	}
	if d.NodeID != "" {
		return fmt.Sprintf("node %q: %s", d.NodeID, d.Kind)
	}
	return string(d.Kind)
}

// ValidationError aggregates every defect found in one pass.
type ValidationError struct {
	FlowID  string
	Defects []Defect
}

func (e *ValidationError) Error() string {
	if len(e.Defects) == 1 {
		return fmt.Sprintf("flow %q is invalid: %s", e.FlowID, e.Defects[0].Error())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flow %q is invalid: %d defects:\n", e.FlowID, len(e.Defects))
	for i, d := range e.Defects {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, d.Error())
	}
	return b.String()
}

// Defects returns the defect list if err is (or wraps) a ValidationError.
// Otherwise returns nil.
func Defects(err error) []Defect {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Defects
	}
	return nil
}

// WarningKind classifies a soft authoring problem. Warnings never block registration.
type WarningKind string

const (
	WarningUnreachableNode WarningKind = "UnreachableNode"
	WarningNoTerminalPath  WarningKind = "NoTerminalPath"
	WarningNoHandoffPath   WarningKind = "NoHandoffPath"
)

// Warning is a soft validation finding.
type Warning struct {
	Kind   WarningKind `json:"kind"`
	NodeID string      `json:"node_id,omitempty"`
}

func (w Warning) String() string {
	if w.NodeID == "" {
		return string(w.Kind)
	}
	return fmt.Sprintf("node %q: %s", w.NodeID, w.Kind)
}
