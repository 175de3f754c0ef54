package flow

import (
	"github.com/aretw0/switchboard/pkg/domain"
)

// DefaultHandoffAction is the action name treated as a human hand-off path.
const DefaultHandoffAction = "transferToAgent"

type options struct {
	handoffActions map[string]bool
}

// Option configures validation.
type Option func(*options)

// WithHandoffActions sets the action names that count as a hand-off path
// for the NoHandoffPath warning.
func WithHandoffActions(names ...string) Option {
	return func(o *options) {
		o.handoffActions = make(map[string]bool, len(names))
		for _, n := range names {
			o.handoffActions[n] = true
		}
	}
}

// Validate checks a draft definition and returns either an immutable
// Validated flow or a *ValidationError listing every defect found.
// The draft is never modified.
func Validate(draft domain.FlowDefinition, opts ...Option) (*Validated, error) {
	o := &options{handoffActions: map[string]bool{DefaultHandoffAction: true}}
	for _, opt := range opts {
		opt(o)
	}

	def := draft.Clone()
	var defects []Defect

	// 1. Identity and types
	index := make(map[string]int, len(def.Nodes))
	reported := make(map[string]bool)
	var starts []string
	for i, n := range def.Nodes {
		if n.ID == "" {
			defects = append(defects, Defect{Kind: DefectEmptyNodeID})
			continue
		}
		if _, dup := index[n.ID]; dup {
			if !reported[n.ID] {
				defects = append(defects, Defect{Kind: DefectDuplicateNodeID, NodeID: n.ID})
				reported[n.ID] = true
			}
			continue
		}
		index[n.ID] = i
		if !n.Type.Valid() {
			defects = append(defects, Defect{Kind: DefectUnknownNodeType, NodeID: n.ID})
		}
		if n.Type == domain.NodeStart {
			starts = append(starts, n.ID)
		}
	}

	switch {
	case len(starts) == 0:
		defects = append([]Defect{{Kind: DefectMissingStartNode}}, defects...)
	case len(starts) > 1:
		for _, id := range starts[1:] {
			defects = append(defects, Defect{Kind: DefectMultipleStartNodes, NodeID: id})
		}
	}

	// 2. Transitions
	for _, n := range def.Nodes {
		if n.ID == "" {
			continue
		}
		defects = append(defects, checkTransition(n)...)
		for _, target := range n.Next.Targets() {
			if _, ok := index[target]; !ok {
				defects = append(defects, Defect{Kind: DefectDanglingTransition, NodeID: n.ID, Target: target})
			}
		}
	}

	if len(defects) > 0 {
		return nil, &ValidationError{FlowID: def.ID, Defects: defects}
	}

	if def.SchemaVersion == 0 {
		def.SchemaVersion = domain.SchemaVersion
	}
	v := &Validated{
		def:   def,
		index: index,
		start: starts[0],
	}
	v.variables = collectVariables(def)
	v.warnings = analyze(v, o)
	return v, nil
}

func checkTransition(n domain.FlowNode) []Defect {
	var defects []Defect
	kind := n.Next.Kind()

	switch n.Type {
	case domain.NodeEnd:
		if kind != domain.TransitionNone {
			defects = append(defects, Defect{Kind: DefectTerminalHasTransition, NodeID: n.ID})
		}
	case domain.NodeStart, domain.NodeMessage:
		if kind != domain.TransitionDirect {
			defects = append(defects, Defect{Kind: DefectInvalidTransition, NodeID: n.ID})
		}
	case domain.NodeDecision:
		switch {
		case kind == domain.TransitionDirect:
			defects = append(defects, Defect{Kind: DefectInvalidTransition, NodeID: n.ID})
		case len(n.Next.Targets()) == 0:
			defects = append(defects, Defect{Kind: DefectEmptyBranchMap, NodeID: n.ID})
		}
	case domain.NodeAction:
		if n.Content == "" {
			defects = append(defects, Defect{Kind: DefectMissingActionName, NodeID: n.ID})
		}
		switch {
		case kind == domain.TransitionNone:
			defects = append(defects, Defect{Kind: DefectInvalidTransition, NodeID: n.ID})
		case kind == domain.TransitionBranching && len(n.Next.Targets()) == 0:
			defects = append(defects, Defect{Kind: DefectEmptyBranchMap, NodeID: n.ID})
		}
	}

	if kind == domain.TransitionBranching {
		seen := make(map[string]bool)
		for _, label := range n.Next.Labels() {
			if seen[label] {
				defects = append(defects, Defect{Kind: DefectDuplicateBranchLabel, NodeID: n.ID, Label: label})
			}
			seen[label] = true
		}
	}
	return defects
}

func collectVariables(def domain.FlowDefinition) []string {
	var vars []string
	seen := make(map[string]bool)
	for _, n := range def.Nodes {
		if n.Type != domain.NodeMessage && n.Type != domain.NodeDecision {
			continue
		}
		for _, name := range Placeholders(n.Content) {
			if !seen[name] {
				seen[name] = true
				vars = append(vars, name)
			}
		}
	}
	return vars
}

// analyze computes soft warnings on an already structurally valid flow.
func analyze(v *Validated, o *options) []Warning {
	var warnings []Warning

	reachable := make(map[string]bool)
	queue := []string{v.start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		queue = append(queue, v.def.Nodes[v.index[id]].Next.Targets()...)
	}

	// Reverse walk from every end node.
	incoming := make(map[string][]string)
	var ends []string
	for _, n := range v.def.Nodes {
		if n.Type == domain.NodeEnd {
			ends = append(ends, n.ID)
		}
		for _, t := range n.Next.Targets() {
			incoming[t] = append(incoming[t], n.ID)
		}
	}
	terminates := make(map[string]bool)
	queue = ends
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if terminates[id] {
			continue
		}
		terminates[id] = true
		queue = append(queue, incoming[id]...)
	}

	hasDecision, hasHandoff := false, false
	for _, n := range v.def.Nodes {
		if !reachable[n.ID] {
			warnings = append(warnings, Warning{Kind: WarningUnreachableNode, NodeID: n.ID})
			continue
		}
		if !terminates[n.ID] {
			warnings = append(warnings, Warning{Kind: WarningNoTerminalPath, NodeID: n.ID})
		}
		switch n.Type {
		case domain.NodeDecision:
			hasDecision = true
		case domain.NodeAction:
			if o.handoffActions[n.Content] {
				hasHandoff = true
			}
		}
	}
	if hasDecision && !hasHandoff {
		warnings = append(warnings, Warning{Kind: WarningNoHandoffPath})
	}
	return warnings
}
