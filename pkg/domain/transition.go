package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WildcardBranch is the reserved outcome label matched when an action
// outcome has no branch of its own.
const WildcardBranch = "*"

// TransitionKind discriminates the Transition union.
type TransitionKind int

const (
	// TransitionNone has no successor. Only valid for end nodes.
	TransitionNone TransitionKind = iota
	// TransitionDirect always moves to a single target.
	TransitionDirect
	// TransitionBranching selects a target by label.
	TransitionBranching
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionDirect:
		return "direct"
	case TransitionBranching:
		return "branching"
	default:
		return "none"
	}
}

// Branch is one label -> target entry of a branching transition.
type Branch struct {
	Label  string `json:"label"`
	Target string `json:"target"`
}

// Transition is the rule determining which node follows the current one.
// It is a tagged union: construct it with Direct, Branching or None.
// The zero value is None.
type Transition struct {
	kind     TransitionKind
	target   string
	branches []Branch
}

// Direct builds a transition that always moves to target.
func Direct(target string) Transition {
	return Transition{kind: TransitionDirect, target: target}
}

// Branching builds a label -> target transition. Declaration order is kept
// so prompts can list options the way the author wrote them.
func Branching(branches ...Branch) Transition {
	b := make([]Branch, len(branches))
	copy(b, branches)
	return Transition{kind: TransitionBranching, branches: b}
}

// None builds an empty transition.
func None() Transition {
	return Transition{}
}

// Kind returns the variant of the union.
func (t Transition) Kind() TransitionKind { return t.kind }

// Target returns the target of a Direct transition.
func (t Transition) Target() string { return t.target }

// Branches returns a copy of the branches of a Branching transition.
func (t Transition) Branches() []Branch {
	out := make([]Branch, len(t.branches))
	copy(out, t.branches)
	return out
}

// Labels returns the branch labels in declaration order.
func (t Transition) Labels() []string {
	labels := make([]string, len(t.branches))
	for i, b := range t.branches {
		labels[i] = b.Label
	}
	return labels
}

// Lookup finds the target registered for an exact label.
func (t Transition) Lookup(label string) (string, bool) {
	for _, b := range t.branches {
		if b.Label == label {
			return b.Target, true
		}
	}
	return "", false
}

// Targets lists every node id this transition can lead to.
func (t Transition) Targets() []string {
	switch t.kind {
	case TransitionDirect:
		return []string{t.target}
	case TransitionBranching:
		targets := make([]string, len(t.branches))
		for i, b := range t.branches {
			targets[i] = b.Target
		}
		return targets
	}
	return nil
}

func (t Transition) clone() Transition {
	out := t
	if t.branches != nil {
		out.branches = t.Branches()
	}
	return out
}

// MarshalJSON encodes Direct as a string, Branching as an object (in
// declaration order) and None as null.
func (t Transition) MarshalJSON() ([]byte, error) {
	switch t.kind {
	case TransitionDirect:
		return json.Marshal(t.target)
	case TransitionBranching:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, b := range t.branches {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(b.Label)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(b.Target)
			if err != nil {
				return nil, err
			}
			buf.Write(k)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (t *Transition) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = None()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var target string
		if err := json.Unmarshal(trimmed, &target); err != nil {
			return err
		}
		*t = Direct(target)
		return nil
	case '{':
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		if _, err := dec.Token(); err != nil {
			return err
		}
		var branches []Branch
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			label, ok := tok.(string)
			if !ok {
				return fmt.Errorf("transition: unexpected key %v", tok)
			}
			var target string
			if err := dec.Decode(&target); err != nil {
				return fmt.Errorf("transition: branch %q: %w", label, err)
			}
			branches = append(branches, Branch{Label: label, Target: target})
		}
		*t = Branching(branches...)
		return nil
	}
	return fmt.Errorf("transition: expected string, object or null, got %s", string(trimmed))
}
