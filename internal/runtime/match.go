package runtime

import (
	"strings"

	"github.com/aretw0/switchboard/pkg/domain"
)

// matchBranch resolves user input against decision labels.
//
// Order: trimmed case-insensitive equality, then a single unambiguous
// label found inside the input, then the "*" branch. A fragment of a
// label never matches, so "s" does not select "Yes".
func matchBranch(input string, branches []domain.Branch) (string, bool) {
	needle := strings.ToLower(strings.TrimSpace(input))

	var wildcard string
	hasWildcard := false
	if needle != "" {
		for _, b := range branches {
			if b.Label == domain.WildcardBranch {
				continue
			}
			if strings.ToLower(strings.TrimSpace(b.Label)) == needle {
				return b.Target, true
			}
		}

		var found []domain.Branch
		for _, b := range branches {
			if b.Label == domain.WildcardBranch {
				continue
			}
			label := strings.ToLower(strings.TrimSpace(b.Label))
			if label == "" {
				continue
			}
			if strings.Contains(needle, label) {
				found = append(found, b)
			}
		}
		if len(found) == 1 {
			return found[0].Target, true
		}
	}

	for _, b := range branches {
		if b.Label == domain.WildcardBranch {
			wildcard, hasWildcard = b.Target, true
		}
	}
	return wildcard, hasWildcard
}

// choicesPrompt appends the selectable labels to a decision prompt.
func choicesPrompt(text string, branches []domain.Branch) string {
	labels := make([]string, 0, len(branches))
	for _, b := range branches {
		if b.Label != domain.WildcardBranch {
			labels = append(labels, b.Label)
		}
	}
	if len(labels) == 0 {
		return text
	}
	return text + "\nPlease choose one of: " + strings.Join(labels, ", ")
}
