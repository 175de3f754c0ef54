package flow

import "regexp"

// placeholderPattern matches {variableName} placeholders.
var placeholderPattern = regexp.MustCompile(`\{\s*([A-Za-z_][A-Za-z0-9_.\-]*)\s*\}`)

// Render substitutes every {variable} placeholder with its value from vars.
// Missing variables render as the empty string.
func Render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholderPattern.FindStringSubmatch(match)
		return vars[sub[1]]
	})
}

// Placeholders lists the variable names referenced by template, in order of
// first appearance.
func Placeholders(template string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
