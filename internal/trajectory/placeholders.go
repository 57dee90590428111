package trajectory

import (
	"regexp"
	"sort"
)

// placeholderPattern matches {{name}} tokens. Names are identifier-like:
// a letter or underscore followed by letters, digits, or underscores.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// HasPlaceholder reports whether s contains at least one {{name}} token.
func HasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}

// PlaceholderNames returns the distinct placeholder names referenced in s,
// in order of first appearance.
func PlaceholderNames(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Token renders the placeholder token for name.
func Token(name string) string {
	return "{{" + name + "}}"
}

// ReplaceTokens substitutes each {{name}} token in s using resolve.
// Tokens whose name is not resolvable are left intact; callers that
// require full coverage must check beforehand.
func ReplaceTokens(s string, resolve func(name string) (string, bool)) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(tok string) string {
		name := tok[2 : len(tok)-2]
		if v, ok := resolve(name); ok {
			return v
		}
		return tok
	})
}

// ReferencedParameters collects every placeholder name referenced by any
// string input value in the trajectory, sorted for deterministic reporting.
func (d *Document) ReferencedParameters() []string {
	seen := map[string]bool{}
	for _, step := range d.Trajectory {
		for _, v := range step.Input {
			s, ok := v.(string)
			if !ok {
				continue
			}
			for _, name := range PlaceholderNames(s) {
				seen[name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
