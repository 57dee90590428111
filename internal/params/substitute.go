package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/retracehq/retrace/internal/trajectory"
)

// MissingParameterError reports a placeholder with no supplied runtime
// value. Substitution fails before any dispatch, so a run affected by a
// missing parameter has no partial side effects.
type MissingParameterError struct {
	Name  string // placeholder name
	Field string // input field referencing it, if known
}

func (e *MissingParameterError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("missing runtime value for parameter %q (referenced by input %q)", e.Name, e.Field)
	}
	return fmt.Sprintf("missing runtime value for parameter %q", e.Name)
}

// Substitute resolves every placeholder token in the step's input using
// the supplied runtime values. The input step is not modified. A value
// that is exactly one token is replaced by the runtime value verbatim;
// tokens inside larger strings are spliced in textually.
func Substitute(step trajectory.Step, runtime map[string]any) (trajectory.Step, error) {
	out := step.Clone()

	for field, val := range out.Input {
		s, ok := val.(string)
		if !ok || !trajectory.HasPlaceholder(s) {
			continue
		}

		// Full-token values are replaced wholesale, preserving the runtime
		// value's type (a templated coordinate stays numeric).
		if name, full := fullTokenName(s); full {
			rv, present := runtime[name]
			if !present {
				return trajectory.Step{}, &MissingParameterError{Name: name, Field: field}
			}
			out.Input[field] = rv
			continue
		}

		var missing *MissingParameterError
		resolved := trajectory.ReplaceTokens(s, func(name string) (string, bool) {
			rv, present := runtime[name]
			if !present {
				if missing == nil {
					missing = &MissingParameterError{Name: name, Field: field}
				}
				return "", false
			}
			return fmt.Sprintf("%v", rv), true
		})
		if missing != nil {
			return trajectory.Step{}, missing
		}
		out.Input[field] = resolved
	}

	return out, nil
}

// CheckCoverage verifies that runtime supplies a value for every declared
// parameter name. Replay calls this before dispatching anything: a run
// that would fail mid-trajectory on a missing value must fail up front
// instead.
func CheckCoverage(declared map[string]string, runtime map[string]any) error {
	var missing []string
	for name := range declared {
		if _, ok := runtime[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	if len(missing) == 1 {
		return &MissingParameterError{Name: missing[0]}
	}
	return fmt.Errorf("missing runtime values for parameters: %s", strings.Join(missing, ", "))
}

// fullTokenName reports whether s consists of exactly one placeholder
// token, returning its name.
func fullTokenName(s string) (string, bool) {
	names := trajectory.PlaceholderNames(s)
	if len(names) != 1 {
		return "", false
	}
	if s == trajectory.Token(names[0]) {
		return names[0], true
	}
	return "", false
}
