package trajectory

import "fmt"

// fieldKind is the expected type of one action input field.
type fieldKind int

const (
	fieldNumber fieldKind = iota
	fieldString
)

// actionShape declares the input contract for one action kind.
type actionShape struct {
	required map[string]fieldKind
	// enum restricts a string field to a fixed value set, keyed by field name.
	enum map[string][]string
}

// actionShapes is the closed set of action kinds. Payload polymorphism is
// resolved here: one shape per kind, checked at load time, never an open map.
var actionShapes = map[string]actionShape{
	"click": {
		required: map[string]fieldKind{"x": fieldNumber, "y": fieldNumber},
	},
	"type": {
		required: map[string]fieldKind{"text": fieldString},
	},
	"key": {
		required: map[string]fieldKind{"key": fieldString},
	},
	"wait": {
		required: map[string]fieldKind{"seconds": fieldNumber},
	},
	"scroll": {
		required: map[string]fieldKind{"direction": fieldString},
		enum:     map[string][]string{"direction": {"up", "down"}},
	},
}

// KnownAction reports whether name is one of the supported action kinds.
func KnownAction(name string) bool {
	_, ok := actionShapes[name]
	return ok
}

// ActionKinds returns the supported action kind names. Order is unspecified.
func ActionKinds() []string {
	kinds := make([]string, 0, len(actionShapes))
	for k := range actionShapes {
		kinds = append(kinds, k)
	}
	return kinds
}

// CoordinateTarget extracts the (x, y) target of a step, if it has one.
// Only resolved (placeholder-free) numeric values qualify; templated
// coordinates resolve after substitution.
func (s Step) CoordinateTarget() (x, y int, ok bool) {
	xv, xok := numericValue(s.Input["x"])
	yv, yok := numericValue(s.Input["y"])
	if !xok || !yok {
		return 0, 0, false
	}
	return int(xv), int(yv), true
}

// validateInput checks a step's input against the declared shape for its
// kind. A string value containing placeholder tokens is accepted for any
// field: its concrete shape is established at substitution time.
func validateInput(step Step, index int) error {
	shape, ok := actionShapes[step.Name]
	if !ok {
		return fmt.Errorf("step %d: unknown action kind %q", index, step.Name)
	}

	for field, kind := range shape.required {
		val, present := step.Input[field]
		if !present {
			return fmt.Errorf("step %d (%s): missing required input %q", index, step.Name, field)
		}

		// Templated values defer shape checking to substitution.
		if s, isStr := val.(string); isStr && HasPlaceholder(s) {
			continue
		}

		switch kind {
		case fieldNumber:
			if _, ok := numericValue(val); !ok {
				return fmt.Errorf("step %d (%s): input %q must be a number, got %T", index, step.Name, field, val)
			}
		case fieldString:
			s, isStr := val.(string)
			if !isStr {
				return fmt.Errorf("step %d (%s): input %q must be a string, got %T", index, step.Name, field, val)
			}
			if allowed, restricted := shape.enum[field]; restricted && !contains(allowed, s) {
				return fmt.Errorf("step %d (%s): input %q must be one of %v, got %q", index, step.Name, field, allowed, s)
			}
		}
	}

	for field := range step.Input {
		if _, declared := shape.required[field]; !declared {
			return fmt.Errorf("step %d (%s): unexpected input %q", index, step.Name, field)
		}
	}

	return nil
}

// numericValue normalizes the numeric encodings JSON decoding can produce.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
