package params

import (
	"context"
	"fmt"
	"strings"

	"github.com/retracehq/retrace/internal/trajectory"
)

// Detection names one dynamic value inside a step's input.
type Detection struct {
	// Field is the input key holding the dynamic value.
	Field string

	// Value is the dynamic substring within the field's string value.
	// Empty means the entire value is dynamic, whatever its type.
	Value string

	// Name is the proposed placeholder name. De-conflicted on collision.
	Name string

	// Description documents what the value represents, for the document's
	// cache_parameters map.
	Description string
}

// Classifier decides which recorded input values are dynamic. The decision
// process is entirely the classifier's: this package never inspects
// semantics, only performs the substitutions the classifier asks for.
type Classifier interface {
	Classify(ctx context.Context, goal string, step trajectory.Step) ([]Detection, error)
}

// NopClassifier treats every recorded value as structural. Documents
// recorded with it have no parameters.
type NopClassifier struct{}

// Classify returns no detections.
func (NopClassifier) Classify(context.Context, string, trajectory.Step) ([]Detection, error) {
	return nil, nil
}

// Engine performs placeholder extraction and substitution.
type Engine struct {
	classifier Classifier
}

// NewEngine creates an engine around the given classifier. A nil
// classifier disables extraction (every value treated as structural).
func NewEngine(c Classifier) *Engine {
	if c == nil {
		c = NopClassifier{}
	}
	return &Engine{classifier: c}
}

// Extract templatizes one recorded step. Detected dynamic values are
// replaced with placeholder tokens; the returned map holds the newly
// created placeholder names with their descriptions. existing carries the
// names already used in the document so re-extraction cannot collide.
// The input step is not modified.
func (e *Engine) Extract(ctx context.Context, goal string, step trajectory.Step, existing map[string]string) (trajectory.Step, map[string]string, error) {
	detections, err := e.classifier.Classify(ctx, goal, step)
	if err != nil {
		return trajectory.Step{}, nil, fmt.Errorf("classify step: %w", err)
	}

	out := step.Clone()
	created := map[string]string{}
	if len(detections) == 0 {
		return out, created, nil
	}

	taken := func(name string) bool {
		if _, ok := existing[name]; ok {
			return true
		}
		_, ok := created[name]
		return ok
	}

	for _, det := range detections {
		val, present := out.Input[det.Field]
		if !present {
			return trajectory.Step{}, nil, fmt.Errorf("classifier referenced unknown input %q on action %q", det.Field, step.Name)
		}

		name := uniqueName(det.Name, taken)
		token := trajectory.Token(name)

		if det.Value == "" {
			// The whole value is dynamic, regardless of its type.
			out.Input[det.Field] = token
		} else {
			s, ok := val.(string)
			if !ok {
				return trajectory.Step{}, nil, fmt.Errorf("classifier matched substring in non-string input %q (%T)", det.Field, val)
			}
			if !strings.Contains(s, det.Value) {
				return trajectory.Step{}, nil, fmt.Errorf("classifier value %q not found in input %q", det.Value, det.Field)
			}
			out.Input[det.Field] = strings.ReplaceAll(s, det.Value, token)
		}

		created[name] = det.Description
	}

	return out, created, nil
}

// uniqueName returns base if free, otherwise base_2, base_3, ...
func uniqueName(base string, taken func(string) bool) string {
	if base == "" {
		base = "param"
	}
	if !taken(base) {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", base, i)
		if !taken(candidate) {
			return candidate
		}
	}
}
