package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/retracehq/retrace/internal/trajectory"
)

// Scenario defines one conformance scenario: a recorded run plus the
// replay cases to check against it.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden
	// file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Goal is the natural-language goal the recording was driven by.
	Goal string `yaml:"goal"`

	// Method is the visual verification method. Defaults to "ahash".
	Method string `yaml:"method,omitempty"`

	// RegionSize is the crop side length around coordinate targets.
	// Defaults to 100.
	RegionSize int `yaml:"region_size,omitempty"`

	// Threshold is the maximum tolerated Hamming distance. Defaults
	// to 5.
	Threshold int `yaml:"threshold,omitempty"`

	// Record lists the actions of the recorded run. Each step pairs an
	// action with the frame captured after it.
	Record []RecordStep `yaml:"record"`

	// Parameters scripts the classifier: which recorded values become
	// replay parameters.
	Parameters []ParameterSpec `yaml:"parameters,omitempty"`

	// Replays are the replay cases to run against the recorded
	// document.
	Replays []ReplayCase `yaml:"replays,omitempty"`
}

// RecordStep is one recorded action with its post-action frame.
type RecordStep struct {
	Action string         `yaml:"action"`
	Input  map[string]any `yaml:"input"`
	Frame  FrameSpec      `yaml:"frame,omitempty"`
}

// FrameSpec describes a deterministic synthetic frame.
type FrameSpec struct {
	// Kind selects the generator: uniform, gradient, checker, noise.
	// Empty means uniform.
	Kind string `yaml:"kind,omitempty"`

	// Width and Height default to 640x480.
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`

	// Level is the gray level for uniform frames. Defaults to 128.
	Level int `yaml:"level,omitempty"`

	// Cell is the checkerboard cell size. Defaults to 32.
	Cell int `yaml:"cell,omitempty"`

	// Seed drives the noise generator.
	Seed int `yaml:"seed,omitempty"`

	// Invert flips every intensity after generation.
	Invert bool `yaml:"invert,omitempty"`

	// PerturbRows whites out the top N rows after generation.
	PerturbRows int `yaml:"perturb_rows,omitempty"`
}

// ParameterSpec scripts one classifier detection.
type ParameterSpec struct {
	// Step is the zero-based index of the recorded step the value
	// appears in.
	Step int `yaml:"step"`

	// Field is the input key holding the dynamic value.
	Field string `yaml:"field"`

	// Value is the dynamic substring. Empty marks the whole value.
	Value string `yaml:"value,omitempty"`

	// Name is the parameter name.
	Name string `yaml:"name"`

	// Description documents the parameter.
	Description string `yaml:"description,omitempty"`
}

// ReplayCase is one replay of the recorded document.
type ReplayCase struct {
	// Name identifies the case in failure output.
	Name string `yaml:"name"`

	// Params are the runtime parameter values.
	Params map[string]string `yaml:"params,omitempty"`

	// Frames override the frames the executor serves during replay,
	// positionally. Steps beyond the list reuse the recorded frame.
	Frames []ReplayFrame `yaml:"frames,omitempty"`

	// FailDispatchAt makes the executor reject the dispatch with this
	// zero-based index. Negative disables.
	FailDispatchAt *int `yaml:"fail_dispatch_at,omitempty"`

	Expect Expectation `yaml:"expect"`
}

// ReplayFrame overrides one replayed step's captured frame.
type ReplayFrame struct {
	// Step is the zero-based step whose frame is replaced.
	Step int `yaml:"step"`

	Frame FrameSpec `yaml:"frame"`
}

// Expectation declares a replay case's outcome.
type Expectation struct {
	// Outcome is one of: success, validation_failed, dispatch_failed,
	// missing_parameter.
	Outcome string `yaml:"outcome"`

	// Step is the expected failing step index. Ignored for success.
	Step *int `yaml:"step,omitempty"`

	// Dispatched is the expected number of dispatched actions, when it
	// matters. Negative means unchecked.
	Dispatched *int `yaml:"dispatched,omitempty"`
}

// Outcome names for Expectation.Outcome.
const (
	OutcomeSuccess          = "success"
	OutcomeValidationFailed = "validation_failed"
	OutcomeDispatchFailed   = "dispatch_failed"
	OutcomeMissingParameter = "missing_parameter"
)

var validOutcomes = map[string]bool{
	OutcomeSuccess:          true,
	OutcomeValidationFailed: true,
	OutcomeDispatchFailed:   true,
	OutcomeMissingParameter: true,
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are errors so typos surface immediately.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	scenario.applyDefaults()
	if err := scenario.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) applyDefaults() {
	if s.Method == "" {
		s.Method = string(trajectory.MethodAHash)
	}
	if s.RegionSize == 0 {
		s.RegionSize = 100
	}
	if s.Threshold == 0 {
		s.Threshold = 5
	}
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Goal == "" {
		return fmt.Errorf("goal is required")
	}
	if len(s.Record) == 0 {
		return fmt.Errorf("record must list at least one step")
	}
	if !trajectory.ValidVerificationMethods[trajectory.VerificationMethod(s.Method)] {
		return fmt.Errorf("unknown method %q", s.Method)
	}
	for i, step := range s.Record {
		if !trajectory.KnownAction(step.Action) {
			return fmt.Errorf("record step %d: unknown action %q", i, step.Action)
		}
	}
	for i, p := range s.Parameters {
		if p.Step < 0 || p.Step >= len(s.Record) {
			return fmt.Errorf("parameter %d: step %d out of range", i, p.Step)
		}
		if p.Field == "" || p.Name == "" {
			return fmt.Errorf("parameter %d: field and name are required", i)
		}
	}
	for i, r := range s.Replays {
		if r.Name == "" {
			return fmt.Errorf("replay %d: name is required", i)
		}
		if !validOutcomes[r.Expect.Outcome] {
			return fmt.Errorf("replay %q: unknown outcome %q", r.Name, r.Expect.Outcome)
		}
		for _, f := range r.Frames {
			if f.Step < 0 || f.Step >= len(s.Record) {
				return fmt.Errorf("replay %q: frame step %d out of range", r.Name, f.Step)
			}
		}
	}
	return nil
}
