package harness

import (
	"context"
	"fmt"
	"image"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/testutil"
	"github.com/retracehq/retrace/internal/trajectory"
)

// BuildFrame renders a synthetic frame from its spec. The same spec
// always produces the same pixels.
func BuildFrame(spec FrameSpec) (image.Image, error) {
	w, h := spec.Width, spec.Height
	if w == 0 {
		w = 640
	}
	if h == 0 {
		h = 480
	}

	var img image.Image
	switch spec.Kind {
	case "", "uniform":
		level := spec.Level
		if level == 0 {
			level = 128
		}
		img = testutil.UniformImage(w, h, uint8(level))
	case "gradient":
		img = testutil.GradientImage(w, h)
	case "checker":
		cell := spec.Cell
		if cell == 0 {
			cell = 32
		}
		img = testutil.CheckerImage(w, h, cell)
	case "noise":
		img = testutil.NoiseImage(w, h, uint64(spec.Seed))
	default:
		return nil, fmt.Errorf("unknown frame kind %q", spec.Kind)
	}

	if spec.Invert {
		img = testutil.Invert(img)
	}
	if spec.PerturbRows > 0 {
		img = testutil.PerturbRows(img, spec.PerturbRows)
	}
	return img, nil
}

// ScriptedExecutor serves a fixed frame per step and records what was
// dispatched. It implements the engine's Executor contract.
type ScriptedExecutor struct {
	// Frames are served positionally, one per CaptureState call.
	Frames []image.Image

	// FailDispatchAt rejects the dispatch with this index. Negative
	// disables.
	FailDispatchAt int

	// Dispatched records every accepted action in order.
	Dispatched []DispatchedAction

	captures int
}

// DispatchedAction is one action the executor accepted.
type DispatchedAction struct {
	Kind  string
	Input map[string]any
}

// NewScriptedExecutor builds an executor over the given frames.
func NewScriptedExecutor(frames []image.Image) *ScriptedExecutor {
	return &ScriptedExecutor{Frames: frames, FailDispatchAt: -1}
}

// Dispatch records the action, or fails if scripted to.
func (e *ScriptedExecutor) Dispatch(_ context.Context, kind string, input map[string]any) error {
	if e.FailDispatchAt == len(e.Dispatched) {
		return fmt.Errorf("scripted dispatch failure at step %d", e.FailDispatchAt)
	}
	e.Dispatched = append(e.Dispatched, DispatchedAction{Kind: kind, Input: input})
	return nil
}

// CaptureState returns the next scripted frame.
func (e *ScriptedExecutor) CaptureState(context.Context) (image.Image, error) {
	if e.captures >= len(e.Frames) {
		return nil, fmt.Errorf("no frame scripted for capture %d", e.captures)
	}
	frame := e.Frames[e.captures]
	e.captures++
	return frame, nil
}

// scriptedClassifier replays the scenario's parameter specs. It keys on
// the recording order, so it must see steps in the order they were
// recorded.
type scriptedClassifier struct {
	specs []ParameterSpec
	step  int
}

func (c *scriptedClassifier) Classify(_ context.Context, _ string, _ trajectory.Step) ([]params.Detection, error) {
	index := c.step
	c.step++

	var out []params.Detection
	for _, spec := range c.specs {
		if spec.Step != index {
			continue
		}
		out = append(out, params.Detection{
			Field:       spec.Field,
			Value:       spec.Value,
			Name:        spec.Name,
			Description: spec.Description,
		})
	}
	return out, nil
}
