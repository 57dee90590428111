package engine

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/trajectory"
)

// fakeExecutor records every dispatched action and serves frames from a
// fixed list, one per CaptureState call.
type fakeExecutor struct {
	dispatched []Action
	frames     []image.Image
	captures   int

	// failDispatchAt aborts the dispatch with this index (-1 disables).
	failDispatchAt int
	captureErr     error
}

func newFakeExecutor(frames ...image.Image) *fakeExecutor {
	return &fakeExecutor{frames: frames, failDispatchAt: -1}
}

func (f *fakeExecutor) Dispatch(_ context.Context, kind string, input map[string]any) error {
	if f.failDispatchAt == len(f.dispatched) {
		return fmt.Errorf("scripted dispatch failure for %s", kind)
	}
	f.dispatched = append(f.dispatched, Action{Kind: kind, Input: input})
	return nil
}

func (f *fakeExecutor) CaptureState(context.Context) (image.Image, error) {
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	if f.captures >= len(f.frames) {
		return nil, fmt.Errorf("no frame scripted for capture %d", f.captures)
	}
	frame := f.frames[f.captures]
	f.captures++
	return frame, nil
}

// scriptedDecider hands out a fixed action sequence then signals done.
type scriptedDecider struct {
	actions []Action
	calls   int
	err     error
}

func (d *scriptedDecider) NextAction(_ context.Context, _ string, _ []StepRecord) (*Action, bool, error) {
	if d.err != nil {
		return nil, false, d.err
	}
	if d.calls >= len(d.actions) {
		return nil, true, nil
	}
	a := d.actions[d.calls]
	d.calls++
	return &a, false, nil
}

// substringClassifier marks any input string containing the target
// substring as dynamic.
type substringClassifier struct {
	target string
	name   string
}

func (c substringClassifier) Classify(_ context.Context, _ string, step trajectory.Step) ([]params.Detection, error) {
	var found []params.Detection
	for field, v := range step.Input {
		s, ok := v.(string)
		if !ok || !strings.Contains(s, c.target) {
			continue
		}
		found = append(found, params.Detection{
			Field:       field,
			Value:       c.target,
			Name:        c.name,
			Description: "scripted detection",
		})
	}
	return found, nil
}
