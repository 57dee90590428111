package harness

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/retracehq/retrace/internal/cachestore"
	"github.com/retracehq/retrace/internal/engine"
	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/testutil"
	"github.com/retracehq/retrace/internal/trajectory"
)

// recordingEpoch is the fixed timestamp stamped into harness-recorded
// documents, chosen so golden files never churn.
var recordingEpoch = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

// Result holds everything a scenario run produced.
type Result struct {
	// Document is the recorded trajectory.
	Document *trajectory.Document

	// CachePath is where the document was persisted.
	CachePath string

	// Replays holds one outcome per replay case, in scenario order.
	Replays []ReplayOutcome
}

// ReplayOutcome is the observed result of one replay case.
type ReplayOutcome struct {
	Name       string
	Outcome    string
	FailedStep int
	Distance   int
	Dispatched int
	Err        error
}

// Run executes a scenario end to end: record through the real Recorder,
// persist through the real cache store, then replay each case with the
// real Replayer. dir is the cache directory, usually t.TempDir().
func Run(scenario *Scenario, dir string) (*Result, error) {
	ctx := context.Background()

	frames, err := recordFrames(scenario)
	if err != nil {
		return nil, err
	}

	doc, err := record(ctx, scenario, frames)
	if err != nil {
		return nil, fmt.Errorf("recording failed: %w", err)
	}

	path := filepath.Join(dir, trajectory.GoalFileName(scenario.Goal))
	if err := cachestore.Save(path, doc); err != nil {
		return nil, fmt.Errorf("failed to persist document: %w", err)
	}
	loaded, err := cachestore.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted document: %w", err)
	}

	result := &Result{Document: doc, CachePath: path}
	for _, rc := range scenario.Replays {
		outcome, err := replayCase(ctx, loaded, rc, frames)
		if err != nil {
			return nil, fmt.Errorf("replay case %q: %w", rc.Name, err)
		}
		result.Replays = append(result.Replays, outcome)
	}
	return result, nil
}

// recordFrames renders the per-step frames of the recording.
func recordFrames(scenario *Scenario) ([]image.Image, error) {
	frames := make([]image.Image, len(scenario.Record))
	for i, step := range scenario.Record {
		frame, err := BuildFrame(step.Frame)
		if err != nil {
			return nil, fmt.Errorf("record step %d: %w", i, err)
		}
		frames[i] = frame
	}
	return frames, nil
}

func record(ctx context.Context, scenario *Scenario, frames []image.Image) (*trajectory.Document, error) {
	clock := testutil.NewFixedClock(recordingEpoch, time.Second)
	rec, err := engine.NewRecorder(engine.RecorderConfig{
		Goal:      scenario.Goal,
		Method:    trajectory.VerificationMethod(scenario.Method),
		RegionPx:  scenario.RegionSize,
		Threshold: scenario.Threshold,
		Now:       clock.Now,
	}, params.NewEngine(&scriptedClassifier{specs: scenario.Parameters}), nil)
	if err != nil {
		return nil, err
	}

	for i, step := range scenario.Record {
		action := engine.Action{Kind: step.Action, Input: step.Input}
		if err := rec.RecordStep(ctx, action, frames[i]); err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
	}
	return rec.Finalize()
}

func replayCase(ctx context.Context, doc *trajectory.Document, rc ReplayCase, recorded []image.Image) (ReplayOutcome, error) {
	frames := make([]image.Image, len(recorded))
	copy(frames, recorded)
	for _, rf := range rc.Frames {
		frame, err := BuildFrame(rf.Frame)
		if err != nil {
			return ReplayOutcome{}, err
		}
		frames[rf.Step] = frame
	}

	exec := NewScriptedExecutor(frames)
	if rc.FailDispatchAt != nil {
		exec.FailDispatchAt = *rc.FailDispatchAt
	}

	runtime := make(map[string]any, len(rc.Params))
	for name, value := range rc.Params {
		runtime[name] = value
	}

	outcome := ReplayOutcome{Name: rc.Name, Outcome: OutcomeSuccess, FailedStep: -1, Distance: -1}
	_, err := engine.NewReplayer(exec, 0, nil).Replay(ctx, doc, runtime)
	outcome.Dispatched = len(exec.Dispatched)
	if err == nil {
		return outcome, nil
	}

	outcome.Err = err
	var re *engine.RunError
	if !errors.As(err, &re) {
		return ReplayOutcome{}, fmt.Errorf("unexpected error shape: %w", err)
	}
	outcome.FailedStep = re.StepIndex
	outcome.Distance = re.Distance
	switch re.Code {
	case engine.ErrCodeValidationFailed:
		outcome.Outcome = OutcomeValidationFailed
	case engine.ErrCodeDispatchFailed:
		outcome.Outcome = OutcomeDispatchFailed
	case engine.ErrCodeMissingParameter:
		outcome.Outcome = OutcomeMissingParameter
	default:
		return ReplayOutcome{}, fmt.Errorf("unexpected failure code %s: %w", re.Code, err)
	}
	return outcome, nil
}
