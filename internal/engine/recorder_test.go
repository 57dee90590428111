package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/testutil"
	"github.com/retracehq/retrace/internal/trajectory"
)

func testRecorderConfig(goal string) RecorderConfig {
	clock := testutil.NewFixedClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), time.Second)
	return RecorderConfig{
		Goal:      goal,
		Method:    trajectory.MethodAHash,
		RegionPx:  100,
		Threshold: 5,
		Now:       clock.Now,
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	rec, err := NewRecorder(testRecorderConfig("log in as alice"), nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	frame := testutil.CheckerImage(640, 480, 32)

	err = rec.RecordStep(ctx, Action{Kind: "click", Input: map[string]any{"x": 450, "y": 320}}, frame)
	require.NoError(t, err)
	err = rec.RecordStep(ctx, Action{Kind: "type", Input: map[string]any{"text": "hello"}}, frame)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Len())

	doc, err := rec.Finalize()
	require.NoError(t, err)
	require.NoError(t, doc.Validate())

	assert.Equal(t, trajectory.SchemaVersion, doc.Metadata.Version)
	assert.Equal(t, "log in as alice", doc.Metadata.Goal)
	require.Len(t, doc.Trajectory, 2)
	for i, step := range doc.Trajectory {
		assert.Equal(t, trajectory.StepTypeToolUse, step.Type, "step %d", i)
		assert.Len(t, step.Fingerprint, 16, "step %d", i)
	}
	assert.Equal(t, "click", doc.Trajectory[0].Name)
	assert.Equal(t, "type", doc.Trajectory[1].Name)
}

func TestRecorder_TemplatesDetectedValues(t *testing.T) {
	engine := params.NewEngine(substringClassifier{target: "alice", name: "username"})
	rec, err := NewRecorder(testRecorderConfig("log in as alice"), engine, nil)
	require.NoError(t, err)

	frame := testutil.UniformImage(640, 480, 128)
	err = rec.RecordStep(context.Background(), Action{
		Kind:  "type",
		Input: map[string]any{"text": "hello alice"},
	}, frame)
	require.NoError(t, err)

	doc, err := rec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "hello {{username}}", doc.Trajectory[0].Input["text"])
	assert.Contains(t, doc.Parameters, "username")
}

func TestRecorder_MethodNoneSkipsFrames(t *testing.T) {
	cfg := testRecorderConfig("no validation")
	cfg.Method = trajectory.MethodNone
	cfg.RegionPx = 0
	rec, err := NewRecorder(cfg, nil, nil)
	require.NoError(t, err)

	err = rec.RecordStep(context.Background(), Action{Kind: "wait", Input: map[string]any{"seconds": 1}}, nil)
	require.NoError(t, err)

	doc, err := rec.Finalize()
	require.NoError(t, err)
	assert.Empty(t, doc.Trajectory[0].Fingerprint)
}

func TestRecorder_RejectsUnknownAction(t *testing.T) {
	rec, err := NewRecorder(testRecorderConfig("goal"), nil, nil)
	require.NoError(t, err)

	err = rec.RecordStep(context.Background(), Action{Kind: "drag", Input: map[string]any{}}, testutil.UniformImage(8, 8, 0))
	assert.Error(t, err)
	assert.Equal(t, 0, rec.Len())
}

func TestRecorder_RequiresFrameWhenValidating(t *testing.T) {
	rec, err := NewRecorder(testRecorderConfig("goal"), nil, nil)
	require.NoError(t, err)

	err = rec.RecordStep(context.Background(), Action{Kind: "key", Input: map[string]any{"key": "Enter"}}, nil)
	assert.Error(t, err)
}

func TestRecorder_Discard(t *testing.T) {
	engine := params.NewEngine(substringClassifier{target: "alice", name: "username"})
	rec, err := NewRecorder(testRecorderConfig("log in as alice"), engine, nil)
	require.NoError(t, err)

	frame := testutil.UniformImage(64, 64, 200)
	require.NoError(t, rec.RecordStep(context.Background(), Action{
		Kind:  "type",
		Input: map[string]any{"text": "alice"},
	}, frame))
	require.Equal(t, 1, rec.Len())

	rec.Discard()
	assert.Equal(t, 0, rec.Len())

	// A fresh recording after Discard starts from a clean parameter map.
	require.NoError(t, rec.RecordStep(context.Background(), Action{
		Kind:  "type",
		Input: map[string]any{"text": "alice"},
	}, frame))
	doc, err := rec.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "{{username}}", doc.Trajectory[0].Input["text"])
	assert.Len(t, doc.Parameters, 1)
}

func TestRecorder_FinalizeEmptyFails(t *testing.T) {
	rec, err := NewRecorder(testRecorderConfig("goal"), nil, nil)
	require.NoError(t, err)

	_, err = rec.Finalize()
	assert.Error(t, err)
}
