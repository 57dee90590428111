package engine

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/testutil"
	"github.com/retracehq/retrace/internal/trajectory"
)

// recordedFixture records a short run against scripted frames and
// returns the finished document with the frames it was recorded from.
func recordedFixture(t *testing.T, classifier params.Classifier) (*trajectory.Document, []image.Image) {
	t.Helper()

	frames := []image.Image{
		testutil.CheckerImage(640, 480, 32),
		testutil.GradientImage(640, 480),
		testutil.NoiseImage(640, 480, 7),
	}
	actions := []Action{
		{Kind: "click", Input: map[string]any{"x": 450, "y": 320}},
		{Kind: "type", Input: map[string]any{"text": "hello alice"}},
		{Kind: "key", Input: map[string]any{"key": "Enter"}},
	}

	rec, err := NewRecorder(testRecorderConfig("log in as alice"), params.NewEngine(classifier), nil)
	require.NoError(t, err)
	for i, a := range actions {
		require.NoError(t, rec.RecordStep(context.Background(), a, frames[i]))
	}
	doc, err := rec.Finalize()
	require.NoError(t, err)
	return doc, frames
}

func TestReplay_RoundTrip(t *testing.T) {
	doc, frames := recordedFixture(t, substringClassifier{target: "alice", name: "username"})
	exec := newFakeExecutor(frames...)

	res, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc,
		map[string]any{"username": "alice"})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Steps)
	assert.Equal(t, 0, res.MaxDistance)
	require.Len(t, exec.dispatched, 3)
	assert.Equal(t, "click", exec.dispatched[0].Kind)
	assert.Equal(t, "hello alice", exec.dispatched[1].Input["text"])
	assert.Equal(t, "Enter", exec.dispatched[2].Input["key"])
}

func TestReplay_SubstitutesDifferentRuntimeValue(t *testing.T) {
	doc, frames := recordedFixture(t, substringClassifier{target: "alice", name: "username"})
	exec := newFakeExecutor(frames...)

	_, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc,
		map[string]any{"username": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "hello bob", exec.dispatched[1].Input["text"])
}

func TestReplay_ValidationFailureStopsRun(t *testing.T) {
	doc, frames := recordedFixture(t, nil)

	// The second capture diverges far beyond any sane threshold.
	diverged := []image.Image{frames[0], testutil.Invert(frames[1]), frames[2]}
	exec := newFakeExecutor(diverged...)

	_, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc, nil)
	require.Error(t, err)
	assert.True(t, IsValidationFailed(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.StepIndex)
	assert.Greater(t, re.Distance, doc.Metadata.ValidationThreshold)

	// Fail-fast: the third step was never dispatched.
	assert.Len(t, exec.dispatched, 2)
	assert.Equal(t, 2, exec.captures)
}

func TestReplay_DispatchFailureStopsRun(t *testing.T) {
	doc, frames := recordedFixture(t, nil)
	exec := newFakeExecutor(frames...)
	exec.failDispatchAt = 1

	_, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc, nil)
	require.Error(t, err)
	assert.True(t, IsDispatchFailed(err))

	var re *RunError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 1, re.StepIndex)
	assert.Len(t, exec.dispatched, 1)
}

func TestReplay_MissingParameter(t *testing.T) {
	doc, frames := recordedFixture(t, substringClassifier{target: "alice", name: "username"})
	exec := newFakeExecutor(frames...)

	_, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc, nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeMissingParameter, CodeOf(err))
	assert.Empty(t, exec.dispatched, "no step may run with incomplete parameters")
}

func TestReplay_MethodNoneSkipsCapture(t *testing.T) {
	cfg := testRecorderConfig("no validation")
	cfg.Method = trajectory.MethodNone
	cfg.RegionPx = 0
	rec, err := NewRecorder(cfg, nil, nil)
	require.NoError(t, err)
	require.NoError(t, rec.RecordStep(context.Background(), Action{Kind: "scroll", Input: map[string]any{"direction": "down"}}, nil))
	require.NoError(t, rec.RecordStep(context.Background(), Action{Kind: "wait", Input: map[string]any{"seconds": 2}}, nil))
	doc, err := rec.Finalize()
	require.NoError(t, err)

	exec := newFakeExecutor() // no frames scripted; CaptureState would fail
	res, err := NewReplayer(exec, 0, nil).Replay(context.Background(), doc, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Steps)
	assert.Equal(t, -1, res.MaxDistance)
	assert.Equal(t, 0, exec.captures)
}

func TestReplay_CancelledContext(t *testing.T) {
	doc, frames := recordedFixture(t, nil)
	exec := newFakeExecutor(frames...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReplayer(exec, time.Millisecond, nil).Replay(ctx, doc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, exec.dispatched)
}
