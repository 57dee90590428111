package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/trajectory"
	"github.com/retracehq/retrace/internal/vishash"
)

// ReplayResult summarizes a completed replay.
type ReplayResult struct {
	// Steps is the number of steps dispatched and validated.
	Steps int

	// MaxDistance is the largest Hamming distance observed across all
	// validated steps, or -1 when verification was disabled.
	MaxDistance int
}

// Replayer walks a cached trajectory against an executor.
type Replayer struct {
	exec  Executor
	delay time.Duration
	log   *zap.Logger
}

// NewReplayer constructs a replayer. delay is inserted between
// successive dispatches so the interface can settle; zero disables it.
func NewReplayer(exec Executor, delay time.Duration, log *zap.Logger) *Replayer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Replayer{exec: exec, delay: delay, log: log}
}

// Replay dispatches every step of doc in order, validating the
// interface state after each one per the document's verification
// method. runtime must supply a value for every declared parameter.
//
// Replay is fail-fast: the first dispatch error or fingerprint mismatch
// aborts the run and no later step is attempted. The returned RunError
// carries the failing step index and, for validation failures, the
// measured distance.
func (r *Replayer) Replay(ctx context.Context, doc *trajectory.Document, runtime map[string]any) (*ReplayResult, error) {
	if err := params.CheckCoverage(doc.Parameters, runtime); err != nil {
		return nil, newMissingParameterError(err)
	}

	method := doc.Metadata.VerificationMethod
	var hash vishash.HashFunc
	if method != trajectory.MethodNone {
		fn, ok := vishash.ForMethod(string(method))
		if !ok {
			return nil, newCacheInvalidError("", fmt.Errorf("no hash function for method %q", method))
		}
		hash = fn
	}

	result := &ReplayResult{MaxDistance: -1}
	for i, step := range doc.Trajectory {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("replay interrupted at step %d: %w", i, err)
		}
		if i > 0 && r.delay > 0 {
			select {
			case <-time.After(r.delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("replay interrupted at step %d: %w", i, ctx.Err())
			}
		}

		resolved, err := params.Substitute(step, runtime)
		if err != nil {
			var mpe *params.MissingParameterError
			if errors.As(err, &mpe) {
				return nil, newMissingParameterError(err)
			}
			return nil, newCacheInvalidError("", fmt.Errorf("step %d: %w", i, err))
		}

		if err := r.exec.Dispatch(ctx, resolved.Name, resolved.Input); err != nil {
			return nil, newDispatchError(i, err)
		}
		r.log.Debug("dispatched cached step",
			zap.Int("step", i),
			zap.String("action", resolved.Name))

		if hash == nil {
			result.Steps++
			continue
		}

		frame, err := r.exec.CaptureState(ctx)
		if err != nil {
			return nil, newDispatchError(i, fmt.Errorf("capture state: %w", err))
		}
		target := frame
		if x, y, ok := resolved.CoordinateTarget(); ok {
			target = vishash.Region(frame, x, y, doc.Metadata.ValidationRegionPx)
		}
		distance, pass, err := vishash.Compare(hash(target), step.Fingerprint, doc.Metadata.ValidationThreshold)
		if err != nil {
			return nil, newCacheInvalidError("", fmt.Errorf("step %d fingerprint: %w", i, err))
		}
		if !pass {
			return nil, newValidationError(i, distance, doc.Metadata.ValidationThreshold)
		}
		if distance > result.MaxDistance {
			result.MaxDistance = distance
		}
		result.Steps++
	}

	return result, nil
}
