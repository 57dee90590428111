package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/trajectory"
	"github.com/retracehq/retrace/internal/vishash"
)

// RecorderConfig controls how a live run is captured.
type RecorderConfig struct {
	// Goal is the natural-language goal driving the run. Stored verbatim
	// in document metadata.
	Goal string

	// Method selects the fingerprint algorithm applied after each step.
	Method trajectory.VerificationMethod

	// RegionPx is the side length of the square crop around coordinate
	// targets. Ignored when Method is "none".
	RegionPx int

	// Threshold is the maximum Hamming distance tolerated on replay.
	Threshold int

	// Now supplies the document timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Recorder accumulates executed actions into a trajectory document.
//
// The caller dispatches each action itself and hands the recorder the
// action plus the interface frame captured after it. The recorder
// fingerprints the frame, runs parameter extraction, and appends the
// (possibly templated) step. Finalize assembles and validates the
// document; Discard drops everything accumulated so far.
type Recorder struct {
	cfg     RecorderConfig
	extract *params.Engine
	hash    vishash.HashFunc
	log     *zap.Logger

	steps      []trajectory.Step
	parameters map[string]string
}

// NewRecorder constructs a recorder. The parameter engine may be nil,
// in which case no values are templated and the document carries an
// empty parameter map.
func NewRecorder(cfg RecorderConfig, extract *params.Engine, log *zap.Logger) (*Recorder, error) {
	if !trajectory.ValidVerificationMethods[cfg.Method] {
		return nil, fmt.Errorf("invalid verification method %q", cfg.Method)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	if extract == nil {
		extract = params.NewEngine(nil)
	}
	var hash vishash.HashFunc
	if cfg.Method != trajectory.MethodNone {
		fn, ok := vishash.ForMethod(string(cfg.Method))
		if !ok {
			return nil, fmt.Errorf("no hash function for method %q", cfg.Method)
		}
		hash = fn
	}
	return &Recorder{
		cfg:        cfg,
		extract:    extract,
		hash:       hash,
		log:        log,
		parameters: make(map[string]string),
	}, nil
}

// RecordStep appends one executed action. frame is the interface state
// captured after the action; it may be nil when the verification method
// is "none".
func (r *Recorder) RecordStep(ctx context.Context, action Action, frame image.Image) error {
	if !trajectory.KnownAction(action.Kind) {
		return fmt.Errorf("unknown action kind %q", action.Kind)
	}

	step := trajectory.Step{
		Type:  trajectory.StepTypeToolUse,
		Name:  action.Kind,
		Input: action.Input,
	}
	step = step.Clone()

	if r.hash != nil {
		if frame == nil {
			return fmt.Errorf("no frame captured for %s step", action.Kind)
		}
		target := image.Image(frame)
		if x, y, ok := step.CoordinateTarget(); ok {
			target = vishash.Region(frame, x, y, r.cfg.RegionPx)
		}
		step.Fingerprint = r.hash(target)
	}

	// Extraction runs on the fingerprinted step so templating never
	// affects what was hashed.
	templated, created, err := r.extract.Extract(ctx, r.cfg.Goal, step, r.parameters)
	if err != nil {
		return fmt.Errorf("parameter extraction: %w", err)
	}
	for name, desc := range created {
		r.parameters[name] = desc
		r.log.Debug("templated parameter",
			zap.String("name", name),
			zap.String("description", desc),
			zap.Int("step", len(r.steps)))
	}

	r.steps = append(r.steps, templated)
	return nil
}

// Len returns the number of steps recorded so far.
func (r *Recorder) Len() int {
	return len(r.steps)
}

// Finalize assembles the accumulated steps into a validated document.
// The recorder is not reset; a failed Finalize can be retried after
// correcting the configuration.
func (r *Recorder) Finalize() (*trajectory.Document, error) {
	doc := &trajectory.Document{
		Metadata: trajectory.Metadata{
			Version:             trajectory.SchemaVersion,
			CreatedAt:           r.cfg.Now().UTC(),
			Goal:                r.cfg.Goal,
			VerificationMethod:  r.cfg.Method,
			ValidationRegionPx:  r.cfg.RegionPx,
			ValidationThreshold: r.cfg.Threshold,
		},
		Trajectory: r.steps,
		Parameters: r.parameters,
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("recorded trajectory invalid: %w", err)
	}
	return doc.Clone(), nil
}

// Discard drops all accumulated steps and parameters. Called when a
// live run terminates abnormally so partial trajectories never reach
// the cache.
func (r *Recorder) Discard() {
	r.steps = nil
	r.parameters = make(map[string]string)
}
