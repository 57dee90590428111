package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/retracehq/retrace/internal/cachestore"
	"github.com/retracehq/retrace/internal/history"
	"github.com/retracehq/retrace/internal/params"
	"github.com/retracehq/retrace/internal/trajectory"
)

// Strategy selects how the manager balances cache and live execution.
type Strategy string

const (
	// StrategyRecord always runs live and overwrites the cache.
	StrategyRecord Strategy = "record"

	// StrategyExecute only replays from cache; misses are terminal.
	StrategyExecute Strategy = "execute"

	// StrategyBoth replays when possible and falls back to a live
	// re-recording run on any replay failure.
	StrategyBoth Strategy = "both"
)

// ValidStrategies is the closed strategy set.
var ValidStrategies = map[Strategy]bool{
	StrategyRecord:  true,
	StrategyExecute: true,
	StrategyBoth:    true,
}

// DefaultMaxLiveSteps bounds live runs whose decision engine never
// signals completion.
const DefaultMaxLiveSteps = 30

// Config controls a Manager.
type Config struct {
	Strategy Strategy

	// CacheDir is the directory holding trajectory documents.
	CacheDir string

	// Filename overrides the goal-derived cache file name. Optional.
	Filename string

	// Method, RegionPx, and Threshold configure visual validation for
	// newly recorded documents. Replay always honors the values stored
	// in the loaded document.
	Method    trajectory.VerificationMethod
	RegionPx  int
	Threshold int

	// ReplayDelay is inserted between successive replayed dispatches.
	ReplayDelay time.Duration

	// MaxLiveSteps bounds live runs. Zero means DefaultMaxLiveSteps.
	MaxLiveSteps int

	// KeepPartial persists whatever steps a failed live run recorded
	// instead of discarding them. The partial document is written best
	// effort; the run still reports its original failure.
	KeepPartial bool
}

// Deps are the manager's collaborators. Executor and Decider are
// required for strategies that can run live; History, Classifier,
// Logger, and Now are optional.
type Deps struct {
	Executor   Executor
	Decider    DecisionEngine
	Classifier params.Classifier
	History    *history.Store
	Logger     *zap.Logger
	Now        func() time.Time
}

// RunResult summarizes one completed run.
type RunResult struct {
	RunID     string
	Goal      string
	Strategy  Strategy
	Source    string
	Steps     int
	CachePath string
}

// Manager is the strategy state machine: it decides per run whether to
// replay from cache or record live, and appends an audit row to the
// run history either way.
type Manager struct {
	cfg     Config
	exec    Executor
	decider DecisionEngine
	extract *params.Engine
	hist    *history.Store
	log     *zap.Logger
	now     func() time.Time
}

// NewManager validates cfg and assembles a manager.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if !ValidStrategies[cfg.Strategy] {
		return nil, fmt.Errorf("invalid strategy %q", cfg.Strategy)
	}
	if cfg.CacheDir == "" {
		return nil, fmt.Errorf("cache directory not set")
	}
	if !trajectory.ValidVerificationMethods[cfg.Method] {
		return nil, fmt.Errorf("invalid verification method %q", cfg.Method)
	}
	if deps.Executor == nil {
		return nil, fmt.Errorf("executor not set")
	}
	if cfg.Strategy != StrategyExecute && deps.Decider == nil {
		return nil, fmt.Errorf("strategy %q requires a decision engine", cfg.Strategy)
	}
	if cfg.MaxLiveSteps == 0 {
		cfg.MaxLiveSteps = DefaultMaxLiveSteps
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{
		cfg:     cfg,
		exec:    deps.Executor,
		decider: deps.Decider,
		extract: params.NewEngine(deps.Classifier),
		hist:    deps.History,
		log:     deps.Logger,
		now:     deps.Now,
	}, nil
}

// CachePath returns the cache file path for goal under the configured
// directory.
func (m *Manager) CachePath(goal string) string {
	name := m.cfg.Filename
	if name == "" {
		name = trajectory.GoalFileName(goal)
	}
	return filepath.Join(m.cfg.CacheDir, name)
}

// Run executes goal per the configured strategy. runtime supplies
// values for cached parameters during replay; it is ignored by pure
// live runs.
func (m *Manager) Run(ctx context.Context, goal string, runtime map[string]any) (*RunResult, error) {
	runID := uuid.Must(uuid.NewV7()).String()
	path := m.CachePath(goal)
	started := m.now()
	log := m.log.With(
		zap.String("run_id", runID),
		zap.String("strategy", string(m.cfg.Strategy)))

	var (
		res *RunResult
		err error
	)
	switch m.cfg.Strategy {
	case StrategyExecute:
		res, err = m.replayFromCache(ctx, path, runtime, log)
	case StrategyRecord:
		res, err = m.recordLive(ctx, goal, path, log)
	case StrategyBoth:
		res, err = m.replayFromCache(ctx, path, runtime, log)
		if err != nil {
			log.Info("replay failed, falling back to live run",
				zap.String("code", string(CodeOf(err))),
				zap.Error(err))
			res, err = m.recordLive(ctx, goal, path, log)
		}
	}

	if res != nil {
		res.RunID = runID
		res.Goal = goal
		res.Strategy = m.cfg.Strategy
		res.CachePath = path
	}
	m.appendHistory(ctx, runID, goal, path, started, res, err)
	return res, err
}

func (m *Manager) replayFromCache(ctx context.Context, path string, runtime map[string]any, log *zap.Logger) (*RunResult, error) {
	doc, err := cachestore.Load(path)
	if err != nil {
		if cachestore.IsNotFound(err) {
			return nil, newCacheMissError(path, err)
		}
		return nil, newCacheInvalidError(path, err)
	}

	rr, err := NewReplayer(m.exec, m.cfg.ReplayDelay, log).Replay(ctx, doc, runtime)
	if err != nil {
		return nil, err
	}
	log.Info("replayed cached trajectory",
		zap.Int("steps", rr.Steps),
		zap.Int("max_distance", rr.MaxDistance))
	return &RunResult{Source: history.SourceCache, Steps: rr.Steps}, nil
}

// recordLive drives the decision engine from the original goal,
// dispatching and recording each planned action until the engine
// signals completion. The finished document replaces the cache entry.
func (m *Manager) recordLive(ctx context.Context, goal, path string, log *zap.Logger) (*RunResult, error) {
	rec, err := NewRecorder(RecorderConfig{
		Goal:      goal,
		Method:    m.cfg.Method,
		RegionPx:  m.cfg.RegionPx,
		Threshold: m.cfg.Threshold,
		Now:       m.now,
	}, m.extract, log)
	if err != nil {
		return nil, newRecordingError("recorder setup failed", err)
	}

	var transcript []StepRecord
	for {
		if err := ctx.Err(); err != nil {
			m.abortRecording(rec, path, log)
			return nil, newRecordingError("live run interrupted", err)
		}
		if rec.Len() >= m.cfg.MaxLiveSteps {
			m.abortRecording(rec, path, log)
			return nil, newRecordingError(
				fmt.Sprintf("live run exceeded %d steps without satisfying goal", m.cfg.MaxLiveSteps), nil)
		}

		action, done, err := m.decider.NextAction(ctx, goal, transcript)
		if err != nil {
			m.abortRecording(rec, path, log)
			return nil, newRecordingError("decision engine failed", err)
		}
		if done {
			break
		}
		if action == nil {
			m.abortRecording(rec, path, log)
			return nil, newRecordingError("decision engine returned no action", nil)
		}

		if err := m.exec.Dispatch(ctx, action.Kind, action.Input); err != nil {
			m.abortRecording(rec, path, log)
			return nil, newDispatchError(rec.Len(), err)
		}

		step := rec.Len()
		var frame image.Image
		if m.cfg.Method != trajectory.MethodNone {
			frame, err = m.exec.CaptureState(ctx)
			if err != nil {
				m.abortRecording(rec, path, log)
				return nil, newRecordingError(fmt.Sprintf("failed to capture state after step %d", step), err)
			}
		}
		if err := rec.RecordStep(ctx, *action, frame); err != nil {
			m.abortRecording(rec, path, log)
			return nil, newRecordingError(fmt.Sprintf("failed to record step %d", step), err)
		}

		transcript = append(transcript, StepRecord{Action: *action, Result: "ok"})
		log.Debug("recorded live step",
			zap.Int("step", step),
			zap.String("action", action.Kind))
	}

	if rec.Len() == 0 {
		return nil, newRecordingError("goal satisfied without any actions; nothing to cache", nil)
	}

	doc, err := rec.Finalize()
	if err != nil {
		return nil, newRecordingError("trajectory assembly failed", err)
	}
	if err := cachestore.Save(path, doc); err != nil {
		return nil, newPersistenceError(path, err)
	}
	log.Info("recorded trajectory",
		zap.Int("steps", len(doc.Trajectory)),
		zap.Int("parameters", len(doc.Parameters)),
		zap.String("path", path))
	return &RunResult{Source: history.SourceLive, Steps: len(doc.Trajectory)}, nil
}

// abortRecording disposes of an interrupted recording. The default is
// to discard; with KeepPartial set, recorded steps are persisted best
// effort so the run can be inspected.
func (m *Manager) abortRecording(rec *Recorder, path string, log *zap.Logger) {
	if !m.cfg.KeepPartial || rec.Len() == 0 {
		rec.Discard()
		return
	}

	doc, err := rec.Finalize()
	if err != nil {
		log.Warn("failed to assemble partial trajectory", zap.Error(err))
		return
	}
	if err := cachestore.Save(path, doc); err != nil {
		log.Warn("failed to persist partial trajectory",
			zap.String("path", path), zap.Error(err))
		return
	}
	log.Info("persisted partial trajectory",
		zap.Int("steps", len(doc.Trajectory)),
		zap.String("path", path))
}

// appendHistory writes the audit row. History is best effort: a write
// failure is logged, never surfaced to the caller.
func (m *Manager) appendHistory(ctx context.Context, runID, goal, path string, started time.Time, res *RunResult, runErr error) {
	if m.hist == nil {
		return
	}
	run := history.Run{
		ID:         runID,
		Goal:       goal,
		Strategy:   string(m.cfg.Strategy),
		Outcome:    history.OutcomeSucceeded,
		FailedStep: -1,
		Distance:   -1,
		CacheFile:  path,
		StartedAt:  started,
		FinishedAt: m.now(),
	}
	if res != nil {
		run.Source = res.Source
	}
	if runErr != nil {
		run.Outcome = history.OutcomeFailed
		run.FailureCode = string(CodeOf(runErr))
		var re *RunError
		if errors.As(runErr, &re) {
			run.FailedStep = re.StepIndex
			run.Distance = re.Distance
		}
	}
	if err := m.hist.Append(ctx, run); err != nil {
		m.log.Warn("failed to append run history", zap.Error(err))
	}
}
