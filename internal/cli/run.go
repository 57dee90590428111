package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/engine"
	"github.com/retracehq/retrace/internal/history"
	"github.com/retracehq/retrace/internal/planner"
	"github.com/retracehq/retrace/internal/rodexec"
	"github.com/retracehq/retrace/internal/trajectory"
)

// RunCommandResult is the run command's output payload.
type RunCommandResult struct {
	RunID     string `json:"run_id"`
	Goal      string `json:"goal"`
	Strategy  string `json:"strategy"`
	Source    string `json:"source"`
	Steps     int    `json:"steps"`
	CachePath string `json:"cache_path"`
}

func (r RunCommandResult) String() string {
	return fmt.Sprintf("run %s: %s via %s (%d steps, cache %s)",
		r.RunID, r.Goal, r.Source, r.Steps, r.CachePath)
}

type runOptions struct {
	strategy    string
	cacheDir    string
	cacheFile   string
	method      string
	regionPx    int
	threshold   int
	startURL    string
	headless    bool
	keepPartial bool
	params      []string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <goal>",
		Short: "Execute a goal, from cache when possible",
		Long: `Execute a goal against the browser.

Strategy decides the path: "execute" replays the cached trajectory,
"record" runs live via the planner and records a fresh one, and "both"
replays when a cache entry exists and falls back to a live re-recording
run when replay fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "cache strategy (record|execute|both)")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "trajectory cache directory")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "cache file name (default derives from the goal)")
	cmd.Flags().StringVar(&opts.method, "method", "", "visual verification method (ahash|phash|none)")
	cmd.Flags().IntVar(&opts.regionPx, "region", 0, "validation crop size around click targets, in pixels")
	cmd.Flags().IntVar(&opts.threshold, "threshold", -1, "maximum tolerated Hamming distance (0-64)")
	cmd.Flags().StringVar(&opts.startURL, "start-url", "", "URL to open before the first action")
	cmd.Flags().BoolVar(&opts.headless, "headless", true, "run the browser headless")
	cmd.Flags().BoolVar(&opts.keepPartial, "keep-partial", false, "persist the recorded steps of a failed live run")
	cmd.Flags().StringArrayVar(&opts.params, "param", nil, "replay parameter as name=value (repeatable)")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *runOptions, goal string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	cfg, err := config.Load(rootOpts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	applyRunFlags(cfg, opts, cmd)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	runtime, err := parseParams(opts.params)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --param value", err)
	}

	log, err := newLogger(rootOpts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build logger", err)
	}
	defer log.Sync()

	ctx := cmd.Context()
	exec, err := rodexec.New(ctx, rodexec.Options{
		Headless:      cfg.Browser.Headless,
		StartURL:      cfg.Browser.StartURL,
		ActionTimeout: cfg.Browser.ActionTimeout,
		Logger:        log,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start browser", err)
	}
	defer exec.Close()

	deps := engine.Deps{
		Executor: exec,
		Logger:   log,
	}

	// Live strategies need the planner; pure replay does not, so a
	// missing API key only blocks record and both.
	if cfg.Strategy != string(engine.StrategyExecute) {
		plannerCfg := planner.Config{
			APIKey:  cfg.Planner.APIKey,
			Model:   cfg.Planner.Model,
			BaseURL: cfg.Planner.BaseURL,
			Logger:  log,
		}
		decider, err := planner.New(plannerCfg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build planner", err)
		}
		classifier, err := planner.NewClassifier(plannerCfg)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to build classifier", err)
		}
		deps.Decider = decider
		deps.Classifier = classifier
	}

	if cfg.HistoryDB != "" {
		hist, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer hist.Close()
		deps.History = hist
	}

	manager, err := engine.NewManager(engine.Config{
		Strategy:     engine.Strategy(cfg.Strategy),
		CacheDir:     cfg.CacheDir,
		Filename:     opts.cacheFile,
		Method:       trajectory.VerificationMethod(cfg.Method),
		RegionPx:     cfg.RegionPx,
		Threshold:    cfg.Threshold,
		ReplayDelay:  cfg.ReplayDelay,
		MaxLiveSteps: cfg.MaxLiveSteps,
		KeepPartial:  opts.keepPartial,
	}, deps)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to assemble engine", err)
	}

	res, err := manager.Run(ctx, goal, runtime)
	if err != nil {
		return runFailure(formatter, err)
	}

	return formatter.Success(RunCommandResult{
		RunID:     res.RunID,
		Goal:      res.Goal,
		Strategy:  string(res.Strategy),
		Source:    res.Source,
		Steps:     res.Steps,
		CachePath: res.CachePath,
	})
}

// applyRunFlags folds explicitly-set flags over the loaded config.
func applyRunFlags(cfg *config.Config, opts *runOptions, cmd *cobra.Command) {
	if opts.strategy != "" {
		cfg.Strategy = opts.strategy
	}
	if opts.cacheDir != "" {
		cfg.CacheDir = opts.cacheDir
	}
	if opts.method != "" {
		cfg.Method = opts.method
	}
	if opts.regionPx > 0 {
		cfg.RegionPx = opts.regionPx
	}
	if opts.threshold >= 0 {
		cfg.Threshold = opts.threshold
	}
	if opts.startURL != "" {
		cfg.Browser.StartURL = opts.startURL
	}
	if cmd.Flags().Changed("headless") {
		cfg.Browser.Headless = opts.headless
	}
}

// runFailure reports an engine error with its structured fields and
// maps it to exit code 1.
func runFailure(formatter *OutputFormatter, err error) error {
	var re *engine.RunError
	if errors.As(err, &re) {
		details := map[string]any{}
		if re.StepIndex >= 0 {
			details["step"] = re.StepIndex
		}
		if re.Distance >= 0 {
			details["distance"] = re.Distance
			details["threshold"] = re.Threshold
		}
		if ferr := formatter.Error(string(re.Code), re.Error(), details); ferr != nil {
			return ferr
		}
		return &ExitError{Code: ExitFailure, Message: string(re.Code), Err: err}
	}
	return WrapExitError(ExitFailure, "run failed", err)
}

// parseParams converts repeated name=value flags into the replay
// parameter map.
func parseParams(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", pair)
		}
		out[name] = value
	}
	return out, nil
}
