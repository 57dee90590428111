package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/config"
	"github.com/retracehq/retrace/internal/history"
)

// HistoryResult is the run listing.
type HistoryResult struct {
	Runs []HistoryRun `json:"runs"`
}

// HistoryRun is one audit row.
type HistoryRun struct {
	ID          string `json:"id"`
	Goal        string `json:"goal"`
	Strategy    string `json:"strategy"`
	Source      string `json:"source,omitempty"`
	Outcome     string `json:"outcome"`
	FailureCode string `json:"failure_code,omitempty"`
	FailedStep  int    `json:"failed_step,omitempty"`
	Distance    int    `json:"distance,omitempty"`
	StartedAt   string `json:"started_at"`
}

func (r HistoryResult) String() string {
	if len(r.Runs) == 0 {
		return "no runs recorded"
	}
	var b strings.Builder
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "%s  %-9s %-7s %-9s %s", run.StartedAt, run.Outcome, run.Source, run.Strategy, run.Goal)
		if run.FailureCode != "" {
			fmt.Fprintf(&b, "  (%s", run.FailureCode)
			if run.FailedStep >= 0 {
				fmt.Fprintf(&b, " step %d", run.FailedStep)
			}
			if run.Distance >= 0 {
				fmt.Fprintf(&b, " distance %d", run.Distance)
			}
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		goal  string
		limit int
	)

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List past runs",
		Long:          "List past runs from the audit database, newest first.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(rootOpts, goal, limit, cmd)
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "only show runs for this goal")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	return cmd
}

func runHistory(opts *RootOptions, goal string, limit int, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if cfg.HistoryDB == "" {
		return NewExitError(ExitCommandError, "run history is disabled (history_db is empty)")
	}
	if _, err := os.Stat(cfg.HistoryDB); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("no history database at %s", cfg.HistoryDB), err)
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), goal, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	result := HistoryResult{Runs: make([]HistoryRun, 0, len(runs))}
	for _, run := range runs {
		result.Runs = append(result.Runs, HistoryRun{
			ID:          run.ID,
			Goal:        run.Goal,
			Strategy:    run.Strategy,
			Source:      run.Source,
			Outcome:     run.Outcome,
			FailureCode: run.FailureCode,
			FailedStep:  run.FailedStep,
			Distance:    run.Distance,
			StartedAt:   run.StartedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}
	return formatter.Success(result)
}
