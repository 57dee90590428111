package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/cachestore"
)

// ValidationReport holds per-file validation results.
type ValidationReport struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// FileValidation is the outcome for one cache file.
type FileValidation struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func (r ValidationReport) String() string {
	out := ""
	for _, f := range r.Files {
		if f.Valid {
			out += fmt.Sprintf("ok    %s\n", f.Path)
		} else {
			out += fmt.Sprintf("FAIL  %s: %s\n", f.Path, f.Error)
		}
	}
	if r.Valid {
		return out + "all files valid"
	}
	return out + "validation failed"
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <cache-file>...",
		Short: "Validate cached trajectory files",
		Long: `Validate cached trajectory files against the document schema.

Checks JSON structure, metadata ranges, step shapes, fingerprint
format, and placeholder declarations without touching a browser.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	report := ValidationReport{Valid: true}
	for _, path := range paths {
		formatter.VerboseLog("validating %s", path)
		fv := FileValidation{Path: path, Valid: true}
		if _, err := cachestore.Load(path); err != nil {
			fv.Valid = false
			fv.Error = err.Error()
			report.Valid = false
		}
		report.Files = append(report.Files, fv)
	}

	if !report.Valid {
		if err := formatter.Error("E_INVALID_CACHE", "one or more cache files are invalid", report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}
	return formatter.Success(report)
}
