package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/cachestore"
	"github.com/retracehq/retrace/internal/trajectory"
)

// InspectResult summarizes one cached trajectory.
type InspectResult struct {
	Path       string            `json:"path"`
	Goal       string            `json:"goal"`
	CreatedAt  string            `json:"created_at"`
	Method     string            `json:"visual_verification_method"`
	RegionPx   int               `json:"visual_validation_region_size"`
	Threshold  int               `json:"visual_validation_threshold"`
	Steps      []InspectStep     `json:"steps"`
	Parameters map[string]string `json:"parameters,omitempty"`
}

// InspectStep is a one-line view of a recorded step.
type InspectStep struct {
	Index       int            `json:"index"`
	Name        string         `json:"name"`
	Input       map[string]any `json:"input"`
	Fingerprint string         `json:"fingerprint,omitempty"`
}

func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "goal:      %s\n", r.Goal)
	fmt.Fprintf(&b, "recorded:  %s\n", r.CreatedAt)
	fmt.Fprintf(&b, "method:    %s (region %dpx, threshold %d)\n", r.Method, r.RegionPx, r.Threshold)
	fmt.Fprintf(&b, "steps:     %d\n", len(r.Steps))
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  %2d. %-7s %v", s.Index, s.Name, s.Input)
		if s.Fingerprint != "" {
			fmt.Fprintf(&b, "  [%s]", s.Fingerprint)
		}
		b.WriteString("\n")
	}
	if len(r.Parameters) > 0 {
		fmt.Fprintf(&b, "parameters:\n")
		for name, desc := range r.Parameters {
			fmt.Fprintf(&b, "  %s: %s\n", trajectory.Token(name), desc)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "inspect <cache-file>",
		Short:         "Show a cached trajectory in detail",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
}

func runInspect(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	doc, err := cachestore.Load(path)
	if err != nil {
		code := ExitCommandError
		if cachestore.IsInvalid(err) {
			code = ExitFailure
		}
		return WrapExitError(code, fmt.Sprintf("failed to load %s", path), err)
	}

	result := InspectResult{
		Path:       path,
		Goal:       doc.Metadata.Goal,
		CreatedAt:  doc.Metadata.CreatedAt.Format("2006-01-02 15:04:05 MST"),
		Method:     string(doc.Metadata.VerificationMethod),
		RegionPx:   doc.Metadata.ValidationRegionPx,
		Threshold:  doc.Metadata.ValidationThreshold,
		Parameters: doc.Parameters,
	}
	for i, step := range doc.Trajectory {
		result.Steps = append(result.Steps, InspectStep{
			Index:       i,
			Name:        step.Name,
			Input:       step.Input,
			Fingerprint: step.Fingerprint,
		})
	}
	return formatter.Success(result)
}
