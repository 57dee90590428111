package cli

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/retracehq/retrace/internal/vishash"
)

// hashOptions holds flag values for the hash command.
type hashOptions struct {
	method    string
	region    int
	x, y      int
	threshold int
}

// HashResult is the fingerprint of one image, plus the comparison when
// two images were given.
type HashResult struct {
	Method       string `json:"method"`
	Fingerprint  string `json:"fingerprint"`
	Fingerprint2 string `json:"fingerprint2,omitempty"`
	Distance     int    `json:"distance,omitempty"`
	Compared     bool   `json:"compared,omitempty"`
	Within       *bool  `json:"within_threshold,omitempty"`
}

func (r HashResult) String() string {
	if !r.Compared {
		return fmt.Sprintf("%s %s", r.Method, r.Fingerprint)
	}
	s := fmt.Sprintf("%s %s vs %s  distance=%d", r.Method, r.Fingerprint, r.Fingerprint2, r.Distance)
	if r.Within != nil {
		if *r.Within {
			s += " (within threshold)"
		} else {
			s += " (exceeds threshold)"
		}
	}
	return s
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &hashOptions{}

	cmd := &cobra.Command{
		Use:   "hash <image> [image2]",
		Short: "Fingerprint screenshots",
		Long: `Compute the visual fingerprint of a screenshot.

With --region, the fingerprint covers the region square centered on
(--x, --y) instead of the whole image. With two images, also reports the
Hamming distance between their fingerprints, and with --threshold,
whether the pair would pass validation. Useful for choosing a
validation threshold.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(rootOpts, opts, args, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.method, "method", "ahash", "fingerprint method (ahash|phash)")
	cmd.Flags().IntVar(&opts.region, "region", 0, "crop side length in pixels (0 hashes the whole image)")
	cmd.Flags().IntVar(&opts.x, "x", 0, "region center x coordinate")
	cmd.Flags().IntVar(&opts.y, "y", 0, "region center y coordinate")
	cmd.Flags().IntVar(&opts.threshold, "threshold", -1, "report whether the distance passes this threshold")
	return cmd
}

func runHash(rootOpts *RootOptions, opts *hashOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	hash, ok := vishash.ForMethod(opts.method)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown fingerprint method %q", opts.method))
	}

	result := HashResult{Method: opts.method}
	fp, err := hashFile(paths[0], hash, opts)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", paths[0]), err)
	}
	result.Fingerprint = fp

	if len(paths) == 2 {
		fp2, err := hashFile(paths[1], hash, opts)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", paths[1]), err)
		}
		result.Fingerprint2 = fp2
		result.Compared = true
		result.Distance, err = vishash.Distance(result.Fingerprint, result.Fingerprint2)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to compare fingerprints", err)
		}
		if opts.threshold >= 0 {
			within := result.Distance <= opts.threshold
			result.Within = &within
		}
	}
	return formatter.Success(result)
}

func hashFile(path string, hash vishash.HashFunc, opts *hashOptions) (string, error) {
	img, err := loadImage(path)
	if err != nil {
		return "", err
	}
	if opts.region > 0 {
		img = vishash.Region(img, opts.x, opts.y, opts.region)
	}
	return hash(img), nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}
