package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/cachestore"
	"github.com/retracehq/retrace/internal/trajectory"
)

// writeValidCache saves a well-formed trajectory document and returns
// its path.
func writeValidCache(t *testing.T) string {
	t.Helper()
	doc := &trajectory.Document{
		Metadata: trajectory.Metadata{
			Version:             trajectory.SchemaVersion,
			CreatedAt:           time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
			Goal:                "log in as {{username}}",
			VerificationMethod:  trajectory.MethodAHash,
			ValidationRegionPx:  100,
			ValidationThreshold: 5,
		},
		Trajectory: []trajectory.Step{
			{
				Type:        trajectory.StepTypeToolUse,
				Name:        "click",
				Input:       map[string]any{"x": 450, "y": 320},
				Fingerprint: "a1b2c3d4e5f60718",
			},
			{
				Type:        trajectory.StepTypeToolUse,
				Name:        "type",
				Input:       map[string]any{"text": "hello {{username}}"},
				Fingerprint: "00ff00ff00ff00ff",
			},
		},
		Parameters: map[string]string{"username": "who logs in"},
	}
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, cachestore.Save(path, doc))
	return path
}

// execute runs the CLI with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON-format CLI response.
func decodeResponse(t *testing.T, raw string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &resp))
	return resp
}
