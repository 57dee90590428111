package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/internal/history"
)

func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(context.Background(), history.Run{
		ID: "run-1", Goal: "open inbox", Strategy: "both", Source: history.SourceCache,
		Outcome: history.OutcomeSucceeded, FailedStep: -1, Distance: -1,
		StartedAt: base, FinishedAt: base.Add(2 * time.Second),
	}))
	require.NoError(t, store.Append(context.Background(), history.Run{
		ID: "run-2", Goal: "open inbox", Strategy: "execute", Source: history.SourceCache,
		Outcome: history.OutcomeFailed, FailureCode: "VALIDATION_FAILED", FailedStep: 2, Distance: 11,
		StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second),
	}))
	return path
}

func TestHistoryCommand(t *testing.T) {
	path := seedHistory(t)
	t.Setenv("RETRACE_HISTORY_DB", path)

	out, err := execute(t, "--format", "json", "history")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	require.Equal(t, "ok", resp.Status)

	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result HistoryResult
	require.NoError(t, json.Unmarshal(raw, &result))

	require.Len(t, result.Runs, 2)
	assert.Equal(t, "run-2", result.Runs[0].ID, "newest first")
	assert.Equal(t, "VALIDATION_FAILED", result.Runs[0].FailureCode)
	assert.Equal(t, "run-1", result.Runs[1].ID)
}

func TestHistoryCommand_TextOutput(t *testing.T) {
	path := seedHistory(t)
	t.Setenv("RETRACE_HISTORY_DB", path)

	out, err := execute(t, "history", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "VALIDATION_FAILED step 2 distance 11")
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	t.Setenv("RETRACE_HISTORY_DB", filepath.Join(t.TempDir(), "missing.db"))

	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
