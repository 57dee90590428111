package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertReplay checks one replay outcome against its expectation.
func AssertReplay(t *testing.T, rc ReplayCase, outcome ReplayOutcome) {
	t.Helper()

	require.Equal(t, rc.Expect.Outcome, outcome.Outcome,
		"replay %q: outcome mismatch (err: %v)", rc.Name, outcome.Err)

	if rc.Expect.Step != nil {
		assert.Equal(t, *rc.Expect.Step, outcome.FailedStep,
			"replay %q: failing step mismatch", rc.Name)
	}
	if rc.Expect.Dispatched != nil {
		assert.Equal(t, *rc.Expect.Dispatched, outcome.Dispatched,
			"replay %q: dispatch count mismatch", rc.Name)
	}
	if outcome.Outcome == OutcomeValidationFailed {
		assert.GreaterOrEqual(t, outcome.Distance, 0,
			"replay %q: validation failures must report a distance", rc.Name)
	}
}

// RunScenarioTest loads a scenario, runs it, and checks every replay
// case. Returns the result for further assertions.
func RunScenarioTest(t *testing.T, path string) *Result {
	t.Helper()

	scenario, err := LoadScenario(path)
	require.NoError(t, err, "failed to load scenario")

	result, err := Run(scenario, t.TempDir())
	require.NoError(t, err, "scenario %q failed", scenario.Name)

	require.Len(t, result.Replays, len(scenario.Replays))
	for i, rc := range scenario.Replays {
		AssertReplay(t, rc, result.Replays[i])
	}
	return result
}
