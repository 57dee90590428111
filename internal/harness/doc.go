// Package harness provides a scenario-driven conformance harness for
// the record/replay pipeline.
//
// A scenario is a YAML file describing one recorded run: the goal, the
// actions taken, synthetic frames standing in for screenshots, and the
// values the classifier should templatize. The harness records the
// scenario through the real Recorder, persists the document through the
// real cache store, and then replays it with the real Replayer under
// each of the scenario's replay cases, checking the declared outcome.
//
// Synthetic frames are generated deterministically from their specs, and
// the recording clock is fixed, so the persisted document is stable
// byte-for-byte. Golden files under testdata/golden pin the document
// format; regenerate them with:
//
//	go test ./internal/harness -update
package harness
