// Package engine coordinates recording and replaying cached trajectories.
//
// # Architecture
//
// The engine sits between the decision layer (which plans actions for a
// goal) and the executor (which performs actions against the target
// interface). It has three moving parts:
//
//   - Recorder: accumulates executed actions into a trajectory document
//     during a live run, fingerprinting the interface state after each
//     action and templating goal-derived values into parameters.
//   - Replayer: walks a cached trajectory step by step, substituting
//     runtime parameter values and validating the interface state against
//     the recorded fingerprint after each dispatch.
//   - Manager: picks between the two based on the configured strategy and
//     the cache state, and appends an audit row to the run history.
//
// # Strategies
//
// Three strategies control the record/replay decision:
//
//   - "record": always run live and overwrite the cache on success.
//   - "execute": only replay from cache; a miss or failure is terminal.
//   - "both": replay when a cache entry exists; on any replay failure
//     fall back to a live run driven from the ORIGINAL goal (not from
//     the failing step) and re-record the cache.
//
// The fallback restarts from the goal because the interface state after
// a mid-trajectory failure is unknown; resuming from the failing step
// would compound the divergence that caused the failure.
//
// # Failure semantics
//
// Replay is fail-fast: the first dispatch error or fingerprint mismatch
// stops the run, and no later step is attempted. Errors carry a stable
// code, the zero-based step index, and the measured Hamming distance so
// callers can report precisely where and how far the interface diverged.
// A live run that terminates abnormally discards its partial trajectory;
// the cache only ever holds documents that completed their goal.
package engine
