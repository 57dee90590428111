// Package history provides the durable audit trail of run attempts.
//
// Every strategy run — replay or live, succeeded or failed — appends one
// row describing what happened: which goal, which strategy, whether the
// result came from the cache or a live run, and on failure which step
// broke and at what measured distance. Over time the rows show when a
// cached trajectory started drifting from the target interface, which is
// the signal callers use to decide between re-recording and investigating.
//
// Uses SQLite with WAL mode. SQLite only supports one writer at a time,
// so the connection pool is capped at a single connection; the engine
// writes history best-effort and never fails a run on a history error.
package history
