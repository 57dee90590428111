// Package trajectory defines the cache document data model.
//
// A CacheDocument is the persisted unit of the trajectory cache: one
// recorded run of UI actions, templatized with named placeholders and
// annotated with visual fingerprints of the interface state after each
// action.
//
// DOCUMENT SHAPE:
//
//	metadata          - schema version, creation time, goal text,
//	                    verification method and its region/threshold settings
//	trajectory        - ordered, non-empty sequence of CacheStep
//	cache_parameters  - placeholder name -> human-readable description
//
// INVARIANTS (enforced by Document.Validate):
//
//   - trajectory is non-empty
//   - every {{name}} token referenced by any step input resolves to a key
//     in cache_parameters
//   - threshold is within 0..64 and region size is positive
//   - every step's input matches the declared shape for its action kind
//   - steps carry a fingerprint exactly when the verification method
//     requires one
//
// A document that violates any invariant is invalid and must never be
// partially trusted: callers get a populated Document only when every
// check passes.
//
// IMMUTABILITY:
//
// Once written, a document is never mutated in place. Re-recording
// produces a new document that fully replaces the prior file content.
// Replay works on an in-memory copy; substitution never touches the
// stored form.
package trajectory
