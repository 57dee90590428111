// Package cachestore reads and writes cache documents as versioned JSON
// files. Pure persistence, no policy: strategy decisions live in the
// engine package.
//
// LOAD PIPELINE:
//
//	read file -> CUE schema validation -> JSON decode -> invariant checks
//
// Raw bytes are validated against the embedded CUE schema before decoding,
// so shape violations are reported with schema-level messages instead of
// half-decoded structs. The decoded document then runs the full
// data-model invariant checks (placeholder references, threshold ranges,
// per-kind input shapes). Any violation yields InvalidDocumentError and
// no document: a cache file is never partially trusted.
//
// SAVE ATOMICITY:
//
// Save writes to a temporary file in the target directory and renames it
// over the destination. A failed save leaves the prior file (if any)
// untouched; a later load can never see a truncated document.
//
// The store assumes single-writer, single-reader-at-a-time access per
// path. Callers running concurrent automation must use distinct cache
// files or external locking.
package cachestore
