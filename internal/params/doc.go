// Package params implements the bidirectional mapping between literal
// runtime values and symbolic {{name}} placeholders.
//
// EXTRACTION (record time): an injected Classifier decides which input
// values are dynamic - this package only performs the substitution
// mechanics and placeholder bookkeeping. Each detected value is replaced
// by a unique placeholder token and its description recorded for the
// document's cache_parameters map. Names proposed by the classifier are
// de-conflicted with a numeric suffix, never silently reused.
//
// SUBSTITUTION (replay time): every {{name}} token in a step's input is
// replaced with the runtime value supplied by the caller. A value that is
// exactly one token is replaced by the runtime value verbatim, preserving
// its type; a token embedded in a larger string is spliced in textually
// with the surrounding text intact. A referenced name with no supplied
// value fails with MissingParameterError - substitution is all-or-nothing
// per step.
package params
