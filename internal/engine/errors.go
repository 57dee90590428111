package engine

import (
	"errors"
	"fmt"
)

// RunErrorCode categorizes run failures.
type RunErrorCode string

const (
	// ErrCodeCacheMiss indicates no cache entry exists for the goal.
	ErrCodeCacheMiss RunErrorCode = "CACHE_MISS"

	// ErrCodeCacheInvalid indicates the cache entry exists but failed
	// schema or semantic validation on load.
	ErrCodeCacheInvalid RunErrorCode = "CACHE_INVALID"

	// ErrCodeMissingParameter indicates a replay was started without a
	// runtime value for a declared parameter.
	ErrCodeMissingParameter RunErrorCode = "MISSING_PARAMETER"

	// ErrCodeValidationFailed indicates a post-step fingerprint exceeded
	// the configured Hamming distance threshold.
	ErrCodeValidationFailed RunErrorCode = "VALIDATION_FAILED"

	// ErrCodeDispatchFailed indicates the executor rejected or failed an
	// action.
	ErrCodeDispatchFailed RunErrorCode = "ACTION_DISPATCH_FAILED"

	// ErrCodePersistenceFailed indicates a recorded trajectory could not
	// be written to the cache.
	ErrCodePersistenceFailed RunErrorCode = "PERSISTENCE_FAILED"

	// ErrCodeRecordingFailed indicates the live run itself failed before
	// a complete trajectory was assembled.
	ErrCodeRecordingFailed RunErrorCode = "RECORDING_FAILED"
)

// RunError represents a failure during a record or replay run.
//
// StepIndex, Distance, and Threshold are -1 when not applicable to the
// error category.
type RunError struct {
	// Code identifies the error category.
	Code RunErrorCode

	// Message is a human-readable description.
	Message string

	// StepIndex is the zero-based trajectory position of the failing
	// step, or -1.
	StepIndex int

	// Distance is the measured Hamming distance for validation
	// failures, or -1.
	Distance int

	// Threshold is the configured maximum distance for validation
	// failures, or -1.
	Threshold int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RunError) Error() string {
	if e.Code == ErrCodeValidationFailed {
		return fmt.Sprintf("%s: %s (step=%d, distance=%d, threshold=%d)",
			e.Code, e.Message, e.StepIndex, e.Distance, e.Threshold)
	}
	if e.StepIndex >= 0 {
		return fmt.Sprintf("%s: %s (step=%d)", e.Code, e.Message, e.StepIndex)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RunError) Unwrap() error {
	return e.Err
}

// CodeOf extracts the run error code from err, or "" if err is not a
// RunError. Uses errors.As to handle wrapped errors.
func CodeOf(err error) RunErrorCode {
	var re *RunError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCacheMiss returns true if the error is a cache miss.
func IsCacheMiss(err error) bool {
	return CodeOf(err) == ErrCodeCacheMiss
}

// IsValidationFailed returns true if the error is a fingerprint
// validation failure.
func IsValidationFailed(err error) bool {
	return CodeOf(err) == ErrCodeValidationFailed
}

// IsDispatchFailed returns true if the error is an executor dispatch
// failure.
func IsDispatchFailed(err error) bool {
	return CodeOf(err) == ErrCodeDispatchFailed
}

func newCacheMissError(path string, err error) *RunError {
	return &RunError{
		Code:      ErrCodeCacheMiss,
		Message:   fmt.Sprintf("no cached trajectory at %s", path),
		StepIndex: -1,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}

func newCacheInvalidError(path string, err error) *RunError {
	return &RunError{
		Code:      ErrCodeCacheInvalid,
		Message:   fmt.Sprintf("cached trajectory at %s is invalid", path),
		StepIndex: -1,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}

func newMissingParameterError(err error) *RunError {
	return &RunError{
		Code:      ErrCodeMissingParameter,
		Message:   "replay parameters incomplete",
		StepIndex: -1,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}

func newValidationError(step, distance, threshold int) *RunError {
	return &RunError{
		Code:      ErrCodeValidationFailed,
		Message:   "interface state diverged from recording",
		StepIndex: step,
		Distance:  distance,
		Threshold: threshold,
	}
}

func newDispatchError(step int, err error) *RunError {
	return &RunError{
		Code:      ErrCodeDispatchFailed,
		Message:   "executor failed to perform action",
		StepIndex: step,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}

func newPersistenceError(path string, err error) *RunError {
	return &RunError{
		Code:      ErrCodePersistenceFailed,
		Message:   fmt.Sprintf("failed to persist trajectory to %s", path),
		StepIndex: -1,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}

func newRecordingError(msg string, err error) *RunError {
	return &RunError{
		Code:      ErrCodeRecordingFailed,
		Message:   msg,
		StepIndex: -1,
		Distance:  -1,
		Threshold: -1,
		Err:       err,
	}
}
