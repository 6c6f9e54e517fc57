/*
errors.go - Error taxonomy of the depreciation engine

ERROR CATEGORIES:
  1. InvalidArgument   - malformed input to a pure helper (start after stop,
                         unknown duration mode, unknown currency)
  2. InvalidAssetState - asset-level precondition violated (negative base,
                         unknown method, inconsistent locked periods)
  3. SchedulerError    - umbrella returned by Depreciate, wrapping one of the
                         above

Every error is returned as a value. The engine never logs and never returns a
partial schedule alongside an error.

USAGE:
  periods, err := depreciation.Depreciate(asset)
  if errors.Is(err, depreciation.ErrInvalidAssetState) {
      // caller bug: fix the snapshot
  }

  var stateErr *depreciation.InvalidAssetStateError
  if errors.As(err, &stateErr) {
      log.Println(stateErr.Field, stateErr.Reason)
  }
*/
package depreciation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidArgument is returned by pure helpers on malformed input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvalidAssetState is returned when the asset snapshot violates a
	// precondition of the scheduler.
	ErrInvalidAssetState = errors.New("invalid asset state")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidArgumentError names the offending argument.
type InvalidArgumentError struct {
	Argument string
	Reason   string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Argument, e.Reason)
}

func (e *InvalidArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

// InvalidAssetStateError names the asset field (or locked period) at fault.
type InvalidAssetStateError struct {
	Field  string
	Reason string
}

func (e *InvalidAssetStateError) Error() string {
	return fmt.Sprintf("invalid asset state: %s %s", e.Field, e.Reason)
}

func (e *InvalidAssetStateError) Unwrap() error {
	return ErrInvalidAssetState
}

// SchedulerError wraps any failure of Depreciate with the asset it concerns.
type SchedulerError struct {
	AssetID string
	Err     error
}

func (e *SchedulerError) Error() string {
	if e.AssetID == "" {
		return "depreciation schedule: " + e.Err.Error()
	}
	return fmt.Sprintf("depreciation schedule for asset %s: %v", e.AssetID, e.Err)
}

func (e *SchedulerError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

func invalidState(field, format string, args ...any) error {
	return &InvalidAssetStateError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsInvalidArgument returns true if err is (or wraps) an InvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsInvalidAssetState returns true if err is (or wraps) an InvalidAssetState.
func IsInvalidAssetState(err error) bool {
	return errors.Is(err, ErrInvalidAssetState)
}

// IsClientError returns true if the error stems from bad input rather than
// from the engine itself.
func IsClientError(err error) bool {
	return IsInvalidArgument(err) || IsInvalidAssetState(err)
}
