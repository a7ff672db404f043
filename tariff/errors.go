/*
errors.go - Error types for the pricing engine

ERROR CATEGORIES:
  1. Input errors - malformed dates, exit before entry, unknown rate type
  2. Configuration errors - a rate needs a window or extra rate that is missing
  3. Upstream errors - a ConfigSource read failed

PROPAGATION:
  The engine never logs, retries or masks. Every error bubbles to the caller,
  who maps it to a response (see api/handlers.go).

USAGE:
  res, err := engine.CalculateAdvancedPrice(ctx, entry, rate, d, t)
  switch {
  case errors.Is(err, tariff.ErrInvalidInterval):
      // 400
  case errors.Is(err, tariff.ErrUpstreamFetch):
      // 502, caller may retry the whole request
  }
*/
package tariff

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned when the exit instant precedes the entry instant.
	ErrInvalidInterval = errors.New("invalid interval: exit before entry")

	// ErrInvalidInput is returned for malformed dates, clock times or rates.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownRateType is returned when a rate type label cannot be parsed.
	ErrUnknownRateType = errors.New("unknown rate type")

	// ErrMissingRateConfiguration is returned when a rate needs configuration
	// (a time window, an extra rate, a threshold target) that does not exist.
	ErrMissingRateConfiguration = errors.New("missing rate configuration")

	// ErrUpstreamFetch is returned when a configuration read fails.
	ErrUpstreamFetch = errors.New("configuration fetch failed")

	// ErrRateNotFound is returned by stores when a rate ID does not exist.
	ErrRateNotFound = errors.New("rate not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IntervalError describes a stay whose exit precedes its entry.
type IntervalError struct {
	Entry time.Time
	Exit  time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: exit %s before entry %s",
		e.Exit.Format(instantLayout), e.Entry.Format(instantLayout))
}

func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

// MissingConfigError names the configuration a rate was missing.
type MissingConfigError struct {
	RateID RateID
	What   string // e.g. "overnight time window", "extra rate r-hora"
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing rate configuration for %s: %s", e.RateID, e.What)
}

func (e *MissingConfigError) Unwrap() error {
	return ErrMissingRateConfiguration
}

// FetchError wraps a ConfigSource failure. It unwraps to both
// ErrUpstreamFetch and the original cause.
type FetchError struct {
	Op  string // e.g. "time_windows", "thresholds"
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("configuration fetch failed (%s): %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrUpstreamFetch, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownRateType)
}

// IsNotFound returns true if the requested rate does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRateNotFound)
}

// IsConfigurationError returns true if the tariff tables are incomplete.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrMissingRateConfiguration)
}

// IsUpstream returns true if a configuration read failed.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstreamFetch)
}
