package nxt

import (
	"errors"
	"fmt"
)

// Sentinel errors. Match them with errors.Is; the error callback receives
// the full wrapped message.
var (
	// ErrValidation is wrapped by every *ValidationError.
	ErrValidation = errors.New("nxt: validation error")

	// ErrOutOfMemory is returned when a backend allocation fails or the
	// device memory budget is exhausted.
	ErrOutOfMemory = errors.New("nxt: out of memory")

	// ErrDeviceLost is returned for operations on a device that has been
	// shut down.
	ErrDeviceLost = errors.New("nxt: device lost")

	// ErrNoBackend is returned by NewDevice when no registered backend
	// matches the descriptor.
	ErrNoBackend = errors.New("nxt: no backend available")

	// ErrNoAdapter is returned by NewDevice when no adapter exposes the
	// required features.
	ErrNoAdapter = errors.New("nxt: no suitable adapter")

	// ErrSwapChain is wrapped by swap chain implementation failures.
	ErrSwapChain = errors.New("nxt: swap chain error")
)

// ValidationError reports a violation of the API contract. Message is
// stable across runs and is what the device error callback receives.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap makes errors.Is(err, ErrValidation) true for validation errors.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// validationError formats a *ValidationError.
func validationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// badValue is the range-check failure for a public entry point argument.
func badValue(method string) error {
	return &ValidationError{Message: "Bad value in " + method}
}

// outOfMemory wraps a backend allocation failure.
func outOfMemory(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrOutOfMemory, what, err)
}
