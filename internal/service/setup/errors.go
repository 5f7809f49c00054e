package setup

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"github.com/idrisfallout/artemis-installer/internal/payload"
)

// Exit codes reported by the installer CLI.
const (
	// ExitOK means the install or uninstall completed.
	ExitOK = 0
	// ExitValidationFailed means the installer's inputs were unusable and
	// nothing was mutated.
	ExitValidationFailed = 2
	// ExitWriteFailed means a filesystem or registry write failed.
	ExitWriteFailed = 3
	// ExitUserCancelled means the user declined the confirmation prompt.
	ExitUserCancelled = 4
)

var (
	// ErrCancelled is returned when the user declines to proceed.
	ErrCancelled = errors.New("installation cancelled by user")
	// ErrDestinationNotWritable flags a permissions problem; the message
	// carries the remediation hint directly.
	ErrDestinationNotWritable = errors.New("destination is not writable - run the installer as administrator")
	// ErrDiskFull flags an exhausted target volume.
	ErrDiskFull = errors.New("not enough free disk space")
	// errInvalidPlan marks an unreadable or structurally invalid embedded plan.
	errInvalidPlan = errors.New("embedded install plan is invalid")
	// errNothingInstalled is returned by uninstall when no record exists.
	errNothingInstalled = errors.New("nothing is installed: uninstall record not found")
)

// EnvironmentMutationError reports a failed registry read or write during the
// PATH mutation. The refresh broadcast is never attempted after one of these,
// so a stale value is never advertised to the session.
type EnvironmentMutationError struct {
	// Variable is the environment variable being mutated.
	Variable string
	// Err is the underlying registry failure.
	Err error
}

// Error renders the variable and cause.
func (e *EnvironmentMutationError) Error() string {
	return fmt.Sprintf("environment mutation of %s failed: %v", e.Variable, e.Err)
}

// Unwrap exposes the underlying failure.
func (e *EnvironmentMutationError) Unwrap() error {
	return e.Err
}

// ExitCode maps an install/uninstall error to the CLI exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, ErrCancelled) {
		return ExitUserCancelled
	}

	if errors.Is(err, ErrDestinationNotWritable) || errors.Is(err, ErrDiskFull) {
		return ExitWriteFailed
	}

	var envErr *EnvironmentMutationError
	if errors.As(err, &envErr) {
		return ExitWriteFailed
	}

	if errors.Is(err, payload.ErrNoPayload) ||
		errors.Is(err, errInvalidPlan) ||
		errors.Is(err, errNothingInstalled) {
		return ExitValidationFailed
	}

	return 1
}

// classifyWriteError maps filesystem failures onto the install error
// taxonomy so the CLI can report an actionable message and exit code.
func classifyWriteError(path string, err error) error {
	switch {
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%s: %w", path, ErrDestinationNotWritable)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%s: %w", path, ErrDiskFull)
	default:
		return fmt.Errorf("%s: %w", path, err)
	}
}
