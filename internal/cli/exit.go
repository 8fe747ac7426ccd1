package cli

import (
	"errors"

	"github.com/rshade/carbonledger/internal/engine"
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfiguration = 2
	ExitPartial       = 3
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code   int
	Reason string
}

func (e *ExitError) Error() string {
	return e.Reason
}

// ExitCode maps a command error to a process exit code. Missing flowchart,
// scope or emission factor configuration exits with ExitConfiguration so
// scripts can tell a setup problem from a data problem.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if engine.IsConfigurationError(err) {
		return ExitConfiguration
	}
	return ExitFailure
}
