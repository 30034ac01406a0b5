package core

import (
	"errors"
	"fmt"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrUnknown          = errors.New("unknown")
)

// Process exit codes.
const (
	ExitOK            = 0
	ExitCommandLine   = 1
	ExitNoScript      = 2
	ExitNoPrograms    = 3
	ExitShaderCompile = 4
	ExitGraphicsInit  = 5
)

// ExitError pairs an error with the exit code the process should return.
type ExitError struct {
	Code int
	Err  error
}

func NewExitError(code int, err error) *ExitError {
	return &ExitError{Code: code, Err: err}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode extracts the exit code carried by err. Errors without one map to
// ExitCommandLine, nil maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandLine
}
