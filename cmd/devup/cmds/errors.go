package cmds

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

const (
	ExitOK           = 0
	ExitUsage        = 1
	ExitLaunchFailed = 2
)

// codedError carries the process exit code alongside the cause so RunE
// functions stay ordinary error-returning cobra handlers.
type codedError struct {
	code int
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// ErrUsage marks unrecognized or missing input; usage has already been
// printed when it is returned.
var ErrUsage error = &codedError{code: ExitUsage, err: errors.New("unrecognized command")}

// LaunchFailed wraps err so the process exits with ExitLaunchFailed.
func LaunchFailed(err error) error {
	return &codedError{code: ExitLaunchFailed, err: err}
}

// ExitCode maps err to the process exit code: 0 for nil, the embedded code
// for coded errors, ExitUsage otherwise.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *codedError
	if stderrors.As(err, &ce) {
		return ce.code
	}
	return ExitUsage
}
