package launcher

import "fmt"

// Process exit codes.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Fixed diagnostics written to stderr.
const (
	MsgInitFailure      = "Could not initialize runtime"
	MsgScriptFailure    = "Could not run main script"
	MsgNoExecutablePath = "couldn't get executable path"
)

// Kind distinguishes the two fatal launch errors.
type Kind string

const (
	KindRuntimeInit     Kind = "runtime_init_failure"
	KindScriptExecution Kind = "script_execution_failure"
)

// LaunchError is a fatal launch failure. Both kinds end the process with
// ExitFailure.
type LaunchError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *LaunchError) Error() string {
	switch {
	case e.Err != nil && e.Kind == KindScriptExecution:
		return fmt.Sprintf("%s (status %d): %v", e.Kind, e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Kind == KindScriptExecution:
		return fmt.Sprintf("%s: script exited with status %d", e.Kind, e.Status)
	default:
		return string(e.Kind)
	}
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExitCode is the process exit code for the error.
func (e *LaunchError) ExitCode() int {
	return ExitFailure
}
