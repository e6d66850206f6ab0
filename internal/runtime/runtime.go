// Package runtime defines the contract between the launcher and a script
// runtime, plus the owned handle and the registry of available adapters.
package runtime

import (
	"context"
	"errors"
)

// ErrInitFailed marks a runtime that could not reach the initialized state.
var ErrInitFailed = errors.New("runtime initialization failed")

// ErrNotInitialized is returned by adapters asked to execute before Initialize.
var ErrNotInitialized = errors.New("runtime not initialized")

// ScriptRuntime is a separately-versioned execution environment the launcher
// hands control to. Calls arrive in a fixed order from a single goroutine:
// SetProgramName, Initialize, BindArguments, EnableConcurrency, ExecuteFile,
// and Shutdown only when execution succeeded.
type ScriptRuntime interface {
	Name() string
	SetProgramName(name string)
	Initialize(ctx context.Context) error
	BindArguments(argv []string)
	EnableConcurrency() error
	// ExecuteFile loads and fully executes the file at path. A non-nil error
	// means the script could not run to completion; status is the exit
	// status the script asked for.
	ExecuteFile(ctx context.Context, path string) (status int, err error)
	Shutdown() error
}

// Options carry adapter settings resolved from configuration.
type Options struct {
	// Interpreter is the executable used by out-of-process adapters.
	Interpreter string
}

// Factory builds a fresh, uninitialized runtime.
type Factory func(opts Options) ScriptRuntime
