// Package process runs the main script in an external interpreter
// executable. The launcher blocks until that interpreter exits and takes its
// exit status as the script's status.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"sync"

	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
)

// Name is the registry name of this adapter.
const Name = "process"

// DefaultScript is the script executed when configuration names none.
const DefaultScript = "makehuman.py"

// Environment variables read by the bootstrap snippet.
const (
	EnvScript      = "MHLAUNCH_SCRIPT"
	EnvProgramName = "MHLAUNCH_PROGRAM_NAME"
	EnvThreads     = "MHLAUNCH_THREADS"
)

// bootstrap replaces sys.argv with the launcher's argument vector (everything
// after "-c <code>") and runs the script as __main__.
const bootstrap = `import os, sys, runpy
sys.argv = sys.argv[1:]
runpy.run_path(os.environ["` + EnvScript + `"], run_name="__main__")
`

// DefaultInterpreter returns the interpreter looked up when none is configured.
func DefaultInterpreter() string {
	if runtime.GOOS == "windows" {
		return "python"
	}
	return "python3"
}

// Runtime drives an interpreter process.
type Runtime struct {
	interpreter string
	resolved    string
	program     string
	argv        []string
	threads     bool
	initialized bool
	finalized   bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	mu sync.Mutex
}

// New creates an uninitialized process runtime.
func New(opts scriptrt.Options) scriptrt.ScriptRuntime {
	interpreter := opts.Interpreter
	if interpreter == "" {
		interpreter = DefaultInterpreter()
	}
	return &Runtime{
		interpreter: interpreter,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) SetProgramName(name string) { r.program = name }

// Initialize resolves the interpreter executable.
func (r *Runtime) Initialize(ctx context.Context) error {
	path, err := exec.LookPath(r.interpreter)
	if err != nil {
		return fmt.Errorf("interpreter %q: %w", r.interpreter, err)
	}
	r.resolved = path
	r.initialized = true
	return nil
}

// Interpreter returns the resolved interpreter path, empty before Initialize.
func (r *Runtime) Interpreter() string { return r.resolved }

func (r *Runtime) BindArguments(argv []string) {
	r.argv = append([]string(nil), argv...)
}

// EnableConcurrency is recorded and exported to the child; the interpreter
// process owns its own threads.
func (r *Runtime) EnableConcurrency() error {
	r.threads = true
	return nil
}

// ExecuteFile runs the interpreter until it exits.
func (r *Runtime) ExecuteFile(ctx context.Context, path string) (int, error) {
	if !r.initialized {
		return 1, scriptrt.ErrNotInitialized
	}

	args := append([]string{"-c", bootstrap}, r.argv...)
	cmd := exec.CommandContext(ctx, r.resolved, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Env = append(os.Environ(),
		EnvScript+"="+path,
		EnvProgramName+"="+r.program,
	)
	if r.threads {
		cmd.Env = append(cmd.Env, EnvThreads+"=1")
	}

	// Terminal interrupts reach the child directly; the launcher keeps
	// waiting for the child's own exit status.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	defer signal.Stop(sigChan)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			return 1, fmt.Errorf("interpreter terminated: %w", err)
		}
		return code, nil
	}
	return 1, fmt.Errorf("failed to start interpreter: %w", err)
}

// Shutdown marks the runtime finalized. There is no child left to reap.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = true
	return nil
}

// Finalized reports whether Shutdown has run.
func (r *Runtime) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}
