// Package starlarkrt runs the main script in an embedded Starlark
// interpreter.
//
// Scripts see a predeclared sys module (argv, executable, exit) and a thread
// module. thread.start runs a callable on its own goroutine and Starlark
// thread. Starlark values are not safe for concurrent mutation, so a runtime
// lock is held by whichever goroutine is executing Starlark code; a started
// thread waits for it, and join and thread.sleep release it while blocked.
// Execution returns once the main module and every started thread have
// finished.
package starlarkrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
)

// Name is the registry name of this adapter.
const Name = "starlark"

// DefaultScript is the script executed when configuration names none.
const DefaultScript = "makehuman.star"

// ErrThreadsDisabled is returned by thread.start before EnableConcurrency.
var ErrThreadsDisabled = errors.New("thread support not enabled")

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("sys.exit(%d)", e.code)
}

type loadEntry struct {
	globals starlark.StringDict
	err     error
}

// Runtime is an embedded Starlark interpreter.
type Runtime struct {
	program     string
	argv        []string
	initialized bool
	finalized   bool
	threads     atomic.Bool
	spawned     atomic.Int64

	predeclared starlark.StringDict
	globals     starlark.StringDict
	baseDir     string
	loads       map[string]*loadEntry

	lock sync.Mutex
	wg   sync.WaitGroup

	outMu  sync.Mutex
	Stdout io.Writer
	Stderr io.Writer
}

// New creates an uninitialized Starlark runtime.
func New(scriptrt.Options) scriptrt.ScriptRuntime {
	return &Runtime{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) SetProgramName(name string) { r.program = name }

// Initialize builds the predeclared environment.
func (r *Runtime) Initialize(ctx context.Context) error {
	r.loads = make(map[string]*loadEntry)
	r.predeclared = starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
		"sys":    r.sysModule(),
		"thread": &starlarkstruct.Module{
			Name: "thread",
			Members: starlark.StringDict{
				"start": starlark.NewBuiltin("thread.start", r.threadStart),
				"sleep": starlark.NewBuiltin("thread.sleep", r.threadSleep),
			},
		},
	}
	r.initialized = true
	return nil
}

func (r *Runtime) sysModule() *starlarkstruct.Module {
	argv := make([]starlark.Value, 0, len(r.argv))
	for _, a := range r.argv {
		argv = append(argv, starlark.String(a))
	}
	return &starlarkstruct.Module{
		Name: "sys",
		Members: starlark.StringDict{
			"argv":       starlark.NewList(argv),
			"executable": starlark.String(r.program),
			"exit":       starlark.NewBuiltin("sys.exit", sysExit),
		},
	}
}

// BindArguments exposes argv as sys.argv.
func (r *Runtime) BindArguments(argv []string) {
	r.argv = append([]string(nil), argv...)
	if r.predeclared != nil {
		r.predeclared["sys"] = r.sysModule()
	}
}

// EnableConcurrency allows thread.start.
func (r *Runtime) EnableConcurrency() error {
	r.threads.Store(true)
	return nil
}

// ExecuteFile executes the module at path and waits for its threads.
func (r *Runtime) ExecuteFile(ctx context.Context, path string) (int, error) {
	if !r.initialized {
		return 1, scriptrt.ErrNotInitialized
	}
	r.baseDir = filepath.Dir(path)

	r.lock.Lock()
	globals, err := starlark.ExecFileOptions(fileOptions, r.newThread("main"), path, nil, r.predeclared)
	r.lock.Unlock()
	r.wg.Wait()
	r.globals = globals

	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code, nil
		}
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return 1, errors.New(evalErr.Backtrace())
		}
		return 1, err
	}
	return 0, nil
}

// Globals returns the main module's globals after ExecuteFile.
func (r *Runtime) Globals() starlark.StringDict {
	return r.globals
}

// Shutdown drops interpreter state.
func (r *Runtime) Shutdown() error {
	r.predeclared = nil
	r.globals = nil
	r.loads = nil
	r.finalized = true
	return nil
}

// Finalized reports whether Shutdown has run.
func (r *Runtime) Finalized() bool { return r.finalized }

func (r *Runtime) newThread(name string) *starlark.Thread {
	return &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			r.outMu.Lock()
			defer r.outMu.Unlock()
			fmt.Fprintln(r.Stdout, msg)
		},
		Load: r.load,
	}
}

// load resolves modules relative to the main script. Load statements only
// run at module top level, so this is only reached from the main goroutine.
func (r *Runtime) load(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	path := module
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, module)
	}

	e, ok := r.loads[path]
	if e == nil {
		if ok {
			return nil, fmt.Errorf("cycle in load graph at %s", module)
		}
		r.loads[path] = nil
		globals, err := starlark.ExecFileOptions(fileOptions, r.newThread("load "+module), path, nil, r.predeclared)
		e = &loadEntry{globals: globals, err: err}
		r.loads[path] = e
	}
	return e.globals, e.err
}

func sysExit(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	code := 0
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &code); err != nil {
		return nil, err
	}
	return nil, &exitError{code: code}
}

func (r *Runtime) threadStart(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if !r.threads.Load() {
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrThreadsDisabled)
	}
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s: missing function argument", b.Name())
	}
	fn, ok := args[0].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%s: %s is not callable", b.Name(), args[0].Type())
	}

	callArgs := append(starlark.Tuple(nil), args[1:]...)
	fn.Freeze()
	callArgs.Freeze()

	name := fmt.Sprintf("thread-%d", r.spawned.Add(1))
	done := make(chan struct{})
	var (
		result starlark.Value = starlark.None
		callErr error
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(done)

		r.lock.Lock()
		defer r.lock.Unlock()

		v, err := starlark.Call(r.newThread(name), fn, callArgs, nil)
		if err != nil {
			callErr = err
			r.outMu.Lock()
			fmt.Fprintf(r.Stderr, "Exception in %s: %v\n", name, err)
			r.outMu.Unlock()
			return
		}
		v.Freeze()
		result = v
	}()

	join := starlark.NewBuiltin("join", func(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0); err != nil {
			return nil, err
		}
		r.lock.Unlock()
		<-done
		r.lock.Lock()

		if callErr != nil {
			return nil, fmt.Errorf("%s failed: %w", name, callErr)
		}
		return result, nil
	})

	return starlarkstruct.FromStringDict(starlark.String("thread"), starlark.StringDict{
		"name": starlark.String(name),
		"join": join,
	}), nil
}

// threadSleep pauses the calling thread without holding the runtime lock.
func (r *Runtime) threadSleep(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seconds starlark.Value = starlark.MakeInt(0)
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 0, &seconds); err != nil {
		return nil, err
	}
	f, ok := starlark.AsFloat(seconds)
	if !ok || f < 0 {
		return nil, fmt.Errorf("%s: invalid duration %s", b.Name(), seconds)
	}

	r.lock.Unlock()
	time.Sleep(time.Duration(f * float64(time.Second)))
	r.lock.Lock()

	return starlark.None, nil
}
