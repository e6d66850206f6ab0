// Package luart runs the main script in an embedded Lua VM (gopher-lua).
//
// The script sees the argument vector twice: arg follows the stand-alone Lua
// convention (arg[0] is the program, arg[1..n] the rest) and argv is the exact
// vector, 1-based. os.exit is replaced so that an exit status flows back to
// the launcher instead of ending the process from inside the VM. Called from a
// thread started with thread.start, os.exit ends only that thread.
//
// A Lua state is not safe for concurrent use. Once concurrency is enabled, a
// runtime lock is held by whichever goroutine is executing Lua; threads
// started with thread.start wait for it, and thread.join and thread.sleep
// release it while blocked.
package luart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
)

// Name is the registry name of this adapter.
const Name = "lua"

// DefaultScript is the script executed when configuration names none.
const DefaultScript = "makehuman.lua"

// ErrThreadsDisabled is raised by thread.start before EnableConcurrency.
var ErrThreadsDisabled = errors.New("thread support not enabled")

const exitSentinel = "__mhlaunch_exit__"

type luaThread struct {
	name   string
	done   chan struct{}
	result lua.LValue
	err    error
}

// Runtime is an embedded Lua VM.
type Runtime struct {
	L       *lua.LState
	program string
	argv    []string
	threads atomic.Bool
	spawned atomic.Int64

	lock sync.Mutex
	wg   sync.WaitGroup

	exiting  bool
	exitCode int

	Stderr io.Writer
}

// New creates an uninitialized Lua runtime.
func New(scriptrt.Options) scriptrt.ScriptRuntime {
	return &Runtime{Stderr: os.Stderr}
}

func (r *Runtime) Name() string { return Name }

func (r *Runtime) SetProgramName(name string) { r.program = name }

// Initialize opens a Lua state with the standard libraries.
func (r *Runtime) Initialize(ctx context.Context) error {
	L := lua.NewState()
	L.SetGlobal("progname", lua.LString(r.program))

	osTbl, ok := L.GetGlobal("os").(*lua.LTable)
	if !ok {
		L.Close()
		return fmt.Errorf("lua os library missing")
	}
	L.SetField(osTbl, "exit", L.NewFunction(r.luaExit))

	threadTbl := L.NewTable()
	L.SetFuncs(threadTbl, map[string]lua.LGFunction{
		"start": r.threadStart,
		"join":  r.threadJoin,
		"sleep": r.threadSleep,
	})
	L.SetGlobal("thread", threadTbl)

	r.L = L
	return nil
}

// BindArguments sets the arg and argv globals.
func (r *Runtime) BindArguments(argv []string) {
	r.argv = append([]string(nil), argv...)
	if r.L == nil {
		return
	}

	arg := r.L.NewTable()
	exact := r.L.NewTable()
	for i, a := range r.argv {
		arg.RawSetInt(i, lua.LString(a))
		exact.RawSetInt(i+1, lua.LString(a))
	}
	r.L.SetGlobal("arg", arg)
	r.L.SetGlobal("argv", exact)
}

// EnableConcurrency turns on thread.start.
func (r *Runtime) EnableConcurrency() error {
	r.threads.Store(true)
	return nil
}

// ExecuteFile runs the chunk at path, then waits for started threads.
func (r *Runtime) ExecuteFile(ctx context.Context, path string) (int, error) {
	if r.L == nil {
		return 1, scriptrt.ErrNotInitialized
	}

	r.lock.Lock()
	err := r.L.DoFile(path)
	r.lock.Unlock()
	r.wg.Wait()

	if r.exiting {
		return r.exitCode, nil
	}
	if err != nil {
		return 1, fmt.Errorf("lua: %w", err)
	}
	return 0, nil
}

// Shutdown closes the Lua state.
func (r *Runtime) Shutdown() error {
	if r.L != nil {
		r.L.Close()
		r.L = nil
	}
	return nil
}

// Finalized reports whether Shutdown has run.
func (r *Runtime) Finalized() bool { return r.L == nil }

func (r *Runtime) luaExit(L *lua.LState) int {
	code := 0
	switch v := L.Get(1).(type) {
	case lua.LBool:
		if !bool(v) {
			code = 1
		}
	case lua.LNumber:
		code = int(v)
	}
	if L == r.L {
		r.exitCode = code
		r.exiting = true
	}
	L.RaiseError(exitSentinel)
	return 0
}

func (r *Runtime) threadStart(L *lua.LState) int {
	if !r.threads.Load() {
		L.RaiseError("thread.start: %s", ErrThreadsDisabled)
		return 0
	}
	fn := L.CheckFunction(1)
	args := make([]lua.LValue, 0, L.GetTop())
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, L.Get(i))
	}

	co, cancel := L.NewThread()
	t := &luaThread{
		name: fmt.Sprintf("thread-%d", r.spawned.Add(1)),
		done: make(chan struct{}),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(t.done)
		if cancel != nil {
			defer cancel()
		}

		r.lock.Lock()
		defer r.lock.Unlock()

		if err := co.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
			if isExit(err) {
				return
			}
			t.err = err
			fmt.Fprintf(r.Stderr, "Exception in %s: %v\n", t.name, err)
			return
		}
		t.result = co.Get(-1)
		co.Pop(1)
	}()

	ud := L.NewUserData()
	ud.Value = t
	L.Push(ud)
	return 1
}

func (r *Runtime) threadJoin(L *lua.LState) int {
	ud := L.CheckUserData(1)
	t, ok := ud.Value.(*luaThread)
	if !ok {
		L.ArgError(1, "thread handle expected")
		return 0
	}

	r.lock.Unlock()
	<-t.done
	r.lock.Lock()

	if t.err != nil {
		L.RaiseError("%s failed: %s", t.name, t.err.Error())
		return 0
	}
	if t.result == nil {
		L.Push(lua.LNil)
	} else {
		L.Push(t.result)
	}
	return 1
}

func (r *Runtime) threadSleep(L *lua.LState) int {
	seconds := float64(L.OptNumber(1, 0))

	r.lock.Unlock()
	time.Sleep(time.Duration(seconds * float64(time.Second)))
	r.lock.Lock()

	return 0
}

func isExit(err error) bool {
	return strings.Contains(err.Error(), exitSentinel)
}
