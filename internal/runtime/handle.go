package runtime

import (
	"context"
	"fmt"
	"sync"
)

// Handle is an initialized runtime owned by the launcher. Release tears the
// runtime down at most once; a Handle never exists for a runtime that failed
// to initialize.
type Handle struct {
	rt       ScriptRuntime
	once     sync.Once
	released bool
	err      error
}

// Acquire names the program and initializes rt.
func Acquire(ctx context.Context, rt ScriptRuntime, programName string) (*Handle, error) {
	rt.SetProgramName(programName)
	if err := rt.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInitFailed, rt.Name(), err)
	}
	return &Handle{rt: rt}, nil
}

// Runtime returns the owned runtime.
func (h *Handle) Runtime() ScriptRuntime {
	return h.rt
}

// Release shuts the runtime down. Subsequent calls return the first result.
func (h *Handle) Release() error {
	h.once.Do(func() {
		h.err = h.rt.Shutdown()
		h.released = true
	})
	return h.err
}

// Released reports whether Release has run.
func (h *Handle) Released() bool {
	return h.released
}
