package runtime

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type stubRuntime struct {
	initErr   error
	program   string
	shutdowns int
}

func (s *stubRuntime) Name() string                   { return "stub" }
func (s *stubRuntime) SetProgramName(name string)     { s.program = name }
func (s *stubRuntime) Initialize(context.Context) error { return s.initErr }
func (s *stubRuntime) BindArguments([]string)         {}
func (s *stubRuntime) EnableConcurrency() error       { return nil }
func (s *stubRuntime) ExecuteFile(context.Context, string) (int, error) {
	return 0, nil
}
func (s *stubRuntime) Shutdown() error {
	s.shutdowns++
	return nil
}

func TestAcquireAndRelease(t *testing.T) {
	rt := &stubRuntime{}

	h, err := Acquire(context.Background(), rt, "makehuman")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if rt.program != "makehuman" {
		t.Errorf("program name = %q, expected makehuman", rt.program)
	}
	if h.Released() {
		t.Error("fresh handle reports released")
	}

	for i := 0; i < 3; i++ {
		if err := h.Release(); err != nil {
			t.Fatalf("Release: %v", err)
		}
	}
	if rt.shutdowns != 1 {
		t.Errorf("Shutdown called %d times, expected 1", rt.shutdowns)
	}
	if !h.Released() {
		t.Error("handle not marked released")
	}
}

func TestAcquireInitFailure(t *testing.T) {
	cause := errors.New("no interpreter")
	rt := &stubRuntime{initErr: cause}

	h, err := Acquire(context.Background(), rt, "makehuman")
	if h != nil {
		t.Fatal("expected no handle on init failure")
	}
	if !errors.Is(err, ErrInitFailed) || !errors.Is(err, cause) {
		t.Errorf("error %v should wrap ErrInitFailed and the cause", err)
	}
	if rt.shutdowns != 0 {
		t.Error("Shutdown must not run for a runtime that never initialized")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	factory := func(Options) ScriptRuntime { return &stubRuntime{} }

	if err := reg.Register("lua", "makehuman.lua", factory); err != nil {
		t.Fatalf("Register lua: %v", err)
	}
	if err := reg.Register("process", "makehuman.py", factory); err != nil {
		t.Fatalf("Register process: %v", err)
	}

	tests := []struct {
		desc    string
		name    string
		factory Factory
	}{
		{"duplicate name", "lua", factory},
		{"empty name", "", factory},
		{"nil factory", "starlark", nil},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if err := reg.Register(tt.name, "x", tt.factory); err == nil {
				t.Errorf("expected error registering %q", tt.name)
			}
		})
	}

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"lua", "process"}) {
		t.Errorf("Names() = %v", got)
	}
	if got := reg.DefaultScript("process"); got != "makehuman.py" {
		t.Errorf("DefaultScript(process) = %q", got)
	}
	if _, err := reg.New("ruby", Options{}); err == nil {
		t.Error("expected error for unknown runtime")
	}
	if rt, err := reg.New("lua", Options{}); err != nil || rt == nil {
		t.Errorf("New(lua) = %v, %v", rt, err)
	}
}
