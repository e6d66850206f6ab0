package report

import (
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a launch ended.
type Outcome string

const (
	OutcomeSuccess            Outcome = "success"
	OutcomeRuntimeInitFailure Outcome = "runtime_init_failure"
	OutcomeScriptFailure      Outcome = "script_failure"
)

// Phase is a step of the launch sequence.
type Phase string

const (
	PhaseStarting       Phase = "starting"
	PhasePathFixup      Phase = "path_fixup"
	PhaseInitialized    Phase = "initialized"
	PhaseArgsBound      Phase = "args_bound"
	PhaseThreadsEnabled Phase = "threads_enabled"
	PhaseExecuting      Phase = "executing"
	PhaseCompleted      Phase = "completed"
	PhaseFailed         Phase = "failed"
	PhaseTornDown       Phase = "torn_down"
)

// Phases lists every phase in sequence order.
var Phases = []Phase{
	PhaseStarting, PhasePathFixup, PhaseInitialized, PhaseArgsBound,
	PhaseThreadsEnabled, PhaseExecuting, PhaseCompleted, PhaseFailed, PhaseTornDown,
}

// Event records one phase transition.
type Event struct {
	Phase     Phase     `json:"phase" yaml:"phase"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
}

// Result is the record of one launch. It is built by a Recorder and not
// modified after Finish.
type Result struct {
	LaunchID string   `json:"launch_id" yaml:"launch_id"`
	Runtime  string   `json:"runtime" yaml:"runtime"`
	Script   string   `json:"script" yaml:"script"`
	Args     []string `json:"args" yaml:"args"`
	WorkDir  string   `json:"workdir" yaml:"workdir"`

	StartTime       time.Time `json:"start_time" yaml:"start_time"`
	EndTime         time.Time `json:"end_time" yaml:"end_time"`
	DurationSeconds float64   `json:"duration_seconds" yaml:"duration_seconds"`

	Initialized  bool    `json:"runtime_initialized" yaml:"runtime_initialized"`
	ExitCode     int     `json:"exit_code" yaml:"exit_code"`
	ScriptStatus int     `json:"script_status" yaml:"script_status"`
	Outcome      Outcome `json:"outcome" yaml:"outcome"`
	TornDown     bool    `json:"torn_down" yaml:"torn_down"`
	Paused       bool    `json:"paused" yaml:"paused"`
	Error        string  `json:"error,omitempty" yaml:"error,omitempty"`

	Events []Event `json:"events" yaml:"events"`
}

// Reached reports whether the launch went through phase.
func (r *Result) Reached(phase Phase) bool {
	for _, e := range r.Events {
		if e.Phase == phase {
			return true
		}
	}
	return false
}

// Recorder accumulates events during a launch.
type Recorder struct {
	result Result
	now    func() time.Time
}

// NewRecorder starts recording a launch.
func NewRecorder(runtime, script string, args []string) *Recorder {
	rec := &Recorder{now: time.Now}
	rec.result = Result{
		LaunchID: uuid.New().String(),
		Runtime:  runtime,
		Script:   script,
		Args:     append([]string(nil), args...),
	}
	rec.result.StartTime = rec.now()
	rec.Event(PhaseStarting, "")
	return rec
}

// LaunchID returns the identifier of the launch being recorded.
func (rec *Recorder) LaunchID() string {
	return rec.result.LaunchID
}

// Event appends a phase transition.
func (rec *Recorder) Event(phase Phase, message string) {
	rec.result.Events = append(rec.result.Events, Event{
		Phase:     phase,
		Timestamp: rec.now(),
		Message:   message,
	})
}

// SetWorkDir records the working directory the script runs in.
func (rec *Recorder) SetWorkDir(dir string) {
	rec.result.WorkDir = dir
}

// SetInitialized records whether the runtime came up.
func (rec *Recorder) SetInitialized(initialized bool) {
	rec.result.Initialized = initialized
}

// SetScriptStatus records the status returned by the script.
func (rec *Recorder) SetScriptStatus(status int) {
	rec.result.ScriptStatus = status
}

// SetPaused records that the acknowledgement gate was shown.
func (rec *Recorder) SetPaused(paused bool) {
	rec.result.Paused = paused
}

// Finish freezes the result.
func (rec *Recorder) Finish(outcome Outcome, exitCode int, tornDown bool, err error) *Result {
	res := rec.result
	res.Outcome = outcome
	res.ExitCode = exitCode
	res.TornDown = tornDown
	if err != nil {
		res.Error = err.Error()
	}
	res.EndTime = rec.now()
	res.DurationSeconds = res.EndTime.Sub(res.StartTime).Seconds()
	res.Events = append([]Event(nil), rec.result.Events...)
	return &res
}
