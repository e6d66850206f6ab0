// Package launcher implements the bootstrap sequence: optional working
// directory fixup, runtime initialization, argument binding, concurrency
// enablement, execution of the main script and teardown.
//
//	Start -> (PathFixup?) -> RuntimeInit -> {Fatal(exit 1) | Initialized}
//	      -> ArgvBind -> ThreadingEnable -> ScriptExec
//	      -> {Fatal(pause, exit 1) | Teardown -> exit 0}
//
// Every transition happens once, on the calling goroutine.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/makehuman/mhlaunch/internal/logging"
	"github.com/makehuman/mhlaunch/internal/report"
	scriptrt "github.com/makehuman/mhlaunch/internal/runtime"
)

// Pauser holds the process open after a fatal script error until the user
// acknowledges it.
type Pauser interface {
	PauseIfNeeded() (bool, error)
}

// Invocation is the process-wide state a launch mutates.
type Invocation struct {
	Args         []string
	WorkDir      string
	Initialized  bool
	ScriptStatus int
}

// Launcher drives one ScriptRuntime through the bootstrap sequence.
type Launcher struct {
	Runtime scriptrt.ScriptRuntime
	Script  string

	// WorkDirPolicy is one of config.WorkDirAuto, WorkDirExecutable,
	// WorkDirInherit.
	WorkDirPolicy string
	Gate          Pauser

	Stderr  io.Writer
	Logger  *logging.Logger
	Metrics *report.Metrics

	MetricsTextfile string
	ReportFile      string

	goos       string
	executable func() (string, error)
	chdir      func(string) error
	getwd      func() (string, error)
}

// New creates a launcher for rt executing script.
func New(rt scriptrt.ScriptRuntime, script string) *Launcher {
	return &Launcher{
		Runtime:    rt,
		Script:     script,
		Stderr:     os.Stderr,
		Logger:     logging.Discard(),
		Metrics:    report.NewMetrics(),
		goos:       runtime.GOOS,
		executable: os.Executable,
		chdir:      defaultChdir,
		getwd:      os.Getwd,
	}
}

// Launch runs the bootstrap sequence with argv, the full argument vector
// including the program name, and returns the launch record. The process
// should exit with the record's ExitCode.
func (l *Launcher) Launch(ctx context.Context, argv []string) *report.Result {
	inv := &Invocation{Args: append([]string(nil), argv...)}
	rt := l.Runtime
	rec := report.NewRecorder(rt.Name(), l.Script, inv.Args)
	log := l.Logger.WithField("launch_id", rec.LaunchID())

	log.Info("Launch starting", map[string]interface{}{
		"runtime": rt.Name(),
		"script":  l.Script,
		"args":    inv.Args,
	})

	if ShouldFixWorkDir(l.WorkDirPolicy, l.goos) {
		dir, err := l.fixWorkDir()
		switch {
		case errors.Is(err, errNoExecutable):
			fmt.Fprintln(l.Stderr, MsgNoExecutablePath)
			log.Warn("Working directory left unchanged", map[string]interface{}{"error": err.Error()})
		case err != nil:
			log.Warn("Working directory left unchanged", map[string]interface{}{"error": err.Error()})
		default:
			rec.Event(report.PhasePathFixup, dir)
			log.Debug("Working directory set to executable directory", map[string]interface{}{"dir": dir})
		}
	}
	if wd, err := l.getwd(); err == nil {
		inv.WorkDir = wd
	}

	programName := ""
	if len(inv.Args) > 0 {
		programName = inv.Args[0]
	}

	handle, err := scriptrt.Acquire(ctx, rt, programName)
	if err != nil {
		fmt.Fprintln(l.Stderr, MsgInitFailure)
		lerr := &LaunchError{Kind: KindRuntimeInit, Err: err}
		log.Error("Runtime initialization failed", map[string]interface{}{"error": err.Error()})
		return l.finish(log, rec, inv, report.OutcomeRuntimeInitFailure, false, lerr)
	}
	inv.Initialized = true
	rec.Event(report.PhaseInitialized, "")

	rt.BindArguments(inv.Args)
	rec.Event(report.PhaseArgsBound, "")

	if err := rt.EnableConcurrency(); err != nil {
		log.Warn("Runtime refused thread support", map[string]interface{}{"error": err.Error()})
	} else {
		rec.Event(report.PhaseThreadsEnabled, "")
	}

	rec.Event(report.PhaseExecuting, l.Script)
	status, err := rt.ExecuteFile(ctx, l.Script)
	inv.ScriptStatus = status

	if err != nil || status != 0 {
		fmt.Fprintln(l.Stderr, MsgScriptFailure)
		lerr := &LaunchError{Kind: KindScriptExecution, Status: status, Err: err}
		rec.Event(report.PhaseFailed, lerr.Error())
		log.Error("Main script failed", map[string]interface{}{
			"status": status,
			"error":  lerr.Error(),
		})

		// The runtime is not torn down on this path. The script stopped at an
		// unknown point and may have left threads inside the runtime; the
		// process exits right after the pause and releases everything.
		if l.Gate != nil {
			paused, perr := l.Gate.PauseIfNeeded()
			rec.SetPaused(paused)
			if perr != nil {
				log.Warn("Keypress wait failed", map[string]interface{}{"error": perr.Error()})
			}
		}
		return l.finish(log, rec, inv, report.OutcomeScriptFailure, false, lerr)
	}
	rec.Event(report.PhaseCompleted, "")

	// Shutdown runs at most once; an error from it is reported on the event
	// but does not change the exit code.
	if err := handle.Release(); err != nil {
		log.Warn("Runtime teardown reported an error", map[string]interface{}{"error": err.Error()})
		rec.Event(report.PhaseTornDown, "error: "+err.Error())
	} else {
		rec.Event(report.PhaseTornDown, "")
	}

	return l.finish(log, rec, inv, report.OutcomeSuccess, handle.Released(), nil)
}

// Run launches and returns only the exit code.
func (l *Launcher) Run(ctx context.Context, argv []string) int {
	return l.Launch(ctx, argv).ExitCode
}

func (l *Launcher) finish(log *logging.Logger, rec *report.Recorder, inv *Invocation, outcome report.Outcome, tornDown bool, lerr *LaunchError) *report.Result {
	rec.SetWorkDir(inv.WorkDir)
	rec.SetInitialized(inv.Initialized)
	rec.SetScriptStatus(inv.ScriptStatus)

	exitCode := ExitSuccess
	var err error
	if lerr != nil {
		exitCode = lerr.ExitCode()
		err = lerr
	}
	res := rec.Finish(outcome, exitCode, tornDown, err)

	if l.Metrics != nil {
		l.Metrics.RecordResult(res)
		if l.MetricsTextfile != "" {
			if werr := l.Metrics.WriteTextfile(l.MetricsTextfile); werr != nil {
				log.Warn("Failed to write metrics textfile", map[string]interface{}{"error": werr.Error()})
			}
		}
	}
	if l.ReportFile != "" {
		if werr := report.WriteFile(l.ReportFile, res); werr != nil {
			log.Warn("Failed to write launch report", map[string]interface{}{"error": werr.Error()})
		}
	}

	log.Info(fmt.Sprintf("LAUNCH %s | runtime=%s | outcome=%s | exit=%d | duration=%.1fs | torn_down=%v",
		res.LaunchID, res.Runtime, res.Outcome, res.ExitCode, res.DurationSeconds, res.TornDown))
	return res
}
