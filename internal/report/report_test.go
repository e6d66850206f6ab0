package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"gopkg.in/yaml.v3"
)

func successResult() *Result {
	rec := NewRecorder("lua", "makehuman.lua", []string{"launcher", "--foo"})
	rec.Event(PhaseInitialized, "")
	rec.Event(PhaseExecuting, "")
	rec.Event(PhaseCompleted, "")
	rec.Event(PhaseTornDown, "")
	return rec.Finish(OutcomeSuccess, 0, true, nil)
}

func TestRecorder(t *testing.T) {
	args := []string{"launcher", "--foo"}
	rec := NewRecorder("process", "makehuman.py", args)
	args[1] = "mutated"

	rec.SetWorkDir("/opt/makehuman")
	rec.Event(PhaseInitialized, "")
	rec.SetScriptStatus(2)
	rec.Event(PhaseFailed, "exit status 2")
	res := rec.Finish(OutcomeScriptFailure, 1, false, errors.New("script failed"))

	if res.LaunchID == "" || res.LaunchID != rec.LaunchID() {
		t.Errorf("launch id %q / %q", res.LaunchID, rec.LaunchID())
	}
	if res.Args[1] != "--foo" {
		t.Errorf("recorder kept caller's slice: %v", res.Args)
	}
	if res.ExitCode != 1 || res.ScriptStatus != 2 || res.TornDown {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Error != "script failed" {
		t.Errorf("Error = %q", res.Error)
	}
	if !res.Reached(PhaseStarting) || !res.Reached(PhaseFailed) || res.Reached(PhaseTornDown) {
		t.Errorf("events = %+v", res.Events)
	}

	rec.Event(PhaseTornDown, "late")
	if res.Reached(PhaseTornDown) {
		t.Error("finished result changed after Finish")
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(successResult())

	if got := testutil.ToFloat64(m.launches.WithLabelValues("lua", "success")); got != 1 {
		t.Errorf("launches{lua,success} = %v", got)
	}
	if got := testutil.ToFloat64(m.phaseReached.WithLabelValues("torn_down")); got != 1 {
		t.Errorf("phase torn_down = %v", got)
	}
	if got := testutil.ToFloat64(m.phaseReached.WithLabelValues("failed")); got != 0 {
		t.Errorf("phase failed = %v", got)
	}
	if got := testutil.ToFloat64(m.lastExitCode); got != 0 {
		t.Errorf("exit code gauge = %v", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RecordResult(successResult())

	path := filepath.Join(t.TempDir(), "mhlaunch.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`mhlaunch_launches_total{outcome="success",runtime="lua"} 1`,
		`mhlaunch_last_launch_success{runtime="lua"} 1`,
		"# TYPE mhlaunch_last_launch_exit_code gauge",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteFile(t *testing.T) {
	res := successResult()
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "report.json")
	if err := WriteFile(jsonPath, res); err != nil {
		t.Fatalf("WriteFile json: %v", err)
	}
	var decoded map[string]interface{}
	data, _ := os.ReadFile(jsonPath)
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not JSON: %v", err)
	}
	if decoded["outcome"] != "success" || decoded["runtime"] != "lua" {
		t.Errorf("unexpected JSON report: %v", decoded)
	}

	yamlPath := filepath.Join(dir, "report.yaml")
	if err := WriteFile(yamlPath, res); err != nil {
		t.Fatalf("WriteFile yaml: %v", err)
	}
	decoded = nil
	data, _ = os.ReadFile(yamlPath)
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not YAML: %v", err)
	}
	if decoded["launch_id"] != res.LaunchID {
		t.Errorf("unexpected YAML report: %v", decoded)
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteText(&buf, successResult()); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Runtime: lua", "Outcome: success", "torn_down"} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}
