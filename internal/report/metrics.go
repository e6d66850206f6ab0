package report

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the launch metrics. Each launch is a short-lived process, so
// besides the launch counter everything describes the most recent launch and
// is meant for a node_exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	launches      *prometheus.CounterVec
	lastTimestamp prometheus.Gauge
	lastDuration  prometheus.Gauge
	lastExitCode  prometheus.Gauge
	lastSuccess   *prometheus.GaugeVec
	phaseReached  *prometheus.GaugeVec
	info          *prometheus.GaugeVec
}

// NewMetrics registers the launch metrics on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		launches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mhlaunch_launches_total",
			Help: "Launches by runtime and outcome.",
		}, []string{"runtime", "outcome"}),
		lastTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_timestamp_seconds",
			Help: "Unix time the last launch ended.",
		}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_duration_seconds",
			Help: "Wall time of the last launch, including script execution.",
		}),
		lastExitCode: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_exit_code",
			Help: "Process exit code of the last launch.",
		}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_success",
			Help: "1 if the last launch ran the script successfully.",
		}, []string{"runtime"}),
		phaseReached: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_phase_reached",
			Help: "1 for each launch phase the last launch went through.",
		}, []string{"phase"}),
		info: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mhlaunch_last_launch_info",
			Help: "Identity of the last launch.",
		}, []string{"launch_id", "runtime", "script"}),
	}

	m.registry.MustRegister(
		m.launches,
		m.lastTimestamp,
		m.lastDuration,
		m.lastExitCode,
		m.lastSuccess,
		m.phaseReached,
		m.info,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordResult projects a finished launch onto the metrics.
func (m *Metrics) RecordResult(r *Result) {
	m.launches.WithLabelValues(r.Runtime, string(r.Outcome)).Inc()
	m.lastTimestamp.Set(float64(r.EndTime.Unix()))
	m.lastDuration.Set(r.DurationSeconds)
	m.lastExitCode.Set(float64(r.ExitCode))

	success := 0.0
	if r.Outcome == OutcomeSuccess {
		success = 1
	}
	m.lastSuccess.Reset()
	m.lastSuccess.WithLabelValues(r.Runtime).Set(success)

	for _, phase := range Phases {
		reached := 0.0
		if r.Reached(phase) {
			reached = 1
		}
		m.phaseReached.WithLabelValues(string(phase)).Set(reached)
	}

	m.info.Reset()
	m.info.WithLabelValues(r.LaunchID, r.Runtime, r.Script).Set(1)
}

// WriteTextfile writes the metrics in text exposition format. The file is
// replaced atomically so a collector never reads a partial write.
func (m *Metrics) WriteTextfile(path string) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := encoder.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".mhlaunch-metrics-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
