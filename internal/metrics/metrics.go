// Package metrics records scan and probe metrics. Recorder is implemented by
// an in-process Registry, used for the end-of-scan breakdown, and by
// PrometheusMetrics, served over HTTP while a scan runs.
package metrics

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// MetricType represents the type of metric.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// Labels represents key-value pairs for metric labels.
type Labels map[string]string

// Metric represents a single metric with its metadata. For histograms Value
// is the sum of observations.
type Metric struct {
	Name   string
	Type   MetricType
	Value  float64
	Labels Labels
}

// Registry holds all metrics and provides collection functionality.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

var _ Recorder = (*Registry)(nil)

// NewRegistry creates a new metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		metrics: make(map[string]*Metric),
	}
}

// Counter increments a counter metric.
func (r *Registry) Counter(name string, labels Labels) {
	r.update(name, TypeCounter, labels, func(m *Metric) { m.Value++ })
}

// Gauge sets a gauge metric value.
func (r *Registry) Gauge(name string, value float64, labels Labels) {
	r.update(name, TypeGauge, labels, func(m *Metric) { m.Value = value })
}

// AddGauge adds delta to a gauge metric.
func (r *Registry) AddGauge(name string, delta float64, labels Labels) {
	r.update(name, TypeGauge, labels, func(m *Metric) { m.Value += delta })
}

// Histogram records a value in a histogram metric.
func (r *Registry) Histogram(name string, value float64, labels Labels) {
	r.update(name, TypeHistogram, labels, func(m *Metric) { m.Value += value })
}

func (r *Registry) update(name string, typ MetricType, labels Labels, apply func(*Metric)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := makeKey(name, labels)
	metric, exists := r.metrics[key]
	if !exists {
		metric = &Metric{Name: name, Type: typ, Labels: copyLabels(labels)}
		r.metrics[key] = metric
	}
	apply(metric)
}

// Value returns the current value of a metric, or zero if it was never
// recorded.
func (r *Registry) Value(name string, labels Labels) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if metric, ok := r.metrics[makeKey(name, labels)]; ok {
		return metric.Value
	}
	return 0
}

// ProbeCompleted implements Recorder.
func (r *Registry) ProbeCompleted(outcome string, duration time.Duration) {
	labels := Labels{LabelOutcome: outcome}
	r.Counter(MetricProbes, labels)
	r.Histogram(MetricProbeDuration, duration.Seconds(), labels)
}

// ResultRecorded implements Recorder.
func (r *Registry) ResultRecorded() {
	r.Counter(MetricOpenPorts, nil)
}

// WorkerStarted implements Recorder.
func (r *Registry) WorkerStarted() {
	r.AddGauge(MetricActiveWorkers, 1, nil)
}

// WorkerStopped implements Recorder.
func (r *Registry) WorkerStopped() {
	r.AddGauge(MetricActiveWorkers, -1, nil)
}

// ScanCompleted implements Recorder.
func (r *Registry) ScanCompleted(status string, targets int, duration time.Duration) {
	r.Counter(MetricScans, Labels{LabelStatus: status})
	r.Gauge(MetricTargets, float64(targets), nil)
	r.Histogram(MetricScanDuration, duration.Seconds(), nil)
}

// makeKey creates a unique key for a metric based on name and sorted labels.
func makeKey(name string, labels Labels) string {
	if len(labels) == 0 {
		return name
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString(":" + k + "=" + labels[k])
	}
	return b.String()
}

// copyLabels creates a copy of labels map.
func copyLabels(labels Labels) Labels {
	if labels == nil {
		return nil
	}
	result := make(Labels, len(labels))
	for k, v := range labels {
		result[k] = v
	}
	return result
}

// Timer provides a simple way to measure execution time.
type Timer struct {
	registry *Registry
	start    time.Time
	name     string
	labels   Labels
}

// NewTimer creates a new timer recording into r.
func (r *Registry) NewTimer(name string, labels Labels) *Timer {
	return &Timer{
		registry: r,
		start:    time.Now(),
		name:     name,
		labels:   labels,
	}
}

// Stop stops the timer, records the duration as a histogram and returns it.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	t.registry.Histogram(t.name, duration.Seconds(), t.labels)
	return duration
}

// Metric names recorded by Registry.
const (
	MetricScans         = "scans_total"
	MetricScanDuration  = "scan_duration_seconds"
	MetricTargets       = "scan_targets"
	MetricOpenPorts     = "open_ports_total"
	MetricActiveWorkers = "active_workers"
	MetricProbes        = "probes_total"
	MetricProbeDuration = "probe_duration_seconds"
	MetricResolve       = "resolve_duration_seconds"
)

// Common label keys.
const (
	LabelOutcome = "outcome"
	LabelStatus  = "status"
)
