package metrics

//go:generate mockgen -destination=mocks/mock_recorder.go -package=mocks . Recorder

import "time"

// Probe outcomes used as label values.
const (
	OutcomeOpen        = "open"
	OutcomeTimeout     = "timeout"
	OutcomeRefused     = "refused"
	OutcomeUnreachable = "unreachable"
	OutcomeError       = "error"
)

// Scan statuses used as label values.
const (
	StatusSuccess  = "success"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// Recorder is what the scan engine reports to. It allows the engine to be
// tested without a Prometheus registry.
type Recorder interface {
	// ProbeCompleted records one connect attempt and how long it took.
	ProbeCompleted(outcome string, duration time.Duration)

	// ResultRecorded records an open target accepted by the collector.
	ResultRecorded()

	// WorkerStarted and WorkerStopped track the number of running workers.
	WorkerStarted()
	WorkerStopped()

	// ScanCompleted records the end of a scan.
	ScanCompleted(status string, targets int, duration time.Duration)
}

// Ensure that PrometheusMetrics implements Recorder.
var _ Recorder = (*PrometheusMetrics)(nil)

// Nop is a Recorder that discards everything.
type Nop struct{}

func (Nop) ProbeCompleted(string, time.Duration)     {}
func (Nop) ResultRecorded()                          {}
func (Nop) WorkerStarted()                           {}
func (Nop) WorkerStopped()                           {}
func (Nop) ScanCompleted(string, int, time.Duration) {}

// Fanout forwards every event to each of its recorders in order.
type Fanout []Recorder

func (f Fanout) ProbeCompleted(outcome string, duration time.Duration) {
	for _, r := range f {
		r.ProbeCompleted(outcome, duration)
	}
}

func (f Fanout) ResultRecorded() {
	for _, r := range f {
		r.ResultRecorded()
	}
}

func (f Fanout) WorkerStarted() {
	for _, r := range f {
		r.WorkerStarted()
	}
}

func (f Fanout) WorkerStopped() {
	for _, r := range f {
		r.WorkerStopped()
	}
}

func (f Fanout) ScanCompleted(status string, targets int, duration time.Duration) {
	for _, r := range f {
		r.ScanCompleted(status, targets, duration)
	}
}
