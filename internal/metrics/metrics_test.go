package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/anstrom/rangescan/internal/metrics/mocks"
)

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()

	require.NotNil(t, registry)
	assert.Equal(t, 0.0, registry.Value(MetricProbes, nil))
}

func TestRegistry_Counter(t *testing.T) {
	registry := NewRegistry()
	labels := Labels{"a": "1", "b": "2"}

	registry.Counter("hits", labels)
	registry.Counter("hits", Labels{"b": "2", "a": "1"})
	registry.Counter("hits", Labels{"a": "other"})

	assert.Equal(t, 2.0, registry.Value("hits", labels), "label order must not matter")
	assert.Equal(t, 1.0, registry.Value("hits", Labels{"a": "other"}))
	assert.Equal(t, 0.0, registry.Value("misses", nil))
	assert.Equal(t, 0.0, registry.Value("hits", nil), "unlabelled series is distinct")
}

func TestRegistry_Gauge(t *testing.T) {
	registry := NewRegistry()

	registry.Gauge("level", 5, nil)
	registry.AddGauge("level", 2, nil)
	registry.AddGauge("level", -4, nil)
	assert.Equal(t, 3.0, registry.Value("level", nil))

	registry.Gauge("level", 10, nil)
	assert.Equal(t, 10.0, registry.Value("level", nil))
}

func TestRegistry_Histogram(t *testing.T) {
	registry := NewRegistry()

	registry.Histogram("latency", 0.5, nil)
	registry.Histogram("latency", 1.5, nil)

	assert.Equal(t, 2.0, registry.Value("latency", nil))
}

func TestRegistry_LabelsAreCopied(t *testing.T) {
	registry := NewRegistry()
	labels := Labels{"k": "v"}
	registry.Counter("c", labels)
	labels["k"] = "changed"

	assert.Equal(t, 1.0, registry.Value("c", Labels{"k": "v"}))
	assert.Equal(t, 0.0, registry.Value("c", Labels{"k": "changed"}))
}

func TestRegistry_Recorder(t *testing.T) {
	registry := NewRegistry()

	registry.WorkerStarted()
	registry.WorkerStarted()
	registry.ProbeCompleted(OutcomeOpen, 10*time.Millisecond)
	registry.ProbeCompleted(OutcomeRefused, time.Millisecond)
	registry.ProbeCompleted(OutcomeRefused, time.Millisecond)
	registry.ResultRecorded()
	registry.WorkerStopped()
	registry.ScanCompleted(StatusSuccess, 3, time.Second)

	assert.Equal(t, 1.0, registry.Value(MetricProbes, Labels{LabelOutcome: OutcomeOpen}))
	assert.Equal(t, 2.0, registry.Value(MetricProbes, Labels{LabelOutcome: OutcomeRefused}))
	assert.Equal(t, 1.0, registry.Value(MetricOpenPorts, nil))
	assert.Equal(t, 1.0, registry.Value(MetricActiveWorkers, nil))
	assert.Equal(t, 1.0, registry.Value(MetricScans, Labels{LabelStatus: StatusSuccess}))
	assert.Equal(t, 3.0, registry.Value(MetricTargets, nil))
	assert.InDelta(t, 1.0, registry.Value(MetricScanDuration, nil), 1e-9)
}

func TestRegistry_Concurrent(t *testing.T) {
	registry := NewRegistry()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				registry.ProbeCompleted(OutcomeTimeout, time.Millisecond)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000.0, registry.Value(MetricProbes, Labels{LabelOutcome: OutcomeTimeout}))
}

func TestTimer(t *testing.T) {
	registry := NewRegistry()

	timer := registry.NewTimer(MetricResolve, nil)
	time.Sleep(5 * time.Millisecond)
	d := timer.Stop()

	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.InDelta(t, d.Seconds(), registry.Value(MetricResolve, nil), 1e-9)
}

func TestFanout(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := mocks.NewMockRecorder(ctrl)
	registry := NewRegistry()

	a.EXPECT().WorkerStarted()
	a.EXPECT().ProbeCompleted(OutcomeOpen, time.Millisecond)
	a.EXPECT().ResultRecorded()
	a.EXPECT().WorkerStopped()
	a.EXPECT().ScanCompleted(StatusCanceled, 7, time.Second)

	var rec Recorder = Fanout{a, registry}
	rec.WorkerStarted()
	rec.ProbeCompleted(OutcomeOpen, time.Millisecond)
	rec.ResultRecorded()
	rec.WorkerStopped()
	rec.ScanCompleted(StatusCanceled, 7, time.Second)

	assert.Equal(t, 1.0, registry.Value(MetricOpenPorts, nil))
	assert.Equal(t, 1.0, registry.Value(MetricScans, Labels{LabelStatus: StatusCanceled}))
}
