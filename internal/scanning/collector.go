package scanning

import (
	"context"
	"slices"
	"sync"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
	"github.com/anstrom/rangescan/internal/metrics"
)

// Observer receives the collector's progress. Implementations render results;
// they are not part of the scan's correctness.
type Observer interface {
	// OnResult is called after every insertion with the full, sorted list of
	// results so far and the result that was just added. snapshot is owned by
	// the observer.
	OnResult(snapshot []Result, added Result)
	// OnComplete is called once after every worker has finished.
	OnComplete(summary *Summary)
}

// Collector is the single consumer of results sent by all workers. It keeps
// the results sorted by address and port at every point in time.
type Collector struct {
	intake   chan Result
	stopped  chan struct{}
	observer Observer
	metrics  metrics.Recorder
	logger   *logging.Logger

	// sendMu guards intakeClosed against concurrent Submit calls.
	sendMu       sync.RWMutex
	intakeClosed bool

	mu      sync.RWMutex
	results []Result
	summary Summary
}

// NewCollector creates a collector whose intake buffers capacity results.
// summary provides the scan metadata echoed in the final report.
func NewCollector(capacity int, summary Summary, observer Observer, rec metrics.Recorder) *Collector {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Collector{
		intake:   make(chan Result, max(capacity, 1)),
		stopped:  make(chan struct{}),
		observer: observer,
		metrics:  rec,
		logger:   logging.Default().WithComponent("collector"),
		summary:  summary,
	}
}

// Submit hands a result to the collector, blocking while the intake is full.
// It fails with a CHANNEL_CLOSED error if the intake was already closed or the
// consumer stopped, and with CANCELED if ctx ends first.
func (c *Collector) Submit(ctx context.Context, r Result) error {
	c.sendMu.RLock()
	defer c.sendMu.RUnlock()

	if c.intakeClosed {
		return errors.ErrChannelClosed(r.String())
	}

	select {
	case c.intake <- r:
		return nil
	case <-c.stopped:
		if ctx.Err() != nil {
			return errors.WrapScanError(errors.CodeCanceled, "scan canceled", ctx.Err())
		}
		return errors.ErrChannelClosed(r.String())
	case <-ctx.Done():
		return errors.WrapScanError(errors.CodeCanceled, "scan canceled", ctx.Err())
	}
}

// Close closes the intake. It must be called once every producer is done;
// Run returns after draining what is left.
func (c *Collector) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if !c.intakeClosed {
		c.intakeClosed = true
		close(c.intake)
	}
}

// Run consumes results until the intake is closed and returns the final
// summary. If ctx ends first the summary holds what was collected so far and
// the context error is returned.
func (c *Collector) Run(ctx context.Context) (*Summary, error) {
	defer close(c.stopped)

	for {
		select {
		case r, ok := <-c.intake:
			if !ok {
				return c.finish(), nil
			}
			c.record(r)

		case <-ctx.Done():
			return c.finish(), ctx.Err()
		}
	}
}

// record inserts r at its sorted position and notifies the observer.
func (c *Collector) record(r Result) {
	c.mu.Lock()
	i, _ := slices.BinarySearchFunc(c.results, r, func(a, b Result) int {
		return CompareTargets(a.Target, b.Target)
	})
	c.results = slices.Insert(c.results, i, r)
	snapshot := slices.Clone(c.results)
	c.mu.Unlock()

	c.metrics.ResultRecorded()
	c.logger.Info("Open port found", "target", r.String(), "rtt", r.RTT, "worker_id", r.Worker)

	if c.observer != nil {
		c.observer.OnResult(snapshot, r)
	}
}

// Snapshot returns a sorted copy of the results recorded so far. It is safe
// to call from any goroutine while the scan runs.
func (c *Collector) Snapshot() []Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.results)
}

func (c *Collector) finish() *Summary {
	summary := c.summary
	summary.Results = c.Snapshot()
	summary.complete()

	if c.observer != nil {
		c.observer.OnComplete(&summary)
	}
	return &summary
}
