package scanning

import (
	"context"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
	"github.com/anstrom/rangescan/internal/metrics"
)

// worker probes one chunk of targets, one connection at a time. It owns its
// chunk exclusively and never takes work from another worker.
type worker struct {
	id        int
	chunk     []Target
	prober    *Prober
	collector *Collector
	metrics   metrics.Recorder
	logger    *logging.Logger
}

// run probes every target of the chunk in order and forwards each open
// target to the collector as soon as it is known. Closed targets produce no
// output. The only errors returned are cancellation and a closed intake.
func (w *worker) run(ctx context.Context) error {
	w.metrics.WorkerStarted()
	defer w.metrics.WorkerStopped()

	w.logger.Debug("Worker started", "worker_id", w.id, "targets", len(w.chunk))
	defer w.logger.Debug("Worker stopped", "worker_id", w.id)

	for _, target := range w.chunk {
		if err := ctx.Err(); err != nil {
			return errors.WrapScanError(errors.CodeCanceled, "scan canceled", err)
		}

		outcome, rtt, err := w.prober.Probe(ctx, target)
		w.metrics.ProbeCompleted(outcome, rtt)

		if outcome != metrics.OutcomeOpen {
			w.logger.DebugProbe("Target closed", target.String(), "outcome", outcome, "error", err)
			continue
		}

		result := Result{Target: target, RTT: rtt, Worker: w.id}
		if err := w.collector.Submit(ctx, result); err != nil {
			if !errors.IsCode(err, errors.CodeCanceled) {
				w.logger.ErrorScan("Failed to deliver result", target.String(), err, "worker_id", w.id)
			}
			return err
		}
	}
	return nil
}
