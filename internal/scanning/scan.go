package scanning

import (
	"context"
	"math/big"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/iprange"
	"github.com/anstrom/rangescan/internal/logging"
	"github.com/anstrom/rangescan/internal/metrics"
)

// Scanner runs scans. A Scanner holds no per-scan state and may run several
// scans concurrently.
type Scanner struct {
	dialer  Dialer
	metrics metrics.Recorder
	logger  *logging.Logger
	slots   *ScanSlots
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithDialer replaces the default *net.Dialer.
func WithDialer(d Dialer) Option {
	return func(s *Scanner) { s.dialer = d }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r metrics.Recorder) Option {
	return func(s *Scanner) { s.metrics = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithMaxConcurrentScans limits how many scans run at once; further scans
// wait for a slot.
func WithMaxConcurrentScans(n int) Option {
	return func(s *Scanner) { s.slots = NewScanSlots(n) }
}

// NewScanner creates a scanner. Without options it dials with a plain
// *net.Dialer, records nothing and logs to the default logger.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		dialer:  &net.Dialer{},
		metrics: metrics.Nop{},
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scanner")
	return s
}

// ActiveScans returns the number of scans currently running on s. It is only
// tracked when the scanner limits concurrent scans.
func (s *Scanner) ActiveScans() int {
	if s.slots == nil {
		return 0
	}
	return s.slots.Active()
}

// Plan is the fully expanded work of a scan.
type Plan struct {
	Range   iprange.Range
	Ports   []uint16
	Targets []Target
	// Chunks holds one contiguous slice of Targets per worker.
	Chunks [][]Target
}

// Plan validates cfg and expands it into targets and per-worker chunks.
// Every error it returns is a configuration error.
func (s *Scanner) Plan(cfg *Configuration) (*Plan, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r, err := iprange.New(cfg.Start, cfg.End)
	if err != nil {
		return nil, err
	}

	ports := cfg.Ports
	if len(ports) == 0 {
		ports = DefaultPorts()
	}

	if cfg.MaxTargets > 0 {
		total := new(big.Int).Mul(r.Size(), big.NewInt(int64(len(ports))))
		if total.Cmp(big.NewInt(int64(cfg.MaxTargets))) > 0 {
			return nil, errors.NewConfigFieldError(errors.CodeValidation,
				"range and port list exceed the target limit ("+total.String()+" targets)",
				"scanning.max_targets", cfg.MaxTargets)
		}
	}

	targets := BuildTargets(r.Hosts(), ports)
	return &Plan{
		Range:   r,
		Ports:   ports,
		Targets: targets,
		Chunks:  Partition(targets, cfg.Workers),
	}, nil
}

// Run scans the range described by cfg. Configuration errors are returned
// before any worker starts. Otherwise the returned summary is always non-nil;
// it is partial when the error is CANCELED or CHANNEL_CLOSED.
func (s *Scanner) Run(ctx context.Context, cfg *Configuration, observer Observer) (*Summary, error) {
	plan, err := s.Plan(cfg)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, plan, cfg.Timeout, observer)
}

// Execute runs a plan produced by Plan. If the scanner limits concurrent
// scans and ctx ends while waiting for a slot, no summary is returned.
func (s *Scanner) Execute(ctx context.Context, plan *Plan, timeout time.Duration, observer Observer) (*Summary, error) {
	scanID := uuid.NewString()
	ctx = logging.ContextWithScanID(ctx, scanID)
	logger := s.logger.WithContext(ctx)

	if s.slots != nil {
		if s.slots.Available() == 0 {
			logger.Debug("Waiting for a scan slot",
				"active", s.slots.Active(),
				"oldest", s.slots.Oldest())
		}
		if err := s.slots.Acquire(ctx, scanID); err != nil {
			return nil, err
		}
		defer s.slots.Release(scanID)
	}

	logger.Info("Starting scan",
		"range", plan.Range.String(),
		"ports", len(plan.Ports),
		"targets", len(plan.Targets),
		"workers", len(plan.Chunks),
		"timeout", timeout)

	collector := NewCollector(len(plan.Chunks), Summary{
		ScanID:    scanID,
		Range:     plan.Range.String(),
		Targets:   len(plan.Targets),
		Workers:   len(plan.Chunks),
		StartTime: time.Now(),
	}, observer, s.metrics)

	type collected struct {
		summary *Summary
		err     error
	}
	done := make(chan collected, 1)
	go func() {
		summary, err := collector.Run(ctx)
		done <- collected{summary: summary, err: err}
	}()

	prober := NewProber(s.dialer, timeout)
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range plan.Chunks {
		w := &worker{
			id:        i,
			chunk:     chunk,
			prober:    prober,
			collector: collector,
			metrics:   s.metrics,
			logger:    logger,
		}
		g.Go(func() error { return w.run(gctx) })
	}

	workerErr := g.Wait()
	collector.Close()
	res := <-done
	summary := res.summary

	status := metrics.StatusSuccess
	defer func() {
		s.metrics.ScanCompleted(status, len(plan.Targets), summary.Elapsed)
		logger.Info("Scan operation completed",
			"status", status,
			"results", summary.Count(),
			"duration", summary.Elapsed)
	}()

	switch {
	case errors.IsFatal(workerErr):
		status = metrics.StatusError
		logger.WithError(workerErr).Error("Scan aborted")
		return summary, workerErr
	case workerErr != nil && !errors.IsCode(workerErr, errors.CodeCanceled):
		status = metrics.StatusError
		logger.WithError(workerErr).Warn("Scan failed")
		return summary, workerErr
	case ctx.Err() != nil:
		status = metrics.StatusCanceled
		return summary, errors.WrapScanError(errors.CodeCanceled, "scan canceled", ctx.Err())
	case res.err != nil:
		status = metrics.StatusError
		return summary, errors.WrapScanError(errors.CodeScanFailed, "result collection failed", res.err)
	}
	return summary, nil
}
