package scanning

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/anstrom/rangescan/internal/metrics"
)

//go:generate mockgen -destination=mocks/mock_dialer.go -package=mocks . Dialer

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober performs a single connect probe per call. It never retries and
// never sends or reads data: a completed handshake is the whole answer.
type Prober struct {
	dialer  Dialer
	timeout time.Duration
}

// NewProber creates a prober bounded by timeout. A nil dialer means a plain
// *net.Dialer.
func NewProber(dialer Dialer, timeout time.Duration) *Prober {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return &Prober{dialer: dialer, timeout: timeout}
}

// Probe attempts a TCP connection to target. It returns the outcome label,
// the time the attempt took and, for closed outcomes, the dial error.
func (p *Prober) Probe(ctx context.Context, target Target) (string, time.Duration, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(dialCtx, "tcp", target.String())
	rtt := time.Since(start)
	if err != nil {
		return classifyDialError(err), rtt, err
	}

	// close connection immediately; this is a reachability probe only
	_ = conn.Close()
	return metrics.OutcomeOpen, rtt, nil
}

// classifyDialError maps a dial failure to a probe outcome label. Every
// outcome other than open means "no result" to the caller.
func classifyDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return metrics.OutcomeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return metrics.OutcomeTimeout
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return metrics.OutcomeRefused
	case errors.Is(err, syscall.EHOSTUNREACH), errors.Is(err, syscall.ENETUNREACH):
		return metrics.OutcomeUnreachable
	default:
		return metrics.OutcomeError
	}
}
