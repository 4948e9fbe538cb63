// Package resolve annotates scan results with reverse DNS names.
package resolve

import (
	"context"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/sync/errgroup"

	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/logging"
)

const (
	resolvConf = "/etc/resolv.conf"

	// lookupConcurrency bounds parallel PTR queries in LookupAll.
	lookupConcurrency = 16
)

// Resolver performs PTR lookups against a single DNS server and caches the
// answers for its lifetime.
type Resolver struct {
	client *dns.Client
	server string
	logger *logging.Logger

	mu    sync.Mutex
	cache map[netip.Addr]string
}

// New creates a resolver for server (host:port). An empty server means the
// first nameserver of /etc/resolv.conf.
func New(server string, timeout time.Duration) (*Resolver, error) {
	if server == "" {
		cc, err := dns.ClientConfigFromFile(resolvConf)
		if err != nil {
			return nil, errors.WrapConfigError(errors.CodeConfiguration, "failed to read resolver configuration", err)
		}
		if len(cc.Servers) == 0 {
			return nil, errors.ErrConfigMissing("resolve.server")
		}
		server = net.JoinHostPort(cc.Servers[0], cc.Port)
	}

	return &Resolver{
		client: &dns.Client{Net: "udp", Timeout: timeout},
		server: server,
		logger: logging.Default().WithComponent("resolve"),
		cache:  make(map[netip.Addr]string),
	}, nil
}

// Server returns the DNS server queried by r.
func (r *Resolver) Server() string {
	return r.server
}

// Lookup returns the first PTR name of addr without the trailing dot. An
// address without a PTR record yields an empty name and no error.
func (r *Resolver) Lookup(ctx context.Context, addr netip.Addr) (string, error) {
	addr = addr.Unmap()

	r.mu.Lock()
	name, ok := r.cache[addr]
	r.mu.Unlock()
	if ok {
		return name, nil
	}

	arpa, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return "", errors.WrapScanError(errors.CodeResolveFailed, "invalid address for reverse lookup", err)
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil {
		return "", &errors.ScanError{
			Code:      errors.CodeResolveFailed,
			Message:   "reverse lookup failed",
			Target:    addr.String(),
			Operation: "ptr",
			Cause:     err,
		}
	}

	switch resp.Rcode {
	case dns.RcodeSuccess, dns.RcodeNameError:
	default:
		return "", errors.NewScanErrorWithTarget(errors.CodeResolveFailed,
			"reverse lookup answered "+dns.RcodeToString[resp.Rcode], addr.String())
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			name = strings.TrimSuffix(ptr.Ptr, ".")
			break
		}
	}

	r.mu.Lock()
	r.cache[addr] = name
	r.mu.Unlock()
	return name, nil
}

// LookupAll resolves every address and returns the names found. Failed
// lookups are logged and left out; only cancellation is returned as an error.
func (r *Resolver) LookupAll(ctx context.Context, addrs []netip.Addr) (map[netip.Addr]string, error) {
	var mu sync.Mutex
	names := make(map[netip.Addr]string, len(addrs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for _, addr := range addrs {
		g.Go(func() error {
			name, err := r.Lookup(gctx, addr)
			if err != nil {
				if gctx.Err() != nil {
					return errors.WrapScanError(errors.CodeCanceled, "reverse lookups canceled", gctx.Err())
				}
				r.logger.WithTarget(addr.String()).Debug("Reverse lookup failed", "error", err)
				return nil
			}
			if name != "" {
				mu.Lock()
				names[addr] = name
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return names, err
	}
	return names, nil
}
