// Package scanning provides the TCP connect-scan engine for rangescan.
//
// A scan covers every host address of an inclusive IP range crossed with a
// list of ports. Each (address, port) pair is a Target; a target is open when
// a TCP handshake completes within the configured timeout. Nothing is sent on
// the connection and it is closed immediately.
//
// # Overview
//
// A scan runs in two phases. Scanner.Plan validates a Configuration, builds
// the iprange.Range, expands the host list against the port list and splits
// the resulting targets into one contiguous chunk per worker. Scanner.Execute
// then starts one goroutine per chunk and a single Collector that keeps the
// open targets sorted. Scanner.Run does both.
//
// # Main Components
//
// ## Target Expansion
//
//   - Configuration: range endpoints, ports, worker count and timeout
//   - DefaultPorts, EffectivePorts, ParsePorts, NormalizePorts: port lists
//   - BuildTargets: address-major cross product of hosts and ports
//   - Partition: near-equal contiguous chunks, larger chunks first
//
// ## Probing
//
//   - Dialer: the connection seam, satisfied by *net.Dialer
//   - Prober: one bounded connect attempt per target, classified as open,
//     timeout, refused, unreachable or error
//
// ## Collection
//
//   - Collector: single consumer that inserts each result at its sorted
//     position and reports a fresh snapshot to an Observer
//   - Summary: the final sorted results with timing information
//   - ScanSlots: optional limit on concurrent scans per Scanner
//
// # Usage Examples
//
//	cfg := &scanning.Configuration{
//		Start:   netip.MustParseAddr("192.168.1.1"),
//		End:     netip.MustParseAddr("192.168.1.254"),
//		Ports:   scanning.EffectivePorts([]uint16{8080}, false),
//		Workers: 200,
//		Timeout: 500 * time.Millisecond,
//	}
//
//	summary, err := scanning.NewScanner().Run(ctx, cfg, observer)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for _, r := range summary.Results {
//		fmt.Println(r)
//	}
//
// # Error Handling
//
// Configuration problems are reported before any connection is attempted and
// carry a *errors.ConfigError (VALIDATION or INVALID_RANGE). Once workers
// are running the only errors are CANCELED, when the caller's context ends,
// and CHANNEL_CLOSED, when a result can no longer be delivered. Both return
// the partial summary collected so far.
//
// # Concurrency
//
// Workers share nothing but the read-only plan and the collector's intake.
// Each worker probes its own chunk sequentially, so at most one connection
// per worker is in flight. The collector is the only writer of the result
// list.
package scanning
