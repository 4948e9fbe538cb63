package cli

import (
	"context"
	"fmt"
	"io"
	"net/netip"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/rangescan/internal/api"
	"github.com/anstrom/rangescan/internal/config"
	"github.com/anstrom/rangescan/internal/errors"
	"github.com/anstrom/rangescan/internal/iprange"
	"github.com/anstrom/rangescan/internal/logging"
	"github.com/anstrom/rangescan/internal/metrics"
	"github.com/anstrom/rangescan/internal/resolve"
	"github.com/anstrom/rangescan/internal/scanning"
)

// scanOptions holds the scan flags that are not bound to viper.
type scanOptions struct {
	ports     []string
	timeoutMs int
	output    string
	resolve   bool
	quiet     bool
}

var scanOpts scanOptions

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <from> <to>",
	Short: "Scan an address range for open TCP ports",
	Long: `Scan every host address between <from> and <to> (inclusive) on a list
of TCP ports. Both endpoints must be of the same family.

IPv4 addresses ending in .0 or .255 are skipped. The built-in list of common
ports is always scanned unless --only-ports is given; ports passed with
--ports are added to it.

--timeout is in milliseconds. Durations set in the config file or through
RANGESCAN_* variables need a unit, e.g. RANGESCAN_SCANNING_TIMEOUT=500ms.`,
	Example: `  rangescan scan 192.168.1.1 192.168.1.254
  rangescan scan 10.0.0.1 10.0.3.255 -p 8000-8010 -t 500 -o 200
  rangescan scan 2001:db8::1 2001:db8::ff --only-ports -p 22,443
  rangescan scan 192.168.1.1 192.168.1.254 --output table --resolve`,
	Args: cobra.ExactArgs(2),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	addScanFlags(scanCmd.Flags())
	bindScanFlags(scanCmd.Flags())
}

// addScanFlags defines the scan flags on fs.
func addScanFlags(fs *pflag.FlagSet) {
	def := config.Default()

	fs.StringSliceVarP(&scanOpts.ports, "ports", "p", nil,
		"Additional ports: '8080', '80,443' or '8000-8010'; repeatable")
	fs.IntP("threads", "t", def.Scanning.Workers, "Number of concurrent workers")
	fs.IntVarP(&scanOpts.timeoutMs, "timeout", "o", int(def.Scanning.Timeout/time.Millisecond),
		"Connect timeout per target in milliseconds")
	fs.Bool("only-ports", def.Scanning.OnlyPorts, "Scan only the ports given with --ports")
	fs.Int("max-targets", def.Scanning.MaxTargets, "Refuse scans with more targets than this (0 = unlimited)")
	fs.String("metrics-addr", def.Metrics.ListenAddr, "Serve metrics and status on this address while scanning")
	fs.StringVar(&scanOpts.output, "output", outputText, "Final report format: text, table or json")
	fs.BoolVar(&scanOpts.resolve, "resolve", false, "Look up reverse DNS names of open hosts")
	fs.BoolVarP(&scanOpts.quiet, "quiet", "q", false, "Do not print results while the scan runs")
}

// bindScanFlags binds the flags that mirror configuration keys.
func bindScanFlags(fs *pflag.FlagSet) {
	bindings := map[string]string{
		"scanning.workers":     "threads",
		"scanning.only_ports":  "only-ports",
		"scanning.max_targets": "max-targets",
		"metrics.listen_addr":  "metrics-addr",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", flag, err)
		}
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("timeout") {
		viper.Set("scanning.timeout", time.Duration(scanOpts.timeoutMs)*time.Millisecond)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	switch scanOpts.output {
	case outputText, outputTable, outputJSON:
	default:
		return errors.ErrConfigInvalid("output", scanOpts.output)
	}

	scanCfg, err := buildScanConfiguration(cfg, args[0], args[1], scanOpts.ports)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return executeScan(ctx, cmd.OutOrStdout(), cfg, scanCfg)
}

// buildScanConfiguration turns the positional range and the port flags into
// a scan configuration.
func buildScanConfiguration(cfg *config.Config, from, to string, portFlags []string) (*scanning.Configuration, error) {
	r, err := iprange.Parse(from, to)
	if err != nil {
		return nil, err
	}

	userPorts, err := scanning.ParsePorts(strings.Join(portFlags, ","))
	if err != nil {
		return nil, errors.WrapConfigError(errors.CodeValidation, "invalid port list", err)
	}
	userPorts = append(userPorts, cfg.Scanning.ExtraPorts...)

	return &scanning.Configuration{
		Start:      r.Start(),
		End:        r.End(),
		Ports:      scanning.EffectivePorts(scanning.NormalizePorts(userPorts), cfg.Scanning.OnlyPorts),
		Workers:    cfg.Scanning.Workers,
		Timeout:    cfg.Scanning.Timeout,
		MaxTargets: cfg.Scanning.MaxTargets,
	}, nil
}

// executeScan plans and runs one scan, rendering progress and the final
// report to out.
func executeScan(ctx context.Context, out io.Writer, cfg *config.Config, scanCfg *scanning.Configuration) error {
	breakdown := metrics.NewRegistry()
	var recorder metrics.Recorder = breakdown

	renderer := newLiveRenderer(out, scanOpts.quiet || scanOpts.output == outputJSON)
	progress := scanning.NewProgress(renderer)

	if cfg.IsMetricsEnabled() {
		pm := metrics.GetGlobalMetrics()
		recorder = metrics.Fanout{breakdown, pm}

		server := api.New(cfg.Metrics.ListenAddr, pm.GetRegistry(), progress, version)
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = server.Stop() }()
		go pm.StartPeriodicUpdates(ctx, cfg.Metrics.UpdateInterval)
	}

	scanner := scanning.NewScanner(
		scanning.WithMetrics(recorder),
		scanning.WithLogger(logging.Default()),
		scanning.WithMaxConcurrentScans(cfg.Scanning.MaxConcurrentScans),
	)

	plan, err := scanner.Plan(scanCfg)
	if err != nil {
		return err
	}

	if scanOpts.output != outputJSON {
		fmt.Fprintf(out, "Threads spawned %d\n\n", len(plan.Chunks))
	}

	summary, scanErr := scanner.Execute(ctx, plan, scanCfg.Timeout, progress)
	if summary == nil {
		return scanErr
	}

	var names map[netip.Addr]string
	if scanOpts.resolve && scanErr == nil {
		names = resolveNames(ctx, cfg, summary, breakdown)
	}

	if err := writeSummary(out, scanOpts.output, summary, names); err != nil {
		return errors.WrapScanError(errors.CodeUnknown, "failed to write report", err)
	}
	if verbose && scanOpts.output != outputJSON {
		writeBreakdown(out, breakdown)
	}

	return scanErr
}

// resolveNames looks up the names of every open host. Lookup problems are
// logged and leave the names out.
func resolveNames(ctx context.Context, cfg *config.Config, summary *scanning.Summary, reg *metrics.Registry) map[netip.Addr]string {
	resolver, err := resolve.New(cfg.Resolve.Server, cfg.Resolve.Timeout)
	if err != nil {
		logging.Warn("Reverse DNS disabled", "error", err)
		return nil
	}

	var addrs []netip.Addr
	for _, r := range summary.Results {
		if len(addrs) == 0 || addrs[len(addrs)-1] != r.Addr {
			addrs = append(addrs, r.Addr)
		}
	}

	timer := reg.NewTimer(metrics.MetricResolve, nil)
	names, err := resolver.LookupAll(ctx, addrs)
	elapsed := timer.Stop()
	if err != nil {
		logging.Warn("Reverse DNS interrupted", "error", err)
	}
	logging.Debug("Reverse DNS finished", "server", resolver.Server(), "hosts", len(addrs),
		"names", len(names), "duration", elapsed)
	return names
}

// writeBreakdown prints how the probes of the scan ended.
func writeBreakdown(out io.Writer, reg *metrics.Registry) {
	outcomes := []string{
		metrics.OutcomeOpen,
		metrics.OutcomeRefused,
		metrics.OutcomeTimeout,
		metrics.OutcomeUnreachable,
		metrics.OutcomeError,
	}

	parts := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		n := reg.Value(metrics.MetricProbes, metrics.Labels{metrics.LabelOutcome: o})
		parts = append(parts, fmt.Sprintf("%s=%d", o, int(n)))
	}
	fmt.Fprintf(out, "Probe outcomes: %s\n", strings.Join(parts, " "))
}
