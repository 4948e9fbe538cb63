package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/rangescan/internal/scanning"
)

// Output formats accepted by --output.
const (
	outputText  = "text"
	outputTable = "table"
	outputJSON  = "json"
)

// ANSI sequences used to redraw the live list.
const (
	ansiCursorUp  = "\x1b[%dA"
	ansiClearLine = "\r\x1b[2K"
)

// isTerminal reports whether w is attached to a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// liveRenderer prints the sorted result list while the scan runs. On a
// terminal the whole list is redrawn in place after every result; anywhere
// else only the new result is appended.
type liveRenderer struct {
	out   io.Writer
	tty   bool
	open  *color.Color
	quiet bool

	mu    sync.Mutex
	drawn int
}

func newLiveRenderer(out io.Writer, quiet bool) *liveRenderer {
	tty := isTerminal(out)
	open := color.New(color.FgGreen, color.Bold)
	if !tty {
		open.DisableColor()
	}
	return &liveRenderer{out: out, tty: tty, open: open, quiet: quiet}
}

func (r *liveRenderer) line(res scanning.Result) string {
	return res.String() + " is " + r.open.Sprint("open") + "!"
}

// OnResult implements scanning.Observer.
func (r *liveRenderer) OnResult(snapshot []scanning.Result, added scanning.Result) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tty {
		fmt.Fprintln(r.out, r.line(added))
		return
	}

	var b strings.Builder
	if r.drawn > 0 {
		fmt.Fprintf(&b, ansiCursorUp, r.drawn)
	}
	for _, res := range snapshot {
		b.WriteString(ansiClearLine)
		b.WriteString(r.line(res))
		b.WriteByte('\n')
	}
	_, _ = io.WriteString(r.out, b.String())
	r.drawn = len(snapshot)
}

// OnComplete implements scanning.Observer.
func (r *liveRenderer) OnComplete(*scanning.Summary) {}

// completionLine formats the elapsed time the way the summary reports it.
func completionLine(summary *scanning.Summary) string {
	return fmt.Sprintf("Port scanning completed in %.2f seconds (%d milliseconds)",
		summary.Elapsed.Seconds(), summary.Elapsed.Milliseconds())
}

// writeSummary renders the final report in the requested format. names maps
// addresses to reverse DNS names and may be nil.
func writeSummary(out io.Writer, format string, summary *scanning.Summary, names map[netip.Addr]string) error {
	switch format {
	case outputJSON:
		return writeJSON(out, summary, names)
	case outputTable:
		if err := writeTable(out, summary, names); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\n%s\n", completionLine(summary))
	fmt.Fprintf(out, "%d open of %d targets\n", summary.Count(), summary.Targets)
	return nil
}

func writeTable(out io.Writer, summary *scanning.Summary, names map[netip.Addr]string) error {
	table := tablewriter.NewWriter(out)
	table.Header("Address", "Port", "Name", "RTT", "Worker")

	for i := range summary.Results {
		res := &summary.Results[i]
		name := names[res.Addr]
		if name == "" {
			name = "-"
		}
		if err := table.Append([]string{
			res.Addr.String(),
			strconv.Itoa(int(res.Port)),
			name,
			res.RTT.Round(time.Microsecond).String(),
			strconv.Itoa(res.Worker),
		}); err != nil {
			return err
		}
	}

	return table.Render()
}

type jsonResult struct {
	Address string  `json:"address"`
	Port    uint16  `json:"port"`
	Name    string  `json:"name,omitempty"`
	RTTMs   float64 `json:"rtt_ms"`
	Worker  int     `json:"worker"`
}

type jsonSummary struct {
	ScanID    string       `json:"scan_id"`
	Range     string       `json:"range"`
	Targets   int          `json:"targets"`
	Workers   int          `json:"workers"`
	Open      int          `json:"open"`
	ElapsedMs int64        `json:"elapsed_ms"`
	Results   []jsonResult `json:"results"`
}

func writeJSON(out io.Writer, summary *scanning.Summary, names map[netip.Addr]string) error {
	doc := jsonSummary{
		ScanID:    summary.ScanID,
		Range:     summary.Range,
		Targets:   summary.Targets,
		Workers:   summary.Workers,
		Open:      summary.Count(),
		ElapsedMs: summary.Elapsed.Milliseconds(),
		Results:   make([]jsonResult, 0, summary.Count()),
	}
	for _, res := range summary.Results {
		doc.Results = append(doc.Results, jsonResult{
			Address: res.Addr.String(),
			Port:    res.Port,
			Name:    names[res.Addr],
			RTTMs:   float64(res.RTT.Microseconds()) / 1000,
			Worker:  res.Worker,
		})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
