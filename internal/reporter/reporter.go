// Package reporter renders suite results to a writer: a character stream
// in default mode, a line per test under -v, and per-suite summaries.
package reporter

import (
	"fmt"
	"io"
	"os"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"

	"github.com/andreasjansson/cctr/models"
)

// Paint abstracts color output; noColor is the only implementation this
// module ships (color is an explicit spec Non-goal), but the seam keeps the
// reporter decoupled from how "colorized" text gets produced.
type Paint interface {
	Red(s string) string
	Green(s string) string
	Yellow(s string) string
}

type noColor struct{}

func (noColor) Red(s string) string    { return s }
func (noColor) Green(s string) string  { return s }
func (noColor) Yellow(s string) string { return s }

// NewPaint decides whether a color-capable Paint would even apply here
// (an explicit --no-color flag, or w not being a real terminal, both rule
// it out) and always returns noColor either way: applying ANSI color is an
// explicit spec Non-goal, so the decision point is wired but a colorizing
// Paint implementation is not shipped.
func NewPaint(w io.Writer, noColorFlag bool) Paint {
	if noColorFlag {
		return noColor{}
	}
	if f, ok := w.(*os.File); ok && !AutoDetect(f) {
		return noColor{}
	}
	return noColor{}
}

// AutoDetect reports whether f looks like a color-capable terminal.
func AutoDetect(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}

// Reporter streams suite results to Out.
type Reporter struct {
	Out     io.Writer
	Verbose int // 0 default, 1 = -v, 2 = -vv
	Paint   Paint
}

func New(out io.Writer, verbose int, noColorFlag bool) *Reporter {
	return &Reporter{Out: out, Verbose: verbose, Paint: NewPaint(out, noColorFlag)}
}

// Test prints the per-test character or line as soon as a result is ready.
func (r *Reporter) Test(res models.TestResult) {
	if r.Verbose == 0 {
		fmt.Fprint(r.Out, symbolFor(res))
		return
	}
	label := res.Case.Name
	switch res.Kind {
	case models.ResultPassed:
		fmt.Fprintf(r.Out, "%s %s (%s)\n", r.Paint.Green("PASS"), label, Elapsed(durationFromSeconds(res.Elapsed)))
	case models.ResultSkipped:
		fmt.Fprintf(r.Out, "%s %s: %s\n", r.Paint.Yellow("SKIP"), label, res.Reason)
	case models.ResultFailed:
		fmt.Fprintf(r.Out, "%s %s [%s] (%s)\n", r.Paint.Red("FAIL"), label, res.FailKind, Elapsed(durationFromSeconds(res.Elapsed)))
		r.printFailureDetail(res)
	}
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func symbolFor(res models.TestResult) string {
	switch res.Kind {
	case models.ResultPassed:
		return "."
	case models.ResultSkipped:
		return "s"
	default:
		return "F"
	}
}

func (r *Reporter) printFailureDetail(res models.TestResult) {
	detail := res.Detail
	if looksLikeJSON(detail) {
		detail = string(pretty.Pretty([]byte(detail)))
	}
	fmt.Fprintf(r.Out, "%s\n", detail)
	if res.Stderr != "" {
		fmt.Fprintf(r.Out, "stderr (tail):\n%s\n", tail(res.Stderr, 20))
	}
}

func looksLikeJSON(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		}
		return false
	}
	return false
}

func tail(s string, maxLines int) string {
	lines := splitLines(s)
	if len(lines) <= maxLines {
		return s
	}
	out := lines[len(lines)-maxLines:]
	joined := ""
	for i, l := range out {
		if i > 0 {
			joined += "\n"
		}
		joined += l
	}
	return joined
}

func splitLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// Suite prints a suite's final summary line.
func (r *Reporter) Suite(res models.SuiteResult) {
	passed, failed, skipped := res.Counts()
	fmt.Fprintf(r.Out, "\n%s: %d passed, %d failed, %d skipped (%s)\n",
		res.SuiteName, passed, failed, skipped, Elapsed(durationFromSeconds(res.Elapsed)))
	if !res.SetupOK {
		fmt.Fprintf(r.Out, "  setup failed: %v\n", res.SetupErr)
	}
	if !res.TeardownOK && res.TeardownErr != nil {
		fmt.Fprintf(r.Out, "  teardown failed: %v\n", res.TeardownErr)
	}
	if res.Interrupted {
		fmt.Fprintf(r.Out, "  interrupted\n")
	}
}

// Elapsed is a tiny helper so callers don't need a time import just to
// format a suite's duration consistently with the reporter's own calls.
func Elapsed(d time.Duration) string {
	return humanize.SIWithDigits(d.Seconds(), 3, "s")
}
