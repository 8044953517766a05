// Package report renders runner results for a terminal.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"checker/internal/checkfile"
	"checker/internal/logging"
	"checker/internal/match"
)

// Semantic colors
var (
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Destructive = lipgloss.Color("#e53935") // Red
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Info        = lipgloss.Color("#2196F3") // Blue
)

// Styles holds the styles used by the console reporter.
type Styles struct {
	Pass     lipgloss.Style
	Fail     lipgloss.Style
	Location lipgloss.Style
	Variable lipgloss.Style
	Header   lipgloss.Style
	Muted    lipgloss.Style
}

// NewStyles builds styles bound to r. A renderer writing to something other
// than a terminal produces plain text.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Pass:     r.NewStyle().Foreground(Success).Bold(true),
		Fail:     r.NewStyle().Foreground(Destructive).Bold(true),
		Location: r.NewStyle().Foreground(Warning),
		Variable: r.NewStyle().Foreground(Info),
		Header:   r.NewStyle().Bold(true).Padding(0, 1),
		Muted:    r.NewStyle().Faint(true).Padding(0, 1),
	}
}

// Options configure the console reporter.
type Options struct {
	// PrintDump echoes the whole dump after a failing test case.
	PrintDump bool
	// DumpLines is the raw dump text, line by line.
	DumpLines []string
	// Quiet prints failures and errors only.
	Quiet bool
}

// Console is a match.Reporter writing human-readable output.
type Console struct {
	w      io.Writer
	opts   Options
	styles Styles
	r      *lipgloss.Renderer
}

var _ match.Reporter = (*Console)(nil)

// NewConsole creates a console reporter writing to w.
func NewConsole(w io.Writer, opts Options) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{w: w, opts: opts, styles: NewStyles(r), r: r}
}

func (c *Console) printf(format string, args ...interface{}) {
	fmt.Fprintf(c.w, format, args...)
}

// StartFile announces the files being checked.
func (c *Console) StartFile(source, dump string) {
	logging.Get(logging.CategoryReport).Debugw("checking", "source", source, "dump", dump)
}

// CaseResult prints one test case line and, for failures, its diagnostics.
func (c *Console) CaseResult(res match.Result) {
	if res.Passed() {
		if !c.opts.Quiet {
			c.printf("TEST %s... %s\n", res.TestCase.Name, c.styles.Pass.Render("PASS"))
		}
		return
	}
	c.printf("TEST %s... %s\n", res.TestCase.Name, c.styles.Fail.Render("FAIL"))

	f := res.Failure
	c.printf("%s\n", c.styles.Fail.Render(f.Message(res.DumpLine())))
	c.statement(f.Statement)
	c.bindings(f.Bindings)
	c.dump()
}

// Fatal prints an error that ended the run.
func (c *Console) Fatal(err error) {
	c.printf("%s %s\n", c.styles.Fail.Render("error:"), err.Error())

	var serr *match.StatementError
	if errors.As(err, &serr) {
		c.bindings(serr.Bindings)
	}
}

func (c *Console) statement(stmt *checkfile.Statement) {
	loc := fmt.Sprintf("%s:%d:", stmt.File, stmt.LineNo)
	c.printf("%s %s\n", c.styles.Location.Render(loc), stmt.OriginalText)
}

func (c *Console) bindings(vars match.Bindings) {
	names := vars.Names()
	if len(names) == 0 {
		return
	}
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		v, _ := vars.Get(n)
		padded := n + strings.Repeat(" ", width-len(n))
		c.printf("  %s = %s\n", c.styles.Variable.Render(padded), v)
	}
}

func (c *Console) dump() {
	if !c.opts.PrintDump || len(c.opts.DumpLines) == 0 {
		return
	}
	c.printf("\n")
	for _, line := range c.opts.DumpLines {
		c.printf("%s\n", line)
	}
}

// Summary prints the per-file totals.
func (c *Console) Summary(s match.Summary) {
	if c.opts.Quiet {
		if !s.OK() {
			c.printf("%s\n", c.styles.Fail.Render("FAILED"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(c.r.NewStyle().Foreground(Info)).
		Headers("SOURCE", "DUMP", "SELECTED", "PASSED", "FAILED", "TIME").
		Row(s.Source, s.Dump,
			strconv.Itoa(s.Selected), strconv.Itoa(s.Passed), strconv.Itoa(s.Failed),
			s.Duration.Round(time.Microsecond).String()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return c.styles.Header
			}
			return c.styles.Muted
		})
	c.printf("%s\n", t.Render())

	if s.OK() {
		c.printf("%s\n", c.styles.Pass.Render("OK"))
	} else {
		c.printf("%s\n", c.styles.Fail.Render("FAILED"))
	}
}
