// Package summary renders the end-of-run report printed by the CLI.
package summary

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/dropsentry/internal/report"
	"github.com/joe/dropsentry/internal/reporter"
	"github.com/joe/dropsentry/internal/walker"
)

// Run collects everything a command produced.
type Run struct {
	Command  string
	Elapsed  time.Duration
	Drop     *reporter.DropResult
	Change   *reporter.ChangeResult
	Print    *reporter.PrintResult
	Dispatch report.DispatchStats
	Stored   int
}

// Failed reports whether any part of the run did not reach the collector.
func (r Run) Failed() bool {
	if r.Dispatch.Failed > 0 || r.Dispatch.Dropped > 0 {
		return true
	}

	switch {
	case r.Drop != nil:
		return len(r.Drop.DeliveryErrors) > 0
	case r.Change != nil:
		return r.Change.Err != nil
	case r.Print != nil:
		return r.Print.Err != nil
	}

	return false
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// Render formats the run. Styled output uses colors and a rounded box.
func Render(run Run, styled bool) string {
	p := painter{styled: styled}

	var b strings.Builder

	b.WriteString(p.title(run))
	b.WriteString("\n")

	switch {
	case run.Drop != nil:
		writeDrop(&b, p, *run.Drop)
	case run.Change != nil:
		b.WriteString(p.row("Records", fmt.Sprintf("%d %s", len(run.Change.Records), plural(len(run.Change.Records), "record", "records"))))
		if run.Change.Err != nil {
			b.WriteString(p.row("Error", p.err(run.Change.Err.Error())))
		}
	case run.Print != nil:
		b.WriteString(p.row("Delivered", fmt.Sprintf("%t", run.Print.Delivered)))
		if run.Print.Err != nil {
			b.WriteString(p.row("Error", p.err(run.Print.Err.Error())))
		}
	}

	if run.Command == "collect" {
		b.WriteString(p.row("Reports stored", fmt.Sprintf("%d", run.Stored)))
	} else {
		b.WriteString(p.row("Reports sent", fmt.Sprintf("%d", run.Dispatch.Delivered)))
		if run.Dispatch.Failed > 0 {
			b.WriteString(p.row("Reports failed", p.err(fmt.Sprintf("%d", run.Dispatch.Failed))))
		}
		if run.Dispatch.Dropped > 0 {
			b.WriteString(p.row("Reports dropped", p.warn(fmt.Sprintf("%d", run.Dispatch.Dropped))))
		}
	}

	b.WriteString(p.row("Time elapsed", FormatDuration(run.Elapsed)))

	out := strings.TrimRight(b.String(), "\n")
	if styled {
		return BoxStyle().Render(out)
	}

	return out
}

// Write renders the run to w, styled only when w is a terminal.
func Write(w io.Writer, run Run) error {
	_, err := fmt.Fprintln(w, Render(run, IsTerminal(w)))
	return err
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}

	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}

	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60 //nolint:mnd // seconds per minute

	return fmt.Sprintf("%dm%02ds", minutes, seconds)
}

type painter struct {
	styled bool
}

func (p painter) dim(text string) string {
	if !p.styled {
		return text
	}

	return DimStyle().Render(text)
}

func (p painter) err(text string) string {
	if !p.styled {
		return text
	}

	return ErrorStyle().Render(text)
}

func (p painter) ok(text string) string {
	if !p.styled {
		return text
	}

	return SuccessStyle().Render(text)
}

func (p painter) row(label, value string) string {
	if !p.styled {
		return fmt.Sprintf("%-*s%s\n", LabelWidth, label+":", value)
	}

	return LabelStyle().Render(label+":") + value + "\n"
}

func (p painter) title(run Run) string {
	text := fmt.Sprintf("dropsentry %s complete", run.Command)
	if run.Failed() {
		text = fmt.Sprintf("dropsentry %s finished with errors", run.Command)
	}

	if !p.styled {
		return text + "\n"
	}

	if run.Failed() {
		return ErrorStyle().MarginBottom(1).Render(text) + "\n"
	}

	return TitleStyle().Render(text) + "\n"
}

func (p painter) warn(text string) string {
	if !p.styled {
		return text
	}

	return WarningStyle().Render(text)
}

func outcomeText(p painter, outcome walker.Outcome) string {
	switch outcome {
	case walker.OutcomeComplete:
		return p.ok(string(outcome))
	case walker.OutcomeFailed:
		return p.err(string(outcome))
	default:
		return p.warn(string(outcome))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}

func writeDrop(b *strings.Builder, p painter, result reporter.DropResult) {
	b.WriteString(p.row("Top-level files", fmt.Sprintf("%d", len(result.CrossReferenced))))

	for _, dir := range result.Directories {
		detail := fmt.Sprintf("%s, %d %s, %d %s",
			outcomeText(p, dir.Outcome),
			len(dir.Records), plural(len(dir.Records), "record", "records"),
			dir.Directories, plural(dir.Directories, "directory", "directories"))
		if dir.Truncated {
			detail += p.warn(" (truncated)")
		}
		b.WriteString(p.row(dir.Root, detail))

		for _, failure := range dir.Failures {
			b.WriteString(p.dim(fmt.Sprintf("  %s\n", failure.Error())))
		}
	}

	b.WriteString(p.row("Records", fmt.Sprintf("%d", result.Records())))

	for _, err := range result.DeliveryErrors {
		b.WriteString(p.row("Delivery error", p.err(err.Error())))
	}
}
