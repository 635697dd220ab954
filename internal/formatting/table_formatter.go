package formatting

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"dockside/internal/descriptor"
	"dockside/internal/history"
	"dockside/internal/reconciler"
	pkgstrings "dockside/pkg/strings"
)

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	w       io.Writer
	options Options
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer, options Options) Formatter {
	return &TableFormatter{w: w, options: options}
}

func (f *TableFormatter) FormatStatus(status *reconciler.Status) error {
	switch {
	case status.Running:
		f.printf("%s\n", f.paint(text.FgCyan, "A reconciliation run is in progress."))
	case status.Interrupted:
		f.printf("%s\n", f.paint(text.FgYellow, "Last run did not finish; the next run recovers from "+status.Snapshot+"."))
	}
	if len(status.Units) == 0 && len(status.Retired) == 0 {
		f.printf("%s\n", f.paint(text.FgYellow, "No units recorded in "+status.StateDir))
		return nil
	}

	t := f.createTable()
	t.AppendHeader(f.header("UNIT", "DIGEST", "STATE"))
	for _, u := range status.Units {
		t.AppendRow(table.Row{u.ID, descriptor.ShortDigest(u.Digest), f.paint(text.FgGreen, "recorded")})
	}
	for _, u := range status.Retired {
		t.AppendRow(table.Row{u.ID, descriptor.ShortDigest(u.Digest), f.paint(text.FgRed, "teardown pending")})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) FormatPlan(plan *reconciler.Plan) error {
	f.formatSources(plan.Sources)

	if len(plan.Apply) == 0 && len(plan.Teardown) == 0 {
		f.printf("%s\n", f.paint(text.FgYellow, "Nothing to apply or tear down."))
		return nil
	}
	t := f.createTable()
	t.AppendHeader(f.header("UNIT", "ACTION", "CHANGE", "DIGEST"))
	for _, p := range plan.Apply {
		t.AppendRow(table.Row{p.ID, "apply", f.change(p.Change), descriptor.ShortDigest(p.Digest)})
	}
	for _, p := range plan.Teardown {
		t.AppendRow(table.Row{p.ID, "teardown", f.change(p.Change), descriptor.ShortDigest(p.Digest)})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) FormatReport(report *reconciler.Report) error {
	for _, w := range report.ResetWarnings {
		f.printf("%s %v\n", f.paint(text.FgYellow, "warning:"), w)
	}
	f.formatSources(report.Sources)

	if len(report.Applied)+len(report.TornDown) > 0 {
		t := f.createTable()
		t.AppendHeader(f.header("UNIT", "ACTION", "CHANGE", "DURATION", "RESULT"))
		add := func(action string, outcomes []reconciler.UnitOutcome) {
			for _, o := range outcomes {
				t.AppendRow(table.Row{o.ID, action, f.change(o.Change), roundDuration(o.Duration), f.result(o.Err)})
			}
		}
		add("apply", report.Applied)
		add("teardown", report.TornDown)
		t.Render()
	}

	f.printf("\n%s %s in %s (run %s)\n",
		f.paint(text.FgHiBlue, "Outcome:"),
		f.outcome(history.Outcome(report)),
		roundDuration(report.Duration),
		report.RunID)
	if len(report.Retired) > 0 {
		f.printf("%s %d units pending teardown retry\n", f.paint(text.FgYellow, "Retired:"), len(report.Retired))
	}
	return nil
}

func (f *TableFormatter) FormatRuns(runs []history.Run) error {
	if len(runs) == 0 {
		f.printf("%s\n", f.paint(text.FgYellow, "No runs recorded"))
		return nil
	}
	t := f.createTable()
	t.AppendHeader(f.header("RUN", "STARTED", "DURATION", "OUTCOME", "SOURCES", "APPLIED", "TORN DOWN", "RETIRED"))
	for _, r := range runs {
		t.AppendRow(table.Row{
			shortRunID(r.ID),
			r.Started.Local().Format(time.DateTime),
			roundDuration(r.Duration),
			f.outcome(r.Outcome),
			ratio(r.Sources-r.FailedSources, r.Sources),
			ratio(r.Applied-r.ApplyFailed, r.Applied),
			ratio(r.TornDown-r.TeardownFailed, r.TornDown),
			r.Retired,
		})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) FormatRun(run history.Run, events []history.UnitEvent) error {
	f.printf("%s %s\n", f.paint(text.FgHiBlue, "Run:"), run.ID)
	f.printf("%s %s\n", f.paint(text.FgHiBlue, "Started:"), run.Started.Local().Format(time.RFC3339))
	f.printf("%s %s in %s\n", f.paint(text.FgHiBlue, "Outcome:"), f.outcome(run.Outcome), roundDuration(run.Duration))
	if run.Error != "" {
		f.printf("%s %s\n", f.paint(text.FgRed, "Error:"), run.Error)
	}
	if len(events) == 0 {
		return nil
	}

	t := f.createTable()
	t.AppendHeader(f.header("UNIT", "ACTION", "CHANGE", "DIGEST", "DURATION", "RESULT"))
	for _, e := range events {
		var err error
		if e.Error != "" {
			err = fmt.Errorf("%s", e.Error)
		}
		t.AppendRow(table.Row{e.Unit, e.Phase, f.change(reconciler.Change(e.Change)), descriptor.ShortDigest(e.Digest), roundDuration(e.Duration), f.result(err)})
	}
	t.Render()
	return nil
}

func (f *TableFormatter) formatSources(sources []reconciler.SourceOutcome) {
	for _, s := range sources {
		if s.Failed() {
			f.printf("%s %s: %v\n", f.paint(text.FgRed, "✗"), s.URL, s.Err)
			continue
		}
		f.printf("%s %s: %d units\n", f.paint(text.FgGreen, "✓"), s.URL, len(s.Units))
	}
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.w)
	if f.options.Color {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t
}

func (f *TableFormatter) header(names ...string) table.Row {
	row := make(table.Row, 0, len(names))
	for _, n := range names {
		row = append(row, f.paint(text.FgHiCyan, n))
	}
	return row
}

func (f *TableFormatter) paint(c text.Color, s string) string {
	if !f.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (f *TableFormatter) change(c reconciler.Change) string {
	switch c {
	case reconciler.ChangeAdded:
		return f.paint(text.FgGreen, string(c))
	case reconciler.ChangeModified:
		return f.paint(text.FgYellow, string(c))
	case reconciler.ChangeRemoved, reconciler.ChangeRetried:
		return f.paint(text.FgRed, string(c))
	default:
		return string(c)
	}
}

func (f *TableFormatter) result(err error) string {
	if err != nil {
		return f.paint(text.FgRed, pkgstrings.OneLine(err.Error(), pkgstrings.DefaultMaxLen))
	}
	return f.paint(text.FgGreen, "ok")
}

func (f *TableFormatter) outcome(outcome string) string {
	switch outcome {
	case history.OutcomeSuccess:
		return f.paint(text.FgGreen, outcome)
	case history.OutcomeFailed:
		return f.paint(text.FgYellow, outcome)
	default:
		return f.paint(text.FgRed, outcome)
	}
}

func (f *TableFormatter) printf(format string, args ...interface{}) {
	fmt.Fprintf(f.w, format, args...)
}
