package formatting

import (
	"fmt"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"dockside/internal/history"
	"dockside/internal/reconciler"
)

// TemplateFormatter executes a user template against the view of a result.
// The sprig functions are available, e.g.
//
//	dockside status -o template --template '{{range .Units}}{{.ID}} {{trunc 12 .Digest}}{{"\n"}}{{end}}'
type TemplateFormatter struct {
	w    io.Writer
	tmpl *template.Template
}

// NewTemplateFormatter parses text once; it is executed per result.
func NewTemplateFormatter(w io.Writer, text string) (Formatter, error) {
	if text == "" {
		return nil, fmt.Errorf("template output requires --template")
	}
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &TemplateFormatter{w: w, tmpl: tmpl}, nil
}

func (f *TemplateFormatter) execute(data interface{}) error {
	if err := f.tmpl.Execute(f.w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

func (f *TemplateFormatter) FormatStatus(status *reconciler.Status) error {
	return f.execute(NewStatusView(status))
}

func (f *TemplateFormatter) FormatPlan(plan *reconciler.Plan) error {
	return f.execute(NewPlanView(plan))
}

func (f *TemplateFormatter) FormatReport(report *reconciler.Report) error {
	return f.execute(NewReportView(report))
}

func (f *TemplateFormatter) FormatRuns(runs []history.Run) error {
	return f.execute(runs)
}

func (f *TemplateFormatter) FormatRun(run history.Run, events []history.UnitEvent) error {
	return f.execute(RunView{Run: run, Events: events})
}
