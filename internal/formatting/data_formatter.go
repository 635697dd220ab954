package formatting

import (
	"encoding/json"
	"fmt"
	"io"

	"sigs.k8s.io/yaml"

	"dockside/internal/history"
	"dockside/internal/reconciler"
)

// DataFormatter writes results as machine-readable documents.
type DataFormatter struct {
	w       io.Writer
	marshal func(v interface{}) ([]byte, error)
}

// NewJSONFormatter creates a formatter writing indented JSON.
func NewJSONFormatter(w io.Writer) Formatter {
	return &DataFormatter{w: w, marshal: func(v interface{}) ([]byte, error) {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}}
}

// NewYAMLFormatter creates a formatter writing YAML. Field names follow the
// JSON tags of the view types.
func NewYAMLFormatter(w io.Writer) Formatter {
	return &DataFormatter{w: w, marshal: yaml.Marshal}
}

func (f *DataFormatter) write(v interface{}) error {
	b, err := f.marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = f.w.Write(b)
	return err
}

func (f *DataFormatter) FormatStatus(status *reconciler.Status) error {
	return f.write(NewStatusView(status))
}

func (f *DataFormatter) FormatPlan(plan *reconciler.Plan) error {
	return f.write(NewPlanView(plan))
}

func (f *DataFormatter) FormatReport(report *reconciler.Report) error {
	return f.write(NewReportView(report))
}

func (f *DataFormatter) FormatRuns(runs []history.Run) error {
	if runs == nil {
		runs = []history.Run{}
	}
	return f.write(runs)
}

func (f *DataFormatter) FormatRun(run history.Run, events []history.UnitEvent) error {
	if events == nil {
		events = []history.UnitEvent{}
	}
	return f.write(RunView{Run: run, Events: events})
}
