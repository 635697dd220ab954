// Package formatting renders dockside results for terminals and scripts.
//
// Every command result (status, plan, run report, history) can be printed
// as a table for humans, as JSON or YAML for tooling, or through a Go
// template with the sprig function library, in the spirit of
// `docker ps --format`.
package formatting

import (
	"fmt"
	"io"

	"dockside/internal/history"
	"dockside/internal/reconciler"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable    OutputFormat = "table"    // Rich table output
	FormatJSON     OutputFormat = "json"     // JSON output
	FormatYAML     OutputFormat = "yaml"     // YAML output
	FormatTemplate OutputFormat = "template" // Go template output
)

// ParseOutputFormat validates an --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatJSON, FormatYAML, FormatTemplate:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json, yaml or template)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format   OutputFormat
	Template string // Template text for FormatTemplate
	Color    bool   // Enable colored output
}

// Formatter renders command results.
type Formatter interface {
	FormatStatus(status *reconciler.Status) error
	FormatPlan(plan *reconciler.Plan) error
	FormatReport(report *reconciler.Report) error
	FormatRuns(runs []history.Run) error
	FormatRun(run history.Run, events []history.UnitEvent) error
}

// Factory creates formatters for different output formats
type Factory interface {
	CreateFormatter(w io.Writer, options Options) (Formatter, error)
}

// NewFactory creates a new formatter factory
func NewFactory() Factory {
	return &factory{}
}

type factory struct{}

// CreateFormatter creates the appropriate formatter based on options
func (f *factory) CreateFormatter(w io.Writer, options Options) (Formatter, error) {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatYAML:
		return NewYAMLFormatter(w), nil
	case FormatTemplate:
		return NewTemplateFormatter(w, options.Template)
	case FormatTable, "":
		return NewTableFormatter(w, options), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", options.Format)
	}
}
