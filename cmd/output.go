package cmd

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"dockside/internal/app"
	"dockside/internal/formatting"
)

// outputFlags are the result rendering flags of a command.
type outputFlags struct {
	format   string
	template string
	noColor  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "output", "o", "table", "Output format: table, json, yaml or template")
	cmd.Flags().StringVar(&o.template, "template", "", "Go template for --output template (sprig functions available)")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "Disable colored table output")
}

func (o *outputFlags) formatter(w io.Writer) (formatting.Formatter, error) {
	format, err := formatting.ParseOutputFormat(o.format)
	if err != nil {
		return nil, err
	}
	return formatting.NewFactory().CreateFormatter(w, formatting.Options{
		Format:   format,
		Template: o.template,
		Color:    format == formatting.FormatTable && !o.noColor && os.Getenv("NO_COLOR") == "" && isTerminal(w),
	})
}

// interactive reports whether progress indicators should be drawn.
func (o *outputFlags) interactive(w io.Writer) bool {
	return (o.format == "" || o.format == string(formatting.FormatTable)) && isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

// startSpinner draws a progress spinner on w. The returned function stops it.
func startSpinner(w io.Writer, suffix string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return s.Stop
}

// newApplication bootstraps the application from the global flags. Quiet
// applications only log warnings and errors unless --debug is set.
func newApplication(quiet bool) (*app.Application, error) {
	cfg := app.NewConfig(debug, logFormat, configPath)
	cfg.Quiet = quiet
	return app.NewApplication(cfg)
}
