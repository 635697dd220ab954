package formatting

import (
	"time"

	"dockside/internal/history"
	"dockside/internal/reconciler"
)

// The view types are the serialized shape of command results. Errors are
// flattened to strings.

type UnitView struct {
	ID       string        `json:"id"`
	Change   string        `json:"change,omitempty"`
	Digest   string        `json:"digest,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type SourceView struct {
	URL      string        `json:"url"`
	ID       string        `json:"id"`
	Units    []string      `json:"units"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

type StatusView struct {
	StateDir    string     `json:"stateDir"`
	Snapshot    string     `json:"snapshot"`
	Running     bool       `json:"running"`
	Interrupted bool       `json:"interrupted"`
	Units       []UnitView `json:"units"`
	Retired     []UnitView `json:"retired"`
}

type PlanView struct {
	Sources  []SourceView `json:"sources"`
	Apply    []UnitView   `json:"apply"`
	Teardown []UnitView   `json:"teardown"`
}

type ReportView struct {
	RunID    string        `json:"runId"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Outcome  string        `json:"outcome"`
	Promoted bool          `json:"promoted"`
	Warnings []string      `json:"warnings,omitempty"`
	Sources  []SourceView  `json:"sources"`
	Applied  []UnitView    `json:"applied"`
	TornDown []UnitView    `json:"tornDown"`
	Retired  []string      `json:"retired"`
	Error    string        `json:"error,omitempty"`
}

type RunView struct {
	history.Run
	Events []history.UnitEvent `json:"events"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sourceViews(outcomes []reconciler.SourceOutcome) []SourceView {
	views := make([]SourceView, 0, len(outcomes))
	for _, o := range outcomes {
		units := make([]string, 0, len(o.Units))
		for _, id := range o.Units {
			units = append(units, id.String())
		}
		views = append(views, SourceView{URL: o.URL, ID: o.ID, Units: units, Duration: o.Duration, Error: errString(o.Err)})
	}
	return views
}

func unitViews(outcomes []reconciler.UnitOutcome) []UnitView {
	views := make([]UnitView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, UnitView{ID: o.ID.String(), Change: string(o.Change), Digest: o.Digest, Duration: o.Duration, Error: errString(o.Err)})
	}
	return views
}

func plannedViews(planned []reconciler.PlannedUnit) []UnitView {
	views := make([]UnitView, 0, len(planned))
	for _, p := range planned {
		views = append(views, UnitView{ID: p.ID.String(), Change: string(p.Change), Digest: p.Digest})
	}
	return views
}

func statusUnitViews(units []reconciler.UnitStatus) []UnitView {
	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		views = append(views, UnitView{ID: u.ID.String(), Digest: u.Digest})
	}
	return views
}

// NewStatusView converts a status for serialization.
func NewStatusView(s *reconciler.Status) StatusView {
	return StatusView{
		StateDir:    s.StateDir,
		Snapshot:    s.Snapshot,
		Running:     s.Running,
		Interrupted: s.Interrupted,
		Units:       statusUnitViews(s.Units),
		Retired:     statusUnitViews(s.Retired),
	}
}

// NewPlanView converts a plan for serialization.
func NewPlanView(p *reconciler.Plan) PlanView {
	return PlanView{
		Sources:  sourceViews(p.Sources),
		Apply:    plannedViews(p.Apply),
		Teardown: plannedViews(p.Teardown),
	}
}

// NewReportView converts a run report for serialization.
func NewReportView(r *reconciler.Report) ReportView {
	view := ReportView{
		RunID:    r.RunID,
		Started:  r.Started,
		Duration: r.Duration,
		Outcome:  history.Outcome(r),
		Promoted: r.Promoted,
		Sources:  sourceViews(r.Sources),
		Applied:  unitViews(r.Applied),
		TornDown: unitViews(r.TornDown),
		Retired:  make([]string, 0, len(r.Retired)),
		Error:    errString(r.Err),
	}
	for _, w := range r.ResetWarnings {
		view.Warnings = append(view.Warnings, w.Error())
	}
	for _, id := range r.Retired {
		view.Retired = append(view.Retired, id.String())
	}
	return view
}
