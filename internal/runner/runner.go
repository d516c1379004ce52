// Package runner drives the orchestrator from the three user-facing triggers
// and dispatches outcomes to the view and persistence boundaries.
package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/geometeo/weather-client/internal/models"
	"github.com/geometeo/weather-client/internal/observability"
	"github.com/geometeo/weather-client/internal/orchestrator"
	"github.com/geometeo/weather-client/internal/query"
)

// View is the rendering boundary. Implementations own layout concerns; the
// runner only tells them what happened. Nothing is called for superseded runs.
type View interface {
	// SetBusy toggles the busy indicator and the trigger control.
	SetBusy(busy bool)
	// RenderWeather displays a fresh or cached report.
	RenderWeather(report models.WeatherReport)
	// RenderError surfaces a short human-readable failure message.
	RenderError(message string)
	// FocusQuery returns input focus to the query field after a failure.
	FocusQuery()
}

// Store is the persistence boundary for the last-searched city.
type Store interface {
	SaveLastCity(name string) error
	LastCity() (string, bool)
}

// Runs is the slice of the orchestrator the runner depends on.
type Runs interface {
	Run(ctx context.Context, q query.Query) orchestrator.Outcome
}

// Trigger names the entry point that started a lookup, for logs and metrics.
type Trigger string

const (
	TriggerSubmit    Trigger = "submit"
	TriggerBootstrap Trigger = "bootstrap"
	TriggerMapClick  Trigger = "map_click"
)

// Runner coordinates lookups around the orchestrator: busy state on the way
// in, outcome dispatch on the way out.
type Runner struct {
	orch   Runs
	view   View
	store  Store
	logger *zap.Logger
}

// New returns a Runner.
func New(orch Runs, view View, store Store, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{orch: orch, view: view, store: store, logger: logger}
}

// Submit handles a form submission with raw user input. Validation failures
// surface like any other failure: message plus refocused input.
func (r *Runner) Submit(ctx context.Context, input string) orchestrator.Outcome {
	city, err := query.ValidateCity(input)
	if err != nil {
		out := orchestrator.Outcome{
			Kind:    orchestrator.Failure,
			Message: "Please enter a valid city name.",
		}
		r.dispatch(TriggerSubmit, out)
		return out
	}
	return r.lookup(ctx, TriggerSubmit, query.City(city))
}

// Bootstrap looks up the persisted last-searched city, if any. Returns false
// when there is nothing to restore.
func (r *Runner) Bootstrap(ctx context.Context) (orchestrator.Outcome, bool) {
	city, ok := r.store.LastCity()
	if !ok {
		return orchestrator.Outcome{}, false
	}
	return r.lookup(ctx, TriggerBootstrap, query.City(city)), true
}

// MapClick handles a coordinate pick.
func (r *Runner) MapClick(ctx context.Context, lat, lon float64) orchestrator.Outcome {
	if err := query.ValidateCoord(lat, lon); err != nil {
		out := orchestrator.Outcome{
			Kind:    orchestrator.Failure,
			Message: "Those coordinates are out of range.",
		}
		r.dispatch(TriggerMapClick, out)
		return out
	}
	return r.lookup(ctx, TriggerMapClick, query.Coord(lat, lon))
}

// lookup wraps one orchestrator run in scoped busy state: set before the
// call, restored on every outcome.
func (r *Runner) lookup(ctx context.Context, trigger Trigger, q query.Query) orchestrator.Outcome {
	observability.QueriesTotal.WithLabelValues(string(trigger)).Inc()

	r.view.SetBusy(true)
	defer r.view.SetBusy(false)

	out := r.orch.Run(ctx, q)
	r.dispatch(trigger, out)
	return out
}

// dispatch routes an outcome to the view and persistence boundaries.
// Superseded runs are dropped silently: a newer lookup owns the screen.
func (r *Runner) dispatch(trigger Trigger, out orchestrator.Outcome) {
	switch out.Kind {
	case orchestrator.Hit, orchestrator.Success:
		r.view.RenderWeather(out.Report)
		if out.Report.City != "" {
			if err := r.store.SaveLastCity(out.Report.City); err != nil {
				r.logger.Warn("persist last city failed",
					zap.String("city", out.Report.City), zap.Error(err))
			}
		}
	case orchestrator.Superseded:
		r.logger.Debug("superseded lookup dropped", zap.String("trigger", string(trigger)))
	case orchestrator.Failure:
		r.view.RenderError(out.Message)
		r.view.FocusQuery()
	}
}
