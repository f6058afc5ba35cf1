// Package query answers "where is the nearest station" for any front end.
package query

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/swapstation/backend-go/internal/analytics"
	"github.com/swapstation/backend-go/internal/models"
	"github.com/swapstation/backend-go/internal/render"
)

const (
	eventCategory     = "nearby"
	actionFound       = "found"
	actionNotFound    = "not_found"
	actionUnavailable = "unavailable"
)

type Query struct {
	Lat          float64
	Lng          float64
	Capabilities render.Capabilities
}

type Result struct {
	SpokenText string           `json:"spokenText"`
	Cards      []render.Card    `json:"cards,omitempty"`
	Stations   []models.Station `json:"stations"`
}

type Service struct {
	finder   models.StationFinder
	renderer *render.Renderer
	reporter analytics.Reporter
}

// NewService wires a query service. A nil renderer uses the default
// messages and a nil reporter disables analytics.
func NewService(finder models.StationFinder, renderer *render.Renderer, reporter analytics.Reporter) *Service {
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	if reporter == nil {
		reporter = analytics.NopReporter{}
	}
	return &Service{
		finder:   finder,
		renderer: renderer,
		reporter: reporter,
	}
}

func (s *Service) Renderer() *render.Renderer {
	return s.renderer
}

// Nearby runs the search and renders it. Invalid coordinates and snapshot
// failures are returned to the caller.
func (s *Service) Nearby(ctx context.Context, q Query) (*Result, error) {
	if err := models.ValidateCoordinates(q.Lat, q.Lng); err != nil {
		return nil, err
	}

	stations, err := s.finder.FindNearestStations(ctx, q.Lat, q.Lng, 0)
	if err != nil {
		return nil, err
	}
	if stations == nil {
		stations = []models.Station{}
	}

	return &Result{
		SpokenText: s.renderer.SpokenText(stations),
		Cards:      s.renderer.Cards(stations, q.Capabilities),
		Stations:   stations,
	}, nil
}

// Answer always produces a reply. Failures are logged and turned into the
// location unavailable message. The outcome is reported to analytics.
func (s *Service) Answer(ctx context.Context, q Query, session string) *Result {
	result, err := s.Nearby(ctx, q)
	if err != nil {
		logFailure(err, q)
		s.reporter.Report(ctx, analytics.Event{
			Category: eventCategory,
			Action:   actionUnavailable,
			ClientID: session,
		})
		return &Result{
			SpokenText: s.renderer.LocationUnavailable(),
			Stations:   []models.Station{},
		}
	}

	ev := analytics.Event{Category: eventCategory, Action: actionNotFound, ClientID: session}
	if len(result.Stations) > 0 {
		ev.Action = actionFound
		ev.Label = result.Stations[0].Name
	}
	s.reporter.Report(ctx, ev)
	return result
}

// Flush waits, bounded by ctx, for analytics events still being delivered.
func (s *Service) Flush(ctx context.Context) bool {
	return analytics.Flush(ctx, s.reporter)
}

func logFailure(err error, q Query) {
	event := log.Error()
	var coordErr *models.InvalidCoordinateError
	if errors.As(err, &coordErr) {
		event = log.Warn()
	}

	var obj zerolog.LogObjectMarshaler
	if errors.As(err, &obj) {
		event = event.EmbedObject(obj)
	}
	event.Err(err).
		Float64("lat", q.Lat).
		Float64("lng", q.Lng).
		Msg("Nearby query failed")
}
