// Package planner runs the recommendation pipeline: rank the catalog,
// price the winner, compose its days, fit them to the budget and record
// the result.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neexbeast/itinera/internal/budget"
	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/export"
	"github.com/neexbeast/itinera/internal/flights"
	"github.com/neexbeast/itinera/internal/itinerary"
	"github.com/neexbeast/itinera/internal/pricing"
	"github.com/neexbeast/itinera/internal/scoring"
	"github.com/neexbeast/itinera/internal/storage"
	"github.com/neexbeast/itinera/internal/trip"
)

// Shortlist bounds.
const (
	DefaultShortlist = 8
	MinShortlist     = 2
	MaxShortlist     = 15

	highlightCount   = 6
	alternativeCount = 2
)

// ErrEmptyCatalog is returned when there is nothing to rank.
var ErrEmptyCatalog = errors.New("catalog has no destinations")

// Quoter prices flights for destinations.
type Quoter interface {
	QuoteAll(ctx context.Context, dests []catalog.Destination, date time.Time) (map[string]flights.Quote, error)
	Enrich(ctx context.Context, d catalog.Destination, date time.Time) (catalog.Destination, string)
}

// Summarizer shortens a note. It never fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// PlanStore persists generated plans.
type PlanStore interface {
	SavePlan(ctx context.Context, p *storage.Plan) error
}

// Request is one planning request.
type Request struct {
	Query     trip.Query
	Interests string
	Shortlist int
}

// Option is one row of a recommendation shortlist.
type Option struct {
	Rank           int      `json:"rank"`
	City           string   `json:"city"`
	Country        string   `json:"country"`
	Score          float64  `json:"score"`
	EstimatedTotal float64  `json:"estimated_total"`
	Flight         float64  `json:"flight"`
	Hotel          float64  `json:"hotel"`
	CO2Kg          float64  `json:"co2_kg"`
	Walkability    float64  `json:"walkability"`
	Safety         float64  `json:"safety"`
	Vibes          []string `json:"vibes"`
	FlightSource   string   `json:"flight_source"`
}

// Recommendation is a ranked shortlist.
type Recommendation struct {
	Preferences trip.Preferences `json:"preferences"`
	Nights      int              `json:"nights"`
	Options     []Option         `json:"options"`
}

// Result is a generated plan with everything shown next to it.
type Result struct {
	ID               uuid.UUID                `json:"id"`
	Record           export.Record            `json:"record"`
	Score            float64                  `json:"score"`
	Target           float64                  `json:"target"`
	WithinTarget     bool                     `json:"within_target"`
	Strategy         string                   `json:"strategy"`
	Dropped          []string                 `json:"dropped"`
	Status           pricing.Status           `json:"status"`
	Matches          map[string]catalog.Match `json:"matches"`
	Guide            catalog.Guide            `json:"guide"`
	FlightClass      string                   `json:"flight_class"`
	AttractionAccess string                   `json:"attraction_access"`
	FlightSource     string                   `json:"flight_source"`
	Highlights       []itinerary.Highlight    `json:"highlights"`
	Alternatives     []Option                 `json:"alternatives"`
}

// Service is the planning pipeline.
type Service struct {
	catalog  *catalog.Catalog
	engine   *scoring.Engine
	composer *itinerary.Composer
	fitter   *budget.Fitter
	quotes   Quoter
	notes    Summarizer
	store    PlanStore
	metrics  *Metrics
	tracer   trace.Tracer
	log      *slog.Logger
}

// NewService wires a Service. quotes, notes, store and metrics may be nil.
func NewService(c *catalog.Catalog, fitter *budget.Fitter, quotes Quoter, notes Summarizer, store PlanStore, metrics *Metrics, log *slog.Logger) *Service {
	if fitter == nil {
		fitter = budget.NewFitter(budget.Greedy{}, 0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		catalog:  c,
		engine:   scoring.NewEngine(c),
		composer: itinerary.NewComposer(c),
		fitter:   fitter,
		quotes:   quotes,
		notes:    notes,
		store:    store,
		metrics:  metrics,
		tracer:   otel.Tracer("PlannerService"),
		log:      log,
	}
}

// Destinations lists the catalog.
func (s *Service) Destinations() []catalog.Destination {
	return s.catalog.Destinations()
}

// POIs ranks the points of interest of city for prefs.
func (s *Service) POIs(city string, prefs trip.Preferences) ([]itinerary.Activity, error) {
	pois, err := s.catalog.POIs(city)
	if err != nil {
		return nil, err
	}
	return itinerary.RankPOIs(pois, prefs), nil
}

// prepare validates the request and folds the free-text interests into
// the preference set.
func prepare(req Request) (trip.Query, int, error) {
	q := req.Query
	if err := q.Validate(); err != nil {
		return trip.Query{}, 0, err
	}
	q.Preferences = trip.NewPreferences(slices.Concat(q.Preferences, catalog.ParseInterests(req.Interests))...)

	k := req.Shortlist
	if k == 0 {
		k = DefaultShortlist
	}
	if k < MinShortlist || k > MaxShortlist {
		return trip.Query{}, 0, &trip.InvalidInputError{
			Field:  "shortlist",
			Reason: fmt.Errorf("must be between %d and %d, got %d", MinShortlist, MaxShortlist, k),
		}
	}
	return q, k, nil
}

func option(rank int, r scoring.Ranked, source string) Option {
	d := r.Destination
	return Option{
		Rank:           rank,
		City:           d.City,
		Country:        d.Country,
		Score:          r.Score,
		EstimatedTotal: r.Total(),
		Flight:         r.Costs.Flight,
		Hotel:          r.Costs.Hotel,
		CO2Kg:          d.CO2Kg,
		Walkability:    d.Attributes.Walkability,
		Safety:         d.Attributes.Safety,
		Vibes:          d.Vibes,
		FlightSource:   source,
	}
}

func (s *Service) fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}

// Recommend ranks the catalog and quotes flights for the shortlist.
// Live quotes replace the flight line of a row but never reorder it.
func (s *Service) Recommend(ctx context.Context, req Request) (Recommendation, error) {
	ctx, span := s.tracer.Start(ctx, "Recommend")
	defer span.End()
	l := s.log.With(slog.String("method", "Recommend"))

	q, k, err := prepare(req)
	if err != nil {
		return Recommendation{}, s.fail(span, err, "invalid request")
	}
	span.SetAttributes(
		attribute.String("tier", q.Tier.String()),
		attribute.Float64("budget", q.Budget),
		attribute.Int("shortlist", k),
	)

	ranked, err := s.engine.Rank(s.catalog.Destinations(), q)
	if err != nil {
		return Recommendation{}, s.fail(span, fmt.Errorf("ranking destinations: %w", err), "ranking failed")
	}
	if len(ranked) == 0 {
		return Recommendation{}, s.fail(span, ErrEmptyCatalog, "empty catalog")
	}
	short := scoring.Shortlist(ranked, k)

	var quotes map[string]flights.Quote
	if s.quotes != nil {
		dests := make([]catalog.Destination, len(short))
		for i, r := range short {
			dests[i] = r.Destination
		}
		quotes, err = s.quotes.QuoteAll(ctx, dests, q.Start)
		if err != nil {
			l.WarnContext(ctx, "flight quotes failed, using catalog prices", "err", err)
			quotes = nil
		}
	}

	rec := Recommendation{Preferences: q.Preferences, Nights: q.Nights(), Options: make([]Option, 0, len(short))}
	for i, r := range short {
		source := flights.SourceCatalog
		if quote, ok := quotes[r.Destination.City]; ok {
			costs, err := pricing.BaselineCosts(r.Destination.WithFlightPrices(quote.Prices), q.Nights(), q.Start, q.Tier)
			if err == nil {
				r.Costs = costs
				source = quote.Source
			}
		}
		rec.Options = append(rec.Options, option(i+1, r, source))
	}

	l.InfoContext(ctx, "recommendation ready", "options", len(rec.Options), "top", rec.Options[0].City)
	span.SetStatus(codes.Ok, "shortlist ranked")
	return rec, nil
}

// Plan runs the whole pipeline for the best destination and stores the result.
func (s *Service) Plan(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "Plan")
	defer span.End()
	l := s.log.With(slog.String("method", "Plan"))

	q, _, err := prepare(req)
	if err != nil {
		return nil, s.fail(span, err, "invalid request")
	}

	ranked, err := s.engine.Rank(s.catalog.Destinations(), q)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("ranking destinations: %w", err), "ranking failed")
	}
	if len(ranked) == 0 {
		return nil, s.fail(span, ErrEmptyCatalog, "empty catalog")
	}
	best := ranked[0]
	span.SetAttributes(
		attribute.String("city", best.Destination.City),
		attribute.String("tier", q.Tier.String()),
		attribute.Float64("score", best.Score),
	)

	d, source := best.Destination, flights.SourceCatalog
	if s.quotes != nil {
		d, source = s.quotes.Enrich(ctx, d, q.Start)
	}
	s.metrics.flightQuote(source)

	plan, err := s.composer.Compose(d.City, q.Start, q.End, q.Preferences)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("composing %s: %w", d.City, err), "compose failed")
	}

	started := time.Now()
	fit, err := s.fitter.Fit(ctx, d, plan, q)
	if err != nil {
		return nil, s.fail(span, fmt.Errorf("fitting %s: %w", d.City, err), "fit failed")
	}
	s.metrics.fit(fit.Strategy, fit.WithinTarget, time.Since(started))
	if !fit.WithinTarget {
		l.InfoContext(ctx, "budget target not reachable", "city", d.City, "total", fit.Total, "target", fit.Target)
	}

	s.writeNotes(ctx, fit.Plan)

	res := &Result{
		Record:           export.NewRecord(d.City, d.Country, q, fit.Total, fit.Breakdown, fit.Plan),
		Score:            best.Score,
		Target:           fit.Target,
		WithinTarget:     fit.WithinTarget,
		Strategy:         fit.Strategy,
		Dropped:          make([]string, 0, len(fit.Dropped)),
		Status:           pricing.BudgetStatus(fit.Total, q.Budget, q.Tier),
		Matches:          make(map[string]catalog.Match, len(q.Preferences)),
		Guide:            s.catalog.Guide(d.City, q.Tier),
		FlightClass:      catalog.FlightClass(q.Tier),
		AttractionAccess: catalog.AttractionAccess(q.Tier),
		FlightSource:     source,
	}
	for _, p := range fit.Dropped {
		res.Dropped = append(res.Dropped, p.Activity.Name)
	}
	for _, pref := range q.Preferences {
		res.Matches[pref] = catalog.MatchPreference(d, pref)
	}
	if pois, err := s.catalog.POIs(d.City); err == nil {
		res.Highlights = itinerary.Highlights(pois, q.Preferences, highlightCount)
	}
	for i, r := range ranked[1:min(len(ranked), 1+alternativeCount)] {
		res.Alternatives = append(res.Alternatives, option(i+2, r, flights.SourceCatalog))
	}

	if s.store != nil {
		stored := &storage.Plan{
			City:         d.City,
			Start:        q.Start,
			End:          q.End,
			Budget:       q.Budget,
			LuxuryLevel:  q.Tier.String(),
			Buffer:       q.Buffer,
			Total:        fit.Total,
			Target:       fit.Target,
			WithinTarget: fit.WithinTarget,
			Strategy:     fit.Strategy,
			Record:       res.Record,
		}
		if err := s.store.SavePlan(ctx, stored); err != nil {
			return nil, s.fail(span, fmt.Errorf("saving plan for %s: %w", d.City, err), "save failed")
		}
		res.ID = stored.ID
	}

	s.metrics.plan(q.Tier.String())
	l.InfoContext(ctx, "plan generated",
		"city", d.City,
		"tier", q.Tier.String(),
		"total", fit.Total,
		"target", fit.Target,
		"strategy", fit.Strategy,
		"dropped", len(fit.Dropped),
		"breakdown", fit.Breakdown.Describe(),
	)
	span.SetStatus(codes.Ok, "plan generated")
	return res, nil
}

// writeNotes fills each day's notes with a blurb per remaining activity.
func (s *Service) writeNotes(ctx context.Context, plan []itinerary.DayPlan) {
	for i := range plan {
		var notes []string
		for _, a := range plan[i].Activities() {
			blurb := itinerary.Describe(a)
			if s.notes != nil {
				blurb = s.notes.Summarize(ctx, blurb)
			}
			notes = append(notes, blurb)
		}
		plan[i].Notes = strings.Join(notes, " ")
	}
}
