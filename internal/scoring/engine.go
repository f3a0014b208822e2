// Package scoring ranks catalog destinations for a traveler query.
//
// A score combines value for money, seasonality, quality attributes and
// preference match into a weighted sum, then applies destination-level
// modifiers and a small deterministic perturbation that separates
// near-identical queries. The same query always yields the same score.
package scoring

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/pricing"
	"github.com/neexbeast/itinera/internal/trip"
)

// cityAdjustments nudge individual destinations up or down.
var cityAdjustments = map[string]float64{
	"Barcelona":  0.87,
	"Budapest":   1.05,
	"Prague":     1.04,
	"Amsterdam":  0.91,
	"Vienna":     0.97,
	"Rome":       0.90,
	"Berlin":     0.98,
	"Zurich":     0.85,
	"Krakow":     1.08,
	"Copenhagen": 0.86,
	"Dubrovnik":  0.94,
	"Edinburgh":  0.93,
	"Ljubljana":  1.02,
}

// CityAdjustment returns the fixed multiplier for city, 1.0 when it has none.
func CityAdjustment(city string) float64 {
	if v, ok := cityAdjustments[city]; ok {
		return v
	}
	return 1.0
}

// Components are the sub-scores of one destination for one query.
type Components struct {
	Value      float64
	Season     float64
	Walk       float64
	Safety     float64
	Vibe       float64
	Access     float64
	CO2        float64
	Livability float64
	Cultural   float64
	BudgetSens float64
}

func (c Components) weighted(w Weights) float64 {
	return w.Value*c.Value +
		w.Season*c.Season +
		w.Walk*c.Walk +
		w.Safety*c.Safety +
		w.Vibe*c.Vibe +
		w.Access*c.Access +
		w.CO2*c.CO2 +
		w.Livability*c.Livability +
		w.Cultural*c.Cultural +
		w.BudgetSens*c.BudgetSens
}

// Engine scores destinations against the CO2 range of the catalog it was built from.
type Engine struct {
	co2Min float64
	co2Max float64
}

// NewEngine builds an Engine over c.
func NewEngine(c *catalog.Catalog) *Engine {
	lo, hi := c.CO2Range()
	return &Engine{co2Min: lo, co2Max: hi}
}

func validate(q trip.Query) error {
	if err := trip.CheckBudget(q.Budget); err != nil {
		return err
	}
	if err := trip.CheckDates(q.Start, q.End); err != nil {
		return err
	}
	return trip.CheckTier(q.Tier)
}

// ValueScore rates the baseline cost of a stay against the tier's spending ceiling.
func ValueScore(d catalog.Destination, q trip.Query) (float64, error) {
	costs, err := pricing.BaselineCosts(d, q.Nights(), q.Start, q.Tier)
	if err != nil {
		return 0, err
	}
	ratio := costs.Total() / math.Max(pricing.Ceiling(q.Budget, q.Tier), 1.0)
	if ratio <= 1 {
		return math.Min(1.0, 0.7+0.3*(1-ratio)), nil
	}
	return math.Max(0.0, 0.1-0.5*(ratio-1)), nil
}

// SeasonFactor is the month price multiplier, shaved by 2% when the trip
// crosses into another calendar month.
func SeasonFactor(d catalog.Destination, q trip.Query) float64 {
	f := d.MonthModifier(q.Start)
	if q.Start.Month() != q.End.Month() {
		f *= 0.98
	}
	return f
}

// Components computes every sub-score of d for q.
func (e *Engine) Components(d catalog.Destination, q trip.Query) (Components, error) {
	if err := validate(q); err != nil {
		return Components{}, err
	}
	prefs := trip.NewPreferences(q.Preferences...)

	value, err := ValueScore(d, q)
	if err != nil {
		return Components{}, err
	}

	vibe := 0.7
	if len(prefs) > 0 {
		vibe = math.Min(1.0, 0.5+0.1*float64(prefs.Overlap(d.Vibes)))
	}

	access := d.Attributes.Accessibility
	if prefs.Has("step-free") {
		access = math.Min(1.0, access*1.15)
	}

	co2 := 1 - (d.CO2Kg-e.co2Min)/(e.co2Max-e.co2Min+1e-6)
	if prefs.Has("low-CO2") {
		co2 *= 1.2
	}

	return Components{
		Value:      value,
		Season:     SeasonFactor(d, q),
		Walk:       d.Attributes.Walkability,
		Safety:     d.Attributes.Safety,
		Vibe:       vibe,
		Access:     access,
		CO2:        co2,
		Livability: 1.0 - d.Attributes.CostOfLivingIndex,
		Cultural:   d.Attributes.CulturalFactor,
		BudgetSens: d.Attributes.BudgetSensitivity,
	}, nil
}

// Score rates d for q. The result is non-negative and rounded to 4 places.
func (e *Engine) Score(d catalog.Destination, q trip.Query) (float64, error) {
	c, err := e.Components(d, q)
	if err != nil {
		return 0, err
	}
	prefs := trip.NewPreferences(q.Preferences...)
	attrs := d.Attributes

	w, blend := AdjustWeights(q.Tier, prefs, q.Budget)
	c.Value = c.Value*(1-blend) + attrs.LuxuryAppeal*blend

	score := c.weighted(w.Normalized())

	score *= 1.0 - attrs.TouristDensity*0.18
	score *= 0.82 + attrs.WeatherFactor*0.18
	switch q.Tier {
	case trip.Luxury:
		score *= 0.95 + attrs.LuxuryAppeal*0.15
	case trip.Premium:
		score *= 0.98 + attrs.LuxuryAppeal*0.08
	}
	score *= CityAdjustment(d.City)
	score *= Diversity(d.City, q.Budget, prefs, q.Start, q.Tier)

	return pricing.Round(math.Max(0, score), 4), nil
}

// Ranked is one destination's position in a ranking.
type Ranked struct {
	Destination catalog.Destination
	Score       float64
	Costs       pricing.Costs
}

// Total is the baseline cost of the ranked stay.
func (r Ranked) Total() float64 { return pricing.Round(r.Costs.Total(), 2) }

// Rank scores every destination for q and orders them by descending score.
// Equal scores keep their input order.
func (e *Engine) Rank(dests []catalog.Destination, q trip.Query) ([]Ranked, error) {
	out := make([]Ranked, 0, len(dests))
	for _, d := range dests {
		s, err := e.Score(d, q)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", d.City, err)
		}
		costs, err := pricing.BaselineCosts(d, q.Nights(), q.Start, q.Tier)
		if err != nil {
			return nil, fmt.Errorf("pricing %s: %w", d.City, err)
		}
		out = append(out, Ranked{Destination: d, Score: s, Costs: costs})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out, nil
}

// Shortlist returns the first k entries of a ranking.
func Shortlist(ranked []Ranked, k int) []Ranked {
	if k <= 0 || k >= len(ranked) {
		return ranked
	}
	return ranked[:k]
}
