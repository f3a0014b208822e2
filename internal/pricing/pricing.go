// Package pricing computes the baseline cost of a stay at a destination and
// the tier-adjusted cost of individual activities.
package pricing

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/trip"
)

// Cost category names as they appear in breakdowns and exports.
const (
	CategoryFlight         = "flight"
	CategoryHotel          = "hotel"
	CategoryDailyMisc      = "daily_misc"
	CategoryAttractionPass = "attraction_pass"
	CategoryActivities     = "activities"
)

// Categories lists every breakdown category in display order.
var Categories = []string{CategoryFlight, CategoryHotel, CategoryDailyMisc, CategoryAttractionPass, CategoryActivities}

// Round rounds v to the given number of decimal places, half away from zero.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Costs is the baseline spend of a stay before any activities.
type Costs struct {
	Flight         float64 `json:"flight"`
	Hotel          float64 `json:"hotel"`
	DailyMisc      float64 `json:"daily_misc"`
	AttractionPass float64 `json:"attraction_pass"`
}

// Total sums the baseline categories.
func (c Costs) Total() float64 {
	return sum(c.Flight, c.Hotel, c.DailyMisc, c.AttractionPass)
}

// Breakdown is the full cost of a plan by category.
type Breakdown struct {
	Costs
	Activities float64 `json:"activities"`
}

// NewBreakdown combines baseline costs with the summed activity spend.
func NewBreakdown(base Costs, activities float64) Breakdown {
	return Breakdown{Costs: base, Activities: Round(activities, 2)}
}

// Total is the grand total, rounded to cents.
func (b Breakdown) Total() float64 {
	return Round(sum(b.Flight, b.Hotel, b.DailyMisc, b.AttractionPass, b.Activities), 2)
}

// Amount returns the value of a named category.
func (b Breakdown) Amount(category string) (float64, bool) {
	switch category {
	case CategoryFlight:
		return b.Flight, true
	case CategoryHotel:
		return b.Hotel, true
	case CategoryDailyMisc:
		return b.DailyMisc, true
	case CategoryAttractionPass:
		return b.AttractionPass, true
	case CategoryActivities:
		return b.Activities, true
	}
	return 0, false
}

// Set assigns a named category. Unknown names are reported as false.
func (b *Breakdown) Set(category string, v float64) bool {
	switch category {
	case CategoryFlight:
		b.Flight = v
	case CategoryHotel:
		b.Hotel = v
	case CategoryDailyMisc:
		b.DailyMisc = v
	case CategoryAttractionPass:
		b.AttractionPass = v
	case CategoryActivities:
		b.Activities = v
	default:
		return false
	}
	return true
}

func sum(vs ...float64) float64 {
	d := decimal.Zero
	for _, v := range vs {
		d = d.Add(decimal.NewFromFloat(v))
	}
	return d.InexactFloat64()
}

func transitMultiplier(t trip.Tier) float64 {
	switch t {
	case trip.Premium:
		return 1.2
	case trip.Luxury:
		return 1.5
	default:
		return 1.0
	}
}

func passMultiplier(t trip.Tier) float64 {
	switch t {
	case trip.Premium:
		return 1.4
	case trip.Luxury:
		return 1.8
	default:
		return 1.0
	}
}

// BaselineCosts prices flight, hotel, daily spend and attraction passes for
// a stay of the given length starting on start. Unknown tiers are rejected.
func BaselineCosts(d catalog.Destination, nights int, start time.Time, t trip.Tier) (Costs, error) {
	if err := trip.CheckTier(t); err != nil {
		return Costs{}, err
	}
	if nights < 1 {
		nights = 1
	}
	n := float64(nights)

	flight := d.Flight.For(t) * d.MonthModifier(start)
	hotel := d.Hotel.For(t) * n
	misc := n * (d.DailyFood.For(t) + d.DailyTransit*transitMultiplier(t))
	pass := math.Ceil(n/2) * d.AttractionPass * passMultiplier(t)

	return Costs{
		Flight:         Round(flight, 2),
		Hotel:          Round(hotel, 2),
		DailyMisc:      Round(misc, 2),
		AttractionPass: Round(pass, 2),
	}, nil
}

// ActivityMultiplier scales an activity's list price for the tier.
// Luxury-tagged activities cost more at the upper tiers.
func ActivityMultiplier(t trip.Tier, luxuryTagged bool) float64 {
	switch t {
	case trip.Luxury:
		if luxuryTagged {
			return 2.0
		}
		return 1.6
	case trip.Premium:
		if luxuryTagged {
			return 1.5
		}
		return 1.3
	default:
		return 1.0
	}
}

// EffectiveCost is the tier-adjusted cost of an activity with the given tags.
func EffectiveCost(cost float64, tags []string, t trip.Tier) float64 {
	return cost * ActivityMultiplier(t, slices.Contains(tags, "luxury"))
}

// Ceiling is the most a traveler at tier t is willing to spend from budget.
func Ceiling(budget float64, t trip.Tier) float64 {
	if t == trip.Luxury {
		return budget * 1.35
	}
	return budget
}

// Status describes a total against the tier's spending ceiling.
type Status struct {
	Ratio        float64 `json:"ratio"`
	AllowedRatio float64 `json:"allowed_ratio"`
	UsedShare    float64 `json:"used_share"`
	Within       bool    `json:"within"`
	Label        string  `json:"label"`
}

// BudgetStatus reports how much of the allowed budget total consumes.
func BudgetStatus(total, budget float64, t trip.Tier) Status {
	allowed := 1.0
	if t == trip.Luxury {
		allowed = 1.35
	}
	ratio := total / math.Max(budget, 1.0)
	s := Status{
		Ratio:        Round(ratio, 4),
		AllowedRatio: allowed,
		UsedShare:    Round(math.Min(ratio/allowed, 1.0), 4),
		Within:       ratio <= allowed,
	}
	switch {
	case t == trip.Luxury && s.Within:
		s.Label = "Within luxury limit"
	case t == trip.Luxury:
		s.Label = "Exceeds luxury limit"
	case s.Within:
		s.Label = "Within budget"
	default:
		s.Label = "Over budget"
	}
	return s
}

// Describe renders a breakdown as "flight=110.00 hotel=285.00 ..." for logs.
func (b Breakdown) Describe() string {
	return fmt.Sprintf("flight=%.2f hotel=%.2f daily_misc=%.2f attraction_pass=%.2f activities=%.2f",
		b.Flight, b.Hotel, b.DailyMisc, b.AttractionPass, b.Activities)
}
