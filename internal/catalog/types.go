package catalog

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/neexbeast/itinera/internal/trip"
)

// TierPrices holds one price per luxury tier. Prices never decrease with the tier.
type TierPrices struct {
	Standard float64 `json:"standard" validate:"gte=0"`
	Premium  float64 `json:"premium" validate:"gtefield=Standard"`
	Luxury   float64 `json:"luxury" validate:"gtefield=Premium"`
}

// For returns the price for t. Unrecognized tiers read the standard column.
func (p TierPrices) For(t trip.Tier) float64 {
	switch t {
	case trip.Premium:
		return p.Premium
	case trip.Luxury:
		return p.Luxury
	default:
		return p.Standard
	}
}

// Attributes are the quality signals of a destination, each in [0,1].
type Attributes struct {
	Walkability       float64 `json:"walkability" validate:"gte=0,lte=1"`
	Safety            float64 `json:"safety" validate:"gte=0,lte=1"`
	Accessibility     float64 `json:"accessibility" validate:"gte=0,lte=1"`
	CostOfLivingIndex float64 `json:"cost_of_living_index" validate:"gte=0,lte=1"`
	TouristDensity    float64 `json:"tourist_density" validate:"gte=0,lte=1"`
	WeatherFactor     float64 `json:"weather_factor" validate:"gte=0,lte=1"`
	CulturalFactor    float64 `json:"cultural_factor" validate:"gte=0,lte=1"`
	BudgetSensitivity float64 `json:"budget_sensitivity" validate:"gte=0,lte=1"`
	LuxuryAppeal      float64 `json:"luxury_appeal" validate:"gte=0,lte=1"`
}

// Destination is an immutable catalog record.
type Destination struct {
	City           string             `json:"city" validate:"required"`
	Country        string             `json:"country" validate:"required"`
	Airport        string             `json:"airport" validate:"omitempty,len=3,uppercase"`
	MonthModifiers map[string]float64 `json:"month_modifiers" validate:"months,dive,gt=0"`
	Flight         TierPrices         `json:"flight"`
	Hotel          TierPrices         `json:"hotel"`
	DailyFood      TierPrices         `json:"daily_food"`
	DailyTransit   float64            `json:"daily_transit" validate:"gte=0"`
	AttractionPass float64            `json:"attraction_pass" validate:"gte=0"`
	CO2Kg          float64            `json:"co2_kg" validate:"gte=0"`
	Attributes     Attributes         `json:"attributes"`
	Vibes          []string           `json:"vibes" validate:"dive,required"`
}

// MonthKey formats the calendar month of t as a zero-padded two-digit key.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%02d", int(t.Month()))
}

// MonthModifier returns the seasonal price multiplier for the month of t, or 1.0 if unknown.
func (d Destination) MonthModifier(t time.Time) float64 {
	if m, ok := d.MonthModifiers[MonthKey(t)]; ok {
		return m
	}
	return 1.0
}

// HasVibe reports whether the destination carries the vibe tag.
func (d Destination) HasVibe(tag string) bool {
	return slices.Contains(d.Vibes, tag)
}

// WithFlightPrices returns a copy of d carrying the given flight prices.
// The receiver and the catalog record it came from are left untouched.
func (d Destination) WithFlightPrices(p TierPrices) Destination {
	out := d
	out.MonthModifiers = maps.Clone(d.MonthModifiers)
	out.Vibes = slices.Clone(d.Vibes)
	out.Flight = p
	return out
}

// POI is a point of interest owned by a destination.
type POI struct {
	Name  string   `json:"name" validate:"required"`
	Tags  []string `json:"tags" validate:"dive,required"`
	Hours float64  `json:"hours" validate:"gt=0"`
	Cost  float64  `json:"cost" validate:"gte=0"`
}

// HasTag reports whether the POI carries tag.
func (p POI) HasTag(tag string) bool {
	return slices.Contains(p.Tags, tag)
}

// Guide names a recommended hotel and restaurant for one tier of a city.
type Guide struct {
	Hotel      string `json:"hotel"`
	Restaurant string `json:"restaurant"`
}

var defaultGuides = map[trip.Tier]Guide{
	trip.Standard: {Hotel: "3★ Standard Hotel", Restaurant: "Local restaurant"},
	trip.Premium:  {Hotel: "4★ Premium Hotel", Restaurant: "Fine dining restaurant"},
	trip.Luxury:   {Hotel: "5★ Luxury Hotel", Restaurant: "Michelin starred restaurant"},
}

// FlightClass is the cabin a tier travels in.
func FlightClass(t trip.Tier) string {
	switch t {
	case trip.Premium:
		return "Business"
	case trip.Luxury:
		return "First Class"
	default:
		return "Economy"
	}
}

// AttractionAccess describes the attraction pass a tier buys.
func AttractionAccess(t trip.Tier) string {
	switch t {
	case trip.Premium:
		return "Skip-the-line"
	case trip.Luxury:
		return "VIP experiences"
	default:
		return "Standard access"
	}
}
