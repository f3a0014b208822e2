package scoring

import "github.com/neexbeast/itinera/internal/trip"

// Weights are the relative importance of each sub-score.
type Weights struct {
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

// BaseWeights sum to 1.0 before any query-specific adjustment.
var BaseWeights = Weights{
	Value:      0.18,
	Season:     0.12,
	Walk:       0.10,
	Safety:     0.11,
	Vibe:       0.20,
	Access:     0.05,
	CO2:        0.04,
	Livability: 0.08,
	Cultural:   0.08,
	BudgetSens: 0.04,
}

// Sum adds every weight.
func (w Weights) Sum() float64 {
	return w.Value + w.Season + w.Walk + w.Safety + w.Vibe + w.Access +
		w.CO2 + w.Livability + w.Cultural + w.BudgetSens
}

// Normalized scales w so the weights sum to 1.
func (w Weights) Normalized() Weights {
	s := w.Sum()
	if s == 0 {
		return w
	}
	return Weights{
		Value:      w.Value / s,
		Season:     w.Season / s,
		Walk:       w.Walk / s,
		Safety:     w.Safety / s,
		Vibe:       w.Vibe / s,
		Access:     w.Access / s,
		CO2:        w.CO2 / s,
		Livability: w.Livability / s,
		Cultural:   w.Cultural / s,
		BudgetSens: w.BudgetSens / s,
	}
}

// AdjustWeights applies the tier, preference and budget rules to the base
// weights. The rules are multiplicative and overlapping, so they always run
// in the same order. The returned weights are not yet normalized; blend is
// the share of the value sub-score to replace with the destination's luxury appeal.
func AdjustWeights(t trip.Tier, prefs trip.Preferences, budget float64) (w Weights, blend float64) {
	w = BaseWeights

	switch {
	case t == trip.Luxury || prefs.Has("luxury"):
		w.Value *= 0.5
		w.Safety *= 1.6
		w.Livability *= 0.6
		w.Cultural *= 1.3
		blend = 0.3
	case t == trip.Premium:
		w.Value *= 0.75
		w.Safety *= 1.3
		w.Cultural *= 1.15
		blend = 0.15
	case t == trip.Standard || prefs.Has("budget"):
		w.Value *= 1.4
		w.Livability *= 1.3
		w.BudgetSens *= 2.0
	}

	if prefs.HasAny("hiking", "adventure", "climbing") {
		w.Vibe *= 1.8
		w.Safety *= 1.4
		w.Walk *= 0.6
		w.Season *= 1.3
	}
	if prefs.Has("low-CO2") {
		w.CO2 *= 5.0
	}
	if prefs.Has("step-free") {
		w.Access *= 4.0
	}
	if prefs.Has("foodie") {
		w.Cultural *= 1.4
		w.Vibe *= 1.2
	}
	if prefs.HasAny("museums", "history") {
		w.Cultural *= 1.5
	}

	if budget < 800 {
		w.BudgetSens *= 2.5
		w.Value *= 1.6
	} else if budget > 2000 {
		w.Cultural *= 1.3
		w.Safety *= 1.2
	}
	return w, blend
}
