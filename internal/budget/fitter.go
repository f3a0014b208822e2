// Package budget trims a composed itinerary until its estimated cost fits
// the traveler's budget, keeping the most valuable activities.
package budget

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/itinerary"
	"github.com/neexbeast/itinera/internal/pricing"
	"github.com/neexbeast/itinera/internal/trip"
)

// Target is the spend the fitter aims for. Luxury trips may exceed the
// budget by 35% and keep half the buffer; premium trips keep 70% of it.
func Target(budget float64, t trip.Tier, buffer float64) float64 {
	switch t {
	case trip.Luxury:
		return budget * 1.35 * (1 - buffer*0.5)
	case trip.Premium:
		return budget * (1 - buffer*0.7)
	default:
		return budget * (1 - buffer)
	}
}

// Estimate prices a plan: baseline costs plus every placed activity at its
// tier-adjusted cost.
func Estimate(d catalog.Destination, nights int, plan []itinerary.DayPlan, start time.Time, t trip.Tier) (pricing.Breakdown, error) {
	base, err := pricing.BaselineCosts(d, nights, start, t)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	var acts float64
	for _, p := range itinerary.Placements(plan) {
		acts += pricing.EffectiveCost(p.Activity.Cost, p.Activity.Tags, t)
	}
	return pricing.NewBreakdown(base, acts), nil
}

// Result is the outcome of fitting a plan.
type Result struct {
	Plan         []itinerary.DayPlan
	Breakdown    pricing.Breakdown
	Total        float64
	Target       float64
	WithinTarget bool
	Dropped      []itinerary.Placement
	Strategy     string
}

// Fitter applies an Optimizer with a bounded run time and falls back to
// the greedy heuristic when the optimizer fails.
type Fitter struct {
	opt     Optimizer
	timeout time.Duration
}

// NewFitter returns a Fitter using opt, allowed to run for at most timeout per plan.
func NewFitter(opt Optimizer, timeout time.Duration) *Fitter {
	if opt == nil {
		opt = Greedy{}
	}
	return &Fitter{opt: opt, timeout: timeout}
}

// Strategy names the configured optimizer.
func (f *Fitter) Strategy() string { return f.opt.Name() }

// Fit trims plan in place so its total is at most the target for q.
// Days and dates are kept; only slot contents are cleared. If the baseline
// alone exceeds the target every activity is dropped and the result reports
// WithinTarget false.
func (f *Fitter) Fit(ctx context.Context, d catalog.Destination, plan []itinerary.DayPlan, q trip.Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	nights := q.Nights()
	// totals are in cents, so compare against the target as reported
	target := pricing.Round(Target(q.Budget, q.Tier, q.Buffer), 2)

	bd, err := Estimate(d, nights, plan, q.Start, q.Tier)
	if err != nil {
		return Result{}, err
	}
	res := Result{Plan: plan, Breakdown: bd, Total: bd.Total(), Target: target}
	if res.Total <= target {
		res.WithinTarget = true
		res.Strategy = "none"
		return res, nil
	}

	placed := itinerary.Placements(plan)
	items := make([]Item, len(placed))
	for i, p := range placed {
		items[i] = Item{
			Cost:    cents(pricing.EffectiveCost(p.Activity.Cost, p.Activity.Tags, q.Tier)),
			Utility: p.Activity.Utility(),
		}
	}
	capacity := cents(target) - cents(bd.Costs.Total())

	keep, strategy, err := f.keep(ctx, items, capacity)
	if err != nil {
		return Result{}, err
	}
	for i, p := range placed {
		if !keep[i] {
			plan[p.Day].Clear(p.Slot)
			res.Dropped = append(res.Dropped, p)
		}
	}

	bd, err = Estimate(d, nights, plan, q.Start, q.Tier)
	if err != nil {
		return Result{}, err
	}
	res.Breakdown = bd
	res.Total = bd.Total()
	res.WithinTarget = res.Total <= target
	res.Strategy = strategy
	return res, nil
}

func (f *Fitter) keep(ctx context.Context, items []Item, capacity int64) ([]bool, string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	keep, err := f.opt.Keep(ctx, items, capacity)
	if err == nil {
		return keep, f.opt.Name(), nil
	}
	if !errors.Is(err, ErrOptimizerTimeout) && !errors.Is(err, ErrOptimizerUnavailable) {
		return nil, "", err
	}
	keep, err = Greedy{}.Keep(ctx, items, capacity)
	return keep, Greedy{}.Name(), err
}

func cents(v float64) int64 {
	return int64(math.Round(v * 100))
}
