package budget

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrOptimizerUnavailable means the exact solver cannot be used.
	ErrOptimizerUnavailable = errors.New("optimizer unavailable")
	// ErrOptimizerTimeout means the exact solver ran out of time.
	ErrOptimizerTimeout = errors.New("optimizer timed out")
)

// Item is one droppable activity: its tier-adjusted cost in cents and the
// utility lost if it is dropped.
type Item struct {
	Cost    int64
	Utility float64
}

// Optimizer picks which items to keep so their summed cost stays within
// capacity. A negative capacity cannot be met and keeps nothing.
type Optimizer interface {
	Name() string
	Keep(ctx context.Context, items []Item, capacity int64) ([]bool, error)
}

// Greedy drops the most expensive remaining item until the rest fits.
// Equal costs are dropped in placement order.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (Greedy) Keep(_ context.Context, items []Item, capacity int64) ([]bool, error) {
	keep := make([]bool, len(items))
	var kept int64
	for i, it := range items {
		keep[i] = true
		kept += it.Cost
	}
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(items[b].Cost, items[a].Cost)
	})
	for _, i := range order {
		if kept <= capacity {
			break
		}
		keep[i] = false
		kept -= items[i].Cost
	}
	return keep, nil
}

// Exact solves the 0/1 selection by branch and bound, maximizing kept utility.
type Exact struct{}

func (Exact) Name() string { return "exact" }

// checkEvery is how many search nodes run between deadline checks.
const checkEvery = 1024

func (Exact) Keep(ctx context.Context, items []Item, capacity int64) ([]bool, error) {
	keep := make([]bool, len(items))
	if capacity < 0 {
		return keep, nil
	}

	// free items are always kept; the rest are searched best ratio first
	var idx []int
	for i, it := range items {
		if it.Cost <= 0 {
			keep[i] = true
			continue
		}
		idx = append(idx, i)
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		ra := items[a].Utility / float64(items[a].Cost)
		rb := items[b].Utility / float64(items[b].Cost)
		return cmp.Compare(rb, ra)
	})

	s := &search{ctx: ctx, items: items, idx: idx, cur: make([]bool, len(idx)), best: make([]bool, len(idx)), bestUtil: -1}
	s.branch(0, capacity, 0)
	if s.err != nil {
		return nil, s.err
	}
	for j, i := range idx {
		keep[i] = s.best[j]
	}
	return keep, nil
}

type search struct {
	ctx      context.Context
	items    []Item
	idx      []int
	cur      []bool
	best     []bool
	bestUtil float64
	nodes    int
	err      error
}

// bound is the fractional relaxation of the remaining items from position j.
func (s *search) bound(j int, room int64, util float64) float64 {
	for ; j < len(s.idx); j++ {
		it := s.items[s.idx[j]]
		if it.Cost <= room {
			room -= it.Cost
			util += it.Utility
			continue
		}
		return util + it.Utility*float64(room)/float64(it.Cost)
	}
	return util
}

func (s *search) branch(j int, room int64, util float64) {
	if s.err != nil {
		return
	}
	s.nodes++
	if s.nodes%checkEvery == 1 {
		if err := s.ctx.Err(); err != nil {
			s.err = fmt.Errorf("%w: %w", ErrOptimizerTimeout, err)
			return
		}
	}
	if j == len(s.idx) {
		if util > s.bestUtil {
			s.bestUtil = util
			copy(s.best, s.cur)
		}
		return
	}
	if s.bound(j, room, util) <= s.bestUtil {
		return
	}
	it := s.items[s.idx[j]]
	if it.Cost <= room {
		s.cur[j] = true
		s.branch(j+1, room-it.Cost, util+it.Utility)
		s.cur[j] = false
	}
	s.branch(j+1, room, util)
}

// Probe checks that opt solves a small known instance within timeout.
func Probe(opt Optimizer, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	items := []Item{{Cost: 500, Utility: 3}, {Cost: 400, Utility: 2.5}, {Cost: 300, Utility: 2}, {Cost: 0, Utility: 1}}
	keep, err := opt.Keep(ctx, items, 700)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOptimizerUnavailable, err)
	}
	want := []bool{false, true, true, true}
	if !slices.Equal(keep, want) {
		return fmt.Errorf("%w: %s returned %v", ErrOptimizerUnavailable, opt.Name(), keep)
	}
	return nil
}

// Solver modes accepted by SelectOptimizer.
const (
	ModeAuto   = "auto"
	ModeExact  = "exact"
	ModeGreedy = "greedy"
)

// SelectOptimizer picks the strategy for mode. In auto mode the exact solver
// is probed and greedy is used if the probe fails.
func SelectOptimizer(mode string, timeout time.Duration) (Optimizer, error) {
	switch mode {
	case ModeGreedy:
		return Greedy{}, nil
	case ModeExact:
		return Exact{}, nil
	case ModeAuto, "":
		if err := Probe(Exact{}, timeout); err != nil {
			return Greedy{}, nil
		}
		return Exact{}, nil
	}
	return nil, fmt.Errorf("unknown solver mode %q", mode)
}
