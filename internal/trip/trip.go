// Package trip holds the value types shared by every stage of the planning
// pipeline: the luxury tier, the traveler query and its validation.
package trip

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the wire format for trip dates.
const DateLayout = "2006-01-02"

// DefaultBuffer is the safety margin applied when a query does not set one.
const DefaultBuffer = 0.10

// MaxBuffer is the largest accepted safety margin.
const MaxBuffer = 0.5

// Tier is the luxury level of a trip.
type Tier string

const (
	Standard Tier = "standard"
	Premium  Tier = "premium"
	Luxury   Tier = "luxury"
)

// Tiers lists the recognized tiers in ascending price order.
var Tiers = []Tier{Standard, Premium, Luxury}

// Valid reports whether t is one of the recognized tiers.
func (t Tier) Valid() bool {
	return t == Standard || t == Premium || t == Luxury
}

func (t Tier) String() string { return string(t) }

// ParseTier maps a case-insensitive tier name onto a Tier.
// An empty string selects Standard; anything unrecognized is rejected.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return Standard, nil
	case "premium":
		return Premium, nil
	case "luxury":
		return Luxury, nil
	}
	return "", invalid("tier", fmt.Errorf("%w: %q", ErrInvalidTier, s))
}

// CheckTier returns an InvalidInputError when t is not recognized.
func CheckTier(t Tier) error {
	if !t.Valid() {
		return invalid("tier", fmt.Errorf("%w: %q", ErrInvalidTier, string(t)))
	}
	return nil
}

// CheckBudget returns an InvalidInputError for negative budgets.
func CheckBudget(budget float64) error {
	if budget < 0 {
		return invalid("budget", fmt.Errorf("%w: %.2f", ErrNegativeBudget, budget))
	}
	return nil
}

// CheckDates returns an InvalidInputError unless end falls after start.
func CheckDates(start, end time.Time) error {
	if !end.After(start) {
		return invalid("dates", fmt.Errorf("%w: %s to %s", ErrInvalidDateRange,
			start.Format(DateLayout), end.Format(DateLayout)))
	}
	return nil
}

// Nights returns the trip length in nights, never less than one.
func Nights(start, end time.Time) int {
	days := int(Day(end).Sub(Day(start)).Hours() / 24)
	return max(1, days)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Preferences is a set of preference tags. Order and duplicates carry no meaning.
type Preferences []string

// NewPreferences trims, de-duplicates and sorts tags.
func NewPreferences(tags ...string) Preferences {
	out := make(Preferences, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Has reports whether tag is present.
func (p Preferences) Has(tag string) bool {
	return slices.Contains(p, tag)
}

// HasAny reports whether any of tags is present.
func (p Preferences) HasAny(tags ...string) bool {
	for _, t := range tags {
		if p.Has(t) {
			return true
		}
	}
	return false
}

// Overlap counts the distinct tags shared with other.
func (p Preferences) Overlap(other []string) int {
	n := 0
	seen := make(map[string]struct{}, len(other))
	for _, t := range other {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if p.Has(t) {
			n++
		}
	}
	return n
}

// Query is one traveler request flowing through the pipeline.
type Query struct {
	Budget      float64
	Start       time.Time
	End         time.Time
	Preferences Preferences
	Tier        Tier
	Buffer      float64
}

// Nights returns the trip length of the query.
func (q Query) Nights() int { return Nights(q.Start, q.End) }

// Validate checks every field and returns the first failure as an InvalidInputError.
func (q Query) Validate() error {
	if err := CheckBudget(q.Budget); err != nil {
		return err
	}
	if err := CheckDates(q.Start, q.End); err != nil {
		return err
	}
	if err := CheckTier(q.Tier); err != nil {
		return err
	}
	if q.Buffer < 0 || q.Buffer > MaxBuffer {
		return invalid("buffer", fmt.Errorf("%w: %.2f", ErrInvalidBuffer, q.Buffer))
	}
	return nil
}
