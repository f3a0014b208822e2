// Package itinerary ranks points of interest and packs them into
// morning, afternoon and evening slots across the days of a trip.
package itinerary

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/trip"
)

// ComposeDayHours caps the committed hours of a composed day.
const ComposeDayHours = 6.0

// DisplayDayHours caps the length of a POI listed as a highlight.
const DisplayDayHours = 8.0

// POISource supplies the points of interest of a city.
type POISource interface {
	POIs(city string) ([]catalog.POI, error)
}

// RankKey is the ordering signal of a POI: preference overlap, a bonus for
// free entry and a tenth of its duration.
func RankKey(p catalog.POI, prefs trip.Preferences) float64 {
	key := float64(prefs.Overlap(p.Tags)) + p.Hours/10
	if p.Cost == 0 {
		key += 0.2
	}
	return key
}

// RankPOIs orders pois by descending RankKey. Equal keys keep catalog order.
func RankPOIs(pois []catalog.POI, prefs trip.Preferences) []Activity {
	type ranked struct {
		key float64
		act Activity
	}
	rs := make([]ranked, len(pois))
	for i, p := range pois {
		rs[i] = ranked{key: RankKey(p, prefs), act: NewActivity(p)}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		return cmp.Compare(b.key, a.key)
	})
	out := make([]Activity, len(rs))
	for i, r := range rs {
		out[i] = r.act
	}
	return out
}

// Composer builds day plans from a POI source.
type Composer struct {
	pois POISource
}

// NewComposer returns a Composer reading POIs from src.
func NewComposer(src POISource) *Composer {
	return &Composer{pois: src}
}

// Compose returns one DayPlan per night between start and end.
//
// Ranked POIs are consumed once, left to right. Each slot takes the next POI
// only if it fits in what is left of the day's hours; otherwise the slot stays
// empty and the same POI is offered to the next slot. A city without POIs
// yields days with every slot empty.
func (c *Composer) Compose(city string, start, end time.Time, prefs trip.Preferences) ([]DayPlan, error) {
	if err := trip.CheckDates(start, end); err != nil {
		return nil, err
	}
	pois, err := c.pois.POIs(city)
	if err != nil && !errors.Is(err, trip.ErrCatalogMissingEntry) {
		return nil, fmt.Errorf("loading pois for %s: %w", city, err)
	}
	acts := RankPOIs(pois, trip.NewPreferences(prefs...))

	nights := trip.Nights(start, end)
	first := trip.Day(start)
	plan := make([]DayPlan, nights)
	next := 0
	for i := range plan {
		plan[i].Date = first.AddDate(0, 0, i)
		used := 0.0
		for _, s := range Slots {
			if next >= len(acts) || used+acts[next].Hours > ComposeDayHours {
				continue
			}
			a := acts[next]
			plan[i].set(s, &a)
			used += a.Hours
			next++
		}
	}
	return plan, nil
}

// Highlight is a POI suggested for display alongside a plan.
type Highlight struct {
	Activity Activity `json:"activity"`
	Matches  []string `json:"matches"`
	Summary  string   `json:"summary"`
}

// Highlights returns up to n POIs of the city worth showing, ranked like the
// composer ranks them, skipping anything longer than a display day.
func Highlights(pois []catalog.POI, prefs trip.Preferences, n int) []Highlight {
	prefs = trip.NewPreferences(prefs...)
	var out []Highlight
	for _, a := range RankPOIs(pois, prefs) {
		if len(out) == n {
			break
		}
		if a.Hours > DisplayDayHours {
			continue
		}
		var matches []string
		for _, tag := range a.Tags {
			if prefs.Has(tag) && !slices.Contains(matches, tag) {
				matches = append(matches, tag)
			}
		}
		out = append(out, Highlight{Activity: a, Matches: matches, Summary: Describe(a)})
	}
	return out
}

// Describe is the one-line blurb of an activity.
func Describe(a Activity) string {
	return fmt.Sprintf("%s: A highlight for %s lovers.", a.Name, strings.Join(a.Tags, ", "))
}
