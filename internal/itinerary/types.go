package itinerary

import (
	"slices"
	"time"

	"github.com/neexbeast/itinera/internal/catalog"
)

// Slot is one of the three daily time windows.
type Slot int

const (
	Morning Slot = iota
	Afternoon
	Evening
)

// Slots lists the windows of a day in order.
var Slots = []Slot{Morning, Afternoon, Evening}

func (s Slot) String() string {
	switch s {
	case Morning:
		return "morning"
	case Afternoon:
		return "afternoon"
	case Evening:
		return "evening"
	}
	return "unknown"
}

// Activity is a POI placed into a plan. It is never modified once created.
type Activity struct {
	Name  string   `json:"name"`
	Tags  []string `json:"tags"`
	Hours float64  `json:"hours"`
	Cost  float64  `json:"cost"`
}

// NewActivity copies p into an Activity.
func NewActivity(p catalog.POI) Activity {
	return Activity{Name: p.Name, Tags: slices.Clone(p.Tags), Hours: p.Hours, Cost: p.Cost}
}

// Utility is the value an activity adds to a day: its length plus a small
// bonus per theme tag.
func (a Activity) Utility() float64 {
	return a.Hours + 0.2*float64(len(a.Tags))
}

// DayPlan is one calendar day of an itinerary.
type DayPlan struct {
	Date      time.Time
	Morning   *Activity
	Afternoon *Activity
	Evening   *Activity
	Notes     string
}

// Get returns the activity in slot s, or nil.
func (d *DayPlan) Get(s Slot) *Activity {
	switch s {
	case Morning:
		return d.Morning
	case Afternoon:
		return d.Afternoon
	case Evening:
		return d.Evening
	}
	return nil
}

// Clear empties slot s.
func (d *DayPlan) Clear(s Slot) {
	switch s {
	case Morning:
		d.Morning = nil
	case Afternoon:
		d.Afternoon = nil
	case Evening:
		d.Evening = nil
	}
}

func (d *DayPlan) set(s Slot, a *Activity) {
	switch s {
	case Morning:
		d.Morning = a
	case Afternoon:
		d.Afternoon = a
	case Evening:
		d.Evening = a
	}
}

// Hours sums the committed hours of the day.
func (d *DayPlan) Hours() float64 {
	var h float64
	for _, s := range Slots {
		if a := d.Get(s); a != nil {
			h += a.Hours
		}
	}
	return h
}

// Activities returns the placed activities in slot order.
func (d *DayPlan) Activities() []Activity {
	var out []Activity
	for _, s := range Slots {
		if a := d.Get(s); a != nil {
			out = append(out, *a)
		}
	}
	return out
}

// Placement locates an activity inside a plan.
type Placement struct {
	Day      int
	Slot     Slot
	Activity Activity
}

// Placements lists every placed activity in day then slot order.
func Placements(plan []DayPlan) []Placement {
	var out []Placement
	for i := range plan {
		for _, s := range Slots {
			if a := plan[i].Get(s); a != nil {
				out = append(out, Placement{Day: i, Slot: s, Activity: *a})
			}
		}
	}
	return out
}
