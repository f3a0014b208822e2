// Package export renders a fitted plan as a structured record and as
// JSON and Markdown documents.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/neexbeast/itinera/internal/itinerary"
	"github.com/neexbeast/itinera/internal/pricing"
	"github.com/neexbeast/itinera/internal/trip"
)

// Day is one day of a Record.
type Day struct {
	Date      string              `json:"date"`
	Morning   *itinerary.Activity `json:"morning"`
	Afternoon *itinerary.Activity `json:"afternoon"`
	Evening   *itinerary.Activity `json:"evening"`
	Notes     string              `json:"notes,omitempty"`
}

// Record is the presentation-free form of a plan handed to document formatters.
type Record struct {
	City        string            `json:"city"`
	Country     string            `json:"country,omitempty"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Budget      float64           `json:"budget"`
	LuxuryLevel trip.Tier         `json:"luxury_level"`
	Buffer      float64           `json:"buffer"`
	Total       float64           `json:"total"`
	Breakdown   pricing.Breakdown `json:"breakdown"`
	Plan        []Day             `json:"plan"`
}

// NewRecord snapshots a plan. Activities are copied so later changes to
// plan do not leak into the record.
func NewRecord(city, country string, q trip.Query, total float64, bd pricing.Breakdown, plan []itinerary.DayPlan) Record {
	r := Record{
		City:        city,
		Country:     country,
		Start:       q.Start.Format(trip.DateLayout),
		End:         q.End.Format(trip.DateLayout),
		Budget:      q.Budget,
		LuxuryLevel: q.Tier,
		Buffer:      q.Buffer,
		Total:       total,
		Breakdown:   bd,
		Plan:        make([]Day, len(plan)),
	}
	for i := range plan {
		r.Plan[i] = Day{
			Date:      plan[i].Date.Format(trip.DateLayout),
			Morning:   clone(plan[i].Morning),
			Afternoon: clone(plan[i].Afternoon),
			Evening:   clone(plan[i].Evening),
			Notes:     plan[i].Notes,
		}
	}
	return r
}

func clone(a *itinerary.Activity) *itinerary.Activity {
	if a == nil {
		return nil
	}
	c := *a
	c.Tags = append([]string(nil), a.Tags...)
	return &c
}

// ToJSON renders r as an indented JSON document.
func ToJSON(r Record) ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling plan: %w", err)
	}
	return b, nil
}

// FromJSON decodes a document produced by ToJSON.
func FromJSON(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("unmarshalling plan: %w", err)
	}
	return r, nil
}

const breakdownHeader = "**Breakdown**:"

// ToMarkdown renders r as a Markdown document.
func ToMarkdown(r Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# ITINERA Plan: %s\n\n", r.City)
	fmt.Fprintf(&b, "**Dates:** %s → %s  \n", r.Start, r.End)
	fmt.Fprintf(&b, "**Total Estimated Cost:** €%.2f\n\n", r.Total)
	b.WriteString(breakdownHeader + "\n")
	for _, cat := range pricing.Categories {
		v, _ := r.Breakdown.Amount(cat)
		fmt.Fprintf(&b, "- %s: €%.2f\n", cat, v)
	}
	b.WriteString("\n## Day by Day\n\n")
	for _, d := range r.Plan {
		fmt.Fprintf(&b, "### %s\n", heading(d.Date))
		for _, slot := range []struct {
			label string
			act   *itinerary.Activity
		}{{"Morning", d.Morning}, {"Afternoon", d.Afternoon}, {"Evening", d.Evening}} {
			if slot.act == nil {
				fmt.Fprintf(&b, "- **%s:** Free time / explore\n", slot.label)
				continue
			}
			fmt.Fprintf(&b, "- **%s:** %s (%sh, ~€%.0f)\n", slot.label, slot.act.Name,
				strconv.FormatFloat(slot.act.Hours, 'f', -1, 64), slot.act.Cost)
		}
		if d.Notes != "" {
			fmt.Fprintf(&b, "  - Notes: %s\n", d.Notes)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func heading(date string) string {
	t, err := time.Parse(trip.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, 02 Jan 2006")
}

// ParseMarkdownBreakdown reads the category totals back out of a document
// produced by ToMarkdown.
func ParseMarkdownBreakdown(md string) (pricing.Breakdown, error) {
	var bd pricing.Breakdown
	sc := bufio.NewScanner(strings.NewReader(md))
	inside, seen := false, 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == breakdownHeader {
			inside = true
			continue
		}
		if !inside {
			continue
		}
		if !strings.HasPrefix(line, "- ") {
			break
		}
		name, amount, ok := strings.Cut(strings.TrimPrefix(line, "- "), ": €")
		if !ok {
			return pricing.Breakdown{}, fmt.Errorf("malformed breakdown line %q", line)
		}
		v, err := strconv.ParseFloat(amount, 64)
		if err != nil {
			return pricing.Breakdown{}, fmt.Errorf("parsing %s amount: %w", name, err)
		}
		if !bd.Set(name, v) {
			return pricing.Breakdown{}, fmt.Errorf("unknown breakdown category %q", name)
		}
		seen++
	}
	if err := sc.Err(); err != nil {
		return pricing.Breakdown{}, fmt.Errorf("reading markdown: %w", err)
	}
	if seen == 0 {
		return pricing.Breakdown{}, fmt.Errorf("no breakdown section found")
	}
	return bd, nil
}
