// Package catalog holds the read-only destination and POI reference data.
// A Catalog is built once at startup, validated, and then shared freely
// between concurrent requests; nothing in it is mutated after load.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/neexbeast/itinera/internal/trip"
)

//go:embed data/*.json
var data embed.FS

// Catalog is the process-wide registry of destinations, POIs and city guides.
type Catalog struct {
	destinations []Destination
	byCity       map[string]int
	pois         map[string][]POI
	guides       map[string]map[trip.Tier]Guide
	co2Min       float64
	co2Max       float64
}

// Load builds the Catalog from the embedded reference data.
func Load() (*Catalog, error) {
	var dests []Destination
	if err := readJSON("data/destinations.json", &dests); err != nil {
		return nil, err
	}
	var pois map[string][]POI
	if err := readJSON("data/pois.json", &pois); err != nil {
		return nil, err
	}
	var raw map[string]map[trip.Tier]Guide
	if err := readJSON("data/guides.json", &raw); err != nil {
		return nil, err
	}
	return New(dests, pois, raw)
}

func readJSON(name string, v any) error {
	b, err := data.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

// New validates the given records and returns a Catalog over private copies of them.
// Destination order is kept and is the tie-break order for ranking.
func New(dests []Destination, pois map[string][]POI, guides map[string]map[trip.Tier]Guide) (*Catalog, error) {
	if len(dests) == 0 {
		return nil, fmt.Errorf("catalog has no destinations")
	}
	v := newValidator()

	c := &Catalog{
		destinations: make([]Destination, 0, len(dests)),
		byCity:       make(map[string]int, len(dests)),
		pois:         make(map[string][]POI, len(pois)),
		guides:       make(map[string]map[trip.Tier]Guide, len(guides)),
	}
	for i, d := range dests {
		if err := v.Struct(d); err != nil {
			return nil, fmt.Errorf("destination %d (%s): %w", i, d.City, err)
		}
		if _, dup := c.byCity[d.City]; dup {
			return nil, fmt.Errorf("duplicate destination %q", d.City)
		}
		d = d.WithFlightPrices(d.Flight)
		c.byCity[d.City] = len(c.destinations)
		c.destinations = append(c.destinations, d)

		if i == 0 || d.CO2Kg < c.co2Min {
			c.co2Min = d.CO2Kg
		}
		if i == 0 || d.CO2Kg > c.co2Max {
			c.co2Max = d.CO2Kg
		}
	}
	for city, list := range pois {
		for _, p := range list {
			if err := v.Struct(p); err != nil {
				return nil, fmt.Errorf("poi %q in %s: %w", p.Name, city, err)
			}
		}
		c.pois[city] = slices.Clone(list)
	}
	for city, tiers := range guides {
		c.guides[city] = make(map[trip.Tier]Guide, len(tiers))
		for t, g := range tiers {
			if !t.Valid() {
				return nil, fmt.Errorf("guide for %s: %w: %q", city, trip.ErrInvalidTier, t)
			}
			c.guides[city][t] = g
		}
	}
	return c, nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// month modifier maps must cover exactly the keys 01..12
	_ = v.RegisterValidation("months", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Map || f.Len() != 12 {
			return false
		}
		for m := 1; m <= 12; m++ {
			if !f.MapIndex(reflect.ValueOf(fmt.Sprintf("%02d", m))).IsValid() {
				return false
			}
		}
		return true
	})
	return v
}

// Destinations returns every destination in catalog order.
func (c *Catalog) Destinations() []Destination {
	return slices.Clone(c.destinations)
}

// Destination looks up a destination by city name, case-insensitively.
func (c *Catalog) Destination(city string) (Destination, error) {
	if i, ok := c.byCity[city]; ok {
		return c.destinations[i], nil
	}
	for _, d := range c.destinations {
		if strings.EqualFold(d.City, city) {
			return d, nil
		}
	}
	return Destination{}, fmt.Errorf("destination %q: %w", city, trip.ErrCatalogMissingEntry)
}

// POIs returns the points of interest of city in catalog order.
func (c *Catalog) POIs(city string) ([]POI, error) {
	if list, ok := c.pois[city]; ok {
		return slices.Clone(list), nil
	}
	for name, list := range c.pois {
		if strings.EqualFold(name, city) {
			return slices.Clone(list), nil
		}
	}
	return nil, fmt.Errorf("pois for %q: %w", city, trip.ErrCatalogMissingEntry)
}

// CO2Range returns the smallest and largest CO2 footprint across all destinations.
func (c *Catalog) CO2Range() (lo, hi float64) {
	return c.co2Min, c.co2Max
}

// Guide returns the recommended hotel and restaurant for city at tier,
// falling back to generic suggestions for cities without a curated guide.
func (c *Catalog) Guide(city string, t trip.Tier) Guide {
	if g, ok := c.guides[city][t]; ok {
		return g
	}
	if g, ok := defaultGuides[t]; ok {
		return g
	}
	return defaultGuides[trip.Standard]
}

// Len returns the number of destinations.
func (c *Catalog) Len() int { return len(c.destinations) }
