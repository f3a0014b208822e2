package itinerary_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/itinerary"
	"github.com/neexbeast/itinera/internal/trip"
)

// --- mock ---

type mockSource struct {
	pois func(city string) ([]catalog.POI, error)
}

func (m *mockSource) POIs(city string) ([]catalog.POI, error) { return m.pois(city) }

func staticSource(list []catalog.POI) *mockSource {
	return &mockSource{pois: func(string) ([]catalog.POI, error) { return list, nil }}
}

func day(s string) time.Time {
	t, err := time.Parse(trip.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func names(plan []itinerary.DayPlan) [][3]string {
	out := make([][3]string, len(plan))
	for i := range plan {
		for j, s := range itinerary.Slots {
			if a := plan[i].Get(s); a != nil {
				out[i][j] = a.Name
			}
		}
	}
	return out
}

// --- tests ---

func TestRankPOIs_OverlapFreeAndDuration(t *testing.T) {
	pois := []catalog.POI{
		{Name: "Paid short", Tags: []string{"museums"}, Hours: 1, Cost: 10},
		{Name: "Free long", Tags: []string{"nature"}, Hours: 4, Cost: 0},
		{Name: "Matches two", Tags: []string{"museums", "history"}, Hours: 1, Cost: 5},
	}
	got := itinerary.RankPOIs(pois, trip.NewPreferences("museums", "history"))
	require.Len(t, got, 3)
	assert.Equal(t, "Matches two", got[0].Name)
	assert.Equal(t, "Paid short", got[1].Name)
	assert.Equal(t, "Free long", got[2].Name)
}

func TestRankPOIs_TiesKeepCatalogOrder(t *testing.T) {
	pois := []catalog.POI{
		{Name: "A", Hours: 2, Cost: 5},
		{Name: "B", Hours: 2, Cost: 7},
		{Name: "C", Hours: 2, Cost: 9},
	}
	got := itinerary.RankPOIs(pois, nil)
	assert.Equal(t, []string{"A", "B", "C"}, []string{got[0].Name, got[1].Name, got[2].Name})
}

func TestCompose_PacksSlotsUnderDailyCap(t *testing.T) {
	src := staticSource([]catalog.POI{
		{Name: "A", Hours: 2, Cost: 1},
		{Name: "B", Hours: 3, Cost: 1},
		{Name: "C", Hours: 2, Cost: 1},
		{Name: "D", Hours: 1, Cost: 1},
	})
	plan, err := itinerary.NewComposer(src).Compose("X", day("2025-05-01"), day("2025-05-03"), nil)
	require.NoError(t, err)
	require.Len(t, plan, 2)

	// B (0.3) ranks before A and C (0.2) which rank before D (0.1)
	assert.Equal(t, [][3]string{{"B", "A", ""}, {"C", "D", ""}}, names(plan))
	assert.Equal(t, day("2025-05-01"), plan[0].Date)
	assert.Equal(t, day("2025-05-02"), plan[1].Date)
}

func TestCompose_OversizedPOIBlocksTheRest(t *testing.T) {
	c, err := catalog.Load()
	require.NoError(t, err)

	plan, err := itinerary.NewComposer(c).Compose("Barcelona", day("2025-05-01"), day("2025-05-04"),
		trip.NewPreferences("architecture", "history"))
	require.NoError(t, err)
	require.Len(t, plan, 3)

	assert.Equal(t, [3]string{"Gothic Quarter", "Sagrada Família", "Park Güell"}, names(plan)[0])
	// the 8h Costa Brava trip is next and never fits, so nothing further is placed
	assert.Equal(t, [3]string{}, names(plan)[1])
	assert.Equal(t, [3]string{}, names(plan)[2])
}

func TestCompose_NeverExceedsDailyCap(t *testing.T) {
	c, err := catalog.Load()
	require.NoError(t, err)
	composer := itinerary.NewComposer(c)

	prefSets := []trip.Preferences{nil, trip.NewPreferences("hiking"), trip.NewPreferences("foodie", "museums")}
	for _, d := range c.Destinations() {
		for _, prefs := range prefSets {
			plan, err := composer.Compose(d.City, day("2025-06-01"), day("2025-06-08"), prefs)
			require.NoError(t, err)
			assert.Len(t, plan, 7)

			seen := map[string]bool{}
			for _, dp := range plan {
				assert.LessOrEqual(t, dp.Hours(), itinerary.ComposeDayHours, d.City)
				for _, a := range dp.Activities() {
					assert.False(t, seen[a.Name], "%s placed twice in %s", a.Name, d.City)
					seen[a.Name] = true
				}
			}
		}
	}
}

func TestCompose_MissingCityGivesEmptyDays(t *testing.T) {
	src := &mockSource{pois: func(city string) ([]catalog.POI, error) {
		return nil, trip.ErrCatalogMissingEntry
	}}
	plan, err := itinerary.NewComposer(src).Compose("Atlantis", day("2025-05-01"), day("2025-05-03"), nil)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	for _, dp := range plan {
		assert.Empty(t, dp.Activities())
	}
}

func TestCompose_SourceErrorIsReturned(t *testing.T) {
	src := &mockSource{pois: func(string) ([]catalog.POI, error) { return nil, errors.New("boom") }}
	_, err := itinerary.NewComposer(src).Compose("X", day("2025-05-01"), day("2025-05-03"), nil)
	assert.Error(t, err)
}

func TestCompose_InvalidDates(t *testing.T) {
	_, err := itinerary.NewComposer(staticSource(nil)).Compose("X", day("2025-05-03"), day("2025-05-01"), nil)
	assert.ErrorIs(t, err, trip.ErrInvalidDateRange)
}

func TestHighlights(t *testing.T) {
	c, err := catalog.Load()
	require.NoError(t, err)
	pois, err := c.POIs("Rome")
	require.NoError(t, err)

	hs := itinerary.Highlights(pois, trip.NewPreferences("foodie"), 6)
	require.Len(t, hs, 6)
	for _, h := range hs {
		assert.LessOrEqual(t, h.Activity.Hours, itinerary.DisplayDayHours)
		assert.NotEqual(t, "Tuscany Day Trip", h.Activity.Name)
	}
	assert.Equal(t, "Private Villa Experience", hs[0].Activity.Name)
	assert.Equal(t, []string{"foodie"}, hs[0].Matches)
	assert.Equal(t, "Private Villa Experience: A highlight for luxury, foodie lovers.", hs[0].Summary)
}

func TestPlacementsAndClear(t *testing.T) {
	src := staticSource([]catalog.POI{
		{Name: "A", Hours: 2, Cost: 1},
		{Name: "B", Hours: 2, Cost: 1},
	})
	plan, err := itinerary.NewComposer(src).Compose("X", day("2025-05-01"), day("2025-05-02"), nil)
	require.NoError(t, err)

	ps := itinerary.Placements(plan)
	require.Len(t, ps, 2)
	assert.Equal(t, itinerary.Morning, ps[0].Slot)
	assert.Equal(t, itinerary.Afternoon, ps[1].Slot)

	plan[0].Clear(itinerary.Morning)
	assert.Nil(t, plan[0].Morning)
	assert.Equal(t, 2.0, plan[0].Hours())
	assert.Equal(t, "afternoon", itinerary.Afternoon.String())
}

func TestActivityUtility(t *testing.T) {
	a := itinerary.Activity{Name: "X", Tags: []string{"a", "b"}, Hours: 3}
	assert.InDelta(t, 3.4, a.Utility(), 1e-12)
}
