package trip_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/itinera/internal/trip"
)

func date(s string) time.Time {
	t, err := time.Parse(trip.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestParseTier_Known(t *testing.T) {
	for in, want := range map[string]trip.Tier{
		"":         trip.Standard,
		"standard": trip.Standard,
		"Premium":  trip.Premium,
		" LUXURY ": trip.Luxury,
	} {
		got, err := trip.ParseTier(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestParseTier_Unknown(t *testing.T) {
	_, err := trip.ParseTier("platinum")
	require.Error(t, err)
	assert.True(t, errors.Is(err, trip.ErrInvalidTier))
	assert.True(t, trip.IsInvalidInput(err))
}

func TestNights_MinimumOne(t *testing.T) {
	assert.Equal(t, 1, trip.Nights(date("2025-05-01"), date("2025-05-01")))
	assert.Equal(t, 3, trip.Nights(date("2025-05-01"), date("2025-05-04")))
	assert.Equal(t, 2, trip.Nights(date("2025-12-31"), date("2026-01-02")))
}

func TestNewPreferences_DedupesAndSorts(t *testing.T) {
	p := trip.NewPreferences("museums", " foodie", "museums", "")
	assert.Equal(t, trip.Preferences{"foodie", "museums"}, p)
	assert.True(t, p.Has("foodie"))
	assert.True(t, p.HasAny("hiking", "museums"))
	assert.False(t, p.HasAny("hiking", "adventure"))
}

func TestPreferences_Overlap(t *testing.T) {
	p := trip.NewPreferences("history", "views")
	assert.Equal(t, 2, p.Overlap([]string{"history", "views", "nature", "history"}))
	assert.Equal(t, 0, trip.Preferences(nil).Overlap([]string{"history"}))
}

func TestQueryValidate(t *testing.T) {
	valid := trip.Query{
		Budget: 1200,
		Start:  date("2025-05-01"),
		End:    date("2025-05-04"),
		Tier:   trip.Standard,
		Buffer: trip.DefaultBuffer,
	}
	require.NoError(t, valid.Validate())

	cases := map[string]struct {
		mutate func(q *trip.Query)
		want   error
	}{
		"negative budget": {func(q *trip.Query) { q.Budget = -1 }, trip.ErrNegativeBudget},
		"end before start": {func(q *trip.Query) { q.End = q.Start.AddDate(0, 0, -1) }, trip.ErrInvalidDateRange},
		"same day": {func(q *trip.Query) { q.End = q.Start }, trip.ErrInvalidDateRange},
		"bad tier": {func(q *trip.Query) { q.Tier = "gold" }, trip.ErrInvalidTier},
		"big buffer": {func(q *trip.Query) { q.Buffer = 0.9 }, trip.ErrInvalidBuffer},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			q := valid
			tc.mutate(&q)
			err := q.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.True(t, trip.IsInvalidInput(err))
		})
	}
}
