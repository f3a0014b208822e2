package scoring

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/neexbeast/itinera/internal/trip"
)

// DiversitySeed derives the random seed for a query. It depends only on its
// arguments, so repeated queries always draw the same multipliers.
func DiversitySeed(city string, budget float64, prefs trip.Preferences, start time.Time, t trip.Tier) uint64 {
	joined := strings.Join(prefs, "")
	prefWeight := len(prefs) * 23
	for _, r := range joined {
		prefWeight += int(r)
	}
	prefWeight += int(tierHash(t) % 100)

	budgetFactor := int(budget)%200 + int(budget/100)%50
	dateFactor := int(start.Month())*31 + start.Day()

	key := fmt.Sprintf("%s_%d_%d_%d_%s", city, prefWeight, budgetFactor, dateFactor, t)
	sum := md5.Sum([]byte(key))
	return uint64(binary.BigEndian.Uint32(sum[:4]))
}

func tierHash(t trip.Tier) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(t))
	return h.Sum32()
}

// Diversity returns the combined perturbation multiplier for a query.
// prefs must already be de-duplicated, as trip.NewPreferences does.
func Diversity(city string, budget float64, prefs trip.Preferences, start time.Time, t trip.Tier) float64 {
	seed := DiversitySeed(city, budget, prefs, start, t)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	uniform := func(lo, hi float64) float64 {
		return lo + (hi-lo)*rng.Float64()
	}

	m := uniform(0.88, 1.12)

	switch {
	case budget < 1000:
		m *= uniform(0.95, 1.08)
	case budget > 1500:
		m *= uniform(0.92, 1.05)
	default:
		m *= uniform(0.90, 1.10)
	}

	switch start.Month() {
	case time.December, time.January, time.February:
		m *= uniform(0.94, 1.06)
	case time.June, time.July, time.August:
		m *= uniform(0.96, 1.04)
	default:
		m *= uniform(0.92, 1.08)
	}

	if prefs.HasAny("hiking", "adventure") {
		m *= uniform(0.95, 1.12)
	} else if prefs.Has("luxury") {
		m *= uniform(0.90, 1.08)
	}
	return m
}
