package catalog

import (
	"slices"
	"strings"

	a "github.com/petar-dambovaliev/aho-corasick"

	"github.com/neexbeast/itinera/internal/trip"
)

// Vocabulary is the set of preference tags a traveler can pick from.
var Vocabulary = []string{
	"foodie", "museums", "outdoors", "nightlife", "history", "architecture",
	"views", "beach", "baths", "markets", "shops", "step-free", "low-CO2",
	"hiking", "climbing", "adventure", "wellness", "luxury", "nature",
}

// related lists vibes that partially satisfy a preference.
var related = map[string][]string{
	"foodie":       {"markets"},
	"outdoors":     {"nature", "hiking", "beach"},
	"history":      {"architecture", "museums"},
	"nightlife":    {"nightlife"},
	"museums":      {"history", "architecture"},
	"architecture": {"history", "museums"},
	"nature":       {"hiking", "views", "beach"},
	"hiking":       {"nature", "adventure", "views"},
	"adventure":    {"hiking", "climbing"},
	"wellness":     {"baths", "luxury"},
	"luxury":       {"wellness"},
	"views":        {"nature", "hiking"},
}

// Match grades how well a destination serves one preference.
type Match string

const (
	MatchPerfect Match = "perfect"
	MatchGood    Match = "good"
	MatchLimited Match = "limited"
)

// MatchPreference grades pref against the vibes of d.
func MatchPreference(d Destination, pref string) Match {
	if d.HasVibe(pref) {
		return MatchPerfect
	}
	for _, rv := range related[pref] {
		if d.HasVibe(rv) {
			return MatchGood
		}
	}
	return MatchLimited
}

// keywords maps free-text words onto preference tags.
var keywords = map[string]string{
	"food": "foodie", "foodie": "foodie", "cuisine": "foodie", "restaurants": "foodie", "wine": "foodie",
	"museum": "museums", "museums": "museums", "art": "museums", "galleries": "museums",
	"outdoors": "outdoors", "parks": "outdoors",
	"nightlife": "nightlife", "bars": "nightlife", "clubs": "nightlife", "party": "nightlife",
	"history": "history", "historic": "history", "castles": "history",
	"architecture": "architecture", "buildings": "architecture",
	"views": "views", "viewpoints": "views", "scenery": "views",
	"beach": "beach", "beaches": "beach", "sea": "beach",
	"baths": "baths", "thermal": "baths",
	"markets": "markets", "market": "markets",
	"shops": "shops", "shopping": "shops",
	"step-free": "step-free", "wheelchair": "step-free", "accessible": "step-free",
	"low-co2": "low-CO2", "sustainable": "low-CO2", "eco": "low-CO2",
	"hiking": "hiking", "hike": "hiking", "trekking": "hiking", "trails": "hiking",
	"climbing": "climbing", "climb": "climbing",
	"adventure": "adventure", "adrenaline": "adventure",
	"wellness": "wellness", "spa": "wellness", "relax": "wellness",
	"luxury": "luxury", "luxurious": "luxury",
	"nature": "nature", "mountains": "nature", "lakes": "nature",
}

// Whole-word filtering runs after matching, so the longest keyword has to
// win or "foodie" is lost to a rejected "food".
var (
	interestBuilder = a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
		MatchKind:            a.LeftMostLongestMatch,
	})
	interestMatcher = interestBuilder.Build(keywordList())
)

func keywordList() []string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	slices.Sort(words)
	return words
}

// ParseInterests extracts preference tags from free text such as
// "museums, good food and a bit of hiking".
func ParseInterests(text string) trip.Preferences {
	text = strings.ToLower(text)
	var tags []string
	for _, m := range interestMatcher.FindAll(text) {
		if tag, ok := keywords[text[m.Start():m.End()]]; ok {
			tags = append(tags, tag)
		}
	}
	return trip.NewPreferences(tags...)
}
