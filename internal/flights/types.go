// Package flights quotes live flight prices for catalog destinations.
package flights

import (
	"context"
	"errors"
	"time"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/pricing"
)

// ErrUnavailable is returned when no live quote can be produced and the
// caller should keep the catalog prices.
var ErrUnavailable = errors.New("flight quotes unavailable")

// Premium and luxury fares are derived from the cheapest economy offer.
const (
	PremiumFactor = 2.8
	LuxuryFactor  = 4.5
)

// Quote sources, used as a metrics label.
const (
	SourceLive    = "amadeus"
	SourceCache   = "cache"
	SourceCatalog = "catalog"
)

// Quote is a priced outbound flight for one destination and departure date.
type Quote struct {
	City     string             `json:"city"`
	Origin   string             `json:"origin"`
	Airport  string             `json:"airport"`
	Date     string             `json:"date"`
	Prices   catalog.TierPrices `json:"prices"`
	Source   string             `json:"source"`
	QuotedAt time.Time          `json:"quoted_at"`
}

// PricesFromBase spreads an economy fare over the three tiers.
func PricesFromBase(base float64) catalog.TierPrices {
	return catalog.TierPrices{
		Standard: pricing.Round(base, 2),
		Premium:  pricing.Round(base*PremiumFactor, 2),
		Luxury:   pricing.Round(base*LuxuryFactor, 2),
	}
}

// Searcher returns the cheapest offer total for a one-way search.
type Searcher interface {
	CheapestOffer(ctx context.Context, origin, destination string, date time.Time) (float64, error)
}

// QuoteCache stores quotes between requests. Get returns nil, nil on a miss.
type QuoteCache interface {
	GetQuote(ctx context.Context, city, date string) (*Quote, error)
	SetQuote(ctx context.Context, q Quote) error
}
