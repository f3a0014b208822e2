package flights

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/trip"
)

// DefaultOrigin is the departure airport used when none is configured.
const DefaultOrigin = "CDG"

// Quoter produces flight quotes, reading through a cache when one is set.
type Quoter struct {
	search Searcher
	cache  QuoteCache
	origin string
	log    *slog.Logger
	now    func() time.Time
}

// NewQuoter constructs a Quoter. search and cache may be nil; without a
// searcher every quote is ErrUnavailable.
func NewQuoter(search Searcher, cache QuoteCache, origin string, log *slog.Logger) *Quoter {
	if origin == "" {
		origin = DefaultOrigin
	}
	if log == nil {
		log = slog.Default()
	}
	return &Quoter{search: search, cache: cache, origin: strings.ToUpper(origin), log: log, now: time.Now}
}

// Origin returns the departure airport.
func (q *Quoter) Origin() string { return q.origin }

// Quote prices the outbound flight to d on date.
func (q *Quoter) Quote(ctx context.Context, d catalog.Destination, date time.Time) (Quote, error) {
	if q == nil || q.search == nil || d.Airport == "" {
		return Quote{}, ErrUnavailable
	}
	day := trip.Day(date).Format(trip.DateLayout)

	if q.cache != nil {
		cached, err := q.cache.GetQuote(ctx, d.City, day)
		if err != nil {
			q.log.WarnContext(ctx, "flight quote cache get failed", "city", d.City, "err", err)
		}
		if cached != nil {
			cached.Source = SourceCache
			return *cached, nil
		}
	}

	base, err := q.search.CheapestOffer(ctx, q.origin, d.Airport, date)
	if err != nil {
		return Quote{}, fmt.Errorf("quoting flight to %s: %w", d.City, err)
	}

	quote := Quote{
		City:     d.City,
		Origin:   q.origin,
		Airport:  d.Airport,
		Date:     day,
		Prices:   PricesFromBase(base),
		Source:   SourceLive,
		QuotedAt: q.now().UTC(),
	}
	if q.cache != nil {
		if err := q.cache.SetQuote(ctx, quote); err != nil {
			q.log.WarnContext(ctx, "flight quote cache set failed", "city", d.City, "err", err)
		}
	}
	return quote, nil
}

// QuoteAll quotes every destination in parallel. Failed quotes are logged
// and left out of the result; only a panic fails the whole call.
func (q *Quoter) QuoteAll(ctx context.Context, dests []catalog.Destination, date time.Time) (map[string]Quote, error) {
	out := make(map[string]Quote, len(dests))
	if q == nil || q.search == nil {
		return out, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	for _, d := range dests {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					q.log.Error("flight quote panicked", "city", d.City, "recover", r)
					err = fmt.Errorf("flight quote for %s panicked: %v", d.City, r)
				}
			}()
			quote, quoteErr := q.Quote(gCtx, d, date)
			if quoteErr != nil {
				q.log.WarnContext(gCtx, "flight quote failed", "city", d.City, "err", quoteErr)
				return nil
			}
			mu.Lock()
			out[d.City] = quote
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("quoting flights: %w", err)
	}
	return out, nil
}

// Enrich returns d carrying the quoted prices, or d unchanged with the
// catalog source when the quote failed.
func (q *Quoter) Enrich(ctx context.Context, d catalog.Destination, date time.Time) (catalog.Destination, string) {
	quote, err := q.Quote(ctx, d, date)
	if err != nil {
		if q != nil && q.search != nil {
			q.log.WarnContext(ctx, "using catalog flight prices", "city", d.City, "err", err)
		}
		return d, SourceCatalog
	}
	return d.WithFlightPrices(quote.Prices), quote.Source
}
