// Package data fetches and caches daily price history and live ticks for
// the engine. It is an I/O collaborator: the core packages only ever see
// plain price slices and maps.
package data

import (
	"context"
	"sort"
	"time"
)

// PricePoint is one (timestamp, price) observation.
type PricePoint struct {
	Time  time.Time `json:"ts"`
	Price float64   `json:"price"`
}

// Series is an ordered daily price series, strictly ascending by timestamp
// with positive prices once cleaned.
type Series []PricePoint

// Clean sorts the series ascending, drops duplicate timestamps (keeping the
// last observation) and removes non-positive prices.
func (s Series) Clean() Series {
	if len(s) == 0 {
		return s
	}
	sorted := make(Series, len(s))
	copy(sorted, s)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	out := make(Series, 0, len(sorted))
	for _, p := range sorted {
		if p.Price <= 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Time.Equal(p.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// Prices strips the timestamps, yielding the oldest-first close series the
// weight overlays consume.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

// Scale multiplies every price by a factor, used for quote-currency
// conversion.
func (s Series) Scale(factor float64) Series {
	if factor == 1 || factor == 0 {
		return s
	}
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = PricePoint{Time: p.Time, Price: p.Price * factor}
	}
	return out
}

// HistorySource supplies daily price history for a symbol.
type HistorySource interface {
	// DailyHistory returns up to days of daily closes for the symbol,
	// oldest first, quoted in USD.
	DailyHistory(ctx context.Context, symbol string, days int) (Series, error)
}

// SpotSource supplies current reference prices for a symbol set.
type SpotSource interface {
	SpotPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// HistoryMap materializes a symbol set's histories into the plain form the
// backtester takes, applying an optional FX factor. Symbols whose fetch
// fails are omitted; the engine treats them as having no data.
func HistoryMap(ctx context.Context, src HistorySource, symbols []string, days int, fx float64) map[string][]float64 {
	out := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		series, err := src.DailyHistory(ctx, sym, days)
		if err != nil {
			continue
		}
		out[sym] = series.Clean().Scale(fx).Prices()
	}
	return out
}
