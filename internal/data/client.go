package data

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ClientConfig tunes the REST fetcher. Zero values fall back to the free
// tier defaults below.
type ClientConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	RequestsPerMin int
	UserAgent      string
}

const (
	defaultBaseURL   = "https://api.coingecko.com/api/v3"
	defaultTimeout   = 15 * time.Second
	defaultRetries   = 3
	defaultRPM       = 25
	defaultUserAgent = "ctrader/1.0"

	backoffBase = time.Second
	backoffMax  = 30 * time.Second
)

// Client fetches daily history and spot prices from a CoinGecko-style API.
// Requests pass through a per-client rate limiter and a circuit breaker so
// a flapping upstream cannot stall a live cycle.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	ids     map[string]string
}

// Well-known symbol to API id mappings. Anything absent falls back to the
// lowercased symbol.
var defaultIDs = map[string]string{
	"BTC":  "bitcoin",
	"ETH":  "ethereum",
	"SOL":  "solana",
	"ADA":  "cardano",
	"XRP":  "ripple",
	"DOGE": "dogecoin",
	"DOT":  "polkadot",
	"LTC":  "litecoin",
	"LINK": "chainlink",
	"USDT": "tether",
	"USDC": "usd-coin",
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if cfg.RequestsPerMin <= 0 {
		cfg.RequestsPerMin = defaultRPM
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "market-data",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("market data breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMin)/60.0), 2),
		breaker: breaker,
		ids:     defaultIDs,
	}
}

func (c *Client) coinID(symbol string) string {
	if id, ok := c.ids[strings.ToUpper(symbol)]; ok {
		return id
	}
	return strings.ToLower(symbol)
}

// DailyHistory returns up to days of daily USD closes for symbol, oldest
// first.
func (c *Client) DailyHistory(ctx context.Context, symbol string, days int) (Series, error) {
	if days <= 0 {
		return nil, fmt.Errorf("history days must be positive, got %d", days)
	}
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily",
		c.cfg.BaseURL, url.PathEscape(c.coinID(symbol)), days)

	var payload struct {
		Prices [][2]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("daily history %s: %w", symbol, err)
	}

	series := make(Series, 0, len(payload.Prices))
	for _, pt := range payload.Prices {
		series = append(series, PricePoint{
			Time:  time.UnixMilli(int64(pt[0])).UTC(),
			Price: pt[1],
		})
	}
	return series.Clean(), nil
}

// SpotPrices returns the current USD price for each symbol. Symbols the
// API does not know are absent from the result.
func (c *Client) SpotPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	ids := make([]string, 0, len(symbols))
	bySym := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		id := c.coinID(sym)
		ids = append(ids, id)
		bySym[id] = strings.ToUpper(sym)
	}
	endpoint := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd",
		c.cfg.BaseURL, url.QueryEscape(strings.Join(ids, ",")))

	var payload map[string]map[string]float64
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("spot prices: %w", err)
	}

	out := make(map[string]float64, len(payload))
	for id, quote := range payload {
		sym, ok := bySym[id]
		if !ok {
			continue
		}
		if px := quote["usd"]; px > 0 {
			out[sym] = px
		}
	}
	return out, nil
}

// FXRate returns the USD to quote-currency conversion factor. "USD" and
// the empty string map to 1.
func (c *Client) FXRate(ctx context.Context, quote string) (float64, error) {
	quote = strings.ToLower(strings.TrimSpace(quote))
	if quote == "" || quote == "usd" {
		return 1, nil
	}
	endpoint := fmt.Sprintf("%s/simple/price?ids=usd-coin&vs_currencies=%s",
		c.cfg.BaseURL, url.QueryEscape(quote))

	var payload map[string]map[string]float64
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return 0, fmt.Errorf("fx rate usd/%s: %w", quote, err)
	}
	fx := payload["usd-coin"][quote]
	if fx <= 0 {
		return 0, fmt.Errorf("fx rate usd/%s: no quote in response", quote)
	}
	return fx, nil
}

// getJSON performs a rate-limited, breaker-guarded GET with bounded
// exponential backoff and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffBase << uint(attempt-1)
			if delay > backoffMax {
				delay = backoffMax
			}
			delay += time.Duration(rand.Int63n(int64(250 * time.Millisecond)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doOnce(ctx, endpoint, out)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Debug().Err(err).Int("attempt", attempt+1).Str("url", endpoint).Msg("market data request retry")
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	log.Debug().Dur("duration", time.Since(start)).Str("url", endpoint).Msg("market data request ok")
	return nil
}
