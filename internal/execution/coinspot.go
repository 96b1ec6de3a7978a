package execution

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/backtest"
	"github.com/ctraderhq/ctrader/internal/domain/rebalance"
)

const (
	coinspotAPIBase = "https://www.coinspot.com.au/api/v2"
	coinspotROBase  = "https://www.coinspot.com.au/api/v2/ro"
)

// CoinSpotClient is a thin signed client for the CoinSpot v2 private API.
// Requests carry a millisecond nonce and an HMAC-SHA512 signature of the
// compact JSON body in the "sign" header.
type CoinSpotClient struct {
	apiKey    string
	apiSecret string
	baseURL   string
	roBaseURL string
	http      *http.Client
	nowNonce  func() int64
}

// NewCoinSpotClient requires a live-confirmed mode so a client capable of
// placing real orders cannot be constructed by accident.
func NewCoinSpotClient(mode Mode, apiKey, apiSecret string) (*CoinSpotClient, error) {
	if !mode.Live() {
		return nil, fmt.Errorf("coinspot client requires confirmed live mode, got %q", mode)
	}
	if apiKey == "" || apiSecret == "" {
		return nil, fmt.Errorf("coinspot client: missing API key or secret")
	}
	return &CoinSpotClient{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   coinspotAPIBase,
		roBaseURL: coinspotROBase,
		http:      &http.Client{Timeout: 20 * time.Second},
		nowNonce:  func() int64 { return time.Now().UnixMilli() },
	}, nil
}

func (c *CoinSpotClient) sign(body []byte) string {
	mac := hmac.New(sha512.New, []byte(c.apiSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *CoinSpotClient) post(ctx context.Context, base, path string, payload map[string]interface{}, out interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	if _, ok := payload["nonce"]; !ok {
		payload["nonce"] = c.nowNonce()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("key", c.apiKey)
	req.Header.Set("sign", c.sign(body))

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("coinspot %s: HTTP %d", path, resp.StatusCode)
	}

	var envelope struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return err
	}
	if err := json.Unmarshal(buf.Bytes(), &envelope); err != nil {
		return fmt.Errorf("coinspot %s: decode: %w", path, err)
	}
	if envelope.Status != "ok" {
		return fmt.Errorf("coinspot %s: %s", path, envelope.Message)
	}
	if out != nil {
		return json.Unmarshal(buf.Bytes(), out)
	}
	return nil
}

// Balances returns held quantity per symbol, uppercased.
func (c *CoinSpotClient) Balances(ctx context.Context) (map[string]float64, error) {
	var payload struct {
		Balances []map[string]struct {
			Balance float64 `json:"balance"`
		} `json:"balances"`
	}
	if err := c.post(ctx, c.roBaseURL, "/my/balances", nil, &payload); err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, entry := range payload.Balances {
		for sym, b := range entry {
			out[strings.ToUpper(sym)] = b.Balance
		}
	}
	return out, nil
}

// PlaceMarketOrder places one market buy or sell at the given rate and
// returns a fill record mirroring the paper executor's trace.
func (c *CoinSpotClient) PlaceMarketOrder(ctx context.Context, order rebalance.Order) (backtest.Fill, error) {
	var path string
	switch order.Side {
	case rebalance.SideBuy:
		path = "/my/buy"
	case rebalance.SideSell:
		path = "/my/sell"
	default:
		return backtest.Fill{}, fmt.Errorf("cannot place %s order for %s", order.Side, order.Symbol)
	}

	payload := map[string]interface{}{
		"cointype": strings.ToUpper(order.Symbol),
		"amount":   order.Qty,
		"rate":     order.Price,
	}
	var resp struct {
		ID     string  `json:"id"`
		Amount float64 `json:"amount"`
		Rate   float64 `json:"rate"`
	}
	if err := c.post(ctx, c.baseURL, path, payload, &resp); err != nil {
		return backtest.Fill{}, err
	}

	qty := resp.Amount
	if qty == 0 {
		qty = order.Qty
	}
	rate := resp.Rate
	if rate == 0 {
		rate = order.Price
	}
	return backtest.Fill{
		ID:        uuid.New(),
		Symbol:    order.Symbol,
		Side:      order.Side,
		Qty:       qty,
		Price:     order.Price,
		FillPrice: rate,
		Value:     qty * rate,
		Status:    backtest.FillExecuted,
	}, nil
}

// LiveExecutor places each actionable order on CoinSpot sequentially. An
// order failure is recorded as a skipped fill and execution continues, so
// one rejected order does not abandon the rest of the plan.
type LiveExecutor struct {
	Client *CoinSpotClient
}

func NewLiveExecutor(client *CoinSpotClient) *LiveExecutor {
	return &LiveExecutor{Client: client}
}

func (e *LiveExecutor) Execute(ctx context.Context, plan rebalance.Plan, prices map[string]float64) ([]backtest.Fill, error) {
	var fills []backtest.Fill
	for _, o := range plan.Orders {
		if o.Side == rebalance.SideHold || o.Qty <= 0 {
			continue
		}
		fill, err := e.Client.PlaceMarketOrder(ctx, o)
		if err != nil {
			if ctx.Err() != nil {
				return fills, ctx.Err()
			}
			log.Error().Err(err).Str("symbol", o.Symbol).Str("side", string(o.Side)).Msg("live order failed")
			fills = append(fills, backtest.Fill{
				ID: uuid.New(), Symbol: o.Symbol, Side: o.Side, Qty: o.Qty, Price: o.Price,
				Status: backtest.FillSkipped, Reason: err.Error(),
			})
			continue
		}
		log.Info().Str("symbol", o.Symbol).Str("side", string(o.Side)).
			Float64("qty", fill.Qty).Float64("rate", fill.FillPrice).Msg("live order placed")
		fills = append(fills, fill)
	}
	return fills, nil
}
