// Package notify pushes cycle summaries to a Discord webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/backtest"
)

const (
	colorGreen = 0x2ecc71
	colorAmber = 0xf39c12
	colorRed   = 0xe74c3c
)

// DiscordNotifier posts embeds to a Discord webhook. An empty webhook URL
// disables it, so callers never need a nil check.
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	http       *http.Client
}

func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		enabled:    webhookURL != "",
		http:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Enabled() bool { return d.enabled }

// CycleSummary announces one completed rebalance cycle.
func (d *DiscordNotifier) CycleSummary(ctx context.Context, pool string, equity float64, fills []backtest.Fill) error {
	executed, skipped := 0, 0
	for _, f := range fills {
		if f.Status == backtest.FillSkipped {
			skipped++
		} else {
			executed++
		}
	}
	color := colorGreen
	if skipped > 0 {
		color = colorAmber
	}
	msg := fmt.Sprintf("Equity: %.2f\nFills: %d executed, %d skipped", equity, executed, skipped)
	return d.send(ctx, fmt.Sprintf("Rebalance cycle: %s", pool), msg, color)
}

// CycleError announces a failed cycle.
func (d *DiscordNotifier) CycleError(ctx context.Context, pool string, err error) error {
	return d.send(ctx, fmt.Sprintf("Cycle failed: %s", pool), err.Error(), colorRed)
}

func (d *DiscordNotifier) send(ctx context.Context, title, description string, color int) error {
	if !d.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{
			{
				"title":       title,
				"description": description,
				"color":       color,
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("discord returned status %d", resp.StatusCode)
	}
	log.Debug().Str("title", title).Msg("discord notification sent")
	return nil
}
