package main

import (
	"context"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/ctraderhq/ctrader/internal/config"
	"github.com/ctraderhq/ctrader/internal/data"
)

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// newHistorySource builds the market data client, wrapped in the Redis
// read-through cache when REDIS_ADDR is set.
func newHistorySource() (*data.Client, data.HistorySource) {
	client := data.NewClient(data.ClientConfig{
		BaseURL: os.Getenv("MARKET_DATA_URL"),
	})

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return client, client
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unreachable, running without history cache")
		return client, client
	}
	log.Info().Str("addr", addr).Msg("history cache enabled")
	return client, data.NewCachedHistory(client, rdb, time.Hour)
}

// resolveFX fetches the USD to quote-currency factor once per invocation.
func resolveFX(ctx context.Context, client *data.Client, cfg *config.Config) float64 {
	fx, err := client.FXRate(ctx, cfg.Global.QuoteCurrency)
	if err != nil {
		log.Warn().Err(err).Str("quote", cfg.Global.QuoteCurrency).Msg("fx rate unavailable, using 1.0")
		return 1
	}
	return fx
}
