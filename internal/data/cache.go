package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const historyKeyPrefix = "ctrader:history"

// CachedHistory wraps a HistorySource with a Redis read-through cache so
// repeated cycles within the TTL do not re-fetch the same daily series.
type CachedHistory struct {
	source HistorySource
	rdb    redis.Cmdable
	ttl    time.Duration
}

func NewCachedHistory(source HistorySource, rdb redis.Cmdable, ttl time.Duration) *CachedHistory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedHistory{source: source, rdb: rdb, ttl: ttl}
}

func historyKey(symbol string, days int) string {
	return fmt.Sprintf("%s:%s:%d", historyKeyPrefix, symbol, days)
}

// DailyHistory serves from Redis when possible, falling back to the
// underlying source on miss or cache error. Cache failures are logged and
// never fail the fetch.
func (c *CachedHistory) DailyHistory(ctx context.Context, symbol string, days int) (Series, error) {
	key := historyKey(symbol, days)

	raw, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		var series Series
		if jerr := json.Unmarshal([]byte(raw), &series); jerr == nil {
			return series, nil
		}
		log.Warn().Str("key", key).Msg("discarding corrupt cached history")
	} else if err != redis.Nil {
		log.Warn().Err(err).Str("key", key).Msg("history cache read failed")
	}

	series, err := c.source.DailyHistory(ctx, symbol, days)
	if err != nil {
		return nil, err
	}

	if payload, jerr := json.Marshal(series); jerr == nil {
		if serr := c.rdb.Set(ctx, key, payload, c.ttl).Err(); serr != nil {
			log.Warn().Err(serr).Str("key", key).Msg("history cache write failed")
		}
	}
	return series, nil
}

// Invalidate drops the cached series for one symbol/days pair.
func (c *CachedHistory) Invalidate(ctx context.Context, symbol string, days int) error {
	return c.rdb.Del(ctx, historyKey(symbol, days)).Err()
}
