package data

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Tick is one live price observation pushed by the stream.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"ts"`
}

// StreamConfig configures the live ticker.
type StreamConfig struct {
	URL       string
	Symbols   []string
	Reconnect time.Duration
}

// Stream maintains a websocket subscription for live ticks, reconnecting
// with a fixed delay until the context is cancelled.
type Stream struct {
	cfg   StreamConfig
	ticks chan Tick
}

func NewStream(cfg StreamConfig) *Stream {
	if cfg.Reconnect <= 0 {
		cfg.Reconnect = 5 * time.Second
	}
	return &Stream{cfg: cfg, ticks: make(chan Tick, 64)}
}

// Ticks is the stream's output channel. It is closed when Run returns.
func (s *Stream) Ticks() <-chan Tick {
	return s.ticks
}

// Run connects, subscribes and pumps ticks until ctx is cancelled. The
// tick channel is closed on return.
func (s *Stream) Run(ctx context.Context) error {
	defer close(s.ticks)
	for {
		if err := s.session(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Dur("retry_in", s.cfg.Reconnect).Msg("tick stream disconnected")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Reconnect):
		}
	}
}

type subscribeMsg struct {
	Event   string   `json:"event"`
	Symbols []string `json:"symbols"`
}

type tickMsg struct {
	Event  string  `json:"event"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	TsMs   int64   `json:"ts"`
}

func (s *Stream) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.cfg.URL, nil)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(subscribeMsg{Event: "subscribe", Symbols: s.cfg.Symbols}); err != nil {
		return err
	}
	log.Info().Str("url", s.cfg.URL).Strs("symbols", s.cfg.Symbols).Msg("tick stream connected")

	// Unblock ReadMessage when the context ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg tickMsg
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Event != "tick" {
			continue
		}
		if msg.Price <= 0 || msg.Symbol == "" {
			continue
		}
		tick := Tick{
			Symbol: strings.ToUpper(msg.Symbol),
			Price:  msg.Price,
			Time:   time.UnixMilli(msg.TsMs).UTC(),
		}
		select {
		case s.ticks <- tick:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Slow consumer, drop the tick rather than block the reader.
		}
	}
}
