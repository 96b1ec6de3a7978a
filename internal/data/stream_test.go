package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeMsg
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		conn.WriteJSON(tickMsg{Event: "tick", Symbol: "btc", Price: 45000, TsMs: 1700000000000})
		conn.WriteJSON(tickMsg{Event: "heartbeat"})
		conn.WriteJSON(tickMsg{Event: "tick", Symbol: "eth", Price: -1})
		conn.WriteJSON(tickMsg{Event: "tick", Symbol: "eth", Price: 2500, TsMs: 1700000001000})

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStreamDeliversValidTicks(t *testing.T) {
	stream := NewStream(StreamConfig{
		URL:     tickServer(t),
		Symbols: []string{"BTC", "ETH"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go stream.Run(ctx)

	var got []Tick
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case tick := <-stream.Ticks():
			got = append(got, tick)
		case <-timeout:
			t.Fatal("timed out waiting for ticks")
		}
	}

	assert.Equal(t, "BTC", got[0].Symbol)
	assert.InDelta(t, 45000, got[0].Price, 1e-9)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), got[0].Time)
	assert.Equal(t, "ETH", got[1].Symbol, "junk and heartbeat frames must be dropped")
}

func TestStreamClosesChannelOnCancel(t *testing.T) {
	stream := NewStream(StreamConfig{URL: tickServer(t), Symbols: []string{"BTC"}})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- stream.Run(ctx) }()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream.Ticks():
			return ok
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond, "stream should connect and deliver")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for range stream.Ticks() {
	}
}
