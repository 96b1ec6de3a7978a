package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ctraderhq/ctrader/internal/data"
)

func newWatchCmd() *cobra.Command {
	var pool string
	var wsURL string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live ticks for a pool's universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), pool, wsURL)
		},
	}
	cmd.Flags().StringVarP(&pool, "pool", "p", "", "Pool name (required)")
	cmd.Flags().StringVar(&wsURL, "url", os.Getenv("TICK_STREAM_URL"), "Websocket tick stream URL")
	cmd.MarkFlagRequired("pool")
	return cmd
}

func runWatch(ctx context.Context, poolName, wsURL string) error {
	if wsURL == "" {
		return fmt.Errorf("no tick stream URL: pass --url or set TICK_STREAM_URL")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pool, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}

	symbols := make([]string, 0, len(pool.Assets))
	for sym := range pool.BaseWeights() {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	stream := data.NewStream(data.StreamConfig{URL: wsURL, Symbols: symbols})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	go stream.Run(ctx)

	for tick := range stream.Ticks() {
		fmt.Printf("%s  %-6s %.2f\n", tick.Time.Format("15:04:05"), tick.Symbol, tick.Price)
	}
	return nil
}
