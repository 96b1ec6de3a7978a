// Package persistence writes cycle outputs to durable stores: append-only
// CSV files, a JSONL run log and optionally Postgres.
package persistence

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/ctraderhq/ctrader/internal/backtest"
)

// EquityRow is one equity observation in the per-pool equity CSV.
type EquityRow struct {
	Time   string  `csv:"time"`
	Pool   string  `csv:"pool"`
	Equity float64 `csv:"equity"`
	Cash   float64 `csv:"cash"`
}

// TradeRow is one fill in the per-pool trades CSV.
type TradeRow struct {
	Time      string  `csv:"time"`
	Pool      string  `csv:"pool"`
	Symbol    string  `csv:"symbol"`
	Side      string  `csv:"side"`
	Qty       float64 `csv:"qty"`
	Price     float64 `csv:"price"`
	FillPrice float64 `csv:"fill_price"`
	Value     float64 `csv:"value"`
	Fee       float64 `csv:"fee"`
	Status    string  `csv:"status"`
	Reason    string  `csv:"reason"`
}

// CSVStore appends equity and trade rows under a base directory, one pair
// of files per pool.
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) equityPath(pool string) string {
	return filepath.Join(s.dir, fmt.Sprintf("equity_%s.csv", pool))
}

func (s *CSVStore) tradesPath(pool string) string {
	return filepath.Join(s.dir, fmt.Sprintf("trades_%s.csv", pool))
}

// AppendEquity appends one equity observation, writing the header only when
// the file is new.
func (s *CSVStore) AppendEquity(pool string, at time.Time, equity, cash float64) error {
	row := EquityRow{
		Time:   at.UTC().Format(time.RFC3339),
		Pool:   pool,
		Equity: equity,
		Cash:   cash,
	}
	return appendCSV(s.equityPath(pool), []EquityRow{row})
}

// AppendTrades appends the cycle's fills.
func (s *CSVStore) AppendTrades(pool string, at time.Time, fills []backtest.Fill) error {
	if len(fills) == 0 {
		return nil
	}
	rows := make([]TradeRow, 0, len(fills))
	ts := at.UTC().Format(time.RFC3339)
	for _, f := range fills {
		rows = append(rows, TradeRow{
			Time:      ts,
			Pool:      pool,
			Symbol:    f.Symbol,
			Side:      string(f.Side),
			Qty:       f.Qty,
			Price:     f.Price,
			FillPrice: f.FillPrice,
			Value:     f.Value,
			Fee:       f.Fee,
			Status:    string(f.Status),
			Reason:    f.Reason,
		})
	}
	return appendCSV(s.tradesPath(pool), rows)
}

// ReadEquity loads the full equity series for a pool. A missing file reads
// as an empty series.
func (s *CSVStore) ReadEquity(pool string) ([]EquityRow, error) {
	f, err := os.Open(s.equityPath(pool))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var rows []EquityRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("read equity csv: %w", err)
	}
	return rows, nil
}

func appendCSV[T any](path string, rows []T) error {
	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if newFile {
		return gocsv.MarshalFile(&rows, f)
	}
	return gocsv.MarshalWithoutHeaders(&rows, f)
}
