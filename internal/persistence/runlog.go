package persistence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunRecord summarizes one completed cycle for the runs.jsonl log.
type RunRecord struct {
	RunID        uuid.UUID `json:"run_id"`
	Pool         string    `json:"pool"`
	Time         time.Time `json:"time"`
	Mode         string    `json:"mode"`
	Equity       float64   `json:"equity"`
	Cash         float64   `json:"cash"`
	OrdersTotal  int       `json:"orders_total"`
	OrdersActed  int       `json:"orders_acted"`
	FillsSkipped int       `json:"fills_skipped"`
	CapReasons   []string  `json:"cap_reasons,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// RunLog appends one JSON line per cycle. Lines are self-contained so the
// file stays greppable and tail-able.
type RunLog struct {
	path string
}

func NewRunLog(dir string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run log dir: %w", err)
	}
	return &RunLog{path: filepath.Join(dir, "runs.jsonl")}, nil
}

func (l *RunLog) Append(rec RunRecord) error {
	if rec.RunID == uuid.Nil {
		rec.RunID = uuid.New()
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// Tail returns up to n most recent records, oldest first. Malformed lines
// are skipped.
func (l *RunLog) Tail(n int) ([]RunRecord, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []RunRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
