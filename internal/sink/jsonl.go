package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"fraud-trade-lab/internal/domain"
)

// Output file names.
const (
	TradesFile   = "trades.jsonl"
	HoldingsFile = "holdings.jsonl"
)

// JSONLSink writes one JSON object per line into a directory.
// Each write replaces the previous file.
type JSONLSink struct {
	dir string
}

// NewJSONLSink creates the output directory if needed.
func NewJSONLSink(dir string) (*JSONLSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	return &JSONLSink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *JSONLSink) Dir() string {
	return s.dir
}

// WriteTrades writes trades.jsonl.
func (s *JSONLSink) WriteTrades(ctx context.Context, trades []domain.Trade) error {
	sorted := sortedTrades(trades)
	return writeLines(ctx, filepath.Join(s.dir, TradesFile), len(sorted), func(i int) any { return &sorted[i] })
}

// WriteHoldings writes holdings.jsonl.
func (s *JSONLSink) WriteHoldings(ctx context.Context, holdings []domain.Holding) error {
	sorted := sortedHoldings(holdings)
	return writeLines(ctx, filepath.Join(s.dir, HoldingsFile), len(sorted), func(i int) any { return &sorted[i] })
}

// Close is a no-op; files are closed after every write.
func (s *JSONLSink) Close() error {
	return nil
}

// writeLines writes to a temp file and renames it, so readers never see a partial file.
func writeLines(ctx context.Context, path string, n int, item func(int) any) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := enc.Encode(item(i)); err != nil {
			return fmt.Errorf("encode line %d of %s: %w", i, path, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
