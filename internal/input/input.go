// Package input loads account populations and instrument catalogs from files.
//
// Two formats are accepted, chosen by file extension: JSON Lines (.jsonl, .json, .ndjson),
// one object per line as written by upstream account exports, and CSV (.csv) with a header row.
// Every problem is reported as domain.ErrConfiguration with the offending line.
package input

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"fraud-trade-lab/internal/domain"
)

// Format identifies a record file layout.
type Format string

// Supported formats
const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// FormatFromPath picks the format by extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %s: unsupported file extension", domain.ErrConfiguration, path)
}

// record is one input row as field name -> raw value.
type record struct {
	line   int
	fields map[string]json.RawMessage
}

// str returns a string field, accepting JSON strings, numbers and CSV cells.
func (r record) str(names ...string) string {
	for _, name := range names {
		raw, ok := r.fields[name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}

// decimal returns a decimal field. Values may be numbers, strings, or objects
// carrying a "price" member.
func (r record) decimal(names ...string) (decimal.Decimal, bool, error) {
	for _, name := range names {
		raw, ok := r.fields[name]
		if !ok || len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var nested struct {
			Price *decimal.Decimal `json:"price"`
		}
		if raw[0] == '{' {
			if err := json.Unmarshal(raw, &nested); err != nil {
				return decimal.Zero, false, fmt.Errorf("%s: %w", name, err)
			}
			if nested.Price == nil {
				return decimal.Zero, false, fmt.Errorf("%s: missing price", name)
			}
			return *nested.Price, true, nil
		}
		d, err := decimal.NewFromString(r.str(name))
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%s: %w", name, err)
		}
		return d, true, nil
	}
	return decimal.Zero, false, nil
}

func readRecords(r io.Reader, format Format) ([]record, error) {
	switch format {
	case FormatJSONL:
		return readJSONL(r)
	case FormatCSV:
		return readCSV(r)
	}
	return nil, fmt.Errorf("%w: unknown format %q", domain.ErrConfiguration, format)
}

func readJSONL(r io.Reader) ([]record, error) {
	var out []record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := make(map[string]json.RawMessage)
		if err := json.Unmarshal([]byte(text), &fields); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrConfiguration, line, err)
		}
		out = append(out, record{line: line, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return out, nil
}

func readCSV(r io.Reader) ([]record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", domain.ErrConfiguration, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	var out []record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrConfiguration, line, err)
		}
		fields := make(map[string]json.RawMessage, len(header))
		for i, name := range header {
			if i >= len(row) || row[i] == "" {
				continue
			}
			encoded, _ := json.Marshal(row[i])
			fields[name] = encoded
		}
		out = append(out, record{line: line, fields: fields})
	}
	return out, nil
}

func openFile(path string) (*os.File, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: open %s: %v", domain.ErrConfiguration, path, err)
	}
	return f, format, nil
}
