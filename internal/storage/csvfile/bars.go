// Package csvfile reads and writes bars as CSV.
//
// The header row names the columns; order is free. Required columns are
// timestamp, open, high, low, close and volume. symbol, vwap, bid, ask,
// bid_size and ask_size are optional. timestamp holds Unix milliseconds or
// an RFC 3339 time.
package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"backtest-lab/internal/domain"
)

// Loader errors
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrMissingSymbol = errors.New("no symbol column and no default symbol")
)

var requiredColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

var columnAliases = map[string]string{
	"timestamp_ms": "timestamp",
	"time":         "timestamp",
	"ts":           "timestamp",
	"o":            "open",
	"h":            "high",
	"l":            "low",
	"c":            "close",
	"v":            "volume",
}

// ReadBars parses bars from r. defaultSymbol is used when the file has no
// symbol column. Every bar is validated.
func ReadBars(r io.Reader, defaultSymbol string) ([]*domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		cols[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	if _, ok := cols["symbol"]; !ok && defaultSymbol == "" {
		return nil, ErrMissingSymbol
	}

	var bars []*domain.Bar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		b, err := parseRecord(record, cols, defaultSymbol)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// ReadFile parses bars from path. Without a symbol column the file name
// minus extension is the symbol.
func ReadFile(path string) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars file: %w", err)
	}
	defer f.Close()

	symbol := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	bars, err := ReadBars(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// WriteBars writes bars with a full header. Absent optional fields are empty.
func WriteBars(w io.Writer, bars []*domain.Bar) error {
	writer := csv.NewWriter(w)
	header := []string{"symbol", "timestamp", "open", "high", "low", "close", "volume", "vwap", "bid", "ask", "bid_size", "ask_size"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, b := range bars {
		record := []string{
			b.Symbol,
			strconv.FormatInt(b.TimestampMs, 10),
			formatFloat(b.Open), formatFloat(b.High), formatFloat(b.Low), formatFloat(b.Close),
			formatFloat(b.Volume),
			formatOptional(b.VWAP), formatOptional(b.Bid), formatOptional(b.Ask),
			formatOptional(b.BidSize), formatOptional(b.AskSize),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write bar: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func parseRecord(record []string, cols map[string]int, defaultSymbol string) (*domain.Bar, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	b := &domain.Bar{Symbol: defaultSymbol}
	if sym := field("symbol"); sym != "" {
		b.Symbol = sym
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return nil, err
	}
	b.TimestampMs = ts

	required := []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open},
		{"high", &b.High},
		{"low", &b.Low},
		{"close", &b.Close},
		{"volume", &b.Volume},
	}
	for _, r := range required {
		v, err := strconv.ParseFloat(field(r.name), 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", r.name, err)
		}
		*r.dst = v
	}

	optional := []struct {
		name string
		dst  **float64
	}{
		{"vwap", &b.VWAP},
		{"bid", &b.Bid},
		{"ask", &b.Ask},
		{"bid_size", &b.BidSize},
		{"ask_size", &b.AskSize},
	}
	for _, o := range optional {
		raw := field(o.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", o.name, err)
		}
		*o.dst = &v
	}

	return b, nil
}

func parseTimestamp(raw string) (int64, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UnixMilli(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
