// Package datasource loads historical candles from CSV files and applies
// the data quality rules the backtest depends on.
package datasource

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/internal/types"
	"github.com/meridianfx/fxbacktest/pkg/errors"
)

// CSVLoader reads candle files with a header row. Recognized columns:
// timestamp (unix seconds or RFC3339), open, high, low, close, volume and
// the optional bid_close/ask_close historical quote columns. Unknown
// columns are ignored.
type CSVLoader struct {
	log *logger.Logger
}

func NewCSVLoader(log *logger.Logger) *CSVLoader {
	return &CSVLoader{log: log}
}

// LoadFile reads one CSV file into candles.
func (l *CSVLoader) LoadFile(path string) ([]types.Candlestick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to open data file %s", path)
	}
	defer file.Close()

	bars, err := l.Load(file)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to load data file %s", path)
	}

	return bars, nil
}

// Load reads candles from a CSV stream. Bars with non-positive OHLC values
// are rejected and counted in a single warning; bars whose historical bid
// exceeds the ask are kept but warned about individually.
func (l *CSVLoader) Load(r io.Reader) ([]types.Candlestick, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataParseFailed, "failed to read CSV header", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := columns[required]; !ok {
			return nil, errors.Newf(errors.ErrCodeDataParseFailed, "CSV is missing required column %q", required)
		}
	}

	var bars []types.Candlestick

	rejected := 0
	line := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "failed to read CSV record at line %d", line+1)
		}
		line++

		bar, err := parseBar(record, columns)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeBadHistoricalBar, err, "bad bar at line %d", line)
		}

		if bar.Open <= 0 || bar.High <= 0 || bar.Low <= 0 || bar.Close <= 0 {
			rejected++

			continue
		}

		if bar.HasHistoricalQuote() && bar.BidClose.Unwrap() > bar.AskClose.Unwrap() {
			l.log.Warn("historical bid above ask, keeping bar",
				zap.Int64("timestamp", bar.Timestamp),
				zap.Float64("bid_close", bar.BidClose.Unwrap()),
				zap.Float64("ask_close", bar.AskClose.Unwrap()),
			)
		}

		bars = append(bars, bar)
	}

	if rejected > 0 {
		l.log.Warn("rejected bars with non-positive OHLC values",
			zap.Int("rejected", rejected),
			zap.Int("kept", len(bars)),
		)
	}

	if len(bars) == 0 {
		return nil, errors.New(errors.ErrCodeHistoricalDataEmpty, "no usable bars in CSV data")
	}

	return bars, nil
}

func parseBar(record []string, columns map[string]int) (types.Candlestick, error) {
	field := func(name string) (string, bool) {
		index, ok := columns[name]
		if !ok || index >= len(record) {
			return "", false
		}

		return strings.TrimSpace(record[index]), true
	}

	timestampRaw, _ := field("timestamp")
	timestamp, err := parseTimestamp(timestampRaw)
	if err != nil {
		return types.Candlestick{}, err
	}

	bar := types.Candlestick{Timestamp: timestamp}

	for _, column := range []struct {
		name string
		dest *float64
	}{
		{"open", &bar.Open},
		{"high", &bar.High},
		{"low", &bar.Low},
		{"close", &bar.Close},
	} {
		raw, _ := field(column.name)

		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candlestick{}, errors.Newf(errors.ErrCodeBadHistoricalBar, "invalid %s value %q", column.name, raw)
		}

		*column.dest = value
	}

	if raw, ok := field("volume"); ok && raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candlestick{}, errors.Newf(errors.ErrCodeBadHistoricalBar, "invalid volume value %q", raw)
		}

		bar.Volume = value
	}

	if raw, ok := field("bid_close"); ok && raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candlestick{}, errors.Newf(errors.ErrCodeBadHistoricalBar, "invalid bid_close value %q", raw)
		}

		bar.BidClose = optional.Some(value)
	}

	if raw, ok := field("ask_close"); ok && raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Candlestick{}, errors.Newf(errors.ErrCodeBadHistoricalBar, "invalid ask_close value %q", raw)
		}

		bar.AskClose = optional.Some(value)
	}

	return bar, nil
}

func parseTimestamp(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New(errors.ErrCodeBadHistoricalBar, "empty timestamp")
	}

	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return seconds, nil
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Unix(), nil
		}
	}

	return 0, errors.Newf(errors.ErrCodeBadHistoricalBar, "unrecognized timestamp %q", raw)
}
