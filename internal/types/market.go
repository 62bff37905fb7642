package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Candlestick is a single OHLCV bar. Bars are immutable once produced by
// the historical data source.
type Candlestick struct {
	// Timestamp is the bar's open time in unix seconds.
	Timestamp int64   `yaml:"timestamp" json:"timestamp"`
	Open      float64 `yaml:"open" json:"open"`
	High      float64 `yaml:"high" json:"high"`
	Low       float64 `yaml:"low" json:"low"`
	Close     float64 `yaml:"close" json:"close"`
	Volume    float64 `yaml:"volume" json:"volume"`
	// BidClose is the historical bid at bar close, when the feed provides it.
	// When present it takes priority over the configured spread table.
	BidClose optional.Option[float64] `yaml:"bid_close" json:"bid_close"`
	// AskClose is the historical ask at bar close.
	AskClose optional.Option[float64] `yaml:"ask_close" json:"ask_close"`
}

// Time returns the bar timestamp as a time.Time in UTC.
func (c Candlestick) Time() time.Time {
	return time.Unix(c.Timestamp, 0).UTC()
}

// HasHistoricalQuote reports whether the bar carries both historical
// bid and ask closes.
func (c Candlestick) HasHistoricalQuote() bool {
	return c.BidClose.IsSome() && c.AskClose.IsSome()
}

// Tick is a derived quote snapshot. Ticks are never stored.
type Tick struct {
	Symbol    string                   `yaml:"symbol" json:"symbol"`
	Timestamp int64                    `yaml:"timestamp" json:"timestamp"`
	Bid       float64                  `yaml:"bid" json:"bid"`
	Ask       float64                  `yaml:"ask" json:"ask"`
	Last      optional.Option[float64] `yaml:"last" json:"last"`
	Volume    optional.Option[float64] `yaml:"volume" json:"volume"`
}
