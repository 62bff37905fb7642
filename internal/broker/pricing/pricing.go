// Package pricing derives bid/ask quotes from historical bars and models
// execution slippage for market and stop-triggered fills.
package pricing

import (
	"math/rand"

	"github.com/meridianfx/fxbacktest/internal/broker/symbols"
	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/internal/types"
	"go.uber.org/zap"
)

// DefaultSpreadKey is the spread table entry used when a symbol has no
// explicit configuration.
const DefaultSpreadKey = "default"

// fallbackSpreadPips is used when the table has neither the symbol nor a
// default entry.
const fallbackSpreadPips = 1.0

// Config holds the spread table and the slippage model parameters.
type Config struct {
	// SpreadPips maps symbol to configured spread in pips. The
	// DefaultSpreadKey entry is the fallback for unlisted symbols.
	SpreadPips map[string]float64 `yaml:"spread_pips" json:"spread_pips"`
	// BaseSlippagePips is the fixed component of the slippage model.
	BaseSlippagePips float64 `yaml:"base_slippage_pips" json:"base_slippage_pips"`
	// VolumeSlippageFactorPipsPerMillion scales slippage with order size:
	// pips added per million base-currency units.
	VolumeSlippageFactorPipsPerMillion float64 `yaml:"volume_slippage_factor_pips_per_million" json:"volume_slippage_factor_pips_per_million"`
}

// Engine turns bars into quotes and computes fill adjustments. The random
// source is injected so tests can pin the slippage multiplier.
type Engine struct {
	config Config
	rng    *rand.Rand
	log    *logger.Logger
}

func NewEngine(config Config, rng *rand.Rand, log *logger.Logger) *Engine {
	// Normalize table keys so "eur/usd" and "EURUSD" configure the same entry.
	normalized := make(map[string]float64, len(config.SpreadPips))
	for symbol, pips := range config.SpreadPips {
		if symbol == DefaultSpreadKey {
			normalized[DefaultSpreadKey] = pips

			continue
		}

		normalized[symbols.Normalize(symbol)] = pips
	}

	config.SpreadPips = normalized

	return &Engine{
		config: config,
		rng:    rng,
		log:    log,
	}
}

// SpreadPips looks up the configured spread for a symbol, falling back to
// the "default" entry and finally to 1.0 pip.
func (e *Engine) SpreadPips(symbol string) float64 {
	norm := symbols.Normalize(symbol)
	if pips, ok := e.config.SpreadPips[norm]; ok {
		return pips
	}

	if pips, ok := e.config.SpreadPips[DefaultSpreadKey]; ok {
		return pips
	}

	e.log.Debug("no spread configured for symbol, using fallback",
		zap.String("symbol", norm),
		zap.Float64("fallback_pips", fallbackSpreadPips),
	)

	return fallbackSpreadPips
}

// SpreadInPriceTerms returns the spread for a bar in price units.
// Historical bid/ask carried by the bar take priority over the table.
func (e *Engine) SpreadInPriceTerms(symbol string, bar types.Candlestick) float64 {
	if bar.HasHistoricalQuote() {
		return bar.AskClose.Unwrap() - bar.BidClose.Unwrap()
	}

	spec := symbols.SpecFor(symbol)

	return e.SpreadPips(symbol) * spec.PipSize
}

// Quote derives the current bid/ask from a bar. Historical closes are used
// verbatim when present; otherwise the configured spread is applied
// symmetrically around the bar close. Quotes are rounded to the symbol's
// price precision.
func (e *Engine) Quote(symbol string, bar types.Candlestick) (bid, ask float64) {
	spec := symbols.SpecFor(symbol)

	if bar.HasHistoricalQuote() {
		return bar.BidClose.Unwrap(), bar.AskClose.Unwrap()
	}

	half := e.SpreadInPriceTerms(symbol, bar) / 2

	return spec.RoundPrice(bar.Close - half), spec.RoundPrice(bar.Close + half)
}

// SlippageInPriceTerms computes the slippage for one fill in price units:
// (base + volume-scaled pips) times a uniform random multiplier in [0,1),
// converted through the symbol's pip size. Applies to market and
// stop-triggered fills only; limit fills take none.
func (e *Engine) SlippageInPriceTerms(symbol string, volumeLots float64) float64 {
	spec := symbols.SpecFor(symbol)
	volumeInUnits := volumeLots * spec.ContractSize
	pips := e.config.BaseSlippagePips + volumeInUnits/1_000_000.0*e.config.VolumeSlippageFactorPipsPerMillion
	pips *= e.rng.Float64()

	return pips * spec.PipSize
}

// ApplySlippage shifts a fill price by the given amount in the direction a
// fill on that side moves against the trader: up for buys, down for sells.
func ApplySlippage(side types.OrderSide, price, amount float64) float64 {
	if side == types.OrderSideBuy {
		return price + amount
	}

	return price - amount
}
