// Package symbols holds the per-symbol pricing policy: price precision,
// point size, pip size and contract size. The table is a hard-coded
// classification keyed off the symbol name, not auto-detected from price
// magnitude.
package symbols

import (
	"math"
	"strings"
)

// Spec describes how prices and pips work for one symbol class.
type Spec struct {
	// PricePrecision is the number of decimals quotes are rounded to.
	PricePrecision int
	// PointSize is the smallest representable price increment.
	PointSize float64
	// PipSize is the conventional increment used for spread, slippage and
	// P&L sizing.
	PipSize float64
	// ContractSize is the number of base-currency units in 1.0 lot.
	ContractSize float64
}

const defaultContractSize = 100_000.0

// SpecFor classifies a symbol and returns its pricing spec. Classification
// uses normalized substring matching: JPY-quoted pairs, metals (XAU/GOLD),
// and a 5-decimal default for everything else. The lookup always succeeds.
func SpecFor(symbol string) Spec {
	s := Normalize(symbol)

	switch {
	case strings.Contains(s, "JPY"):
		return Spec{PricePrecision: 3, PointSize: 0.001, PipSize: 0.01, ContractSize: defaultContractSize}
	case strings.Contains(s, "XAU"), strings.Contains(s, "GOLD"):
		return Spec{PricePrecision: 2, PointSize: 0.01, PipSize: 0.01, ContractSize: defaultContractSize}
	default:
		return Spec{PricePrecision: 5, PointSize: 0.00001, PipSize: 0.0001, ContractSize: defaultContractSize}
	}
}

// Normalize upper-cases a symbol and strips separators so "eur/usd" and
// "EURUSD" hit the same table entries.
func Normalize(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")

	return s
}

// RoundPrice rounds a price to the spec's precision.
func (s Spec) RoundPrice(price float64) float64 {
	factor := math.Pow(10, float64(s.PricePrecision))

	return math.Round(price*factor) / factor
}
