// Package commission computes per-fill commission charges.
package commission

import (
	"github.com/meridianfx/fxbacktest/internal/broker/symbols"
)

// Schedule calculates the commission for a fill and returns the charge in
// account currency.
type Schedule interface {
	// Calculate returns the commission for a fill of the given volume in lots.
	Calculate(symbol string, volumeLots float64) float64
}

// DefaultRateKey is the per-lot table entry used for unlisted symbols.
const DefaultRateKey = "default"

// PerLotSchedule charges a flat rate per lot, keyed by symbol with a
// "default" fallback. Symbols with no entry and no default trade free.
type PerLotSchedule struct {
	ratesPerLot map[string]float64
}

func NewPerLotSchedule(ratesPerLot map[string]float64) *PerLotSchedule {
	normalized := make(map[string]float64, len(ratesPerLot))

	for symbol, rate := range ratesPerLot {
		if symbol == DefaultRateKey {
			normalized[DefaultRateKey] = rate

			continue
		}

		normalized[symbols.Normalize(symbol)] = rate
	}

	return &PerLotSchedule{ratesPerLot: normalized}
}

// Calculate implements Schedule.
func (s *PerLotSchedule) Calculate(symbol string, volumeLots float64) float64 {
	rate, ok := s.ratesPerLot[symbols.Normalize(symbol)]
	if !ok {
		rate = s.ratesPerLot[DefaultRateKey]
	}

	return rate * volumeLots
}

// ZeroSchedule charges nothing. Used by tests and spread-only setups.
type ZeroSchedule struct{}

func NewZeroSchedule() *ZeroSchedule {
	return &ZeroSchedule{}
}

// Calculate implements Schedule.
func (s *ZeroSchedule) Calculate(symbol string, volumeLots float64) float64 {
	return 0
}
