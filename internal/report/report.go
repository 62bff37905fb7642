// Package report turns an equity curve into daily percent-change returns
// and feeds them to pluggable report generators.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/logger"
)

// Sample is one equity observation at a point in time.
type Sample struct {
	Timestamp int64   `yaml:"timestamp" json:"timestamp"`
	Equity    float64 `yaml:"equity" json:"equity"`
}

// DailyReturn is the summed return of one UTC calendar day, as a decimal
// fraction (0.01 means one percent).
type DailyReturn struct {
	Date   time.Time `yaml:"date" json:"date"`
	Return float64   `yaml:"return" json:"return"`
}

// Generator renders one report artifact from the daily return series.
// Implementations must not mutate the slice.
type Generator interface {
	Generate(daily []DailyReturn, title string) error
}

// Reporter owns the return pipeline and a set of generators. Generator
// failures are logged and skipped; reporting never fails a finished run.
type Reporter struct {
	log        *logger.Logger
	generators []Generator
}

func NewReporter(log *logger.Logger, generators ...Generator) *Reporter {
	return &Reporter{
		log:        log,
		generators: generators,
	}
}

// Run computes daily returns from the equity samples and hands them to every
// generator. It aborts quietly, with a warning, when the series carries no
// signal: no samples, no computable returns or all-zero returns.
func (r *Reporter) Run(samples []Sample, title string) {
	daily := DailyReturns(samples)

	if len(daily) == 0 {
		r.log.Warn("no daily returns to report on, skipping report generation",
			zap.String("title", title),
			zap.Int("samples", len(samples)),
		)

		return
	}

	if allZeroOrNaN(daily) {
		r.log.Warn("daily returns are all zero, skipping report generation",
			zap.String("title", title),
		)

		return
	}

	for _, generator := range r.generators {
		if err := generator.Generate(daily, title); err != nil {
			r.log.Error("report generator failed",
				zap.String("title", title),
				zap.Error(err),
			)
		}
	}
}

// DailyReturns converts equity samples into per-day summed percent-change
// returns. Samples are sorted by timestamp; duplicate timestamps keep the
// last observation. Returns from samples sharing a UTC calendar day are
// summed into one value for that day, and calendar days between the first
// and last observed day with no samples carry a zero return.
func DailyReturns(samples []Sample) []DailyReturn {
	deduped := dedupeSorted(samples)
	if len(deduped) < 2 {
		return nil
	}

	perDay := make(map[time.Time]decimal.Decimal)
	for i := 1; i < len(deduped); i++ {
		previous := deduped[i-1].Equity
		if previous == 0 || math.IsNaN(previous) || math.IsNaN(deduped[i].Equity) {
			continue
		}

		change := decimal.NewFromFloat(deduped[i].Equity).
			Sub(decimal.NewFromFloat(previous)).
			Div(decimal.NewFromFloat(previous))

		day := time.Unix(deduped[i].Timestamp, 0).UTC().Truncate(24 * time.Hour)
		perDay[day] = perDay[day].Add(change)
	}

	if len(perDay) == 0 {
		return nil
	}

	days := make([]time.Time, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	first, last := days[0], days[len(days)-1]

	var out []DailyReturn
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		value, _ := perDay[day].Float64()
		out = append(out, DailyReturn{Date: day, Return: value})
	}

	return out
}

// dedupeSorted sorts samples by timestamp and keeps the last observation of
// each timestamp. The sort is stable so "last" means last in input order.
func dedupeSorted(samples []Sample) []Sample {
	sorted := make([]Sample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := make([]Sample, 0, len(sorted))
	for _, sample := range sorted {
		if n := len(out); n > 0 && out[n-1].Timestamp == sample.Timestamp {
			out[n-1] = sample

			continue
		}

		out = append(out, sample)
	}

	return out
}

func allZeroOrNaN(daily []DailyReturn) bool {
	for _, day := range daily {
		if day.Return != 0 && !math.IsNaN(day.Return) {
			return false
		}
	}

	return true
}
