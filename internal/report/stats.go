package report

import (
	"os"
	"path/filepath"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/meridianfx/fxbacktest/pkg/errors"
)

// Stats is the summary written by the YAML stats generator.
type Stats struct {
	Title            string    `yaml:"title"`
	GeneratedAt      time.Time `yaml:"generated_at"`
	Days             int       `yaml:"days"`
	CumulativeReturn float64   `yaml:"cumulative_return"`
	MaxDrawdown      float64   `yaml:"max_drawdown"`
	BestDay          float64   `yaml:"best_day"`
	WorstDay         float64   `yaml:"worst_day"`
	UpDays           int       `yaml:"up_days"`
	DownDays         int       `yaml:"down_days"`
}

// YAMLStatsGenerator writes a Stats summary as a YAML file into OutputDir,
// named after the report title.
type YAMLStatsGenerator struct {
	OutputDir string
}

func NewYAMLStatsGenerator(outputDir string) *YAMLStatsGenerator {
	return &YAMLStatsGenerator{OutputDir: outputDir}
}

func (g *YAMLStatsGenerator) Generate(daily []DailyReturn, title string) error {
	stats := ComputeStats(daily, title)

	data, err := yaml.Marshal(&stats)
	if err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to marshal report stats", err)
	}

	if err := os.MkdirAll(g.OutputDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to create report directory", err)
	}

	path := filepath.Join(g.OutputDir, title+"_stats.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write report stats", err)
	}

	return nil
}

// ComputeStats derives the summary figures from the daily return series.
func ComputeStats(daily []DailyReturn, title string) Stats {
	stats := Stats{
		Title:       title,
		GeneratedAt: time.Now().UTC(),
		Days:        len(daily),
	}

	if len(daily) == 0 {
		return stats
	}

	stats.BestDay = daily[0].Return
	stats.WorstDay = daily[0].Return

	// Cumulative return and max drawdown over the compounded curve.
	cumulative := 1.0
	peak := 1.0
	for _, day := range daily {
		cumulative *= 1 + day.Return

		if cumulative > peak {
			peak = cumulative
		}

		if drawdown := cumulative/peak - 1; drawdown < stats.MaxDrawdown {
			stats.MaxDrawdown = drawdown
		}

		if day.Return > stats.BestDay {
			stats.BestDay = day.Return
		}

		if day.Return < stats.WorstDay {
			stats.WorstDay = day.Return
		}

		switch {
		case day.Return > 0:
			stats.UpDays++
		case day.Return < 0:
			stats.DownDays++
		}
	}

	stats.CumulativeReturn = cumulative - 1

	return stats
}
