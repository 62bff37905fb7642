package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/meridianfx/fxbacktest/internal/backtest"
	"github.com/meridianfx/fxbacktest/internal/datasource"
	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/internal/report"
	"github.com/meridianfx/fxbacktest/internal/types"
)

// backtestAction loads the config and the candle CSVs, runs the engine with
// a built-in hold strategy unless the caller wires a real decision maker,
// and hands the equity curve to the reporter.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	dataGlob := cmd.String("data")
	mainSymbol := cmd.String("symbol")
	title := cmd.String("title")
	outputDir := cmd.String("output")

	newLog := logger.NewLogger
	if cmd.Bool("verbose") {
		newLog = logger.NewDebugLogger
	}

	appLog, err := newLog()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer appLog.Sync()

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	config, err := backtest.ParseConfig(configData)
	if err != nil {
		return err
	}

	files, err := filepath.Glob(dataGlob)
	if err != nil {
		return fmt.Errorf("failed to expand data glob %s: %w", dataGlob, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no data files match %s", dataGlob)
	}

	loader := datasource.NewCSVLoader(appLog)

	// One symbol per file, named by the file's base name: EURUSD.csv -> EURUSD.
	data := make(map[string][]types.Candlestick, len(files))
	for _, file := range files {
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)))

		bars, err := loader.LoadFile(file)
		if err != nil {
			return err
		}

		data[symbol] = bars
	}

	engine, err := backtest.NewEngine(config, mainSymbol, data, backtest.DecisionFunc(holdStrategy), appLog)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(engine.BarCount()), "backtesting")
	engine.SetOnBarCallback(func(barIndex, totalBars int) {
		_ = bar.Set(barIndex + 1)
	})

	result, err := engine.Run()
	if err != nil {
		return err
	}

	samples := make([]report.Sample, 0, len(result.EquityCurve))
	for _, point := range result.EquityCurve {
		samples = append(samples, report.Sample{Timestamp: point.Timestamp, Equity: point.Equity})
	}

	reporter := report.NewReporter(appLog, report.NewYAMLStatsGenerator(outputDir))
	reporter.Run(samples, title)

	fmt.Printf("final balance: %.2f, equity: %.2f, trade events: %d\n",
		result.FinalAccount.Balance, result.FinalAccount.Equity, len(result.TradeHistory))

	return nil
}

// holdStrategy never trades. It keeps the binary useful for data and
// accounting dry runs; real strategies plug in through backtest.DecisionMaker.
func holdStrategy(types.StrategyState) (optional.Option[types.TradeDecision], error) {
	return optional.None[types.TradeDecision](), nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run a simulated forex backtest over historical CSV candles",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Path to the YAML backtest config",
				Value:    "config/backtest.yaml",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of candle CSV files, one symbol per file",
				Value:    "data/*.csv",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Main symbol driving the bar loop",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "title",
				Aliases:  []string{"t"},
				Usage:    "Report title",
				Value:    "backtest",
				Required: false,
			},
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Directory for report artifacts",
				Value:    "reports",
				Required: false,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
