// Package backtest drives the simulated broker bar-by-bar over pre-loaded
// historical candles and records the equity curve.
package backtest

import (
	"math/rand"
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/broker"
	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/internal/types"
	"github.com/meridianfx/fxbacktest/pkg/errors"
)

// DecisionMaker supplies the trading decision for one bar. Returning None
// means no action for that bar.
type DecisionMaker interface {
	Decide(state types.StrategyState) (optional.Option[types.TradeDecision], error)
}

// DecisionFunc adapts a plain function to the DecisionMaker interface.
type DecisionFunc func(state types.StrategyState) (optional.Option[types.TradeDecision], error)

func (f DecisionFunc) Decide(state types.StrategyState) (optional.Option[types.TradeDecision], error) {
	return f(state)
}

// OnBarCallback reports progress after each completed bar.
type OnBarCallback func(barIndex, totalBars int)

// EquityPoint is one sample of the account equity curve.
type EquityPoint struct {
	Timestamp int64   `yaml:"timestamp" json:"timestamp"`
	Equity    float64 `yaml:"equity" json:"equity"`
}

// Result is what a completed run hands to the reporter.
type Result struct {
	EquityCurve []EquityPoint
	// AccountSnapshots holds the derived account state after each bar,
	// co-indexed with the bars (no pre-run seed entry).
	AccountSnapshots []types.AccountInfo
	FinalAccount     types.AccountInfo
	TradeHistory     []types.TradeEvent
}

// Engine replays historical bars through the simulated broker in a fixed
// per-bar order: clock and feed update, pending order processing, SL/TP
// checks, strategy decision, order submission, margin call check, equity
// snapshot.
type Engine struct {
	config  Config
	log     *logger.Logger
	broker  *broker.SimulatedBroker
	decider DecisionMaker

	mainSymbol string
	bars       []types.Candlestick
	// secondary holds co-indexed bars for additional symbols. A secondary
	// bar is pushed to the broker only when its timestamp matches the main
	// symbol's bar at the same index.
	secondary map[string][]types.Candlestick

	onBar optional.Option[OnBarCallback]
}

// NewEngine builds an engine over pre-loaded candles. It fails fast when the
// main symbol has no data; secondary symbols are best-effort.
func NewEngine(
	config Config,
	mainSymbol string,
	data map[string][]types.Candlestick,
	decider DecisionMaker,
	log *logger.Logger,
) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if decider == nil {
		return nil, errors.New(errors.ErrCodeBacktestNoDecisionFn, "decision maker is required")
	}

	bars, ok := data[mainSymbol]
	if !ok || len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestMainSymbol,
			"no historical data for main symbol %s", mainSymbol)
	}

	bars = clipToWindow(bars, config.StartTime, config.EndTime)
	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeBacktestMainSymbol,
			"no bars for main symbol %s inside the configured time window", mainSymbol)
	}

	secondary := make(map[string][]types.Candlestick)
	for symbol, symbolBars := range data {
		if symbol == mainSymbol {
			continue
		}

		secondary[symbol] = clipToWindow(symbolBars, config.StartTime, config.EndTime)
	}

	return &Engine{
		config:     config,
		log:        log,
		broker:     broker.NewSimulatedBroker(config.Broker, rand.New(rand.NewSource(config.Seed)), log),
		decider:    decider,
		mainSymbol: mainSymbol,
		bars:       bars,
		secondary:  secondary,
		onBar:      optional.None[OnBarCallback](),
	}, nil
}

// SetOnBarCallback registers a progress callback invoked after each bar.
func (e *Engine) SetOnBarCallback(callback OnBarCallback) {
	e.onBar = optional.Some(callback)
}

// Broker exposes the underlying simulated broker, mainly for tests and for
// inspecting ledger state after a run.
func (e *Engine) Broker() *broker.SimulatedBroker {
	return e.broker
}

// BarCount is the number of main-symbol bars the run will replay, after
// clipping to the configured time window.
func (e *Engine) BarCount() int {
	return len(e.bars)
}

func clipToWindow(bars []types.Candlestick, start, end optional.Option[time.Time]) []types.Candlestick {
	sorted := make([]types.Candlestick, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })

	out := sorted[:0]
	for _, bar := range sorted {
		if start.IsSome() && bar.Timestamp < start.Unwrap().Unix() {
			continue
		}

		if end.IsSome() && bar.Timestamp > end.Unwrap().Unix() {
			continue
		}

		out = append(out, bar)
	}

	return out
}

// Run replays every bar and returns the equity curve and the final ledger
// state. The curve carries one pre-run seed point one second before the
// first bar, so a run over n bars yields n+1 samples.
func (e *Engine) Run() (*Result, error) {
	total := len(e.bars)

	curve := make([]EquityPoint, 0, total+1)
	curve = append(curve, EquityPoint{
		Timestamp: e.bars[0].Timestamp - 1,
		Equity:    e.config.Broker.InitialCapital,
	})

	snapshots := make([]types.AccountInfo, 0, total)

	e.log.Info("backtest run started",
		zap.String("main_symbol", e.mainSymbol),
		zap.Int("bars", total),
		zap.Float64("initial_capital", e.config.Broker.InitialCapital),
	)

	for i, bar := range e.bars {
		e.broker.UpdateCurrentTime(bar.Timestamp)
		e.broker.UpdateMarketData(e.barsForStep(i, bar))

		e.broker.ProcessPendingOrders()
		e.broker.CheckForSLTPTriggers()

		if err := e.decideAndSubmit(bar); err != nil {
			return nil, err
		}

		e.broker.CheckForMarginCall()

		account := e.broker.GetAccountInfo()
		snapshots = append(snapshots, account)
		curve = append(curve, EquityPoint{
			Timestamp: bar.Timestamp,
			Equity:    account.Equity,
		})

		if e.onBar.IsSome() {
			e.onBar.Unwrap()(i, total)
		}
	}

	result := &Result{
		EquityCurve:      curve,
		AccountSnapshots: snapshots,
		FinalAccount:     e.broker.GetAccountInfo(),
		TradeHistory:     e.broker.TradeHistory(),
	}

	e.log.Info("backtest run finished",
		zap.Float64("final_equity", result.FinalAccount.Equity),
		zap.Int("trade_events", len(result.TradeHistory)),
	)

	return result, nil
}

// barsForStep assembles the feed update for bar index i: the main symbol's
// bar plus any secondary symbol whose bar at the same index carries the
// same timestamp.
func (e *Engine) barsForStep(i int, mainBar types.Candlestick) map[string]types.Candlestick {
	update := map[string]types.Candlestick{e.mainSymbol: mainBar}

	for symbol, bars := range e.secondary {
		if i >= len(bars) {
			continue
		}

		if bars[i].Timestamp != mainBar.Timestamp {
			continue
		}

		update[symbol] = bars[i]
	}

	return update
}

func (e *Engine) decideAndSubmit(bar types.Candlestick) error {
	state := types.StrategyState{
		Symbol:               e.mainSymbol,
		CurrentSimulatedTime: bar.Time().Format(time.RFC3339),
		CurrentBar:           bar,
		MarketRegime:         types.BacktestRegime,
	}

	decision, err := e.decider.Decide(state)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestRunFailed, "decision maker failed", err)
	}

	if decision.IsNone() {
		return nil
	}

	d := decision.Unwrap()
	if !d.Action.Actionable() {
		return nil
	}

	if d.Symbol != "" && d.Symbol != e.mainSymbol {
		e.log.Warn("decision symbol does not match the run symbol, skipping",
			zap.String("decision_symbol", d.Symbol),
			zap.String("main_symbol", e.mainSymbol),
		)

		return nil
	}

	side := types.OrderSideBuy
	if d.Action == types.DecisionActionExecuteSell {
		side = types.OrderSideSell
	}

	volume := types.DefaultPositionSize
	if d.PositionSize.IsSome() {
		volume = d.PositionSize.Unwrap()
	}

	response := e.broker.PlaceOrder(types.OrderRequest{
		Symbol:     e.mainSymbol,
		OrderType:  types.OrderTypeMarket,
		Side:       side,
		Volume:     volume,
		StopLoss:   d.StopLoss,
		TakeProfit: d.TakeProfit,
		Comment:    d.Rationale,
	})

	if response.Status == types.OrderStatusRejected {
		// Rejections never abort the run; the broker already logged why.
		e.log.Warn("decision order rejected",
			zap.String("symbol", e.mainSymbol),
			zap.String("reason", response.ErrorMessage),
		)
	}

	return nil
}
