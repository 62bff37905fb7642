package types

import (
	"github.com/moznion/go-optional"
)

// DecisionAction is the action string returned by the decision collaborator.
// Only EXECUTE_BUY and EXECUTE_SELL are actionable; anything else is a
// no-op for that bar.
type DecisionAction string

const (
	DecisionActionExecuteBuy  DecisionAction = "EXECUTE_BUY"
	DecisionActionExecuteSell DecisionAction = "EXECUTE_SELL"
)

// Actionable reports whether the action should result in an order.
func (a DecisionAction) Actionable() bool {
	return a == DecisionActionExecuteBuy || a == DecisionActionExecuteSell
}

// BacktestRegime is the fixed market regime tag carried by every snapshot
// produced during a backtest run.
const BacktestRegime = "BacktestRegime"

// StrategyState is the per-bar snapshot handed to the decision collaborator.
type StrategyState struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// CurrentSimulatedTime is the bar time in ISO-8601.
	CurrentSimulatedTime string      `yaml:"current_simulated_time" json:"current_simulated_time"`
	CurrentBar           Candlestick `yaml:"current_bar" json:"current_bar"`
	MarketRegime         string      `yaml:"market_regime" json:"market_regime"`
}

// TradeDecision is the optional decision record returned by the
// collaborator for one bar.
type TradeDecision struct {
	Symbol string         `yaml:"symbol" json:"symbol"`
	Action DecisionAction `yaml:"action" json:"action"`
	// PositionSize is the order volume in lots. Defaults to 0.01 when absent.
	PositionSize optional.Option[float64] `yaml:"position_size" json:"position_size"`
	StopLoss     optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit   optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	// EntryPrice is ignored for market orders but recorded for audit.
	EntryPrice optional.Option[float64] `yaml:"entry_price" json:"entry_price"`
	Rationale  string                   `yaml:"rationale" json:"rationale"`
}

// DefaultPositionSize is used when a decision omits position_size.
const DefaultPositionSize = 0.01
