package types

import (
	"github.com/moznion/go-optional"
)

// TradeEventType tags entries in the append-only trade history.
type TradeEventType string

const (
	TradeEventMarketOrderFilled      TradeEventType = "MARKET_ORDER_FILLED"
	TradeEventPendingOrderPlaced     TradeEventType = "PENDING_ORDER_PLACED"
	TradeEventPendingOrderFilled     TradeEventType = "PENDING_ORDER_FILLED"
	TradeEventPendingOrderFailMargin TradeEventType = "PENDING_ORDER_FAIL_MARGIN"
	TradeEventPositionClosed         TradeEventType = "POSITION_CLOSED"
	TradeEventMarginCallStopOut      TradeEventType = "MARGIN_CALL_STOP_OUT_TRIGGERED"
)

// CloseReason explains why a position left the ledger.
type CloseReason string

const (
	CloseReasonRequested     CloseReason = "requested"
	CloseReasonTakeProfitHit CloseReason = "TAKE_PROFIT_HIT"
	CloseReasonStopLossHit   CloseReason = "STOP_LOSS_HIT"
	CloseReasonMarginCall    CloseReason = "MARGIN_CALL_LIQUIDATION"
)

// TradeEvent is one entry in the broker's trade history. Events are
// append-only; they are the canonical audit trail of the simulation.
type TradeEvent struct {
	EventType TradeEventType `yaml:"event_type" json:"event_type"`
	Timestamp int64          `yaml:"timestamp" json:"timestamp"`
	Symbol    string         `yaml:"symbol" json:"symbol"`
	Side      OrderSide      `yaml:"side" json:"side"`
	OrderType OrderType      `yaml:"order_type" json:"order_type"`
	Volume    float64        `yaml:"volume" json:"volume"`
	// FillPrice is the execution price for fill events and the exit price
	// for close events.
	FillPrice  optional.Option[float64] `yaml:"fill_price" json:"fill_price"`
	Commission optional.Option[float64] `yaml:"commission" json:"commission"`
	// RealizedPnL is set on POSITION_CLOSED events.
	RealizedPnL optional.Option[float64] `yaml:"realized_pnl" json:"realized_pnl"`
	PositionID  optional.Option[string]  `yaml:"position_id" json:"position_id"`
	// OriginalOrderID links a PENDING_ORDER_FILLED event back to the
	// pending order it came from.
	OriginalOrderID optional.Option[string]      `yaml:"original_order_id" json:"original_order_id"`
	Reason          optional.Option[CloseReason] `yaml:"reason_for_close" json:"reason_for_close"`
	Comment         string                       `yaml:"comment" json:"comment"`
}
