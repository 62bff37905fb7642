package broker

import (
	"math"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/broker/pricing"
	"github.com/meridianfx/fxbacktest/internal/broker/symbols"
	"github.com/meridianfx/fxbacktest/internal/types"
)

// ProcessPendingOrders evaluates every pending order against its symbol's
// current bar and fills the triggered ones. Limit fills execute at the
// better of the activation price and the bar open; stop fills execute at
// the worse of the two and additionally receive slippage. A triggered
// order whose margin no longer fits is dropped and logged, charging
// nothing.
func (b *SimulatedBroker) ProcessPendingOrders() {
	var remaining []types.PendingOrder

	for _, order := range b.pendingOrders {
		bar, ok := b.latestBars[order.Symbol]
		if !ok {
			remaining = append(remaining, order)

			continue
		}

		triggered, fillPrice := evaluateTrigger(order, bar)
		if !triggered {
			remaining = append(remaining, order)

			continue
		}

		if order.OrderType == types.OrderTypeStop {
			slip := b.pricing.SlippageInPriceTerms(order.Symbol, order.Volume)
			fillPrice = pricing.ApplySlippage(order.Side, fillPrice, slip)
		}

		fillPrice = symbols.SpecFor(order.Symbol).RoundPrice(fillPrice)
		b.fillPendingOrder(order, fillPrice)
	}

	b.pendingOrders = remaining
}

// evaluateTrigger applies the bar's open/high/low to the activation price.
func evaluateTrigger(order types.PendingOrder, bar types.Candlestick) (bool, float64) {
	switch {
	case order.OrderType == types.OrderTypeLimit && order.Side == types.OrderSideBuy:
		if bar.Low <= order.Price {
			return true, math.Min(order.Price, bar.Open)
		}
	case order.OrderType == types.OrderTypeLimit && order.Side == types.OrderSideSell:
		if bar.High >= order.Price {
			return true, math.Max(order.Price, bar.Open)
		}
	case order.OrderType == types.OrderTypeStop && order.Side == types.OrderSideBuy:
		if bar.High >= order.Price {
			return true, math.Max(order.Price, bar.Open)
		}
	case order.OrderType == types.OrderTypeStop && order.Side == types.OrderSideSell:
		if bar.Low <= order.Price {
			return true, math.Min(order.Price, bar.Open)
		}
	}

	return false, 0
}

func (b *SimulatedBroker) fillPendingOrder(order types.PendingOrder, fillPrice float64) {
	required := b.marginRequired(order.Symbol, order.Volume, fillPrice)

	account := b.GetAccountInfo()
	if account.FreeMargin < required {
		b.appendEvent(types.TradeEvent{
			EventType:       types.TradeEventPendingOrderFailMargin,
			Timestamp:       b.currentTime,
			Symbol:          order.Symbol,
			Side:            order.Side,
			OrderType:       order.OrderType,
			Volume:          order.Volume,
			FillPrice:       optional.None[float64](),
			Commission:      optional.None[float64](),
			RealizedPnL:     optional.None[float64](),
			PositionID:      optional.None[string](),
			OriginalOrderID: optional.Some(order.OrderID),
			Reason:          optional.None[types.CloseReason](),
			Comment:         order.Comment,
		})

		b.log.Warn("pending order dropped on margin re-check",
			zap.String("order_id", order.OrderID),
			zap.Float64("required_margin", required),
			zap.Float64("free_margin", account.FreeMargin),
		)

		return
	}

	fee := b.commission.Calculate(order.Symbol, order.Volume)
	b.balance -= fee

	position := &types.Position{
		PositionID:   uuid.New().String(),
		Symbol:       order.Symbol,
		Side:         order.Side,
		Volume:       order.Volume,
		EntryPrice:   fillPrice,
		CurrentPrice: fillPrice,
		ProfitLoss:   -fee,
		StopLoss:     order.StopLoss,
		TakeProfit:   order.TakeProfit,
		OpenTime:     b.currentTime,
		MagicNumber:  order.MagicNumber,
		Comment:      order.Comment,
	}
	b.positions = append(b.positions, position)

	b.appendEvent(types.TradeEvent{
		EventType:       types.TradeEventPendingOrderFilled,
		Timestamp:       b.currentTime,
		Symbol:          order.Symbol,
		Side:            order.Side,
		OrderType:       order.OrderType,
		Volume:          order.Volume,
		FillPrice:       optional.Some(fillPrice),
		Commission:      optional.Some(fee),
		RealizedPnL:     optional.None[float64](),
		PositionID:      optional.Some(position.PositionID),
		OriginalOrderID: optional.Some(order.OrderID),
		Reason:          optional.None[types.CloseReason](),
		Comment:         order.Comment,
	})

	b.log.Info("pending order filled",
		zap.String("order_id", order.OrderID),
		zap.String("position_id", position.PositionID),
		zap.Float64("fill_price", fillPrice),
	)
}

// CheckForSLTPTriggers closes positions whose stop-loss or take-profit
// level was touched by the current bar. Stop-loss wins when both levels
// fall inside the same bar. Exits execute at the exact trigger price with
// no spread or slippage. Already-closed positions are untouched, so a
// second call in the same bar is a no-op.
func (b *SimulatedBroker) CheckForSLTPTriggers() {
	// Snapshot ids up front: closing mutates the position slice.
	ids := make([]string, 0, len(b.positions))
	for _, position := range b.positions {
		ids = append(ids, position.PositionID)
	}

	for _, id := range ids {
		index, position := b.findPosition(id)
		if position == nil {
			continue
		}

		bar, ok := b.latestBars[position.Symbol]
		if !ok {
			continue
		}

		triggered, exitPrice, reason := evaluateSLTP(position, bar)
		if !triggered {
			continue
		}

		b.closePositionAt(index, position, position.Volume, exitPrice, reason)
	}
}

func evaluateSLTP(position *types.Position, bar types.Candlestick) (bool, float64, types.CloseReason) {
	if position.Side == types.OrderSideBuy {
		if position.StopLoss.IsSome() && bar.Low <= position.StopLoss.Unwrap() {
			return true, position.StopLoss.Unwrap(), types.CloseReasonStopLossHit
		}

		if position.TakeProfit.IsSome() && bar.High >= position.TakeProfit.Unwrap() {
			return true, position.TakeProfit.Unwrap(), types.CloseReasonTakeProfitHit
		}

		return false, 0, ""
	}

	if position.StopLoss.IsSome() && bar.High >= position.StopLoss.Unwrap() {
		return true, position.StopLoss.Unwrap(), types.CloseReasonStopLossHit
	}

	if position.TakeProfit.IsSome() && bar.Low <= position.TakeProfit.Unwrap() {
		return true, position.TakeProfit.Unwrap(), types.CloseReasonTakeProfitHit
	}

	return false, 0, ""
}

// CheckForMarginCall liquidates positions when the margin level falls to
// or below the configured stop-out threshold. Liquidation is deterministic:
// the position with the largest unrealized loss goes first, repeating until
// the margin level recovers above the stop-out or no positions remain.
func (b *SimulatedBroker) CheckForMarginCall() {
	account := b.GetAccountInfo()
	if account.MarginUsed <= 0 || account.MarginLevel > b.config.StopOutLevel {
		return
	}

	b.appendEvent(types.TradeEvent{
		EventType:       types.TradeEventMarginCallStopOut,
		Timestamp:       b.currentTime,
		Symbol:          "",
		Side:            "",
		OrderType:       "",
		Volume:          0,
		FillPrice:       optional.None[float64](),
		Commission:      optional.None[float64](),
		RealizedPnL:     optional.None[float64](),
		PositionID:      optional.None[string](),
		OriginalOrderID: optional.None[string](),
		Reason:          optional.None[types.CloseReason](),
		Comment:         "",
	})

	b.log.Warn("margin call stop-out triggered",
		zap.Float64("margin_level", account.MarginLevel),
		zap.Float64("stop_out_level", b.config.StopOutLevel),
	)

	for len(b.positions) > 0 {
		account = b.GetAccountInfo()
		if account.MarginUsed <= 0 || account.MarginLevel > b.config.StopOutLevel {
			return
		}

		index := b.worstPositionIndex()
		position := b.positions[index]

		bar, ok := b.latestBars[position.Symbol]
		if !ok {
			// No quote to liquidate against. The remaining positions on
			// other symbols are tried on the next call.
			return
		}

		bid, ask := b.pricing.Quote(position.Symbol, bar)

		exitPrice := bid
		if position.Side == types.OrderSideSell {
			exitPrice = ask
		}

		b.closePositionAt(index, position, position.Volume, exitPrice, types.CloseReasonMarginCall)
	}
}

// worstPositionIndex picks the position with the largest unrealized loss,
// breaking ties by earliest open time then position id.
func (b *SimulatedBroker) worstPositionIndex() int {
	worst := 0
	for i := 1; i < len(b.positions); i++ {
		current, candidate := b.positions[worst], b.positions[i]

		switch {
		case candidate.ProfitLoss < current.ProfitLoss:
			worst = i
		case candidate.ProfitLoss == current.ProfitLoss && candidate.OpenTime < current.OpenTime:
			worst = i
		case candidate.ProfitLoss == current.ProfitLoss && candidate.OpenTime == current.OpenTime &&
			candidate.PositionID < current.PositionID:
			worst = i
		}
	}

	return worst
}
