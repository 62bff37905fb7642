package broker

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/broker/pricing"
	"github.com/meridianfx/fxbacktest/internal/broker/symbols"
	"github.com/meridianfx/fxbacktest/internal/types"
)

// reject builds a REJECTED response without touching any ledger state.
func (b *SimulatedBroker) reject(request types.OrderRequest, message string) types.OrderResponse {
	b.log.Warn("order rejected",
		zap.String("symbol", request.Symbol),
		zap.String("reason", message),
	)

	return types.OrderResponse{
		OrderID:      uuid.New().String(),
		Status:       types.OrderStatusRejected,
		Symbol:       symbols.Normalize(request.Symbol),
		Side:         request.Side,
		OrderType:    request.OrderType,
		Volume:       request.Volume,
		Price:        optional.None[float64](),
		Timestamp:    b.currentTime,
		ErrorMessage: message,
		PositionID:   optional.None[string](),
	}
}

// PlaceOrder validates and executes an order request. Market orders fill
// immediately against the current quote; limit and stop orders join the
// pending set. Rejections are returned in the response, never as errors,
// and leave balance, margin and positions untouched.
func (b *SimulatedBroker) PlaceOrder(request types.OrderRequest) types.OrderResponse {
	if !b.connected {
		return b.reject(request, "broker not connected")
	}

	if err := request.Validate(); err != nil {
		return b.reject(request, err.Error())
	}

	symbol := symbols.Normalize(request.Symbol)

	bar, ok := b.latestBars[symbol]
	if !ok {
		return b.reject(request, fmt.Sprintf("market data not available for %s", symbol))
	}

	switch request.OrderType {
	case types.OrderTypeMarket:
		return b.executeMarketOrder(symbol, request, bar)
	case types.OrderTypeLimit, types.OrderTypeStop:
		return b.placePendingOrder(symbol, request)
	default:
		return b.reject(request, fmt.Sprintf("unsupported order type %s", request.OrderType))
	}
}

func (b *SimulatedBroker) executeMarketOrder(symbol string, request types.OrderRequest, bar types.Candlestick) types.OrderResponse {
	spec := symbols.SpecFor(symbol)
	bid, ask := b.pricing.Quote(symbol, bar)

	base := ask
	if request.Side == types.OrderSideSell {
		base = bid
	}

	slip := b.pricing.SlippageInPriceTerms(symbol, request.Volume)
	fillPrice := spec.RoundPrice(pricing.ApplySlippage(request.Side, base, slip))

	required := b.marginRequired(symbol, request.Volume, fillPrice)

	account := b.GetAccountInfo()
	if account.FreeMargin < required {
		return b.reject(request, fmt.Sprintf(
			"insufficient free margin: required %.2f, available %.2f", required, account.FreeMargin))
	}

	fee := b.commission.Calculate(symbol, request.Volume)
	b.balance -= fee

	position := &types.Position{
		PositionID:   uuid.New().String(),
		Symbol:       symbol,
		Side:         request.Side,
		Volume:       request.Volume,
		EntryPrice:   fillPrice,
		CurrentPrice: fillPrice,
		ProfitLoss:   -fee,
		StopLoss:     request.StopLoss,
		TakeProfit:   request.TakeProfit,
		OpenTime:     b.currentTime,
		MagicNumber:  request.MagicNumber,
		Comment:      request.Comment,
	}
	b.positions = append(b.positions, position)

	orderID := uuid.New().String()
	b.appendEvent(types.TradeEvent{
		EventType:       types.TradeEventMarketOrderFilled,
		Timestamp:       b.currentTime,
		Symbol:          symbol,
		Side:            request.Side,
		OrderType:       types.OrderTypeMarket,
		Volume:          request.Volume,
		FillPrice:       optional.Some(fillPrice),
		Commission:      optional.Some(fee),
		RealizedPnL:     optional.None[float64](),
		PositionID:      optional.Some(position.PositionID),
		OriginalOrderID: optional.Some(orderID),
		Reason:          optional.None[types.CloseReason](),
		Comment:         request.Comment,
	})

	b.log.Info("market order filled",
		zap.String("symbol", symbol),
		zap.String("side", string(request.Side)),
		zap.Float64("volume", request.Volume),
		zap.Float64("fill_price", fillPrice),
		zap.String("position_id", position.PositionID),
	)

	return types.OrderResponse{
		OrderID:      orderID,
		Status:       types.OrderStatusFilled,
		Symbol:       symbol,
		Side:         request.Side,
		OrderType:    types.OrderTypeMarket,
		Volume:       request.Volume,
		Price:        optional.Some(fillPrice),
		Timestamp:    b.currentTime,
		ErrorMessage: "",
		PositionID:   optional.Some(position.PositionID),
	}
}

func (b *SimulatedBroker) placePendingOrder(symbol string, request types.OrderRequest) types.OrderResponse {
	if request.Price.IsNone() {
		return b.reject(request, fmt.Sprintf("price required for %s order", request.OrderType))
	}

	order := types.PendingOrder{
		OrderID:     uuid.New().String(),
		Symbol:      symbol,
		Side:        request.Side,
		OrderType:   request.OrderType,
		Volume:      request.Volume,
		Price:       request.Price.Unwrap(),
		StopLoss:    request.StopLoss,
		TakeProfit:  request.TakeProfit,
		PlacedAt:    b.currentTime,
		MagicNumber: request.MagicNumber,
		Comment:     request.Comment,
	}
	b.pendingOrders = append(b.pendingOrders, order)

	b.appendEvent(types.TradeEvent{
		EventType:       types.TradeEventPendingOrderPlaced,
		Timestamp:       b.currentTime,
		Symbol:          symbol,
		Side:            request.Side,
		OrderType:       request.OrderType,
		Volume:          request.Volume,
		FillPrice:       optional.None[float64](),
		Commission:      optional.None[float64](),
		RealizedPnL:     optional.None[float64](),
		PositionID:      optional.None[string](),
		OriginalOrderID: optional.Some(order.OrderID),
		Reason:          optional.None[types.CloseReason](),
		Comment:         request.Comment,
	})

	return types.OrderResponse{
		OrderID:      order.OrderID,
		Status:       types.OrderStatusPending,
		Symbol:       symbol,
		Side:         request.Side,
		OrderType:    request.OrderType,
		Volume:       request.Volume,
		Price:        optional.Some(order.Price),
		Timestamp:    b.currentTime,
		ErrorMessage: "",
		PositionID:   optional.None[string](),
	}
}

// CloseOrder closes an open position at the current market quote. A
// volume smaller than the position's size closes partially, keeping the
// remainder open at the same entry price.
func (b *SimulatedBroker) CloseOrder(positionID string, volume optional.Option[float64]) types.OrderResponse {
	index, position := b.findPosition(positionID)
	if position == nil {
		return types.OrderResponse{
			OrderID:      uuid.New().String(),
			Status:       types.OrderStatusRejected,
			Timestamp:    b.currentTime,
			ErrorMessage: fmt.Sprintf("position %s not found", positionID),
			PositionID:   optional.None[string](),
		}
	}

	bar, ok := b.latestBars[symbols.Normalize(position.Symbol)]
	if !ok {
		return types.OrderResponse{
			OrderID:      uuid.New().String(),
			Status:       types.OrderStatusRejected,
			Symbol:       position.Symbol,
			Timestamp:    b.currentTime,
			ErrorMessage: fmt.Sprintf("market data not available for %s", position.Symbol),
			PositionID:   optional.Some(positionID),
		}
	}

	closeVolume := position.Volume
	if volume.IsSome() && volume.Unwrap() < position.Volume {
		if volume.Unwrap() <= 0 {
			return types.OrderResponse{
				OrderID:      uuid.New().String(),
				Status:       types.OrderStatusRejected,
				Symbol:       position.Symbol,
				Timestamp:    b.currentTime,
				ErrorMessage: "close volume must be positive",
				PositionID:   optional.Some(positionID),
			}
		}

		closeVolume = volume.Unwrap()
	}

	bid, ask := b.pricing.Quote(position.Symbol, bar)

	exitPrice := bid
	if position.Side == types.OrderSideSell {
		exitPrice = ask
	}

	return b.closePositionAt(index, position, closeVolume, exitPrice, types.CloseReasonRequested)
}

// closePositionAt realizes P&L for closeVolume lots at exitPrice, credits
// the balance, shrinks or removes the position and appends the close event.
func (b *SimulatedBroker) closePositionAt(index int, position *types.Position, closeVolume, exitPrice float64, reason types.CloseReason) types.OrderResponse {
	realized := unrealizedPnL(position.Side, position.EntryPrice, exitPrice, closeVolume, position.Symbol)
	b.balance += realized

	if closeVolume < position.Volume {
		position.Volume -= closeVolume
		position.ProfitLoss = unrealizedPnL(position.Side, position.EntryPrice, position.CurrentPrice, position.Volume, position.Symbol)
	} else {
		b.removePositionAt(index)
	}

	b.appendEvent(types.TradeEvent{
		EventType:       types.TradeEventPositionClosed,
		Timestamp:       b.currentTime,
		Symbol:          position.Symbol,
		Side:            position.Side,
		OrderType:       types.OrderTypeMarket,
		Volume:          closeVolume,
		FillPrice:       optional.Some(exitPrice),
		Commission:      optional.None[float64](),
		RealizedPnL:     optional.Some(realized),
		PositionID:      optional.Some(position.PositionID),
		OriginalOrderID: optional.None[string](),
		Reason:          optional.Some(reason),
		Comment:         position.Comment,
	})

	b.log.Info("position closed",
		zap.String("position_id", position.PositionID),
		zap.String("reason", string(reason)),
		zap.Float64("volume", closeVolume),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("realized_pnl", realized),
	)

	return types.OrderResponse{
		OrderID:      uuid.New().String(),
		Status:       types.OrderStatusClosed,
		Symbol:       position.Symbol,
		Side:         position.Side,
		OrderType:    types.OrderTypeMarket,
		Volume:       closeVolume,
		Price:        optional.Some(exitPrice),
		Timestamp:    b.currentTime,
		ErrorMessage: "",
		PositionID:   optional.Some(position.PositionID),
	}
}

// ModifyOrder updates the SL/TP of an open position or a pending order in
// place. None fields are left untouched.
func (b *SimulatedBroker) ModifyOrder(id string, newStopLoss, newTakeProfit optional.Option[float64]) types.OrderResponse {
	if _, position := b.findPosition(id); position != nil {
		if newStopLoss.IsSome() {
			position.StopLoss = newStopLoss
		}

		if newTakeProfit.IsSome() {
			position.TakeProfit = newTakeProfit
		}

		return types.OrderResponse{
			OrderID:    id,
			Status:     types.OrderStatusModified,
			Symbol:     position.Symbol,
			Side:       position.Side,
			Volume:     position.Volume,
			Timestamp:  b.currentTime,
			PositionID: optional.Some(position.PositionID),
		}
	}

	for i := range b.pendingOrders {
		if b.pendingOrders[i].OrderID != id {
			continue
		}

		if newStopLoss.IsSome() {
			b.pendingOrders[i].StopLoss = newStopLoss
		}

		if newTakeProfit.IsSome() {
			b.pendingOrders[i].TakeProfit = newTakeProfit
		}

		return types.OrderResponse{
			OrderID:    id,
			Status:     types.OrderStatusModified,
			Symbol:     b.pendingOrders[i].Symbol,
			Side:       b.pendingOrders[i].Side,
			OrderType:  b.pendingOrders[i].OrderType,
			Volume:     b.pendingOrders[i].Volume,
			Timestamp:  b.currentTime,
			PositionID: optional.None[string](),
		}
	}

	return types.OrderResponse{
		OrderID:      id,
		Status:       types.OrderStatusRejected,
		Timestamp:    b.currentTime,
		ErrorMessage: fmt.Sprintf("no open position or pending order with id %s", id),
		PositionID:   optional.None[string](),
	}
}
