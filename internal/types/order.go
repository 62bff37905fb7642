package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/meridianfx/fxbacktest/pkg/errors"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

type OrderStatus string

const (
	OrderStatusFilled   OrderStatus = "FILLED"
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusRejected OrderStatus = "REJECTED"
	OrderStatusClosed   OrderStatus = "CLOSED"
	OrderStatusModified OrderStatus = "MODIFIED"
)

type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
	TimeInForceDay TimeInForce = "DAY"
)

// OrderRequest is a request to open a position or place a pending order.
type OrderRequest struct {
	Symbol    string    `yaml:"symbol" json:"symbol" validate:"required"`
	OrderType OrderType `yaml:"order_type" json:"order_type" validate:"required,oneof=MARKET LIMIT STOP"`
	Side      OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	// Volume is the order size in lots.
	Volume float64 `yaml:"volume" json:"volume" validate:"required,gt=0"`
	// Price is the activation price. Required for LIMIT and STOP orders,
	// ignored for MARKET orders.
	Price       optional.Option[float64] `yaml:"price" json:"price"`
	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	TimeInForce TimeInForce              `yaml:"time_in_force" json:"time_in_force"`
	MagicNumber int                      `yaml:"magic_number" json:"magic_number"`
	Comment     string                   `yaml:"comment" json:"comment"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	return nil
}

// OrderResponse is the synchronous result of a ledger operation. Rejections
// are reported through Status and ErrorMessage, never as Go errors.
type OrderResponse struct {
	OrderID      string                   `yaml:"order_id" json:"order_id"`
	Status       OrderStatus              `yaml:"status" json:"status"`
	Symbol       string                   `yaml:"symbol" json:"symbol"`
	Side         OrderSide                `yaml:"side" json:"side"`
	OrderType    OrderType                `yaml:"order_type" json:"order_type"`
	Volume       float64                  `yaml:"volume" json:"volume"`
	Price        optional.Option[float64] `yaml:"price" json:"price"`
	Timestamp    int64                    `yaml:"timestamp" json:"timestamp"`
	ErrorMessage string                   `yaml:"error_message" json:"error_message"`
	// PositionID is set when the operation created or affected a position.
	PositionID optional.Option[string] `yaml:"position_id" json:"position_id"`
}

// PendingOrder is a limit or stop order waiting for its activation price.
type PendingOrder struct {
	OrderID     string                   `yaml:"order_id" json:"order_id"`
	Symbol      string                   `yaml:"symbol" json:"symbol"`
	Side        OrderSide                `yaml:"side" json:"side"`
	OrderType   OrderType                `yaml:"order_type" json:"order_type"`
	Volume      float64                  `yaml:"volume" json:"volume"`
	Price       float64                  `yaml:"price" json:"price"`
	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	PlacedAt    int64                    `yaml:"placed_at" json:"placed_at"`
	MagicNumber int                      `yaml:"magic_number" json:"magic_number"`
	Comment     string                   `yaml:"comment" json:"comment"`
}
