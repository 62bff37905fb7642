package types

import (
	"github.com/moznion/go-optional"
)

// Position is an open trade. It is created by a filled market order or a
// triggered pending order, marked to market on every data update, and
// removed from the ledger on close.
type Position struct {
	PositionID string    `yaml:"position_id" json:"position_id"`
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Side       OrderSide `yaml:"side" json:"side"`
	// Volume is the position size in lots.
	Volume     float64 `yaml:"volume" json:"volume"`
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	// CurrentPrice is the last mark-to-market valuation price.
	CurrentPrice float64 `yaml:"current_price" json:"current_price"`
	// ProfitLoss is the unrealized P&L in account currency. It starts at
	// minus the open commission and tracks market moves from the first
	// mark-to-market on.
	ProfitLoss  float64                  `yaml:"profit_loss" json:"profit_loss"`
	StopLoss    optional.Option[float64] `yaml:"stop_loss" json:"stop_loss"`
	TakeProfit  optional.Option[float64] `yaml:"take_profit" json:"take_profit"`
	OpenTime    int64                    `yaml:"open_time" json:"open_time"`
	MagicNumber int                      `yaml:"magic_number" json:"magic_number"`
	Comment     string                   `yaml:"comment" json:"comment"`
}

// AccountInfo is the derived account state. It is recomputed from
// {balance, open positions, current prices} on demand and never stored.
type AccountInfo struct {
	AccountID  string  `yaml:"account_id" json:"account_id"`
	Balance    float64 `yaml:"balance" json:"balance"`
	Equity     float64 `yaml:"equity" json:"equity"`
	MarginUsed float64 `yaml:"margin_used" json:"margin_used"`
	FreeMargin float64 `yaml:"free_margin" json:"free_margin"`
	// MarginLevel is equity/margin_used*100, or +Inf when no margin is in use.
	MarginLevel float64 `yaml:"margin_level" json:"margin_level"`
	Currency    string  `yaml:"currency" json:"currency"`
}
