// Package broker implements the simulated forex broker: order execution,
// position lifecycle, margin accounting and the trade history audit trail.
//
// The broker is a strict sequential state machine driven bar-by-bar by the
// backtest engine. It is not safe for concurrent use; a live variant must
// serialize the mutating methods behind a single per-account mutex.
package broker

import (
	"math"
	"math/rand"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/meridianfx/fxbacktest/internal/broker/commission"
	"github.com/meridianfx/fxbacktest/internal/broker/pricing"
	"github.com/meridianfx/fxbacktest/internal/broker/symbols"
	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/internal/types"
)

const (
	// DefaultLeverage is the account leverage used when the config leaves it zero.
	DefaultLeverage = 100.0
	// DefaultStopOutLevel is the margin level (percent) at or below which
	// forced liquidation begins.
	DefaultStopOutLevel = 50.0
)

// Config holds the account and execution parameters of the simulation.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0"`
	// Leverage is the account leverage ratio, e.g. 100 for 100:1.
	Leverage float64 `yaml:"leverage" json:"leverage"`
	// StopOutLevel is the margin level percentage that triggers liquidation.
	StopOutLevel float64 `yaml:"stop_out_level" json:"stop_out_level"`
	// CommissionPerLot maps symbol to a flat commission per lot, with a
	// "default" fallback entry.
	CommissionPerLot map[string]float64 `yaml:"commission_per_lot" json:"commission_per_lot"`
	Pricing          pricing.Config     `yaml:"pricing" json:"pricing"`
	AccountCurrency  string             `yaml:"account_currency" json:"account_currency"`
}

func (c *Config) applyDefaults() {
	if c.Leverage == 0 {
		c.Leverage = DefaultLeverage
	}

	if c.StopOutLevel == 0 {
		c.StopOutLevel = DefaultStopOutLevel
	}

	if c.AccountCurrency == "" {
		c.AccountCurrency = "USD"
	}
}

// SimulatedBroker owns the order and position ledger, the account balance
// and the market clock/feed for one simulated account.
type SimulatedBroker struct {
	config     Config
	log        *logger.Logger
	pricing    *pricing.Engine
	commission commission.Schedule

	connected   bool
	currentTime int64
	// latestBars holds the latest known bar per normalized symbol.
	latestBars map[string]types.Candlestick

	balance       float64
	positions     []*types.Position
	pendingOrders []types.PendingOrder
	history       []types.TradeEvent
}

// NewSimulatedBroker builds a broker. The random source feeds the slippage
// model and is injected so runs are reproducible.
func NewSimulatedBroker(config Config, rng *rand.Rand, log *logger.Logger) *SimulatedBroker {
	config.applyDefaults()

	return &SimulatedBroker{
		config:        config,
		log:           log,
		pricing:       pricing.NewEngine(config.Pricing, rng, log),
		commission:    commission.NewPerLotSchedule(config.CommissionPerLot),
		connected:     true,
		currentTime:   0,
		latestBars:    make(map[string]types.Candlestick),
		balance:       config.InitialCapital,
		positions:     nil,
		pendingOrders: nil,
		history:       nil,
	}
}

// Connect marks the broker connected. The simulation never fails to connect.
func (b *SimulatedBroker) Connect() error {
	b.connected = true

	return nil
}

func (b *SimulatedBroker) Disconnect() {
	b.connected = false
}

func (b *SimulatedBroker) IsConnected() bool {
	return b.connected
}

// UpdateCurrentTime sets the authoritative simulation clock. Monotonicity
// is the caller's responsibility.
func (b *SimulatedBroker) UpdateCurrentTime(unixSeconds int64) {
	b.currentTime = unixSeconds
}

// UpdateMarketData replaces the latest-known bar per symbol and immediately
// marks all open positions to market so equity is never stale after a step.
func (b *SimulatedBroker) UpdateMarketData(barsBySymbol map[string]types.Candlestick) {
	for symbol, bar := range barsBySymbol {
		b.latestBars[symbols.Normalize(symbol)] = bar
	}

	b.markToMarket()
}

// markToMarket recomputes CurrentPrice and unrealized ProfitLoss for every
// open position with a current bar. Positions are valued at their close-out
// side: bids for longs, asks for shorts.
func (b *SimulatedBroker) markToMarket() {
	for _, position := range b.positions {
		bar, ok := b.latestBars[symbols.Normalize(position.Symbol)]
		if !ok {
			continue
		}

		bid, ask := b.pricing.Quote(position.Symbol, bar)

		exit := bid
		if position.Side == types.OrderSideSell {
			exit = ask
		}

		position.CurrentPrice = exit
		position.ProfitLoss = unrealizedPnL(position.Side, position.EntryPrice, exit, position.Volume, position.Symbol)
	}
}

func unrealizedPnL(side types.OrderSide, entry, exit, volumeLots float64, symbol string) float64 {
	spec := symbols.SpecFor(symbol)
	diff := exit - entry
	if side == types.OrderSideSell {
		diff = entry - exit
	}

	return diff * volumeLots * spec.ContractSize
}

// GetCurrentPrice derives a Tick from the symbol's latest bar.
func (b *SimulatedBroker) GetCurrentPrice(symbol string) (types.Tick, bool) {
	bar, ok := b.latestBars[symbols.Normalize(symbol)]
	if !ok {
		return types.Tick{}, false
	}

	bid, ask := b.pricing.Quote(symbol, bar)

	return types.Tick{
		Symbol:    symbols.Normalize(symbol),
		Timestamp: b.currentTime,
		Bid:       bid,
		Ask:       ask,
		Last:      optional.Some(bar.Close),
		Volume:    optional.Some(bar.Volume),
	}, true
}

// marginRequired is the margin a fill of the given size locks up.
func (b *SimulatedBroker) marginRequired(symbol string, volumeLots, fillPrice float64) float64 {
	spec := symbols.SpecFor(symbol)

	return volumeLots * spec.ContractSize * fillPrice / b.config.Leverage
}

// marginUsed re-derives total margin from the open positions. It is never
// stored, so it cannot drift from the ledger.
func (b *SimulatedBroker) marginUsed() float64 {
	total := 0.0
	for _, position := range b.positions {
		total += b.marginRequired(position.Symbol, position.Volume, position.EntryPrice)
	}

	return total
}

func (b *SimulatedBroker) equity() float64 {
	equity := b.balance
	for _, position := range b.positions {
		equity += position.ProfitLoss
	}

	return equity
}

// GetAccountInfo derives the account state from the balance and the open
// positions at current prices.
func (b *SimulatedBroker) GetAccountInfo() types.AccountInfo {
	equity := b.equity()
	marginUsed := b.marginUsed()

	marginLevel := math.Inf(1)
	if marginUsed > 0 {
		marginLevel = equity / marginUsed * 100
	}

	return types.AccountInfo{
		AccountID:   "SIM001",
		Balance:     b.balance,
		Equity:      equity,
		MarginUsed:  marginUsed,
		FreeMargin:  equity - marginUsed,
		MarginLevel: marginLevel,
		Currency:    b.config.AccountCurrency,
	}
}

// GetOpenPositions returns copies of the open positions.
func (b *SimulatedBroker) GetOpenPositions() []types.Position {
	out := make([]types.Position, 0, len(b.positions))
	for _, position := range b.positions {
		out = append(out, *position)
	}

	return out
}

// GetPendingOrders returns copies of the pending orders.
func (b *SimulatedBroker) GetPendingOrders() []types.PendingOrder {
	out := make([]types.PendingOrder, 0, len(b.pendingOrders))
	out = append(out, b.pendingOrders...)

	return out
}

// TradeHistory returns the append-only event log.
func (b *SimulatedBroker) TradeHistory() []types.TradeEvent {
	out := make([]types.TradeEvent, 0, len(b.history))
	out = append(out, b.history...)

	return out
}

func (b *SimulatedBroker) appendEvent(event types.TradeEvent) {
	b.history = append(b.history, event)
	b.log.Debug("trade event",
		zap.String("event_type", string(event.EventType)),
		zap.String("symbol", event.Symbol),
		zap.Int64("timestamp", event.Timestamp),
	)
}

func (b *SimulatedBroker) findPosition(positionID string) (int, *types.Position) {
	for i, position := range b.positions {
		if position.PositionID == positionID {
			return i, position
		}
	}

	return -1, nil
}

func (b *SimulatedBroker) removePositionAt(index int) {
	b.positions = append(b.positions[:index], b.positions[index+1:]...)
}
