package matchingengine

import (
	"github.com/rs/zerolog/log"

	"clob/internal/common"
)

// Engine owns the single-symbol OrderBook and forwards trade events to a
// Reporter as they are produced. The core is single-symbol; Engine carries
// the AssetType only as a label for the wire/log layers, not as a second
// dimension of book lookup.
type Engine struct {
	asset common.AssetType
	book  *OrderBook

	reporter Reporter
}

// New constructs an Engine over a fresh, empty book for asset.
func New(asset common.AssetType) *Engine {
	return &Engine{asset: asset, book: NewOrderBook()}
}

// Asset returns the symbol this engine was constructed for.
func (e *Engine) Asset() common.AssetType { return e.asset }

// Book exposes the underlying OrderBook for read-only queries
// (BestBid/BestAsk/DepthAt) from the wire/CLI layer.
func (e *Engine) Book() *OrderBook { return e.book }

// SetReporter installs a Reporter that receives every trade event produced
// by subsequent calls. Push delivery replaces the book's pull buffer: once
// a Reporter is installed the engine drains the buffer after each call, so
// a long-running daemon does not accumulate events nobody pulls.
func (e *Engine) SetReporter(r Reporter) { e.reporter = r }

// flushTrades drains the book's event buffer and pushes it to the
// installed Reporter. Draining rather than forwarding a call's return
// value matters: stop-activation cascades produce fills beyond the ones a
// submit returns to its caller, and those are only in the buffer.
func (e *Engine) flushTrades() {
	if e.reporter == nil {
		return
	}
	for _, t := range e.book.DrainTrades() {
		e.reporter.ReportTrade(t)
	}
}

// PlaceLimit submits a limit order through the book and forwards any
// resulting trades to the installed Reporter.
func (e *Engine) PlaceLimit(id uint64, side common.Side, price, shares int64, tif common.TIF) ([]TradeEvent, error) {
	trades, err := e.book.SubmitLimit(id, side, price, shares, tif)
	e.flushTrades()
	return trades, err
}

// PlaceMarket submits a market order through the book and forwards any
// resulting trades to the installed Reporter.
func (e *Engine) PlaceMarket(side common.Side, shares int64) ([]TradeEvent, int64, error) {
	trades, remaining, err := e.book.SubmitMarket(side, shares)
	e.flushTrades()
	return trades, remaining, err
}

// PlaceStop submits a stop order through the book and forwards any
// resulting trades to the installed Reporter.
func (e *Engine) PlaceStop(id uint64, side common.Side, stopPrice, shares int64, tif common.TIF) ([]TradeEvent, error) {
	trades, err := e.book.SubmitStop(id, side, stopPrice, shares, tif)
	e.flushTrades()
	return trades, err
}

// Cancel cancels a resting order by id.
func (e *Engine) Cancel(id uint64) error {
	return e.book.Cancel(id)
}

// Amend amends a resting order by id, forwarding any resulting trades.
func (e *Engine) Amend(id uint64, newShares, newPrice int64) ([]TradeEvent, error) {
	trades, err := e.book.Amend(id, newShares, newPrice)
	e.flushTrades()
	return trades, err
}

// LogBook emits a structured snapshot of the top of book, for operator
// debugging.
func (e *Engine) LogBook() {
	bid, bidOk := e.book.BestBid()
	ask, askOk := e.book.BestAsk()
	entry := log.Info().Int("asset", int(e.asset))
	if bidOk {
		entry = entry.Int64("best_bid", bid)
	}
	if askOk {
		entry = entry.Int64("best_ask", ask)
	}
	entry.Msg("order book snapshot")
}
