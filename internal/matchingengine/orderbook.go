package matchingengine

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"clob/internal/common"
)

// OrderBook owns the four AVL price trees (bid-limit, ask-limit, bid-stop,
// ask-stop), the order-id index, and the per-tree price-level indexes. All
// public methods run synchronously to completion: by the time one returns,
// the book has reached a stable state with no further crossings or stop
// activations pending.
//
// OrderBook is not safe for concurrent use; the
// embedder serializes calls (the TCP front end in internal/server does
// this with a single command-consuming goroutine).
type OrderBook struct {
	bidLimits *priceTree // descending: highest bid is best
	askLimits *priceTree // ascending: lowest ask is best
	bidStops  *priceTree // ascending: lowest stop-bid trigger is best
	askStops  *priceTree // descending: highest stop-ask trigger is best

	orderByID     map[uint64]*Order
	bidLevels     map[int64]*PriceLevel
	askLevels     map[int64]*PriceLevel
	stopBidLevels map[int64]*PriceLevel
	stopAskLevels map[int64]*PriceLevel

	reporter        *bufferedReporter
	nextSyntheticID uint64
	debugInvariants bool
	log             zerolog.Logger
}

// syntheticMarketIDBase separates internally-minted ids (assigned to bare
// market orders, which have no caller-supplied id but still need one for
// trade-event correlation) from the caller's own id space.
const syntheticMarketIDBase = uint64(1) << 63

// NewOrderBook constructs an empty book.
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bidLimits:       newPriceTree(true),
		askLimits:       newPriceTree(false),
		bidStops:        newPriceTree(false),
		askStops:        newPriceTree(true),
		orderByID:       make(map[uint64]*Order),
		bidLevels:       make(map[int64]*PriceLevel),
		askLevels:       make(map[int64]*PriceLevel),
		stopBidLevels:   make(map[int64]*PriceLevel),
		stopAskLevels:   make(map[int64]*PriceLevel),
		reporter:        newBufferedReporter(),
		nextSyntheticID: syntheticMarketIDBase,
		log:             log.Logger,
	}
}

// SetDebugInvariants toggles the invariant checker that runs after each
// top-level public call. Intended for tests and the cmd/clob -debug flag,
// not for production hot paths.
func (b *OrderBook) SetDebugInvariants(on bool) { b.debugInvariants = on }

// BestBid returns the highest resting bid price, or (0, false) if the bid
// book is empty.
func (b *OrderBook) BestBid() (int64, bool) {
	if lvl := b.bidLimits.Best(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

// BestAsk returns the lowest resting ask price, or (0, false) if the ask
// book is empty.
func (b *OrderBook) BestAsk() (int64, bool) {
	if lvl := b.askLimits.Best(); lvl != nil {
		return lvl.Price, true
	}
	return 0, false
}

// DepthAt returns the (order_count, total_shares) aggregate of the resting
// limit level at price on side, or (0, 0, false) if no such level exists.
func (b *OrderBook) DepthAt(side common.Side, price int64) (int, int64, bool) {
	levels := b.askLevels
	if side == common.Bid {
		levels = b.bidLevels
	}
	lvl, ok := levels[price]
	if !ok {
		return 0, 0, false
	}
	return lvl.OrderCount, lvl.TotalShares, true
}

// limitTreeAndMap returns the limit tree/map pair for side.
func (b *OrderBook) limitTreeAndMap(side common.Side) (*priceTree, map[int64]*PriceLevel) {
	if side == common.Bid {
		return b.bidLimits, b.bidLevels
	}
	return b.askLimits, b.askLevels
}

// stopTreeAndMap returns the stop tree/map pair for side.
func (b *OrderBook) stopTreeAndMap(side common.Side) (*priceTree, map[int64]*PriceLevel) {
	if side == common.Bid {
		return b.bidStops, b.stopBidLevels
	}
	return b.askStops, b.stopAskLevels
}

// levelFor returns the (possibly newly created) level at price on the
// tree/map pair, creating it lazily.
func (b *OrderBook) levelFor(tree *priceTree, levels map[int64]*PriceLevel, price int64, side common.Side) *PriceLevel {
	if lvl, ok := levels[price]; ok {
		return lvl
	}
	lvl := tree.insert(price, side)
	levels[price] = lvl
	return lvl
}

// removeLevelIfEmpty deletes an emptied level from its tree and map.
func (b *OrderBook) removeLevelIfEmpty(tree *priceTree, levels map[int64]*PriceLevel, lvl *PriceLevel) {
	if !lvl.Empty() {
		return
	}
	tree.remove(lvl)
	delete(levels, lvl.Price)
}

// unregisterOrder unlinks order from its resting level (destroying the
// level if it empties) and removes it from the id index, for cancel and
// amend. The matching walk and stop activation remove filled or triggered
// orders from orderByID themselves, in the same step as unlinking them, so
// the map and the FIFO are never released independently of one another.
func (b *OrderBook) unregisterOrder(o *Order) {
	lvl := o.Parent()
	if lvl == nil {
		delete(b.orderByID, o.ID)
		return
	}
	var tree *priceTree
	var levels map[int64]*PriceLevel
	if o.Type == common.StopOrder {
		tree, levels = b.stopTreeAndMap(o.Side)
	} else {
		tree, levels = b.limitTreeAndMap(o.Side)
	}
	lvl.unlink(o)
	b.removeLevelIfEmpty(tree, levels, lvl)
	delete(b.orderByID, o.ID)
}

func (b *OrderBook) nextSynthetic() uint64 {
	id := b.nextSyntheticID
	b.nextSyntheticID++
	return id
}

func (b *OrderBook) assertInvariants(op string) {
	if !b.debugInvariants {
		return
	}
	if err := checkInvariants(b); err != nil {
		b.log.Fatal().Err(err).Str("op", op).Msg("order book invariant violated")
	}
}

// DrainTrades returns and clears the buffered trade events produced by
// calls made since the last drain.
func (b *OrderBook) DrainTrades() []TradeEvent {
	return b.reporter.Drain()
}

func (b *OrderBook) emit(evt TradeEvent) {
	b.reporter.ReportTrade(evt)
}
