package matchingengine

import (
	"fmt"
	"time"

	"clob/internal/common"
)

// walkOpposite is the market walk: it consumes
// liquidity from the book on the side opposite aggressorSide, in
// price-time priority, until shares is exhausted, the opposite book empties,
// or (when limitPrice is non-nil) the opposite best no longer crosses
// limitPrice. It is used both for bare market orders (limitPrice == nil)
// and for a limit order's aggressive phase (limitPrice == the order's
// price).
//
// takerID is the id attributed to the taker side of every trade event
// produced; it need not be a resting order (bare market orders mint a
// synthetic id for this purpose only).
func (b *OrderBook) walkOpposite(takerID uint64, aggressorSide common.Side, shares int64, limitPrice *int64) ([]TradeEvent, int64) {
	tree, levels := b.limitTreeAndMap(oppositeSide(aggressorSide))
	var trades []TradeEvent

	for shares > 0 {
		edge := tree.Best()
		if edge == nil {
			break
		}
		if limitPrice != nil && !crosses(aggressorSide, *limitPrice, edge.Price) {
			break
		}

		head := edge.Head()
		traded := min(head.RemainingShares, shares)
		head.execute(traded)
		shares -= traded

		trades = append(trades, TradeEvent{
			MakerOrderID: head.ID,
			TakerOrderID: takerID,
			Price:        edge.Price,
			Shares:       traded,
			Timestamp:    time.Now(),
		})
		b.emit(trades[len(trades)-1])

		if head.RemainingShares == 0 {
			edge.unlink(head)
			delete(b.orderByID, head.ID)
			b.removeLevelIfEmpty(tree, levels, edge)
		}
	}
	return trades, shares
}

// crosses reports whether the opposite book's best price crosses a limit
// order resting/attempting to trade at limitPrice:
// a bid crosses when the lowest ask is at or below the bid's price; an ask
// crosses when the highest bid is at or above the ask's price.
func crosses(aggressorSide common.Side, limitPrice, oppositeBestPrice int64) bool {
	if aggressorSide == common.Bid {
		return oppositeBestPrice <= limitPrice
	}
	return oppositeBestPrice >= limitPrice
}

func oppositeSide(side common.Side) common.Side {
	if side == common.Bid {
		return common.Ask
	}
	return common.Bid
}

// SubmitLimit submits a limit order: an aggressive phase against the
// opposite book while prices cross, then any residual rests at price.
// Pre: id not present; shares > 0; price > 0.
func (b *OrderBook) SubmitLimit(id uint64, side common.Side, price, shares int64, tif common.TIF) ([]TradeEvent, error) {
	if _, exists := b.orderByID[id]; exists {
		return nil, fmt.Errorf("%w: id %d", ErrDuplicateOrder, id)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, shares)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %d", ErrInvalidArgument, price)
	}

	trades, remaining := b.walkOpposite(id, side, shares, &price)

	if remaining > 0 {
		order, err := NewOrder(id, side, common.LimitOrder, tif, price, remaining)
		if err != nil {
			return trades, err
		}
		tree, levels := b.limitTreeAndMap(side)
		lvl := b.levelFor(tree, levels, price, side)
		lvl.append(order)
		b.orderByID[id] = order
	}

	b.settleStops(oppositeSide(side))
	b.assertInvariants("submit_limit")
	return trades, nil
}

// SubmitMarket submits a market order, returning any unfilled remainder
// once the opposite book is exhausted. Pre: shares > 0.
func (b *OrderBook) SubmitMarket(side common.Side, shares int64) ([]TradeEvent, int64, error) {
	if shares <= 0 {
		return nil, 0, fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, shares)
	}

	takerID := b.nextSynthetic()
	trades, remaining := b.walkOpposite(takerID, side, shares, nil)

	b.settleStops(common.Bid)
	b.assertInvariants("submit_market")
	return trades, remaining, nil
}

// SubmitStop submits a stop order. Pre: id not present; shares > 0.
// Stops are stop-market on trigger: if already triggered, the shares
// execute as a market order immediately; any residual rests as a limit
// order at the original stop price.
func (b *OrderBook) SubmitStop(id uint64, side common.Side, stopPrice, shares int64, tif common.TIF) ([]TradeEvent, error) {
	if _, exists := b.orderByID[id]; exists {
		return nil, fmt.Errorf("%w: id %d", ErrDuplicateOrder, id)
	}
	if shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, shares)
	}
	if stopPrice <= 0 {
		return nil, fmt.Errorf("%w: stop price must be positive, got %d", ErrInvalidArgument, stopPrice)
	}

	if b.stopTriggered(side, stopPrice) {
		order, err := NewOrder(id, side, common.StopOrder, tif, stopPrice, shares)
		if err != nil {
			return nil, err
		}
		trades := b.triggerStopOrder(order)
		b.settleStops(oppositeSide(side))
		b.assertInvariants("submit_stop")
		return trades, nil
	}

	order, err := NewOrder(id, side, common.StopOrder, tif, stopPrice, shares)
	if err != nil {
		return nil, err
	}
	tree, levels := b.stopTreeAndMap(side)
	lvl := b.levelFor(tree, levels, stopPrice, side)
	lvl.append(order)
	b.orderByID[id] = order
	b.assertInvariants("submit_stop")
	return nil, nil
}

// stopTriggered reports whether a stop order on side at stopPrice would
// fire immediately given the current opposite best: a bid stop fires when
// the lowest ask has fallen to or below its trigger; an ask stop fires
// when the highest bid has risen to or above its trigger.
func (b *OrderBook) stopTriggered(side common.Side, stopPrice int64) bool {
	tree, _ := b.limitTreeAndMap(oppositeSide(side))
	edge := tree.Best()
	if edge == nil {
		return false
	}
	if side == common.Bid {
		return edge.Price <= stopPrice
	}
	return edge.Price >= stopPrice
}

// triggerStopOrder runs order (not yet registered anywhere) as a market
// order for its full remaining quantity, then — if any quantity remains,
// which only happens once the opposite book has been fully exhausted —
// rests it as a limit order at its original stop price, converting its
// type from Stop to Limit.
func (b *OrderBook) triggerStopOrder(order *Order) []TradeEvent {
	trades, remaining := b.walkOpposite(order.ID, order.Side, order.RemainingShares, nil)
	order.RemainingShares = remaining
	if remaining > 0 {
		order.Type = common.LimitOrder
		// Conversion is a reinsertion at the tail of the limit level, so
		// the order takes a fresh submission time like any other new
		// arrival at that level.
		order.SubmissionTime = time.Now()
		tree, levels := b.limitTreeAndMap(order.Side)
		lvl := b.levelFor(tree, levels, order.Price, order.Side)
		lvl.append(order)
		b.orderByID[order.ID] = order
	}
	return trades
}

// settleStops runs stop activation to a fixed point across both stop books,
// starting with first (the side whose trigger condition the caller's
// mutation may have just satisfied). One pass per side is not enough on its
// own: a triggered stop's residual rests as a new limit on its own side,
// which can move that side's best price and trigger stops on the other
// side. The loop ends the first full round in which neither side fires.
func (b *OrderBook) settleStops(first common.Side) {
	for {
		fired := b.activateStops(first)
		if b.activateStops(oppositeSide(first)) {
			fired = true
		}
		if !fired {
			return
		}
	}
}

// activateStops runs stop activation for the stop book
// on side: while the opposite best crosses the stop book's best trigger,
// the triggered order is detached from the stop level, reinjected as a
// market order, and — if shares remain — rested as a limit order at its
// original trigger price. Returns whether any stop fired.
//
// Termination: every iteration either removes one order from the stop book
// or consumes displayed liquidity from the opposite limit book; both are
// bounded, so the loop always terminates.
func (b *OrderBook) activateStops(side common.Side) bool {
	stopTree, stopLevels := b.stopTreeAndMap(side)
	oppositeTree, _ := b.limitTreeAndMap(oppositeSide(side))

	fired := false
	for {
		stopEdge := stopTree.Best()
		oppEdge := oppositeTree.Best()
		if stopEdge == nil || oppEdge == nil {
			return fired
		}
		triggered := oppEdge.Price <= stopEdge.Price
		if side == common.Ask {
			triggered = oppEdge.Price >= stopEdge.Price
		}
		if !triggered {
			return fired
		}

		head := stopEdge.Head()
		stopEdge.unlink(head)
		delete(b.orderByID, head.ID)
		b.removeLevelIfEmpty(stopTree, stopLevels, stopEdge)

		b.triggerStopOrder(head)
		fired = true
	}
}
