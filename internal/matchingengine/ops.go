package matchingengine

import (
	"fmt"

	"clob/internal/common"
)

// Cancel removes a resting order. Fails with ErrUnknownOrder if id
// is absent; otherwise the order is unlinked from its level (destroying the
// level if it empties) and removed from the id index.
func (b *OrderBook) Cancel(id uint64) error {
	order, ok := b.orderByID[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrUnknownOrder, id)
	}
	b.unregisterOrder(order)
	b.assertInvariants("cancel")
	return nil
}

// Amend modifies a resting order in place or by reinsertion. A
// quantity-only decrease at the same price preserves FIFO position and
// submission time; any price change or quantity increase is a
// cancel-and-reinsert under the same id, resetting submission time and
// potentially crossing the book again. All arguments are validated before
// either branch touches the book: unregistering the live order must never
// happen ahead of a newPrice check that can still fail.
func (b *OrderBook) Amend(id uint64, newShares, newPrice int64) ([]TradeEvent, error) {
	order, ok := b.orderByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownOrder, id)
	}
	if newShares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, newShares)
	}

	if newPrice == order.Price && newShares <= order.RemainingShares {
		return nil, order.amendSamePrice(newShares)
	}
	if newPrice <= 0 {
		return nil, fmt.Errorf("%w: price must be positive, got %d", ErrInvalidArgument, newPrice)
	}

	side, typ, tif := order.Side, order.Type, order.TIF
	b.unregisterOrder(order)

	if typ == common.StopOrder {
		return b.SubmitStop(id, side, newPrice, newShares, tif)
	}
	return b.SubmitLimit(id, side, newPrice, newShares, tif)
}
