package matchingengine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"clob/internal/common"
)

// Order is a single resting or in-flight order. Its id, side, tif and price
// are fixed once constructed; its type changes only when a triggered stop's
// residual converts to a limit, and remaining shares are mutated in place
// by execute/amendSamePrice. An Order belongs to at most one
// PriceLevel's FIFO at a time, and the prev/next/parent pointers below are
// that FIFO's intrusive linkage, not independently owned state.
type Order struct {
	ID        uint64
	Correlate uuid.UUID // cross-call tracing id, independent of ID
	Side      common.Side
	Type      common.OrderType
	TIF       common.TIF

	Price           int64 // limit price, or stop trigger price; ignored for Market
	RemainingShares int64

	SubmissionTime time.Time

	parent *PriceLevel
	prev   *Order
	next   *Order
}

// NewOrder constructs an order with remaining_shares = shares and no
// parent level. Fails if shares <= 0.
func NewOrder(id uint64, side common.Side, typ common.OrderType, tif common.TIF, price int64, shares int64) (*Order, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, shares)
	}
	return &Order{
		ID:              id,
		Correlate:       uuid.New(),
		Side:            side,
		Type:            typ,
		TIF:             tif,
		Price:           price,
		RemainingShares: shares,
		SubmissionTime:  time.Now(),
	}, nil
}

// Parent returns the PriceLevel this order currently rests in, or nil.
func (o *Order) Parent() *PriceLevel { return o.parent }

// execute records a trade against this order. It requires
// 0 < traded <= RemainingShares. It does not unlink a fully-consumed order
// from its level — the caller (OrderBook/MatchingEngine) owns that step.
func (o *Order) execute(traded int64) {
	if traded <= 0 || traded > o.RemainingShares {
		panic(fmt.Sprintf("execute: invalid traded quantity %d against remaining %d", traded, o.RemainingShares))
	}
	o.RemainingShares -= traded
	if o.parent != nil {
		o.parent.TotalShares -= traded
	}
}

// amendSamePrice updates remaining shares in place, preserving FIFO
// position and submission time. Pre: newShares > 0 and newPrice equals the
// order's current price (checked by the caller).
func (o *Order) amendSamePrice(newShares int64) error {
	if newShares <= 0 {
		return fmt.Errorf("%w: shares must be positive, got %d", ErrInvalidArgument, newShares)
	}
	if o.parent != nil {
		o.parent.TotalShares += newShares - o.RemainingShares
	}
	o.RemainingShares = newShares
	return nil
}
