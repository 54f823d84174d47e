package matchingengine

import "clob/internal/common"

// PriceLevel is the FIFO queue of resting orders at one price on one side,
// plus its aggregates and its node linkage inside an AVL PriceTree. A level
// is created lazily on the first order at a new price and destroyed eagerly
// once its FIFO empties.
type PriceLevel struct {
	Price       int64
	Side        common.Side
	OrderCount  int
	TotalShares int64

	head *Order
	tail *Order

	parent *priceTreeNode // the tree node this level is the payload of
}

func newPriceLevel(price int64, side common.Side) *PriceLevel {
	return &PriceLevel{Price: price, Side: side}
}

// Head returns the FIFO head (the next order the matching engine consumes).
func (l *PriceLevel) Head() *Order { return l.head }

// Empty reports whether the level has no resting orders.
func (l *PriceLevel) Empty() bool { return l.OrderCount == 0 }

// append places order at the FIFO tail.
func (l *PriceLevel) append(o *Order) {
	o.parent = l
	o.prev = l.tail
	o.next = nil
	if l.tail != nil {
		l.tail.next = o
	} else {
		l.head = o
	}
	l.tail = o
	l.OrderCount++
	l.TotalShares += o.RemainingShares
}

// unlink splices order out of the FIFO. Pre: order.parent == l. Does not
// destroy the order.
func (l *PriceLevel) unlink(o *Order) {
	if o.parent != l {
		panic("unlink: order does not belong to this level")
	}
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	l.OrderCount--
	l.TotalShares -= o.RemainingShares
	o.parent = nil
	o.prev = nil
	o.next = nil
}

// orders returns the FIFO contents head-to-tail. It allocates; callers on
// a hot path (and the invariant checker) walk Head()/next directly instead.
func (l *PriceLevel) orders() []*Order {
	out := make([]*Order, 0, l.OrderCount)
	for o := l.head; o != nil; o = o.next {
		out = append(out, o)
	}
	return out
}
