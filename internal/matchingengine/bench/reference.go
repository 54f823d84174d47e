// Package bench implements a second, independent price index used only to
// differentially test the AVL-backed book in internal/matchingengine: a
// btree.BTreeG-keyed map of price to aggregate level size. It tracks the
// same best-bid/best-ask and per-level aggregates the AVL tree does,
// computed a structurally different way, so a replay harness can assert
// the two never disagree.
package bench

import (
	"github.com/tidwall/btree"

	"clob/internal/common"
)

// level is one aggregate price level: total resting quantity and order
// count at that price, on one side of the book.
type level struct {
	price       int64
	totalShares int64
	orderCount  int
}

// ReferenceBook mirrors the subset of OrderBook state needed to cross-check
// best-bid/best-ask and level depth: it is not a matching engine, just an
// aggregate index kept in lockstep by a replay harness as it feeds the same
// events to the real book.
type ReferenceBook struct {
	bids *btree.BTreeG[*level]
	asks *btree.BTreeG[*level]
}

// NewReferenceBook builds an empty reference index.
func NewReferenceBook() *ReferenceBook {
	return &ReferenceBook{
		bids: btree.NewBTreeG(func(a, b *level) bool { return a.price > b.price }),
		asks: btree.NewBTreeG(func(a, b *level) bool { return a.price < b.price }),
	}
}

func (r *ReferenceBook) treeFor(side common.Side) *btree.BTreeG[*level] {
	if side == common.Bid {
		return r.bids
	}
	return r.asks
}

// Rest records shares newly resting at price on side.
func (r *ReferenceBook) Rest(side common.Side, price, shares int64) {
	t := r.treeFor(side)
	lvl, ok := t.Get(&level{price: price})
	if !ok {
		t.Set(&level{price: price, totalShares: shares, orderCount: 1})
		return
	}
	lvl.totalShares += shares
	lvl.orderCount++
}

// Consume records shares traded away from the resting side at price, and
// optionally one fewer resting order (when the consumed order is fully
// filled, as opposed to merely reduced).
func (r *ReferenceBook) Consume(side common.Side, price, shares int64, orderConsumed bool) {
	t := r.treeFor(side)
	lvl, ok := t.Get(&level{price: price})
	if !ok {
		return
	}
	lvl.totalShares -= shares
	if orderConsumed {
		lvl.orderCount--
	}
	if lvl.totalShares <= 0 || lvl.orderCount <= 0 {
		t.Delete(lvl)
	}
}

// Remove drops shares resting at price on side, e.g. on cancel.
func (r *ReferenceBook) Remove(side common.Side, price, shares int64) {
	r.Consume(side, price, shares, true)
}

// Best returns the top of book on side.
func (r *ReferenceBook) Best(side common.Side) (int64, bool) {
	lvl, ok := r.treeFor(side).Min()
	if !ok {
		return 0, false
	}
	return lvl.price, true
}

// DepthAt reports the aggregate resting size at price on side.
func (r *ReferenceBook) DepthAt(side common.Side, price int64) (int, int64, bool) {
	lvl, ok := r.treeFor(side).Get(&level{price: price})
	if !ok {
		return 0, 0, false
	}
	return lvl.orderCount, lvl.totalShares, true
}
