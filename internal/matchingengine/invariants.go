package matchingengine

import "fmt"

// checkInvariants verifies the book's structural invariants (AVL shape,
// BST ordering, edge caches, level aggregates, FIFO time order, map-tree
// agreement, no-cross) against the current state. It is only invoked when
// debugInvariants is set
// (cmd/clob's -debug flag, or explicitly in tests); a violation here is
// fatal, since subsequent operations on a corrupted book would be unsound.
func checkInvariants(b *OrderBook) error {
	for _, t := range []struct {
		name string
		tree *priceTree
	}{
		{"bidLimits", b.bidLimits},
		{"askLimits", b.askLimits},
		{"bidStops", b.bidStops},
		{"askStops", b.askStops},
	} {
		if err := checkTree(t.name, t.tree); err != nil {
			return err
		}
	}

	if err := checkMapAgreement(b); err != nil {
		return err
	}

	if bid, ok := b.BestBid(); ok {
		if ask, ok2 := b.BestAsk(); ok2 && bid >= ask {
			return fmt.Errorf("%w: book crossed, best_bid=%d best_ask=%d", ErrInvariantViolation, bid, ask)
		}
	}

	return nil
}

// checkTree verifies AVL shape (property 1), BST ordering (property 2),
// per-level aggregates and FIFO monotonicity (properties 4, 6), and the
// edge cache (property 3), for one tree.
func checkTree(name string, t *priceTree) error {
	var prevPrice *int64
	var count int
	var walk func(n *priceTreeNode) (int, error)
	walk = func(n *priceTreeNode) (int, error) {
		if n == nil {
			return 0, nil
		}
		lh, err := walk(n.left)
		if err != nil {
			return 0, err
		}

		if prevPrice != nil && n.price <= *prevPrice {
			return 0, fmt.Errorf("%w: %s not strictly increasing at price %d", ErrInvariantViolation, name, n.price)
		}
		p := n.price
		prevPrice = &p
		count++

		if err := checkLevel(name, n.level); err != nil {
			return 0, err
		}

		rh, err := walk(n.right)
		if err != nil {
			return 0, err
		}

		diff := lh - rh
		if diff < -1 || diff > 1 {
			return 0, fmt.Errorf("%w: %s unbalanced at price %d (diff=%d)", ErrInvariantViolation, name, n.price, diff)
		}
		expectedHeight := 1 + max(lh, rh)
		if n.height != expectedHeight {
			return 0, fmt.Errorf("%w: %s height mismatch at price %d: stored %d want %d", ErrInvariantViolation, name, n.price, n.height, expectedHeight)
		}
		return expectedHeight, nil
	}
	if _, err := walk(t.root); err != nil {
		return err
	}
	if count != t.size {
		return fmt.Errorf("%w: %s size mismatch: tracked %d, counted %d", ErrInvariantViolation, name, t.size, count)
	}

	want := t.minNode
	if t.descending {
		want = t.maxNode
	}
	got := leftmostOrRightmost(t.root, t.descending)
	if (want == nil) != (got == nil) {
		return fmt.Errorf("%w: %s edge cache nil mismatch", ErrInvariantViolation, name)
	}
	if want != nil && want.price != got.price {
		return fmt.Errorf("%w: %s edge cache stale: cached %d, actual %d", ErrInvariantViolation, name, want.price, got.price)
	}
	return nil
}

func leftmostOrRightmost(n *priceTreeNode, rightmost bool) *priceTreeNode {
	if n == nil {
		return nil
	}
	for {
		next := n.left
		if rightmost {
			next = n.right
		}
		if next == nil {
			return n
		}
		n = next
	}
}

func checkLevel(treeName string, lvl *PriceLevel) error {
	count := 0
	var shares int64
	var prevTime *int64
	for o := lvl.head; o != nil; o = o.next {
		count++
		shares += o.RemainingShares
		t := o.SubmissionTime.UnixNano()
		if prevTime != nil && t < *prevTime {
			return fmt.Errorf("%w: %s level %d FIFO not time-ordered", ErrInvariantViolation, treeName, lvl.Price)
		}
		prevTime = &t
	}
	if count != lvl.OrderCount {
		return fmt.Errorf("%w: %s level %d order_count mismatch: tracked %d, counted %d", ErrInvariantViolation, treeName, lvl.Price, lvl.OrderCount, count)
	}
	if shares != lvl.TotalShares {
		return fmt.Errorf("%w: %s level %d total_shares mismatch: tracked %d, summed %d", ErrInvariantViolation, treeName, lvl.Price, lvl.TotalShares, shares)
	}
	if count == 0 && (lvl.head != nil || lvl.tail != nil) {
		return fmt.Errorf("%w: %s level %d empty but head/tail non-nil", ErrInvariantViolation, treeName, lvl.Price)
	}
	return nil
}

// checkMapAgreement verifies property 5: order_by_id is exactly the union
// of FIFO members across all four trees, and each price->level map's keys
// match its tree's in-order prices.
func checkMapAgreement(b *OrderBook) error {
	seen := make(map[uint64]bool, len(b.orderByID))
	for _, tree := range []*priceTree{b.bidLimits, b.askLimits, b.bidStops, b.askStops} {
		for _, lvl := range tree.inorder() {
			for o := lvl.head; o != nil; o = o.next {
				if _, ok := b.orderByID[o.ID]; !ok {
					return fmt.Errorf("%w: order %d resting but absent from order_by_id", ErrInvariantViolation, o.ID)
				}
				seen[o.ID] = true
			}
		}
	}
	if len(seen) != len(b.orderByID) {
		return fmt.Errorf("%w: order_by_id has %d entries, %d reachable from trees", ErrInvariantViolation, len(b.orderByID), len(seen))
	}

	checks := []struct {
		name string
		tree *priceTree
		m    map[int64]*PriceLevel
	}{
		{"bidLevels", b.bidLimits, b.bidLevels},
		{"askLevels", b.askLimits, b.askLevels},
		{"stopBidLevels", b.bidStops, b.stopBidLevels},
		{"stopAskLevels", b.askStops, b.stopAskLevels},
	}
	for _, c := range checks {
		treePrices := make(map[int64]bool)
		for _, lvl := range c.tree.inorder() {
			treePrices[lvl.Price] = true
		}
		if len(treePrices) != len(c.m) {
			return fmt.Errorf("%w: %s has %d entries, tree has %d levels", ErrInvariantViolation, c.name, len(c.m), len(treePrices))
		}
		for price := range c.m {
			if !treePrices[price] {
				return fmt.Errorf("%w: %s has price %d not reachable from its tree", ErrInvariantViolation, c.name, price)
			}
		}
	}
	return nil
}
