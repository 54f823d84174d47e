package matchingengine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/common"
)

func heightOf(n *priceTreeNode) int {
	if n == nil {
		return 0
	}
	return 1 + max(heightOf(n.left), heightOf(n.right))
}

func assertAVLShape(t *testing.T, tree *priceTree) {
	t.Helper()
	var walk func(n *priceTreeNode)
	walk = func(n *priceTreeNode) {
		if n == nil {
			return
		}
		walk(n.left)
		bf := balanceFactor(n)
		assert.GreaterOrEqual(t, bf, -1, "node %d unbalanced", n.price)
		assert.LessOrEqual(t, bf, 1, "node %d unbalanced", n.price)
		assert.Equal(t, heightOf(n), n.height, "node %d stored height stale", n.price)
		walk(n.right)
	}
	walk(tree.root)
}

func TestPriceTreeInsertMaintainsAVLBalance(t *testing.T) {
	tree := newPriceTree(false)
	prices := []int64{50, 30, 70, 20, 40, 60, 80, 10, 90, 25, 35}
	for _, p := range prices {
		tree.insert(p, common.Ask)
		assertAVLShape(t, tree)
	}
	require.Equal(t, len(prices), tree.Len())
}

func TestPriceTreeInsertAscendingStillBalances(t *testing.T) {
	// Ascending insertion is the classic case that degenerates an
	// unbalanced BST into a linked list; AVL rotation must keep it
	// logarithmic.
	tree := newPriceTree(false)
	for p := int64(1); p <= 100; p++ {
		tree.insert(p, common.Ask)
		assertAVLShape(t, tree)
	}
	assert.LessOrEqual(t, heightOf(tree.root), 10)
}

func TestPriceTreeBestTracksCorrectEdge(t *testing.T) {
	ascending := newPriceTree(false)
	descending := newPriceTree(true)
	for _, p := range []int64{55, 10, 90, 30, 70} {
		ascending.insert(p, common.Ask)
		descending.insert(p, common.Bid)
	}
	assert.Equal(t, int64(10), ascending.Best().Price)
	assert.Equal(t, int64(90), descending.Best().Price)
}

func TestPriceTreeRemoveMaintainsShapeAndEdges(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	tree := newPriceTree(false)
	levels := make(map[int64]*PriceLevel)

	for i := 0; i < 200; i++ {
		price := int64(rng.Intn(50) + 1)
		if _, exists := levels[price]; exists {
			continue
		}
		levels[price] = tree.insert(price, common.Ask)
	}
	assertAVLShape(t, tree)

	for price, lvl := range levels {
		tree.remove(lvl)
		delete(levels, price)
		assertAVLShape(t, tree)

		if len(levels) == 0 {
			continue
		}
		min := int64(1) << 62
		for p := range levels {
			if p < min {
				min = p
			}
		}
		require.Equal(t, min, tree.Best().Price)
	}
	assert.Equal(t, 0, tree.Len())
	assert.Nil(t, tree.root)
}

func TestPriceTreeRemoveTwoChildNodeUsesInorderSuccessor(t *testing.T) {
	tree := newPriceTree(false)
	for _, p := range []int64{50, 25, 75, 10, 30, 60, 90} {
		tree.insert(p, common.Ask)
	}
	lvl := tree.Get(50)
	require.NotNil(t, lvl)

	tree.remove(lvl)
	assertAVLShape(t, tree)

	// 50 had two children; the in-order successor (60) must now occupy
	// its structural position, and a search for every surviving price
	// must still resolve.
	assert.Equal(t, int64(60), tree.root.price)
	for _, p := range []int64{25, 75, 10, 30, 60, 90} {
		assert.NotNil(t, tree.Get(p), "price %d should still be reachable", p)
	}
	assert.Nil(t, tree.Get(50))
}
