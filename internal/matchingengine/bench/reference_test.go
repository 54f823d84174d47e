package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/common"
)

func TestReferenceBookBestTracksRestingLevels(t *testing.T) {
	r := NewReferenceBook()
	r.Rest(common.Bid, 100, 10)
	r.Rest(common.Bid, 101, 5)
	r.Rest(common.Ask, 105, 8)

	bid, ok := r.Best(common.Bid)
	require.True(t, ok)
	assert.Equal(t, int64(101), bid)

	ask, ok := r.Best(common.Ask)
	require.True(t, ok)
	assert.Equal(t, int64(105), ask)
}

func TestReferenceBookConsumeRemovesEmptiedLevel(t *testing.T) {
	r := NewReferenceBook()
	r.Rest(common.Ask, 100, 10)
	r.Consume(common.Ask, 100, 10, true)

	_, ok := r.Best(common.Ask)
	assert.False(t, ok)
}

func TestReferenceBookDepthAt(t *testing.T) {
	r := NewReferenceBook()
	r.Rest(common.Bid, 100, 10)
	r.Rest(common.Bid, 100, 5)

	count, shares, ok := r.DepthAt(common.Bid, 100)
	require.True(t, ok)
	assert.Equal(t, 2, count)
	assert.Equal(t, int64(15), shares)
}
