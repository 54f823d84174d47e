package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clob/internal/common"
)

func TestParseCommandLimit(t *testing.T) {
	cmd, err := ParseCommand("LIMIT 42 BID 100 10 GTC\n")
	require.NoError(t, err)
	assert.Equal(t, VerbLimit, cmd.Verb)
	assert.Equal(t, uint64(42), cmd.ID)
	assert.Equal(t, common.Bid, cmd.Side)
	assert.Equal(t, int64(100), cmd.Price)
	assert.Equal(t, int64(10), cmd.Shares)
	assert.Equal(t, common.GTC, cmd.TIF)
}

func TestParseCommandSideAliases(t *testing.T) {
	for _, tok := range []string{"buy", "BID", "b"} {
		cmd, err := ParseCommand("MARKET " + tok + " 5")
		require.NoError(t, err)
		assert.Equal(t, common.Bid, cmd.Side)
	}
	for _, tok := range []string{"sell", "ASK", "S"} {
		cmd, err := ParseCommand("MARKET " + tok + " 5")
		require.NoError(t, err)
		assert.Equal(t, common.Ask, cmd.Side)
	}
}

func TestParseCommandCancelAndAmend(t *testing.T) {
	cmd, err := ParseCommand("CANCEL 7")
	require.NoError(t, err)
	assert.Equal(t, VerbCancel, cmd.Verb)
	assert.Equal(t, uint64(7), cmd.ID)

	cmd, err = ParseCommand("AMEND 7 3 105")
	require.NoError(t, err)
	assert.Equal(t, VerbAmend, cmd.Verb)
	assert.Equal(t, int64(3), cmd.Shares)
	assert.Equal(t, int64(105), cmd.NewPrice)
}

func TestParseCommandPing(t *testing.T) {
	cmd, err := ParseCommand("ping")
	require.NoError(t, err)
	assert.Equal(t, VerbPing, cmd.Verb)
}

func TestParseCommandBestBidBestAsk(t *testing.T) {
	cmd, err := ParseCommand("BESTBID")
	require.NoError(t, err)
	assert.Equal(t, VerbBestBid, cmd.Verb)

	cmd, err = ParseCommand("BESTASK")
	require.NoError(t, err)
	assert.Equal(t, VerbBestAsk, cmd.Verb)
}

func TestParseCommandDepth(t *testing.T) {
	cmd, err := ParseCommand("DEPTH BID 100")
	require.NoError(t, err)
	assert.Equal(t, VerbDepth, cmd.Verb)
	assert.Equal(t, common.Bid, cmd.Side)
	assert.Equal(t, int64(100), cmd.Price)

	_, err = ParseCommand("DEPTH BID")
	assert.ErrorIs(t, err, ErrWrongArgCount)
}

func TestPriceLineAndDepthLine(t *testing.T) {
	assert.Equal(t, "PRICE 105", PriceLine(105, true))
	assert.Equal(t, "EMPTY", PriceLine(0, false))
	assert.Equal(t, "DEPTH 2 15", DepthLine(2, 15, true))
	assert.Equal(t, "EMPTY", DepthLine(0, 0, false))
}

func TestParseCommandRejectsEmptyLine(t *testing.T) {
	_, err := ParseCommand("   \n")
	assert.ErrorIs(t, err, ErrEmptyLine)
}

func TestParseCommandRejectsUnknownVerb(t *testing.T) {
	_, err := ParseCommand("FROB 1 2 3")
	assert.ErrorIs(t, err, ErrUnknownVerb)
}

func TestParseCommandRejectsWrongArgCount(t *testing.T) {
	_, err := ParseCommand("LIMIT 1 BID 100")
	assert.ErrorIs(t, err, ErrWrongArgCount)
}

func TestParseCommandRejectsMalformedField(t *testing.T) {
	_, err := ParseCommand("LIMIT abc BID 100 10 GTC")
	assert.ErrorIs(t, err, ErrMalformedField)

	_, err = ParseCommand("LIMIT 1 SIDEWAYS 100 10 GTC")
	assert.ErrorIs(t, err, ErrMalformedField)

	_, err = ParseCommand("LIMIT 1 BID 100 10 WHENEVER")
	assert.ErrorIs(t, err, ErrMalformedField)
}
