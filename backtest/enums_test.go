package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeMode(t *testing.T) {
	t.Parallel()
	m, err := ParseTradeMode("LIVE")
	require.NoError(t, err)
	assert.Equal(t, Live, m)
	_, err = ParseTradeMode("paper")
	assert.ErrorIs(t, err, ErrUnknownTradeMode)
}

func TestParseSymbolType(t *testing.T) {
	t.Parallel()
	st, err := ParseSymbolType("vnstock")
	require.NoError(t, err)
	assert.Equal(t, VnStock, st)
	st, err = ParseSymbolType("index")
	require.NoError(t, err)
	assert.Equal(t, VnIndex, st)
	_, err = ParseSymbolType("bond")
	assert.ErrorIs(t, err, errUnknownSymbolType)
}

func TestParseEngine(t *testing.T) {
	t.Parallel()
	e, err := ParseEngine("ta-bot")
	require.NoError(t, err)
	assert.Equal(t, TABot, e)
	_, err = ParseEngine("quantum")
	assert.ErrorIs(t, err, errUnknownEngine)
}
