package v0

import (
	"testing"

	"github.com/buger/jsonparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeConfig(t *testing.T) {
	t.Parallel()
	in := []byte(`{"bot_id":"b1","symbol":"HPG","bt_mode":"test","run_from":"2024-01-01","bot":{"symbol":"SSI"},"data":{"path":"hpg.csv"}}`)
	out, err := new(Version).UpgradeConfig(t.Context(), in)
	require.NoError(t, err)

	id, err := jsonparser.GetString(out, "bot", "id")
	require.NoError(t, err)
	assert.Equal(t, "b1", id)
	mode, err := jsonparser.GetString(out, "bot", "mode")
	require.NoError(t, err)
	assert.Equal(t, "test", mode)
	symbol, err := jsonparser.GetString(out, "bot", "symbol")
	require.NoError(t, err)
	assert.Equal(t, "SSI", symbol, "existing bot values must win over legacy keys")
	for _, k := range []string{"bot_id", "symbol", "bt_mode", "run_from"} {
		_, _, _, err = jsonparser.Get(out, k) //nolint:dogsled // only the error is needed
		assert.ErrorIsf(t, err, jsonparser.KeyPathNotFoundError, "%s must be removed", k)
	}
	path, err := jsonparser.GetString(out, "data", "path")
	require.NoError(t, err)
	assert.Equal(t, "hpg.csv", path)

	out2, err := new(Version).UpgradeConfig(t.Context(), out)
	require.NoError(t, err)
	assert.Equal(t, string(out), string(out2), "Should not affect an already upgraded config")
}

func TestDowngradeConfig(t *testing.T) {
	t.Parallel()
	in := []byte(`{"bot":{"id":"b1","initCash":1000000}}`)
	out, err := new(Version).DowngradeConfig(t.Context(), in)
	require.NoError(t, err)

	id, err := jsonparser.GetString(out, "bot_id")
	require.NoError(t, err)
	assert.Equal(t, "b1", id)
	cash, err := jsonparser.GetFloat(out, "init_cash")
	require.NoError(t, err)
	assert.Equal(t, 1e6, cash)
	_, _, _, err = jsonparser.Get(out, "bot") //nolint:dogsled // only the error is needed
	assert.ErrorIs(t, err, jsonparser.KeyPathNotFoundError, "empty bot must be removed")
}
