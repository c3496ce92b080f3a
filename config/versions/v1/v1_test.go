package v1

import (
	"testing"

	"github.com/buger/jsonparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpgradeConfig(t *testing.T) {
	t.Parallel()
	out, err := new(Version).UpgradeConfig(t.Context(), []byte(`{"version":0,"fees":{"stockPercent":0.001}}`))
	require.NoError(t, err)
	lot, err := jsonparser.GetInt(out, "execution", "lotSize")
	require.NoError(t, err)
	assert.Equal(t, int64(100), lot)
	fee, err := jsonparser.GetFloat(out, "fees", "stockPercent")
	require.NoError(t, err)
	assert.Equal(t, 0.001, fee, "existing fee must be kept")
}

func TestDowngradeConfig(t *testing.T) {
	t.Parallel()
	out, err := new(Version).DowngradeConfig(t.Context(), []byte(`{"execution":{"lotSize":10},"fees":{"stockPercent":0.001}}`))
	require.NoError(t, err)
	_, _, _, err = jsonparser.Get(out, "execution", "lotSize") //nolint:dogsled // only the error is needed
	assert.ErrorIs(t, err, jsonparser.KeyPathNotFoundError)
	_, _, _, err = jsonparser.Get(out, "fees", "stockPercent") //nolint:dogsled // only the error is needed
	assert.ErrorIs(t, err, jsonparser.KeyPathNotFoundError)
}
