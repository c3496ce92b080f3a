package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodsPerYear(t *testing.T) {
	t.Parallel()
	for tf, expected := range map[string]int{
		"1D":    250,
		"d":     250,
		"DAY":   250,
		"1W":    50,
		"week":  50,
		"1M":    11,
		"1mo":   11,
		"month": 11,
		"1h":    1375,
		"30m":   2750,
		"15m":   5500,
		"5min":  16500,
		"1min":  82500,
		"1.5h":  916,
	} {
		t.Run(tf, func(t *testing.T) {
			t.Parallel()
			periods, err := PeriodsPerYear(tf)
			require.NoError(t, err)
			assert.Equal(t, expected, periods)
		})
	}

	for _, tf := range []string{"", "1y", "m", "xh", "0m", "-5m", "quarter"} {
		_, err := PeriodsPerYear(tf)
		assert.ErrorIsf(t, err, ErrUnrecognisedTimeframe, "timeframe %q", tf)
	}
}

func TestTimeframeMinutes(t *testing.T) {
	t.Parallel()
	minutes, err := TimeframeMinutes("1D")
	require.NoError(t, err)
	assert.Equal(t, 330.0, minutes)
	minutes, err = TimeframeMinutes("2h")
	require.NoError(t, err)
	assert.Equal(t, 120.0, minutes)
}

func TestAutoWindow(t *testing.T) {
	t.Parallel()
	for tf, expected := range map[string]int{
		"1D":    126,
		"w":     26,
		"M":     12,
		"month": 12,
		"1m":    12,
		"5m":    1197,
		"15m":   399,
		"30m":   189,
		"1h":    84,
		"4h":    21,
		"xm":    1197,
		"xh":    84,
		"5min":  100,
		"tick":  100,
		"0m":    100,
		"300m":  20,
	} {
		assert.Equalf(t, expected, AutoWindow(tf), "AutoWindow(%q)", tf)
	}
}
