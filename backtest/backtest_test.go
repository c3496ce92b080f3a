package backtest

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/execution"
)

var testStart = time.Date(2024, 1, 2, 0, 0, 0, 0, execution.ICT)

func dailyTimes(n int) []time.Time {
	t := make([]time.Time, n)
	for i := range t {
		t[i] = testStart.AddDate(0, 0, i)
	}
	return t
}

func testInput(prices, positions, tradeSizes []float64) Input {
	actions := make([]execution.Action, len(prices))
	for i := range tradeSizes {
		switch {
		case i < len(positions) && i > 0 && positions[i] < positions[i-1]:
			actions[i] = execution.Sell
		case tradeSizes[i] > 0:
			actions[i] = execution.Buy
		}
	}
	return Input{
		BotID:      "bt-test",
		Symbol:     "SSI",
		SymbolType: VnStock,
		Timeframe:  "1D",
		Mode:       Test,
		BookSize:   1_000_000,
		Times:      dailyTimes(len(prices)),
		Prices:     prices,
		Positions:  positions,
		TradeSizes: tradeSizes,
		Actions:    actions,
	}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	valid := testInput([]float64{10, 11}, []float64{100, 100}, []float64{100, 0})
	for _, tc := range []struct {
		name   string
		modify func(*Input)
		err    error
		field  string
		index  int
	}{
		{name: "positions short", modify: func(in *Input) { in.Positions = in.Positions[:1] }, err: ErrLengthMismatch, field: "positions", index: -1},
		{name: "times long", modify: func(in *Input) { in.Times = dailyTimes(3) }, err: ErrLengthMismatch, field: "times", index: -1},
		{name: "actions missing", modify: func(in *Input) { in.Actions = nil }, err: ErrLengthMismatch, field: "actions", index: -1},
		{name: "trade sizes short", modify: func(in *Input) { in.TradeSizes = nil }, err: ErrLengthMismatch, field: "trade_sizes", index: -1},
		{name: "empty", modify: func(in *Input) { *in = Input{BotID: "bt-test"} }, err: ErrNoData, field: "prices", index: -1},
		{name: "zero book", modify: func(in *Input) { in.BookSize = 0 }, err: ErrInvalidBookSize, field: "book_size", index: -1},
		{name: "negative price", modify: func(in *Input) { in.Prices = []float64{10, -1} }, err: ErrNonPositivePrice, field: "prices", index: 1},
		{name: "bad timeframe", modify: func(in *Input) { in.Timeframe = "fortnight" }, err: ErrUnrecognisedTimeframe, field: "timeframe", index: -1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := valid
			tc.modify(&in)
			_, err := New(in)
			require.ErrorIs(t, err, tc.err)
			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr), "error must be an *InputError")
			assert.Equal(t, "bt-test", inputErr.BotID)
			assert.Equal(t, tc.field, inputErr.Field)
			assert.Equal(t, tc.index, inputErr.Index)
			assert.NotEmpty(t, inputErr.Error())
		})
	}
}

func TestFees(t *testing.T) {
	t.Parallel()
	bt, err := New(testInput([]float64{10, 10, 10}, []float64{1000, 1000, 500}, []float64{1000, 0, -500}))
	require.NoError(t, err)
	assert.Equal(t, []float64{15.0, 0.0, 7.5}, bt.Fees())
}

func TestFeeRateOverride(t *testing.T) {
	t.Parallel()
	in := testInput([]float64{10}, []float64{1000}, []float64{1000})
	in.FeeRate = null.Float64From(0.001)
	bt, err := New(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, bt.Fees())

	in.FeeRate = null.Float64From(0)
	bt, err = New(in)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, bt.Fees(), "an explicit zero fee is not replaced by the default")

	in.FeeRate = null.Float64From(-0.1)
	_, err = New(in)
	assert.ErrorIs(t, err, errInvalidFeeRate)
}

func TestPnLEquityAndReturns(t *testing.T) {
	t.Parallel()
	prices := []float64{10, 12, 9, 9}
	positions := []float64{1000, 1000, 0, 0}
	tradeSizes := []float64{1000, 0, 1000, 0}
	bt, err := New(testInput(prices, positions, tradeSizes))
	require.NoError(t, err)

	assert.Equal(t, []float64{-15, 2000, -3000 - 13.5, 0}, bt.PnL())
	var cumulative float64
	for i, pnl := range bt.PnL() {
		cumulative += pnl
		assert.Equalf(t, 1_000_000+cumulative, bt.Equities()[i], "equity identity broken at bar %d", i)
	}
	returns := bt.Returns()
	assert.Zero(t, returns[0], "first return is always zero")
	assert.Equal(t, 2000.0/1_000_000, returns[1])
	assert.Equal(t, -3013.5/1_000_000, returns[2])

	cum := bt.CumulativeReturns()
	assert.InDelta(t, (1+returns[1])*(1+returns[2])-1, cum[2], 1e-15)
	assert.Equal(t, cum[2], cum[3])
}

func TestBenchmark(t *testing.T) {
	t.Parallel()
	in := testInput([]float64{10.0, 10.0}, []float64{0, 0}, []float64{0, 0})
	in.BookSize = 1_000_000_000
	bt, err := New(in)
	require.NoError(t, err)
	shares := bt.BenchmarkShares()
	assert.Equal(t, 100_000_000.0, shares)
	assert.Equal(t, shares*10.0-shares*10.0*0.0015, bt.BenchmarkEquities()[0])
	assert.Equal(t, bt.BenchmarkEquities()[0], bt.BenchmarkEquities()[1])
	assert.Equal(t, []float64{0, 0}, bt.BenchmarkReturns())
	assert.Equal(t, []float64{0, 0}, bt.BenchmarkPnL())
	assert.Equal(t, []float64{0, 0}, bt.BenchmarkCumulativeReturns())
}

func TestBenchmarkSizing(t *testing.T) {
	t.Parallel()
	for _, price := range []float64{10_350, 27_800, 99_999, 1_234.5} {
		in := testInput([]float64{price, price * 1.1}, []float64{0, 0}, []float64{0, 0})
		in.BookSize = 1_000_000_000
		bt, err := New(in)
		require.NoError(t, err)
		value := bt.BenchmarkShares() * price
		assert.LessOrEqual(t, value, in.BookSize)
		assert.Greater(t, value, in.BookSize-price*BenchmarkLotSize, "benchmark must be within one lot of the book size")
		assert.InDelta(t, 0.1, bt.BenchmarkReturns()[1]*bt.BenchmarkEquities()[0]/(bt.BenchmarkShares()*price), 1e-9)
		assert.Equal(t, bt.BenchmarkReturns()[1]*in.BookSize, bt.BenchmarkPnL()[1])
	}
}

func TestBenchmarkZeroEquityUsesSafeDivide(t *testing.T) {
	t.Parallel()
	in := testInput([]float64{2_000_000, 2_100_000}, []float64{0, 0}, []float64{0, 0})
	bt, err := New(in)
	require.NoError(t, err)
	assert.Zero(t, bt.BenchmarkShares(), "book cannot afford a lot")
	assert.Equal(t, []float64{0, 0}, bt.BenchmarkReturns())
}

func TestAnalysis(t *testing.T) {
	t.Parallel()
	prices := []float64{10, 12, 9, 9, 11}
	positions := []float64{1000, 1000, 0, 500, 500}
	tradeSizes := []float64{1000, 0, 1000, 500, 0}
	bt, err := New(testInput(prices, positions, tradeSizes))
	require.NoError(t, err)
	a := bt.Analysis()

	assert.Equal(t, bt.Equities()[0], a.StartValue)
	assert.Equal(t, bt.Equities()[4], a.EndValue)
	assert.Equal(t, (a.EndValue-a.StartValue)/a.StartValue, a.TotalReturn)
	assert.InDelta(t, 15+13.5+6.75, a.TotalFee, 1e-9)
	assert.Equal(t, 3, a.TotalTrades)
	assert.Equal(t, 1, a.TotalOpenTrades)
	assert.Equal(t, 1, a.TotalClosedTrades, "flat after a long counts as one close")
	assert.Equal(t, bt.PnL()[4], a.OpenTradePnL)
	assert.Equal(t, bt.BenchmarkCumulativeReturns()[4], a.BenchmarkReturn)

	returns := bt.Returns()
	assert.Equal(t, returns[1], a.BestTrade)
	assert.Equal(t, returns[2], a.WorstTrade)
	assert.InDelta(t, (returns[1]+returns[4])/2, a.AvgWinTrade, 1e-15)
	assert.InDelta(t, (returns[2]+returns[3])/2, a.AvgLossTrade, 1e-15)
	assert.False(t, a.AvgWinTradeDuration.Valid)
	assert.False(t, a.AvgLossTradeDuration.Valid)
}

func TestAnalysisNoWinsOrLosses(t *testing.T) {
	t.Parallel()
	bt, err := New(testInput([]float64{10, 10, 10}, []float64{0, 0, 0}, []float64{0, 0, 0}))
	require.NoError(t, err)
	a := bt.Analysis()
	assert.Zero(t, a.AvgWinTrade)
	assert.Zero(t, a.AvgLossTrade)
	assert.Zero(t, a.BestTrade)
	assert.Zero(t, a.WorstTrade)
	assert.Zero(t, a.TotalTrades)
	assert.Zero(t, a.TotalOpenTrades)
	assert.Zero(t, a.TotalClosedTrades)
	assert.Zero(t, a.TotalReturn)
}

func TestClosedTradesCountSignChanges(t *testing.T) {
	t.Parallel()
	positions := []float64{0, 100, 100, 0, 0, 200, -100, 0}
	n := len(positions)
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = 10
	}
	bt, err := New(testInput(prices, positions, make([]float64, n)))
	require.NoError(t, err)
	assert.Equal(t, 3, bt.Analysis().TotalClosedTrades)
	assert.Zero(t, bt.Analysis().TotalOpenTrades)
}

func TestPerformance(t *testing.T) {
	t.Parallel()
	prices := []float64{10, 12, 9, 9, 11, 10, 13}
	positions := []float64{1000, 1000, 1000, 1000, 1000, 1000, 1000}
	tradeSizes := []float64{1000, 0, 0, 0, 0, 0, 0}
	bt, err := New(testInput(prices, positions, tradeSizes))
	require.NoError(t, err)
	p := bt.Performance()
	assert.Equal(t, 250, bt.PeriodsPerYear())
	assert.InDelta(t, bt.CumulativeReturns()[len(prices)-1], p.CumulativeReturn, 1e-15)
	assert.Less(t, p.MaxDrawdown, 0.0)
	assert.Greater(t, p.Volatility, 0.0)
	assert.Greater(t, p.WinRate, 0.0)
	assert.LessOrEqual(t, p.WinRate, 1.0)
	assert.Less(t, p.VaR, 0.0)
	assert.LessOrEqual(t, p.CVaR, p.VaR)
}

func TestMemoizationIsIdempotent(t *testing.T) {
	t.Parallel()
	prices := []float64{10, 12, 9, 9, 11}
	bt, err := New(testInput(prices, []float64{1000, 1000, 0, 500, 500}, []float64{1000, 0, 1000, 500, 0}))
	require.NoError(t, err)

	var wg sync.WaitGroup
	analyses := make([]TradeAnalysis, 8)
	performances := make([]TradePerformance, 8)
	for i := range analyses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			analyses[i] = bt.Analysis()
			performances[i] = bt.Performance()
		}(i)
	}
	wg.Wait()
	for i := range analyses {
		assert.Equal(t, analyses[0], analyses[i])
		assert.Equal(t, performances[0], performances[i])
	}
	assert.Same(t, bt.Summary(), bt.Summary())
}

func TestSummary(t *testing.T) {
	t.Parallel()
	prices := []float64{10, 12, 9}
	in := testInput(prices, []float64{1000, 1000, 0}, []float64{1000, 0, 1000})
	bt, err := New(in)
	require.NoError(t, err)
	s := bt.Summary()
	assert.Equal(t, 3, s.TotalCandles)
	assert.Equal(t, "bt-test", s.BotID)
	assert.Equal(t, in.BookSize, s.InitCash)
	assert.True(t, s.FromTime.Equal(in.Times[0]))
	assert.True(t, s.ToTime.Equal(in.Times[2]))
	assert.Equal(t, Test, s.Mode)
	assert.Equal(t, 126, s.RollingWindow)
	for _, name := range []string{
		SeriesActions, SeriesPrices, SeriesReturns, SeriesCumulativeReturns, SeriesFees, SeriesPnL,
		SeriesTradeSizes, SeriesEquities, SeriesBenchmarkReturns, SeriesBenchmarkPnL,
		SeriesBenchmarkCumulativeReturns, SeriesBenchmarkEquities, SeriesRollingSharpe,
		SeriesRollingVolatility, SeriesDrawdown,
	} {
		series, ok := s.Series[name]
		require.Truef(t, ok, "series %s missing", name)
		assert.Equal(t, name, series.Name)
		assert.Lenf(t, series.Values, len(s.Candles), "series %s is not aligned to candles", name)
	}
	assert.Equal(t, []float64{1, 0, -1}, s.Series[SeriesActions].Values)

	b, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"avg_win_trade_duration":null`)
	assert.Contains(t, string(b), `"bt_mode":"test"`)
	assert.Contains(t, string(b), `"benchmark_cumulative_returns"`)
}
