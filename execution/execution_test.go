package execution

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testCash  = 1_000_000_000
	testPrice = 10_000
)

var testDay = time.Date(2024, 1, 2, 9, 15, 0, 0, ICT)

func testConfig() Config {
	return Config{BotID: "test-bot", InitialCash: testCash, LotSize: DefaultLotSize}
}

func runDaily(t *testing.T, signals []float64) ([]State, []Output) {
	t.Helper()
	cfg := testConfig()
	s := NewState("SSI", testCash, testDay, testDay.AddDate(1, 0, 0))
	states := make([]State, len(signals))
	outputs := make([]Output, len(signals))
	for i := range signals {
		var err error
		s, outputs[i], err = Step(s, Input{Index: i, Signal: signals[i], Price: testPrice, Time: testDay.AddDate(0, 0, i)}, cfg)
		require.NoError(t, err, "Step must not error")
		states[i] = s
	}
	return states, outputs
}

func TestActionString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "B", Buy.String())
	assert.Equal(t, "S", Sell.String())
	assert.Equal(t, "H", Hold.String())
	assert.Equal(t, "Action(5)", Action(5).String())
}

func TestStepBuy(t *testing.T) {
	t.Parallel()
	states, outputs := runDaily(t, []float64{1})
	s := states[0]
	assert.Equal(t, Buy, s.CurrentAction)
	assert.Equal(t, 100_000.0, outputs[0].MaxShares)
	assert.Equal(t, 100_000.0, s.TradeSize)
	assert.Equal(t, 100_000.0, s.T0Size)
	assert.Equal(t, 100_000.0, s.CurrentPosition)
	assert.Equal(t, 1.0, s.CurrentWeight)
	assert.Equal(t, float64(testPrice), s.CurrentPrice)
	assert.True(t, testDay.Equal(s.Candle))
	assert.False(t, outputs[0].Rollover, "first bar must not roll over")
}

func TestStepClampsSignal(t *testing.T) {
	t.Parallel()
	states, _ := runDaily(t, []float64{2.5, 3})
	assert.Equal(t, 1.0, states[0].CurrentWeight, "weight must never exceed full allocation")
	assert.Equal(t, 100_000.0, states[0].TradeSize)
	assert.Equal(t, Hold, states[1].CurrentAction, "fully allocated buy signal holds")
	assert.Zero(t, states[1].TradeSize)
}

func TestStepSellWhileFlat(t *testing.T) {
	t.Parallel()
	states, _ := runDaily(t, []float64{-1, -0.5, 0})
	for i := range states {
		assert.Equal(t, Hold, states[i].CurrentAction)
		assert.Zero(t, states[i].CurrentPosition)
		assert.Zero(t, states[i].PendingSellWeight, "a flat strategy cannot build a sell backlog")
	}
}

func TestStepDefersUnsettledSell(t *testing.T) {
	t.Parallel()
	states, outputs := runDaily(t, []float64{1.0, -1.0})
	assert.Equal(t, Buy, states[0].CurrentAction)
	assert.Equal(t, Hold, states[1].CurrentAction)
	assert.Zero(t, states[1].TradeSize)
	assert.Equal(t, 1.0, states[1].PendingSellWeight)
	assert.True(t, outputs[1].Deferred)
	assert.True(t, outputs[1].Rollover)
	assert.Equal(t, 100_000.0, states[1].T1Size)
	assert.Equal(t, 100_000.0, states[1].CurrentPosition)
}

func TestStepExecutesBacklogAfterSettlement(t *testing.T) {
	t.Parallel()
	states, outputs := runDaily(t, []float64{1, -1, 0, 0, 0})
	assert.Equal(t, 1.0, states[2].PendingSellWeight, "zero signal adds nothing to the backlog")
	assert.True(t, outputs[2].Deferred)
	assert.Equal(t, 100_000.0, states[2].T2Size)

	s := states[3]
	assert.Equal(t, Sell, s.CurrentAction)
	assert.Equal(t, 100_000.0, s.TradeSize)
	assert.Zero(t, s.CurrentPosition)
	assert.Zero(t, s.SellSize)
	assert.Zero(t, s.CurrentWeight)
	assert.Zero(t, s.PendingSellWeight)

	assert.Equal(t, Hold, states[4].CurrentAction)
}

func TestStepBacklogAccumulatesRawSignal(t *testing.T) {
	t.Parallel()
	states, _ := runDaily(t, []float64{1, -1, -1})
	assert.Equal(t, 2.0, states[2].PendingSellWeight, "each deferred bar adds the raw signal magnitude")
}

func TestStepPartialSell(t *testing.T) {
	t.Parallel()
	states, _ := runDaily(t, []float64{1, 1, 1, 1, 0.25})
	s := states[4]
	assert.Equal(t, Sell, s.CurrentAction)
	assert.Equal(t, 75_000.0, s.TradeSize)
	assert.Equal(t, 25_000.0, s.CurrentPosition)
	assert.Equal(t, 25_000.0, s.SellSize)
	assert.InDelta(t, 0.25, s.CurrentWeight, 1e-12)
}

func TestStepBuySizesFromTotalWeight(t *testing.T) {
	t.Parallel()
	states, _ := runDaily(t, []float64{0.5, 1})
	assert.Equal(t, 50_000.0, states[0].TradeSize)
	assert.Equal(t, 100_000.0, states[1].TradeSize, "buy size follows the total weight, not the increment")
	assert.Equal(t, 150_000.0, states[1].CurrentPosition)
}

func TestStepSettlementDelay(t *testing.T) {
	t.Parallel()
	states, outputs := runDaily(t, []float64{1, 1, 1, 1})
	assert.Zero(t, states[1].SellSize)
	assert.Zero(t, states[2].SellSize)
	assert.Equal(t, 100_000.0, states[3].SellSize)
	for i := 1; i < len(outputs); i++ {
		assert.True(t, outputs[i].Rollover)
	}
}

func TestStepIntradayNoRollover(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	s := NewState("SSI", testCash, testDay, testDay.AddDate(0, 1, 0))
	var err error
	var out Output
	for i := range 5 {
		s, out, err = Step(s, Input{Index: i, Signal: 1, Price: testPrice, Time: testDay.Add(time.Duration(i) * time.Hour)}, cfg)
		require.NoError(t, err)
		assert.False(t, out.Rollover)
	}
	assert.Equal(t, 100_000.0, s.T0Size)
	assert.Zero(t, s.T1Size)
}

func TestStepRolloverUsesMarketDate(t *testing.T) {
	t.Parallel()
	prev := time.Date(2024, 1, 2, 23, 30, 0, 0, time.UTC)
	cur := time.Date(2024, 1, 3, 0, 30, 0, 0, time.UTC)

	cfg := testConfig()
	s, _, err := Step(State{}, Input{Signal: 1, Price: testPrice, Time: prev}, cfg)
	require.NoError(t, err)
	_, out, err := Step(s, Input{Index: 1, Price: testPrice, Time: cur}, cfg)
	require.NoError(t, err)
	assert.False(t, out.Rollover, "both bars fall on 2024-01-03 in ICT")

	cfg.Location = time.UTC
	_, out, err = Step(s, Input{Index: 1, Price: testPrice, Time: cur}, cfg)
	require.NoError(t, err)
	assert.True(t, out.Rollover)
}

func TestStepDoesNotMutateInput(t *testing.T) {
	t.Parallel()
	s := NewState("SSI", testCash, testDay, testDay)
	before := s
	next, _, err := Step(s, Input{Signal: 1, Price: testPrice, Time: testDay}, testConfig())
	require.NoError(t, err)
	assert.Equal(t, before, s)
	assert.NotEqual(t, s, next)
}

func TestStepValidation(t *testing.T) {
	t.Parallel()
	prev := State{Candle: testDay}
	for _, tc := range []struct {
		name  string
		state State
		in    Input
		cfg   Config
		field string
		err   error
	}{
		{name: "zero price", in: Input{Index: 3, Price: 0, Time: testDay}, cfg: testConfig(), field: "price", err: ErrNonPositivePrice},
		{name: "negative price", in: Input{Price: -1, Time: testDay}, cfg: testConfig(), field: "price", err: ErrNonPositivePrice},
		{name: "nan price", in: Input{Price: math.NaN(), Time: testDay}, cfg: testConfig(), field: "price", err: ErrNonPositivePrice},
		{name: "nan signal", in: Input{Signal: math.NaN(), Price: 1, Time: testDay}, cfg: testConfig(), field: "signal", err: ErrInvalidSignal},
		{name: "time goes backwards", state: prev, in: Input{Index: 7, Price: 1, Time: testDay.Add(-time.Minute)}, cfg: testConfig(), field: "time", err: ErrNonMonotonicTime},
		{name: "no cash", in: Input{Price: 1, Time: testDay}, cfg: Config{LotSize: 100}, field: "initial_cash", err: ErrInvalidConfig},
		{name: "no lot", in: Input{Price: 1, Time: testDay}, cfg: Config{InitialCash: 1}, field: "lot_size", err: ErrInvalidConfig},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Step(tc.state, tc.in, tc.cfg)
			require.ErrorIs(t, err, tc.err)
			var stepErr *StepError
			require.True(t, errors.As(err, &stepErr), "error must be a *StepError")
			assert.Equal(t, tc.field, stepErr.Field)
			assert.Equal(t, tc.in.Index, stepErr.Index)
			assert.Equal(t, tc.cfg.BotID, stepErr.BotID)
			assert.Contains(t, stepErr.Error(), tc.field)
		})
	}

	_, _, err := Step(prev, Input{Price: 1, Time: testDay}, testConfig())
	assert.NoError(t, err, "equal timestamps are allowed")
}

func TestRun(t *testing.T) {
	t.Parallel()
	times := []time.Time{testDay, testDay.AddDate(0, 0, 1)}
	states, err := Run(State{}, []float64{1, -1}, []float64{testPrice, testPrice}, times, testConfig())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, 1.0, states[1].PendingSellWeight)

	_, err = Run(State{}, []float64{1}, []float64{testPrice, testPrice}, times, testConfig())
	require.ErrorIs(t, err, ErrLengthMismatch)

	_, err = Run(State{}, []float64{1, 1}, []float64{testPrice, 0}, times, testConfig())
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
}

type lotBuy struct {
	rollovers int
	size      float64
}

func TestStepInvariants(t *testing.T) {
	t.Parallel()
	r := rand.New(rand.NewPCG(42, 1024)) //nolint:gosec // deterministic test data
	cfg := testConfig()
	s := NewState("HPG", testCash, testDay, testDay.AddDate(1, 0, 0))
	now := testDay
	var rollovers int
	var buys []lotBuy
	var sold float64
	for i := range 2000 {
		if r.IntN(3) == 0 {
			now = now.AddDate(0, 0, 1)
		} else {
			now = now.Add(15 * time.Minute)
		}
		price := float64(5_000 + r.IntN(95_000))
		signal := r.Float64()*2.4 - 1.2
		if r.IntN(5) == 0 {
			signal = 0
		}
		prevSellable := s.SellSize
		var out Output
		var err error
		s, out, err = Step(s, Input{Index: i, Signal: signal, Price: price, Time: now}, cfg)
		require.NoError(t, err)
		if out.Rollover {
			rollovers++
		}

		require.Equalf(t, s.CurrentPosition, s.Settled(), "conservation violated at bar %d", i)
		require.GreaterOrEqualf(t, s.SellSize, 0.0, "bar %d", i)
		require.GreaterOrEqualf(t, s.T0Size, 0.0, "bar %d", i)
		require.GreaterOrEqualf(t, s.T1Size, 0.0, "bar %d", i)
		require.GreaterOrEqualf(t, s.T2Size, 0.0, "bar %d", i)
		require.GreaterOrEqualf(t, s.CurrentPosition, 0.0, "bar %d", i)
		require.Zerof(t, math.Mod(s.TradeSize, DefaultLotSize), "bar %d trade %v is not a lot multiple", i, s.TradeSize)

		switch s.CurrentAction {
		case Sell:
			require.LessOrEqualf(t, s.TradeSize, prevSellable+sellableAdded(buys, rollovers, out.Rollover), "bar %d oversold", i)
			sold += s.TradeSize
		case Buy:
			buys = append(buys, lotBuy{rollovers: rollovers, size: s.TradeSize})
		}

		var settled float64
		for _, b := range buys {
			if rollovers-b.rollovers >= 3 {
				settled += b.size
			}
		}
		require.Equalf(t, settled-sold, s.SellSize, "bar %d sellable shares do not match shares bought 3 rollovers ago", i)
	}
}

// sellableAdded returns what the rollover on this bar moved into the sellable bucket
func sellableAdded(buys []lotBuy, rollovers int, rolled bool) float64 {
	if !rolled {
		return 0
	}
	var added float64
	for _, b := range buys {
		if rollovers-b.rollovers == 3 {
			added += b.size
		}
	}
	return added
}
