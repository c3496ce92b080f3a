package execution

import (
	"fmt"
	"math"
	"time"

	xnomath "github.com/xnoquant/xno/common/math"
	"github.com/xnoquant/xno/log"
)

// Step applies one bar to the state and returns the next state. The input
// state is never modified. Steps for the same strategy must be applied in time
// order
func Step(s State, in Input, cfg Config) (State, Output, error) {
	if err := validate(&s, &in, &cfg); err != nil {
		return s, Output{}, err
	}
	next := s
	next.CurrentAction = Hold
	var out Output

	if !s.Candle.IsZero() && dateChanged(s.Candle, in.Time, cfg.location()) {
		log.Debugf(log.Execution, "%s rollover at %s T0: %v T1: %v T2: %v sellable: %v",
			cfg.BotID, in.Time.Format(time.DateTime), next.T0Size, next.T1Size, next.T2Size, next.SellSize)
		next.SellSize += next.T2Size
		next.T2Size = next.T1Size
		next.T1Size = next.T0Size
		next.T0Size = 0
		out.Rollover = true
	}

	out.MaxShares = xnomath.RoundToLot(math.Floor(cfg.InitialCash/in.Price), cfg.LotSize)
	delta := weightDelta(in.Signal, next.CurrentWeight)

	var trade float64
	switch {
	case delta == 0 && next.PendingSellWeight <= 0:
		// hold
	case delta < 0 || next.PendingSellWeight > 0:
		if next.SellSize == 0 {
			log.Debugf(log.Execution, "%s nothing settled at %s, deferring sell of %v",
				cfg.BotID, in.Time.Format(time.DateTime), in.Signal)
			next.PendingSellWeight += math.Abs(in.Signal)
			out.Deferred = true
			break
		}
		canSell := math.Max(next.PendingSellWeight, math.Abs(delta))
		trade = math.Min(next.SellSize, xnomath.RoundToLot(canSell*next.CurrentPosition, cfg.LotSize))
		next.SellSize -= trade
		next.CurrentPosition -= trade
		next.CurrentWeight -= canSell
		next.PendingSellWeight = math.Max(next.PendingSellWeight-canSell, 0)
		next.CurrentAction = Sell
	default:
		next.CurrentWeight += delta
		trade = xnomath.RoundToLot(next.CurrentWeight*out.MaxShares, cfg.LotSize)
		next.T0Size += trade
		next.CurrentPosition += trade
		next.CurrentAction = Buy
	}

	next.CurrentPrice = in.Price
	next.Candle = in.Time
	next.TradeSize = trade
	out.Action = next.CurrentAction
	out.TradeSize = trade
	return next, out, nil
}

// weightDelta clamps the requested change in weight so the allocation never
// exceeds one and never goes below flat
func weightDelta(signal, weight float64) float64 {
	switch {
	case signal > 0:
		return math.Min(signal-weight, 1-weight)
	case signal < 0:
		if weight > 0 {
			return math.Max(signal-weight, -weight)
		}
		return 0
	default:
		return 0
	}
}

func dateChanged(prev, cur time.Time, loc *time.Location) bool {
	py, pm, pd := prev.In(loc).Date()
	cy, cm, cd := cur.In(loc).Date()
	return cy != py || cm != pm || cd != pd
}

func validate(s *State, in *Input, cfg *Config) error {
	stepErr := func(field string, err error) error {
		return &StepError{BotID: cfg.BotID, Index: in.Index, Time: in.Time, Field: field, Err: err}
	}
	switch {
	case cfg.InitialCash <= 0 || math.IsNaN(cfg.InitialCash):
		return stepErr("initial_cash", fmt.Errorf("%w: initial cash %v", ErrInvalidConfig, cfg.InitialCash))
	case cfg.LotSize <= 0:
		return stepErr("lot_size", fmt.Errorf("%w: lot size %v", ErrInvalidConfig, cfg.LotSize))
	case !(in.Price > 0) || math.IsInf(in.Price, 0):
		return stepErr("price", fmt.Errorf("%w: %v", ErrNonPositivePrice, in.Price))
	case math.IsNaN(in.Signal) || math.IsInf(in.Signal, 0):
		return stepErr("signal", ErrInvalidSignal)
	case !s.Candle.IsZero() && in.Time.Before(s.Candle):
		return stepErr("time", fmt.Errorf("%w: %s before %s", ErrNonMonotonicTime,
			in.Time.Format(time.RFC3339), s.Candle.Format(time.RFC3339)))
	}
	return nil
}

func (c *Config) location() *time.Location {
	if c.Location == nil {
		return ICT
	}
	return c.Location
}

// Run steps every bar from a flat state and returns the state after each bar.
// It stops at the first invalid bar
func Run(initial State, signals, prices []float64, times []time.Time, cfg Config) ([]State, error) {
	if len(signals) != len(prices) || len(prices) != len(times) {
		return nil, &StepError{BotID: cfg.BotID, Index: -1, Field: "length",
			Err: fmt.Errorf("%w: signals %d prices %d times %d", ErrLengthMismatch, len(signals), len(prices), len(times))}
	}
	states := make([]State, len(prices))
	s := initial
	for i := range prices {
		var err error
		s, _, err = Step(s, Input{Index: i, Signal: signals[i], Price: prices[i], Time: times[i]}, cfg)
		if err != nil {
			return nil, err
		}
		states[i] = s
	}
	return states, nil
}
