package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/volatiletech/null"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/execution"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/marketdata"
	"github.com/xnoquant/xno/signal"
	"golang.org/x/sync/errgroup"
)

// New validates the config and returns a runner over the market data. store
// may be nil when the latest state does not need publishing
func New(cfg *config.Config, data marketdata.Series, source signal.Source, store *StateStore) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w config", common.ErrNilPointer)
	}
	if source == nil {
		return nil, errNoSignalSource
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:             *cfg,
		execCfg:         cfg.ExecutionConfig(),
		data:            data,
		source:          source,
		store:           store,
		checkpointIndex: -1,
	}
	var err error
	if r.mode, err = cfg.TradeMode(); err != nil {
		return nil, err
	}
	if r.symbolType, err = cfg.SymbolType(); err != nil {
		return nil, err
	}
	if r.engine, err = cfg.Engine(); err != nil {
		return nil, err
	}
	return r, nil
}

// BotID returns the id of the strategy being run
func (r *Runner) BotID() string {
	return r.cfg.Bot.ID
}

// Run steps every bar once. A runner can only run once
func (r *Runner) Run(ctx context.Context) error {
	if r == nil {
		return errNilRunner
	}
	r.m.Lock()
	switch {
	case r.running:
		r.m.Unlock()
		return fmt.Errorf("%w %s", errRunIsRunning, r.cfg.Bot.ID)
	case r.ran:
		r.m.Unlock()
		return fmt.Errorf("%w %s", errAlreadyRan, r.cfg.Bot.ID)
	}
	r.running = true
	r.m.Unlock()

	start := time.Now()
	log.Infof(log.Runner, "Run strategy %s on %s", r.cfg.Bot.ID, r.cfg.Bot.Symbol)
	err := r.run(ctx)
	if err != nil {
		log.Errorf(log.Runner, "Strategy %s failed: %v", r.cfg.Bot.ID, err)
	} else {
		log.Infof(log.Runner, "Strategy %s finished %d bars in %s", r.cfg.Bot.ID, len(r.times), time.Since(start))
	}

	r.m.Lock()
	r.running = false
	r.ran = true
	r.err = err
	r.m.Unlock()
	return err
}

func (r *Runner) run(ctx context.Context) error {
	data := r.data.FilterFrom(r.cfg.Bot.RunFrom)
	if data.Len() == 0 {
		return fmt.Errorf("%w for %s from %s", marketdata.ErrNoData, r.cfg.Bot.Symbol, r.cfg.Bot.RunFrom.Format(time.DateOnly))
	}
	if err := data.Validate(); err != nil {
		return err
	}
	log.Debugf(log.Runner, "Loaded %d bars for %s", data.Len(), r.cfg.Bot.Symbol)

	signals, err := r.source.Generate(ctx, &data)
	if err != nil {
		return err
	}
	if len(signals) != data.Len() {
		return fmt.Errorf("%w: %d signals for %d bars", signal.ErrLengthMismatch, len(signals), data.Len())
	}
	prices := data.ScalePrices(r.cfg.Data.PriceFactor).Close

	n := data.Len()
	r.signals = signals
	r.times = make([]time.Time, 0, n)
	r.prices = make([]float64, 0, n)
	r.positions = make([]float64, 0, n)
	r.tradeSizes = make([]float64, 0, n)
	r.actions = make([]execution.Action, 0, n)

	state := execution.NewState(r.cfg.Bot.Symbol, r.cfg.Bot.InitCash, r.cfg.Bot.RunFrom, r.cfg.Bot.RunTo)
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		state, _, err = execution.Step(state, execution.Input{
			Index:  i,
			Signal: signals[i],
			Price:  prices[i],
			Time:   data.Times[i],
		}, r.execCfg)
		if err != nil {
			return err
		}
		r.actions = append(r.actions, state.CurrentAction)
		r.tradeSizes = append(r.tradeSizes, state.TradeSize)
		r.positions = append(r.positions, state.CurrentPosition)
		r.prices = append(r.prices, state.CurrentPrice)
		r.times = append(r.times, state.Candle)
		if r.cfg.Bot.RunTo.IsZero() || state.Candle.Before(r.cfg.Bot.RunTo) {
			r.checkpointIndex = i
		}
	}
	r.state = state
	r.publish()
	return nil
}

func (r *Runner) publish() {
	if r.store == nil {
		return
	}
	r.store.PublishState(r.botState())
	if r.store.PublishSignal(r.botSignal()) {
		log.Infof(log.Runner, "Signal updated for %s: %s weight %v at %s", r.cfg.Bot.ID,
			r.state.CurrentAction, r.state.CurrentWeight, r.state.Candle.Format(time.DateTime))
	} else {
		log.Debugf(log.Runner, "No signal change for %s", r.cfg.Bot.ID)
	}
}

func (r *Runner) botState() BotState {
	return BotState{
		State:      r.state,
		BotID:      r.cfg.Bot.ID,
		SymbolType: r.symbolType,
		Mode:       r.mode,
		Engine:     r.engine,
	}
}

func (r *Runner) botSignal() BotSignal {
	return BotSignal{
		BotID:         r.cfg.Bot.ID,
		Symbol:        r.state.Symbol,
		SymbolType:    r.symbolType,
		Candle:        r.state.Candle,
		CurrentPrice:  r.state.CurrentPrice,
		CurrentWeight: r.state.CurrentWeight,
		CurrentAction: r.state.CurrentAction,
		Mode:          r.mode,
		Engine:        r.engine,
	}
}

// completed returns nil once the runner has finished without error
func (r *Runner) completed() error {
	r.m.Lock()
	defer r.m.Unlock()
	switch {
	case r.running:
		return fmt.Errorf("%w %s", errRunIsRunning, r.cfg.Bot.ID)
	case !r.ran:
		return fmt.Errorf("%w %s", errRunHasNotRan, r.cfg.Bot.ID)
	}
	return r.err
}

// IsRunning reports whether Run is in progress
func (r *Runner) IsRunning() bool {
	r.m.Lock()
	defer r.m.Unlock()
	return r.running
}

// HasRan reports whether Run has returned
func (r *Runner) HasRan() bool {
	r.m.Lock()
	defer r.m.Unlock()
	return r.ran
}

// State returns the state after the last bar
func (r *Runner) State() (execution.State, error) {
	if err := r.completed(); err != nil {
		return execution.State{}, err
	}
	return r.state, nil
}

// CheckpointIndex returns the last bar before the end of the run window, or
// -1 when no bar is inside it
func (r *Runner) CheckpointIndex() int {
	if r.completed() != nil {
		return -1
	}
	return r.checkpointIndex
}

// Signals returns the signals the run was driven by
func (r *Runner) Signals() ([]float64, error) {
	if err := r.completed(); err != nil {
		return nil, err
	}
	return r.signals, nil
}

// Stats summarises the completed run
func (r *Runner) Stats() (*Stats, error) {
	if err := r.completed(); err != nil {
		return nil, err
	}
	s := &Stats{
		BotID:         r.cfg.Bot.ID,
		Bars:          len(r.times),
		FinalPosition: r.state.CurrentPosition,
		FinalWeight:   r.state.CurrentWeight,
		FinalPrice:    r.state.CurrentPrice,
		FromTime:      r.cfg.Bot.RunFrom,
		ToTime:        r.cfg.Bot.RunTo,
		FinalTime:     r.state.Candle,
	}
	for _, size := range r.tradeSizes {
		if size > 0 {
			s.TotalTrades++
		}
	}
	return s, nil
}

// BacktestInput returns the trade history of the completed run
func (r *Runner) BacktestInput() (backtest.Input, error) {
	if err := r.completed(); err != nil {
		return backtest.Input{}, err
	}
	return backtest.Input{
		BotID:      r.cfg.Bot.ID,
		Symbol:     r.cfg.Bot.Symbol,
		SymbolType: r.symbolType,
		Timeframe:  r.cfg.Bot.Timeframe,
		Mode:       r.mode,
		BookSize:   r.cfg.Bot.InitCash,
		FeeRate:    null.Float64From(r.cfg.Fees.StockPercent),
		Times:      r.times,
		Prices:     r.prices,
		Positions:  r.positions,
		TradeSizes: r.tradeSizes,
		Actions:    r.actions,
	}, nil
}

// Backtest returns the summary of the completed run. It is computed once
func (r *Runner) Backtest() (*backtest.Summary, error) {
	if err := r.completed(); err != nil {
		return nil, err
	}
	r.summaryOnce.Do(func() {
		in, err := r.BacktestInput()
		if err != nil {
			r.summaryErr = err
			return
		}
		bt, err := backtest.New(in)
		if err != nil {
			r.summaryErr = err
			return
		}
		r.summary = bt.Summary()
	})
	return r.summary, r.summaryErr
}

// RunAll runs independent strategies in parallel. The first failure cancels
// the rest
func RunAll(ctx context.Context, runners ...*Runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			return r.Run(ctx)
		})
	}
	return g.Wait()
}
