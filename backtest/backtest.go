package backtest

import (
	"fmt"
	"math"

	"github.com/volatiletech/null"
	xnomath "github.com/xnoquant/xno/common/math"
	"github.com/xnoquant/xno/log"
)

// New validates the input and computes fees, PnL, equity, returns and the buy
// and hold benchmark in one pass. Any contract violation is returned as an
// *InputError before anything is computed
func New(in Input) (*Backtest, error) {
	if err := validate(&in); err != nil {
		return nil, err
	}
	periods, err := PeriodsPerYear(in.Timeframe)
	if err != nil {
		return nil, &InputError{BotID: in.BotID, Index: -1, Field: "timeframe", Err: err}
	}
	feeRate := in.FeeRate.Float64
	switch {
	case !in.FeeRate.Valid:
		feeRate = DefaultFeeRate
	case !(feeRate >= 0 && feeRate < 1):
		return nil, &InputError{BotID: in.BotID, Index: -1, Field: "fee rate", Err: fmt.Errorf("%w: %v", errInvalidFeeRate, feeRate)}
	}
	bt := &Backtest{
		input:   in,
		feeRate: feeRate,
		periods: periods,
		window:  AutoWindow(in.Timeframe),
	}
	bt.calculatePortfolio()
	bt.calculateBenchmark()
	log.Debugf(log.BackTester, "%s computed %d bars, periods per year %d", in.BotID, len(in.Prices), periods)
	return bt, nil
}

func validate(in *Input) error {
	inputErr := func(index int, field string, err error) error {
		return &InputError{BotID: in.BotID, Index: index, Field: field, Err: err}
	}
	n := len(in.Prices)
	lengths := []struct {
		field  string
		length int
	}{
		{"times", len(in.Times)},
		{"positions", len(in.Positions)},
		{"trade_sizes", len(in.TradeSizes)},
		{"actions", len(in.Actions)},
	}
	for _, l := range lengths {
		if l.length != n {
			return inputErr(-1, l.field, fmt.Errorf("%w: %s has %d entries, prices has %d", ErrLengthMismatch, l.field, l.length, n))
		}
	}
	if n == 0 {
		return inputErr(-1, "prices", ErrNoData)
	}
	if !(in.BookSize > 0) || math.IsInf(in.BookSize, 0) {
		return inputErr(-1, "book_size", fmt.Errorf("%w: %v", ErrInvalidBookSize, in.BookSize))
	}
	for i := range in.Prices {
		if !(in.Prices[i] > 0) || math.IsInf(in.Prices[i], 0) {
			return inputErr(i, "prices", fmt.Errorf("%w: %v", ErrNonPositivePrice, in.Prices[i]))
		}
	}
	return nil
}

func (b *Backtest) calculatePortfolio() {
	prices, positions, tradeSizes := b.input.Prices, b.input.Positions, b.input.TradeSizes
	n := len(prices)
	b.fees = make([]float64, n)
	b.pnl = make([]float64, n)
	b.returns = make([]float64, n)
	for i := range n {
		b.fees[i] = math.Abs(tradeSizes[i]) * prices[i] * b.feeRate
		var previousPosition, priceDiff float64
		if i > 0 {
			previousPosition = positions[i-1]
			priceDiff = prices[i] - prices[i-1]
		}
		b.pnl[i] = previousPosition*priceDiff - b.fees[i]
		if i > 0 {
			b.returns[i] = b.pnl[i] / b.input.BookSize
		}
	}
	b.equities = xnomath.CumulativeSum(b.pnl)
	for i := range b.equities {
		b.equities[i] += b.input.BookSize
	}
	b.cumulativeReturns = xnomath.CompoundReturns(b.returns)
}

func (b *Backtest) calculateBenchmark() {
	prices := b.input.Prices
	n := len(prices)
	b.benchmarkShares = xnomath.RoundToLot(math.Floor(b.input.BookSize/prices[0]), BenchmarkLotSize)
	initialFee := b.benchmarkShares * prices[0] * b.feeRate
	b.benchmarkEquities = make([]float64, n)
	b.benchmarkReturns = make([]float64, n)
	b.benchmarkPnL = make([]float64, n)
	for i := range n {
		b.benchmarkEquities[i] = b.benchmarkShares*prices[i] - initialFee
		if i == 0 {
			continue
		}
		b.benchmarkReturns[i] = xnomath.SafeDivide(b.benchmarkEquities[i]-b.benchmarkEquities[i-1], b.benchmarkEquities[i-1])
		b.benchmarkPnL[i] = b.benchmarkReturns[i] * b.input.BookSize
	}
	b.benchmarkCumulativeReturns = xnomath.CompoundReturns(b.benchmarkReturns)
}

// Analysis returns the trade analysis, computing it on first use
func (b *Backtest) Analysis() TradeAnalysis {
	b.analysisOnce.Do(func() {
		b.analysis = b.calculateAnalysis()
	})
	return b.analysis
}

func (b *Backtest) calculateAnalysis() TradeAnalysis {
	last := len(b.equities) - 1
	positions := b.input.Positions
	a := TradeAnalysis{
		StartValue:           b.equities[0],
		EndValue:             b.equities[last],
		BenchmarkReturn:      b.benchmarkCumulativeReturns[last],
		OpenTradePnL:         b.pnl[last],
		AvgWinTradeDuration:  null.Float64{},
		AvgLossTradeDuration: null.Float64{},
	}
	a.TotalReturn = (a.EndValue - a.StartValue) / a.StartValue
	for i := range b.fees {
		a.TotalFee += b.fees[i]
	}
	for i := range b.input.TradeSizes {
		if b.input.TradeSizes[i] != 0 {
			a.TotalTrades++
		}
	}
	if positions[last] != 0 {
		a.TotalOpenTrades = 1
	}
	for i := 1; i < len(positions); i++ {
		prev, cur := sign(positions[i-1]), sign(positions[i])
		if prev != 0 && prev != cur {
			a.TotalClosedTrades++
		}
	}

	a.BestTrade, a.WorstTrade = b.returns[0], b.returns[0]
	var wins, losses []float64
	for _, r := range b.returns {
		a.BestTrade = math.Max(a.BestTrade, r)
		a.WorstTrade = math.Min(a.WorstTrade, r)
		switch {
		case r > 0:
			wins = append(wins, r)
		case r < 0:
			losses = append(losses, r)
		}
	}
	a.AvgWinTrade = xnomath.ArithmeticAverage(wins)
	a.AvgLossTrade = xnomath.ArithmeticAverage(losses)
	return a
}

// Performance returns the risk and return ratios, computing them on first use
func (b *Backtest) Performance() TradePerformance {
	b.performanceOnce.Do(func() {
		b.performance = b.calculatePerformance()
	})
	return b.performance
}

func (b *Backtest) calculatePerformance() TradePerformance {
	r, t := b.returns, b.input.Times
	return TradePerformance{
		AvgReturn:        xnomath.CalculateAverageReturn(r),
		CumulativeReturn: xnomath.CalculateCompoundedReturn(r),
		AnnualReturn:     xnomath.CalculateCAGR(t, r, b.periods),
		Sharpe:           xnomath.CalculateSharpeRatio(r, 0, b.periods),
		Sortino:          xnomath.CalculateSortinoRatio(r, 0, b.periods),
		Calmar:           xnomath.CalculateCalmarRatio(t, r, b.periods),
		Omega:            xnomath.CalculateOmegaRatio(r, 0, b.periods),
		Volatility:       xnomath.CalculateVolatility(r, b.periods),
		MaxDrawdown:      xnomath.CalculateMaxDrawdown(r),
		UlcerIndex:       xnomath.CalculateUlcerIndex(r),
		RecoveryFactor:   xnomath.CalculateRecoveryFactor(r),
		VaR:              xnomath.CalculateValueAtRisk(r, 1, xnomath.DefaultConfidence),
		CVaR:             xnomath.CalculateConditionalValueAtRisk(r, 1, xnomath.DefaultConfidence),
		TailRatio:        xnomath.CalculateTailRatio(r, xnomath.DefaultTailCutoff),
		GainToPainRatio:  xnomath.CalculateGainToPainRatio(t, r),
		KellyCriterion:   xnomath.CalculateKellyCriterion(r),
		ProfitFactor:     xnomath.CalculateProfitFactor(r),
		WinLossRatio:     xnomath.CalculateWinLossRatio(r),
		WinRate:          xnomath.CalculateWinRate(r),
	}
}

// Summary returns the full result of the run, computing it on first use. The
// returned value is shared and must not be modified
func (b *Backtest) Summary() *Summary {
	b.summaryOnce.Do(func() {
		b.summary = b.buildSummary()
	})
	return b.summary
}

func (b *Backtest) buildSummary() *Summary {
	actions := make([]float64, len(b.input.Actions))
	for i := range b.input.Actions {
		actions[i] = float64(b.input.Actions[i])
	}
	series := map[string][]float64{
		SeriesActions:                    actions,
		SeriesPrices:                     b.input.Prices,
		SeriesReturns:                    b.returns,
		SeriesCumulativeReturns:          b.cumulativeReturns,
		SeriesFees:                       b.fees,
		SeriesPnL:                        b.pnl,
		SeriesTradeSizes:                 b.input.TradeSizes,
		SeriesEquities:                   b.equities,
		SeriesBenchmarkReturns:           b.benchmarkReturns,
		SeriesBenchmarkPnL:               b.benchmarkPnL,
		SeriesBenchmarkCumulativeReturns: b.benchmarkCumulativeReturns,
		SeriesBenchmarkEquities:          b.benchmarkEquities,
		SeriesRollingSharpe:              xnomath.CalculateRollingSharpe(b.returns, b.window, b.periods),
		SeriesRollingVolatility:          xnomath.CalculateRollingVolatility(b.returns, b.window, b.periods),
		SeriesDrawdown:                   xnomath.CalculateDrawdownSeries(b.returns),
	}
	s := &Summary{
		TotalCandles:   len(b.input.Times),
		BotID:          b.input.BotID,
		Symbol:         b.input.Symbol,
		SymbolType:     b.input.SymbolType,
		Timeframe:      b.input.Timeframe,
		InitCash:       b.input.BookSize,
		FromTime:       b.input.Times[0],
		ToTime:         b.input.Times[len(b.input.Times)-1],
		Mode:           b.input.Mode,
		PeriodsPerYear: b.periods,
		RollingWindow:  b.window,
		Analysis:       b.Analysis(),
		Performance:    b.Performance(),
		Series:         make(map[string]SeriesMetric, len(series)),
		Candles:        b.input.Times,
	}
	for name, values := range series {
		s.Series[name] = SeriesMetric{Name: name, Values: values}
	}
	return s
}

// BotID returns the bot the backtest belongs to
func (b *Backtest) BotID() string { return b.input.BotID }

// PeriodsPerYear returns the annualisation factor used for the ratios
func (b *Backtest) PeriodsPerYear() int { return b.periods }

// BenchmarkShares returns the number of shares bought by the benchmark on the first bar
func (b *Backtest) BenchmarkShares() float64 { return b.benchmarkShares }

// Fees returns the commission paid on each bar
func (b *Backtest) Fees() []float64 { return b.fees }

// PnL returns the profit and loss of each bar net of fees
func (b *Backtest) PnL() []float64 { return b.pnl }

// Equities returns the book size plus cumulative PnL at each bar
func (b *Backtest) Equities() []float64 { return b.equities }

// Returns returns each bar's PnL relative to the book size
func (b *Backtest) Returns() []float64 { return b.returns }

// CumulativeReturns returns the compounded returns up to each bar
func (b *Backtest) CumulativeReturns() []float64 { return b.cumulativeReturns }

// BenchmarkEquities returns the value of the buy and hold position at each bar
func (b *Backtest) BenchmarkEquities() []float64 { return b.benchmarkEquities }

// BenchmarkReturns returns the bar on bar returns of the benchmark
func (b *Backtest) BenchmarkReturns() []float64 { return b.benchmarkReturns }

// BenchmarkPnL returns benchmark returns scaled by the book size
func (b *Backtest) BenchmarkPnL() []float64 { return b.benchmarkPnL }

// BenchmarkCumulativeReturns returns the compounded benchmark returns
func (b *Backtest) BenchmarkCumulativeReturns() []float64 { return b.benchmarkCumulativeReturns }

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
