package backtest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/volatiletech/null"
	"github.com/xnoquant/xno/execution"
)

const (
	// DefaultFeeRate is the proportional commission charged on traded value
	DefaultFeeRate = 0.0015
	// BenchmarkLotSize is the lot used to size the buy and hold benchmark
	BenchmarkLotSize = 100
)

// Series names used in Summary.Series
const (
	SeriesActions                    = "actions"
	SeriesPrices                     = "prices"
	SeriesReturns                    = "returns"
	SeriesCumulativeReturns          = "cumulative_returns"
	SeriesFees                       = "fees"
	SeriesPnL                        = "pnl"
	SeriesTradeSizes                 = "trade_sizes"
	SeriesEquities                   = "equities"
	SeriesBenchmarkReturns           = "benchmark_returns"
	SeriesBenchmarkPnL               = "benchmark_pnl"
	SeriesBenchmarkCumulativeReturns = "benchmark_cumulative_returns"
	SeriesBenchmarkEquities          = "benchmark_equities"
	SeriesRollingSharpe              = "rolling_sharpe"
	SeriesRollingVolatility          = "rolling_volatility"
	SeriesDrawdown                   = "drawdown"
)

var (
	// ErrLengthMismatch is returned when the input arrays differ in length
	ErrLengthMismatch = errors.New("input length mismatch")
	// ErrNoData is returned when the input contains no bars
	ErrNoData = errors.New("no bars to backtest")
	// ErrInvalidBookSize is returned for a zero or negative book size
	ErrInvalidBookSize = errors.New("book size must be positive")
	// ErrNonPositivePrice is returned when any price is not positive
	ErrNonPositivePrice = errors.New("price must be positive")

	errInvalidFeeRate = errors.New("fee rate must be within [0, 1)")
)

// Input is the trade history of a completed strategy run. All slices must be
// the same length and share the Times index
type Input struct {
	BotID      string
	Symbol     string
	SymbolType SymbolType
	Timeframe  string
	Mode       TradeMode
	BookSize   float64
	// FeeRate overrides DefaultFeeRate when set; zero means no commission
	FeeRate    null.Float64
	Times      []time.Time
	Prices     []float64
	Positions  []float64
	TradeSizes []float64
	Actions    []execution.Action
}

// InputError is a fatal contract violation found before any computation
type InputError struct {
	BotID string
	// Index is the offending bar, or -1 when the error is not tied to one bar
	Index int
	Field string
	Err   error
}

// Error implements the error interface
func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("bot %q field %q: %v", e.BotID, e.Field, e.Err)
	}
	return fmt.Sprintf("bot %q bar %d field %q: %v", e.BotID, e.Index, e.Field, e.Err)
}

// Unwrap returns the underlying sentinel
func (e *InputError) Unwrap() error {
	return e.Err
}

// Backtest holds the accounting of a single run. Series are computed in New
// and never modified afterwards; analysis, performance and summary are
// computed on first request
type Backtest struct {
	input   Input
	feeRate float64
	periods int
	window  int

	fees              []float64
	pnl               []float64
	equities          []float64
	returns           []float64
	cumulativeReturns []float64

	benchmarkShares            float64
	benchmarkReturns           []float64
	benchmarkPnL               []float64
	benchmarkCumulativeReturns []float64
	benchmarkEquities          []float64

	analysisOnce    sync.Once
	analysis        TradeAnalysis
	performanceOnce sync.Once
	performance     TradePerformance
	summaryOnce     sync.Once
	summary         *Summary
}

// TradeAnalysis summarises the trades of a run
type TradeAnalysis struct {
	StartValue           float64      `json:"start_value"`
	EndValue             float64      `json:"end_value"`
	TotalReturn          float64      `json:"total_return"`
	BenchmarkReturn      float64      `json:"benchmark_return"`
	TotalFee             float64      `json:"total_fee"`
	TotalTrades          int          `json:"total_trades"`
	TotalClosedTrades    int          `json:"total_closed_trades"`
	TotalOpenTrades      int          `json:"total_open_trades"`
	OpenTradePnL         float64      `json:"open_trade_pnl"`
	BestTrade            float64      `json:"best_trade"`
	WorstTrade           float64      `json:"worst_trade"`
	AvgWinTrade          float64      `json:"avg_win_trade"`
	AvgLossTrade         float64      `json:"avg_loss_trade"`
	AvgWinTradeDuration  null.Float64 `json:"avg_win_trade_duration"`
	AvgLossTradeDuration null.Float64 `json:"avg_loss_trade_duration"`
}

// TradePerformance holds the risk and return ratios of the return series
type TradePerformance struct {
	AvgReturn        float64 `json:"avg_return"`
	CumulativeReturn float64 `json:"cumulative_return"`
	AnnualReturn     float64 `json:"annual_return"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	Calmar           float64 `json:"calmar"`
	Omega            float64 `json:"omega"`
	Volatility       float64 `json:"volatility"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	UlcerIndex       float64 `json:"ulcer_index"`
	RecoveryFactor   float64 `json:"recovery_factor"`
	VaR              float64 `json:"var"`
	CVaR             float64 `json:"cvar"`
	TailRatio        float64 `json:"tail_ratio"`
	GainToPainRatio  float64 `json:"gain_to_pain_ratio"`
	KellyCriterion   float64 `json:"kelly_criterion"`
	ProfitFactor     float64 `json:"profit_factor"`
	WinLossRatio     float64 `json:"win_loss_ratio"`
	WinRate          float64 `json:"win_rate"`
}

// SeriesMetric is a named per bar series aligned to Summary.Candles
type SeriesMetric struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// Summary is the complete result of a run handed to reporting and storage
type Summary struct {
	TotalCandles   int                     `json:"total_candles"`
	BotID          string                  `json:"bot_id"`
	Symbol         string                  `json:"symbol"`
	SymbolType     SymbolType              `json:"symbol_type"`
	Timeframe      string                  `json:"timeframe"`
	InitCash       float64                 `json:"init_cash"`
	FromTime       time.Time               `json:"from_time"`
	ToTime         time.Time               `json:"to_time"`
	Mode           TradeMode               `json:"bt_mode"`
	PeriodsPerYear int                     `json:"periods_per_year"`
	RollingWindow  int                     `json:"rolling_window"`
	Analysis       TradeAnalysis           `json:"analysis"`
	Performance    TradePerformance        `json:"performance"`
	Series         map[string]SeriesMetric `json:"series"`
	Candles        []time.Time             `json:"candles"`
}
