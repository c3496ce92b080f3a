package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	ratioPlaces   = 4
	percentPlaces = 2
	notAvailable  = "n/a"
)

var errSeriesLength = errors.New("series length does not match candle count")

// SeriesOrder is the column order used by WriteSeriesCSV
var SeriesOrder = []string{
	backtest.SeriesActions,
	backtest.SeriesPrices,
	backtest.SeriesTradeSizes,
	backtest.SeriesFees,
	backtest.SeriesPnL,
	backtest.SeriesEquities,
	backtest.SeriesReturns,
	backtest.SeriesCumulativeReturns,
	backtest.SeriesBenchmarkReturns,
	backtest.SeriesBenchmarkPnL,
	backtest.SeriesBenchmarkCumulativeReturns,
	backtest.SeriesBenchmarkEquities,
	backtest.SeriesRollingSharpe,
	backtest.SeriesRollingVolatility,
	backtest.SeriesDrawdown,
}

// Print writes a human readable report of the summary. Amounts are printed in
// whole dong with Vietnamese digit grouping
func Print(w io.Writer, s *backtest.Summary) error {
	if s == nil {
		return fmt.Errorf("%w summary", common.ErrNilPointer)
	}
	p := message.NewPrinter(language.Vietnamese)
	a, perf := &s.Analysis, &s.Performance
	lines := []string{
		"------------------Strategy-----------------------------------",
		"Bot: " + s.BotID,
		"Symbol: " + s.Symbol + " (" + string(s.SymbolType) + ")",
		"Timeframe: " + s.Timeframe,
		"Mode: " + string(s.Mode),
		"Period: " + s.FromTime.Format(time.DateTime) + " - " + s.ToTime.Format(time.DateTime),
		"Candles: " + p.Sprintf("%d", s.TotalCandles),
		"Initial cash: " + money(p, s.InitCash),
		"",
		"------------------Trades-------------------------------------",
		"Start value: " + money(p, a.StartValue),
		"End value: " + money(p, a.EndValue),
		"Total return: " + percent(a.TotalReturn),
		"Benchmark return: " + percent(a.BenchmarkReturn),
		"Total fee: " + money(p, a.TotalFee),
		"Total trades: " + p.Sprintf("%d", a.TotalTrades),
		"Closed trades: " + p.Sprintf("%d", a.TotalClosedTrades),
		"Open trades: " + p.Sprintf("%d", a.TotalOpenTrades),
		"Open trade PnL: " + money(p, a.OpenTradePnL),
		"Best trade: " + percent(a.BestTrade),
		"Worst trade: " + percent(a.WorstTrade),
		"Average win: " + percent(a.AvgWinTrade),
		"Average loss: " + percent(a.AvgLossTrade),
		"Average win duration: " + optional(a.AvgWinTradeDuration),
		"Average loss duration: " + optional(a.AvgLossTradeDuration),
		"",
		"------------------Performance--------------------------------",
		"Average return: " + percent(perf.AvgReturn),
		"Cumulative return: " + percent(perf.CumulativeReturn),
		"Annual return: " + percent(perf.AnnualReturn),
		"Volatility: " + percent(perf.Volatility),
		"Max drawdown: " + percent(perf.MaxDrawdown),
		"Sharpe: " + ratio(perf.Sharpe),
		"Sortino: " + ratio(perf.Sortino),
		"Calmar: " + ratio(perf.Calmar),
		"Omega: " + ratio(perf.Omega),
		"Ulcer index: " + ratio(perf.UlcerIndex),
		"Recovery factor: " + ratio(perf.RecoveryFactor),
		"VaR: " + percent(perf.VaR),
		"CVaR: " + percent(perf.CVaR),
		"Tail ratio: " + ratio(perf.TailRatio),
		"Gain to pain: " + ratio(perf.GainToPainRatio),
		"Kelly criterion: " + ratio(perf.KellyCriterion),
		"Profit factor: " + ratio(perf.ProfitFactor),
		"Win/loss ratio: " + ratio(perf.WinLossRatio),
		"Win rate: " + percent(perf.WinRate),
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\n"); err != nil {
			return err
		}
	}
	log.Debugf(log.Report, "Printed report for %s", s.BotID)
	return nil
}

// WriteSeriesCSV writes one row per candle with every series of the summary
// as a column. Series missing from the summary are skipped
func WriteSeriesCSV(w io.Writer, s *backtest.Summary) error {
	if s == nil {
		return fmt.Errorf("%w summary", common.ErrNilPointer)
	}
	header := []string{"time"}
	columns := make([][]float64, 0, len(SeriesOrder))
	for _, name := range SeriesOrder {
		m, ok := s.Series[name]
		if !ok {
			continue
		}
		if len(m.Values) != len(s.Candles) {
			return fmt.Errorf("%w: %s has %d values for %d candles", errSeriesLength, name, len(m.Values), len(s.Candles))
		}
		header = append(header, name)
		columns = append(columns, m.Values)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i := range s.Candles {
		row[0] = s.Candles[i].Format(time.RFC3339)
		for j, c := range columns {
			row[j+1] = strconv.FormatFloat(c[i], 'f', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	log.Debugf(log.Report, "Wrote %d series rows for %s", len(s.Candles), s.BotID)
	return nil
}

// toDecimal maps NaN and infinities to zero, decimal cannot hold them
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

func money(p *message.Printer, v float64) string {
	return p.Sprintf("%d VND", toDecimal(v).Round(0).IntPart())
}

func percent(v float64) string {
	return toDecimal(v).Shift(2).StringFixed(percentPlaces) + "%"
}

func ratio(v float64) string {
	return toDecimal(v).StringFixed(ratioPlaces)
}

func optional(v null.Float64) string {
	if !v.Valid {
		return notAvailable
	}
	return ratio(v.Float64)
}
