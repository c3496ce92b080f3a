package backtest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// minutesPerTradingDay is the length of a HOSE session used to annualise
	minutesPerTradingDay = 5.5 * 60
	// tradingDaysPerYear is the annualisation base for a daily bar
	tradingDaysPerYear = 250
	// intradayWindowMinutesPerDay is the continuous matching time used to size
	// intraday rolling windows
	intradayWindowMinutesPerDay = 285
	intradayWindowDays          = 21
	minimumIntradayWindow       = 20
	maximumIntradayWindow       = 5000
	unknownTimeframeWindow      = 100
)

// ErrUnrecognisedTimeframe is returned when a timeframe string cannot be parsed
var ErrUnrecognisedTimeframe = errors.New("unrecognised timeframe")

// TimeframeMinutes returns the number of trading minutes covered by one bar.
// "1D" is a full session, "1W" five sessions and "1M" twenty one sessions.
// Anything else is read as N minutes ("15m", "5min") or N hours ("1h")
func TimeframeMinutes(timeframe string) (float64, error) {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	var (
		minutes float64
		err     error
	)
	switch tf {
	case "1d", "d", "day":
		return minutesPerTradingDay, nil
	case "1w", "w", "week":
		return minutesPerTradingDay * 5, nil
	case "1m", "1mo", "month":
		return minutesPerTradingDay * 21, nil
	}
	switch {
	case strings.Contains(tf, "min"):
		minutes, err = strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(tf, "min", "")), 64)
	case strings.Contains(tf, "m"):
		minutes, err = strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(tf, "m", "")), 64)
	case strings.Contains(tf, "h"):
		minutes, err = strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(tf, "h", "")), 64)
		minutes *= 60
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnrecognisedTimeframe, timeframe)
	}
	if err != nil || !(minutes > 0) {
		return 0, fmt.Errorf("%w: %q", ErrUnrecognisedTimeframe, timeframe)
	}
	return minutes, nil
}

// PeriodsPerYear returns how many bars of the timeframe make up a trading year
func PeriodsPerYear(timeframe string) (int, error) {
	minutes, err := TimeframeMinutes(timeframe)
	if err != nil {
		return 0, err
	}
	periods := int(minutesPerTradingDay / minutes * tradingDaysPerYear)
	if periods < 1 {
		return 0, fmt.Errorf("%w: %q spans more than a year", ErrUnrecognisedTimeframe, timeframe)
	}
	return periods, nil
}

// AutoWindow returns a recommended rolling window in bars. Daily and slower
// timeframes use roughly six months or a year, intraday timeframes one month
// of sessions. Unknown formats fall back to 100 bars
func AutoWindow(timeframe string) int {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	switch tf {
	case "1d", "d", "day":
		return 126
	case "1w", "w", "week":
		return 26
	case "1m", "m", "month":
		return 12
	}
	var barMinutes int
	switch {
	case strings.HasSuffix(tf, "m"):
		n, err := strconv.Atoi(strings.TrimSuffix(tf, "m"))
		if err != nil {
			n = 5
		}
		barMinutes = n
	case strings.HasSuffix(tf, "h"):
		n, err := strconv.Atoi(strings.TrimSuffix(tf, "h"))
		if err != nil {
			n = 1
		}
		barMinutes = n * 60
	default:
		return unknownTimeframeWindow
	}
	if barMinutes <= 0 {
		return unknownTimeframeWindow
	}
	window := intradayWindowMinutesPerDay / barMinutes * intradayWindowDays
	return max(minimumIntradayWindow, min(window, maximumIntradayWindow))
}
