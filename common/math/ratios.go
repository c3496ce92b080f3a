package math

import (
	"math"
	"time"
)

// DefaultConfidence is the confidence level used for value at risk
const DefaultConfidence = 0.95

// DefaultTailCutoff is the quantile cutoff used by the tail ratio
const DefaultTailCutoff = 0.95

// Ratio helpers below operate on a per-bar return series. Where a ratio is
// undefined for the data provided, for example a zero standard deviation or
// no losing bars, zero is returned rather than NaN or Inf

// CalculateAverageReturn returns the mean of all non-zero returns
func CalculateAverageReturn(returns []float64) float64 {
	nonZero := filter(returns, func(r float64) bool { return r != 0 })
	return ArithmeticAverage(nonZero)
}

// CalculateCompoundedReturn returns the total compounded return of the series
func CalculateCompoundedReturn(returns []float64) float64 {
	product := 1.0
	for i := range returns {
		product *= 1 + returns[i]
	}
	return product - 1
}

// CalculateSharpeRatio returns the sharpe ratio of the series against the
// risk free rate, annualised by periods
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periods int) float64 {
	if len(returns) <= 1 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate, periods)
	standardDeviation := SampleStandardDeviation(excess)
	if standardDeviation == 0 {
		return 0
	}
	return finite(ArithmeticAverage(excess) / standardDeviation * math.Sqrt(float64(periods)))
}

// CalculateSortinoRatio returns the sortino ratio of the series against the
// risk free rate, annualised by periods. Downside deviation is taken over
// all bars, not only the losing ones
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, periods int) float64 {
	if len(returns) == 0 {
		return 0
	}
	excess := excessReturns(returns, riskFreeRate, periods)
	var totalNegativeResultsSquared float64
	for i := range excess {
		if excess[i] < 0 {
			totalNegativeResultsSquared += excess[i] * excess[i]
		}
	}
	downside := math.Sqrt(totalNegativeResultsSquared / float64(len(excess)))
	if downside == 0 {
		return 0
	}
	return finite(ArithmeticAverage(excess) / downside * math.Sqrt(float64(periods)))
}

// CalculateVolatility returns the annualised sample standard deviation
func CalculateVolatility(returns []float64, periods int) float64 {
	return SampleStandardDeviation(returns) * math.Sqrt(float64(periods))
}

// CalculateDrawdownSeries returns the drawdown of the compounded wealth index
// from its running peak for every bar. Values are zero or negative
func CalculateDrawdownSeries(returns []float64) []float64 {
	resp := make([]float64, len(returns))
	wealth, peak := 1.0, 1.0
	for i := range returns {
		wealth *= 1 + returns[i]
		if i == 0 || wealth > peak {
			peak = wealth
		}
		resp[i] = finite(wealth/peak - 1)
	}
	return resp
}

// CalculateMaxDrawdown returns the largest peak to trough fall of the
// compounded wealth index as a negative fraction
func CalculateMaxDrawdown(returns []float64) float64 {
	var maxDrawdown float64
	drawdowns := CalculateDrawdownSeries(returns)
	for i := range drawdowns {
		if drawdowns[i] < maxDrawdown {
			maxDrawdown = drawdowns[i]
		}
	}
	return maxDrawdown
}

// CalculateUlcerIndex returns the root mean square of the drawdown series
func CalculateUlcerIndex(returns []float64) float64 {
	if len(returns) <= 1 {
		return 0
	}
	drawdowns := CalculateDrawdownSeries(returns)
	var squared float64
	for i := range drawdowns {
		squared += drawdowns[i] * drawdowns[i]
	}
	return math.Sqrt(squared / float64(len(returns)-1))
}

// CalculateRecoveryFactor returns the total return divided by the max drawdown
func CalculateRecoveryFactor(returns []float64) float64 {
	maxDrawdown := CalculateMaxDrawdown(returns)
	if maxDrawdown == 0 {
		return 0
	}
	var total float64
	for i := range returns {
		total += returns[i]
	}
	return math.Abs(total) / math.Abs(maxDrawdown)
}

// CalculateWinRate returns the fraction of non-zero bars that were positive
func CalculateWinRate(returns []float64) float64 {
	var wins, nonZero int
	for i := range returns {
		if returns[i] != 0 {
			nonZero++
		}
		if returns[i] > 0 {
			wins++
		}
	}
	if nonZero == 0 {
		return 0
	}
	return float64(wins) / float64(nonZero)
}

// CalculateWinLossRatio returns the average winning bar divided by the
// magnitude of the average losing bar
func CalculateWinLossRatio(returns []float64) float64 {
	avgWin := ArithmeticAverage(filter(returns, func(r float64) bool { return r > 0 }))
	avgLoss := ArithmeticAverage(filter(returns, func(r float64) bool { return r < 0 }))
	if avgLoss == 0 {
		return 0
	}
	return avgWin / math.Abs(avgLoss)
}

// CalculateProfitFactor returns the sum of non-negative returns divided by the
// magnitude of the sum of negative returns
func CalculateProfitFactor(returns []float64) float64 {
	var gains, losses float64
	for i := range returns {
		if returns[i] >= 0 {
			gains += returns[i]
		} else {
			losses += returns[i]
		}
	}
	if losses == 0 {
		return 0
	}
	return math.Abs(gains / losses)
}

// CalculateKellyCriterion returns the suggested fraction of capital to risk
func CalculateKellyCriterion(returns []float64) float64 {
	winLossRatio := CalculateWinLossRatio(returns)
	if winLossRatio == 0 {
		return 0
	}
	winProbability := CalculateWinRate(returns)
	return (winLossRatio*winProbability - (1 - winProbability)) / winLossRatio
}

// CalculateOmegaRatio returns the probability weighted ratio of gains over
// losses relative to the required return, which is de-annualised by periods
func CalculateOmegaRatio(returns []float64, requiredReturn float64, periods int) float64 {
	if len(returns) < 2 || requiredReturn <= -1 {
		return 0
	}
	threshold := requiredReturn
	if periods > 1 {
		threshold = math.Pow(1+requiredReturn, 1/float64(periods)) - 1
	}
	var numerator, denominator float64
	for i := range returns {
		diff := returns[i] - threshold
		if diff > 0 {
			numerator += diff
		} else {
			denominator -= diff
		}
	}
	if denominator <= 0 {
		return 0
	}
	return numerator / denominator
}

// CalculateTailRatio returns the ratio between the right tail and the left
// tail of the distribution at the cutoff quantile
func CalculateTailRatio(returns []float64, cutoff float64) float64 {
	left := Quantile(returns, 1-cutoff)
	if left == 0 {
		return 0
	}
	return math.Abs(Quantile(returns, cutoff) / left)
}

// CalculateValueAtRisk returns the parametric (variance-covariance) value at
// risk for the given confidence. A confidence above one is treated as a
// percentage
func CalculateValueAtRisk(returns []float64, sigma, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	if confidence > 1 {
		confidence /= 100
	}
	mu := ArithmeticAverage(returns)
	sigma *= SampleStandardDeviation(returns)
	if sigma == 0 {
		return mu
	}
	return finite(NormalPPF(1-confidence, mu, sigma))
}

// CalculateConditionalValueAtRisk returns the expected shortfall: the average
// of the returns worse than the value at risk, or the value at risk itself if
// none are worse
func CalculateConditionalValueAtRisk(returns []float64, sigma, confidence float64) float64 {
	valueAtRisk := CalculateValueAtRisk(returns, sigma, confidence)
	worse := filter(returns, func(r float64) bool { return r < valueAtRisk })
	if len(worse) == 0 {
		return valueAtRisk
	}
	return ArithmeticAverage(worse)
}

// CalculateGainToPainRatio sums returns per calendar day and divides the
// total by the magnitude of the losing days
func CalculateGainToPainRatio(times []time.Time, returns []float64) float64 {
	daily := sumByDay(times, returns)
	var total, downside float64
	for i := range daily {
		total += daily[i]
		if daily[i] < 0 {
			downside += daily[i]
		}
	}
	if downside == 0 {
		return 0
	}
	return total / math.Abs(downside)
}

// CalculateCAGR returns the compound annual growth rate. The elapsed years are
// the whole days between the first and last time divided by periods
func CalculateCAGR(times []time.Time, returns []float64, periods int) float64 {
	if len(times) < 2 || len(times) != len(returns) || periods <= 0 {
		return 0
	}
	days := math.Floor(times[len(times)-1].Sub(times[0]).Hours() / 24)
	years := days / float64(periods)
	if years == 0 {
		return 0
	}
	total := CalculateCompoundedReturn(returns)
	return finite(math.Pow(math.Abs(total+1), 1/years) - 1)
}

// CalculateCalmarRatio returns the compound annual growth rate divided by the
// magnitude of the max drawdown
func CalculateCalmarRatio(times []time.Time, returns []float64, periods int) float64 {
	maxDrawdown := CalculateMaxDrawdown(returns)
	if maxDrawdown == 0 {
		return 0
	}
	return CalculateCAGR(times, returns, periods) / math.Abs(maxDrawdown)
}

// CalculateRollingSharpe returns the annualised sharpe ratio over a trailing
// window. Bars before the window is full are zero
func CalculateRollingSharpe(returns []float64, window, periods int) []float64 {
	resp := make([]float64, len(returns))
	if window <= 1 {
		return resp
	}
	for i := window - 1; i < len(returns); i++ {
		resp[i] = CalculateSharpeRatio(returns[i-window+1:i+1], 0, periods)
	}
	return resp
}

// CalculateRollingVolatility returns the annualised volatility over a
// trailing window. Bars before the window is full are zero
func CalculateRollingVolatility(returns []float64, window, periods int) []float64 {
	resp := make([]float64, len(returns))
	if window <= 1 {
		return resp
	}
	for i := window - 1; i < len(returns); i++ {
		resp[i] = CalculateVolatility(returns[i-window+1:i+1], periods)
	}
	return resp
}

func excessReturns(returns []float64, riskFreeRate float64, periods int) []float64 {
	if riskFreeRate == 0 {
		return returns
	}
	perPeriod := riskFreeRate
	if periods > 0 {
		perPeriod = math.Pow(1+riskFreeRate, 1/float64(periods)) - 1
	}
	resp := make([]float64, len(returns))
	for i := range returns {
		resp[i] = returns[i] - perPeriod
	}
	return resp
}

func sumByDay(times []time.Time, returns []float64) []float64 {
	if len(times) != len(returns) {
		return returns
	}
	var resp []float64
	var lastY, lastD int
	var lastM time.Month
	for i := range returns {
		y, m, d := times[i].Date()
		if i == 0 || y != lastY || m != lastM || d != lastD {
			resp = append(resp, 0)
			lastY, lastM, lastD = y, m, d
		}
		resp[len(resp)-1] += returns[i]
	}
	return resp
}

func filter(values []float64, keep func(float64) bool) []float64 {
	var resp []float64
	for i := range values {
		if keep(values[i]) {
			resp = append(resp, values[i])
		}
	}
	return resp
}
