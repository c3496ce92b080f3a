package math

import (
	"math"
	"sort"
)

// SafeDivideEpsilon is substituted for a zero denominator in SafeDivide
const SafeDivideEpsilon = 1e-12

// RoundFloat rounds your floating point number to the desired decimal place
func RoundFloat(x float64, prec int) float64 {
	pow := math.Pow(10, float64(prec))
	return math.Round(x*pow) / pow
}

// RoundToLot rounds a share quantity down to the nearest multiple of the
// exchange lot size. A non-positive lot leaves the quantity untouched
func RoundToLot(quantity, lot float64) float64 {
	if lot <= 0 {
		return quantity
	}
	return math.Floor(quantity/lot) * lot
}

// SafeDivide divides numer by denom, substituting SafeDivideEpsilon when denom
// is zero so that series boundaries never produce a division by zero
func SafeDivide(numer, denom float64) float64 {
	if denom == 0 {
		denom = SafeDivideEpsilon
	}
	return numer / denom
}

// CumulativeSum returns the running total of values
func CumulativeSum(values []float64) []float64 {
	resp := make([]float64, len(values))
	var total float64
	for i := range values {
		total += values[i]
		resp[i] = total
	}
	return resp
}

// CompoundReturns returns the cumulative product of (1 + r) minus one for
// each element, the compounded return up to and including that element
func CompoundReturns(returns []float64) []float64 {
	resp := make([]float64, len(returns))
	product := 1.0
	for i := range returns {
		product *= 1 + returns[i]
		resp[i] = product - 1
	}
	return resp
}

// ArithmeticAverage is the basic form of calculating an average.
// Divide the sum of all values by the length of values
func ArithmeticAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumOfValues float64
	for x := range values {
		sumOfValues += values[x]
	}
	return sumOfValues / float64(len(values))
}

// PopulationStandardDeviation calculates standard deviation using population based calculation
func PopulationStandardDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	avg := ArithmeticAverage(values)
	var combined float64
	for x := range values {
		combined += (values[x] - avg) * (values[x] - avg)
	}
	return math.Sqrt(combined / float64(len(values)))
}

// SampleStandardDeviation standard deviation is a statistic that
// measures the dispersion of a dataset relative to its mean and
// is calculated as the square root of the variance. It uses one
// degree of freedom
func SampleStandardDeviation(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}
	mean := ArithmeticAverage(values)
	var combined float64
	for i := range values {
		combined += (values[i] - mean) * (values[i] - mean)
	}
	return math.Sqrt(combined / float64(len(values)-1))
}

// Quantile returns the q-th quantile of values using linear interpolation
// between the closest ranks
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	switch {
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lower := math.Floor(pos)
	upper := math.Ceil(pos)
	if lower == upper {
		return sorted[int(lower)]
	}
	frac := pos - lower
	return sorted[int(lower)] + (sorted[int(upper)]-sorted[int(lower)])*frac
}

// NormalPPF is the inverse of the normal cumulative distribution function
// for a distribution with mean mu and standard deviation sigma
func NormalPPF(p, mu, sigma float64) float64 {
	return mu + sigma*math.Sqrt2*math.Erfinv(2*p-1)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
