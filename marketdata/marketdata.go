package marketdata

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/xnoquant/xno/log"
)

// Len returns the number of bars
func (s *Series) Len() int {
	return len(s.Times)
}

// Validate checks that every column has one value per bar, that times are
// ascending and that all closes are positive
func (s *Series) Validate() error {
	n := len(s.Times)
	if n == 0 {
		return fmt.Errorf("%s: %w", s.Symbol, ErrNoData)
	}
	columns := map[string][]float64{"close": s.Close}
	for name, c := range map[string][]float64{"open": s.Open, "high": s.High, "low": s.Low, "volume": s.Volume} {
		if c != nil {
			columns[name] = c
		}
	}
	for name, c := range s.Extra {
		columns[name] = c
	}
	for name, c := range columns {
		if len(c) != n {
			return fmt.Errorf("%s %w: %s has %d values, times has %d", s.Symbol, ErrLengthMismatch, name, len(c), n)
		}
	}
	for i := range n {
		if i > 0 && !s.Times[i].After(s.Times[i-1]) {
			return fmt.Errorf("%s %w: bar %d %s is not after %s", s.Symbol, ErrUnsortedTimes, i,
				s.Times[i].Format(time.RFC3339), s.Times[i-1].Format(time.RFC3339))
		}
		if !(s.Close[i] > 0) || math.IsInf(s.Close[i], 0) {
			return fmt.Errorf("%s %w: bar %d close %v", s.Symbol, ErrNonPositiveClose, i, s.Close[i])
		}
	}
	return nil
}

// Column returns a numeric column by name. The OHLCV columns are addressed by
// their usual names, anything else is looked up in Extra
func (s *Series) Column(name string) ([]float64, error) {
	var c []float64
	switch strings.ToLower(name) {
	case "open":
		c = s.Open
	case "high":
		c = s.High
	case "low":
		c = s.Low
	case "close":
		c = s.Close
	case "volume":
		c = s.Volume
	default:
		c = s.Extra[strings.ToLower(name)]
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %q", errColumnUnknown, name)
	}
	return c, nil
}

// FilterFrom returns a copy of the series without bars before from. A zero
// from returns the whole series
func (s *Series) FilterFrom(from time.Time) Series {
	start := 0
	if !from.IsZero() {
		start = len(s.Times)
		for i := range s.Times {
			if !s.Times[i].Before(from) {
				start = i
				break
			}
		}
	}
	out := Series{
		Symbol: s.Symbol,
		Times:  slices.Clone(s.Times[start:]),
		Open:   cut(s.Open, start),
		High:   cut(s.High, start),
		Low:    cut(s.Low, start),
		Close:  cut(s.Close, start),
		Volume: cut(s.Volume, start),
	}
	if s.Extra != nil {
		out.Extra = make(map[string][]float64, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = cut(v, start)
		}
	}
	if start > 0 {
		log.Debugf(log.MarketData, "%s dropped %d bars before %s", s.Symbol, start, from.Format(time.DateOnly))
	}
	return out
}

// ScalePrices returns a copy of the series with OHLC multiplied by factor.
// Vietnamese vendors quote prices in thousands of dong
func (s *Series) ScalePrices(factor float64) Series {
	out := s.FilterFrom(time.Time{})
	if factor == 0 || factor == 1 {
		return out
	}
	for _, c := range [][]float64{out.Open, out.High, out.Low, out.Close} {
		for i := range c {
			c[i] *= factor
		}
	}
	return out
}

func cut(values []float64, start int) []float64 {
	if values == nil {
		return nil
	}
	if start > len(values) {
		start = len(values)
	}
	return slices.Clone(values[start:])
}
