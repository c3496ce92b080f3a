package signal

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/thrasher-corp/gct-ta/indicators"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/execution"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/marketdata"
)

// New builds the source described by cfg
func New(cfg *config.SignalConfig) (Source, error) {
	switch strings.ToLower(cfg.Source) {
	case config.SignalStatic:
		return &Static{Values: slices.Clone(cfg.Values)}, nil
	case config.SignalCSV:
		return &Column{Name: cfg.Column, Path: cfg.Path}, nil
	case config.SignalRSI:
		r := &RSI{
			Period: int(setting(cfg.Settings, "period", defaultRSIPeriod)),
			Low:    setting(cfg.Settings, "low", defaultRSILow),
			High:   setting(cfg.Settings, "high", defaultRSIHigh),
		}
		return r, r.validate()
	case config.SignalSMACross:
		c := &SMACross{
			Fast: int(setting(cfg.Settings, "fast", defaultFastPeriod)),
			Slow: int(setting(cfg.Settings, "slow", defaultSlowPeriod)),
		}
		return c, c.validate()
	case config.SignalScript:
		src := []byte(cfg.Script)
		name := "inline"
		if len(src) == 0 && cfg.Path != "" {
			var err error
			if src, err = os.ReadFile(cfg.Path); err != nil {
				return nil, err
			}
			name = cfg.Path
		}
		if len(src) == 0 {
			return nil, errNoScript
		}
		timeout := defaultScriptTimeout
		if secs := setting(cfg.Settings, "timeout", 0); secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
		return &Script{Name: name, Source: src, Timeout: timeout}, nil
	}
	return nil, fmt.Errorf("%w %q", errUnknownSource, cfg.Source)
}

func setting(settings map[string]float64, key string, fallback float64) float64 {
	if v, ok := settings[key]; ok {
		return v
	}
	return fallback
}

// Generate returns a copy of the configured values
func (s *Static) Generate(_ context.Context, _ *marketdata.Series) ([]float64, error) {
	return slices.Clone(s.Values), nil
}

// Generate reads the column
func (c *Column) Generate(_ context.Context, s *marketdata.Series) ([]float64, error) {
	if c.Path == "" {
		values, err := s.Column(c.Name)
		if err != nil {
			return nil, err
		}
		return slices.Clone(values), nil
	}
	loc := execution.ICT
	if s.Len() > 0 {
		loc = s.Times[0].Location()
	}
	other, err := marketdata.LoadFile(c.Path, "", s.Symbol, loc)
	if err != nil {
		return nil, err
	}
	values, err := other.Column(c.Name)
	if err != nil {
		return nil, err
	}
	byTime := make(map[int64]float64, len(values))
	for i := range values {
		byTime[other.Times[i].UnixNano()] = values[i]
	}
	out := make([]float64, s.Len())
	var missing int
	for i := range s.Times {
		v, ok := byTime[s.Times[i].UnixNano()]
		if !ok {
			missing++
		}
		out[i] = v
	}
	if missing > 0 {
		log.Warnf(log.Signal, "%s: %d of %d bars have no signal in %s and will hold", s.Symbol, missing, s.Len(), c.Path)
	}
	return out, nil
}

func (r *RSI) validate() error {
	if r.Period <= 0 {
		return fmt.Errorf("%w: rsi %d", errInvalidPeriod, r.Period)
	}
	if r.Low >= r.High {
		return fmt.Errorf("%w: %v >= %v", errInvalidBand, r.Low, r.High)
	}
	return nil
}

// Generate emits 1 at or below the low band, -1 at or above the high band and
// 0 otherwise. Bars before the indicator has warmed up hold
func (r *RSI) Generate(_ context.Context, s *marketdata.Series) ([]float64, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, errEmptySeries
	}
	rsi := align(indicators.RSI(s.Close, r.Period), s.Len())
	out := make([]float64, s.Len())
	for i := r.Period; i < len(out); i++ {
		switch {
		case rsi[i] <= r.Low:
			out[i] = 1
		case rsi[i] >= r.High:
			out[i] = -1
		}
	}
	log.Debugf(log.Signal, "%s rsi(%d) generated %d signals", s.Symbol, r.Period, countActive(out))
	return out, nil
}

func (c *SMACross) validate() error {
	if c.Fast <= 0 || c.Slow <= 0 {
		return fmt.Errorf("%w: fast %d slow %d", errInvalidPeriod, c.Fast, c.Slow)
	}
	if c.Fast >= c.Slow {
		return fmt.Errorf("%w: fast %d must be shorter than slow %d", errInvalidPeriod, c.Fast, c.Slow)
	}
	return nil
}

// Generate emits 1 on an upward cross, -1 on a downward cross and 0 otherwise
func (c *SMACross) Generate(_ context.Context, s *marketdata.Series) ([]float64, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, errEmptySeries
	}
	fast := align(indicators.SMA(s.Close, c.Fast), s.Len())
	slow := align(indicators.SMA(s.Close, c.Slow), s.Len())
	out := make([]float64, s.Len())
	for i := c.Slow; i < len(out); i++ {
		prev, cur := fast[i-1]-slow[i-1], fast[i]-slow[i]
		switch {
		case prev <= 0 && cur > 0:
			out[i] = 1
		case prev >= 0 && cur < 0:
			out[i] = -1
		}
	}
	log.Debugf(log.Signal, "%s sma cross(%d, %d) generated %d signals", s.Symbol, c.Fast, c.Slow, countActive(out))
	return out, nil
}

// align right aligns an indicator output to n bars, padding the front with
// zeros when the indicator drops its warm up period
func align(values []float64, n int) []float64 {
	if len(values) >= n {
		return values[len(values)-n:]
	}
	out := make([]float64, n)
	copy(out[n-len(values):], values)
	return out
}

func countActive(signals []float64) int {
	var n int
	for _, s := range signals {
		if s != 0 {
			n++
		}
	}
	return n
}
