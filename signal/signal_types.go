package signal

import (
	"context"
	"errors"
	"time"

	"github.com/xnoquant/xno/marketdata"
)

const (
	defaultRSIPeriod     = 14
	defaultRSILow        = 30
	defaultRSIHigh       = 70
	defaultFastPeriod    = 5
	defaultSlowPeriod    = 20
	defaultScriptTimeout = 10 * time.Second
	// ScriptSignalsVar is the global a script must assign its signals to
	ScriptSignalsVar = "signals"
)

var (
	// ErrLengthMismatch is returned when a source produces a different number
	// of signals than there are bars
	ErrLengthMismatch = errors.New("signal count does not match bar count")

	errUnknownSource    = errors.New("unknown signal source")
	errInvalidPeriod    = errors.New("indicator period must be positive")
	errInvalidBand      = errors.New("rsi low band must be below the high band")
	errNoScript         = errors.New("no script source provided")
	errScriptNoSignals  = errors.New("script did not assign signals")
	errScriptSignalType = errors.New("script signal is not a number")
	errEmptySeries      = errors.New("market data series is empty")
)

// Source produces one signal per bar. A positive signal is a target weight to
// buy up to, a negative one the fraction of the position to sell and zero is
// hold
type Source interface {
	Generate(ctx context.Context, s *marketdata.Series) ([]float64, error)
}

// Static replays a fixed list of signals
type Static struct {
	Values []float64
}

// Column reads signals from a numeric column. With an empty Path the column
// is read from the series itself, otherwise from the file at Path and
// aligned to the series by bar time, bars without a signal holding
type Column struct {
	Name string
	Path string
}

// RSI buys when the relative strength index is at or below Low and sells when
// it is at or above High
type RSI struct {
	Period int
	Low    float64
	High   float64
}

// SMACross buys on the bar the fast moving average crosses above the slow one
// and sells on the bar it crosses below
type SMACross struct {
	Fast int
	Slow int
}

// Script runs a tengo program. The program receives prices (closes), times
// (unix seconds) and the ta module, and must assign one number per bar to
// signals
type Script struct {
	Name    string
	Source  []byte
	Timeout time.Duration
}
