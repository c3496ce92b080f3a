package marketdata

import (
	"errors"
	"time"
)

var (
	// ErrNoData is returned when a source contains no bars
	ErrNoData = errors.New("no market data")
	// ErrUnsortedTimes is returned when bar times are not ascending
	ErrUnsortedTimes = errors.New("bar times must be ascending")
	// ErrNonPositiveClose is returned when a close price is zero or negative
	ErrNonPositiveClose = errors.New("close price must be positive")
	// ErrLengthMismatch is returned when series columns differ in length
	ErrLengthMismatch = errors.New("series column length mismatch")

	errMissingColumn = errors.New("missing required column")
	errColumnUnknown = errors.New("column not found")
	errBarNotObject  = errors.New("bar is not an object")
	errUnknownFormat = errors.New("unknown market data format")
)

// Series is an ordered bar series for a single symbol. Extra holds any
// additional numeric columns, keyed by their lower case header name
type Series struct {
	Symbol string
	Times  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
	Extra  map[string][]float64
}
