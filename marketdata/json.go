package marketdata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/common/convert"
	"github.com/xnoquant/xno/log"
)

// LoadJSON reads bars from a document of the form
// {"symbol":"SSI","bars":[{"time":"2024-01-02","close":27.5,...}]}.
// Numeric fields other than time become columns in the same way as LoadCSV.
// The symbol in the document is used when symbol is empty
func LoadJSON(b []byte, symbol string, loc *time.Location) (Series, error) {
	if symbol == "" {
		symbol, _ = jsonparser.GetString(b, "symbol")
	}
	s := Series{Symbol: symbol}
	columns := make(map[string][]float64)
	var errs error
	var idx int
	_, err := jsonparser.ArrayEach(b, func(bar []byte, dataType jsonparser.ValueType, _ int, _ error) {
		defer func() { idx++ }()
		if dataType != jsonparser.Object {
			errs = common.AppendError(errs, fmt.Errorf("bar %d: %w, got %s", idx, errBarNotObject, dataType))
			return
		}
		var t time.Time
		seen := 0
		err := jsonparser.ObjectEach(bar, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
			name := strings.ToLower(string(key))
			switch name {
			case "time", "date", "datetime", "timestamp":
				var err error
				t, err = convert.TimeFromString(string(value), loc)
				return err
			}
			if vt != jsonparser.Number && vt != jsonparser.String {
				return fmt.Errorf("%w %q", common.ErrGettingField, name)
			}
			v, err := strconv.ParseFloat(string(value), 64)
			if err != nil {
				return fmt.Errorf("%w %q: %w", common.ErrGettingField, name, err)
			}
			if len(columns[name]) != idx {
				return fmt.Errorf("%w: %q missing on an earlier bar", ErrLengthMismatch, name)
			}
			columns[name] = append(columns[name], v)
			seen++
			return nil
		})
		if err != nil {
			errs = common.AppendError(errs, fmt.Errorf("bar %d: %w", idx, err))
			return
		}
		if t.IsZero() {
			errs = common.AppendError(errs, fmt.Errorf("bar %d: %w", idx, common.ErrDateUnset))
			return
		}
		if seen != len(columns) {
			errs = common.AppendError(errs, fmt.Errorf("bar %d: %w", idx, ErrLengthMismatch))
			return
		}
		s.Times = append(s.Times, t)
	}, "bars")
	if err != nil {
		return Series{}, fmt.Errorf("%w `bars`: %w", common.ErrGettingField, err)
	}
	if errs != nil {
		return Series{}, errs
	}
	if len(s.Times) == 0 {
		return Series{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	if _, ok := columns["close"]; !ok {
		return Series{}, fmt.Errorf("%w: close", errMissingColumn)
	}
	s.assign(columns)
	log.Debugf(log.MarketData, "%s loaded %d bars from json", symbol, len(s.Times))
	return s, s.Validate()
}
