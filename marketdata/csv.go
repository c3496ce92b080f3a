package marketdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xnoquant/xno/common/convert"
	"github.com/xnoquant/xno/log"
)

// LoadCSV reads bars from r. The header must contain time and close, while
// open, high, low and volume are optional. Any other column is parsed as a
// number and stored in Extra. Times without an offset are read in loc
func LoadCSV(r io.Reader, symbol string, loc *time.Location) (Series, error) {
	csvData := csv.NewReader(r)
	csvData.TrimLeadingSpace = true
	header, err := csvData.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Series{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
		}
		return Series{}, err
	}
	timeIdx, closeIdx := -1, -1
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
		switch header[i] {
		case "time", "date", "datetime", "timestamp":
			timeIdx = i
		case "close":
			closeIdx = i
		}
	}
	if timeIdx < 0 {
		return Series{}, fmt.Errorf("%w: time", errMissingColumn)
	}
	if closeIdx < 0 {
		return Series{}, fmt.Errorf("%w: close", errMissingColumn)
	}

	columns := make(map[string][]float64, len(header))
	s := Series{Symbol: symbol}
	for line := 2; ; line++ {
		row, errCSV := csvData.Read()
		if errCSV != nil {
			if errors.Is(errCSV, io.EOF) {
				break
			}
			return Series{}, errCSV
		}
		t, err := convert.TimeFromString(row[timeIdx], loc)
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", line, err)
		}
		s.Times = append(s.Times, t)
		for i := range row {
			if i == timeIdx {
				continue
			}
			v, err := convert.FloatFromString(row[i])
			if err != nil {
				return Series{}, fmt.Errorf("line %d column %s: %w", line, header[i], err)
			}
			columns[header[i]] = append(columns[header[i]], v)
		}
	}
	if len(s.Times) == 0 {
		return Series{}, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	s.assign(columns)
	log.Debugf(log.MarketData, "%s loaded %d bars from csv", symbol, len(s.Times))
	return s, s.Validate()
}

// assign moves the OHLCV columns into their fields and keeps the rest as Extra
func (s *Series) assign(columns map[string][]float64) {
	for name, values := range columns {
		switch name {
		case "open":
			s.Open = values
		case "high":
			s.High = values
		case "low":
			s.Low = values
		case "close":
			s.Close = values
		case "volume":
			s.Volume = values
		default:
			if s.Extra == nil {
				s.Extra = make(map[string][]float64)
			}
			s.Extra[name] = values
		}
	}
}
