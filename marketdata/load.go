package marketdata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xnoquant/xno/log"
)

// Supported file formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// LoadFile reads a bar file. An empty format is taken from the file extension
func LoadFile(path, format, symbol string, loc *time.Location) (Series, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	switch strings.ToLower(format) {
	case FormatCSV:
		f, err := os.Open(path)
		if err != nil {
			return Series{}, err
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Errorln(log.MarketData, err)
			}
		}()
		return LoadCSV(f, symbol, loc)
	case FormatJSON:
		b, err := os.ReadFile(path)
		if err != nil {
			return Series{}, err
		}
		return LoadJSON(b, symbol, loc)
	default:
		return Series{}, fmt.Errorf("%w %q for %s", errUnknownFormat, format, path)
	}
}
