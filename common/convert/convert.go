package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errUnrecognisedTimeFormat = errors.New("unrecognised time format")

// timeLayouts are attempted in order by TimeFromString
var timeLayouts = []string{
	time.RFC3339Nano,
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// FloatFromString format
func FloatFromString(raw any) (float64, error) {
	str, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("unable to parse, value not string: %T", raw)
	}
	flt, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
	if err != nil {
		return 0, fmt.Errorf("could not convert value: %s Error: %w", str, err)
	}
	return flt, nil
}

// TimeFromString parses a bar timestamp. RFC3339 strings carry their own
// offset, layouts without one are read in loc. A purely numeric value is a
// unix timestamp in seconds, or milliseconds when it is too large to be seconds
func TimeFromString(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if loc == nil {
		loc = time.UTC
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if i > 1e11 {
			return time.UnixMilli(i).In(loc), nil
		}
		return time.Unix(i, 0).In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errUnrecognisedTimeFormat, raw)
}

// UnixMillis converts a UnixNano timestamp to milliseconds
func UnixMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// BoolPtr takes in boolen condition and returns pointer version of it
func BoolPtr(condition bool) *bool {
	b := condition
	return &b
}
