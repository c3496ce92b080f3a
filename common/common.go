package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors
var (
	ErrNilPointer        = errors.New("nil pointer")
	ErrGettingField      = errors.New("error getting field")
	ErrSettingField      = errors.New("error setting field")
	ErrTypeAssertFailure = errors.New("type assert failure")
	ErrDateUnset         = errors.New("date unset")
	ErrStartAfterEnd     = errors.New("start date after end date")
	ErrEmptyParams       = errors.New("received empty parameters")
)

// SimpleTimeFormat is used when displaying candle times
const SimpleTimeFormat = "2006-01-02 15:04:05"

// AppendError appends an error to a list of existing errors
// Either argument may be:
// * A vanilla error
// * An error implementing Unwrap() []error e.g. fmt.Errorf("%w: %w")
// * nil
// The result will be an error which may be a multiError if multiple errors were non-nil
func AppendError(original, incoming error) error {
	switch {
	case incoming == nil:
		return original
	case original == nil:
		return incoming
	}
	if m, ok := original.(interface{ Unwrap() []error }); ok {
		errs := append([]error{}, m.Unwrap()...)
		return errors.Join(append(errs, incoming)...)
	}
	return errors.Join(original, incoming)
}

// GetTypeAssertError returns additional context for when a type assertion
// fails
func GetTypeAssertError(required string, received any, fieldDescription ...string) error {
	var description string
	if len(fieldDescription) > 0 {
		description = " for: " + strings.Join(fieldDescription, ", ")
	}
	return fmt.Errorf("%w from %T to %s%s", ErrTypeAssertFailure, received, required, description)
}

// StartEndTimeCheck provides some basic checks which occur
// frequently in the codebase
func StartEndTimeCheck(start, end time.Time) error {
	if start.IsZero() || start.Equal(time.Unix(0, 0)) {
		return fmt.Errorf("start %w", ErrDateUnset)
	}
	if end.IsZero() || end.Equal(time.Unix(0, 0)) {
		return fmt.Errorf("end %w", ErrDateUnset)
	}
	if start.After(end) {
		return ErrStartAfterEnd
	}
	return nil
}

// FitStringToLimit ensures a string is of the length of the limit
// either by truncating or padding with the spacer
func FitStringToLimit(str, spacer string, limit int, upper bool) string {
	if limit < 0 {
		return str
	}
	if limit == 0 {
		return ""
	}
	limResp := limit - len(str)
	if upper {
		str = strings.ToUpper(str)
	}
	if limResp < 0 {
		return str[0:limit-3] + "..."
	}
	spacerLen := len(spacer)
	for i := 0; i < limResp; i++ {
		str += spacer
		for j := 0; j < spacerLen; j++ {
			if j > 0 {
				// prevent clever people from going beyond
				// the limit by having a spacer longer than 1
				i++
			}
		}
	}
	return str[0:limit]
}
