package log

import (
	"io"
	"strings"
)

// NewSubLogger allows for a new sub logger to be registered.
func NewSubLogger(name string) (*SubLogger, error) {
	if name == "" {
		return nil, errEmptyLoggerName
	}
	name = strings.ToUpper(name)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := subLoggers[name]; ok {
		return nil, errSubLoggerAlreadyRegistered
	}
	return registerNewSubLogger(name), nil
}

// Name returns the sub logger's registered name
func (sl *SubLogger) Name() string {
	if sl == nil {
		return ""
	}
	return sl.name
}

// SetOutput overrides the default output with a new writer
func (sl *SubLogger) SetOutput(o io.Writer) {
	mu.Lock()
	sl.output = o
	mu.Unlock()
}

// SetLevels overrides the default levels with new levels
func (sl *SubLogger) SetLevels(newLevels Levels) {
	mu.Lock()
	sl.levels = newLevels
	mu.Unlock()
}

// GetLevels returns current functional log levels
func (sl *SubLogger) GetLevels() Levels {
	mu.RLock()
	defer mu.RUnlock()
	return sl.levels
}

// getFields must be called with mu held for reading
func (sl *SubLogger) getFields() *logFields {
	if sl == nil || !logger.Enabled || sl.output == nil {
		return nil
	}
	return &logFields{
		info:   sl.levels.Info,
		warn:   sl.levels.Warn,
		debug:  sl.levels.Debug,
		error:  sl.levels.Error,
		name:   sl.name,
		output: sl.output,
		logger: logger,
	}
}
