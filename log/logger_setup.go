package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xnoquant/xno/common/convert"
)

var (
	errSubloggerConfigIsNil       = errors.New("sublogger config is nil")
	errUnhandledOutputWriter      = errors.New("unhandled output writer")
	errSubLoggerNotFound          = errors.New("sub logger not found")
	errSubLoggerAlreadyRegistered = errors.New("sub logger already registered")
	errEmptyLoggerName            = errors.New("cannot have empty logger name")
	errConfigNil                  = errors.New("logger config is nil")
	errFileLoggingNotConfigured   = errors.New("file output requested without file settings")
)

// getWriters must be called with mu held
func getWriters(s *SubLoggerConfig) (io.Writer, error) {
	if s == nil {
		return nil, errSubloggerConfigIsNil
	}
	mw, err := MultiWriter()
	if err != nil {
		return nil, err
	}
	outputWriters := strings.Split(s.Output, "|")
	for x := range outputWriters {
		var writer io.Writer
		switch strings.ToLower(strings.TrimSpace(outputWriters[x])) {
		case "stdout", "console":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		case "file":
			if globalLogFile == nil {
				return nil, errFileLoggingNotConfigured
			}
			writer = globalLogFile
		case "":
			continue
		default:
			return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, outputWriters[x])
		}
		err = mw.Add(writer)
		if err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	return Config{
		Enabled: convert.BoolPtr(true),
		SubLoggerConfig: SubLoggerConfig{
			Level:  defaultLevels,
			Output: "console",
		},
		AdvancedSettings: advancedSettings{
			ShowLogSystemName: convert.BoolPtr(true),
			Spacer:            spacer,
			TimeStampFormat:   timestampFormat,
			Headers: headers{
				Info:  "[INFO]",
				Warn:  "[WARN]",
				Debug: "[DEBUG]",
				Error: "[ERROR]",
			},
		},
	}
}

// SetupGlobalLogger applies the config to the logger and every registered sub
// logger, then any sub logger specific overrides
func SetupGlobalLogger(c *Config) error {
	if c == nil {
		return errConfigNil
	}
	mu.Lock()
	defer mu.Unlock()
	if globalLogFile != nil {
		_ = globalLogFile.Close()
		globalLogFile = nil
	}
	if c.LoggerFileConfig != nil && c.LoggerFileConfig.FileName != "" {
		dir := c.LoggerFileConfig.Path
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o770); err != nil {
			return err
		}
		f, err := os.OpenFile(filepath.Join(dir, c.LoggerFileConfig.FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return err
		}
		globalLogFile = f
	}

	output, err := getWriters(&c.SubLoggerConfig)
	if err != nil {
		return err
	}
	levels := splitLevel(c.Level)
	for _, sl := range subLoggers {
		sl.levels = levels
		sl.output = output
	}
	logger = newLogger(c)
	return setupSubLoggers(c.SubLoggers)
}

// SetupSubLoggers configure all sub loggers with provided configuration values
func SetupSubLoggers(s []SubLoggerConfig) error {
	mu.Lock()
	defer mu.Unlock()
	return setupSubLoggers(s)
}

func setupSubLoggers(s []SubLoggerConfig) error {
	for x := range s {
		output, err := getWriters(&s[x])
		if err != nil {
			return err
		}
		sl, ok := subLoggers[strings.ToUpper(s[x].Name)]
		if !ok {
			return fmt.Errorf("%w: %v", errSubLoggerNotFound, s[x].Name)
		}
		sl.output = output
		sl.levels = splitLevel(s[x].Level)
	}
	return nil
}

// SetLevel sets the levels of a registered sub logger by name
func SetLevel(name, levels string) error {
	mu.Lock()
	defer mu.Unlock()
	sl, ok := subLoggers[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("%w: %v", errSubLoggerNotFound, name)
	}
	sl.levels = splitLevel(levels)
	return nil
}

// CloseLogger closes the log file if one is open
func CloseLogger() error {
	mu.Lock()
	defer mu.Unlock()
	if globalLogFile == nil {
		return nil
	}
	err := globalLogFile.Close()
	globalLogFile = nil
	return err
}

func newLogger(c *Config) Logger {
	return Logger{
		Enabled:           c.Enabled == nil || *c.Enabled,
		ShowLogSystemName: c.AdvancedSettings.ShowLogSystemName != nil && *c.AdvancedSettings.ShowLogSystemName,
		TimestampFormat:   c.AdvancedSettings.TimeStampFormat,
		Spacer:            c.AdvancedSettings.Spacer,
		InfoHeader:        c.AdvancedSettings.Headers.Info,
		ErrorHeader:       c.AdvancedSettings.Headers.Error,
		DebugHeader:       c.AdvancedSettings.Headers.Debug,
		WarnHeader:        c.AdvancedSettings.Headers.Warn,
	}
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(strings.ToUpper(level), "|")
	for x := range enabledLevels {
		switch level := strings.TrimSpace(enabledLevels[x]); level {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

// registerNewSubLogger must be called with mu held or from init
func registerNewSubLogger(subLogger string) *SubLogger {
	temp := &SubLogger{
		name:   strings.ToUpper(subLogger),
		output: os.Stdout,
		levels: splitLevel(defaultLevels),
	}
	subLoggers[temp.name] = temp
	return temp
}

// register all loggers at package init()
func init() {
	def := GenDefaultSettings()
	logger = newLogger(&def)

	Global = registerNewSubLogger("LOG")
	Execution = registerNewSubLogger("EXECUTION")
	BackTester = registerNewSubLogger("BACKTESTER")
	Runner = registerNewSubLogger("RUNNER")
	Signal = registerNewSubLogger("SIGNAL")
	MarketData = registerNewSubLogger("MARKETDATA")
	ConfigMgr = registerNewSubLogger("CONFIG")
	DatabaseMgr = registerNewSubLogger("DATABASE")
	APIServer = registerNewSubLogger("API")
	Report = registerNewSubLogger("REPORT")
}
