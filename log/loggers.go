package log

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Info takes a pointer subLogger struct and string sends to the output
func Info(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(infoLevel), data)
}

// Infoln takes a pointer subLogger struct and interface sends to the output
func Infoln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(infoLevel), fmt.Sprintln(v...))
}

// Infof takes a pointer subLogger struct, string and interface formats sends to the output
func Infof(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(infoLevel), fmt.Sprintf(data, v...))
}

// Debug takes a pointer subLogger struct and string sends to the output
func Debug(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(debugLevel), data)
}

// Debugln takes a pointer subLogger struct, string and interface sends to the output
func Debugln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(debugLevel), fmt.Sprintln(v...))
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to the output
func Debugf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(debugLevel), fmt.Sprintf(data, v...))
}

// Warn takes a pointer subLogger struct & string and sends to the output
func Warn(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(warnLevel), data)
}

// Warnln takes a pointer subLogger struct & interface formats and sends to the output
func Warnln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(warnLevel), fmt.Sprintln(v...))
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to the output
func Warnf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(warnLevel), fmt.Sprintf(data, v...))
}

// Error takes a pointer subLogger struct & interface formats and sends to the output
func Error(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(errorLevel), data)
}

// Errorln takes a pointer subLogger struct, string & interface formats and sends to the output
func Errorln(sl *SubLogger, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(errorLevel), fmt.Sprintln(v...))
}

// Errorf takes a pointer subLogger struct, string and interface formats and sends to the output
func Errorf(sl *SubLogger, data string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()
	fields := sl.getFields()
	fields.stage(fields.header(errorLevel), fmt.Sprintf(data, v...))
}

type level uint8

const (
	infoLevel level = iota
	warnLevel
	debugLevel
	errorLevel
)

// header returns the configured header for the level, or an empty string when
// the level is disabled for this sub logger
func (l *logFields) header(lvl level) string {
	if l == nil {
		return ""
	}
	switch lvl {
	case infoLevel:
		if l.info {
			return l.logger.InfoHeader
		}
	case warnLevel:
		if l.warn {
			return l.logger.WarnHeader
		}
	case debugLevel:
		if l.debug {
			return l.logger.DebugHeader
		}
	case errorLevel:
		if l.error {
			return l.logger.ErrorHeader
		}
	}
	return ""
}

// stage writes a log event, mu must be held for reading
func (l *logFields) stage(header, data string) {
	if l == nil || header == "" {
		return
	}
	if l.hooked(header, data) {
		return
	}
	var sb strings.Builder
	sb.WriteString(header)
	if l.logger.TimestampFormat != "" {
		sb.WriteString(time.Now().Format(l.logger.TimestampFormat))
	}
	if l.logger.ShowLogSystemName {
		sb.WriteString(l.logger.Spacer)
		sb.WriteString(l.name)
	}
	sb.WriteString(l.logger.Spacer)
	sb.WriteString(strings.TrimRight(data, "\n"))
	sb.WriteByte('\n')
	displayError(writeString(l, sb.String()))
}

func writeString(l *logFields, s string) error {
	_, err := l.output.Write([]byte(s))
	return err
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}
