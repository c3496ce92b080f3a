package log

import "io"

// Global vars related to the logger package
var (
	subLoggers = map[string]*SubLogger{}

	Global      *SubLogger
	Execution   *SubLogger
	BackTester  *SubLogger
	Runner      *SubLogger
	Signal      *SubLogger
	MarketData  *SubLogger
	ConfigMgr   *SubLogger
	DatabaseMgr *SubLogger
	APIServer   *SubLogger
	Report      *SubLogger
)

// SubLogger defines a sub logger can be used externally for packages wanted to
// share the levels and outputs configured for the process
type SubLogger struct {
	name   string
	levels Levels
	output io.Writer
}

// logFields is used to store data in a non-global and thread-safe manner
// so logs cannot be modified mid-log causing a data-race issue
type logFields struct {
	info   bool
	warn   bool
	debug  bool
	error  bool
	name   string
	output io.Writer
	logger Logger
}
