package log

import "time"

// Event is a single staged log line handed to a Hook before formatting
type Event struct {
	Header    string
	SubLogger string
	Message   string
	Time      time.Time
}

// Hook receives every staged event. Returning true marks the event handled
// and skips the configured writers
type Hook func(Event) (handled bool)

var hook Hook

// SetHook installs h and returns the hook it replaced so callers can restore
// it. A nil h restores plain writer output
func SetHook(h Hook) Hook {
	mu.Lock()
	defer mu.Unlock()
	prev := hook
	hook = h
	return prev
}

func (l *logFields) hooked(header, data string) bool {
	if hook == nil {
		return false
	}
	return hook(Event{Header: header, SubLogger: l.name, Message: data, Time: time.Now()})
}
