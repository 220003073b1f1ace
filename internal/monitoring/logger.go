package monitoring

import "log"

// Logf is the toolkit-wide diagnostic logger. It defaults to log.Printf.
// Long-running inversions report progress through it; tests can capture or
// mute it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
