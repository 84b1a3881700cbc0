// Package monitoring carries the per-record capture printout. Workers report
// every accepted measurement through Logf so an operator can watch boards
// stream live; tests and quiet callers redirect or mute it.
package monitoring

import "log"

// Logf is the package-level measurement reporter. It defaults to log.Printf
// (which serialises concurrent writers) and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package reporter. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
