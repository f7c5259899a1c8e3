// Package scoutlog provides the small stderr logging shim used across
// Scout's core packages. A full structured logging dependency is overkill
// for a CLI that only ever reports warnings and debug traces.
package scoutlog

import (
	"fmt"
	"os"
)

// Warnf prints a warning to stderr. Scout never treats a warning as fatal —
// callers that hit a recoverable condition (a malformed config value, a
// corrupt audit log line) log and continue.
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "scout: warning: "+format+"\n", args...)
}

// Debugf prints a debug message to stderr, but only when SCOUT_DEBUG is set
// to a truthy value. It re-reads the environment on every call so tests can
// toggle it without a package-level init.
func Debugf(format string, args ...any) {
	v := os.Getenv("SCOUT_DEBUG")
	if v != "1" && v != "true" {
		return
	}
	fmt.Fprintf(os.Stderr, "scout: debug: "+format+"\n", args...)
}
