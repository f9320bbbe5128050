// Package lifecycle holds the process-wide shutting-down flag set by signal
// handling and read by the health endpoint.
package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// SetShuttingDown marks the service as shutting down (or clears the flag).
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether shutdown has been initiated.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
