// FILE: lixenwraith/runconfig/timing.go
package runconfig

import "time"

// Core timing constants for configuration watching.
const (
	MinDebounce          = 10 * time.Millisecond  // Hard floor for change coalescence
	DefaultDebounce      = 500 * time.Millisecond // File change coalescence period
	DefaultReloadTimeout = 5 * time.Second        // Maximum duration for a rebuild
)

// Subscriber limits.
const (
	DefaultMaxWatchers = 100 // Prevent resource exhaustion
	subscriberBuffer   = 10
)
