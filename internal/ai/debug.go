package ai

import "sync/atomic"

// debugEnabled gates per-tick AI logging. Per-enemy per-tick slog calls are
// too hot to leave on unconditionally.
var debugEnabled atomic.Bool

// EnableDebugLogging toggles verbose AI logging (set from log level at startup).
func EnableDebugLogging(enabled bool) {
	debugEnabled.Store(enabled)
}

// IsDebugEnabled reports whether verbose AI logging is on.
func IsDebugEnabled() bool {
	return debugEnabled.Load()
}
