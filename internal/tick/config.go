package tick

import "time"

// Config holds configuration for the live tick engine.
type Config struct {
	// Interval between tick cycles while the engine is Ticking.
	Interval time.Duration
	// WarnSampleEvery throttles failure logs to one in N occurrences.
	WarnSampleEvery int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Second,
		WarnSampleEvery: 12,
	}
}
