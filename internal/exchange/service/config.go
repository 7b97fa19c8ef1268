package service

import "github.com/governmentofsc/ATLExchange-sub000/internal/exchange/core"

// Config holds configuration for the exchange service.
type Config struct {
	// CommandBuffer is the size of the inbound command channel.
	CommandBuffer int
	// Fees is the cost structure applied to every trade.
	Fees core.FeePolicy
}

// DefaultConfig returns a Config with reasonable defaults. Fees default to
// zero across all three terms.
func DefaultConfig() Config {
	return Config{
		CommandBuffer: 256,
	}
}
