package market

import "fmt"

// Store paths. The document store is schemaless; these are the only paths the
// exchange reads or writes.
const (
	PathStocks     = "stocks"
	PathUsers      = "users"
	PathState      = "marketState"
	PathController = "marketController"
)

// TradePath returns the append-only per-user trade log path. Records are
// keyed by millisecond timestamp and never rewritten.
func TradePath(username string, ts int64) string {
	return fmt.Sprintf("tradingHistory/%s/%d", username, ts)
}
