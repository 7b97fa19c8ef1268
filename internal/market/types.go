package market

import (
	"fmt"
	"math"
	"time"
)

// PricePoint is one bar in a price history series. At most one point in a
// series has Live set, and it is always the last one.
type PricePoint struct {
	Label  string  `json:"time"`
	Price  float64 `json:"price"`
	Volume int64   `json:"volume,omitempty"`
	Live   bool    `json:"isLive,omitempty"`
}

// Stock is the shared, store-resident state of one listed instrument.
// It is mutated by the live tick engine (every tick) and by trade execution
// (on every accepted order), and is never deleted, only reset.
type Stock struct {
	Ticker        string       `json:"ticker"`
	Name          string       `json:"name"`
	Price         float64      `json:"price"`
	Open          float64      `json:"open"`
	High          float64      `json:"high"`
	Low           float64      `json:"low"`
	MarketCap     float64      `json:"marketCap"`
	PE            float64      `json:"pe"`
	Dividend      float64      `json:"dividend"`
	QtrlyDiv      float64      `json:"qtrlyDiv"`
	High52W       float64      `json:"high52w"`
	Low52W        float64      `json:"low52w"`
	History       []PricePoint `json:"history,omitempty"`
	LastMomentum  float64      `json:"lastMomentum"`
	LastUpdate    int64        `json:"lastUpdate"`
	LastTradeTime int64        `json:"lastTradeTime,omitempty"`
	ManualTrade   bool         `json:"manualTrade,omitempty"`
}

// SharesOutstanding returns the implied share count at the last recompute.
func (s Stock) SharesOutstanding() float64 {
	if s.Price <= 0 {
		return 0
	}
	return s.MarketCap / s.Price
}

// CheckFinite reports the first numeric field that is NaN or infinite.
func (s Stock) CheckFinite() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"price", s.Price},
		{"open", s.Open},
		{"high", s.High},
		{"low", s.Low},
		{"marketCap", s.MarketCap},
		{"pe", s.PE},
		{"dividend", s.Dividend},
		{"qtrlyDiv", s.QtrlyDiv},
		{"high52w", s.High52W},
		{"low52w", s.Low52W},
		{"lastMomentum", s.LastMomentum},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("stock %s: field %s is not finite", s.Ticker, f.name)
		}
	}
	for i, p := range s.History {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			return fmt.Errorf("stock %s: history[%d] price is not finite", s.Ticker, i)
		}
	}
	return nil
}

// Account is one user's balance and holdings.
type Account struct {
	Username  string           `json:"username"`
	Password  string           `json:"password"` // toy credential check, not hardened
	Balance   float64          `json:"balance"`
	Portfolio map[string]int64 `json:"portfolio,omitempty"`
}

// Shares returns the held quantity for ticker, zero if none.
func (a Account) Shares(ticker string) int64 {
	if a.Portfolio == nil {
		return 0
	}
	return a.Portfolio[ticker]
}

// TradeType distinguishes the two sides of a trade record.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// TradeRecord is the immutable, append-only record of one accepted order.
type TradeRecord struct {
	ID          string    `json:"id"`
	Timestamp   int64     `json:"timestamp"`
	Type        TradeType `json:"type"`
	Ticker      string    `json:"ticker"`
	Quantity    int64     `json:"quantity"`
	Price       float64   `json:"price"`
	Total       float64   `json:"total"`
	PriceImpact float64   `json:"priceImpact"`
	NewPrice    float64   `json:"newPrice"`
}

// MarketState is the single running flag plus the session metadata the
// coordinator mirrors in. Mutated only by admin start/stop intents and by the
// coordinator.
type MarketState struct {
	Running   bool   `json:"running"`
	SessionID string `json:"sessionId,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	User      string `json:"user,omitempty"`
	TickMs    int64  `json:"tickMs,omitempty"`
}

// ControllerRecord is the soft leader lease. A client considers itself leader
// when the record is missing, stale, or carries its own session id.
type ControllerRecord struct {
	SessionID string `json:"sessionId"`
	Timestamp int64  `json:"timestamp"`
	User      string `json:"user"`
}

// StaleAfter reports whether the lease heartbeat is older than ttl at now.
func (c ControllerRecord) StaleAfter(ttl time.Duration, now time.Time) bool {
	return now.UnixMilli()-c.Timestamp > ttl.Milliseconds()
}

// Round2 rounds a price to cents. Every price that leaves the simulation is
// rounded this way.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// SanitizePrice replaces a non-finite or non-positive price with fallback.
func SanitizePrice(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fallback
	}
	return v
}
