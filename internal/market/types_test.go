package market

import (
	"math"
	"testing"
	"time"
)

func TestRound2(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{1.234, 1.23},
		{1.236, 1.24},
		{100.0, 100.0},
		{-1.234, -1.23},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSanitizePrice(t *testing.T) {
	if got := SanitizePrice(math.NaN(), 5); got != 5 {
		t.Fatalf("NaN not replaced: %v", got)
	}
	if got := SanitizePrice(math.Inf(1), 5); got != 5 {
		t.Fatalf("Inf not replaced: %v", got)
	}
	if got := SanitizePrice(-1, 5); got != 5 {
		t.Fatalf("negative not replaced: %v", got)
	}
	if got := SanitizePrice(3.14, 5); got != 3.14 {
		t.Fatalf("valid price changed: %v", got)
	}
}

func TestSharesOutstanding(t *testing.T) {
	s := Stock{Price: 100, MarketCap: 100_000_000}
	if got := s.SharesOutstanding(); got != 1_000_000 {
		t.Fatalf("got %v", got)
	}
	if got := (Stock{}).SharesOutstanding(); got != 0 {
		t.Fatalf("zero-price stock should imply zero shares, got %v", got)
	}
}

func TestCheckFinite(t *testing.T) {
	good := Stock{Ticker: "OK", Price: 1, History: []PricePoint{{Price: 1}}}
	if err := good.CheckFinite(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	bad := good
	bad.MarketCap = math.NaN()
	if err := bad.CheckFinite(); err == nil {
		t.Fatalf("NaN field not caught")
	}

	badHist := good
	badHist.History = []PricePoint{{Price: math.Inf(1)}}
	if err := badHist.CheckFinite(); err == nil {
		t.Fatalf("non-finite history not caught")
	}
}

func TestControllerStaleness(t *testing.T) {
	now := time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)
	rec := ControllerRecord{Timestamp: now.Add(-11 * time.Second).UnixMilli()}
	if !rec.StaleAfter(10*time.Second, now) {
		t.Fatalf("11s-old lease should be stale at 10s ttl")
	}
	rec.Timestamp = now.Add(-9 * time.Second).UnixMilli()
	if rec.StaleAfter(10*time.Second, now) {
		t.Fatalf("9s-old lease should be fresh at 10s ttl")
	}
}

func TestTradePath(t *testing.T) {
	if got := TradePath("demo", 1710424800000); got != "tradingHistory/demo/1710424800000" {
		t.Fatalf("got %q", got)
	}
}
