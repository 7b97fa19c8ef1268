package series

import (
	"math"
	"testing"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
)

var testNow = time.Date(2024, 3, 14, 13, 37, 0, 0, time.UTC)

func checkFinitePositive(t *testing.T, points []market.PricePoint) {
	t.Helper()
	for i, p := range points {
		if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) || p.Price <= 0 {
			t.Fatalf("point %d has invalid price %v", i, p.Price)
		}
		if p.Volume < 0 {
			t.Fatalf("point %d has negative volume %d", i, p.Volume)
		}
	}
}

func TestMinutePath_BoundsAndLength(t *testing.T) {
	points := MinutePath("AAPL", 180, 30, testNow)
	if len(points) != 30 {
		t.Fatalf("expected 30 points, got %d", len(points))
	}
	checkFinitePositive(t, points)
	for i, p := range points {
		if p.Price < 180*0.985-0.01 || p.Price > 180*1.015+0.01 {
			t.Fatalf("point %d price %v outside +/-1.5%% band", i, p.Price)
		}
	}
}

func TestMinutePath_Deterministic(t *testing.T) {
	a := MinutePath("AAPL", 180, 60, testNow)
	b := MinutePath("AAPL", 180, 60, testNow)
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("point %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestIntradayPath_Deterministic(t *testing.T) {
	a := IntradayPath("MSFT", 412.80, nil, testNow)
	b := IntradayPath("MSFT", 412.80, nil, testNow)
	if len(a) == 0 {
		t.Fatalf("expected bars at %v", testNow)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestIntradayPath_PerBarCap(t *testing.T) {
	points := IntradayPath("NVDA", 487.60, nil, testNow)
	checkFinitePositive(t, points)
	prev := 487.60
	for i, p := range points {
		if math.Abs(p.Price-prev) > 0.02*prev+0.011 { // cents rounding slack
			t.Fatalf("bar %d moved %.4f from %.2f, beyond 2%% cap", i, p.Price-prev, prev)
		}
		prev = p.Price
	}
}

func TestIntradayPath_SingleLivePoint(t *testing.T) {
	points := IntradayPath("AAPL", 178.50, nil, testNow)
	live := 0
	for _, p := range points {
		if p.Live {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live point, got %d", live)
	}
	if !points[len(points)-1].Live {
		t.Fatalf("live point must be the last bar")
	}
}

func TestIntradayPath_IdempotentExtension(t *testing.T) {
	early := testNow.Add(-time.Hour)
	full := IntradayPath("TSLA", 238.45, nil, testNow)
	partial := IntradayPath("TSLA", 238.45, nil, early)
	extended := IntradayPath("TSLA", 238.45, partial, testNow)

	if len(extended) != len(full) {
		t.Fatalf("extension length %d, direct length %d", len(extended), len(full))
	}
	for i := range full {
		if extended[i].Price != full[i].Price || extended[i].Label != full[i].Label {
			t.Fatalf("bar %d differs after extension: %+v vs %+v", i, extended[i], full[i])
		}
	}
}

func TestIntradayPath_PreservesEmittedBars(t *testing.T) {
	early := testNow.Add(-2 * time.Hour)
	prefix := IntradayPath("META", 352.10, nil, early)
	// Simulate a trade having nudged the last emitted bar.
	prefix[len(prefix)-1].Price = market.Round2(prefix[len(prefix)-1].Price * 1.01)
	want := prefix[len(prefix)-1].Price

	extended := IntradayPath("META", 352.10, prefix, testNow)
	if extended[len(prefix)-1].Price != want {
		t.Fatalf("emitted bar regenerated: got %v want %v", extended[len(prefix)-1].Price, want)
	}
	if len(extended) <= len(prefix) {
		t.Fatalf("expected new bars past the prefix")
	}
}

func TestIntradayPath_DoesNotMutatePrefix(t *testing.T) {
	early := testNow.Add(-time.Hour)
	prefix := IntradayPath("AMZN", 155.30, nil, early)
	last := prefix[len(prefix)-1]
	if !last.Live {
		t.Fatalf("prefix should end with a live bar")
	}

	_ = IntradayPath("AMZN", 155.30, prefix, testNow)
	if prefix[len(prefix)-1] != last {
		t.Fatalf("input prefix mutated")
	}
}

func TestIntradayPath_BeforePreMarket(t *testing.T) {
	night := time.Date(2024, 3, 14, 5, 0, 0, 0, time.UTC)
	points := IntradayPath("AAPL", 178.50, nil, night)
	if len(points) != 0 {
		t.Fatalf("expected no bars before pre-market, got %d", len(points))
	}
}

func TestWeeklyPath_Bounds(t *testing.T) {
	base := 100.0
	points := WeeklyPath("GOOGL", base, testNow)
	if len(points) == 0 {
		t.Fatalf("expected weekly bars")
	}
	checkFinitePositive(t, points)
	prev := base
	for i, p := range points {
		if p.Price < base*weeklyLowerBound-0.01 || p.Price > base*weeklyUpperBound+0.01 {
			t.Fatalf("bar %d price %v outside [0.70x, 1.45x]", i, p.Price)
		}
		if math.Abs(p.Price-prev) > weeklyBarCapPct*prev+0.011 {
			t.Fatalf("bar %d moved beyond 5%% cap: %v from %v", i, p.Price, prev)
		}
		prev = p.Price
	}
}

func TestWeeklyPath_WeekendCollapsed(t *testing.T) {
	points := WeeklyPath("GOOGL", 141.25, testNow)
	// 7 calendar days always span exactly one weekend: 2 single points + 5
	// weekdays x 8 hourly bars.
	if len(points) != 2+5*8 {
		t.Fatalf("expected 42 bars, got %d", len(points))
	}
}

func TestWeeklyPath_Deterministic(t *testing.T) {
	a := WeeklyPath("NFLX", 492.20, testNow)
	b := WeeklyPath("NFLX", 492.20, testNow)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestMonthlyPath_Bounds(t *testing.T) {
	base := 50.0
	points := MonthlyPath("TSLA", base, testNow)
	if len(points) != monthlyBars {
		t.Fatalf("expected %d bars, got %d", monthlyBars, len(points))
	}
	checkFinitePositive(t, points)
	for i, p := range points {
		if p.Price < base*monthlyLowerBound-0.01 || p.Price > base*monthlyUpperBound+0.01 {
			t.Fatalf("bar %d price %v outside monthly bounds", i, p.Price)
		}
	}
}

func TestYearlyPath_Bounds(t *testing.T) {
	base := 200.0
	points := YearlyPath("MSFT", base, testNow)
	if len(points) != yearlyBars {
		t.Fatalf("expected %d bars, got %d", yearlyBars, len(points))
	}
	checkFinitePositive(t, points)
	prev := base
	for i, p := range points {
		if p.Price < base*yearlyLowerBound-0.01 || p.Price > base*yearlyUpperBound+0.01 {
			t.Fatalf("bar %d price %v outside [0.30x, 3.50x]", i, p.Price)
		}
		if math.Abs(p.Price-prev) > yearlyBarCapPct*prev+0.011 {
			t.Fatalf("bar %d moved beyond 15%% cap", i)
		}
		prev = p.Price
	}
}

func TestYearlyPath_Deterministic(t *testing.T) {
	a := YearlyPath("AMZN", 155.30, testNow)
	b := YearlyPath("AMZN", 155.30, testNow)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs", i)
		}
	}
}

func TestWindow_PrefersLiveHistory(t *testing.T) {
	stock := market.Stock{
		Ticker: "AAPL",
		Price:  178.50,
		Open:   177.00,
		History: []market.PricePoint{
			{Label: "09:30", Price: 177.00},
			{Label: "09:35", Price: 177.40, Live: true},
		},
	}
	points, err := Window(stock, Window1D, testNow)
	if err != nil {
		t.Fatalf("Window err=%v", err)
	}
	if len(points) != 2 || points[0].Price != 177.00 {
		t.Fatalf("expected live history back, got %+v", points)
	}
	// Returned slice must be a copy.
	points[0].Price = 1
	if stock.History[0].Price != 177.00 {
		t.Fatalf("Window returned aliased history")
	}
}

func TestWindow_UnknownWindow(t *testing.T) {
	_, err := Window(market.Stock{Ticker: "AAPL", Price: 1}, "2h", testNow)
	if err == nil {
		t.Fatalf("expected error for unknown window")
	}
}

func TestWindow_AllKnownWindows(t *testing.T) {
	stock := market.Stock{Ticker: "NVDA", Price: 487.60, Open: 480.00}
	for _, w := range []string{Window10M, Window30M, Window1H, Window1D, Window1W, Window1M, Window1Y} {
		points, err := Window(stock, w, testNow)
		if err != nil {
			t.Fatalf("window %s: %v", w, err)
		}
		checkFinitePositive(t, points)
	}
}
