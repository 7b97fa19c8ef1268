package randstream

import (
	"math"
	"testing"
	"time"
)

func TestStreamRepeatable(t *testing.T) {
	a := New(12345, OrderFlow)
	b := New(12345, OrderFlow)
	for i := 0; i < 1000; i++ {
		va, vb := a.Float64(), b.Float64()
		if va != vb {
			t.Fatalf("diverged at %d: %v != %v", i, va, vb)
		}
	}
}

func TestStreamRange(t *testing.T) {
	s := New(7, Noise)
	for i := 0; i < 10000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("value %v out of [0,1) at %d", v, i)
		}
	}
}

func TestRecurrencesDecorrelated(t *testing.T) {
	a := New(42, OrderFlow)
	b := New(42, Institutional)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same > 1 {
		t.Fatalf("recurrences too correlated: %d identical draws", same)
	}
}

func TestZeroSeedStillAdvances(t *testing.T) {
	s := New(0, Institutional)
	first := s.Float64()
	second := s.Float64()
	if first == second {
		t.Fatalf("stream stuck at %v", first)
	}
}

func TestNormFinite(t *testing.T) {
	a := New(99, OrderFlow)
	b := New(99, Noise)
	var sum, sumSq float64
	n := 20000
	for i := 0; i < n; i++ {
		z := Norm(a, b)
		if math.IsNaN(z) || math.IsInf(z, 0) {
			t.Fatalf("non-finite normal at %d", i)
		}
		sum += z
		sumSq += z * z
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if math.Abs(mean) > 0.1 {
		t.Fatalf("mean too far from 0: %v", mean)
	}
	if variance < 0.7 || variance > 1.3 {
		t.Fatalf("variance too far from 1: %v", variance)
	}
}

func TestFatTailFinite(t *testing.T) {
	a := New(5, OrderFlow)
	b := New(6, Noise)
	c := New(7, Volatility)
	for i := 0; i < 20000; i++ {
		v := FatTail(a, b, c, 4)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite fat-tail variate at %d", i)
		}
	}
}

func TestTickerSeed(t *testing.T) {
	if got := TickerSeed("ZZZ"); got != 3*90 {
		t.Fatalf("TickerSeed(ZZZ)=%d, want %d", got, 3*90)
	}
	if TickerSeed("AAPL") == TickerSeed("MSFT") {
		t.Fatalf("distinct tickers should usually differ")
	}
}

func TestDaySeedChangesWithDay(t *testing.T) {
	d1 := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)
	if DaySeed("AAPL", d1) == DaySeed("AAPL", d2) {
		t.Fatalf("day seed should change across days")
	}
	if DaySeed("AAPL", d1) != DaySeed("AAPL", d1.Add(3*time.Hour)) {
		t.Fatalf("day seed should be stable within a day")
	}
}
