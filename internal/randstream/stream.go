// Package randstream is the deterministic substrate under every synthetic
// price path. A Stream is a seeded linear-congruential generator; distinct
// recurrences keep independent market factors (order flow, institutional
// flow, volatility, ...) from becoming correlated through shared state.
package randstream

import (
	"math"
	"time"
)

// Recurrence is one LCG parameter triple. The constants below are classic
// full-period parameterizations; what consumers rely on is only that two
// different recurrences seeded identically produce uncorrelated sequences.
type Recurrence struct {
	Mul uint64
	Inc uint64
	Mod uint64
}

var (
	OrderFlow     = Recurrence{Mul: 1664525, Inc: 1013904223, Mod: 1 << 32}
	Institutional = Recurrence{Mul: 22695477, Inc: 1, Mod: 1 << 32}
	Volatility    = Recurrence{Mul: 1103515245, Inc: 12345, Mod: 1 << 31}
	Noise         = Recurrence{Mul: 134775813, Inc: 1, Mod: 1 << 32}
	Jump          = Recurrence{Mul: 214013, Inc: 2531011, Mod: 1 << 32}
)

// Stream produces an unbounded, repeatable sequence of values in [0,1).
type Stream struct {
	state uint64
	rec   Recurrence
}

// New creates a stream from a base seed and a recurrence. The same pair
// always yields the same sequence.
func New(seed int64, rec Recurrence) *Stream {
	s := uint64(seed) % rec.Mod
	if s == 0 {
		s = rec.Inc | 1
	}
	return &Stream{state: s, rec: rec}
}

// Float64 advances the stream and returns the next value in [0,1).
func (s *Stream) Float64() float64 {
	s.state = (s.state*s.rec.Mul + s.rec.Inc) % s.rec.Mod
	return float64(s.state) / float64(s.rec.Mod)
}

// Range returns the next value scaled into [lo,hi).
func (s *Stream) Range(lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// Norm returns an approximately standard-normal variate via Box-Muller over
// two stream outputs.
func Norm(a, b *Stream) float64 {
	u1 := a.Float64()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	u2 := b.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// FatTail returns a Student's-t-like variate with df degrees of freedom:
// a normal variate over the square root of a scaled chi-squared-like term
// built from -2*ln(u). Heavier tails than Norm for small df.
func FatTail(a, b, c *Stream, df float64) float64 {
	z := Norm(a, b)
	u := c.Float64()
	if u < 1e-12 {
		u = 1e-12
	}
	chi := -2 * math.Log(u)
	return z / math.Sqrt(chi/df)
}

// TickerSeed derives the stable per-stock base seed: the sum of the ticker's
// character codes. Reproducible without any external storage.
func TickerSeed(ticker string) int64 {
	var sum int64
	for _, r := range ticker {
		sum += int64(r)
	}
	return sum
}

// DaySeed combines the ticker seed with calendar fields so intraday paths
// are reproducible per ticker per day.
func DaySeed(ticker string, t time.Time) int64 {
	return TickerSeed(ticker) + int64(t.Day()) + int64(t.Month())*100 + int64(t.Year())
}

// PriceSeed combines the ticker seed with the base price in cents, used by
// the longer-horizon paths that do not depend on the calendar day.
func PriceSeed(ticker string, basePrice float64) int64 {
	return TickerSeed(ticker) + int64(basePrice*100)
}
