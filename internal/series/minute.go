package series

import (
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
)

// Minute-path tuning.
const (
	minuteStepPct  = 0.0012 // raw per-minute step, fraction of base
	minuteBandPct  = 0.015  // clamp band around the base price
	minuteResetOdds = 0.08  // chance per minute of a micro-trend reset
)

// MinutePath synthesizes an n-minute window ending at now, one point per
// minute: a momentum-weighted random walk with occasional micro-trend resets,
// clamped to ±1.5% of the base price. Deterministic per ticker per day.
func MinutePath(ticker string, base float64, n int, now time.Time) []market.PricePoint {
	if n <= 0 || base <= 0 {
		return nil
	}

	seed := randstream.DaySeed(ticker, now)
	flow := randstream.New(seed, randstream.OrderFlow)
	noise := randstream.New(seed, randstream.Noise)

	out := make([]market.PricePoint, 0, n)
	start := now.Add(-time.Duration(n-1) * time.Minute)

	price := base
	momentum := 0.0
	for i := 0; i < n; i++ {
		step := (flow.Float64() - 0.5) * 2 * minuteStepPct * base
		if noise.Float64() < minuteResetOdds {
			momentum = 0
		}
		momentum = 0.7*momentum + 0.3*step
		raw := price + step + 0.5*momentum

		raw = clamp(raw, base*(1-minuteBandPct), base*(1+minuteBandPct))
		price = sanitize(raw, price, base)

		out = append(out, market.PricePoint{
			Label: minuteLabel(start.Add(time.Duration(i) * time.Minute)),
			Price: price,
		})
	}
	return out
}
