package series

import (
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
)

// Monthly-path tuning. Daily bars carry more risk than hourly ones, so the
// cap and cumulative bounds sit between the weekly and yearly paths.
const (
	monthlyBars       = 22 // trailing trading days
	monthlyBarCapPct  = 0.06
	monthlyLowerBound = 0.60
	monthlyUpperBound = 1.60
)

// MonthlyPath synthesizes one daily bar per trading day over the trailing
// month, using the same trend/sentiment/news machinery as the weekly path at
// daily granularity. Deterministic per (ticker, basePrice).
func MonthlyPath(ticker string, base float64, now time.Time) []market.PricePoint {
	if base <= 0 {
		return nil
	}

	// Offset the seed so the monthly path does not replay the weekly one.
	seed := randstream.PriceSeed(ticker, base) + 31
	w := horizonWalk{
		base:         base,
		barCapPct:    monthlyBarCapPct,
		lowerBound:   monthlyLowerBound * base,
		upperBound:   monthlyUpperBound * base,
		trendPersist: 0.94,
		trendGain:    0.004,
		resetOdds:    0.04,
		newsOdds:     0.02,
		newsScale:    0.04,
		newsDecay:    0.5,
		sentGain:     0.004,
		walkScale:    0.009,
		flow:         randstream.New(seed, randstream.OrderFlow),
		inst:         randstream.New(seed, randstream.Institutional),
		volS:         randstream.New(seed, randstream.Volatility),
		noiseS:       randstream.New(seed, randstream.Noise),
		jmp:          randstream.New(seed, randstream.Jump),
	}

	// Collect the trailing trading days, oldest first.
	days := make([]time.Time, 0, monthlyBars)
	for d := now; len(days) < monthlyBars; d = d.AddDate(0, 0, -1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
		days[i], days[j] = days[j], days[i]
	}

	out := make([]market.PricePoint, 0, monthlyBars)
	for _, day := range days {
		price, volume := w.step(1)
		out = append(out, market.PricePoint{
			Label:  day.Format("Jan 02"),
			Price:  price,
			Volume: volume * 8,
		})
	}
	return out
}
