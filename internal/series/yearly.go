package series

import (
	"fmt"
	"math"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
)

// Yearly-path tuning.
const (
	yearlyBars       = 48 // 12 months x 4 weekly bars
	yearlyBarCapPct  = 0.15
	yearlyLowerBound = 0.30
	yearlyUpperBound = 3.50
	yearlyJumpOdds   = 0.05 // Levy-like jump: chance of a 3x normal move
)

// YearlyPath synthesizes 12 months of weekly bars. On top of the fat-tailed
// walk it layers seasonal factors (January effect, summer doldrums, year-end
// rally, a sinusoidal seasonal term), a slow market-cycle sinusoid,
// regime-switching volatility with rare 1.5-2.5x spikes, fundamental-trend
// drift with occasional shifts, a sector-rotation sinusoid, tanh-bounded
// momentum positioning from the trailing 12-bar return, rare event shocks at
// three severities (largest biased negative), macro factors (rate cycle,
// inflation drift, geopolitical risk decay), and a Levy-like jump component.
// Deterministic per (ticker, basePrice).
func YearlyPath(ticker string, base float64, now time.Time) []market.PricePoint {
	if base <= 0 {
		return nil
	}

	seed := randstream.PriceSeed(ticker, base) + 365
	flow := randstream.New(seed, randstream.OrderFlow)
	inst := randstream.New(seed, randstream.Institutional)
	volS := randstream.New(seed, randstream.Volatility)
	noiseS := randstream.New(seed, randstream.Noise)
	jmp := randstream.New(seed, randstream.Jump)

	// Per-stock phases so sinusoids do not line up across the whole market.
	seasonPhase := 2 * math.Pi * float64(seed%360) / 360
	cyclePhase := 2 * math.Pi * float64(seed%97) / 97
	sectorPhase := 2 * math.Pi * float64(seed%53) / 53
	ratePhase := 2 * math.Pi * float64(seed%29) / 29

	prices := make([]float64, 0, yearlyBars)
	out := make([]market.PricePoint, 0, yearlyBars)

	price := base
	drift := 0.0
	volRegime := 1.0
	inflation := 0.0
	geoRisk := 0.0

	for m := 0; m < 12; m++ {
		monthTime := now.AddDate(0, m-11, 0)
		month := monthTime.Month()
		for wk := 0; wk < 4; wk++ {
			i := m*4 + wk

			seasonal := 0.002 * math.Sin(2*math.Pi*float64(month-1)/12+seasonPhase)
			switch {
			case month == time.January:
				seasonal += 0.004
			case month >= time.June && month <= time.August:
				seasonal -= 0.002
			case month >= time.November:
				seasonal += 0.003
			}

			// Slow market cycle, roughly four years per revolution.
			cycle := 0.0025 * math.Sin(2*math.Pi*float64(i)/192+cyclePhase)

			if jmp.Float64() < 0.02 {
				volRegime = 1.5 + jmp.Float64() // spike into 1.5x-2.5x
			} else {
				volRegime = 1 + (volRegime-1)*0.85
			}

			if inst.Float64() < 0.05 {
				drift = 0.006 * (2*inst.Float64() - 1)
			}

			sector := 0.0018 * math.Sin(2*math.Pi*float64(i)/24+sectorPhase)

			positioning := 0.0
			if i >= 12 {
				trailing := prices[i-1]/prices[i-12] - 1
				positioning = 0.004 * math.Tanh(3*trailing)
			}

			eventShock := 0.0
			switch u := flow.Float64(); {
			case u < 0.005:
				mag := 0.06 + 0.06*flow.Float64()
				if flow.Float64() < 0.75 { // rarest severity leans negative
					mag = -mag
				}
				eventShock = mag
			case u < 0.015:
				eventShock = (2*flow.Float64() - 1) * 0.05
			case u < 0.030:
				eventShock = (2*flow.Float64() - 1) * 0.025
			}

			rate := -0.0015 * math.Sin(2*math.Pi*float64(i)/96+ratePhase)
			inflation = clampAbs(inflation+0.0002*(2*volS.Float64()-1), 0.01)
			if noiseS.Float64() < 0.03 {
				geoRisk = 0.02 + 0.02*noiseS.Float64()
			} else {
				geoRisk *= 0.8
			}
			macro := rate - 0.3*inflation - 0.25*geoRisk

			move := 0.018 * volRegime * randstream.Norm(noiseS, jmp)
			if jmp.Float64() < yearlyJumpOdds {
				move *= 3
			}

			ret := seasonal + cycle + drift + sector + positioning + eventShock + macro + move

			prev := price
			delta := clampAbs(ret*prev, yearlyBarCapPct*prev)
			raw := clamp(prev+delta, yearlyLowerBound*base, yearlyUpperBound*base)
			price = sanitize(raw, prev, base)

			volume := int64(9_000_000 * (0.6 + 0.8*volS.Float64()) * volRegime)
			if volume < 0 {
				volume = 0
			}

			prices = append(prices, price)
			out = append(out, market.PricePoint{
				Label:  fmt.Sprintf("%s W%d", monthTime.Format("Jan"), wk+1),
				Price:  price,
				Volume: volume,
			})
		}
	}
	return out
}
