package series

import (
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
)

// Weekly-path tuning.
const (
	weeklyBarCapPct  = 0.05 // hard cap on one bar's move
	weeklyLowerBound = 0.70 // cumulative bound, multiple of base
	weeklyUpperBound = 1.45
	weeklyNewsOdds   = 0.02
	weeklyResetOdds  = 0.03
)

// WeeklyPath synthesizes the trailing 7 days: hourly bars 9:00-16:00 on
// weekdays, weekends collapsed to a single low-activity point. Adds weekly
// trend persistence (decaying AR(1) with occasional resets), sentiment
// evolution, fast-decaying news shocks, and a fat-tailed random walk.
// Deterministic per (ticker, basePrice); now only places the time labels.
func WeeklyPath(ticker string, base float64, now time.Time) []market.PricePoint {
	if base <= 0 {
		return nil
	}

	seed := randstream.PriceSeed(ticker, base)
	flow := randstream.New(seed, randstream.OrderFlow)
	inst := randstream.New(seed, randstream.Institutional)
	volS := randstream.New(seed, randstream.Volatility)
	noiseS := randstream.New(seed, randstream.Noise)
	jmp := randstream.New(seed, randstream.Jump)

	w := horizonWalk{
		base:         base,
		barCapPct:    weeklyBarCapPct,
		lowerBound:   weeklyLowerBound * base,
		upperBound:   weeklyUpperBound * base,
		trendPersist: 0.92,
		trendGain:    0.0025,
		resetOdds:    weeklyResetOdds,
		newsOdds:     weeklyNewsOdds,
		newsScale:    0.03,
		newsDecay:    0.5,
		sentGain:     0.003,
		walkScale:    0.005,
		flow:         flow,
		inst:         inst,
		volS:         volS,
		noiseS:       noiseS,
		jmp:          jmp,
	}

	var out []market.PricePoint
	for d := 6; d >= 0; d-- {
		day := now.AddDate(0, 0, -d)
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			price, volume := w.step(0.15)
			out = append(out, market.PricePoint{
				Label:  day.Format("Mon"),
				Price:  price,
				Volume: volume / 10,
			})
			continue
		}
		for hour := 9; hour <= 16; hour++ {
			price, volume := w.step(1)
			out = append(out, market.PricePoint{
				Label:  day.Format("Mon") + " " + time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:04"),
				Price:  price,
				Volume: volume,
			})
		}
	}
	return out
}

// horizonWalk is the shared bar generator for the weekly and monthly paths:
// trend persistence, sentiment, news shocks, and a fat-tailed walk, with the
// shared cap/bound/sanitize policy.
type horizonWalk struct {
	base         float64
	barCapPct    float64
	lowerBound   float64
	upperBound   float64
	trendPersist float64
	trendGain    float64
	resetOdds    float64
	newsOdds     float64
	newsScale    float64
	newsDecay    float64
	sentGain     float64
	walkScale    float64

	flow, inst, volS, noiseS, jmp *randstream.Stream

	price     float64
	trend     float64
	sentiment float64
	newsShock float64
	started   bool
}

// step advances one bar. activity dampens the move and volume (weekend and
// off-session bars run cold).
func (w *horizonWalk) step(activity float64) (float64, int64) {
	if !w.started {
		w.price = w.base
		w.started = true
	}

	if w.flow.Float64() < w.resetOdds {
		w.trend = 0
	}
	tv := randstream.FatTail(w.noiseS, w.jmp, w.volS, 4)
	w.trend = w.trendPersist*w.trend + w.trendGain*tv

	w.sentiment = clamp(0.95*w.sentiment+0.08*(2*w.flow.Float64()-1), -1, 1)

	if w.inst.Float64() < w.newsOdds {
		w.newsShock = (2*w.inst.Float64() - 1) * w.newsScale
	} else {
		w.newsShock *= w.newsDecay
	}

	walk := w.walkScale * randstream.FatTail(w.noiseS, w.jmp, w.volS, 4)
	ret := (w.trend + w.sentGain*w.sentiment + w.newsShock + walk) * activity

	prev := w.price
	delta := clampAbs(ret*prev, w.barCapPct*prev)
	raw := clamp(prev+delta, w.lowerBound, w.upperBound)
	w.price = sanitize(raw, prev, w.base)

	volume := int64(280000 * activity * (0.6 + 0.8*w.volS.Float64()))
	if volume < 0 {
		volume = 0
	}
	return w.price, volume
}
