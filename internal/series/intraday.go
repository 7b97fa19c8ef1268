package series

import (
	"math"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
)

// Intraday microstructure tuning.
const (
	intradayBarCapPct    = 0.02  // hard cap on one bar's move vs the prior bar
	intradayShockOdds    = 0.02  // institutional-flow shock probability per bar
	intradayShockDecay   = 0.65  // exponential decay of an active shock
	intradayBaseVolume   = 48000 // base share volume per 5-minute bar
	intradayMeanRevPull  = 0.10  // pull toward the day anchor price
	intradayMomentumGain = 0.30  // weight of the 3-bar slope term
	intradayImbalanceGain = 0.0035
)

// IntradayPath synthesizes 5-minute bars from pre-market open (08:00) up to
// the bar containing now, ending at the after-hours close (17:30). The
// anchor is the day's reference price, normally the session open.
//
// The function is incremental: bars already present in prefix are preserved
// verbatim and only indexes len(prefix)..target are synthesized. Calling it
// again later with its own output as prefix extends the series without
// regenerating it. The last bar, and only the last, is marked live.
func IntradayPath(ticker string, anchor float64, prefix []market.PricePoint, now time.Time) []market.PricePoint {
	if anchor <= 0 {
		return clonePoints(prefix)
	}

	target := intradayTargetBars(now)
	if target <= len(prefix) {
		out := clonePoints(prefix)
		markLive(out)
		return out
	}

	seed := randstream.DaySeed(ticker, now)
	flow := randstream.New(seed, randstream.OrderFlow)
	inst := randstream.New(seed, randstream.Institutional)
	volS := randstream.New(seed, randstream.Volatility)
	noiseS := randstream.New(seed, randstream.Noise)
	jmp := randstream.New(seed, randstream.Jump)

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		Add(preMarketOpenMinute * time.Minute)

	out := clonePoints(prefix)

	// The whole path is recomputed from bar zero so the stream state at the
	// first new bar is exactly what a single full synthesis would have seen.
	// Emitted prefix bars still win over recomputed ones.
	effPrice := make([]float64, 0, target)
	price := anchor
	imbalance := 0.0
	cluster := 0.0
	shock := 0.0
	lastLogRet := 0.0

	for i := 0; i < target; i++ {
		uImb := flow.Float64()
		uTrig := inst.Float64()
		z := randstream.Norm(noiseS, jmp)
		uVol := volS.Float64()

		imbalance = clamp(0.85*imbalance+0.30*(2*uImb-1), -1, 1)

		if uTrig < intradayShockOdds {
			shock = (2*inst.Float64() - 1) * 0.012
		} else {
			shock *= intradayShockDecay
		}

		cluster = 0.75*cluster + 0.25*math.Min(1, math.Abs(lastLogRet)/0.004)
		sigma := 0.0018 * (0.6 + 2.2*cluster)

		slope3 := 0.0
		if i >= 4 {
			p0 := effPrice[i-4]
			if p0 > 0 {
				slope3 = (effPrice[i-1] - p0) / (3 * p0)
			}
		}

		prev := price
		ret := sigma*z +
			intradayImbalanceGain*imbalance +
			intradayMomentumGain*slope3 -
			intradayMeanRevPull*(prev-anchor)/anchor +
			shock

		barTime := dayStart.Add(time.Duration(i) * barMinutes * time.Minute)
		regime := sessionRegime(barTime)
		if regime != regimeRegular {
			ret *= 0.4
		}

		delta := clampAbs(ret*prev, intradayBarCapPct*prev)
		price = sanitize(prev+delta, prev, anchor)

		if prev > 0 && price > 0 {
			lastLogRet = math.Log(price / prev)
		}

		volume := intradayVolume(barTime, delta, prev, uVol)

		effPrice = append(effPrice, price)
		if i < len(prefix) {
			// Keep the emitted bar; continue the dynamics from it.
			price = prefix[i].Price
			effPrice[i] = price
			continue
		}

		out = append(out, market.PricePoint{
			Label:  minuteLabel(barTime),
			Price:  price,
			Volume: volume,
		})
	}

	markLive(out)
	return out
}

type regime int

const (
	regimePreMarket regime = iota
	regimeRegular
	regimeAfterHours
)

func sessionRegime(t time.Time) regime {
	minute := t.Hour()*60 + t.Minute()
	switch {
	case minute < sessionOpenMinute:
		return regimePreMarket
	case minute >= sessionCloseMinute:
		return regimeAfterHours
	default:
		return regimeRegular
	}
}

// intradayTargetBars returns the number of 5-minute bars between pre-market
// open and now, capped at the after-hours end.
func intradayTargetBars(now time.Time) int {
	minute := now.Hour()*60 + now.Minute()
	if minute < preMarketOpenMinute {
		return 0
	}
	if minute > afterHoursEndMinute {
		minute = afterHoursEndMinute
	}
	return (minute-preMarketOpenMinute)/barMinutes + 1
}

// intradayVolume derives a bar's share volume: base rate, U-shaped session
// curve (heavy at open and close, light midday), a boost proportional to the
// realized move, and noise; pre-market and after-hours run thin.
func intradayVolume(barTime time.Time, delta, prev, u float64) int64 {
	var shape float64
	switch sessionRegime(barTime) {
	case regimePreMarket:
		shape = 0.20
	case regimeAfterHours:
		shape = 0.12
	default:
		minute := barTime.Hour()*60 + barTime.Minute()
		x := float64(minute-sessionOpenMinute) / float64(sessionCloseMinute-sessionOpenMinute)
		shape = 0.5 + 1.5*(2*x-1)*(2*x-1)
	}

	boost := 1.0
	if prev > 0 {
		boost += 6 * math.Min(1, math.Abs(delta)/prev/0.004)
	}
	v := float64(intradayBaseVolume) * shape * boost * (0.7 + 0.6*u)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(v)
}

func clonePoints(in []market.PricePoint) []market.PricePoint {
	if len(in) == 0 {
		return []market.PricePoint{}
	}
	out := make([]market.PricePoint, len(in))
	copy(out, in)
	return out
}

// markLive clears all live flags and sets the final bar live.
func markLive(points []market.PricePoint) {
	for i := range points {
		points[i].Live = false
	}
	if len(points) > 0 {
		points[len(points)-1].Live = true
	}
}
