// Package series builds synthetic price history for charting. All entry
// points are pure: given the same ticker, base price, and prefix they return
// the same bars, and they never mutate their inputs. Shared policies:
// non-finite or non-positive prices fall back to the previous valid price,
// every emitted price is rounded to cents, and bounds are hard clamps applied
// after the raw update.
package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
)

// Chart windows accepted by Window.
const (
	Window10M = "10m"
	Window30M = "30m"
	Window1H  = "1h"
	Window1D  = "1d"
	Window1W  = "1w"
	Window1M  = "1m"
	Window1Y  = "1y"
)

// ErrUnknownWindow is returned for a window outside the supported set.
var ErrUnknownWindow = errors.New("unknown chart window")

// Trading session bounds for intraday bars.
const (
	preMarketOpenMinute = 8 * 60         // 08:00
	sessionOpenMinute   = 9*60 + 30      // 09:30
	sessionCloseMinute  = 16 * 60        // 16:00
	afterHoursEndMinute = 17*60 + 30     // 17:30
	barMinutes          = 5              // intraday bar width
)

// Window returns the chart series for a stock. The 1d window prefers the
// live-maintained history over fresh synthesis; everything else is
// synthesized on demand.
func Window(stock market.Stock, window string, now time.Time) ([]market.PricePoint, error) {
	base := stock.Price
	switch window {
	case Window10M:
		return MinutePath(stock.Ticker, base, 10, now), nil
	case Window30M:
		return MinutePath(stock.Ticker, base, 30, now), nil
	case Window1H:
		return MinutePath(stock.Ticker, base, 60, now), nil
	case Window1D:
		if len(stock.History) > 0 {
			out := make([]market.PricePoint, len(stock.History))
			copy(out, stock.History)
			return out, nil
		}
		anchor := stock.Open
		if anchor <= 0 {
			anchor = base
		}
		return IntradayPath(stock.Ticker, anchor, nil, now), nil
	case Window1W:
		return WeeklyPath(stock.Ticker, base, now), nil
	case Window1M:
		return MonthlyPath(stock.Ticker, base, now), nil
	case Window1Y:
		return YearlyPath(stock.Ticker, base, now), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWindow, window)
	}
}

// sanitize applies the shared fallback policy: a non-finite or non-positive
// computed price is replaced by the previous valid price (or the base price
// when there is none), then rounded to cents.
func sanitize(v, prev, base float64) float64 {
	fallback := prev
	if fallback <= 0 {
		fallback = base
	}
	return market.Round2(market.SanitizePrice(v, fallback))
}

// clampAbs limits v to [-bound, bound].
func clampAbs(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// clamp limits v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minuteLabel(t time.Time) string {
	return t.Format("15:04")
}
