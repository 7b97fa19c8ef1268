package core

import (
	"math"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
)

// Admin transforms are unconditional overwrites of the relevant fields; the
// service applies them directly with no float or balance checks.

// AdjustPriceAbsolute moves a stock's price by delta dollars, preserving the
// implied shares outstanding.
func AdjustPriceAbsolute(s market.Stock, delta float64, now time.Time) market.Stock {
	newPrice := math.Max(0.01, market.Round2(s.Price+delta))
	return reprice(s, newPrice, now)
}

// AdjustPricePercent moves a stock's price by pct percent.
func AdjustPricePercent(s market.Stock, pct float64, now time.Time) market.Stock {
	return AdjustPriceAbsolute(s, s.Price*pct/100, now)
}

// ApplySplit divides price, open, high, low, and the 52-week bounds by the
// ratio. Market cap is untouched, so the implied share count multiplies by
// the same ratio; holdings are scaled by the caller in the same logical
// operation.
func ApplySplit(s market.Stock, ratio float64, now time.Time) (market.Stock, error) {
	if ratio <= 0 {
		return s, rejectf("split ratio must be positive, got %v", ratio)
	}
	s.Price = market.Round2(s.Price / ratio)
	s.Open = market.Round2(s.Open / ratio)
	s.High = market.Round2(s.High / ratio)
	s.Low = market.Round2(s.Low / ratio)
	s.High52W = market.Round2(s.High52W / ratio)
	s.Low52W = market.Round2(s.Low52W / ratio)
	s.LastUpdate = now.UnixMilli()
	return s, nil
}

// SplitHoldings multiplies every account's position in ticker by the ratio.
// Returns only the accounts that changed.
func SplitHoldings(accounts map[string]market.Account, ticker string, ratio float64) map[string]market.Account {
	changed := make(map[string]market.Account)
	for name, acct := range accounts {
		held := acct.Shares(ticker)
		if held == 0 {
			continue
		}
		scaled := int64(math.Floor(float64(held) * ratio))
		portfolio := make(map[string]int64, len(acct.Portfolio))
		for k, v := range acct.Portfolio {
			portfolio[k] = v
		}
		portfolio[ticker] = scaled
		acct.Portfolio = portfolio
		changed[name] = acct
	}
	return changed
}
