// Package core holds the pure trading rules: order validation, the
// price-impact model, and the admin transforms. Nothing here touches the
// store; the service layer feeds it snapshots and writes back the results.
package core

import (
	"fmt"
	"math"
	"time"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
)

// MaxFloatFraction caps a single buy at this fraction of the currently
// available float. Sells are deliberately uncapped so a position can always
// be exited.
const MaxFloatFraction = 0.10

// ValidationError is a rejected intent: bad or missing input, insufficient
// funds, shares, or float. Surfaced to the user, never escalated or retried.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

// Rejectf builds a ValidationError. The service layer uses it for rejections
// that depend on its snapshots rather than on the pure rules here.
func Rejectf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

func rejectf(format string, args ...any) error { return Rejectf(format, args...) }

// ErrUnknownUser rejects an intent naming a user with no account.
func ErrUnknownUser(user string) error { return Rejectf("unknown user %q", user) }

// ErrUnknownTicker rejects an intent naming an unlisted ticker.
func ErrUnknownTicker(ticker string) error { return Rejectf("%s is not listed", ticker) }

// FeePolicy prices a trade as base cost + commission (floored at MinimumFee)
// + spread. All three currently default to zero but the structure stays so
// fee policy is pluggable.
type FeePolicy struct {
	CommissionRate float64
	MinimumFee     float64
	SpreadRate     float64
}

// CostBreakdown is the three-term cost of one trade.
type CostBreakdown struct {
	Base       float64
	Commission float64
	Spread     float64
	Total      float64
}

// Cost applies the policy to a base notional.
func (f FeePolicy) Cost(base float64) CostBreakdown {
	commission := base * f.CommissionRate
	if commission < f.MinimumFee {
		commission = f.MinimumFee
	}
	spread := base * f.SpreadRate
	return CostBreakdown{
		Base:       base,
		Commission: commission,
		Spread:     spread,
		Total:      base + commission + spread,
	}
}

// TradePlan is the fully computed outcome of an accepted order: the writes
// the service must apply and the record it must append.
type TradePlan struct {
	Type       market.TradeType
	Ticker     string
	Quantity   int64
	Price      float64 // execution price (pre-impact)
	Cost       CostBreakdown
	Impact     float64 // signed fractional price change applied after the trade
	NewPrice   float64
	NewBalance float64
	NewHolding int64
	Stock      market.Stock // stock state after the trade
}

// TotalOwned sums the holdings of ticker across every account. The float is
// computed against all users, not just the buyer.
func TotalOwned(accounts map[string]market.Account, ticker string) int64 {
	var total int64
	for _, acct := range accounts {
		total += acct.Shares(ticker)
	}
	return total
}

// AvailableFloat returns the implied shares outstanding and the pool still
// available for purchase.
func AvailableFloat(s market.Stock, accounts map[string]market.Account) (totalShares float64, available int64) {
	totalShares = s.SharesOutstanding()
	available = int64(math.Floor(totalShares)) - TotalOwned(accounts, s.Ticker)
	if available < 0 {
		available = 0
	}
	return totalShares, available
}

// PlanBuy validates a buy against the buyer's balance and the stock's
// available float and computes the resulting state. Price impact is
// proportional to the traded share of the float: buying 1% of the shares
// outstanding moves the price up 1%.
func PlanBuy(s market.Stock, acct market.Account, accounts map[string]market.Account, qty int64, fees FeePolicy, now time.Time) (TradePlan, error) {
	if s.Ticker == "" {
		return TradePlan{}, rejectf("no stock selected")
	}
	if qty <= 0 {
		return TradePlan{}, rejectf("quantity must be a positive whole number")
	}
	if s.Price <= 0 {
		return TradePlan{}, rejectf("%s has no valid price", s.Ticker)
	}

	totalShares, available := AvailableFloat(s, accounts)
	if qty > available {
		ownedPct := 0.0
		if totalShares > 0 {
			ownedPct = float64(TotalOwned(accounts, s.Ticker)) / totalShares * 100
		}
		return TradePlan{}, rejectf("only %d shares of %s available (%.1f%% already owned)",
			available, s.Ticker, ownedPct)
	}
	if maxTrade := int64(math.Floor(float64(available) * MaxFloatFraction)); qty > maxTrade {
		return TradePlan{}, rejectf("order too large: a single trade may take at most %d shares (10%% of the available float)", maxTrade)
	}

	cost := fees.Cost(s.Price * float64(qty))
	if acct.Balance < cost.Total {
		return TradePlan{}, rejectf("insufficient funds: need $%.2f, have $%.2f", cost.Total, acct.Balance)
	}

	impact := float64(qty) / totalShares * s.Price
	newPrice := math.Max(0.01, market.Round2(s.Price+impact))

	return TradePlan{
		Type:       market.TradeBuy,
		Ticker:     s.Ticker,
		Quantity:   qty,
		Price:      s.Price,
		Cost:       cost,
		Impact:     impact,
		NewPrice:   newPrice,
		NewBalance: acct.Balance - cost.Total,
		NewHolding: acct.Shares(s.Ticker) + qty,
		Stock:      reprice(s, newPrice, now),
	}, nil
}

// PlanSell validates a sell against the seller's holdings. The impact is the
// negative of the buy formula and there is no float cap: sells must always
// be able to exit a position.
func PlanSell(s market.Stock, acct market.Account, qty int64, fees FeePolicy, now time.Time) (TradePlan, error) {
	if s.Ticker == "" {
		return TradePlan{}, rejectf("no stock selected")
	}
	if qty <= 0 {
		return TradePlan{}, rejectf("quantity must be a positive whole number")
	}
	if s.Price <= 0 {
		return TradePlan{}, rejectf("%s has no valid price", s.Ticker)
	}
	held := acct.Shares(s.Ticker)
	if qty > held {
		return TradePlan{}, rejectf("cannot sell %d shares of %s: only %d held", qty, s.Ticker, held)
	}

	proceeds := fees.Cost(s.Price * float64(qty))
	credit := proceeds.Base - proceeds.Commission - proceeds.Spread

	totalShares := s.SharesOutstanding()
	impact := -float64(qty) / totalShares * s.Price
	newPrice := math.Max(0.01, market.Round2(s.Price+impact))

	return TradePlan{
		Type:       market.TradeSell,
		Ticker:     s.Ticker,
		Quantity:   qty,
		Price:      s.Price,
		Cost:       proceeds,
		Impact:     impact,
		NewPrice:   newPrice,
		NewBalance: acct.Balance + credit,
		NewHolding: held - qty,
		Stock:      reprice(s, newPrice, now),
	}, nil
}

// reprice moves a stock to a trade-driven price: running extrema, implied
// shares outstanding preserved, and the manual-trade markers set.
func reprice(s market.Stock, newPrice float64, now time.Time) market.Stock {
	shares := s.SharesOutstanding()
	s.MarketCap = shares * newPrice
	s.Price = newPrice
	if newPrice > s.High {
		s.High = newPrice
	}
	if newPrice < s.Low || s.Low <= 0 {
		s.Low = newPrice
	}
	s.ManualTrade = true
	s.LastTradeTime = now.UnixMilli()
	s.LastUpdate = now.UnixMilli()
	return s
}

// Record builds the immutable trade record for an executed plan.
func (p TradePlan) Record(id string, now time.Time) market.TradeRecord {
	return market.TradeRecord{
		ID:          id,
		Timestamp:   now.UnixMilli(),
		Type:        p.Type,
		Ticker:      p.Ticker,
		Quantity:    p.Quantity,
		Price:       p.Price,
		Total:       p.Cost.Total,
		PriceImpact: p.Impact,
		NewPrice:    p.NewPrice,
	}
}
