package market

import "time"

// DefaultStocks returns the bootstrap market universe, written to the store
// the first time a client finds no stocks document. Open/high/low start at
// the listing price; the tick engine takes it from there.
func DefaultStocks(now time.Time) map[string]Stock {
	seed := []struct {
		ticker   string
		name     string
		price    float64
		capB     float64 // market cap in billions
		pe       float64
		dividend float64
	}{
		{"AAPL", "Apple Inc.", 178.50, 2800, 29.4, 0.96},
		{"GOOGL", "Alphabet Inc.", 141.25, 1780, 24.1, 0},
		{"MSFT", "Microsoft Corp.", 412.80, 3070, 35.2, 3.00},
		{"NVDA", "NVIDIA Corp.", 487.60, 1200, 62.8, 0.16},
		{"AMZN", "Amazon.com Inc.", 155.30, 1610, 51.3, 0},
		{"TSLA", "Tesla Inc.", 238.45, 758, 68.9, 0},
		{"META", "Meta Platforms Inc.", 352.10, 905, 28.7, 0},
		{"NFLX", "Netflix Inc.", 492.20, 214, 43.5, 0},
	}

	ts := now.UnixMilli()
	stocks := make(map[string]Stock, len(seed))
	for _, s := range seed {
		stocks[s.ticker] = Stock{
			Ticker:     s.ticker,
			Name:       s.name,
			Price:      s.price,
			Open:       s.price,
			High:       s.price,
			Low:        s.price,
			MarketCap:  s.capB * 1e9,
			PE:         s.pe,
			Dividend:   s.dividend,
			QtrlyDiv:   Round2(s.dividend / 4),
			High52W:    Round2(s.price * 1.28),
			Low52W:     Round2(s.price * 0.74),
			LastUpdate: ts,
		}
	}
	return stocks
}

// DefaultAccounts returns the bootstrap users: one admin and one demo user.
func DefaultAccounts() map[string]Account {
	return map[string]Account{
		"admin": {
			Username:  "admin",
			Password:  "admin",
			Balance:   1_000_000,
			Portfolio: map[string]int64{},
		},
		"demo": {
			Username:  "demo",
			Password:  "demo",
			Balance:   100_000,
			Portfolio: map[string]int64{},
		},
	}
}
