// Package service is the exchange's intent processor. A single goroutine owns
// cached snapshots of the stocks, users, and market state documents (kept
// current by store watches) and serializes every intent against them. Writes
// go straight back to the store; there are no transactions, and concurrent
// writers resolve last-writer-wins.
package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/exchange/core"
	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/metrics"
	"github.com/governmentofsc/ATLExchange-sub000/internal/series"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
)

// command types
type cmdType int

const (
	cmdBuy cmdType = iota
	cmdSell
	cmdCreateStock
	cmdAdjustPriceAbsolute
	cmdAdjustPricePercent
	cmdAdjustBalance
	cmdGrantShares
	cmdRemoveShares
	cmdExecuteSplit
	cmdStartMarket
	cmdStopMarket
	cmdSetTickInterval
	cmdSeries
	cmdLogin
	cmdListStocks
	cmdGetAccount
)

type command struct {
	typ      cmdType
	user     string
	password string
	ticker   string
	qty      int64
	amount   float64
	ratio    float64
	window   string
	interval time.Duration
	listing  Listing
	respCh   chan<- response
}

type response struct {
	plan    core.TradePlan
	stock   market.Stock
	account market.Account
	series  []market.PricePoint
	stocks  []market.Stock
	err     error
}

// Listing is the input to CreateStock.
type Listing struct {
	Ticker    string
	Name      string
	Price     float64
	MarketCap float64
	PE        float64
	Dividend  float64
}

// Service serializes all exchange intents through one processor goroutine.
type Service struct {
	cfg   Config
	store store.Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	cmdCh    chan command
	stocksCh <-chan []byte
	usersCh  <-chan []byte
	stateCh  <-chan []byte
	cancels  []func()

	stocks map[string]market.Stock
	users  map[string]market.Account
	state  market.MarketState

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewService creates the exchange service and starts its processor. The three
// store watches deliver their current snapshots before the first command is
// accepted.
func NewService(cfg Config, st store.Store, log *zap.Logger) (*Service, error) {
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}

	s := &Service{
		cfg:    cfg,
		store:  st,
		log:    log,
		now:    time.Now,
		newID:  uuid.NewString,
		cmdCh:  make(chan command, cfg.CommandBuffer),
		stocks: make(map[string]market.Stock),
		users:  make(map[string]market.Account),
		closed: make(chan struct{}),
	}

	ctx := context.Background()
	for _, w := range []struct {
		path string
		dst  *(<-chan []byte)
	}{
		{market.PathStocks, &s.stocksCh},
		{market.PathUsers, &s.usersCh},
		{market.PathState, &s.stateCh},
	} {
		ch, cancel, err := st.Watch(ctx, w.path)
		if err != nil {
			for _, c := range s.cancels {
				c()
			}
			return nil, err
		}
		*w.dst = ch
		s.cancels = append(s.cancels, cancel)
	}

	s.wg.Add(1)
	go s.run()
	return s, nil
}

func (s *Service) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.closed:
			return
		case raw, ok := <-s.stocksCh:
			if !ok {
				s.stocksCh = nil
				continue
			}
			s.applySnapshot(market.PathStocks, raw, &s.stocks)
		case raw, ok := <-s.usersCh:
			if !ok {
				s.usersCh = nil
				continue
			}
			s.applySnapshot(market.PathUsers, raw, &s.users)
		case raw, ok := <-s.stateCh:
			if !ok {
				s.stateCh = nil
				continue
			}
			s.applySnapshot(market.PathState, raw, &s.state)
		case cmd := <-s.cmdCh:
			s.process(cmd)
		}
	}
}

func (s *Service) applySnapshot(path string, raw []byte, dst any) {
	if err := json.Unmarshal(raw, dst); err != nil {
		s.log.Warn("ignoring malformed snapshot",
			zap.String("path", path), zap.Error(err))
	}
}

func (s *Service) process(cmd command) {
	var resp response

	switch cmd.typ {
	case cmdBuy:
		resp = s.trade(market.TradeBuy, cmd)
	case cmdSell:
		resp = s.trade(market.TradeSell, cmd)
	case cmdCreateStock:
		resp = s.createStock(cmd.listing)
	case cmdAdjustPriceAbsolute, cmdAdjustPricePercent:
		resp = s.adjustPrice(cmd)
	case cmdAdjustBalance:
		resp = s.adjustBalance(cmd.user, cmd.amount)
	case cmdGrantShares:
		resp = s.grantShares(cmd.user, cmd.ticker, cmd.qty)
	case cmdRemoveShares:
		resp = s.removeShares(cmd.user, cmd.ticker, cmd.qty)
	case cmdExecuteSplit:
		resp = s.executeSplit(cmd.ticker, cmd.ratio)
	case cmdStartMarket:
		resp = s.setRunning(true, cmd.user)
	case cmdStopMarket:
		resp = s.setRunning(false, cmd.user)
	case cmdSetTickInterval:
		resp = s.setTickInterval(cmd.interval)
	case cmdSeries:
		resp = s.seriesWindow(cmd.ticker, cmd.window)
	case cmdLogin:
		resp = s.login(cmd.user, cmd.password)
	case cmdListStocks:
		resp = s.listStocks()
	case cmdGetAccount:
		acct, ok := s.users[cmd.user]
		if !ok {
			resp.err = core.ErrUnknownUser(cmd.user)
		} else {
			resp.account = acct
		}
	}

	if cmd.respCh != nil {
		cmd.respCh <- resp
	}
}

func (s *Service) trade(side market.TradeType, cmd command) response {
	acct, ok := s.users[cmd.user]
	if !ok {
		metrics.TradeRejected()
		return response{err: core.ErrUnknownUser(cmd.user)}
	}
	stock, ok := s.stocks[cmd.ticker]
	if !ok {
		metrics.TradeRejected()
		return response{err: core.ErrUnknownTicker(cmd.ticker)}
	}

	now := s.now()
	var plan core.TradePlan
	var err error
	if side == market.TradeBuy {
		plan, err = core.PlanBuy(stock, acct, s.users, cmd.qty, s.cfg.Fees, now)
	} else {
		plan, err = core.PlanSell(stock, acct, cmd.qty, s.cfg.Fees, now)
	}
	if err != nil {
		metrics.TradeRejected()
		return response{err: err}
	}

	s.stocks[plan.Ticker] = plan.Stock
	acct.Balance = plan.NewBalance
	if acct.Portfolio == nil {
		acct.Portfolio = make(map[string]int64)
	}
	acct.Portfolio[plan.Ticker] = plan.NewHolding
	s.users[cmd.user] = acct

	ctx := context.Background()
	record := plan.Record(s.newID(), now)
	s.writeStocks(ctx)
	s.writeUsers(ctx, map[string]any{cmd.user: acct})
	if err := s.store.Set(ctx, market.TradePath(cmd.user, record.Timestamp), record); err != nil {
		metrics.StoreWriteFailed()
		s.log.Warn("trade record write failed", zap.String("user", cmd.user), zap.Error(err))
	}

	metrics.TradeExecuted(string(side))
	s.log.Info("trade executed",
		zap.String("user", cmd.user),
		zap.String("side", string(side)),
		zap.String("ticker", plan.Ticker),
		zap.Int64("qty", plan.Quantity),
		zap.Float64("price", plan.Price),
		zap.Float64("newPrice", plan.NewPrice))
	return response{plan: plan}
}

func (s *Service) createStock(l Listing) response {
	if l.Ticker == "" || l.Name == "" {
		return response{err: core.Rejectf("listing needs a ticker and a name")}
	}
	if _, exists := s.stocks[l.Ticker]; exists {
		return response{err: core.Rejectf("%s is already listed", l.Ticker)}
	}
	if l.Price <= 0 || l.MarketCap <= 0 {
		return response{err: core.Rejectf("listing needs a positive price and market cap")}
	}

	now := s.now()
	price := market.Round2(l.Price)
	stock := market.Stock{
		Ticker:     l.Ticker,
		Name:       l.Name,
		Price:      price,
		Open:       price,
		High:       price,
		Low:        price,
		MarketCap:  l.MarketCap,
		PE:         l.PE,
		Dividend:   l.Dividend,
		QtrlyDiv:   market.Round2(l.Dividend * l.Price / 4),
		High52W:    market.Round2(price * 1.25),
		Low52W:     market.Round2(price * 0.75),
		LastUpdate: now.UnixMilli(),
	}
	s.stocks[l.Ticker] = stock
	s.writeStocks(context.Background())
	s.log.Info("stock listed", zap.String("ticker", l.Ticker), zap.Float64("price", price))
	return response{stock: stock}
}

func (s *Service) adjustPrice(cmd command) response {
	stock, ok := s.stocks[cmd.ticker]
	if !ok {
		return response{err: core.ErrUnknownTicker(cmd.ticker)}
	}
	if cmd.typ == cmdAdjustPricePercent {
		stock = core.AdjustPricePercent(stock, cmd.amount, s.now())
	} else {
		stock = core.AdjustPriceAbsolute(stock, cmd.amount, s.now())
	}
	s.stocks[cmd.ticker] = stock
	s.writeStocks(context.Background())
	return response{stock: stock}
}

func (s *Service) adjustBalance(user string, delta float64) response {
	acct, ok := s.users[user]
	if !ok {
		return response{err: core.ErrUnknownUser(user)}
	}
	next := market.Round2(acct.Balance + delta)
	if next < 0 {
		return response{err: core.Rejectf("balance cannot go negative: %s has $%.2f", user, acct.Balance)}
	}
	acct.Balance = next
	s.users[user] = acct
	s.writeUsers(context.Background(), map[string]any{user: acct})
	return response{account: acct}
}

func (s *Service) grantShares(user, ticker string, qty int64) response {
	if qty <= 0 {
		return response{err: core.Rejectf("quantity must be a positive whole number")}
	}
	acct, ok := s.users[user]
	if !ok {
		return response{err: core.ErrUnknownUser(user)}
	}
	stock, ok := s.stocks[ticker]
	if !ok {
		return response{err: core.ErrUnknownTicker(ticker)}
	}
	// Grants come out of the same float trades do.
	if _, available := core.AvailableFloat(stock, s.users); qty > available {
		return response{err: core.Rejectf("only %d shares of %s available to grant", available, ticker)}
	}

	if acct.Portfolio == nil {
		acct.Portfolio = make(map[string]int64)
	}
	acct.Portfolio[ticker] += qty
	s.users[user] = acct
	s.writeUsers(context.Background(), map[string]any{user: acct})
	return response{account: acct}
}

func (s *Service) removeShares(user, ticker string, qty int64) response {
	if qty <= 0 {
		return response{err: core.Rejectf("quantity must be a positive whole number")}
	}
	acct, ok := s.users[user]
	if !ok {
		return response{err: core.ErrUnknownUser(user)}
	}
	held := acct.Shares(ticker)
	if qty > held {
		return response{err: core.Rejectf("cannot remove %d shares of %s: %s holds %d", qty, ticker, user, held)}
	}

	acct.Portfolio[ticker] = held - qty
	s.users[user] = acct
	s.writeUsers(context.Background(), map[string]any{user: acct})
	return response{account: acct}
}

func (s *Service) executeSplit(ticker string, ratio float64) response {
	stock, ok := s.stocks[ticker]
	if !ok {
		return response{err: core.ErrUnknownTicker(ticker)}
	}
	split, err := core.ApplySplit(stock, ratio, s.now())
	if err != nil {
		return response{err: err}
	}

	s.stocks[ticker] = split
	changed := core.SplitHoldings(s.users, ticker, ratio)
	fields := make(map[string]any, len(changed))
	for name, acct := range changed {
		s.users[name] = acct
		fields[name] = acct
	}

	ctx := context.Background()
	s.writeStocks(ctx)
	if len(fields) > 0 {
		s.writeUsers(ctx, fields)
	}
	s.log.Info("split executed",
		zap.String("ticker", ticker),
		zap.Float64("ratio", ratio),
		zap.Int("holders", len(changed)))
	return response{stock: split}
}

func (s *Service) setRunning(running bool, user string) response {
	now := s.now()
	s.state.Running = running
	s.state.Timestamp = now.UnixMilli()
	s.state.User = user
	err := s.store.Update(context.Background(), market.PathState, map[string]any{
		"running":   running,
		"timestamp": now.UnixMilli(),
		"user":      user,
	})
	if err != nil {
		metrics.StoreWriteFailed()
		return response{err: err}
	}
	s.log.Info("market state changed", zap.Bool("running", running), zap.String("user", user))
	return response{}
}

func (s *Service) setTickInterval(d time.Duration) response {
	if d < 250*time.Millisecond {
		return response{err: core.Rejectf("tick interval %v is below the 250ms floor", d)}
	}
	s.state.TickMs = d.Milliseconds()
	err := s.store.Update(context.Background(), market.PathState, map[string]any{
		"tickMs": d.Milliseconds(),
	})
	if err != nil {
		metrics.StoreWriteFailed()
		return response{err: err}
	}
	return response{}
}

func (s *Service) seriesWindow(ticker, window string) response {
	stock, ok := s.stocks[ticker]
	if !ok {
		return response{err: core.ErrUnknownTicker(ticker)}
	}
	points, err := series.Window(stock, window, s.now())
	if err != nil {
		return response{err: err}
	}
	return response{series: points}
}

func (s *Service) login(user, password string) response {
	acct, ok := s.users[user]
	// Plaintext compare on purpose; these are toy accounts in a simulation.
	if !ok || acct.Password != password {
		return response{err: core.Rejectf("invalid username or password")}
	}
	return response{account: acct}
}

func (s *Service) listStocks() response {
	out := make([]market.Stock, 0, len(s.stocks))
	for _, stock := range s.stocks {
		out = append(out, stock)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return response{stocks: out}
}

func (s *Service) writeStocks(ctx context.Context) {
	if err := s.store.Set(ctx, market.PathStocks, s.stocks); err != nil {
		metrics.StoreWriteFailed()
		s.log.Warn("stocks write failed", zap.Error(err))
	}
}

func (s *Service) writeUsers(ctx context.Context, fields map[string]any) {
	if err := s.store.Update(ctx, market.PathUsers, fields); err != nil {
		metrics.StoreWriteFailed()
		s.log.Warn("users write failed", zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, cmd command) (response, error) {
	respCh := make(chan response, 1)
	cmd.respCh = respCh

	select {
	case <-s.closed:
		return response{}, context.Canceled
	case <-ctx.Done():
		return response{}, ctx.Err()
	case s.cmdCh <- cmd:
	}

	select {
	case <-s.closed:
		return response{}, context.Canceled
	case <-ctx.Done():
		return response{}, ctx.Err()
	case resp := <-respCh:
		return resp, resp.err
	}
}

// Buy executes a market buy for user.
func (s *Service) Buy(ctx context.Context, user, ticker string, qty int64) (core.TradePlan, error) {
	resp, err := s.send(ctx, command{typ: cmdBuy, user: user, ticker: ticker, qty: qty})
	return resp.plan, err
}

// Sell executes a market sell for user.
func (s *Service) Sell(ctx context.Context, user, ticker string, qty int64) (core.TradePlan, error) {
	resp, err := s.send(ctx, command{typ: cmdSell, user: user, ticker: ticker, qty: qty})
	return resp.plan, err
}

// CreateStock lists a new instrument.
func (s *Service) CreateStock(ctx context.Context, l Listing) (market.Stock, error) {
	resp, err := s.send(ctx, command{typ: cmdCreateStock, listing: l})
	return resp.stock, err
}

// AdjustPriceAbsolute moves a stock's price by delta dollars.
func (s *Service) AdjustPriceAbsolute(ctx context.Context, ticker string, delta float64) (market.Stock, error) {
	resp, err := s.send(ctx, command{typ: cmdAdjustPriceAbsolute, ticker: ticker, amount: delta})
	return resp.stock, err
}

// AdjustPricePercent moves a stock's price by pct percent.
func (s *Service) AdjustPricePercent(ctx context.Context, ticker string, pct float64) (market.Stock, error) {
	resp, err := s.send(ctx, command{typ: cmdAdjustPricePercent, ticker: ticker, amount: pct})
	return resp.stock, err
}

// AdjustBalance credits (or debits, with a negative delta) a user's balance.
func (s *Service) AdjustBalance(ctx context.Context, user string, delta float64) (market.Account, error) {
	resp, err := s.send(ctx, command{typ: cmdAdjustBalance, user: user, amount: delta})
	return resp.account, err
}

// GrantShares moves shares from the float into a user's portfolio.
func (s *Service) GrantShares(ctx context.Context, user, ticker string, qty int64) (market.Account, error) {
	resp, err := s.send(ctx, command{typ: cmdGrantShares, user: user, ticker: ticker, qty: qty})
	return resp.account, err
}

// RemoveShares returns shares from a user's portfolio to the float.
func (s *Service) RemoveShares(ctx context.Context, user, ticker string, qty int64) (market.Account, error) {
	resp, err := s.send(ctx, command{typ: cmdRemoveShares, user: user, ticker: ticker, qty: qty})
	return resp.account, err
}

// ExecuteSplit applies a forward split to a stock and every holder.
func (s *Service) ExecuteSplit(ctx context.Context, ticker string, ratio float64) (market.Stock, error) {
	resp, err := s.send(ctx, command{typ: cmdExecuteSplit, ticker: ticker, ratio: ratio})
	return resp.stock, err
}

// StartMarket flips the shared running flag on.
func (s *Service) StartMarket(ctx context.Context, user string) error {
	_, err := s.send(ctx, command{typ: cmdStartMarket, user: user})
	return err
}

// StopMarket flips the shared running flag off.
func (s *Service) StopMarket(ctx context.Context, user string) error {
	_, err := s.send(ctx, command{typ: cmdStopMarket, user: user})
	return err
}

// SetTickInterval publishes a new live tick interval for every replica.
func (s *Service) SetTickInterval(ctx context.Context, d time.Duration) error {
	_, err := s.send(ctx, command{typ: cmdSetTickInterval, interval: d})
	return err
}

// Series synthesizes the price series for a chart window ("10m", "1d", "1w",
// "1m", "1y").
func (s *Service) Series(ctx context.Context, ticker, window string) ([]market.PricePoint, error) {
	resp, err := s.send(ctx, command{typ: cmdSeries, ticker: ticker, window: window})
	return resp.series, err
}

// Login checks a user's credentials and returns the account.
func (s *Service) Login(ctx context.Context, user, password string) (market.Account, error) {
	resp, err := s.send(ctx, command{typ: cmdLogin, user: user, password: password})
	return resp.account, err
}

// Stocks returns the current listing snapshot, sorted by ticker.
func (s *Service) Stocks(ctx context.Context) ([]market.Stock, error) {
	resp, err := s.send(ctx, command{typ: cmdListStocks})
	return resp.stocks, err
}

// Account returns a user's current account snapshot.
func (s *Service) Account(ctx context.Context, user string) (market.Account, error) {
	resp, err := s.send(ctx, command{typ: cmdGetAccount, user: user})
	return resp.account, err
}

// Close shuts down the service and waits for the processor to finish.
func (s *Service) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		for _, cancel := range s.cancels {
			cancel()
		}
	})
	s.wg.Wait()
}
