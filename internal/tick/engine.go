// Package tick drives the live market: while this replica holds the
// controller lease and the market is running, every interval it walks each
// stock's price, refreshes the intraday history tail, and writes the whole
// collection back in one Set.
package tick

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/logging"
	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/metrics"
	"github.com/governmentofsc/ATLExchange-sub000/internal/randstream"
	"github.com/governmentofsc/ATLExchange-sub000/internal/series"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
)

// tickWalkPct is the half-width of the per-tick random walk.
const tickWalkPct = 0.0015

// momentum blending weights; see step.
const (
	momentumKeep  = 0.8
	momentumBlend = 0.2
	momentumApply = 0.3
)

// Engine is the Idle/Ticking state machine. It ticks only while it is both
// the leader and the market is running; every other combination is Idle with
// the timer stopped.
type Engine struct {
	cfg     Config
	store   store.Store
	log     *zap.Logger
	sampler *logging.Sampler
	now     func() time.Time

	leaderCh   chan bool
	runningCh  chan bool
	intervalCh chan time.Duration

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewEngine creates the engine in the Idle state and starts its loop.
func NewEngine(cfg Config, st store.Store, log *zap.Logger) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if cfg.WarnSampleEvery <= 0 {
		cfg.WarnSampleEvery = DefaultConfig().WarnSampleEvery
	}

	e := &Engine{
		cfg:        cfg,
		store:      st,
		log:        log,
		sampler:    logging.NewSampler(cfg.WarnSampleEvery),
		now:        time.Now,
		leaderCh:   make(chan bool, 4),
		runningCh:  make(chan bool, 4),
		intervalCh: make(chan time.Duration, 4),
		closed:     make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// SetLeader tells the engine whether this replica holds the controller lease.
func (e *Engine) SetLeader(leader bool) { e.signal(e.leaderCh, leader) }

// SetRunning tells the engine the shared market running flag.
func (e *Engine) SetRunning(running bool) { e.signal(e.runningCh, running) }

// SetInterval changes the tick interval. Takes effect on the next timer arm.
func (e *Engine) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case e.intervalCh <- d:
	case <-e.closed:
	}
}

func (e *Engine) signal(ch chan bool, v bool) {
	select {
	case ch <- v:
	case <-e.closed:
	}
}

func (e *Engine) run() {
	defer e.wg.Done()

	interval := e.cfg.Interval
	leader := false
	running := false
	ticking := false

	timer := time.NewTimer(interval)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	arm := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)
	}
	disarm := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
	}

	transition := func() {
		next := leader && running
		if next == ticking {
			return
		}
		ticking = next
		if ticking {
			e.log.Info("tick engine started", zap.Duration("interval", interval))
			e.tick()
			arm()
		} else {
			e.log.Info("tick engine stopped")
			disarm()
		}
	}

	for {
		select {
		case <-e.closed:
			return
		case v := <-e.leaderCh:
			leader = v
			transition()
		case v := <-e.runningCh:
			running = v
			transition()
		case d := <-e.intervalCh:
			if d == interval {
				continue
			}
			interval = d
			if ticking {
				arm()
			}
		case <-timer.C:
			e.tick()
			timer.Reset(interval)
		}
	}
}

// tick walks every stock and writes the collection back in a single Set.
// Failures leave the store untouched; the next cycle retries from a fresh
// read.
func (e *Engine) tick() {
	start := e.now()
	ctx := context.Background()

	var stocks map[string]market.Stock
	if err := e.store.Get(ctx, market.PathStocks, &stocks); err != nil {
		if e.sampler.Admit() {
			e.log.Warn("tick read failed", zap.Error(err))
		}
		return
	}
	if len(stocks) == 0 {
		return
	}

	// Stable ordering keeps the per-stock seed offsets consistent between
	// cycles within the same coarse-time bucket.
	tickers := make([]string, 0, len(stocks))
	for ticker := range stocks {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	now := e.now()
	for i, ticker := range tickers {
		stocks[ticker] = e.step(stocks[ticker], i, now)
	}

	for _, s := range stocks {
		if err := s.CheckFinite(); err != nil {
			metrics.NumericAnomaly()
			if e.sampler.Admit() {
				e.log.Warn("tick produced non-finite state, cycle dropped", zap.Error(err))
			}
			return
		}
	}

	if err := e.store.Set(ctx, market.PathStocks, stocks); err != nil {
		metrics.StoreWriteFailed()
		if e.sampler.Admit() {
			e.log.Warn("tick write failed", zap.Error(err))
		}
		return
	}
	metrics.TickCompleted(e.now().Sub(start))
}

// step advances one stock by one tick: a small random walk blended with
// smoothed momentum, running extrema, a refreshed history tail, and a market
// cap recomputed at constant shares outstanding.
func (e *Engine) step(s market.Stock, index int, now time.Time) market.Stock {
	if s.Price <= 0 {
		return s
	}
	shares := s.SharesOutstanding()

	seed := randstream.TickerSeed(s.Ticker) + now.Unix()/30 + int64(index)
	stream := randstream.New(seed, randstream.Noise)

	delta := (stream.Float64() - 0.5) * 2 * tickWalkPct * s.Price
	momentum := momentumKeep*s.LastMomentum + momentumBlend*delta
	raw := s.Price + delta + momentumApply*momentum

	newPrice := market.Round2(raw)
	if math.IsNaN(newPrice) || math.IsInf(newPrice, 0) || newPrice <= 0 {
		metrics.NumericAnomaly()
		// Tiny perturbation off the last good price so the walk never stalls
		// on a corrupted input.
		perturb := (stream.Float64() - 0.5) * 0.0002
		newPrice = math.Max(0.01, market.Round2(s.Price*(1+perturb)))
		momentum = 0
	}

	s.Price = newPrice
	s.LastMomentum = momentum
	if newPrice > s.High {
		s.High = newPrice
	}
	if newPrice < s.Low || s.Low <= 0 {
		s.Low = newPrice
	}
	if newPrice > s.High52W {
		s.High52W = newPrice
	}
	if s.Low52W > 0 && newPrice < s.Low52W {
		s.Low52W = newPrice
	}

	anchor := s.Open
	if anchor <= 0 {
		anchor = newPrice
	}
	s.History = series.IntradayPath(s.Ticker, anchor, s.History, now)
	if n := len(s.History); n > 0 {
		s.History[n-1].Price = newPrice
	}

	s.MarketCap = shares * newPrice
	s.LastUpdate = now.UnixMilli()
	s.ManualTrade = false
	return s
}

// Close stops the engine and waits for the loop to exit.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
	})
	e.wg.Wait()
}
