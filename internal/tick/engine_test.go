package tick

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
)

var tickNow = time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)

func testStock() market.Stock {
	return market.Stock{
		Ticker: "AAPL", Name: "Apple Inc.",
		Price: 200, Open: 200, High: 200, Low: 200,
		MarketCap: 3_000_000_000_000,
		High52W:   250, Low52W: 150,
	}
}

func newIdleEngine(t *testing.T) (*Engine, *store.Memory) {
	t.Helper()
	m := store.NewMemory()
	e := NewEngine(DefaultConfig(), m, zap.NewNop())
	t.Cleanup(func() {
		e.Close()
		_ = m.Close()
	})
	return e, m
}

func TestStepStaysWithinWalkBand(t *testing.T) {
	e, _ := newIdleEngine(t)
	s := testStock()

	for i := 0; i < 50; i++ {
		now := tickNow.Add(time.Duration(i) * 5 * time.Second)
		next := e.step(s, 0, now)
		// Walk is ±0.15% plus a small momentum term, well under 0.5%.
		if move := math.Abs(next.Price - s.Price); move > s.Price*0.005+0.01 {
			t.Fatalf("step %d moved %.4f on price %.2f", i, move, s.Price)
		}
		if next.Price <= 0 {
			t.Fatalf("price went non-positive: %v", next.Price)
		}
		s = next
	}
}

func TestStepPreservesSharesOutstanding(t *testing.T) {
	e, _ := newIdleEngine(t)
	s := testStock()
	before := s.SharesOutstanding()

	for i := 0; i < 20; i++ {
		s = e.step(s, 0, tickNow.Add(time.Duration(i)*5*time.Second))
	}
	if after := s.SharesOutstanding(); math.Abs(after-before)/before > 1e-9 {
		t.Fatalf("shares outstanding drifted: %v -> %v", before, after)
	}
}

func TestStepRefreshesLiveTail(t *testing.T) {
	e, _ := newIdleEngine(t)
	s := e.step(testStock(), 0, tickNow)

	if len(s.History) == 0 {
		t.Fatalf("expected history bars")
	}
	live := 0
	for _, p := range s.History {
		if p.Live {
			live++
		}
	}
	if live != 1 || !s.History[len(s.History)-1].Live {
		t.Fatalf("expected exactly the last bar live, got %d live", live)
	}
	if got := s.History[len(s.History)-1].Price; got != s.Price {
		t.Fatalf("live bar price %v != walked price %v", got, s.Price)
	}
}

func TestStepExtendsHistoryNotRegenerates(t *testing.T) {
	e, _ := newIdleEngine(t)
	s := e.step(testStock(), 0, tickNow)
	firstBar := s.History[0]

	s = e.step(s, 0, tickNow.Add(15*time.Minute))
	if len(s.History) == 0 || s.History[0].Price != firstBar.Price {
		t.Fatalf("emitted bar was rewritten: %+v vs %+v", s.History[0], firstBar)
	}
}

func TestStepClearsManualTradeFlag(t *testing.T) {
	e, _ := newIdleEngine(t)
	s := testStock()
	s.ManualTrade = true

	if out := e.step(s, 0, tickNow); out.ManualTrade {
		t.Fatalf("manual trade flag should reset on the next tick")
	}
}

func TestEngineTicksOnlyWhenLeaderAndRunning(t *testing.T) {
	m := store.NewMemory()
	defer m.Close()
	ctx := context.Background()

	seed := map[string]market.Stock{"AAPL": testStock()}
	if err := m.Set(ctx, market.PathStocks, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Interval = 20 * time.Millisecond
	e := NewEngine(cfg, m, zap.NewNop())
	defer e.Close()

	lastUpdate := func() int64 {
		var stocks map[string]market.Stock
		if err := m.Get(ctx, market.PathStocks, &stocks); err != nil {
			t.Fatalf("Get: %v", err)
		}
		return stocks["AAPL"].LastUpdate
	}

	// Running alone must not tick.
	e.SetRunning(true)
	time.Sleep(100 * time.Millisecond)
	if lastUpdate() != 0 {
		t.Fatalf("engine ticked without leadership")
	}

	e.SetLeader(true)
	waitForUpdate(t, lastUpdate, 0)

	// Losing the running flag stops the timer.
	e.SetRunning(false)
	time.Sleep(50 * time.Millisecond)
	frozen := lastUpdate()
	time.Sleep(100 * time.Millisecond)
	if lastUpdate() != frozen {
		t.Fatalf("engine kept ticking after stop")
	}
}

func waitForUpdate(t *testing.T, read func() int64, prev int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if read() > prev {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("no tick observed in time")
}
