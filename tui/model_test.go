package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	exchangeservice "github.com/governmentofsc/ATLExchange-sub000/internal/exchange/service"
	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
	"github.com/governmentofsc/ATLExchange-sub000/tui/panels"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()

	stocks := map[string]market.Stock{
		"AAPL": {
			Ticker: "AAPL", Name: "Apple Inc.",
			Price: 150, Open: 148, High: 151, Low: 147,
			MarketCap: 1_500_000_000,
		},
	}
	users := map[string]market.Account{
		"demo": {
			Username: "demo", Password: "demo", Balance: 100_000,
			Portfolio: map[string]int64{"AAPL": 10},
		},
	}
	if err := st.Set(ctx, market.PathStocks, stocks); err != nil {
		t.Fatalf("seed stocks: %v", err)
	}
	if err := st.Set(ctx, market.PathUsers, users); err != nil {
		t.Fatalf("seed users: %v", err)
	}

	svc, err := exchangeservice.NewService(exchangeservice.DefaultConfig(), st, zap.NewNop())
	if err != nil {
		t.Fatalf("NewService err=%v", err)
	}
	t.Cleanup(func() {
		svc.Close()
		_ = st.Close()
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		listed, err := svc.Stocks(ctx)
		if err == nil && len(listed) == 1 {
			if _, err := svc.Account(ctx, "demo"); err == nil {
				return NewModel(svc, "demo")
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("service snapshots never landed")
	return nil
}

func TestModelRendersSnapshot(t *testing.T) {
	mdl := newTestModel(t)

	mdl.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	msg := mdl.refresh()()
	snap, ok := msg.(snapshotMsg)
	if !ok {
		t.Fatalf("refresh returned %T", msg)
	}
	if snap.err != nil {
		t.Fatalf("refresh err=%v", snap.err)
	}
	mdl.Update(snap)

	out := mdl.View()
	if !strings.Contains(out, "AAPL") {
		t.Fatalf("market listing missing from view:\n%s", out)
	}
	if !strings.Contains(out, "Cash") {
		t.Fatalf("portfolio cash line missing from view:\n%s", out)
	}
	// Ten held shares valued at the snapshot price.
	if !strings.Contains(out, "$1500.00") {
		t.Fatalf("position not valued at latest price:\n%s", out)
	}
}

func TestModelSubmitOrderReportsFill(t *testing.T) {
	mdl := newTestModel(t)

	msg := mdl.submitOrder(panels.OrderSubmitMsg{
		Side: market.TradeBuy, Ticker: "AAPL", Quantity: 10,
	})()
	res, ok := msg.(orderResultMsg)
	if !ok {
		t.Fatalf("submitOrder returned %T", msg)
	}
	if !strings.Contains(res.message, "✓ Bought 10 AAPL") {
		t.Fatalf("unexpected order result: %q", res.message)
	}
}

func TestModelSubmitOrderReportsRejection(t *testing.T) {
	mdl := newTestModel(t)

	msg := mdl.submitOrder(panels.OrderSubmitMsg{
		Side: market.TradeSell, Ticker: "AAPL", Quantity: 1_000,
	})()
	res, ok := msg.(orderResultMsg)
	if !ok {
		t.Fatalf("submitOrder returned %T", msg)
	}
	if !strings.HasPrefix(res.message, "✗ ") {
		t.Fatalf("expected a rejection message, got %q", res.message)
	}
}
