// Package app assembles the simulation: store, exchange service,
// coordinator, and tick engine, plus the plumbing between them.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/governmentofsc/ATLExchange-sub000/internal/coordinator"
	exchangeservice "github.com/governmentofsc/ATLExchange-sub000/internal/exchange/service"
	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
	"github.com/governmentofsc/ATLExchange-sub000/internal/tick"
)

// Config aggregates the subsystem configurations.
type Config struct {
	Exchange    exchangeservice.Config
	Tick        tick.Config
	Coordinator coordinator.Config
}

// DefaultConfig returns defaults for every subsystem.
func DefaultConfig() Config {
	return Config{
		Exchange:    exchangeservice.DefaultConfig(),
		Tick:        tick.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
	}
}

// App owns all the simulation subsystems and manages their lifecycle.
type App struct {
	Store       store.Store
	Exchange    *exchangeservice.Service
	Coordinator *coordinator.Coordinator
	Engine      *tick.Engine

	log     *zap.Logger
	cancels []func()

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New wires the subsystems together over the given store. The engine receives
// leadership transitions from the coordinator and the running flag and tick
// interval from the shared market state document.
func New(cfg Config, st store.Store, log *zap.Logger) (*App, error) {
	a := &App{
		Store:  st,
		log:    log,
		closed: make(chan struct{}),
	}

	var err error
	a.Exchange, err = exchangeservice.NewService(cfg.Exchange, st, log.Named("exchange"))
	if err != nil {
		return nil, err
	}

	a.Engine = tick.NewEngine(cfg.Tick, st, log.Named("tick"))

	a.Coordinator, err = coordinator.New(cfg.Coordinator, st, log.Named("coordinator"))
	if err != nil {
		a.Engine.Close()
		a.Exchange.Close()
		return nil, err
	}

	stateCh, cancel, err := st.Watch(context.Background(), market.PathState)
	if err != nil {
		a.Coordinator.Close()
		a.Engine.Close()
		a.Exchange.Close()
		return nil, err
	}
	a.cancels = append(a.cancels, cancel)

	a.wg.Add(1)
	go a.pump(stateCh)
	return a, nil
}

// pump forwards leadership and market state changes into the tick engine.
func (a *App) pump(stateCh <-chan []byte) {
	defer a.wg.Done()

	for {
		select {
		case <-a.closed:
			return
		case leader, ok := <-a.Coordinator.Leadership():
			if !ok {
				continue
			}
			a.Engine.SetLeader(leader)
		case raw, ok := <-stateCh:
			if !ok {
				return
			}
			var state market.MarketState
			if err := json.Unmarshal(raw, &state); err != nil {
				a.log.Warn("malformed market state", zap.Error(err))
				continue
			}
			a.Engine.SetRunning(state.Running)
			if state.TickMs > 0 {
				a.Engine.SetInterval(time.Duration(state.TickMs) * time.Millisecond)
			}
		}
	}
}

// Bootstrap seeds the default listings and accounts when the store is empty.
// Existing documents are never overwritten.
func Bootstrap(ctx context.Context, st store.Store, log *zap.Logger, now time.Time) error {
	var stocks map[string]market.Stock
	err := st.Get(ctx, market.PathStocks, &stocks)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(stocks) == 0) {
		if err := st.Set(ctx, market.PathStocks, market.DefaultStocks(now)); err != nil {
			return err
		}
		log.Info("seeded default listings")
	} else if err != nil {
		return err
	}

	var users map[string]market.Account
	err = st.Get(ctx, market.PathUsers, &users)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(users) == 0) {
		if err := st.Set(ctx, market.PathUsers, market.DefaultAccounts()); err != nil {
			return err
		}
		log.Info("seeded default accounts")
	} else if err != nil {
		return err
	}

	var state market.MarketState
	if err := st.Get(ctx, market.PathState, &state); errors.Is(err, store.ErrNotFound) {
		return st.Set(ctx, market.PathState, market.MarketState{Running: false})
	} else if err != nil {
		return err
	}
	return nil
}

// Close shuts down the subsystems in reverse dependency order. The store is
// owned by the caller and stays open.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		close(a.closed)
		for _, cancel := range a.cancels {
			cancel()
		}
	})
	a.wg.Wait()

	a.Coordinator.Close()
	a.Engine.Close()
	a.Exchange.Close()
}
