// Command terminal runs the interactive trading client. With the memory
// backend it embeds the whole simulation in-process; with the redis backend
// it joins whatever replicas are already mounted on the same store.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/governmentofsc/ATLExchange-sub000/internal/app"
	"github.com/governmentofsc/ATLExchange-sub000/internal/config"
	"github.com/governmentofsc/ATLExchange-sub000/internal/logging"
	"github.com/governmentofsc/ATLExchange-sub000/internal/store"
	"github.com/governmentofsc/ATLExchange-sub000/tui"
)

func main() {
	username := flag.String("user", "demo", "account to log in as")
	password := flag.String("pass", "demo", "account password")
	flag.Parse()

	if err := run(*username, *password); err != nil {
		fmt.Fprintln(os.Stderr, "terminal:", err)
		os.Exit(1)
	}
}

func run(username, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// The terminal owns the screen; logs go to the file sink only.
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.File = "logs/terminal.log"
	log := logging.NewFileOnly(logCfg)
	defer log.Sync() //nolint:errcheck

	st, err := store.Open(cfg.Store, log.Named("store"))
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	ctx := context.Background()
	if err := app.Bootstrap(ctx, st, log, time.Now()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	appCfg := app.DefaultConfig()
	appCfg.Tick.Interval = cfg.Market.TickInterval
	appCfg.Coordinator.Heartbeat = cfg.Market.Heartbeat
	appCfg.Coordinator.LeaseTTL = cfg.Market.LeaseTTL
	appCfg.Coordinator.User = username

	a, err := app.New(appCfg, st, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Exchange.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := a.Exchange.StartMarket(ctx, username); err != nil {
		return fmt.Errorf("start market: %w", err)
	}

	program := tea.NewProgram(tui.NewModel(a.Exchange, username), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
