// Package tui is the terminal front end: four panels over the exchange
// service, refreshed on a short poll of the service snapshots.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	exchangeservice "github.com/governmentofsc/ATLExchange-sub000/internal/exchange/service"
	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/tui/panels"
	"github.com/governmentofsc/ATLExchange-sub000/tui/styles"
)

// PanelFocus represents which panel is currently focused.
type PanelFocus int

const (
	FocusMarket PanelFocus = iota
	FocusChart
	FocusOrder
	FocusPortfolio
	panelCount
)

// Model is the main TUI application model.
type Model struct {
	exchange *exchangeservice.Service
	username string

	marketPanel    *panels.MarketOverviewPanel
	chartPanel     *panels.ChartPanel
	orderPanel     *panels.OrderEntryPanel
	portfolioPanel *panels.PortfolioPanel

	focusedPanel PanelFocus

	width  int
	height int

	statusMsg string
	ready     bool
}

// NewModel creates a new TUI model for a logged-in user.
func NewModel(exchange *exchangeservice.Service, username string) *Model {
	return &Model{
		exchange:       exchange,
		username:       username,
		marketPanel:    panels.NewMarketOverviewPanel(),
		chartPanel:     panels.NewChartPanel(),
		orderPanel:     panels.NewOrderEntryPanel(),
		portfolioPanel: panels.NewPortfolioPanel(),
		focusedPanel:   FocusMarket,
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.marketPanel.Init(),
		m.chartPanel.Init(),
		m.orderPanel.Init(),
		m.portfolioPanel.Init(),
		m.refresh(),
		m.tickRefresh(),
	)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			m.focusedPanel = (m.focusedPanel + 1) % panelCount
		case "shift+tab":
			m.focusedPanel--
			if m.focusedPanel < 0 {
				m.focusedPanel = panelCount - 1
			}
		case "f1":
			m.focusedPanel = FocusMarket
		case "f2":
			m.focusedPanel = FocusChart
		case "f3":
			m.focusedPanel = FocusOrder
		case "f4":
			m.focusedPanel = FocusPortfolio
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case snapshotMsg:
		m.applySnapshot(msg)

	case seriesMsg:
		if msg.ticker == m.chartPanel.Ticker() && msg.window == m.chartPanel.Window() {
			m.chartPanel.SetPoints(msg.points)
		}

	case panels.WindowChangedMsg:
		cmds = append(cmds, m.fetchSeries(msg.Ticker, msg.Window))

	case panels.OrderSubmitMsg:
		cmds = append(cmds, m.submitOrder(msg))

	case orderResultMsg:
		m.statusMsg = msg.message
		cmds = append(cmds, m.refresh())

	case tickMsg:
		cmds = append(cmds, m.refresh(), m.tickRefresh())
	}

	m.updateFocusedPanel(msg, &cmds)

	// Keep the chart and order form pointed at the market selection.
	if selected := m.marketPanel.SelectedStock(); selected.Ticker != "" {
		if selected.Ticker != m.chartPanel.Ticker() {
			m.chartPanel.SetTicker(selected.Ticker)
			cmds = append(cmds, m.fetchSeries(selected.Ticker, m.chartPanel.Window()))
		}
		m.orderPanel.SetStock(selected.Ticker, selected.Price)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) updateFocusedPanel(msg tea.Msg, cmds *[]tea.Cmd) {
	var cmd tea.Cmd

	switch m.focusedPanel {
	case FocusMarket:
		m.marketPanel, cmd = m.marketPanel.Update(msg)
	case FocusChart:
		m.chartPanel, cmd = m.chartPanel.Update(msg)
	case FocusOrder:
		m.orderPanel, cmd = m.orderPanel.Update(msg)
	case FocusPortfolio:
		m.portfolioPanel, cmd = m.portfolioPanel.Update(msg)
	}

	if cmd != nil {
		*cmds = append(*cmds, cmd)
	}
}

// View renders the UI.
func (m *Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	m.marketPanel.SetFocus(m.focusedPanel == FocusMarket)
	m.chartPanel.SetFocus(m.focusedPanel == FocusChart)
	m.orderPanel.SetFocus(m.focusedPanel == FocusOrder)
	m.portfolioPanel.SetFocus(m.focusedPanel == FocusPortfolio)

	// Layout:
	// ┌───────────────┬──────────────────────────┐
	// │    Market     │          Chart           │
	// ├───────────────┼──────────────────────────┤
	// │     Order     │        Portfolio         │
	// └───────────────┴──────────────────────────┘

	leftWidth := m.width * 2 / 5
	rightWidth := m.width - leftWidth
	topHeight := (m.height - 3) * 3 / 5
	bottomHeight := m.height - topHeight - 3

	m.marketPanel.SetSize(leftWidth, topHeight)
	m.chartPanel.SetSize(rightWidth, topHeight)
	topRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.marketPanel.View(),
		m.chartPanel.View(),
	)

	m.orderPanel.SetSize(leftWidth, bottomHeight)
	m.portfolioPanel.SetSize(rightWidth, bottomHeight)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		m.orderPanel.View(),
		m.portfolioPanel.View(),
	)

	return lipgloss.JoinVertical(lipgloss.Left, topRow, bottomRow, m.renderStatusBar())
}

func (m *Model) renderStatusBar() string {
	help := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.StatusBarKeyStyle.Render("F1-F4")+styles.StatusBarDescStyle.Render(" panels"),
		" │ ",
		styles.StatusBarKeyStyle.Render("Tab")+styles.StatusBarDescStyle.Render(" navigate"),
		" │ ",
		styles.StatusBarKeyStyle.Render("↑↓")+styles.StatusBarDescStyle.Render(" select"),
		" │ ",
		styles.StatusBarKeyStyle.Render("q")+styles.StatusBarDescStyle.Render(" quit"),
	)

	status := ""
	if m.statusMsg != "" {
		status = " │ " + m.statusMsg
	}
	return styles.StatusBarStyle.Width(m.width).Render(help + status)
}

func (m *Model) applySnapshot(msg snapshotMsg) {
	if msg.err != nil {
		m.statusMsg = "refresh failed: " + msg.err.Error()
		return
	}
	m.marketPanel.SetStocks(msg.stocks)
	m.portfolioPanel.SetAccount(msg.account)
	m.portfolioPanel.SetPrices(msg.stocks)
}

// snapshotMsg carries a refresh of the service snapshots.
type snapshotMsg struct {
	stocks  []market.Stock
	account market.Account
	err     error
}

// seriesMsg carries a fetched chart series.
type seriesMsg struct {
	ticker string
	window string
	points []market.PricePoint
}

// orderResultMsg is sent after an order is processed.
type orderResultMsg struct {
	message string
}

// tickMsg is sent periodically to refresh data.
type tickMsg struct{}

func (m *Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		stocks, err := m.exchange.Stocks(ctx)
		if err != nil {
			return snapshotMsg{err: err}
		}
		acct, err := m.exchange.Account(ctx, m.username)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{stocks: stocks, account: acct}
	}
}

func (m *Model) fetchSeries(ticker, window string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		points, err := m.exchange.Series(ctx, ticker, window)
		if err != nil {
			return orderResultMsg{message: "chart: " + err.Error()}
		}
		return seriesMsg{ticker: ticker, window: window, points: points}
	}
}

func (m *Model) submitOrder(order panels.OrderSubmitMsg) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var err error
		if order.Side == market.TradeBuy {
			p, buyErr := m.exchange.Buy(ctx, m.username, order.Ticker, order.Quantity)
			if buyErr == nil {
				return orderResultMsg{message: fmt.Sprintf("✓ Bought %d %s @ %s, now %s",
					p.Quantity, p.Ticker, styles.FormatMoney(p.Price), styles.FormatMoney(p.NewPrice))}
			}
			err = buyErr
		} else {
			p, sellErr := m.exchange.Sell(ctx, m.username, order.Ticker, order.Quantity)
			if sellErr == nil {
				return orderResultMsg{message: fmt.Sprintf("✓ Sold %d %s @ %s, now %s",
					p.Quantity, p.Ticker, styles.FormatMoney(p.Price), styles.FormatMoney(p.NewPrice))}
			}
			err = sellErr
		}
		return orderResultMsg{message: "✗ " + err.Error()}
	}
}

func (m *Model) tickRefresh() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
