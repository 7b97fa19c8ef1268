package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/tui/styles"
)

// MarketOverviewPanel lists every stock with its live price, day change, and
// market cap.
type MarketOverviewPanel struct {
	stocks        []market.Stock
	selectedIndex int
	focused       bool
	width         int
	height        int
}

// NewMarketOverviewPanel creates a new market overview panel.
func NewMarketOverviewPanel() *MarketOverviewPanel {
	return &MarketOverviewPanel{}
}

// Init initializes the panel.
func (p *MarketOverviewPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *MarketOverviewPanel) Update(msg tea.Msg) (*MarketOverviewPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(msg, key.NewBinding(key.WithKeys("up", "k"))):
			if p.selectedIndex > 0 {
				p.selectedIndex--
			}
		case key.Matches(msg, key.NewBinding(key.WithKeys("down", "j"))):
			if p.selectedIndex < len(p.stocks)-1 {
				p.selectedIndex++
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *MarketOverviewPanel) View() string {
	var content strings.Builder

	header := fmt.Sprintf("%-6s %10s %9s %8s", "Ticker", "Price", "Day", "Cap")
	content.WriteString(styles.HeaderStyle.Render(header))
	content.WriteString("\n")

	for i, s := range p.stocks {
		change := 0.0
		if s.Open > 0 {
			change = (s.Price - s.Open) / s.Open * 100
		}
		row := fmt.Sprintf("%-6s %10s %9s %8s",
			s.Ticker,
			styles.FormatMoney(s.Price),
			styles.FormatChange(change),
			styles.FormatCap(s.MarketCap))

		style := styles.RowStyle
		if i == p.selectedIndex && p.focused {
			style = styles.SelectedRowStyle
		}
		content.WriteString(style.Render(row))
		if i < len(p.stocks)-1 {
			content.WriteString("\n")
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("📈 Market", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *MarketOverviewPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *MarketOverviewPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetStocks replaces the listing snapshot, preserving the selection by
// ticker when possible.
func (p *MarketOverviewPanel) SetStocks(stocks []market.Stock) {
	selected := p.SelectedTicker()
	p.stocks = stocks
	if selected == "" {
		return
	}
	for i, s := range stocks {
		if s.Ticker == selected {
			p.selectedIndex = i
			return
		}
	}
	if p.selectedIndex >= len(stocks) {
		p.selectedIndex = 0
	}
}

// SelectedTicker returns the currently selected ticker, empty if none.
func (p *MarketOverviewPanel) SelectedTicker() string {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.stocks) {
		return p.stocks[p.selectedIndex].Ticker
	}
	return ""
}

// SelectedStock returns the currently selected stock.
func (p *MarketOverviewPanel) SelectedStock() market.Stock {
	if p.selectedIndex >= 0 && p.selectedIndex < len(p.stocks) {
		return p.stocks[p.selectedIndex]
	}
	return market.Stock{}
}
