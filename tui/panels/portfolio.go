package panels

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/tui/styles"
)

// PortfolioPanel shows the logged-in user's cash and positions valued at the
// latest prices.
type PortfolioPanel struct {
	account market.Account
	prices  map[string]float64
	focused bool
	width   int
	height  int
}

// NewPortfolioPanel creates the portfolio panel.
func NewPortfolioPanel() *PortfolioPanel {
	return &PortfolioPanel{prices: make(map[string]float64)}
}

// Init initializes the panel.
func (p *PortfolioPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *PortfolioPanel) Update(msg tea.Msg) (*PortfolioPanel, tea.Cmd) {
	return p, nil
}

// View renders the panel.
func (p *PortfolioPanel) View() string {
	var content strings.Builder

	tickers := make([]string, 0, len(p.account.Portfolio))
	total := p.account.Balance
	for ticker, qty := range p.account.Portfolio {
		if qty > 0 {
			tickers = append(tickers, ticker)
			total += float64(qty) * p.prices[ticker]
		}
	}
	sort.Strings(tickers)

	content.WriteString(styles.LabelStyle.Render("Cash  ") +
		styles.RowStyle.Render(styles.FormatMoney(p.account.Balance)) + "\n")
	content.WriteString(styles.LabelStyle.Render("Total ") +
		styles.RowStyle.Render(styles.FormatMoney(total)) + "\n\n")

	if len(tickers) == 0 {
		content.WriteString(styles.MutedStyle.Render("no positions"))
	} else {
		content.WriteString(styles.HeaderStyle.Render(
			fmt.Sprintf("%-6s %10s %12s", "Ticker", "Shares", "Value")))
		for _, ticker := range tickers {
			qty := p.account.Portfolio[ticker]
			content.WriteString("\n" + styles.RowStyle.Render(
				fmt.Sprintf("%-6s %10d %12s",
					ticker, qty, styles.FormatMoney(float64(qty)*p.prices[ticker]))))
		}
	}

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("💼 "+p.account.Username, p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, content.String())
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel.
func (p *PortfolioPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *PortfolioPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetAccount replaces the account snapshot.
func (p *PortfolioPanel) SetAccount(acct market.Account) {
	p.account = acct
}

// SetPrices refreshes the valuation prices.
func (p *PortfolioPanel) SetPrices(stocks []market.Stock) {
	for _, s := range stocks {
		p.prices[s.Ticker] = s.Price
	}
}
