package panels

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/tui/styles"
)

// OrderSubmitMsg is sent when the user confirms an order.
type OrderSubmitMsg struct {
	Side     market.TradeType
	Ticker   string
	Quantity int64
}

// OrderEntryPanel takes a side and a quantity for the selected stock.
type OrderEntryPanel struct {
	side     market.TradeType
	ticker   string
	price    float64
	qtyInput textinput.Model
	focused  bool
	width    int
	height   int
}

// NewOrderEntryPanel creates the order entry panel.
func NewOrderEntryPanel() *OrderEntryPanel {
	qty := textinput.New()
	qty.Placeholder = "quantity"
	qty.CharLimit = 12
	qty.Width = 14
	qty.Validate = func(s string) error {
		if s == "" {
			return nil
		}
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return fmt.Errorf("whole numbers only")
		}
		return nil
	}
	return &OrderEntryPanel{
		side:     market.TradeBuy,
		qtyInput: qty,
	}
}

// Init initializes the panel.
func (p *OrderEntryPanel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the panel.
func (p *OrderEntryPanel) Update(msg tea.Msg) (*OrderEntryPanel, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if !p.focused {
			return p, nil
		}
		switch {
		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("ctrl+b"))):
			p.side = market.TradeBuy
			return p, nil
		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("ctrl+s"))):
			p.side = market.TradeSell
			return p, nil
		case key.Matches(keyMsg, key.NewBinding(key.WithKeys("enter"))):
			qty, err := strconv.ParseInt(strings.TrimSpace(p.qtyInput.Value()), 10, 64)
			if err != nil || qty <= 0 || p.ticker == "" {
				return p, nil
			}
			side, ticker := p.side, p.ticker
			p.qtyInput.Reset()
			return p, func() tea.Msg {
				return OrderSubmitMsg{Side: side, Ticker: ticker, Quantity: qty}
			}
		}
	}

	var cmd tea.Cmd
	p.qtyInput, cmd = p.qtyInput.Update(msg)
	return p, cmd
}

// View renders the panel.
func (p *OrderEntryPanel) View() string {
	sideLabel := styles.BuyStyle.Render("BUY")
	if p.side == market.TradeSell {
		sideLabel = styles.SellStyle.Render("SELL")
	}

	var est string
	if qty, err := strconv.ParseInt(strings.TrimSpace(p.qtyInput.Value()), 10, 64); err == nil && qty > 0 {
		est = styles.MutedStyle.Render(fmt.Sprintf("≈ %s", styles.FormatMoney(float64(qty)*p.price)))
	}

	line := fmt.Sprintf("%s %s @ %s  %s",
		sideLabel,
		p.ticker,
		styles.FormatMoney(p.price),
		est)

	body := lipgloss.JoinVertical(lipgloss.Left,
		line,
		styles.LabelStyle.Render("Qty: ")+p.qtyInput.View(),
		styles.MutedStyle.Render("ctrl+b buy · ctrl+s sell · enter submit"),
	)

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle("🛒 Order", p.focused)
	panel := lipgloss.JoinVertical(lipgloss.Left, title, body)
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

// SetFocus sets the focus state of the panel and the inner input.
func (p *OrderEntryPanel) SetFocus(focused bool) {
	p.focused = focused
	if focused {
		p.qtyInput.Focus()
	} else {
		p.qtyInput.Blur()
	}
}

// SetSize sets the panel dimensions.
func (p *OrderEntryPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetStock points the entry form at a stock.
func (p *OrderEntryPanel) SetStock(ticker string, price float64) {
	p.ticker = ticker
	p.price = price
}
