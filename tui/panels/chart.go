package panels

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/governmentofsc/ATLExchange-sub000/internal/market"
	"github.com/governmentofsc/ATLExchange-sub000/internal/series"
	"github.com/governmentofsc/ATLExchange-sub000/tui/styles"
)

// chartWindows is the cycle order for the window key.
var chartWindows = []string{
	series.Window10M,
	series.Window1D,
	series.Window1W,
	series.Window1M,
	series.Window1Y,
}

// WindowChangedMsg is sent when the chart window selection changes.
type WindowChangedMsg struct {
	Ticker string
	Window string
}

// ChartPanel draws the selected stock's price series as a braille-free
// column chart; each column is one bar bucketed to the panel height.
type ChartPanel struct {
	ticker   string
	window   string
	points   []market.PricePoint
	focused  bool
	width    int
	height   int
	windowIx int
}

// NewChartPanel creates a chart panel on the intraday window.
func NewChartPanel() *ChartPanel {
	return &ChartPanel{window: series.Window1D, windowIx: 1}
}

// Init initializes the panel.
func (p *ChartPanel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (p *ChartPanel) Update(msg tea.Msg) (*ChartPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !p.focused {
			return p, nil
		}
		if key.Matches(msg, key.NewBinding(key.WithKeys("w"))) {
			p.windowIx = (p.windowIx + 1) % len(chartWindows)
			p.window = chartWindows[p.windowIx]
			ticker := p.ticker
			window := p.window
			return p, func() tea.Msg {
				return WindowChangedMsg{Ticker: ticker, Window: window}
			}
		}
	}
	return p, nil
}

// View renders the panel.
func (p *ChartPanel) View() string {
	plotW := p.width - 12
	plotH := p.height - 6
	if plotW < 8 {
		plotW = 8
	}
	if plotH < 4 {
		plotH = 4
	}

	body := p.renderPlot(plotW, plotH)

	panelStyle := styles.PanelStyle
	if p.focused {
		panelStyle = styles.FocusedPanelStyle
	}
	title := styles.RenderTitle(fmt.Sprintf("📊 %s (%s)", p.ticker, p.window), p.focused)
	hint := styles.MutedStyle.Render("w: cycle window")
	panel := lipgloss.JoinVertical(lipgloss.Left, title, body, hint)
	return panelStyle.Width(p.width - 2).Height(p.height - 2).Render(panel)
}

func (p *ChartPanel) renderPlot(w, h int) string {
	if len(p.points) == 0 {
		return styles.MutedStyle.Render("no data")
	}

	// Downsample to the plot width, keeping the most recent bars.
	points := p.points
	if len(points) > w {
		points = points[len(points)-w:]
	}

	lo, hi := points[0].Price, points[0].Price
	for _, pt := range points {
		if pt.Price < lo {
			lo = pt.Price
		}
		if pt.Price > hi {
			hi = pt.Price
		}
	}
	span := hi - lo
	if span <= 0 {
		span = 1
	}

	grid := make([][]rune, h)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(points)))
	}
	for c, pt := range points {
		row := int(float64(h-1) * (hi - pt.Price) / span)
		if row < 0 {
			row = 0
		}
		if row >= h {
			row = h - 1
		}
		grid[row][c] = '•'
	}

	var out strings.Builder
	for r, runes := range grid {
		label := "        "
		if r == 0 {
			label = fmt.Sprintf("%8.2f", hi)
		} else if r == h-1 {
			label = fmt.Sprintf("%8.2f", lo)
		}
		out.WriteString(styles.ChartAxisStyle.Render(label + " │"))
		out.WriteString(styles.ChartLineStyle.Render(string(runes)))
		if r < h-1 {
			out.WriteString("\n")
		}
	}
	return out.String()
}

// SetFocus sets the focus state of the panel.
func (p *ChartPanel) SetFocus(focused bool) {
	p.focused = focused
}

// SetSize sets the panel dimensions.
func (p *ChartPanel) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// SetTicker switches the charted stock.
func (p *ChartPanel) SetTicker(ticker string) {
	if ticker != p.ticker {
		p.ticker = ticker
		p.points = nil
	}
}

// Ticker returns the charted ticker.
func (p *ChartPanel) Ticker() string { return p.ticker }

// Window returns the active chart window.
func (p *ChartPanel) Window() string { return p.window }

// SetPoints replaces the plotted series.
func (p *ChartPanel) SetPoints(points []market.PricePoint) {
	p.points = points
}
