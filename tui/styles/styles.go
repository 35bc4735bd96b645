package styles

import "github.com/charmbracelet/lipgloss"

// Styles holds all themed lipgloss styles for the dashboard.
type Styles struct {
	// Panels
	PanelTitle lipgloss.Style
	PanelRate  lipgloss.Style

	// Channel table
	TableHeader  lipgloss.Style
	ChannelName  lipgloss.Style
	TableCellDim lipgloss.Style

	// Status colors
	StatusUp   lipgloss.Style
	StatusDown lipgloss.Style
	StatusWarn lipgloss.Style

	// Line utilization thresholds
	UtilLow  lipgloss.Style // < 50%
	UtilMid  lipgloss.Style // 50-80%
	UtilHigh lipgloss.Style // > 80%

	SparklineStyle lipgloss.Style
	ChartStyle     lipgloss.Style

	// Help overlay
	ModalBorder lipgloss.Style
	ModalTitle  lipgloss.Style
	ModalKey    lipgloss.Style
}

// NewStyles creates a new Styles instance from a theme.
func NewStyles(theme Theme) *Styles {
	fg := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Background(theme.Base00)
	}
	return &Styles{
		PanelTitle: fg(theme.Base0E).Bold(true),
		PanelRate:  fg(theme.Base05).Bold(true),

		TableHeader:  fg(theme.Base0D).Bold(true),
		ChannelName:  fg(theme.Base05),
		TableCellDim: fg(theme.Base03),

		StatusUp:   fg(theme.Base0B),
		StatusDown: fg(theme.Base08),
		StatusWarn: fg(theme.Base0A),

		UtilLow:  fg(theme.Base0B),
		UtilMid:  fg(theme.Base0A),
		UtilHigh: fg(theme.Base08),

		SparklineStyle: fg(theme.Base0C),
		ChartStyle:     fg(theme.Base0D),

		ModalBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Base0D).
			BorderBackground(theme.Base00).
			Background(theme.Base00).
			Padding(1, 2),
		ModalTitle: fg(theme.Base0D).Bold(true),
		ModalKey:   fg(theme.Base0A).Bold(true),
	}
}

// Utilization picks the threshold style for a fraction of line capacity.
func (s *Styles) Utilization(frac float64) lipgloss.Style {
	switch {
	case frac > 0.8:
		return s.UtilHigh
	case frac >= 0.5:
		return s.UtilMid
	default:
		return s.UtilLow
	}
}
