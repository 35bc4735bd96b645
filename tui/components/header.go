package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/fritzmon/tui/styles"
)

// RenderHeader renders the top bar: app name, router, live state and the
// FRITZ!OS version once known.
func RenderHeader(theme styles.Theme, router string, live bool, osVersion, ver string, width int) string {
	seg := func(c lipgloss.Color, bold bool, s string) string {
		return lipgloss.NewStyle().Foreground(c).Background(theme.Base01).Bold(bold).Render(s)
	}

	status, statusColor := "WAITING", theme.Base0A
	if live {
		status, statusColor = "LIVE", theme.Base0B
	}

	content := fmt.Sprintf(" %s  |  %s  |  %s", seg(theme.Base0D, true, "fritzmon"),
		seg(theme.Base05, false, router), seg(statusColor, false, status))
	if osVersion != "" {
		content += "  |  " + seg(theme.Base04, false, "FRITZ!OS "+osVersion)
	}
	content += "  |  " + seg(theme.Base04, false, ver) + " "

	return lipgloss.NewStyle().
		Background(theme.Base01).
		Width(width).
		Render(content)
}
