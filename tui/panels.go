package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/fritzmon/internal/engine"
	"github.com/tonhe/fritzmon/internal/fritz"
	"github.com/tonhe/fritzmon/tui/components"
	"github.com/tonhe/fritzmon/tui/keys"
)

var directionTitles = map[fritz.Direction]string{
	fritz.Upstream:   "Upstream",
	fritz.Downstream: "Downstream",
}

func (m AppModel) renderBody(snap *engine.Snapshot, height int) string {
	if snap.Latest == nil {
		msg := "Waiting for first poll..."
		if snap.LastError != nil {
			msg = "Last poll failed: " + snap.LastError.Error()
		}
		return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
			m.styles.TableCellDim.Render(msg))
	}

	panels := make([]string, 0, len(fritz.Directions))
	panelHeight := height / len(fritz.Directions)
	for _, dir := range fritz.Directions {
		panels = append(panels, m.renderDirection(snap, dir, panelHeight))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

// renderDirection draws one direction: a title with the current total and
// utilization, the history chart, and one sparkline row per channel.
func (m AppModel) renderDirection(snap *engine.Snapshot, dir fritz.Direction, height int) string {
	traffic := snap.Latest.Direction(dir)
	available := rateFor(snap.Latest.Available, dir)
	lineMax := rateFor(snap.Latest.Max, dir)

	title := m.styles.PanelTitle.Render(directionTitles[dir]) + "  " +
		m.styles.PanelRate.Render(components.FormatRateUnit(traffic.Total))
	if available > 0 {
		frac := traffic.Total / available
		title += m.styles.TableCellDim.Render(" of "+components.FormatRateUnit(available)) + " " +
			m.styles.Utilization(frac).Render(fmt.Sprintf("(%.0f%%)", frac*100))
	}
	if lineMax > 0 {
		title += m.styles.TableCellDim.Render("  max " + components.FormatRateUnit(lineMax))
	}

	names := channelNames(traffic.Series)
	chartHeight := max(height-len(names)-2, 4)

	history := snap.History[dir]
	totals := make([]float64, len(history))
	for i, s := range history {
		totals[i] = s.Total
	}
	chart := m.styles.ChartStyle.Render(
		components.RenderChart(totals, m.width, chartHeight, "total kbit/s", available))

	rows := []string{" " + title, chart}
	nameWidth := 10
	sparkWidth := max(m.width-nameWidth-16, 4)
	for _, name := range names {
		col := traffic.Series.Columns[name]
		last := 0.0
		if len(col) > 0 {
			last = col[len(col)-1]
		}
		rows = append(rows, fmt.Sprintf(" %s %s %s",
			m.styles.ChannelName.Render(fmt.Sprintf("%-*s", nameWidth, name)),
			m.styles.SparklineStyle.Render(components.Sparkline(col, sparkWidth)),
			m.styles.TableCellDim.Render(fmt.Sprintf("%12s", components.FormatRateUnit(last)))))
	}
	return strings.Join(rows, "\n")
}

func (m AppModel) renderHelp(height int) string {
	var sb strings.Builder
	sb.WriteString(m.styles.ModalTitle.Render("Keys"))
	sb.WriteString("\n\n")
	km := keys.DefaultKeyMap
	for _, b := range km.ShortHelp() {
		h := b.Help()
		sb.WriteString(m.styles.ModalKey.Render(fmt.Sprintf("%-6s", h.Key)))
		sb.WriteString(" " + h.Desc + "\n")
	}
	sb.WriteString("\nRates are kbit/s. The chart shows the summed channels;\n")
	sb.WriteString("its axis is scaled to the line's available rate when known.")
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center,
		m.styles.ModalBorder.Render(sb.String()))
}

func rateFor(r fritz.Rates, dir fritz.Direction) float64 {
	if dir == fritz.Upstream {
		return r.Upstream
	}
	return r.Downstream
}

func channelNames(s fritz.Series) []string {
	names := make([]string, 0, len(s.Columns))
	for name := range s.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
