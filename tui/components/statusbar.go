package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/fritzmon/tui/styles"
)

// PollStatus is what the status bar shows about the poller.
type PollStatus struct {
	Interval     time.Duration
	LastPoll     time.Time
	Polls        int
	Errors       int
	LastError    error
	BlockedUntil time.Time
	Notice       string
}

// RenderStatusBar renders the two-line footer: poll state on top, key
// bindings below.
func RenderStatusBar(theme styles.Theme, st PollStatus, bindings []key.Binding, now time.Time, width int) string {
	bg := theme.Base01
	bgStyle := lipgloss.NewStyle().Background(bg)
	text := func(c lipgloss.Color, s string) string {
		return lipgloss.NewStyle().Foreground(c).Background(bg).Render(s)
	}
	sep := text(theme.Base03, " | ")

	lastStr := "never"
	if !st.LastPoll.IsZero() {
		lastStr = st.LastPoll.Format("15:04:05")
	}
	segs := []string{
		text(theme.Base05, fmt.Sprintf("poll: %s", st.Interval)),
		text(theme.Base05, fmt.Sprintf("last: %s", lastStr)),
	}

	healthColor := theme.Base0B
	if st.Errors > 0 {
		healthColor = theme.Base0A
	}
	segs = append(segs, text(healthColor, fmt.Sprintf("%d/%d OK", st.Polls-st.Errors, st.Polls)))

	switch {
	case now.Before(st.BlockedUntil):
		segs = append(segs, text(theme.Base08,
			fmt.Sprintf("login blocked %s", st.BlockedUntil.Sub(now).Round(time.Second))))
	case st.LastError != nil:
		segs = append(segs, text(theme.Base08, truncate(st.LastError.Error(), width/2)))
	}
	if st.Notice != "" {
		segs = append(segs, text(theme.Base0C, st.Notice))
	}

	top := fillLine(bgStyle, bgStyle.Render(" ")+strings.Join(segs, sep), width)

	keyStyle := lipgloss.NewStyle().Foreground(theme.Base0D).Background(bg).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(theme.Base04).Background(bg)
	keys := bgStyle.Render(" ")
	for i, b := range bindings {
		if i > 0 {
			keys += bgStyle.Render("  ")
		}
		keys += keyStyle.Render(b.Help().Key) + descStyle.Render(":"+b.Help().Desc)
	}

	return lipgloss.JoinVertical(lipgloss.Left, top, fillLine(bgStyle, keys, width))
}

func fillLine(bg lipgloss.Style, s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		s += bg.Render(strings.Repeat(" ", width-w))
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
