package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/internal/engine"
	"github.com/tonhe/fritzmon/internal/fritz"
	"github.com/tonhe/fritzmon/tui/components"
	"github.com/tonhe/fritzmon/tui/keys"
	"github.com/tonhe/fritzmon/tui/styles"
)

// Version is shown in the header.
var Version = "v0.1.0"

// Poller is the part of engine.Poller the dashboard drives.
type Poller interface {
	Snapshot() *engine.Snapshot
	Subscribe() <-chan engine.Event
	PollNow(ctx context.Context) (*fritz.Bandwidth, error)
	Reset() error
}

type (
	// tickMsg refreshes countdowns between polls.
	tickMsg     struct{}
	snapshotMsg struct{ snap *engine.Snapshot }
	pollDoneMsg struct{ err error }
	osVersionMsg struct {
		version string
		err     error
	}
)

// AppModel is the root Bubble Tea model of the live dashboard.
type AppModel struct {
	themeSlug string
	theme     styles.Theme
	styles    *styles.Styles
	config    *config.Config
	ctx       context.Context
	poller    Poller
	events    <-chan engine.Event
	router    string

	osLookup  func(context.Context) (string, error)
	osVersion string

	snap     *engine.Snapshot
	notice   string
	showHelp bool
	width    int
	height   int
	now      func() time.Time
}

// NewAppModel creates the dashboard for poller. router labels the header.
// Polls and lookups started from the dashboard are bound to ctx.
func NewAppModel(ctx context.Context, cfg *config.Config, poller Poller, router string) AppModel {
	m := AppModel{
		ctx:    ctx,
		config: cfg,
		poller: poller,
		events: poller.Subscribe(),
		router: router,
		snap:   poller.Snapshot(),
		now:    time.Now,
	}
	m.setTheme(cfg.Theme)
	return m
}

// setTheme switches to slug, falling back to the default theme.
func (m *AppModel) setTheme(slug string) {
	m.themeSlug = slug
	m.theme = styles.DefaultTheme
	if t, ok := styles.Lookup(slug); ok {
		m.theme = t
	}
	m.styles = styles.NewStyles(m.theme)
}

// WithOSVersion makes the dashboard look up the FRITZ!OS version once at
// start.
func (m AppModel) WithOSVersion(lookup func(context.Context) (string, error)) AppModel {
	m.osLookup = lookup
	return m
}

// Init starts listening for poll events and the UI tick.
func (m AppModel) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.events), tickCmd()}
	if m.osLookup != nil {
		cmds = append(cmds, osVersionCmd(m.ctx, m.osLookup))
	}
	return tea.Batch(cmds...)
}

func osVersionCmd(ctx context.Context, lookup func(context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		v, err := lookup(ctx)
		return osVersionMsg{version: v, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg { return tickMsg{} })
}

func waitForEvent(events <-chan engine.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return snapshotMsg{snap: ev.Snapshot}
	}
}

func pollNowCmd(ctx context.Context, p Poller) tea.Cmd {
	return func() tea.Msg {
		_, err := p.PollNow(ctx)
		return pollDoneMsg{err: err}
	}
}

// Update handles messages.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, tickCmd()

	case snapshotMsg:
		m.snap = msg.snap
		return m, waitForEvent(m.events)

	case pollDoneMsg:
		switch {
		case errors.Is(msg.err, engine.ErrPollInFlight):
			m.notice = "poll already running"
		case errors.Is(msg.err, engine.ErrCoolingDown):
			m.notice = "login cooling down"
		default:
			m.notice = ""
		}
		return m, nil

	case osVersionMsg:
		if msg.err == nil {
			m.osVersion = msg.version
		}
		return m, nil

	case tea.KeyMsg:
		km := keys.DefaultKeyMap
		switch {
		case key.Matches(msg, km.Quit):
			return m, tea.Quit
		case m.showHelp && (key.Matches(msg, km.Escape) || key.Matches(msg, km.Help)):
			m.showHelp = false
		case key.Matches(msg, km.Help):
			m.showHelp = true
		case key.Matches(msg, km.Refresh):
			m.notice = "polling..."
			return m, pollNowCmd(m.ctx, m.poller)
		case key.Matches(msg, km.Theme):
			m.setTheme(styles.NextTheme(m.themeSlug))
			m.notice = "theme: " + m.theme.Name
		case key.Matches(msg, km.Reset):
			if err := m.poller.Reset(); err != nil {
				m.notice = "cannot clear while polling"
			} else {
				m.notice = "history cleared"
			}
		}
	}
	return m, nil
}

// View renders header, body and status bar.
func (m AppModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	snap := m.snap
	if snap == nil {
		snap = &engine.Snapshot{}
	}

	header := components.RenderHeader(m.theme, m.router, snap.Healthy(), m.osVersion, Version, m.width)
	status := components.RenderStatusBar(m.theme, components.PollStatus{
		Interval:     snap.Interval,
		LastPoll:     snap.LastPoll,
		Polls:        snap.PollCount,
		Errors:       snap.ErrorCount,
		LastError:    snap.LastError,
		BlockedUntil: snap.BlockedUntil,
		Notice:       m.notice,
	}, keys.DefaultKeyMap.ShortHelp(), m.now(), m.width)

	bodyHeight := max(m.height-1-2, 1) // 1 header line, 2 status bar lines
	body := m.renderBody(snap, bodyHeight)
	if m.showHelp {
		body = m.renderHelp(bodyHeight)
	}

	bodyStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		Background(m.theme.Base00).
		Foreground(m.theme.Base05)

	return lipgloss.JoinVertical(lipgloss.Left, header, bodyStyle.Render(body), status)
}
