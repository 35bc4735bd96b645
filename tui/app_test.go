package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonhe/fritzmon/internal/config"
	"github.com/tonhe/fritzmon/internal/engine"
	"github.com/tonhe/fritzmon/internal/fritz"
)

type fakePoller struct {
	snap    *engine.Snapshot
	events  chan engine.Event
	polls   int
	resets  int
	pollErr error
	pollCtx context.Context
}

func newFakePoller() *fakePoller {
	return &fakePoller{snap: &engine.Snapshot{}, events: make(chan engine.Event, 1)}
}

func (f *fakePoller) Snapshot() *engine.Snapshot     { return f.snap }
func (f *fakePoller) Subscribe() <-chan engine.Event { return f.events }
func (f *fakePoller) Reset() error                   { f.resets++; return nil }

func (f *fakePoller) PollNow(ctx context.Context) (*fritz.Bandwidth, error) {
	f.polls++
	f.pollCtx = ctx
	return nil, f.pollErr
}

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func liveSnapshot() *engine.Snapshot {
	x := []time.Time{now.Add(-5 * time.Second), now}
	return &engine.Snapshot{
		Latest: &fritz.Bandwidth{
			RequestedAt: now,
			Available:   fritz.Rates{Upstream: 40000, Downstream: 250000},
			Upstream: fritz.Traffic{
				Series: fritz.Series{X: x, Columns: map[string][]float64{"default": {10, 12}, "realtime": {0, 0.5}}},
				Total:  12.5,
			},
			Downstream: fritz.Traffic{
				Series: fritz.Series{X: x, Columns: map[string][]float64{"internet": {900, 1500}, "media": {0, 0}}},
				Total:  1500,
			},
		},
		History: map[fritz.Direction][]engine.Sample{
			fritz.Upstream:   {{Timestamp: x[0], Total: 10}, {Timestamp: x[1], Total: 12.5}},
			fritz.Downstream: {{Timestamp: x[0], Total: 900}, {Timestamp: x[1], Total: 1500}},
		},
		Interval:  5 * time.Second,
		LastPoll:  now,
		PollCount: 1,
	}
}

func newTestModel(p *fakePoller) AppModel {
	m := NewAppModel(context.Background(), config.DefaultConfig(), p, "http://fritz.box")
	m.now = func() time.Time { return now }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(AppModel)
}

func keyPress(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestViewBeforeFirstPoll(t *testing.T) {
	m := newTestModel(newFakePoller())
	view := m.View()
	assert.Contains(t, view, "Waiting for first poll")
	assert.Contains(t, view, "WAITING")
}

func TestSnapshotMessageRendersPanels(t *testing.T) {
	p := newFakePoller()
	m := newTestModel(p)

	updated, cmd := m.Update(snapshotMsg{snap: liveSnapshot()})
	require.NotNil(t, cmd, "model keeps listening for events")
	view := updated.(AppModel).View()

	for _, want := range []string{"Upstream", "Downstream", "LIVE", "default", "realtime", "internet", "media", "1.50 Mbit/s", "(1%)"} {
		assert.Contains(t, view, want)
	}
}

func TestWaitForEvent(t *testing.T) {
	p := newFakePoller()
	snap := liveSnapshot()
	p.events <- engine.Event{Snapshot: snap}

	msg := waitForEvent(p.events)()
	assert.Equal(t, snapshotMsg{snap: snap}, msg)

	close(p.events)
	assert.Nil(t, waitForEvent(p.events)())
}

func TestRefreshKeyPolls(t *testing.T) {
	p := newFakePoller()
	m := newTestModel(p)

	updated, cmd := m.Update(keyPress('r'))
	require.NotNil(t, cmd)
	assert.Equal(t, "polling...", updated.(AppModel).notice)

	msg := cmd()
	assert.Equal(t, 1, p.polls)

	updated, _ = updated.(AppModel).Update(msg)
	assert.Empty(t, updated.(AppModel).notice)
}

func TestDashboardWorkFollowsProgramContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := newFakePoller()
	m := NewAppModel(ctx, config.DefaultConfig(), p, "http://fritz.box")
	cancel()

	_, cmd := m.Update(keyPress('r'))
	require.NotNil(t, cmd)
	cmd()
	require.NotNil(t, p.pollCtx)
	assert.ErrorIs(t, p.pollCtx.Err(), context.Canceled)

	msg := osVersionCmd(m.ctx, func(ctx context.Context) (string, error) {
		return "", ctx.Err()
	})()
	assert.ErrorIs(t, msg.(osVersionMsg).err, context.Canceled)
}

func TestRefreshWhileBusy(t *testing.T) {
	m := newTestModel(newFakePoller())
	updated, _ := m.Update(pollDoneMsg{err: engine.ErrPollInFlight})
	assert.Equal(t, "poll already running", updated.(AppModel).notice)

	updated, _ = m.Update(pollDoneMsg{err: engine.ErrCoolingDown})
	assert.Equal(t, "login cooling down", updated.(AppModel).notice)
}

func TestResetKey(t *testing.T) {
	p := newFakePoller()
	updated, _ := newTestModel(p).Update(keyPress('c'))
	assert.Equal(t, 1, p.resets)
	assert.Equal(t, "history cleared", updated.(AppModel).notice)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(newFakePoller())
	updated, _ := m.Update(keyPress('?'))
	m = updated.(AppModel)
	require.True(t, m.showHelp)
	assert.Contains(t, m.View(), "poll now")

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, updated.(AppModel).showHelp)
}

func TestQuitKey(t *testing.T) {
	_, cmd := newTestModel(newFakePoller()).Update(keyPress('q'))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestOSVersionLookup(t *testing.T) {
	m := newTestModel(newFakePoller()).WithOSVersion(func(context.Context) (string, error) {
		return "7.57", nil
	})
	updated, _ := m.Update(osVersionMsg{version: "7.57"})
	assert.True(t, strings.Contains(updated.(AppModel).View(), "FRITZ!OS 7.57"))
}

func TestThemeKeyCycles(t *testing.T) {
	m := newTestModel(newFakePoller())
	require.Equal(t, "solarized-dark", m.themeSlug)

	updated, _ := m.Update(keyPress('t'))
	m = updated.(AppModel)
	assert.NotEqual(t, "solarized-dark", m.themeSlug)
	assert.Equal(t, "theme: "+m.theme.Name, m.notice)
}
