package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonhe/fritzmon/internal/fritz"
)

type authFunc func(ctx context.Context) (string, error)

func (f authFunc) Authenticate(ctx context.Context) (string, error) { return f(ctx) }

type sourceFunc func(ctx context.Context) (*fritz.Bandwidth, error)

func (f sourceFunc) Fetch(ctx context.Context) (*fritz.Bandwidth, error) { return f(ctx) }

func okAuth() authFunc {
	return func(context.Context) (string, error) { return "sid", nil }
}

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func bandwidth(points int, up, down float64) *fritz.Bandwidth {
	x := make([]time.Time, points)
	upCol := make([]float64, points)
	downCol := make([]float64, points)
	for i := range x {
		x[i] = t0.Add(time.Duration(i) * time.Second)
		upCol[i] = up
		downCol[i] = down
	}
	return &fritz.Bandwidth{
		RequestedAt: t0,
		Upstream: fritz.Traffic{
			Series: fritz.Series{X: x, Columns: map[string][]float64{"default": upCol, "high": upCol}},
			Total:  2 * up,
		},
		Downstream: fritz.Traffic{
			Series: fritz.Series{X: x, Columns: map[string][]float64{"internet": downCol}},
			Total:  down,
		},
	}
}

func TestClampInterval(t *testing.T) {
	d, clamped := ClampInterval(time.Second)
	assert.True(t, clamped)
	assert.Equal(t, MinInterval, d)

	d, clamped = ClampInterval(30 * time.Second)
	assert.False(t, clamped)
	assert.Equal(t, 30*time.Second, d)

	p := NewPoller(okAuth(), sourceFunc(nil), Config{Interval: time.Millisecond})
	assert.Equal(t, MinInterval, p.Interval())
}

func TestPollNowRecordsHistory(t *testing.T) {
	var polls []error
	p := NewPoller(okAuth(), sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
		return bandwidth(3, 1.5, 10), nil
	}), Config{
		MaxHistory: 4,
		Now:        func() time.Time { return t0 },
		OnPoll:     func(_ time.Duration, err error) { polls = append(polls, err) },
	})
	events := p.Subscribe()

	_, err := p.PollNow(context.Background())
	require.NoError(t, err)
	_, err = p.PollNow(context.Background())
	require.NoError(t, err)

	snap := p.Snapshot()
	assert.Equal(t, 2, snap.PollCount)
	assert.Zero(t, snap.ErrorCount)
	assert.True(t, snap.Healthy())
	assert.Equal(t, t0, snap.LastPoll)
	require.Len(t, snap.History[fritz.Upstream], 4, "history is capped")
	assert.Equal(t, 3.0, snap.History[fritz.Upstream][0].Total, "channels are summed per point")
	assert.Equal(t, 10.0, snap.History[fritz.Downstream][3].Total)
	assert.Equal(t, []error{nil, nil}, polls)

	select {
	case ev := <-events:
		assert.NotNil(t, ev.Snapshot.Latest)
	default:
		t.Fatal("subscriber should have received an event")
	}
}

func TestPollNowRejectsConcurrentPoll(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	p := NewPoller(okAuth(), sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
		close(entered)
		<-release
		return bandwidth(1, 1, 1), nil
	}), Config{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := p.PollNow(context.Background())
		assert.NoError(t, err)
	}()

	<-entered
	_, err := p.PollNow(context.Background())
	assert.ErrorIs(t, err, ErrPollInFlight)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, p.Snapshot().PollCount)
}

func TestAuthFailureSkipsFetch(t *testing.T) {
	fetched := false
	boom := errors.New("no route to host")
	p := NewPoller(authFunc(func(context.Context) (string, error) { return "", boom }),
		sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
			fetched = true
			return nil, nil
		}), Config{})

	_, err := p.PollNow(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, fetched)

	snap := p.Snapshot()
	assert.Equal(t, 1, snap.ErrorCount)
	assert.ErrorIs(t, snap.LastError, boom)
	assert.False(t, snap.Healthy())
}

func TestCooldownSkipsPollsUntilBlockTimePassed(t *testing.T) {
	now := t0
	var authCalls int32
	exceeded := &fritz.AuthTriesExceededError{
		Tries:   fritz.MaxAuthTries,
		LastErr: &fritz.SIDError{SID: "0000000000000000", BlockTime: 30 * time.Second},
	}
	p := NewPoller(authFunc(func(context.Context) (string, error) {
		if atomic.AddInt32(&authCalls, 1) == 1 {
			return "", exceeded
		}
		return "sid", nil
	}), sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
		return bandwidth(1, 1, 1), nil
	}), Config{Now: func() time.Time { return now }})

	_, err := p.PollNow(context.Background())
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, t0.Add(30*time.Second), p.Snapshot().BlockedUntil)

	now = now.Add(10 * time.Second)
	_, err = p.PollNow(context.Background())
	assert.ErrorIs(t, err, ErrCoolingDown)
	assert.Equal(t, int32(1), atomic.LoadInt32(&authCalls))

	now = now.Add(25 * time.Second)
	_, err = p.PollNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&authCalls))
}

func TestCancelBetweenAuthAndFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetched := false
	p := NewPoller(authFunc(func(context.Context) (string, error) {
		cancel()
		return "sid", nil
	}), sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
		fetched = true
		return nil, nil
	}), Config{})

	_, err := p.PollNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fetched)
}

func TestRunPollsImmediatelyAndStops(t *testing.T) {
	p := NewPoller(okAuth(), sourceFunc(func(context.Context) (*fritz.Bandwidth, error) {
		return bandwidth(2, 1, 1), nil
	}), Config{Interval: time.Hour})
	events := p.Subscribe()

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case ev := <-events:
		assert.Equal(t, 1, ev.Snapshot.PollCount)
	case <-time.After(5 * time.Second):
		t.Fatal("first poll did not happen")
	}

	p.Stop()
	p.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

type resettableSource struct {
	sourceFunc
	resets int
}

func (r *resettableSource) Reset() { r.resets++ }

func TestResetClearsHistoryAndSource(t *testing.T) {
	src := &resettableSource{sourceFunc: func(context.Context) (*fritz.Bandwidth, error) {
		return bandwidth(2, 1, 1), nil
	}}
	p := NewPoller(okAuth(), src, Config{})

	_, err := p.PollNow(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Snapshot().History[fritz.Upstream], 2)

	require.NoError(t, p.Reset())
	snap := p.Snapshot()
	assert.Empty(t, snap.History[fritz.Upstream])
	assert.Nil(t, snap.Latest)
	assert.Equal(t, 1, src.resets)
	assert.Equal(t, 1, snap.PollCount, "counters survive a reset")
}
