package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tonhe/fritzmon/internal/fritz"
)

var (
	// ErrPollInFlight is returned by PollNow while another poll is running.
	ErrPollInFlight = errors.New("poll already in flight")
	// ErrCoolingDown is returned while the router's block time is pending.
	ErrCoolingDown = errors.New("router login cooling down")
)

const (
	// MinInterval is the shortest poll interval the router tolerates.
	MinInterval     = 5 * time.Second
	defaultHistory  = 360
	subscriberDepth = 1
)

// Authenticator yields a valid session token, retrying as needed.
type Authenticator interface {
	Authenticate(ctx context.Context) (string, error)
}

// Source fetches one normalized bandwidth poll.
type Source interface {
	Fetch(ctx context.Context) (*fritz.Bandwidth, error)
}

// Config tunes a Poller.
type Config struct {
	Interval   time.Duration
	MaxHistory int
	Logger     *zap.Logger
	// Now overrides time.Now.
	Now func() time.Time
	// OnPoll is called after every attempted poll with its duration.
	OnPoll func(d time.Duration, err error)
}

// ClampInterval raises d to MinInterval. The second result reports whether
// d was changed.
func ClampInterval(d time.Duration) (time.Duration, bool) {
	if d < MinInterval {
		return MinInterval, true
	}
	return d, false
}

// Poller drives authenticate→fetch→normalize on an interval. At most one
// poll runs at a time; ticks that arrive while a poll is running are
// coalesced by the ticker.
type Poller struct {
	auth   Authenticator
	source Source
	cfg    Config
	log    *zap.Logger

	inFlight atomic.Bool
	stopCh   chan struct{}
	stopOnce sync.Once

	mu           sync.RWMutex
	history      map[fritz.Direction]*RingBuffer[Sample]
	latest       *fritz.Bandwidth
	lastErr      error
	lastPoll     time.Time
	pollCount    int
	errorCount   int
	blockedUntil time.Time
	subscribers  []chan Event
}

// NewPoller creates a Poller. The interval is clamped to MinInterval.
func NewPoller(auth Authenticator, source Source, cfg Config) *Poller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = defaultHistory
	}
	if d, clamped := ClampInterval(cfg.Interval); clamped {
		if cfg.Interval != 0 {
			cfg.Logger.Warn("poll interval below minimum, using minimum",
				zap.Duration("requested", cfg.Interval), zap.Duration("interval", d))
		}
		cfg.Interval = d
	}

	history := make(map[fritz.Direction]*RingBuffer[Sample], len(fritz.Directions))
	for _, dir := range fritz.Directions {
		history[dir] = NewRingBuffer[Sample](cfg.MaxHistory)
	}
	return &Poller{
		auth:    auth,
		source:  source,
		cfg:     cfg,
		log:     cfg.Logger,
		stopCh:  make(chan struct{}),
		history: history,
	}
}

// Interval returns the effective poll interval.
func (p *Poller) Interval() time.Duration {
	return p.cfg.Interval
}

// Run polls immediately and then on every tick until ctx is done or Stop is
// called. Errors are recorded in the snapshot, not returned.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ticker.C:
			p.tick(ctx)
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	_, err := p.PollNow(ctx)
	switch {
	case errors.Is(err, ErrPollInFlight):
		p.log.Debug("skipping tick, previous poll still running")
	case errors.Is(err, ErrCoolingDown):
		p.log.Debug("skipping tick", zap.Error(err))
	}
}

// PollNow runs one poll unless another one is in flight or the router's
// block time has not passed yet.
func (p *Poller) PollNow(ctx context.Context) (*fritz.Bandwidth, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrPollInFlight
	}
	defer p.inFlight.Store(false)

	p.mu.RLock()
	until := p.blockedUntil
	p.mu.RUnlock()
	if now := p.cfg.Now(); now.Before(until) {
		return nil, fmt.Errorf("%w until %s", ErrCoolingDown, until.Format(time.TimeOnly))
	}

	start := time.Now()
	bw, err := p.poll(ctx)
	if p.cfg.OnPoll != nil {
		p.cfg.OnPoll(time.Since(start), err)
	}
	p.record(bw, err)
	return bw, err
}

func (p *Poller) poll(ctx context.Context) (*fritz.Bandwidth, error) {
	if _, err := p.auth.Authenticate(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.source.Fetch(ctx)
}

func (p *Poller) record(bw *fritz.Bandwidth, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.cfg.Now()
	p.pollCount++
	p.lastPoll = now
	if err != nil {
		p.errorCount++
		p.lastErr = err
		var exceeded *fritz.AuthTriesExceededError
		if errors.As(err, &exceeded) {
			if cooldown, ok := fritz.CooldownOf(exceeded.LastErr); ok && cooldown > 0 {
				p.blockedUntil = now.Add(cooldown)
			}
		}
		p.log.Warn("poll failed", zap.Error(err), zap.Int("errors", p.errorCount))
		p.notify()
		return
	}

	p.lastErr = nil
	p.latest = bw
	for _, dir := range fritz.Directions {
		series := bw.Direction(dir).Series
		sums := series.Sum()
		samples := make([]Sample, len(sums))
		for i, v := range sums {
			samples[i] = Sample{Timestamp: series.X[i], Total: v}
		}
		p.history[dir].AddAll(samples)
	}
	p.log.Debug("poll complete",
		zap.Float64("upstream_kbps", bw.Upstream.Total),
		zap.Float64("downstream_kbps", bw.Downstream.Total))
	p.notify()
}

// Reset clears the history and, when the source supports it, the source's
// baseline so the next poll starts cold. It fails while a poll is running.
func (p *Poller) Reset() error {
	if !p.inFlight.CompareAndSwap(false, true) {
		return ErrPollInFlight
	}
	defer p.inFlight.Store(false)

	if r, ok := p.source.(resetter); ok {
		r.Reset()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, rb := range p.history {
		rb.Clear()
	}
	p.latest = nil
	p.notify()
	return nil
}

type resetter interface {
	Reset()
}

// Snapshot returns a copy of the current state. Safe from any goroutine.
func (p *Poller) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshotLocked()
}

// snapshotLocked requires at least a read lock on p.mu.
func (p *Poller) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Latest:       p.latest,
		History:      make(map[fritz.Direction][]Sample, len(p.history)),
		Interval:     p.cfg.Interval,
		LastPoll:     p.lastPoll,
		PollCount:    p.pollCount,
		ErrorCount:   p.errorCount,
		LastError:    p.lastErr,
		BlockedUntil: p.blockedUntil,
	}
	for dir, rb := range p.history {
		snap.History[dir] = rb.All()
	}
	return snap
}

// Subscribe returns a channel that receives an event after every poll. Slow
// subscribers miss events rather than block the poller.
func (p *Poller) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberDepth)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, ch)
	return ch
}

// notify requires the write lock on p.mu.
func (p *Poller) notify() {
	event := Event{Snapshot: p.snapshotLocked()}
	for _, ch := range p.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}
