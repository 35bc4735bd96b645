package engine

import (
	"time"

	"github.com/tonhe/fritzmon/internal/fritz"
)

// Sample is one point of a direction's total throughput in kbit/s.
type Sample struct {
	Timestamp time.Time
	Total     float64
}

// Snapshot is a point-in-time view of the poller state. It is a copy and can
// be read without locks.
type Snapshot struct {
	Latest       *fritz.Bandwidth
	History      map[fritz.Direction][]Sample
	Interval     time.Duration
	LastPoll     time.Time
	PollCount    int
	ErrorCount   int
	LastError    error
	BlockedUntil time.Time
}

// Healthy reports whether the last poll succeeded.
func (s *Snapshot) Healthy() bool {
	return s.LastError == nil && !s.LastPoll.IsZero()
}

// Event is sent to subscribers after every poll.
type Event struct {
	Snapshot *Snapshot
}
