package fritz

import (
	"math"
	"sort"
	"time"
)

const (
	// ColdStartSamples is the length of the synthetic axis built when there
	// is no baseline to diff against.
	ColdStartSamples = 20
	// SampleInterval is the router's nominal sampling period.
	SampleInterval = 5 * time.Second
)

// Direction groups channels by traffic direction.
type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
)

// Directions lists every direction in output order.
var Directions = []Direction{Upstream, Downstream}

// Channels maps channel names to their window of samples, oldest first.
type Channels map[string][]float64

// Series is a timestamp axis and one column per channel aligned with it.
type Series struct {
	X       []time.Time          `json:"x"`
	Columns map[string][]float64 `json:"columns"`
}

// Len returns the number of points on the axis.
func (s Series) Len() int {
	return len(s.X)
}

// Sum returns, for every point on the axis, the sum over all channels.
func (s Series) Sum() []float64 {
	out := make([]float64, len(s.X))
	for _, col := range s.Columns {
		for i := range out {
			if i < len(col) {
				out[i] += col[i]
			}
		}
	}
	return out
}

// Traffic is the normalized output for one direction.
type Traffic struct {
	Series Series  `json:"data"`
	Total  float64 `json:"total"`
}

// Normalizer turns successive overlapping router windows into a gap-free
// series. It keeps the previous raw windows as the diff baseline.
type Normalizer struct {
	spacing  time.Duration // router sample period, for the cold-start axis
	span     time.Duration // poll interval, covered by each warm diff
	samples  int
	baseline map[Direction]Channels
}

// NewNormalizer creates a Normalizer for a caller polling every
// pollInterval. The cold-start axis always uses the router's SampleInterval.
func NewNormalizer(pollInterval time.Duration) *Normalizer {
	if pollInterval <= 0 {
		pollInterval = SampleInterval
	}
	return &Normalizer{
		spacing:  SampleInterval,
		span:     pollInterval,
		samples:  ColdStartSamples,
		baseline: make(map[Direction]Channels),
	}
}

// Process normalizes one poll. raw holds the converted, oldest-first windows
// per direction; at is the poll time. The raw windows become the baseline for
// the next call.
func (n *Normalizer) Process(raw map[Direction]Channels, at time.Time) map[Direction]Traffic {
	out := make(map[Direction]Traffic, len(raw))
	next := make(map[Direction]Channels, len(raw))
	for dir, cur := range raw {
		prev := n.baseline[dir]
		var series Series
		if needsColdStart(prev, cur) {
			series = n.coldStart(cur, at)
		} else {
			series = n.interpolate(prev, cur, at)
		}
		out[dir] = Traffic{Series: series, Total: Total(cur)}
		next[dir] = cloneChannels(cur)
	}
	n.baseline = next
	return out
}

// Reset forgets the baseline so the next Process starts cold.
func (n *Normalizer) Reset() {
	n.baseline = make(map[Direction]Channels)
}

// needsColdStart reports whether prev cannot serve as a diff baseline for
// cur: it is missing, entirely empty, or lacks one of cur's channels.
func needsColdStart(prev, cur Channels) bool {
	if len(prev) == 0 {
		return true
	}
	empty := true
	for _, v := range prev {
		if len(v) > 0 {
			empty = false
			break
		}
	}
	if empty {
		return true
	}
	for name := range cur {
		if _, ok := prev[name]; !ok {
			return true
		}
	}
	return false
}

// coldStart builds a fixed-length axis ending at at, spaced by the nominal
// interval, and left-pads short columns with zeros.
func (n *Normalizer) coldStart(cur Channels, at time.Time) Series {
	x := make([]time.Time, n.samples)
	for i := range x {
		x[i] = at.Add(-time.Duration(n.samples-1-i) * n.spacing)
	}
	cols := make(map[string][]float64, len(cur))
	for name, data := range cur {
		col := make([]float64, n.samples)
		if len(data) >= n.samples {
			copy(col, data[len(data)-n.samples:])
		} else {
			copy(col[n.samples-len(data):], data)
		}
		cols[name] = col
	}
	return Series{X: x, Columns: cols}
}

// interpolate keeps only the samples that arrived since the previous poll
// and spreads them evenly over the poll interval.
func (n *Normalizer) interpolate(prev, cur Channels, at time.Time) Series {
	diffs := make(map[string][]float64, len(cur))
	longest := 0
	for name, data := range cur {
		diff := WindowDiff(prev[name], data)
		if len(diff) == 0 {
			diff = []float64{holdValue(prev[name], data)}
		}
		diffs[name] = diff
		if len(diff) > longest {
			longest = len(diff)
		}
	}
	if longest == 0 {
		longest = 1
	}

	cols := make(map[string][]float64, len(diffs))
	for name, diff := range diffs {
		if len(diff) < longest {
			pad := holdValue(prev[name], diff)
			col := make([]float64, longest)
			fill := longest - len(diff)
			for i := 0; i < fill; i++ {
				col[i] = pad
			}
			copy(col[fill:], diff)
			diff = col
		}
		cols[name] = diff
	}

	x := make([]time.Time, longest)
	for i := range x {
		back := time.Duration(int64(n.span) * int64(longest-i) / int64(longest))
		x[i] = at.Add(-back)
	}
	return Series{X: x, Columns: cols}
}

// WindowDiff returns the part of cur that is newer than prev. The boundary
// is the rightmost element of cur equal to prev's last value; without a
// match the whole of cur is new. When that value repeats inside cur (a
// plateau), the rightmost match wins and earlier new samples are dropped.
func WindowDiff(prev, cur []float64) []float64 {
	if len(prev) == 0 {
		return append([]float64(nil), cur...)
	}
	tail := prev[len(prev)-1]
	for i := len(cur) - 1; i >= 0; i-- {
		if cur[i] == tail {
			return append([]float64(nil), cur[i+1:]...)
		}
	}
	return append([]float64(nil), cur...)
}

// holdValue is the last known value of a channel: prev's tail, or the first
// of fallback when there is no previous window.
func holdValue(prev, fallback []float64) float64 {
	if len(prev) > 0 {
		return prev[len(prev)-1]
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return 0
}

// Total sums the newest sample of every channel, rounded to three decimals.
func Total(ch Channels) float64 {
	names := make([]string, 0, len(ch))
	for name := range ch {
		names = append(names, name)
	}
	sort.Strings(names)
	var sum float64
	for _, name := range names {
		if data := ch[name]; len(data) > 0 {
			sum += data[len(data)-1]
		}
	}
	return math.Round(sum*1000) / 1000
}

func cloneChannels(ch Channels) Channels {
	out := make(Channels, len(ch))
	for k, v := range ch {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
