package fritz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// bitsPerByteKilo converts the router's byte/s counters into kbit/s.
const bitsPerByteKilo = 0.008

// channelKeys maps router-internal counter names to channel names.
var channelKeys = map[Direction]map[string]string{
	Upstream: {
		"prio_default_bps":  "default",
		"prio_high_bps":     "high",
		"prio_low_bps":      "low",
		"prio_realtime_bps": "realtime",
	},
	Downstream: {
		"mc_current_bps": "media",
		"ds_current_bps": "internet",
	},
}

// Rates holds a pair of line rates in kbit/s.
type Rates struct {
	Upstream   float64 `json:"upstream"`
	Downstream float64 `json:"downstream"`
}

// Bandwidth is the result of one graph poll.
type Bandwidth struct {
	RequestedAt time.Time `json:"dateReq"`
	Available   Rates     `json:"available"`
	Max         Rates     `json:"max"`
	Upstream    Traffic   `json:"upstream"`
	Downstream  Traffic   `json:"downstream"`
}

// Direction returns the traffic for dir.
func (b *Bandwidth) Direction(dir Direction) Traffic {
	if dir == Downstream {
		return b.Downstream
	}
	return b.Upstream
}

// number accepts both JSON numbers and numeric strings; the router sends
// either depending on firmware.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = number(f)
	return nil
}

// rawGraph is the counters object of inetstat_monitor.lua.
type rawGraph struct {
	Upstream   number
	Downstream number
	MaxUS      number
	MaxDS      number
	Windows    map[string][]number
}

func (g *rawGraph) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	scalars := map[string]*number{
		"upstream":   &g.Upstream,
		"downstream": &g.Downstream,
		"max_us":     &g.MaxUS,
		"max_ds":     &g.MaxDS,
	}
	for key, dst := range scalars {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, dst); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		}
	}
	g.Windows = make(map[string][]number)
	for _, keys := range channelKeys {
		for key := range keys {
			raw, ok := fields[key]
			if !ok {
				continue
			}
			var window []number
			if err := json.Unmarshal(raw, &window); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			g.Windows[key] = window
		}
	}
	return nil
}

// parseGraph decodes the inetstat_monitor body: a JSON array whose first
// element is the counters object.
func parseGraph(body string) (*rawGraph, error) {
	var items []rawGraph
	if err := json.Unmarshal([]byte(body), &items); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errors.New("empty graph response")
	}
	return &items[0], nil
}

// convert renames the router's windows, scales them to kbit/s and turns the
// newest-first router order into oldest-first.
func (g *rawGraph) convert() map[Direction]Channels {
	out := make(map[Direction]Channels, len(channelKeys))
	for dir, keys := range channelKeys {
		ch := make(Channels, len(keys))
		for key, name := range keys {
			window := g.Windows[key]
			values := make([]float64, len(window))
			for i, v := range window {
				values[len(window)-1-i] = float64(v) * bitsPerByteKilo
			}
			ch[name] = values
		}
		out[dir] = ch
	}
	return out
}

// TokenSource hands out session tokens. Authenticator implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// Graph polls the bandwidth monitor and normalizes the result.
type Graph struct {
	auth TokenSource
	base string
	opts options
	norm *Normalizer
}

// NewGraph creates a Graph reading from baseURL with tokens from auth.
func NewGraph(auth TokenSource, baseURL string, opts ...Option) *Graph {
	o := buildOptions(opts)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Graph{
		auth: auth,
		base: strings.TrimRight(baseURL, "/"),
		opts: o,
		norm: NewNormalizer(o.pollInterval),
	}
}

// BandwidthURL builds the inetstat_monitor URL for one request.
func BandwidthURL(base, token string, at time.Time) string {
	return fmt.Sprintf("%s/internet/inetstat_monitor.lua?sid=%s&useajax=1&action=get_graphic&xhr=1&t%d=nocache",
		base, token, at.UnixMilli())
}

// Fetch polls the router once and returns the normalized bandwidth. It must
// not be called concurrently; the normalizer baseline is not guarded.
func (g *Graph) Fetch(ctx context.Context) (*Bandwidth, error) {
	now := g.opts.now()

	token, err := g.auth.Token(ctx)
	if err != nil {
		return nil, g.fail(now, unifyAuthError(err, "graph"))
	}
	body, err := g.opts.fetcher.FetchText(ctx, BandwidthURL(g.base, token, now))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			g.auth.Invalidate()
			return nil, g.fail(now, err)
		}
		return nil, g.fail(now, &FetchError{Op: "graph-data", Err: err})
	}

	raw, err := parseGraph(body)
	if err != nil {
		return nil, g.fail(now, &ParseError{Op: "graph-data", Err: err})
	}

	traffic := g.norm.Process(raw.convert(), now)
	result := &Bandwidth{
		RequestedAt: now,
		Available: Rates{
			Upstream:   float64(raw.Upstream) / 1000,
			Downstream: float64(raw.Downstream) / 1000,
		},
		Max: Rates{
			Upstream:   float64(raw.MaxUS) / 1000,
			Downstream: float64(raw.MaxDS) / 1000,
		},
		Upstream:   traffic[Upstream],
		Downstream: traffic[Downstream],
	}
	g.opts.observer.emit(Event{Type: EventData, Kind: KindGraph, At: now, Bandwidth: result})
	return result, nil
}

// Reset drops the normalizer baseline; the next Fetch starts cold.
func (g *Graph) Reset() {
	g.norm.Reset()
}

func (g *Graph) fail(at time.Time, err error) error {
	g.opts.observer.emit(Event{Type: EventError, Kind: KindGraph, At: at, Err: err})
	return err
}

// unifyAuthError maps a token failure seen outside the authentication flow.
// A refused login there means the same thing as a rejected token.
func unifyAuthError(err error, op string) error {
	var sidErr *SIDError
	switch {
	case errors.Is(err, ErrUnauthorized):
		return err
	case errors.As(err, &sidErr):
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	var (
		fetchErr     *FetchError
		parseErr     *ParseError
		challengeErr *ChallengeError
	)
	if errors.As(err, &fetchErr) || errors.As(err, &parseErr) || errors.As(err, &challengeErr) {
		return err
	}
	return &FetchError{Op: op + " token", Err: err}
}
