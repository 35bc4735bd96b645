package fritz

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// sleepRecorder records requested sleeps and returns immediately.
type sleepRecorder struct {
	sleeps []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	return ctx.Err()
}

func sessionXML(sid, challenge string, blockTime int) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>`+
		`<SessionInfo><SID>%s</SID><Challenge>%s</Challenge><BlockTime>%d</BlockTime><Rights></Rights></SessionInfo>`,
		sid, challenge, blockTime)
}

// fakeRouter answers login_sid.lua like a router with a fixed password and
// serves scripted bodies for the data endpoints.
type fakeRouter struct {
	mu sync.Mutex

	challenge string
	password  string
	sid       string
	blockTime int
	// refuse makes every login fail regardless of the password.
	refuse bool

	loginPages int
	responses  int

	graphBodies []string
	graphErr    error
	graphCalls  int
	infoBody    string
	infoErr     error
	seen        []string
}

func newFakeRouter(password string) *fakeRouter {
	return &fakeRouter{
		challenge: "1234567z",
		password:  password,
		sid:       "a1b2c3d4e5f60718",
	}
}

func (r *fakeRouter) FetchText(ctx context.Context, rawURL string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.seen = append(r.seen, rawURL)
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	switch u.Path {
	case DefaultLoginPath:
		response := u.Query().Get("response")
		if response == "" {
			r.loginPages++
			return sessionXML(rejectedSID, r.challenge, 0), nil
		}
		r.responses++
		want, _ := EncodeResponse(r.challenge, r.password)
		if r.refuse || response != want || u.Query().Get("username") != DefaultUsername {
			return sessionXML(rejectedSID, r.challenge, r.blockTime), nil
		}
		return sessionXML(r.sid, r.challenge, 0), nil
	case "/internet/inetstat_monitor.lua":
		r.graphCalls++
		if u.Query().Get("sid") != r.sid {
			return "", ErrUnauthorized
		}
		if r.graphErr != nil {
			return "", r.graphErr
		}
		if len(r.graphBodies) == 0 {
			return "", fmt.Errorf("no graph body scripted")
		}
		body := r.graphBodies[0]
		if len(r.graphBodies) > 1 {
			r.graphBodies = r.graphBodies[1:]
		}
		return body, nil
	case "/data.lua":
		if u.Query().Get("sid") != r.sid {
			return "", ErrUnauthorized
		}
		if r.infoErr != nil {
			return "", r.infoErr
		}
		return r.infoBody, nil
	}
	return "", fmt.Errorf("unexpected path %s", u.Path)
}

// eventRecorder collects observer events.
type eventRecorder struct {
	events []Event
}

func (r *eventRecorder) Observe(ev Event) {
	r.events = append(r.events, ev)
}

func (r *eventRecorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
