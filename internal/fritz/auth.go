package fritz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
)

const (
	// MaxAuthTries is the attempt budget of one Authenticate call.
	MaxAuthTries = 2
	// TokenValidity is how long a freshly issued SID is trusted without
	// asking the router again.
	TokenValidity = 200 * time.Second

	DefaultBaseURL   = "http://fritz.box"
	DefaultLoginPath = "/login_sid.lua"
	DefaultUsername  = "admin"
)

// Credentials identify a router login.
type Credentials struct {
	BaseURL   string
	LoginPath string
	Username  string
	Password  string
}

// WithDefaults fills empty fields with the stock FRITZ!Box values.
func (c Credentials) WithDefaults() Credentials {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.Username == "" {
		c.Username = DefaultUsername
	}
	return c
}

// Session is the token state held by an Authenticator.
type Session struct {
	Token        string
	IssuedAt     time.Time
	SkipValidity bool
}

// Authenticator owns the router session and is its only mutator.
type Authenticator struct {
	creds Credentials
	opts  options

	// login admits one challenge/response round at a time.
	login chan struct{}

	mu      sync.Mutex
	session Session
}

// NewAuthenticator creates an Authenticator that logs in with creds.
func NewAuthenticator(creds Credentials, opts ...Option) *Authenticator {
	return &Authenticator{
		creds: creds.WithDefaults(),
		opts:  buildOptions(opts),
		login: make(chan struct{}, 1),
	}
}

// NewAuthenticatorWithToken creates an Authenticator around an externally
// obtained token. A zero issuedAt disables the validity window until the
// router rejects the token.
func NewAuthenticatorWithToken(creds Credentials, token string, issuedAt time.Time, opts ...Option) *Authenticator {
	a := NewAuthenticator(creds, opts...)
	a.session = Session{
		Token:        token,
		IssuedAt:     issuedAt,
		SkipValidity: issuedAt.IsZero(),
	}
	return a
}

// Credentials returns the login the authenticator was built with.
func (a *Authenticator) Credentials() Credentials {
	return a.creds
}

// Session returns a copy of the current session.
func (a *Authenticator) Session() Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Valid reports whether the current session may be used without contacting
// the router. An expired session is cleared.
func (a *Authenticator) Valid() bool {
	_, ok := a.validToken()
	return ok
}

// Invalidate drops the current session so the next call logs in again.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = Session{}
}

func (a *Authenticator) validToken() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.session
	if s.Token != "" && (s.SkipValidity || a.opts.now().Sub(s.IssuedAt) < a.opts.validity) {
		return s.Token, true
	}
	a.session = Session{}
	return "", false
}

// Token returns the current token, running a single challenge/response round
// when the session is not valid. It does not retry. Concurrent callers share
// one round: the others wait for it and reuse its session.
func (a *Authenticator) Token(ctx context.Context) (string, error) {
	if token, ok := a.validToken(); ok {
		return token, nil
	}

	select {
	case a.login <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-a.login }()

	if token, ok := a.validToken(); ok {
		return token, nil
	}
	return a.loginRound(ctx)
}

func (a *Authenticator) loginRound(ctx context.Context) (string, error) {
	loginURL := a.creds.BaseURL + a.creds.LoginPath
	page, err := a.opts.fetcher.FetchText(ctx, loginURL)
	if err != nil {
		return "", &FetchError{Op: "challenge", Err: err}
	}
	challenge, err := parseChallenge(page)
	if err != nil {
		return "", err
	}
	response, err := EncodeResponse(challenge, a.creds.Password)
	if err != nil {
		return "", err
	}

	// Query order is what the router's Lua handler is known to accept.
	responseURL := fmt.Sprintf("%s?username=%s&response=%s",
		loginURL, url.QueryEscape(a.creds.Username), url.QueryEscape(response))
	reply, err := a.opts.fetcher.FetchText(ctx, responseURL)
	if err != nil {
		return "", &FetchError{Op: "challenge response", Err: err}
	}
	token, err := parseToken(reply)
	if err != nil {
		return "", err
	}

	now := a.opts.now()
	a.mu.Lock()
	a.session = Session{Token: token, IssuedAt: now}
	a.mu.Unlock()

	a.opts.observer.emit(Event{Type: EventData, Kind: KindToken, At: now})
	return token, nil
}

// Authenticate returns a valid token, retrying the login up to the
// configured budget. The budget is reset on every call. Errors carrying a
// cooldown are waited out before the next attempt.
func (a *Authenticator) Authenticate(ctx context.Context) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= a.opts.maxTries; attempt++ {
		token, err := a.Token(ctx)
		if err == nil {
			return token, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if attempt == a.opts.maxTries {
			break
		}
		if cooldown, ok := CooldownOf(err); ok {
			a.opts.log.Warn("router refused login, waiting for block time",
				zap.Int("attempt", attempt),
				zap.Duration("block_time", cooldown))
			if err := a.opts.sleep(ctx, cooldown); err != nil {
				return "", err
			}
			a.opts.log.Info("continuing with connection retry")
			continue
		}
		a.opts.log.Warn("login attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	exceeded := &AuthTriesExceededError{Tries: a.opts.maxTries, LastErr: lastErr}
	a.opts.observer.emit(Event{Type: EventError, Kind: KindToken, At: a.opts.now(), Err: exceeded})
	return "", exceeded
}

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// EncodeResponse computes the router's challenge response:
// challenge + "-" + md5hex(utf16le(challenge + "-" + password)).
func EncodeResponse(challenge, password string) (string, error) {
	if challenge == "" {
		return "", errors.New("empty challenge")
	}
	encoded, err := utf16le.NewEncoder().String(challenge + "-" + password)
	if err != nil {
		return "", fmt.Errorf("encode challenge: %w", err)
	}
	sum := md5.Sum([]byte(encoded))
	return challenge + "-" + hex.EncodeToString(sum[:]), nil
}
