package fritz

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnauthorized is returned when the router rejects a session token, either
// on a data endpoint or when a fresh login is refused outside the retrying
// authentication flow.
var ErrUnauthorized = errors.New("unauthorized")

// ChallengeError indicates that the login page did not carry a challenge.
type ChallengeError struct {
	Reason string
}

func (e *ChallengeError) Error() string {
	return "no challenge found: " + e.Reason
}

// SIDError is returned when the router answers a login with the all-zero SID.
// BlockTime is the cooldown the router enforces before the next attempt.
type SIDError struct {
	SID       string
	BlockTime time.Duration
}

func (e *SIDError) Error() string {
	return fmt.Sprintf("no SID created, was: %s (block time %s)", e.SID, e.BlockTime)
}

// Cooldown reports how long callers must wait before authenticating again.
func (e *SIDError) Cooldown() time.Duration {
	return e.BlockTime
}

// cooldowner tags errors that require a wait before the next attempt.
type cooldowner interface {
	Cooldown() time.Duration
}

// CooldownOf returns the cooldown carried anywhere in err's chain.
func CooldownOf(err error) (time.Duration, bool) {
	var cd cooldowner
	if errors.As(err, &cd) {
		return cd.Cooldown(), true
	}
	return 0, false
}

// AuthTriesExceededError is returned once the retry budget of a single
// Authenticate call is spent. LastErr is the error of the final attempt.
type AuthTriesExceededError struct {
	Tries   int
	LastErr error
}

func (e *AuthTriesExceededError) Error() string {
	return fmt.Sprintf("auth tries of %d exceeded: %v", e.Tries, e.LastErr)
}

func (e *AuthTriesExceededError) Unwrap() error {
	return e.LastErr
}

// FetchError wraps a transport-level failure while talking to the router.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error while fetching %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError wraps a malformed router response.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error while parsing %s: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// InfoError wraps any failure of the OS version lookup other than an
// authorization rejection.
type InfoError struct {
	Err error
}

func (e *InfoError) Error() string {
	return fmt.Sprintf("error while fetching info-data: %v", e.Err)
}

func (e *InfoError) Unwrap() error {
	return e.Err
}
