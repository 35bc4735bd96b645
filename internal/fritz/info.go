package fritz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// overviewResponse is the slice of data.lua?page=overview we read.
type overviewResponse struct {
	Data struct {
		FritzOS struct {
			NSPVer string `json:"nspver"`
		} `json:"fritzos"`
	} `json:"data"`
}

// Info looks up device information outside the bandwidth monitor.
type Info struct {
	auth TokenSource
	base string
	opts options
}

// NewInfo creates an Info client for baseURL.
func NewInfo(auth TokenSource, baseURL string, opts ...Option) *Info {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Info{
		auth: auth,
		base: strings.TrimRight(baseURL, "/"),
		opts: buildOptions(opts),
	}
}

// OverviewURL builds the data.lua overview URL.
func OverviewURL(base, token string) string {
	return fmt.Sprintf("%s/data.lua?sid=%s&useajax=1&page=overview&xhr=1", base, token)
}

// OSVersion returns the router's FRITZ!OS version string.
func (i *Info) OSVersion(ctx context.Context) (string, error) {
	now := i.opts.now()
	version, err := i.osVersion(ctx)
	if err != nil {
		i.opts.observer.emit(Event{Type: EventError, Kind: KindInfo, At: now, Err: err})
		return "", err
	}
	i.opts.observer.emit(Event{Type: EventData, Kind: KindInfo, At: now, OSVersion: version})
	return version, nil
}

func (i *Info) osVersion(ctx context.Context) (string, error) {
	token, err := i.auth.Token(ctx)
	if err != nil {
		unified := unifyAuthError(err, "info")
		if errors.Is(unified, ErrUnauthorized) {
			return "", unified
		}
		return "", &InfoError{Err: err}
	}
	body, err := i.opts.fetcher.FetchText(ctx, OverviewURL(i.base, token))
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			i.auth.Invalidate()
			return "", err
		}
		return "", &InfoError{Err: err}
	}
	var resp overviewResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return "", &InfoError{Err: &ParseError{Op: "info-data", Err: err}}
	}
	if resp.Data.FritzOS.NSPVer == "" {
		return "", &InfoError{Err: errors.New("no fritzos version in overview")}
	}
	return resp.Data.FritzOS.NSPVer, nil
}
