package fritz

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultRequestTimeout bounds a single router request.
const DefaultRequestTimeout = 10 * time.Second

// maxBodySize caps how much of a router response is read.
const maxBodySize = 4 << 20

// Fetcher issues GET requests against the router and returns the raw body.
type Fetcher interface {
	FetchText(ctx context.Context, rawURL string) (string, error)
}

// HTTPFetcher is the net/http backed Fetcher.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &HTTPFetcher{Client: &http.Client{Timeout: timeout}}
}

// FetchText performs a GET and returns the body as text. 401 and 403 are
// reported as ErrUnauthorized, any other non-2xx status as an error.
func (f *HTTPFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
