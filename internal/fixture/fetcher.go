// Package fixture loads the static demo inputs: the crosswalk record
// collection and the four files backing the growth-rate computation.
package fixture

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Fetcher reads fixture sources from local paths or http(s) URLs. Remote
// fetches are sent with caching disabled and are never retried; a failed
// fixture load degrades the caller, it does not recover here. A shared
// limiter keeps concurrent fixture loads polite toward a single host.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(10, 10),
		userAgent: "crosswalk-cli/1.0",
	}
}

// Read returns the raw bytes of the source, which may be a filesystem path
// or an http(s) URL.
func (f *Fetcher) Read(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return f.fetch(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read %s", source)
	}
	return data, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fixture: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fixture: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: fetch %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fixture: unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "fixture: read body from %s", rawURL)
	}
	return data, nil
}
