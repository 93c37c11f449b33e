package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// rateLimiter enforces a minimum spacing between consecutive outbound
// requests of one adapter instance. There is no coordination across
// adapters.
type rateLimiter struct {
	mu       sync.Mutex
	minDelay time.Duration
	last     time.Time
}

func newRateLimiter(minDelay time.Duration) *rateLimiter {
	return &rateLimiter{minDelay: minDelay}
}

// wait blocks until the limiter's window has passed, reserving the
// slot so concurrent callers queue behind each other.
func (l *rateLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	now := time.Now()
	var delay time.Duration
	if !l.last.IsZero() {
		if elapsed := now.Sub(l.last); elapsed < l.minDelay {
			delay = l.minDelay - elapsed
		}
	}
	l.last = now.Add(delay)
	l.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetcher is the shared request primitive adapters build on. It rate
// limits, sets the adapter's identity headers, and converts every
// failure mode (transport error, non-2xx status, unreadable body)
// into a logged "no data" so callers can treat a bad request as an
// empty result instead of an error.
type fetcher struct {
	client    *http.Client
	userAgent string
	limiter   *rateLimiter
	log       *slog.Logger
}

func newFetcher(client *http.Client, userAgent string, minDelay time.Duration, log *slog.Logger) *fetcher {
	return &fetcher{
		client:    client,
		userAgent: userAgent,
		limiter:   newRateLimiter(minDelay),
		log:       log,
	}
}

// Get fetches url and returns the body. The second return is false
// whenever no usable data came back.
func (f *fetcher) Get(ctx context.Context, url string) (string, bool) {
	body, ok := f.do(ctx, http.MethodGet, url, nil, "")
	return string(body), ok
}

// GetJSON fetches url and decodes the JSON body into out.
func (f *fetcher) GetJSON(ctx context.Context, url string, out any) bool {
	body, ok := f.do(ctx, http.MethodGet, url, nil, "")
	if !ok {
		return false
	}
	if err := json.Unmarshal(body, out); err != nil {
		f.log.Warn("failed to decode response body", "url", url, "error", err)
		return false
	}
	return true
}

func (f *fetcher) do(ctx context.Context, method, url string, payload []byte, contentType string) ([]byte, bool) {
	if f.client == nil {
		f.log.Error("fetch attempted before initialize", "url", url)
		return nil, false
	}

	if err := f.limiter.wait(ctx); err != nil {
		f.log.Warn("request cancelled while rate limited", "url", url, "error", err)
		return nil, false
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		f.log.Error("failed to build request", "url", url, "error", err)
		return nil, false
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,application/json;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-GB,en;q=0.5")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Warn("request failed", "url", url, "error", err)
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.log.Warn("unexpected response status", "url", url, "status", resp.StatusCode)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		f.log.Warn("failed to read response body", "url", url, "error", err)
		return nil, false
	}

	return body, true
}

// Close releases the underlying client's idle connections. The
// fetcher is not reused afterwards.
func (f *fetcher) Close() {
	if f.client != nil {
		f.client.CloseIdleConnections()
	}
}
