// Package fetch implements the HTTP fetch engine: rate-limited requests with
// per-endpoint retry, exponential backoff, and an ordered fallback chain.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/paddock-labs/equinet/internal/ratelimit"
	"github.com/paddock-labs/equinet/internal/resilience"
	"github.com/paddock-labs/equinet/internal/source"
)

// Request describes one logical page fetch against a source, independent of
// which endpoint in the fallback chain ultimately serves it.
type Request struct {
	Path   string
	Params url.Values
}

// Fetcher issues one logical request against a source's endpoint chain.
type Fetcher interface {
	Fetch(ctx context.Context, src source.Descriptor, req Request) ([]byte, error)
}

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent string
	Window    *ratelimit.Window
	Retry     resilience.RetryConfig
	// HostLimiters smooths bursts per host on top of the per-source window.
	HostLimiters map[string]*rate.Limiter
}

// HTTPFetcher implements Fetcher with net/http.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	window         *ratelimit.Window
	retry          resilience.RetryConfig
	hostLimiters   map[string]*rate.Limiter
	defaultLimiter *rate.Limiter
}

// NewHTTPFetcher creates an HTTP fetcher. The per-attempt timeout comes from
// each source's descriptor, so the shared client carries none.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "equinet/1.0"
	}
	if opts.Retry.Attempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Window == nil {
		opts.Window = ratelimit.NewWindow(nil)
	}
	return &HTTPFetcher{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:      opts.UserAgent,
		window:         opts.Window,
		retry:          opts.Retry,
		hostLimiters:   opts.HostLimiters,
		defaultLimiter: rate.NewLimiter(20, 20),
	}
}

// Fetch tries each endpoint in priority order, retrying each up to the
// configured attempt count with backoff before falling through to the next.
// Every attempt first acquires the source's rate-limit window. Exhausting
// the chain returns a *SourceUnavailableError listing every failure.
func (f *HTTPFetcher) Fetch(ctx context.Context, src source.Descriptor, req Request) ([]byte, error) {
	if len(src.Endpoints) == 0 {
		return nil, eris.Errorf("fetch: source %s has no endpoints", src.Name)
	}

	var failures []EndpointFailure
	for _, endpoint := range src.Endpoints {
		body, attempts, err := f.fetchEndpoint(ctx, src, endpoint, req)
		if err == nil {
			return body, nil
		}
		failures = append(failures, EndpointFailure{
			Endpoint: endpoint,
			Attempts: attempts,
			Reason:   err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
		zap.L().Debug("fetch: endpoint exhausted, trying next",
			zap.String("source", src.Name),
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
	}

	return nil, &SourceUnavailableError{Source: src.Name, Failures: failures}
}

// fetchEndpoint drives the retry loop for one endpoint. Timed-out and
// non-2xx responses both count as failed attempts.
func (f *HTTPFetcher) fetchEndpoint(ctx context.Context, src source.Descriptor, endpoint string, req Request) ([]byte, int, error) {
	onRetry := f.retry.OnRetry
	if onRetry == nil {
		onRetry = resilience.RetryLogger(src.Name, endpoint)
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt < f.retry.Attempts; attempt++ {
		if err := f.window.Acquire(ctx, src.Name); err != nil {
			return nil, attempts, eris.Wrap(err, "rate limit wait")
		}
		if err := f.limiterFor(endpoint).Wait(ctx); err != nil {
			return nil, attempts, eris.Wrap(err, "host limiter wait")
		}

		attempts++
		body, err := f.attempt(ctx, src, endpoint, req)
		if err == nil {
			return body, attempts, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, attempts, lastErr
		}
		if attempt >= f.retry.Attempts-1 {
			break
		}
		onRetry(attempt+1, err)

		timer := time.NewTimer(f.retry.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempts, lastErr
		case <-timer.C:
		}
	}
	return nil, attempts, lastErr
}

// attempt performs a single HTTP call bounded by the source's timeout.
func (f *HTTPFetcher) attempt(ctx context.Context, src source.Descriptor, endpoint string, req Request) ([]byte, error) {
	attemptCtx := ctx
	if src.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, src.Timeout)
		defer cancel()
	}

	u := strings.TrimRight(endpoint, "/")
	if req.Path != "" {
		u += "/" + strings.TrimLeft(req.Path, "/")
	}
	if len(req.Params) > 0 {
		u += "?" + req.Params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, u, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	httpReq.Header.Set("User-Agent", f.userAgent)
	for k, v := range src.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, eris.Wrapf(err, "GET %s", u)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "read body from %s", u)
	}

	if blocked, blockType := detectBlock(resp, body); blocked {
		return nil, resilience.NewTransientError(
			fmt.Errorf("blocked (%s) at %s", blockType, u), resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("http %d from %s", resp.StatusCode, u)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return body, nil
}

func (f *HTTPFetcher) limiterFor(endpoint string) *rate.Limiter {
	u, err := url.Parse(endpoint)
	if err != nil {
		return f.defaultLimiter
	}
	if lim, ok := f.hostLimiters[u.Host]; ok {
		return lim
	}
	return f.defaultLimiter
}
