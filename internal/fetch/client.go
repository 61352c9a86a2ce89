// SPDX-License-Identifier: MIT

// Package fetch is the HTTP transport for schedule sources and bulk feeds:
// bounded timeouts, retries with backoff on transient failures, per-host
// politeness and a per-host circuit breaker.
package fetch

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/pkepg/epgstitch/internal/compress"
	xglog "github.com/pkepg/epgstitch/internal/log"
	"github.com/pkepg/epgstitch/internal/metrics"
	"github.com/pkepg/epgstitch/internal/resilience"
	"github.com/pkepg/epgstitch/internal/version"
)

// Options tunes a Client. Zero fields take the DefaultOptions value.
type Options struct {
	Timeout          time.Duration
	Attempts         uint
	Backoff          time.Duration
	MaxBackoff       time.Duration
	RatePerHost      float64 // requests per second
	Burst            int
	BreakerThreshold int
	BreakerReset     time.Duration
	MaxBodyBytes     int64
	UserAgent        string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Timeout:          30 * time.Second,
		Attempts:         3,
		Backoff:          500 * time.Millisecond,
		MaxBackoff:       10 * time.Second,
		RatePerHost:      2,
		Burst:            4,
		BreakerThreshold: 5,
		BreakerReset:     time.Minute,
		MaxBodyBytes:     256 << 20,
		UserAgent:        "epgstitch/" + version.Version,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.Attempts == 0 {
		o.Attempts = d.Attempts
	}
	if o.Backoff <= 0 {
		o.Backoff = d.Backoff
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = d.MaxBackoff
	}
	if o.RatePerHost <= 0 {
		o.RatePerHost = d.RatePerHost
	}
	if o.Burst <= 0 {
		o.Burst = d.Burst
	}
	if o.BreakerThreshold <= 0 {
		o.BreakerThreshold = d.BreakerThreshold
	}
	if o.BreakerReset <= 0 {
		o.BreakerReset = d.BreakerReset
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = d.MaxBodyBytes
	}
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	return o
}

// Response is a fully read, decompressed response body.
type Response struct {
	URL        string
	Status     int
	Body       []byte
	Compressed bool
	// Date is the server's Date header, zero when absent or unparseable.
	Date time.Time
}

// Client is safe for concurrent use.
type Client struct {
	http *http.Client
	opts Options

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// New creates a Client. A nil httpClient gets a default one with opts.Timeout.
func New(opts Options, httpClient *http.Client) *Client {
	opts = opts.withDefaults()
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		http:  httpClient,
		opts:  opts,
		hosts: make(map[string]*hostState),
	}
}

func (c *Client) host(name string) *hostState {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.hosts[name]
	if !ok {
		h = &hostState{
			limiter: rate.NewLimiter(rate.Limit(c.opts.RatePerHost), c.opts.Burst),
			breaker: resilience.NewCircuitBreaker("fetch:"+name, c.opts.BreakerThreshold, c.opts.BreakerReset),
		}
		c.hosts[name] = h
	}
	return h
}

// Get downloads rawURL, retrying transient failures. gzip bodies are
// detected by content and decompressed.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.request(ctx, http.MethodGet, rawURL)
}

// ServerTime asks the source's server for its clock via a HEAD request and
// falls back to the local clock.
func (c *Client) ServerTime(ctx context.Context, rawURL string) time.Time {
	logger := xglog.WithComponentFromContext(ctx, "fetch")
	resp, err := c.request(ctx, http.MethodHead, rawURL)
	if err == nil && !resp.Date.IsZero() {
		return resp.Date
	}
	logger.Debug().Err(err).Str(xglog.FieldURL, rawURL).Msg("server clock unavailable, using local clock")
	return time.Now()
}

func (c *Client) request(ctx context.Context, method, rawURL string) (*Response, error) {
	logger := xglog.WithComponentFromContext(ctx, "fetch")

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: method, URL: rawURL, Err: err}
	}
	h := c.host(u.Host)

	var attempts uint
	resp, err := retry.DoWithData(
		func() (*Response, error) {
			attempts++
			var out *Response
			err := h.breaker.Execute(func() error {
				var err error
				out, err = c.do(ctx, method, u, h)
				return err
			}, countsAgainstHost)
			if errors.Is(err, resilience.ErrCircuitOpen) {
				metrics.RecordFetch(u.Host, "circuit_open", 0)
				return nil, &Error{Sentinel: ErrCircuitOpen, Operation: method, URL: rawURL, Err: err}
			}
			return out, err
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.Attempts),
		retry.Delay(c.opts.Backoff),
		retry.MaxDelay(c.opts.MaxBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.RetryIf(retryable),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Debug().Err(err).
				Str(xglog.FieldEvent, "fetch.retry").
				Str(xglog.FieldURL, rawURL).
				Uint("attempt", n+1).
				Msg("retrying source request")
		}),
	)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			fe.Attempts = attempts
			return nil, fe
		}
		return nil, &Error{Sentinel: ErrTimeout, Operation: method, URL: rawURL, Attempts: attempts, Err: err}
	}
	return resp, nil
}

// do performs a single attempt.
func (c *Client) do(ctx context.Context, method string, u *url.URL, h *hostState) (*Response, error) {
	rawURL := u.String()
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, &Error{Sentinel: ErrTimeout, Operation: method, URL: rawURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrInvalidRequest, Operation: method, URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		metrics.RecordFetch(u.Host, "error", time.Since(start))
		return nil, &Error{Sentinel: classifyTransport(err), Operation: method, URL: rawURL, Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	metrics.RecordFetch(u.Host, metrics.StatusClass(res.StatusCode), time.Since(start))

	if sentinel := statusSentinel(res.StatusCode); sentinel != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return nil, &Error{Sentinel: sentinel, Operation: method, URL: rawURL, Status: res.StatusCode}
	}

	out := &Response{URL: rawURL, Status: res.StatusCode}
	if d, err := http.ParseTime(res.Header.Get("Date")); err == nil {
		out.Date = d
	}
	if method == http.MethodHead {
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, &Error{Sentinel: classifyTransport(err), Operation: method, URL: rawURL, Err: err}
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: method, URL: rawURL, Err: errors.New("body exceeds size limit")}
	}
	out.Body, out.Compressed, err = compress.Gunzip(body, c.opts.MaxBodyBytes)
	if err != nil {
		return nil, &Error{Sentinel: ErrBadResponse, Operation: method, URL: rawURL, Err: err}
	}
	return out, nil
}

func statusSentinel(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code == http.StatusRequestTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrUpstream
	default:
		return ErrRejected
	}
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return ErrUnavailable
}
