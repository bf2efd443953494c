// AngelaMos | 2026
// fetcher.go

package provider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/gotitgames/catalog/internal/core"
	"github.com/gotitgames/catalog/internal/metrics"
)

const (
	maxAttempts   = 2
	maxRetryAfter = 5 * time.Second
	maxErrorBody  = 512
)

type FetcherConfig struct {
	Provider        string
	UserAgent       string
	Timeout         time.Duration
	RequestDelay    time.Duration
	BreakerFailures uint32
	BreakerTimeout  time.Duration
	Client          *http.Client
	Tracer          trace.Tracer
}

// Fetcher is the outbound HTTP client shared by adapters. Calls are paced
// by a token bucket so consecutive requests are spaced by RequestDelay, and
// a circuit breaker stops hammering a provider that keeps failing.
type Fetcher struct {
	provider  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[struct{}]
	tracer    trace.Tracer
}

func NewFetcher(cfg FetcherConfig) *Fetcher {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if cfg.RequestDelay > 0 {
		limit = rate.Every(cfg.RequestDelay)
	}

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Provider,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.ProviderBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &Fetcher{
		provider:  cfg.Provider,
		userAgent: cfg.UserAgent,
		client:    client,
		limiter:   rate.NewLimiter(limit, 1),
		breaker:   breaker,
		tracer:    cfg.Tracer,
	}
}

func (f *Fetcher) Provider() string {
	return f.provider
}

// GetJSON issues a GET and decodes the JSON body into dst.
func (f *Fetcher) GetJSON(
	ctx context.Context,
	op, url string,
	headers map[string]string,
	dst any,
) error {
	return f.do(ctx, op, http.MethodGet, url, headers, nil, dst)
}

// PostJSON marshals body, POSTs it and decodes the JSON response into dst.
func (f *Fetcher) PostJSON(
	ctx context.Context,
	op, url string,
	headers map[string]string,
	body any,
	dst any,
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &FetchError{Provider: f.provider, Op: op, URL: url, Err: err}
	}

	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}

	return f.do(ctx, op, http.MethodPost, url, h, payload, dst)
}

// PostText POSTs a raw text body, as required by query-language APIs.
func (f *Fetcher) PostText(
	ctx context.Context,
	op, url string,
	headers map[string]string,
	body string,
	dst any,
) error {
	h := map[string]string{"Content-Type": "text/plain"}
	for k, v := range headers {
		h[k] = v
	}

	return f.do(ctx, op, http.MethodPost, url, h, []byte(body), dst)
}

func (f *Fetcher) do(
	ctx context.Context,
	op, method, url string,
	headers map[string]string,
	body []byte,
	dst any,
) (err error) {
	ctx, span := core.StartSpan(ctx, f.tracer, "provider."+op,
		attribute.String("provider", f.provider),
		attribute.String("http.method", method),
	)
	defer func() { core.EndSpan(span, err) }()

	for attempt := 1; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return &FetchError{Provider: f.provider, Op: op, URL: url, Err: err}
		}

		_, err = f.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, f.roundTrip(ctx, op, method, url, headers, body, dst)
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &FetchError{
				Provider:  f.provider,
				Op:        op,
				URL:       url,
				Retryable: true,
				Err:       err,
			}
		}

		var fe *FetchError
		if attempt >= maxAttempts || !errors.As(err, &fe) || fe.RetryAfter <= 0 {
			return err
		}

		wait := min(fe.RetryAfter, maxRetryAfter)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(wait):
		}
	}
}

func (f *Fetcher) roundTrip(
	ctx context.Context,
	op, method, url string,
	headers map[string]string,
	body []byte,
	dst any,
) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return &FetchError{Provider: f.provider, Op: op, URL: url, Err: err}
	}

	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues(f.provider, "error").Inc()
		return &FetchError{
			Provider:  f.provider,
			Op:        op,
			URL:       url,
			Retryable: true,
			Err:       err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	metrics.ProviderRequests.WithLabelValues(f.provider, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // diagnostic only
		fe := &FetchError{
			Provider:   f.provider,
			Op:         op,
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", bytes.TrimSpace(snippet)),
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusServiceUnavailable:
			fe.Retryable = true
			fe.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
		case resp.StatusCode >= 500:
			fe.Retryable = true
		}
		return fe
	}

	if dst == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &FetchError{
			Provider: f.provider,
			Op:       op,
			URL:      url,
			Err:      fmt.Errorf("decode response: %w", err),
		}
	}

	return nil
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return time.Second
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return time.Second
}
