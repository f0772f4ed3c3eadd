package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/reshetovitsme/rss-magazine/internal/modules/fetch/domain"
	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/reshetovitsme/rss-magazine/internal/shared/metrics"
	"github.com/samber/oops"
)

// MaxBodySize caps how many bytes a single response may contribute
const MaxBodySize = 32 << 20

const userAgent = "rss-magazine/1.0 (+https://github.com/reshetovitsme/rss-magazine)"

// Fetcher retrieves the body behind a URL
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Options configures an HTTPFetcher
type Options struct {
	// Target labels metrics, e.g. "feed" or "image"
	Target  string
	Policy  domain.RetryPolicy
	Client  *http.Client
	Limiter *HostRateLimiter
	Logger  *slog.Logger
	// MaxBodySize overrides the package default when positive
	MaxBodySize int64
}

// HTTPFetcher performs GET requests with a retry policy.
// Any status >= 400 and any transport error count as a failed attempt.
type HTTPFetcher struct {
	target  string
	policy  domain.RetryPolicy
	client  *http.Client
	limiter *HostRateLimiter
	logger  *slog.Logger
	maxBody int64
}

// New creates a new HTTP fetcher
func New(opts Options) (*HTTPFetcher, error) {
	if err := opts.Policy.Validate(); err != nil {
		return nil, err
	}

	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Target == "" {
		opts.Target = "unknown"
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = MaxBodySize
	}

	return &HTTPFetcher{
		target:  opts.Target,
		policy:  opts.Policy,
		client:  opts.Client,
		limiter: opts.Limiter,
		logger:  opts.Logger,
		maxBody: opts.MaxBodySize,
	}, nil
}

// Fetch returns the response body of rawURL, retrying per the policy.
// The error of the last attempt is returned once attempts are exhausted.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	body, err := retry.DoWithData(func() ([]byte, error) {
		return f.get(ctx, rawURL)
	}, f.retryOptions(ctx, rawURL)...)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordFetch(f.target, status, time.Since(start).Seconds())

	if err != nil {
		return nil, oops.With("url", rawURL, "target", f.target, "max_attempts", f.policy.MaxAttempts).Wrap(err)
	}
	return body, nil
}

func (f *HTTPFetcher) retryOptions(ctx context.Context, rawURL string) []retry.Option {
	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(f.policy.MaxAttempts)),
		retry.Delay(f.policy.MinDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("Fetch attempt failed", "url", rawURL, "target", f.target, "attempt", n+1, "error", err)
		}),
	}

	// RandomDelay panics on a zero jitter window
	if jitter := f.policy.Jitter(); jitter > 0 {
		opts = append(opts,
			retry.MaxJitter(jitter),
			retry.DelayType(retry.CombineDelay(retry.FixedDelay, retry.RandomDelay)),
		)
	} else {
		opts = append(opts, retry.DelayType(retry.FixedDelay))
	}

	return opts
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.WaitForHost(ctx, rawURL); err != nil {
			return nil, retry.Unrecoverable(oops.Wrapf(errors.ErrNetwork, "rate limit: %v", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(oops.Wrapf(errors.ErrNetwork, "build request: %v", err))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, oops.Wrapf(errors.ErrNetwork, "get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, oops.With("status", resp.StatusCode).Wrapf(errors.ErrNetwork, "unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, oops.Wrapf(errors.ErrNetwork, "read body: %v", err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, retry.Unrecoverable(oops.With("limit", f.maxBody).Wrapf(errors.ErrNetwork, "body exceeds %d bytes", f.maxBody))
	}

	return body, nil
}
