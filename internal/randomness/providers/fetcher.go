package providers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"fairdraw/internal/randomness"
	"fairdraw/pkg/digest"
	"fairdraw/pkg/platform/circuit"
)

const (
	defaultAttemptTimeout = 8 * time.Second
	defaultMaxBodyBytes   = 1 << 20
	defaultUserAgent      = "fairdraw/1.0"
)

// Relay rewrites a provider URL into a relay URL that fetches it on our behalf.
type Relay func(target string) string

// DefaultRelays are tried in order after the direct URL fails.
func DefaultRelays() []Relay {
	return []Relay{
		func(t string) string { return "https://api.allorigins.win/raw?url=" + url.QueryEscape(t) },
		func(t string) string { return "https://corsproxy.io/?" + url.QueryEscape(t) },
		func(t string) string { return "https://api.codetabs.com/v1/proxy?quest=" + url.QueryEscape(t) },
		func(t string) string {
			stripped := strings.TrimPrefix(strings.TrimPrefix(t, "https://"), "http://")
			return "https://r.jina.ai/http://" + stripped
		},
	}
}

// HTTPFetcher fetches a Source over HTTP, walking a candidate URL list until
// one attempt yields a finite number. Each provider has its own breaker so a
// dead upstream is skipped on later runs.
type HTTPFetcher struct {
	client         *http.Client
	proxyBase      string
	relays         []Relay
	attemptTimeout time.Duration
	maxBodyBytes   int64
	userAgent      string
	breakerOpts    []circuit.Option
	logger         *slog.Logger

	mu       sync.Mutex
	breakers map[string]*circuit.Breaker
}

type FetcherOption func(*HTTPFetcher)

func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithProxyBase routes every request through a single relay that accepts the
// target as ?url=. The direct URL and default relays are then not tried.
func WithProxyBase(base string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.proxyBase = strings.TrimSpace(base)
	}
}

func WithRelays(relays ...Relay) FetcherOption {
	return func(f *HTTPFetcher) {
		f.relays = relays
	}
}

func WithAttemptTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.attemptTimeout = d
		}
	}
}

func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

func WithBreakerOptions(opts ...circuit.Option) FetcherOption {
	return func(f *HTTPFetcher) {
		f.breakerOpts = opts
	}
}

func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logger
	}
}

// NewHTTPFetcher returns a fetcher with default relays and timeouts.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:         &http.Client{},
		relays:         DefaultRelays(),
		attemptTimeout: defaultAttemptTimeout,
		maxBodyBytes:   defaultMaxBodyBytes,
		userAgent:      defaultUserAgent,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		breakers:       make(map[string]*circuit.Breaker),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Candidates lists the URLs tried for target, in order.
func (f *HTTPFetcher) Candidates(target string) []string {
	if f.proxyBase != "" {
		return []string{f.proxyBase + "?url=" + url.QueryEscape(target)}
	}
	out := make([]string, 0, len(f.relays)+1)
	out = append(out, target)
	for _, relay := range f.relays {
		out = append(out, relay(target))
	}
	return out
}

// Breaker returns the breaker guarding a provider, creating it on first use.
func (f *HTTPFetcher) Breaker(provider string) *circuit.Breaker {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.breakers[provider]
	if !ok {
		b = circuit.New(provider, f.breakerOpts...)
		f.breakers[provider] = b
	}
	return b
}

// Fetch implements randomness.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, src randomness.Source, retrievedAt string) randomness.Sample {
	sample := randomness.Sample{
		Provider:    src.Name(),
		URL:         src.URL(),
		RetrievedAt: retrievedAt,
	}

	breaker := f.Breaker(src.Name())
	if !breaker.Allow() {
		sample.Error = NewProviderError(ErrorCircuitOpen, src.Name(), "skipped while upstream is failing", nil).Error()
		return sample
	}

	var tried []string
	for _, candidate := range f.Candidates(src.URL()) {
		tried = append(tried, candidate)
		sample.RequestedURL = candidate

		body, err := f.attempt(ctx, src, candidate)
		if err == nil {
			var value float64
			value, err = src.Parse(body)
			if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
				err = fmt.Errorf("NaN value")
			}
			if err == nil {
				breaker.RecordSuccess()
				sample.Value = &value
				sample.RawSHA256 = digest.SHA256HexBytes(body)
				sample.OK = true
				return sample
			}
			err = NewProviderError(ErrorBadData, src.Name(), "unparseable body", err)
		}

		f.logger.DebugContext(ctx, "randomness attempt failed",
			"provider", src.Name(),
			"url", candidate,
			"category", GetCategory(err),
			"error", err,
		)
		if ctx.Err() != nil {
			break
		}
	}

	if breaker.RecordFailure().Opened {
		f.logger.WarnContext(ctx, "randomness provider circuit opened", "provider", breaker.Name())
	}
	sample.Error = fmt.Sprintf("all attempts failed (%d): %s", len(tried), strings.Join(tried, " | "))
	return sample
}

func (f *HTTPFetcher) attempt(ctx context.Context, src randomness.Source, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewProviderError(ErrorInternal, src.Name(), "build request", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(src.Name(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(src.Name(), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyStatus(src.Name(), resp.StatusCode)
	}
	return body, nil
}
