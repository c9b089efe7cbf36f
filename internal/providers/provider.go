package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trendpulse/internal/cache"
	"trendpulse/internal/category"
	"trendpulse/internal/logging"
	"trendpulse/internal/models"
	"trendpulse/internal/ratelimit"
	"trendpulse/internal/retry"
	"trendpulse/internal/sentiment"
)

// Provider is one external trend source. Fetch returns normalized records
// for the provider's current trending set; errors mark the provider
// unavailable for this call and never abort the whole aggregation.
type Provider interface {
	Platform() models.Platform
	CacheKey() string
	Fetch(ctx context.Context) ([]models.TrendRecord, error)
}

// Result is one provider's settled outcome in a fan-out.
type Result struct {
	Platform models.Platform
	Records  []models.TrendRecord
	Err      error
}

// Config holds knobs shared by all provider clients.
type Config struct {
	Timeout   time.Duration
	MaxItems  int
	UserAgent string
}

func DefaultConfig() Config {
	return Config{
		Timeout:   15 * time.Second,
		MaxItems:  25,
		UserAgent: "trendpulse/1.0",
	}
}

// Baseline supplies a deterministic growth percentage from historical
// volume data. Providers leave growth unset when no baseline exists;
// synthetic growth values are never fabricated.
type Baseline interface {
	Growth(platform models.Platform, name string, volume int) *float64
}

// Deps bundles the collaborators every provider pipeline needs.
type Deps struct {
	Cache       cache.Cache
	Limiter     *ratelimit.Limiter
	Analyzer    *sentiment.Analyzer
	Categorizer *category.Categorizer
	Baseline    Baseline
	Logger      *logging.Logger
	Config      Config
	TTL         time.Duration
}

// StatusError is a non-2xx HTTP response from a provider.
type StatusError struct {
	Provider   string
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Provider, e.Code)
}

// IsRetryable reports whether a fetch error is worth another attempt:
// HTTP 429/503, timeouts, and connection resets. Everything else (other
// 4xx, malformed payloads) fails immediately.
func IsRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests ||
			statusErr.Code == http.StatusServiceUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	return false
}

// IsRateLimited reports whether the error should start a retry-after
// deadline in the rate limiter.
func IsRateLimited(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests ||
			statusErr.Code == http.StatusServiceUnavailable
	}
	return false
}

// run is the shared provider pipeline: fresh cache hit short-circuits,
// otherwise acquire the rate limiter, fetch with the provider's retry
// policy, record the outcome, and cache the normalized result.
func (d Deps) run(ctx context.Context, platform models.Platform, cacheKey string, policy retry.Policy, fetch func(context.Context) ([]models.TrendRecord, error)) ([]models.TrendRecord, error) {
	if d.Cache != nil {
		if cached, ok := d.Cache.Get(cacheKey); ok {
			if records, ok := RecordsFromCache(cached); ok {
				d.Logger.Debug("Serving trends from cache", logging.WithField("platform", string(platform)))
				return records, nil
			}
		}
	}

	if err := d.Limiter.Acquire(ctx, string(platform)); err != nil {
		return nil, fmt.Errorf("rate limiter refused %s: %w", platform, err)
	}

	var records []models.TrendRecord
	err := policy.Do(ctx, func() error {
		fetched, err := fetch(ctx)
		if err != nil {
			return err
		}
		records = fetched
		return nil
	})
	if err != nil {
		if IsRateLimited(err) {
			var statusErr *StatusError
			errors.As(err, &statusErr)
			d.Limiter.RecordFailure(string(platform), statusErr.RetryAfter)
		}
		return nil, fmt.Errorf("fetch %s trends: %w", platform, err)
	}

	d.Limiter.RecordSuccess(string(platform))
	if d.Cache != nil {
		d.Cache.SetWithTTL(cacheKey, records, d.TTL)
	}
	return records, nil
}

// growth asks the baseline for a deterministic growth figure, tolerating
// a nil baseline.
func (d Deps) growth(platform models.Platform, name string, volume int) *float64 {
	if d.Baseline == nil {
		return nil
	}
	return d.Baseline.Growth(platform, name, volume)
}

// getJSON issues a GET with the shared user agent and decodes the JSON
// body into v. Non-200 responses become StatusError carrying any
// Retry-After hint.
func (d Deps) getJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", d.Config.UserAgent)
	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{
			Provider:   provider,
			Code:       resp.StatusCode,
			RetryAfter: parseRetryAfter(resp),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", provider, err)
	}
	return nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// RecordsFromCache converts a cached value back into trend records. The
// memory backend returns the slice as stored; the redis backend returns
// decoded JSON, which needs a round trip.
func RecordsFromCache(cached interface{}) ([]models.TrendRecord, bool) {
	if records, ok := cached.([]models.TrendRecord); ok {
		return records, true
	}

	raw, err := json.Marshal(cached)
	if err != nil {
		return nil, false
	}
	var records []models.TrendRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, false
	}
	if records == nil {
		return nil, false
	}
	return records, true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
