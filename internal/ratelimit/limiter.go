package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWaitCeiling is returned when a provider's limits cannot be satisfied
// within the maximum wait the limiter is willing to spend. Callers treat it
// the same as any other provider failure.
var ErrWaitCeiling = errors.New("ratelimit: wait ceiling exceeded")

// DefaultMaxWait bounds how long a single Acquire call may block. Without a
// ceiling a skewed clock or a very long retry-after could stall a pipeline
// forever.
const DefaultMaxWait = 2 * time.Minute

// Config holds the per-provider limits.
type Config struct {
	// MaxRequests caps how many requests may be issued inside Window.
	MaxRequests int
	// Window is the counter interval. The counter resets lazily when
	// Acquire observes that the window has elapsed.
	Window time.Duration
	// MinInterval is the minimum spacing between two requests to the
	// same provider.
	MinInterval time.Duration
	// RetryAfterFallback is used when a provider signals 429/503 without
	// an explicit retry hint.
	RetryAfterFallback time.Duration
}

// DefaultConfig returns conservative limits for providers without an
// explicit configuration.
func DefaultConfig() Config {
	return Config{
		MaxRequests:        60,
		Window:             time.Minute,
		MinInterval:        time.Second,
		RetryAfterFallback: time.Minute,
	}
}

type state struct {
	mu           sync.Mutex
	requestCount int
	windowStart  time.Time
	lastRequest  time.Time
	retryAfter   time.Time
}

// Limiter tracks independent rate-limit state per provider key. Acquire
// never fails for control flow reasons; it only delays, bounded by maxWait.
type Limiter struct {
	mu       sync.Mutex
	states   map[string]*state
	configs  map[string]Config
	fallback Config
	maxWait  time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// New creates a limiter with a shared default config for unknown providers.
func New(fallback Config) *Limiter {
	return &Limiter{
		states:   make(map[string]*state),
		configs:  make(map[string]Config),
		fallback: fallback,
		maxWait:  DefaultMaxWait,
		now:      time.Now,
	}
}

// Configure sets the limits for one provider key.
func (l *Limiter) Configure(provider string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[provider] = cfg
}

// SetMaxWait overrides the acquire wait ceiling.
func (l *Limiter) SetMaxWait(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxWait = d
}

func (l *Limiter) stateFor(provider string) (*state, Config, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.states[provider]
	if !ok {
		s = &state{windowStart: l.now()}
		l.states[provider] = s
	}
	cfg, ok := l.configs[provider]
	if !ok {
		cfg = l.fallback
	}
	return s, cfg, l.maxWait
}

// Acquire blocks until the provider may issue a request: the window counter
// has headroom, the minimum inter-request spacing has elapsed, and no
// retry-after deadline is pending. On success it reserves a slot in the
// window and stamps the request time. It returns early only on context
// cancellation or when the wait ceiling is exceeded.
func (l *Limiter) Acquire(ctx context.Context, provider string) error {
	s, cfg, maxWait := l.stateFor(provider)
	deadline := l.now().Add(maxWait)

	for {
		wait, ok := l.tryReserve(s, cfg)
		if ok {
			return nil
		}

		now := l.now()
		if now.Add(wait).After(deadline) {
			return ErrWaitCeiling
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryReserve checks the three admission conditions under the provider lock.
// It returns (0, true) after reserving a slot, or the shortest wait that
// could change the answer.
func (l *Limiter) tryReserve(s *state, cfg Config) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := l.now()

	if s.retryAfter.After(now) {
		return s.retryAfter.Sub(now), false
	}

	// Lazy window reset.
	if cfg.Window > 0 && now.Sub(s.windowStart) >= cfg.Window {
		s.windowStart = now
		s.requestCount = 0
	}

	if cfg.MaxRequests > 0 && s.requestCount >= cfg.MaxRequests {
		return s.windowStart.Add(cfg.Window).Sub(now), false
	}

	if cfg.MinInterval > 0 && !s.lastRequest.IsZero() {
		if since := now.Sub(s.lastRequest); since < cfg.MinInterval {
			return cfg.MinInterval - since, false
		}
	}

	s.requestCount++
	s.lastRequest = now
	return 0, true
}

// RecordSuccess clears any pending retry-after deadline for the provider.
func (l *Limiter) RecordSuccess(provider string) {
	s, _, _ := l.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retryAfter = time.Time{}
}

// RecordFailure registers a rate-limit response. retryAfter is the delay
// the provider asked for; zero falls back to the configured
// RetryAfterFallback. Acquire refuses all calls for the provider until the
// deadline passes.
func (l *Limiter) RecordFailure(provider string, retryAfter time.Duration) {
	s, cfg, _ := l.stateFor(provider)
	if retryAfter <= 0 {
		retryAfter = cfg.RetryAfterFallback
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	deadline := l.now().Add(retryAfter)
	if deadline.After(s.retryAfter) {
		s.retryAfter = deadline
	}
}

// RetryAfterDeadline reports the pending retry-after deadline, if any.
func (l *Limiter) RetryAfterDeadline(provider string) (time.Time, bool) {
	s, _, _ := l.stateFor(provider)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retryAfter.IsZero() || !s.retryAfter.After(l.now()) {
		return time.Time{}, false
	}
	return s.retryAfter, true
}
