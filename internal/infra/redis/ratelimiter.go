package redis

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 10
	keyPrefix                = "feedback-batch:ratelimit"
	minPause                 = 10 * time.Millisecond
)

// Counts predict calls in the current one-second window; the first call sets
// the expiry. Returns the count after this call.
var windowScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("EXPIRE", KEYS[1], 1)
end
return count
`)

var _ ratelimit.RateLimiter = (*WindowLimiter)(nil)

// WindowLimiter caps predict calls per second against one classification
// service. Every process pointed at the same service host shares the budget.
type WindowLimiter struct {
	client      *goredis.Client
	scope       string
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewWindowLimiter scopes the window to the host of classifierURL.
func NewWindowLimiter(client *goredis.Client, classifierURL string, limitPerSec int) (*WindowLimiter, error) {
	scope, err := ClassifierScope(classifierURL)
	if err != nil {
		return nil, err
	}
	return newWindowLimiter(client, scope, int64(limitPerSec), time.Now, sleepWithContext)
}

// ClassifierScope reduces a classifier base URL to the host:port pair that
// keys its shared window.
func ClassifierScope(classifierURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(classifierURL))
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid classifier url %q", classifierURL)
	}
	return strings.ToLower(parsed.Host), nil
}

func newWindowLimiter(
	client *goredis.Client,
	scope string,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*WindowLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if scope == "" {
		return nil, fmt.Errorf("rate limit scope is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &WindowLimiter{
		client:      client,
		scope:       scope,
		limitPerSec: limitPerSec,
		now:         nowFn,
		sleep:       sleepFn,
	}, nil
}

// Allow counts one call against the window that contains now.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	allowed, _, err := l.take(ctx, key)
	return allowed, err
}

// Wait blocks until the call fits in a window. A rejected call sleeps until
// the next window opens instead of polling.
func (l *WindowLimiter) Wait(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		allowed, retryIn, err := l.take(ctx, key)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := l.sleep(ctx, retryIn); err != nil {
			return err
		}
	}
}

func (l *WindowLimiter) take(ctx context.Context, key string) (bool, time.Duration, error) {
	if l == nil || l.client == nil {
		return false, 0, fmt.Errorf("rate limiter is not initialized")
	}

	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false, 0, fmt.Errorf("rate limit key is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := l.now().UTC()
	windowKey := fmt.Sprintf("%s:%s:%s:%d", keyPrefix, l.scope, normalized, now.Unix())
	count, err := windowScript.Run(ctx, l.client, []string{windowKey}).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if count <= l.limitPerSec {
		return true, 0, nil
	}

	return false, untilNextWindow(now), nil
}

func untilNextWindow(now time.Time) time.Duration {
	return max(now.Truncate(time.Second).Add(time.Second).Sub(now), minPause)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
