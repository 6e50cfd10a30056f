package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/observability"
	"github.com/kursadbilgin/feedback-batch/internal/ratelimit"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultMaxRetries     = 2
	DefaultRetryDelay     = time.Second

	rateLimitKey = "predict"
)

// DispatcherOptions tunes the retry and deadline policy.
type DispatcherOptions struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

var _ Classifier = (*Dispatcher)(nil)

// Dispatcher issues one classification with a per-attempt deadline and
// linear backoff between attempts. It is stateless between calls.
type Dispatcher struct {
	classifier Classifier
	limiter    ratelimit.RateLimiter
	logger     *zap.Logger
	metrics    *observability.Metrics
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

func NewDispatcher(classifier Classifier, opts DispatcherOptions, logger *zap.Logger) (*Dispatcher, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		classifier: classifier,
		logger:     logger,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
		now:        time.Now,
	}, nil
}

func (d *Dispatcher) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if d == nil {
		return
	}
	d.limiter = limiter
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Classify retries any failure up to maxRetries times, waiting retryDelay*n
// before the n-th retry. Cancellation of ctx is never retried.
func (d *Dispatcher) Classify(ctx context.Context, text string) (*domain.Prediction, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		result  *domain.Prediction
		attempt int
	)

	backoff := retry.WithMaxRetries(uint64(d.maxRetries), linearBackoff(d.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		prediction, err := d.attempt(ctx, text)
		if err == nil {
			result = prediction
			d.metrics.IncClassifyAttempt("success")
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		d.metrics.IncClassifyAttempt(attemptReason(err))
		if attempt <= d.maxRetries {
			d.metrics.IncClassifyRetry()
			observability.WithContextLogger(d.logger, ctx).Debug("classification attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", d.retryDelay*time.Duration(attempt)),
				zap.Error(err),
			)
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// attempt races one call against the deadline so a classifier that ignores
// its context still yields a timeout.
func (d *Dispatcher) attempt(ctx context.Context, text string) (*domain.Prediction, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, rateLimitKey); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	type callResult struct {
		prediction *domain.Prediction
		err        error
	}
	done := make(chan callResult, 1)

	start := d.now()
	go func() {
		prediction, err := d.classifier.Classify(attemptCtx, text)
		done <- callResult{prediction: prediction, err: err}
	}()

	select {
	case res := <-done:
		d.metrics.ObserveClassifyDuration(d.now().Sub(start))
		if res.err != nil && ctx.Err() == nil && attemptCtx.Err() == context.DeadlineExceeded && !IsTimeout(res.err) {
			return nil, newTimeoutError(res.err)
		}
		return res.prediction, res.err
	case <-attemptCtx.Done():
		d.metrics.ObserveClassifyDuration(d.now().Sub(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, newTimeoutError(attemptCtx.Err())
	}
}

func linearBackoff(base time.Duration) retry.Backoff {
	var n time.Duration
	return retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return base * n, false
	})
}

func attemptReason(err error) string {
	if IsTimeout(err) {
		return "timeout"
	}
	return "error"
}
