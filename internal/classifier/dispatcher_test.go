package classifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClassifier struct {
	calls      atomic.Int32
	classifyFn func(ctx context.Context, text string) (*domain.Prediction, error)
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) (*domain.Prediction, error) {
	f.calls.Add(1)
	return f.classifyFn(ctx, text)
}

type fakeRateLimiter struct {
	waitFn func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) { return true, nil }

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

func fastOptions() DispatcherOptions {
	return DispatcherOptions{
		Timeout:    50 * time.Millisecond,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}
}

func TestDispatcherSucceedsAfterRetries(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.DebugLevel)
	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		if fake.calls.Load() < 3 {
			return nil, &ClassifierError{StatusCode: 502, Message: "HTTP 502: Bad Gateway"}
		}
		return &domain.Prediction{Label: "Bug Report", Confidence: 88}, nil
	}

	d, err := NewDispatcher(fake, fastOptions(), zap.New(core))
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	got, err := d.Classify(context.Background(), "crash")
	if err != nil {
		t.Fatalf("Classify() unexpected error: %v", err)
	}
	if got.Label != "Bug Report" {
		t.Fatalf("Label = %q, want Bug Report", got.Label)
	}
	if calls := fake.calls.Load(); calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if n := recorded.FilterMessage("classification attempt failed, retrying").Len(); n != 2 {
		t.Fatalf("retry log entries = %d, want 2", n)
	}
}

func TestDispatcherExhaustsRetriesAndPropagatesLastError(t *testing.T) {
	t.Parallel()

	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		return nil, &ClassifierError{StatusCode: 400, Message: "Feedback text is required"}
	}

	d, err := NewDispatcher(fake, fastOptions(), nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Classify(context.Background(), "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls := fake.calls.Load(); calls != 3 {
		t.Fatalf("calls = %d, want 3 (1 + 2 retries)", calls)
	}
	if got := ErrorMessage(err); got != "Feedback text is required" {
		t.Fatalf("ErrorMessage() = %q", got)
	}
}

func TestDispatcherLinearBackoff(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		stamps = append(stamps, time.Now())
		return nil, errors.New("boom")
	}

	opts := fastOptions()
	opts.RetryDelay = 20 * time.Millisecond
	d, err := NewDispatcher(fake, opts, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, _ = d.Classify(context.Background(), "x")
	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}
	if gap := stamps[1].Sub(stamps[0]); gap < 20*time.Millisecond {
		t.Fatalf("first retry gap = %v, want >= 20ms", gap)
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 40*time.Millisecond {
		t.Fatalf("second retry gap = %v, want >= 40ms", gap)
	}
}

func TestDispatcherTimesOutClassifierIgnoringContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	defer close(release)

	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		<-release
		return &domain.Prediction{Label: "late"}, nil
	}

	opts := fastOptions()
	opts.Timeout = 10 * time.Millisecond
	d, err := NewDispatcher(fake, opts, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Classify(context.Background(), "x")
	if !IsTimeout(err) {
		t.Fatalf("IsTimeout() = false, err = %v", err)
	}
	if got := ErrorMessage(err); got != "Request timeout" {
		t.Fatalf("ErrorMessage() = %q, want Request timeout", got)
	}
	if calls := fake.calls.Load(); calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDispatcherDoesNotRetryCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	d, err := NewDispatcher(fake, fastOptions(), nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	_, err = d.Classify(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Classify() error = %v, want context.Canceled", err)
	}
	if calls := fake.calls.Load(); calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDispatcherWaitsOnRateLimiter(t *testing.T) {
	t.Parallel()

	var keys []string
	fake := &fakeClassifier{}
	fake.classifyFn = func(ctx context.Context, text string) (*domain.Prediction, error) {
		return &domain.Prediction{Label: "Positive Feedback", Confidence: 99}, nil
	}

	d, err := NewDispatcher(fake, fastOptions(), nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	d.SetRateLimiter(&fakeRateLimiter{waitFn: func(ctx context.Context, key string) error {
		keys = append(keys, key)
		return nil
	}})

	if _, err := d.Classify(context.Background(), "love it"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "predict" {
		t.Fatalf("limiter keys = %v, want [predict]", keys)
	}
}

func TestNewDispatcherDefaults(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil, DispatcherOptions{}, nil); err == nil {
		t.Fatal("expected error for nil classifier")
	}

	d, err := NewDispatcher(&fakeClassifier{}, DispatcherOptions{MaxRetries: -1}, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	if d.timeout != DefaultRequestTimeout || d.maxRetries != DefaultMaxRetries || d.retryDelay != DefaultRetryDelay {
		t.Fatalf("defaults = %v/%d/%v", d.timeout, d.maxRetries, d.retryDelay)
	}
}
