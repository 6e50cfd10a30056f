package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/feedback-batch/internal/classifier"
	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/observability"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
	"go.uber.org/zap"
)

const (
	DefaultItemDelay = 100 * time.Millisecond

	previewLength        = 60
	estimatedPerItemTime = 500 * time.Millisecond
)

// Confirmer is the yes/no gate consulted before large batches.
type Confirmer interface {
	Confirm(ctx context.Context, total int) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, total int) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context, total int) (bool, error) { return f(ctx, total) }

// BatchRequest is the raw input of one run.
type BatchRequest struct {
	Texts  []string
	Source domain.BatchSource
}

// Progress is emitted after every attempted item.
type Progress struct {
	RunID              string
	Current            int
	Total              int
	Percent            int
	Preview            string
	EstimatedRemaining time.Duration
	Outcome            domain.Outcome
}

// ProgressFunc observes a run while it is processing. run must not be mutated.
type ProgressFunc func(run *domain.BatchRun, progress Progress)

// BatchResult pairs a finished run with the statistics computed from it.
type BatchResult struct {
	Run        *domain.BatchRun
	Statistics stats.Statistics
}

// RunnerOptions tunes the runner's limits and pacing.
type RunnerOptions struct {
	ItemDelay        time.Duration
	MaxBatchSize     int
	ConfirmThreshold int
}

// BatchRunner drives the classifier over a batch, strictly one item at a time.
// It owns at most one run in flight.
type BatchRunner struct {
	classifier       classifier.Classifier
	confirmer        Confirmer
	runs             repository.RunRepository
	logger           *zap.Logger
	metrics          *observability.Metrics
	itemDelay        time.Duration
	maxBatchSize     int
	confirmThreshold int
	running          atomic.Bool
	now              func() time.Time
	sleep            func(ctx context.Context, d time.Duration) error
	newID            func() string
}

func NewBatchRunner(
	classifier classifier.Classifier,
	confirmer Confirmer,
	opts RunnerOptions,
	logger *zap.Logger,
) (*BatchRunner, error) {
	if classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if opts.ItemDelay <= 0 {
		opts.ItemDelay = DefaultItemDelay
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = domain.MaxBatchSize
	}
	if opts.ConfirmThreshold <= 0 {
		opts.ConfirmThreshold = domain.ConfirmBatchThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchRunner{
		classifier:       classifier,
		confirmer:        confirmer,
		logger:           logger,
		itemDelay:        opts.ItemDelay,
		maxBatchSize:     opts.MaxBatchSize,
		confirmThreshold: opts.ConfirmThreshold,
		now:              time.Now,
		sleep:            sleepWithContext,
		newID:            uuid.NewString,
	}, nil
}

func (r *BatchRunner) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// SetRunRepository enables persisting finished runs.
func (r *BatchRunner) SetRunRepository(runs repository.RunRepository) {
	if r == nil {
		return
	}
	r.runs = runs
}

// IsProcessing reports whether a run is in flight.
func (r *BatchRunner) IsProcessing() bool {
	return r != nil && r.running.Load()
}

// Prepare applies the pre-flight checks and returns the numbered items plus
// an optional warning. Manual input over the cap is rejected; CSV input is
// truncated to the cap.
func (r *BatchRunner) Prepare(req BatchRequest) ([]domain.FeedbackItem, string, error) {
	texts := make([]string, 0, len(req.Texts))
	for _, text := range req.Texts {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return nil, "", domain.ErrEmptyInput
	}

	var warning string
	if len(texts) > r.maxBatchSize {
		if req.Source != domain.SourceCSV {
			return nil, "", fmt.Errorf("%w: maximum %d feedbacks allowed, got %d", domain.ErrBatchTooLarge, r.maxBatchSize, len(texts))
		}
		warning = fmt.Sprintf("CSV contains %d feedbacks (max %d). First %d will be loaded.", len(texts), r.maxBatchSize, r.maxBatchSize)
		texts = texts[:r.maxBatchSize]
	}

	return domain.NewFeedbackItems(texts), warning, nil
}

// Run validates req, asks for confirmation on large batches, then classifies
// every item in order. A failed item becomes a Failure outcome and never stops
// the run. If ctx is canceled mid-run, the partial result is returned together
// with the context error.
func (r *BatchRunner) Run(ctx context.Context, req BatchRequest, onProgress ProgressFunc) (*BatchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !r.running.CompareAndSwap(false, true) {
		return nil, domain.ErrRunInProgress
	}
	defer r.running.Store(false)

	items, warning, err := r.Prepare(req)
	if err != nil {
		return nil, err
	}

	if len(items) > r.confirmThreshold {
		confirmed, err := r.confirm(ctx, len(items))
		if err != nil {
			return nil, fmt.Errorf("confirmation failed: %w", err)
		}
		if !confirmed {
			return nil, fmt.Errorf("%w: %d feedbacks", domain.ErrConfirmationDeclined, len(items))
		}
	}

	source := req.Source
	if source == "" {
		source = domain.SourceManual
	}

	run := &domain.BatchRun{
		ID:           r.newID(),
		Source:       source,
		Items:        items,
		Outcomes:     make([]domain.Outcome, 0, len(items)),
		Status:       domain.BatchStatusProcessing,
		StartedAt:    r.now(),
		IsProcessing: true,
		Warning:      warning,
	}

	ctx = observability.WithRun(ctx, run.ID, source.String())
	logger := observability.WithContextLogger(r.logger, ctx)
	logger.Info("batch run started", zap.Int("items", len(items)))
	r.metrics.BatchStarted()

	canceled := r.process(ctx, run, onProgress)

	run.FinishedAt = r.now()
	run.IsProcessing = false
	run.Status = finalStatus(run, canceled)

	statistics := stats.Compute(run.Outcomes, run.Elapsed())
	r.metrics.BatchFinished(run.Status.String(), run.Elapsed())

	logger.Info("batch run finished",
		zap.String("status", run.Status.String()),
		zap.Int("attempted", len(run.Outcomes)),
		zap.Int("successes", statistics.Total),
		zap.Int("failures", statistics.Errors),
		zap.Duration("elapsed", run.Elapsed()),
	)

	r.persist(ctx, run, statistics, logger)

	result := &BatchResult{Run: run, Statistics: statistics}
	if canceled {
		return result, fmt.Errorf("batch run canceled: %w", ctx.Err())
	}
	return result, nil
}

// process reports whether the run was canceled before every item was attempted.
func (r *BatchRunner) process(ctx context.Context, run *domain.BatchRun, onProgress ProgressFunc) bool {
	total := len(run.Items)

	for i, item := range run.Items {
		if ctx.Err() != nil {
			return true
		}

		itemCtx := observability.WithItem(ctx, item.Index, total)
		var outcome domain.Outcome
		prediction, err := r.classifier.Classify(itemCtx, item.Text)
		switch {
		case err == nil && prediction != nil:
			outcome = domain.NewSuccessOutcome(item, *prediction)
		case err != nil && ctx.Err() != nil:
			// Aborted mid-call: the item was not attempted to completion.
			return true
		default:
			if err == nil {
				err = errors.New("classifier returned no prediction")
			}
			outcome = domain.NewFailureOutcome(item, classifier.ErrorMessage(err))
			observability.WithContextLogger(r.logger, itemCtx).Warn("feedback classification failed", zap.Error(err))
		}

		run.Outcomes = append(run.Outcomes, outcome)
		r.metrics.IncBatchOutcome(outcome.Status.String(), outcome.Prediction)
		r.metrics.SetBatchProgress(len(run.Outcomes), total)

		if onProgress != nil {
			onProgress(run, newProgress(run.ID, item, total, outcome))
		}

		if i < total-1 && r.itemDelay > 0 {
			if err := r.sleep(ctx, r.itemDelay); err != nil {
				return true
			}
		}
	}

	return false
}

func (r *BatchRunner) confirm(ctx context.Context, total int) (bool, error) {
	if r.confirmer == nil {
		return false, nil
	}
	return r.confirmer.Confirm(ctx, total)
}

func (r *BatchRunner) persist(ctx context.Context, run *domain.BatchRun, statistics stats.Statistics, logger *zap.Logger) {
	if r.runs == nil {
		return
	}

	if err := r.runs.Create(context.WithoutCancel(ctx), run, statistics); err != nil {
		logger.Error("failed to persist batch run", zap.Error(err))
	}
}

func newProgress(runID string, item domain.FeedbackItem, total int, outcome domain.Outcome) Progress {
	remaining := total - item.Index
	return Progress{
		RunID:              runID,
		Current:            item.Index,
		Total:              total,
		Percent:            int(math.Round(float64(item.Index) / float64(total) * 100)),
		Preview:            domain.Truncate(item.Text, previewLength),
		EstimatedRemaining: estimateRemaining(remaining),
		Outcome:            outcome,
	}
}

// estimateRemaining uses a fixed per-item heuristic, rounded up to whole seconds.
func estimateRemaining(remaining int) time.Duration {
	if remaining <= 0 {
		return 0
	}
	seconds := math.Ceil(float64(remaining) * estimatedPerItemTime.Seconds())
	return time.Duration(seconds) * time.Second
}

func finalStatus(run *domain.BatchRun, canceled bool) domain.BatchStatus {
	switch {
	case canceled:
		return domain.BatchStatusCanceled
	case run.FailureCount() > 0:
		return domain.BatchStatusPartialFailure
	default:
		return domain.BatchStatusCompleted
	}
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
