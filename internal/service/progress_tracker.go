package service

import (
	"sync"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

// RunSnapshot is a point-in-time view of the current or last run.
type RunSnapshot struct {
	RunID              string
	Status             domain.BatchStatus
	Processing         bool
	Current            int
	Total              int
	Percent            int
	Failures           int
	Preview            string
	EstimatedRemaining time.Duration
}

// ProgressTracker keeps the latest progress so it can be read from another
// goroutine, e.g. the ops endpoints.
type ProgressTracker struct {
	mu   sync.RWMutex
	snap RunSnapshot
	next ProgressFunc
}

// NewProgressTracker forwards every event to next after recording it. next may be nil.
func NewProgressTracker(next ProgressFunc) *ProgressTracker {
	return &ProgressTracker{next: next}
}

// Observe is a ProgressFunc.
func (t *ProgressTracker) Observe(run *domain.BatchRun, p Progress) {
	t.mu.Lock()
	t.snap = RunSnapshot{
		RunID:              p.RunID,
		Status:             run.Status,
		Processing:         run.IsProcessing,
		Current:            p.Current,
		Total:              p.Total,
		Percent:            p.Percent,
		Failures:           run.FailureCount(),
		Preview:            p.Preview,
		EstimatedRemaining: p.EstimatedRemaining,
	}
	t.mu.Unlock()

	if t.next != nil {
		t.next(run, p)
	}
}

// Finish records the terminal state of run.
func (t *ProgressTracker) Finish(run *domain.BatchRun) {
	if run == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.RunID = run.ID
	t.snap.Status = run.Status
	t.snap.Processing = false
	t.snap.Total = len(run.Items)
	t.snap.Failures = run.FailureCount()
	t.snap.EstimatedRemaining = 0
}

func (t *ProgressTracker) Snapshot() RunSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
