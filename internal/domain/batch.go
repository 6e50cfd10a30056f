package domain

import "time"

// BatchStatus represents the processing state of a batch run.
type BatchStatus string

const (
	BatchStatusProcessing     BatchStatus = "PROCESSING"
	BatchStatusCompleted      BatchStatus = "COMPLETED"
	BatchStatusPartialFailure BatchStatus = "PARTIAL_FAILURE"
	BatchStatusCanceled       BatchStatus = "CANCELED"
)

func (s BatchStatus) String() string { return string(s) }

func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusProcessing, BatchStatusCompleted, BatchStatusPartialFailure, BatchStatusCanceled:
		return true
	}
	return false
}

// BatchSource records how the batch input was obtained.
type BatchSource string

const (
	SourceManual BatchSource = "MANUAL"
	SourceCSV    BatchSource = "CSV"
)

func (s BatchSource) String() string { return string(s) }

// BatchRun is one end-to-end execution over an ordered set of feedback items.
// Only the runner that created it mutates it, and only while IsProcessing is true.
type BatchRun struct {
	ID           string
	Source       BatchSource
	Items        []FeedbackItem
	Outcomes     []Outcome
	Status       BatchStatus
	StartedAt    time.Time
	FinishedAt   time.Time
	IsProcessing bool
	Warning      string
}

// Elapsed is the wall-clock duration of a finished run.
func (r *BatchRun) Elapsed() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailureCount counts failure outcomes recorded so far.
func (r *BatchRun) FailureCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, o := range r.Outcomes {
		if !o.Succeeded() {
			n++
		}
	}
	return n
}
