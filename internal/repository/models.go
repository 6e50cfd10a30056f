package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
)

// BatchRunModel is the persistence model for the batch_runs table.
type BatchRunModel struct {
	ID             string             `gorm:"type:uuid;primaryKey"`
	Source         domain.BatchSource `gorm:"type:varchar(10);not null"`
	Status         domain.BatchStatus `gorm:"type:varchar(20);not null"`
	ItemCount      int                `gorm:"not null"`
	SuccessCount   int                `gorm:"not null;default:0"`
	FailureCount   int                `gorm:"not null;default:0"`
	TopCategory    string             `gorm:"type:varchar(64);not null"`
	AvgConfidence  string             `gorm:"type:varchar(16);not null"`
	Warning        *string            `gorm:"type:text"`
	StatisticsJSON string             `gorm:"column:statistics;type:jsonb;not null"`
	StartedAt      time.Time          `gorm:"type:timestamptz;not null"`
	FinishedAt     time.Time          `gorm:"type:timestamptz;not null"`
	CreatedAt      time.Time
}

func (BatchRunModel) TableName() string {
	return "batch_runs"
}

// BatchOutcomeModel is the persistence model for batch_outcomes.
type BatchOutcomeModel struct {
	ID                int64                `gorm:"primaryKey;autoIncrement"`
	RunID             string               `gorm:"type:uuid;not null"`
	ItemIndex         int                  `gorm:"not null"`
	Feedback          string               `gorm:"type:text;not null"`
	Status            domain.OutcomeStatus `gorm:"type:varchar(10);not null"`
	Prediction        *string              `gorm:"type:varchar(64)"`
	Confidence        *float64
	ProbabilitiesJSON *string `gorm:"column:probabilities;type:jsonb"`
	Error             *string `gorm:"type:text"`
}

func (BatchOutcomeModel) TableName() string {
	return "batch_outcomes"
}

func runModelFromDomain(run *domain.BatchRun, s stats.Statistics) (*BatchRunModel, error) {
	if run == nil {
		return nil, nil
	}

	encoded, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode statistics: %w", err)
	}

	return &BatchRunModel{
		ID:             run.ID,
		Source:         run.Source,
		Status:         run.Status,
		ItemCount:      len(run.Items),
		SuccessCount:   s.Total,
		FailureCount:   s.Errors,
		TopCategory:    s.TopCategory,
		AvgConfidence:  s.AvgConfidence,
		Warning:        optionalString(run.Warning),
		StatisticsJSON: string(encoded),
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}, nil
}

func outcomeModelsFromDomain(runID string, outcomes []domain.Outcome) ([]BatchOutcomeModel, error) {
	models := make([]BatchOutcomeModel, 0, len(outcomes))
	for _, o := range outcomes {
		model := BatchOutcomeModel{
			RunID:     runID,
			ItemIndex: o.Index,
			Feedback:  o.Feedback,
			Status:    o.Status,
		}

		if o.Succeeded() {
			label := o.Prediction
			confidence := o.Confidence
			model.Prediction = &label
			model.Confidence = &confidence

			if len(o.Probabilities) > 0 {
				encoded, err := json.Marshal(o.Probabilities)
				if err != nil {
					return nil, fmt.Errorf("failed to encode probabilities for item %d: %w", o.Index, err)
				}
				probabilities := string(encoded)
				model.ProbabilitiesJSON = &probabilities
			}
		} else {
			model.Error = optionalString(o.Error)
		}

		models = append(models, model)
	}
	return models, nil
}

// runModelToDomain rebuilds a finished run. Items are reconstructed from the
// outcomes, so items never attempted (canceled runs) are not restored.
func runModelToDomain(m *BatchRunModel, outcomes []BatchOutcomeModel) (*domain.BatchRun, error) {
	if m == nil {
		return nil, nil
	}

	run := &domain.BatchRun{
		ID:         m.ID,
		Source:     m.Source,
		Status:     m.Status,
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Items:      make([]domain.FeedbackItem, 0, len(outcomes)),
		Outcomes:   make([]domain.Outcome, 0, len(outcomes)),
	}
	if m.Warning != nil {
		run.Warning = *m.Warning
	}

	for i := range outcomes {
		o, err := outcomeModelToDomain(&outcomes[i])
		if err != nil {
			return nil, err
		}
		run.Items = append(run.Items, domain.FeedbackItem{Index: o.Index, Text: o.Feedback})
		run.Outcomes = append(run.Outcomes, o)
	}

	return run, nil
}

func outcomeModelToDomain(m *BatchOutcomeModel) (domain.Outcome, error) {
	item := domain.FeedbackItem{Index: m.ItemIndex, Text: m.Feedback}
	if m.Status != domain.OutcomeSuccess {
		var message string
		if m.Error != nil {
			message = *m.Error
		}
		return domain.NewFailureOutcome(item, message), nil
	}

	p := domain.Prediction{}
	if m.Prediction != nil {
		p.Label = *m.Prediction
	}
	if m.Confidence != nil {
		p.Confidence = *m.Confidence
	}
	if m.ProbabilitiesJSON != nil {
		if err := json.Unmarshal([]byte(*m.ProbabilitiesJSON), &p.Probabilities); err != nil {
			return domain.Outcome{}, fmt.Errorf("failed to decode probabilities for item %d: %w", m.ItemIndex, err)
		}
	}
	return domain.NewSuccessOutcome(item, p), nil
}

func runModelToSummary(m *BatchRunModel) RunSummary {
	summary := RunSummary{
		ID:            m.ID,
		Source:        m.Source,
		Status:        m.Status,
		ItemCount:     m.ItemCount,
		SuccessCount:  m.SuccessCount,
		FailureCount:  m.FailureCount,
		TopCategory:   m.TopCategory,
		AvgConfidence: m.AvgConfidence,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
	if m.Warning != nil {
		summary.Warning = *m.Warning
	}
	return summary
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
