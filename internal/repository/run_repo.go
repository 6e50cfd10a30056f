package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID            string
	Source        domain.BatchSource
	Status        domain.BatchStatus
	ItemCount     int
	SuccessCount  int
	FailureCount  int
	TopCategory   string
	AvgConfidence string
	Warning       string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Elapsed is the wall-clock duration of the stored run.
func (s RunSummary) Elapsed() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunRecord is a stored run with statistics recomputed from its outcomes.
type RunRecord struct {
	Run        *domain.BatchRun
	Statistics stats.Statistics
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.BatchRun, statistics stats.Statistics) error
	GetByID(ctx context.Context, id string) (*RunRecord, error)
	ListRecent(ctx context.Context, limit int) ([]RunSummary, error)
}

type GormRunRepo struct {
	db *gorm.DB
}

func NewGormRunRepo(db *gorm.DB) *GormRunRepo {
	return &GormRunRepo{db: db}
}

// Create stores a finished run and its outcomes in one transaction.
func (r *GormRunRepo) Create(ctx context.Context, run *domain.BatchRun, statistics stats.Statistics) error {
	model, err := runModelFromDomain(run, statistics)
	if err != nil {
		return err
	}
	if model == nil {
		return nil
	}

	outcomes, err := outcomeModelsFromDomain(run.ID, run.Outcomes)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if len(outcomes) == 0 {
			return nil
		}
		return tx.CreateInBatches(&outcomes, 100).Error
	})
}

func (r *GormRunRepo) GetByID(ctx context.Context, id string) (*RunRecord, error) {
	var model BatchRunModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var outcomes []BatchOutcomeModel
	err = r.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("item_index ASC").
		Find(&outcomes).Error
	if err != nil {
		return nil, err
	}

	run, err := runModelToDomain(&model, outcomes)
	if err != nil {
		return nil, err
	}

	return &RunRecord{
		Run:        run,
		Statistics: stats.Compute(run.Outcomes, run.Elapsed()),
	}, nil
}

func (r *GormRunRepo) ListRecent(ctx context.Context, limit int) ([]RunSummary, error) {
	limit = normalizeLimit(limit)

	var models []BatchRunModel
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]RunSummary, 0, len(models))
	for i := range models {
		summaries = append(summaries, runModelToSummary(&models[i]))
	}
	return summaries, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
