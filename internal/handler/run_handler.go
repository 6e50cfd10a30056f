package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/repository"
	"github.com/kursadbilgin/feedback-batch/internal/service"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
)

type RunStatusProvider interface {
	Snapshot() service.RunSnapshot
}

type RunHistory interface {
	GetByID(ctx context.Context, id string) (*repository.RunRecord, error)
	ListRecent(ctx context.Context, limit int) ([]repository.RunSummary, error)
}

type RunHandler struct {
	status  RunStatusProvider
	history RunHistory
}

func NewRunHandler(status RunStatusProvider, history RunHistory) (*RunHandler, error) {
	if status == nil {
		return nil, fmt.Errorf("run status provider is required")
	}
	return &RunHandler{status: status, history: history}, nil
}

// RegisterRunRoutes mounts the live progress route, plus the history routes
// when history is non-nil.
func RegisterRunRoutes(router fiber.Router, status RunStatusProvider, history RunHistory) error {
	h, err := NewRunHandler(status, history)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/run", h.GetCurrentRun)
	if history != nil {
		v1.Get("/runs", h.ListRuns)
		v1.Get("/runs/:id", h.GetRun)
	}

	return nil
}

type currentRunResponse struct {
	RunID                     string `json:"runId,omitempty"`
	Status                    string `json:"status,omitempty"`
	Processing                bool   `json:"processing"`
	Current                   int    `json:"current"`
	Total                     int    `json:"total"`
	Percent                   int    `json:"percent"`
	Failures                  int    `json:"failures"`
	Preview                   string `json:"preview,omitempty"`
	EstimatedRemainingSeconds int    `json:"estimatedRemainingSeconds"`
}

type runSummaryResponse struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Status        string    `json:"status"`
	ItemCount     int       `json:"itemCount"`
	SuccessCount  int       `json:"successCount"`
	FailureCount  int       `json:"failureCount"`
	TopCategory   string    `json:"topCategory"`
	AvgConfidence string    `json:"avgConfidence"`
	Warning       string    `json:"warning,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	FinishedAt    time.Time `json:"finishedAt"`
}

type listRunsResponse struct {
	Data []runSummaryResponse `json:"data"`
	Meta listMeta             `json:"meta"`
}

type listMeta struct {
	Limit int `json:"limit"`
	Count int `json:"count"`
}

type runDetailResponse struct {
	ID           string             `json:"id"`
	Source       string             `json:"source"`
	Status       string             `json:"status"`
	Warning      string             `json:"warning,omitempty"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt"`
	Statistics   stats.Statistics   `json:"statistics"`
	Distribution []distributionItem `json:"distribution"`
	Insights     []string           `json:"insights"`
	Outcomes     []outcomeResponse  `json:"outcomes"`
}

type distributionItem struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Percent  float64 `json:"percent"`
	Icon     string  `json:"icon"`
	Color    string  `json:"color"`
}

type outcomeResponse struct {
	Index         int                `json:"index"`
	Feedback      string             `json:"feedback"`
	Status        string             `json:"status"`
	Prediction    string             `json:"prediction,omitempty"`
	Confidence    float64            `json:"confidence,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Error         string             `json:"error,omitempty"`
}

func (h *RunHandler) GetCurrentRun(c *fiber.Ctx) error {
	snap := h.status.Snapshot()
	return c.Status(fiber.StatusOK).JSON(currentRunResponse{
		RunID:                     snap.RunID,
		Status:                    snap.Status.String(),
		Processing:                snap.Processing,
		Current:                   snap.Current,
		Total:                     snap.Total,
		Percent:                   snap.Percent,
		Failures:                  snap.Failures,
		Preview:                   snap.Preview,
		EstimatedRemainingSeconds: int(snap.EstimatedRemaining / time.Second),
	})
}

func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", repository.DefaultHistoryLimit)
	if limit < 1 {
		return toHTTPError(fmt.Errorf("%w: limit must be >= 1", domain.ErrValidation))
	}

	summaries, err := h.history.ListRecent(c.Context(), limit)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]runSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		data = append(data, toRunSummaryResponse(s))
	}

	return c.Status(fiber.StatusOK).JSON(listRunsResponse{
		Data: data,
		Meta: listMeta{Limit: limit, Count: len(data)},
	})
}

func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	record, err := h.history.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRunDetailResponse(record))
}

func toRunSummaryResponse(s repository.RunSummary) runSummaryResponse {
	return runSummaryResponse{
		ID:            s.ID,
		Source:        s.Source.String(),
		Status:        s.Status.String(),
		ItemCount:     s.ItemCount,
		SuccessCount:  s.SuccessCount,
		FailureCount:  s.FailureCount,
		TopCategory:   s.TopCategory,
		AvgConfidence: s.AvgConfidence,
		Warning:       s.Warning,
		StartedAt:     s.StartedAt,
		FinishedAt:    s.FinishedAt,
	}
}

func toRunDetailResponse(record *repository.RunRecord) runDetailResponse {
	run := record.Run

	rows := stats.Distribution(record.Statistics)
	distribution := make([]distributionItem, 0, len(rows))
	for _, row := range rows {
		distribution = append(distribution, distributionItem{
			Category: row.Category,
			Count:    row.Count,
			Percent:  row.Percent,
			Icon:     row.Style.Icon,
			Color:    row.Style.Color,
		})
	}

	outcomes := make([]outcomeResponse, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		outcomes = append(outcomes, outcomeResponse{
			Index:         o.Index,
			Feedback:      o.Feedback,
			Status:        o.Status.String(),
			Prediction:    o.Prediction,
			Confidence:    o.Confidence,
			Probabilities: o.Probabilities,
			Error:         o.Error,
		})
	}

	return runDetailResponse{
		ID:           run.ID,
		Source:       run.Source.String(),
		Status:       run.Status.String(),
		Warning:      run.Warning,
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Statistics:   record.Statistics,
		Distribution: distribution,
		Insights:     stats.Insights(record.Statistics),
		Outcomes:     outcomes,
	}
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
