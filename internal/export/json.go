package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
)

type jsonEnvelope struct {
	Metadata   jsonMetadata     `json:"metadata"`
	Statistics stats.Statistics `json:"statistics"`
	Results    []jsonResult     `json:"results"`
}

type jsonMetadata struct {
	Total          int    `json:"total"`
	AvgConfidence  string `json:"avgConfidence"`
	ProcessingTime string `json:"processingTime"`
	Timestamp      string `json:"timestamp"`
}

type jsonResult struct {
	Index            int                `json:"index"`
	Feedback         string             `json:"feedback"`
	Prediction       string             `json:"prediction"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities,omitempty"`
	Success          bool               `json:"success"`
}

// WriteJSON writes the metadata/statistics/results envelope, indented by two spaces.
func WriteJSON(w io.Writer, outcomes []domain.Outcome, s stats.Statistics, exportedAt time.Time) error {
	successes := domain.Successes(outcomes)

	envelope := jsonEnvelope{
		Metadata: jsonMetadata{
			Total:          s.Total,
			AvgConfidence:  s.AvgConfidence,
			ProcessingTime: s.ProcessingTime,
			Timestamp:      exportedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
		Statistics: s,
		Results:    make([]jsonResult, 0, len(successes)),
	}
	for _, o := range successes {
		envelope.Results = append(envelope.Results, jsonResult{
			Index:            o.Index,
			Feedback:         o.Feedback,
			Prediction:       o.Prediction,
			Confidence:       o.Confidence,
			AllProbabilities: o.Probabilities,
			Success:          true,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope)
}
