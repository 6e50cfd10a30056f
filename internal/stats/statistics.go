package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

// Confidence bucket thresholds (percent).
const (
	HighConfidenceAbove = 80.0
	LowConfidenceBelow  = 50.0
)

const noCategory = "N/A"

// CategoryCount is one entry of the category tally.
type CategoryCount struct {
	Category string
	Count    int
}

// CategoryCounts keeps first-seen order and encodes as a JSON object in that order.
type CategoryCounts []CategoryCount

func (c CategoryCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Category)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", entry.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the count for category, or 0.
func (c CategoryCounts) Get(category string) int {
	for _, entry := range c {
		if entry.Category == category {
			return entry.Count
		}
	}
	return 0
}

// Statistics is derived from one exact outcome sequence and is never updated
// incrementally.
type Statistics struct {
	Total            int            `json:"total"`
	TopCategory      string         `json:"topCategory"`
	TopCategoryCount int            `json:"topCategoryCount"`
	AvgConfidence    string         `json:"avgConfidence"`
	ProcessingTime   string         `json:"processingTime"`
	CategoryCount    CategoryCounts `json:"categoryCount"`
	HighConfidence   int            `json:"highConfidence"`
	MediumConfidence int            `json:"mediumConfidence"`
	LowConfidence    int            `json:"lowConfidence"`
	Positive         int            `json:"positive"`
	Negative         int            `json:"negative"`
	Errors           int            `json:"errors"`

	avgConfidence     float64
	processingSeconds float64
}

// Empty reports the degenerate case of zero successful outcomes.
func (s Statistics) Empty() bool { return s.Total == 0 }

// AverageConfidence is the unformatted mean, 0 when Empty.
func (s Statistics) AverageConfidence() float64 { return s.avgConfidence }

// ProcessingSeconds is the elapsed time rounded to one decimal.
func (s Statistics) ProcessingSeconds() float64 { return s.processingSeconds }

// Compute reduces outcomes into Statistics. It is a pure function of its inputs.
func Compute(outcomes []domain.Outcome, elapsed time.Duration) Statistics {
	successes := domain.Successes(outcomes)
	total := len(successes)

	processingSeconds := math.Round(elapsed.Seconds()*10) / 10
	if processingSeconds < 0 {
		processingSeconds = 0
	}

	s := Statistics{
		Total:             total,
		TopCategory:       noCategory,
		ProcessingTime:    fmt.Sprintf("%.1f", processingSeconds),
		CategoryCount:     CategoryCounts{},
		Errors:            len(outcomes) - total,
		processingSeconds: processingSeconds,
	}

	positions := make(map[string]int)
	var confidenceSum float64

	for _, o := range successes {
		if pos, ok := positions[o.Prediction]; ok {
			s.CategoryCount[pos].Count++
		} else {
			positions[o.Prediction] = len(s.CategoryCount)
			s.CategoryCount = append(s.CategoryCount, CategoryCount{Category: o.Prediction, Count: 1})
		}

		confidenceSum += o.Confidence
		switch {
		case o.Confidence > HighConfidenceAbove:
			s.HighConfidence++
		case o.Confidence >= LowConfidenceBelow:
			s.MediumConfidence++
		default:
			s.LowConfidence++
		}
	}

	// Strictly greater keeps the first-seen category on ties.
	for _, entry := range s.CategoryCount {
		if entry.Count > s.TopCategoryCount {
			s.TopCategory = entry.Category
			s.TopCategoryCount = entry.Count
		}
	}

	for _, entry := range s.CategoryCount {
		switch {
		case domain.IsPositive(entry.Category):
			s.Positive += entry.Count
		case domain.IsNegative(entry.Category):
			s.Negative += entry.Count
		}
	}

	if total > 0 {
		s.avgConfidence = confidenceSum / float64(total)
	}
	s.AvgConfidence = fmt.Sprintf("%.2f", s.avgConfidence)

	return s
}

// DistributionRow is one bar of the category chart.
type DistributionRow struct {
	Category string
	Count    int
	Percent  float64
	Style    domain.CategoryStyle
}

// Distribution orders categories by count, descending, keeping first-seen
// order among equal counts.
func Distribution(s Statistics) []DistributionRow {
	rows := make([]DistributionRow, 0, len(s.CategoryCount))
	for _, entry := range s.CategoryCount {
		rows = append(rows, DistributionRow{
			Category: entry.Category,
			Count:    entry.Count,
			Percent:  percentOf(entry.Count, s.Total),
			Style:    domain.StyleFor(entry.Category),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Count > rows[j].Count
	})

	return rows
}

func percentOf(part int, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
