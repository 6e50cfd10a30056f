package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
	"github.com/kursadbilgin/feedback-batch/internal/stats"
)

// Summary renders aggregate counts for the clipboard.
func Summary(s stats.Statistics) (string, error) {
	if s.Empty() {
		return "", fmt.Errorf("%w: nothing to summarize", domain.ErrEmptyResult)
	}

	var b strings.Builder
	b.WriteString("📊 Batch Analysis Summary\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Total Analyzed: %d feedbacks\n", s.Total)
	fmt.Fprintf(&b, "Most Common: %s (%d feedbacks)\n", s.TopCategory, s.TopCategoryCount)
	fmt.Fprintf(&b, "Avg Confidence: %s%%\n", s.AvgConfidence)
	fmt.Fprintf(&b, "Processing Time: %ss\n\n", s.ProcessingTime)

	b.WriteString("Category Distribution:\n")
	for _, row := range stats.Distribution(s) {
		fmt.Fprintf(&b, "  - %s: %d (%.1f%%)\n", row.Category, row.Count, row.Percent)
	}

	b.WriteString("\nConfidence Levels:\n")
	fmt.Fprintf(&b, "  - High (>80%%): %d\n", s.HighConfidence)
	fmt.Fprintf(&b, "  - Medium (50-80%%): %d\n", s.MediumConfidence)
	fmt.Fprintf(&b, "  - Low (<50%%): %d\n", s.LowConfidence)

	return b.String(), nil
}

// Transcript renders every success outcome with its feedback, label and confidence.
func Transcript(outcomes []domain.Outcome) (string, error) {
	successes := domain.Successes(outcomes)
	if len(successes) == 0 {
		return "", fmt.Errorf("%w: no successful results to copy", domain.ErrEmptyResult)
	}

	var b strings.Builder
	b.WriteString("📝 Complete Batch Analysis Results\n")
	b.WriteString(strings.Repeat("=", 70) + "\n\n")

	for _, o := range successes {
		style := domain.StyleFor(o.Prediction)
		fmt.Fprintf(&b, "%d. \"%s\"\n", o.Index, o.Feedback)
		fmt.Fprintf(&b, "   -> %s %s (%s%%)\n\n", style.Icon, o.Prediction, formatNumber(o.Confidence))
	}

	return b.String(), nil
}

// SingleResult renders one classification for the clipboard, probabilities
// sorted from most to least likely.
func SingleResult(feedback string, p domain.Prediction) string {
	type entry struct {
		label string
		prob  float64
	}
	entries := make([]entry, 0, len(p.Probabilities))
	for label, prob := range p.Probabilities {
		entries = append(entries, entry{label: label, prob: prob})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].prob != entries[j].prob {
			return entries[i].prob > entries[j].prob
		}
		return entries[i].label < entries[j].label
	})

	var b strings.Builder
	b.WriteString("📝 Classification Result\n")
	b.WriteString(strings.Repeat("━", 20) + "\n\n")
	fmt.Fprintf(&b, "Input: %s\n\n", strings.TrimSpace(feedback))
	fmt.Fprintf(&b, "Prediction: %s %s\n", domain.StyleFor(p.Label).Icon, p.Label)
	fmt.Fprintf(&b, "Confidence: %s%%\n", formatNumber(p.Confidence))
	if p.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", p.Description)
	}

	if len(entries) > 0 {
		b.WriteString("\nAll Probabilities:\n")
		for _, e := range entries {
			fmt.Fprintf(&b, "- %s: %s%%\n", e.label, formatNumber(e.prob))
		}
	}

	return b.String()
}
