package stats

import "fmt"

// Insights renders human-readable observations. The output depends only on s.
func Insights(s Statistics) []string {
	if s.Empty() {
		return []string{"No feedback was classified successfully"}
	}

	insights := make([]string, 0, 4)

	insights = append(insights, fmt.Sprintf("%.1f%% of feedback is categorized as %q",
		percentOf(s.TopCategoryCount, s.Total), s.TopCategory))

	switch avg := s.avgConfidence; {
	case avg > 80:
		insights = append(insights, fmt.Sprintf("High model confidence with an average of %s%%", s.AvgConfidence))
	case avg > 60:
		insights = append(insights, fmt.Sprintf("Moderate model confidence with an average of %s%%", s.AvgConfidence))
	default:
		insights = append(insights, fmt.Sprintf("Lower confidence scores - consider reviewing %s%% average", s.AvgConfidence))
	}

	switch {
	case s.Positive > s.Negative:
		insights = append(insights, fmt.Sprintf("Positive sentiment dominates with %.1f%% positive feedback",
			percentOf(s.Positive, s.Total)))
	case s.Negative > s.Positive:
		insights = append(insights, fmt.Sprintf("%.1f%% of feedback indicates issues or concerns",
			percentOf(s.Negative, s.Total)))
	}

	if s.processingSeconds > 0 {
		insights = append(insights, fmt.Sprintf("Processed %.1f feedbacks per second",
			float64(s.Total)/s.processingSeconds))
	}

	return insights
}
