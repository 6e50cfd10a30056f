package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Feedback text limits (in characters).
const (
	MinFeedbackLength = 3
	MaxFeedbackLength = 5000
)

// Batch size limits.
const (
	MaxBatchSize          = 100
	ConfirmBatchThreshold = 50
)

// FeedbackItem is one unit of free text submitted for classification.
// Index is 1-based and contiguous within a batch.
type FeedbackItem struct {
	Index int
	Text  string
}

// NewFeedbackItems numbers texts in order starting at 1. Texts are trimmed.
func NewFeedbackItems(texts []string) []FeedbackItem {
	items := make([]FeedbackItem, 0, len(texts))
	for _, text := range texts {
		items = append(items, FeedbackItem{
			Index: len(items) + 1,
			Text:  strings.TrimSpace(text),
		})
	}
	return items
}

// ValidateFeedbackText checks a single feedback submitted on its own.
func ValidateFeedbackText(text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return fmt.Errorf("%w: please enter some feedback text", ErrValidation)
	}

	length := utf8.RuneCountInString(trimmed)
	if length < MinFeedbackLength {
		return fmt.Errorf("%w: feedback text is too short (minimum %d characters)", ErrValidation, MinFeedbackLength)
	}
	if length > MaxFeedbackLength {
		return fmt.Errorf("%w: feedback text is too long (maximum %d characters)", ErrValidation, MaxFeedbackLength)
	}

	return nil
}

// Truncate shortens text to at most max characters, ending in "..." when cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if max <= 3 || len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}
