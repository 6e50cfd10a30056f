package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateFeedbackText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "valid", input: "The app crashes on login"},
		{name: "empty", input: "   ", wantErr: "please enter some feedback text"},
		{name: "too short", input: " ok ", wantErr: "too short"},
		{name: "exactly minimum", input: "bad"},
		{name: "too long", input: strings.Repeat("a", MaxFeedbackLength+1), wantErr: "too long"},
		{name: "multibyte counts runes", input: strings.Repeat("ü", MaxFeedbackLength)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateFeedbackText(tt.input)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidateFeedbackText() unexpected error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ValidateFeedbackText() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("ValidateFeedbackText() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewFeedbackItemsContiguousIndexes(t *testing.T) {
	t.Parallel()

	items := NewFeedbackItems([]string{" first ", "second", "third"})
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	for i, item := range items {
		if item.Index != i+1 {
			t.Fatalf("items[%d].Index = %d, want %d", i, item.Index, i+1)
		}
	}
	if items[0].Text != "first" {
		t.Fatalf("items[0].Text = %q, want trimmed %q", items[0].Text, "first")
	}
}

func TestCategoryStyleFallback(t *testing.T) {
	t.Parallel()

	if got := StyleFor("Bug Report").Icon; got != "🐛" {
		t.Fatalf("StyleFor(Bug Report).Icon = %q, want 🐛", got)
	}
	if got := StyleFor("Shipping Delay"); got != FallbackStyle {
		t.Fatalf("StyleFor(unknown) = %+v, want FallbackStyle", got)
	}
	if got := ParseCategory("bug report"); got != CategoryUnknown {
		t.Fatalf("ParseCategory() is case sensitive, got %q", got)
	}
}

func TestSentimentSplit(t *testing.T) {
	t.Parallel()

	if !IsPositive("Positive Feedback") {
		t.Fatal("Positive Feedback should be positive")
	}
	for _, label := range []string{"Negative Experience", "Bug Report", "Pricing Complaint"} {
		if !IsNegative(label) {
			t.Fatalf("%s should be negative", label)
		}
	}
	if IsPositive("Feature Request") || IsNegative("Feature Request") {
		t.Fatal("Feature Request should not count toward the sentiment split")
	}
}

func TestBatchRunElapsedAndFailures(t *testing.T) {
	t.Parallel()

	start := time.Unix(1_700_000_000, 0)
	run := &BatchRun{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Outcomes: []Outcome{
			NewSuccessOutcome(FeedbackItem{Index: 1, Text: "a"}, Prediction{Label: "Bug Report", Confidence: 90}),
			NewFailureOutcome(FeedbackItem{Index: 2, Text: "b"}, "Request timeout"),
		},
	}

	if got := run.Elapsed(); got != 1500*time.Millisecond {
		t.Fatalf("Elapsed() = %v, want 1.5s", got)
	}
	if got := run.FailureCount(); got != 1 {
		t.Fatalf("FailureCount() = %d, want 1", got)
	}
	if got := len(Successes(run.Outcomes)); got != 1 {
		t.Fatalf("len(Successes()) = %d, want 1", got)
	}
	if (&BatchRun{StartedAt: start}).Elapsed() != 0 {
		t.Fatal("unfinished run should report zero elapsed")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 61)
	got := Truncate(long, 60)
	if len([]rune(got)) != 60 || !strings.HasSuffix(got, "...") {
		t.Fatalf("Truncate() = %q, want 57 chars + ...", got)
	}
	if got := Truncate("short", 60); got != "short" {
		t.Fatalf("Truncate() = %q, want unchanged", got)
	}
	if got := Truncate(strings.Repeat("y", 60), 60); got != strings.Repeat("y", 60) {
		t.Fatal("text of exactly max characters should be unchanged")
	}
}
