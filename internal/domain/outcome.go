package domain

// OutcomeStatus tells the two outcome variants apart.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeFailure OutcomeStatus = "FAILURE"
)

func (s OutcomeStatus) String() string { return string(s) }

// Prediction is the payload returned by the classification service.
type Prediction struct {
	Label            string
	Confidence       float64
	Probabilities    map[string]float64
	Description      string
	ProcessingTimeMs float64
}

// Outcome is the per-item result of a classification attempt.
// Success outcomes carry Prediction fields, failures carry Error.
type Outcome struct {
	Index         int
	Feedback      string
	Status        OutcomeStatus
	Prediction    string
	Confidence    float64
	Probabilities map[string]float64
	Error         string
}

func NewSuccessOutcome(item FeedbackItem, p Prediction) Outcome {
	return Outcome{
		Index:         item.Index,
		Feedback:      item.Text,
		Status:        OutcomeSuccess,
		Prediction:    p.Label,
		Confidence:    p.Confidence,
		Probabilities: p.Probabilities,
	}
}

func NewFailureOutcome(item FeedbackItem, message string) Outcome {
	return Outcome{
		Index:    item.Index,
		Feedback: item.Text,
		Status:   OutcomeFailure,
		Error:    message,
	}
}

func (o Outcome) Succeeded() bool { return o.Status == OutcomeSuccess }

// Successes filters outcomes down to the success variant, keeping order.
func Successes(outcomes []Outcome) []Outcome {
	out := make([]Outcome, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Succeeded() {
			out = append(out, o)
		}
	}
	return out
}
