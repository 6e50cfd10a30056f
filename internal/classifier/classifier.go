package classifier

import (
	"context"

	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

// Classifier is the outbound text classification port.
type Classifier interface {
	Classify(ctx context.Context, text string) (*domain.Prediction, error)
}

// HealthStatus is the coarse state reported by the service health probe.
type HealthStatus string

const (
	HealthOnline   HealthStatus = "ONLINE"
	HealthDegraded HealthStatus = "DEGRADED"
	HealthOffline  HealthStatus = "OFFLINE"
)

func (s HealthStatus) String() string { return string(s) }

// HealthChecker probes the classification service.
type HealthChecker interface {
	Health(ctx context.Context) (HealthStatus, error)
}
