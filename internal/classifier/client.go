package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/feedback-batch/internal/domain"
)

const (
	predictPath = "/predict"
	healthPath  = "/health"
)

type predictRequest struct {
	Feedback string `json:"feedback"`
}

type predictResponse struct {
	Success          *bool              `json:"success"`
	Prediction       string             `json:"prediction"`
	Confidence       float64            `json:"confidence"`
	AllProbabilities map[string]float64 `json:"all_probabilities"`
	Metadata         *struct {
		Description string `json:"description"`
	} `json:"metadata,omitempty"`
	ProcessingTimeMs float64 `json:"processing_time_ms"`
	Error            string  `json:"error"`
}

type healthResponse struct {
	Status string `json:"status"`
}

var (
	_ Classifier    = (*Client)(nil)
	_ HealthChecker = (*Client)(nil)
)

// Client calls the remote classification service. A single Classify call is
// one attempt; deadlines and retries belong to the Dispatcher.
type Client struct {
	client  *resty.Client
	baseURL string
}

func NewClient(baseURL string) (*Client, error) {
	client := resty.New()
	client.SetRetryCount(0)

	return NewClientWithResty(baseURL, client)
}

func NewClientWithResty(baseURL string, client *resty.Client) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("classifier base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid classifier base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	client.SetRetryCount(0)

	return &Client{
		client:  client,
		baseURL: trimmed,
	}, nil
}

func (c *Client) Classify(ctx context.Context, text string) (*domain.Prediction, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("classifier client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(predictRequest{Feedback: text}).
		Post(c.baseURL + predictPath)
	if err != nil {
		return nil, requestError(ctx, err)
	}
	if response == nil {
		return nil, &ClassifierError{Message: "classifier returned empty response"}
	}

	statusCode := response.StatusCode()
	var body predictResponse
	decodeErr := json.Unmarshal(response.Body(), &body)

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, &ClassifierError{
			StatusCode: statusCode,
			Message:    httpErrorMessage(statusCode, body.Error, decodeErr),
		}
	}

	if decodeErr != nil {
		return nil, &ClassifierError{
			StatusCode: statusCode,
			Message:    invalidResponseMessage,
			Cause:      decodeErr,
		}
	}
	if (body.Success == nil || !*body.Success) && body.Prediction == "" {
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = invalidResponseMessage
		}
		return nil, &ClassifierError{StatusCode: statusCode, Message: msg}
	}

	prediction := &domain.Prediction{
		Label:            body.Prediction,
		Confidence:       body.Confidence,
		Probabilities:    body.AllProbabilities,
		ProcessingTimeMs: body.ProcessingTimeMs,
	}
	if body.Metadata != nil {
		prediction.Description = body.Metadata.Description
	}

	return prediction, nil
}

// Health probes GET /health. Transport failures report HealthOffline with the error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	if c == nil || c.client == nil {
		return HealthOffline, fmt.Errorf("classifier client is not initialized")
	}

	response, err := c.client.R().
		SetContext(ctx).
		Get(c.baseURL + healthPath)
	if err != nil {
		return HealthOffline, requestError(ctx, err)
	}

	var body healthResponse
	if err := json.Unmarshal(response.Body(), &body); err != nil {
		return HealthOffline, &ClassifierError{
			StatusCode: response.StatusCode(),
			Message:    invalidResponseMessage,
			Cause:      err,
		}
	}

	if body.Status == "healthy" {
		return HealthOnline, nil
	}
	return HealthDegraded, nil
}

func requestError(ctx context.Context, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || (ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return newTimeoutError(err)
	}
	return &ClassifierError{
		Message: "classifier request failed",
		Cause:   err,
	}
}

func httpErrorMessage(statusCode int, serverError string, decodeErr error) string {
	if decodeErr == nil {
		if msg := strings.TrimSpace(serverError); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d: %s", statusCode, http.StatusText(statusCode))
}
