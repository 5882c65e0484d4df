package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"plategate/internal/domain/plate"
)

// Submitter delivers detection events to the decision service. Calls are
// bounded by the client timeout; a failed call is the caller's signal to
// drop the event (at-most-once, no retry queue).
type Submitter struct {
	client   *http.Client
	endpoint string
	token    string
}

func NewSubmitter(serverURL, token string, timeout time.Duration) *Submitter {
	return &Submitter{
		client:   &http.Client{Timeout: timeout},
		endpoint: serverURL + "/api/v1/detections",
		token:    token,
	}
}

type submitResponse struct {
	Status       string `json:"status"`
	IsAuthorized bool   `json:"is_authorized"`
	ActionTaken  string `json:"action_taken"`
	Error        string `json:"error"`
}

// Submit posts the event and returns the decision.
func (s *Submitter) Submit(ctx context.Context, event plate.DetectionEvent) (*plate.DecisionResult, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submission failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = resp.Status
		}
		return nil, fmt.Errorf("submission rejected: %s", msg)
	}

	return &plate.DecisionResult{
		IsAuthorized: decoded.IsAuthorized,
		ActionTaken:  decoded.ActionTaken,
	}, nil
}
