package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type WebhookAction string

const (
	ActionCreateRequest   WebhookAction = "create_request"
	ActionAcceptRequest   WebhookAction = "accept_request"
	ActionUpdateRequest   WebhookAction = "update_request"
	ActionCompleteRequest WebhookAction = "complete_request"
)

// WebhookEvent is the wire shape the automation endpoint expects.
type WebhookEvent struct {
	Action    WebhookAction          `json:"action"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

// WebhookResult is a non-throwing delivery outcome. A failed delivery never
// becomes an error value that could abort the mutation it describes.
type WebhookResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type WebhookClient struct {
	url        string
	httpClient *http.Client
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url:        url,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Notify posts one lifecycle event to the webhook. Single attempt, no retry.
func (c *WebhookClient) Notify(ctx context.Context, action WebhookAction, data map[string]interface{}) WebhookResult {
	event := WebhookEvent{
		Action:    action,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return WebhookResult{Success: false, Error: fmt.Sprintf("marshal event: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return WebhookResult{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WebhookResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return WebhookResult{Success: false, Error: fmt.Sprintf("webhook returned status %d", resp.StatusCode)}
	}
	return WebhookResult{Success: true}
}
