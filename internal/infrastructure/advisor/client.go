// Package advisor is the HTTP client for the generative-AI service backing
// the financial advisor chat. The service exposes a messages API: a system
// prompt plus an alternating role/content history in, completion text out.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"saverr/internal/shared/apperr"
)

const (
	defaultTimeout = 60 * time.Second
	messagesPath   = "/v1/messages"
	apiVersion     = "2023-06-01"
)

// Client handles communication with the advisor model service
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// Ensure Client implements ClientInterface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new advisor client
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// Message is one turn of a conversation. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type completionResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a conversation to the model and returns the completion
// text. Any transport or service failure surfaces as Unavailable so callers
// know a later retry may succeed.
func (c *Client) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body, err := json.Marshal(completionRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Unavailable("AI service temporarily unavailable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return "", apperr.Unavailable("AI service temporarily unavailable",
				fmt.Errorf("advisor error (status %d): %s - %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message))
		}
		return "", apperr.Unavailable("AI service temporarily unavailable",
			fmt.Errorf("advisor request failed with status %d", resp.StatusCode))
	}

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(out.Content) == 0 {
		return "", apperr.Unavailable("AI service returned an empty completion", nil)
	}
	return out.Content[0].Text, nil
}
