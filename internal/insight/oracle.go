package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Oracle answers a prompt with free text. Implementations are asked for
// JSON but callers must not assume they get it.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// OracleError is a non-2xx response from the oracle endpoint
type OracleError struct {
	StatusCode int
	Message    string
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle: HTTP %d: %s", e.StatusCode, e.Message)
}

// HTTPOracle talks to any endpoint implementing the OpenAI chat
// completions wire format
type HTTPOracle struct {
	client   *http.Client
	endpoint string
	apiKey   string
	model    string
}

// NewHTTPOracle creates an oracle posting to endpoint. client may be nil.
func NewHTTPOracle(client *http.Client, endpoint, apiKey, model string) *HTTPOracle {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPOracle{client: client, endpoint: endpoint, apiKey: apiKey, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends prompt as a single user message and returns the first
// choice's content
func (o *HTTPOracle) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:          o.model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    0.7,
		MaxTokens:      1024,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("oracle: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("oracle: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("oracle: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var wire chatError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &wire) == nil && wire.Error.Message != "" {
			msg = wire.Error.Message
		}
		return "", &OracleError{StatusCode: resp.StatusCode, Message: msg}
	}

	var wire chatResponse
	if err := json.Unmarshal(data, &wire); err != nil {
		return "", fmt.Errorf("oracle: decode response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return "", fmt.Errorf("oracle: response has no choices")
	}
	return wire.Choices[0].Message.Content, nil
}
