package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"aipedia/internal/core"
)

// DefaultDeepSeekBaseURL is the OpenAI-compatible DeepSeek API root.
const DefaultDeepSeekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekClient calls an OpenAI-compatible chat completion API.
type DeepSeekClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewDeepSeekClient creates a client. The API key is required.
func NewDeepSeekClient(apiKey, baseURL string, httpClient *http.Client) (*DeepSeekClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("DeepSeek API key is required. Set DEEPSEEK_API_KEY or server.upstream.deepseek.api_key")
	}
	if baseURL == "" {
		baseURL = DefaultDeepSeekBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &DeepSeekClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Complete posts the request to /chat/completions.
func (c *DeepSeekClient) Complete(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ChatResponse{}, &core.BoundaryError{
			Operation: "chat",
			Status:    resp.StatusCode,
			Message:   errorMessage(data),
		}
	}

	var out ChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return ChatResponse{}, fmt.Errorf("failed to decode chat response: %w", err)
	}
	return out, nil
}

// errorMessage pulls error.message out of an error body, falling back to the raw text.
func errorMessage(data []byte) string {
	var eb ErrorBody
	if err := json.Unmarshal(data, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	return strings.TrimSpace(string(data))
}
