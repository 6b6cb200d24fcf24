// Package proxyclient calls the aipedia proxy, which holds every provider
// credential on behalf of the client.
package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aipedia/internal/core"
	"aipedia/internal/llm"
	"aipedia/internal/tts"
	"aipedia/internal/visual"
)

// Client is an HTTP client for the proxy routes.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a proxy client. baseURL includes the /api prefix.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 130 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Complete calls POST /chat.
func (c *Client) Complete(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("failed to encode chat request: %w", err)
	}

	data, _, err := c.do(ctx, "chat", http.MethodPost, "/chat", bytes.NewReader(body), nil)
	if err != nil {
		return llm.ChatResponse{}, err
	}

	var out llm.ChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return llm.ChatResponse{}, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return llm.ChatResponse{}, &core.BoundaryError{Operation: "chat", Status: http.StatusBadGateway, Message: "The model returned no choices."}
	}
	return out, nil
}

// SearchPhoto calls GET /image?query=.
func (c *Client) SearchPhoto(ctx context.Context, query string) (*visual.Photo, error) {
	path := "/image?query=" + url.QueryEscape(query)
	data, _, err := c.do(ctx, "image", http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var photo visual.Photo
	if err := json.Unmarshal(data, &photo); err != nil {
		return nil, fmt.Errorf("failed to decode photo: %w", err)
	}
	return &photo, nil
}

// Speech calls POST /speech/{voiceId}. apiKey, when set, is forwarded as the
// caller's own ElevenLabs credential.
func (c *Client) Speech(ctx context.Context, voiceID, apiKey string, req tts.ElevenLabsTTSRequest) ([]byte, error) {
	body, err := tts.EncodeElevenLabsRequest(req)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"Accept": "audio/mpeg"}
	if apiKey != "" {
		headers["xi-api-key"] = apiKey
	}

	data, contentType, err := c.do(ctx, "speech", http.MethodPost, "/speech/"+url.PathEscape(voiceID), bytes.NewReader(body), headers)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, &core.BoundaryError{Operation: "speech", Status: http.StatusBadGateway, Message: responseMessage(data)}
	}
	return data, nil
}

// FreeSpeech calls POST /free-tts.
func (c *Client) FreeSpeech(ctx context.Context, req tts.FreeTTSRequest) ([]byte, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode speech request: %w", err)
	}
	data, _, err := c.do(ctx, "speech", http.MethodPost, "/free-tts", bytes.NewReader(body), nil)
	return data, err
}

func (c *Client) do(ctx context.Context, operation, method, path string, body io.Reader, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("%s request abandoned: %w", operation, ctx.Err())
		}
		return nil, "", fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", rateLimitError(resp, data)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, "", &core.BoundaryError{
			Operation: operation,
			Status:    resp.StatusCode,
			Message:   responseMessage(data),
		}
	}
	return data, resp.Header.Get("Content-Type"), nil
}

type errorEnvelope struct {
	Error      json.RawMessage `json:"error"`
	Message    string          `json:"message"`
	RetryAfter json.RawMessage `json:"retryAfter"`
}

// responseMessage extracts a readable message from either error shape the
// proxy emits: {"error":{"message":..}} or {"error":..,"message":..}.
func responseMessage(data []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	if env.Message != "" {
		return env.Message
	}
	var detail llm.ErrorDetail
	if err := json.Unmarshal(env.Error, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	var s string
	if err := json.Unmarshal(env.Error, &s); err == nil {
		return s
	}
	return ""
}

func rateLimitError(resp *http.Response, data []byte) error {
	rl := &core.RateLimitError{Message: responseMessage(data)}

	var env errorEnvelope
	if err := json.Unmarshal(data, &env); err == nil && len(env.RetryAfter) > 0 {
		var seconds int
		var word string
		switch {
		case json.Unmarshal(env.RetryAfter, &seconds) == nil:
			rl.RetryAfterSeconds = seconds
		case json.Unmarshal(env.RetryAfter, &word) == nil && strings.EqualFold(word, "tomorrow"):
			rl.Daily = true
		}
	}
	if rl.RetryAfterSeconds == 0 && !rl.Daily {
		if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			rl.RetryAfterSeconds = s
		}
	}
	return rl
}
