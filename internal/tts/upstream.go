package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"aipedia/internal/core"
)

// Upstream endpoints used by the proxy
const (
	DefaultElevenLabsBaseURL = "https://api.elevenlabs.io/v1"
	DefaultFreeTTSBaseURL    = "https://translate.google.com/translate_tts"

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// ElevenLabsClient calls the ElevenLabs API. The key passed per call wins
// over the configured one.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsClient creates an ElevenLabs client
func NewElevenLabsClient(apiKey, baseURL string) *ElevenLabsClient {
	if baseURL == "" {
		baseURL = DefaultElevenLabsBaseURL
	}
	return &ElevenLabsClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ElevenLabsClient) key(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.apiKey != "" {
		return c.apiKey, nil
	}
	return "", fmt.Errorf("ElevenLabs API key is required")
}

// TextToSpeech posts a raw request body to /text-to-speech/{voiceID} and
// returns the MP3 audio.
func (c *ElevenLabsClient) TextToSpeech(ctx context.Context, voiceID, apiKey string, body []byte) ([]byte, error) {
	key, err := c.key(apiKey)
	if err != nil {
		return nil, err
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}

	endpoint := fmt.Sprintf("%s/text-to-speech/%s", c.baseURL, url.PathEscape(voiceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", key)

	return c.do(req)
}

// Voices returns the raw voice listing.
func (c *ElevenLabsClient) Voices(ctx context.Context, apiKey string) ([]byte, error) {
	key, err := c.key(apiKey)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("xi-api-key", key)

	return c.do(req)
}

func (c *ElevenLabsClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &core.BoundaryError{Operation: "speech", Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	return data, nil
}

// FreeClient fetches speech from the keyless translate endpoint.
type FreeClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewFreeClient creates a keyless speech client
func NewFreeClient(baseURL string) *FreeClient {
	if baseURL == "" {
		baseURL = DefaultFreeTTSBaseURL
	}
	return &FreeClient{baseURL: baseURL, httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// Synthesize returns MP3 audio for text spoken in voice (a BCP-47 code).
func (c *FreeClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text is required")
	}
	if voice == "" {
		voice = "en-US"
	}

	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("q", text)
	q.Set("tl", voice)
	q.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &core.BoundaryError{Operation: "speech", Status: resp.StatusCode}
	}
	return data, nil
}

// EncodeElevenLabsRequest marshals a request body for TextToSpeech.
func EncodeElevenLabsRequest(r ElevenLabsTTSRequest) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return data, nil
}
