package llm

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultChatModel is the model requested for article generation.
	DefaultChatModel = "deepseek-chat"
	// DefaultGeminiModel is used when the proxy is configured for Gemini.
	DefaultGeminiModel = "gemini-flash-lite-latest"
	// DefaultSystemPrompt frames every article request.
	DefaultSystemPrompt = "You are a helpful assistant that generates informative articles."
)

// Roles used in chat messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat completion body accepted by the proxy and by
// OpenAI-compatible upstreams.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatResponse is the chat completion result.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Model   string   `json:"model,omitempty"`
	Choices []Choice `json:"choices"`
}

// Content returns the text of the first choice.
func (r ChatResponse) Content() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ErrorDetail carries an upstream or proxy error message.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// ErrorBody is the error envelope of the chat endpoint.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// Completer produces chat completions.
type Completer interface {
	Complete(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// TextGenerationOptions tunes a single-prompt generation.
type TextGenerationOptions struct {
	SystemPrompt string
	Model        string
	Temperature  float64
	MaxTokens    int
}

// NewChatRequest builds a system + user request.
func NewChatRequest(prompt string, options TextGenerationOptions) ChatRequest {
	model := options.Model
	if model == "" {
		model = DefaultChatModel
	}
	var messages []Message
	if options.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: options.SystemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: prompt})
	return ChatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
}

// GenerateText runs one prompt through a completer and returns the trimmed reply.
func GenerateText(ctx context.Context, c Completer, prompt string, options TextGenerationOptions) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}
	resp, err := c.Complete(ctx, NewChatRequest(prompt, options))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(resp.Content())
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}

// JoinContents concatenates message contents, as used for token estimates.
func JoinContents(messages []Message) string {
	parts := make([]string, len(messages))
	for i, m := range messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, " ")
}
