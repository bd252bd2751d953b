package llm

import (
	"context"
	"errors"
	"fmt"
)

// DefaultBaseURL is the OpenAI-compatible endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

var (
	// ErrServiceNotConfigured is returned before any network call when the
	// API key or endpoint is missing.
	ErrServiceNotConfigured = errors.New("analysis service is not configured")

	// ErrEmptyContent is returned when the upstream answered 2xx but the
	// response carried no message content.
	ErrEmptyContent = errors.New("upstream response contained no content")
)

// UpstreamError reports a transport failure or a non-2xx response.
// StatusCode is zero when no response was received.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		return "upstream request failed: " + e.Message
	}
	return fmt.Sprintf("upstream error: %d - %s", e.StatusCode, e.Message)
}

// Message is one chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest is a single chat-completion call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

// LLMClient is the interface for all AI-assisted operations.
// Implementations are optional; the scanner functions correctly without one.
//
// The LLM must never:
//   - Execute shell commands
//   - Control program flow
//   - Make cloud SDK calls
//
// The LLM is only used to assess a document and propose a patched version.
type LLMClient interface {
	// Complete sends req and returns the content of the first choice.
	Complete(ctx context.Context, req ChatRequest) (string, error)

	// IsAvailable reports whether the backend is configured. It never makes a
	// network call; use it to gate analysis and degrade gracefully.
	IsAvailable() bool
}
