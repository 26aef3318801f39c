// Package llm wraps the hosted language-model APIs used by the coach: chat
// completion for generated replies and speech transcription for voice input.
package llm

import (
	"context"
	"errors"

	"github.com/ashureev/nux-coach/internal/domain"
)

var (
	// ErrEmptyCompletion is returned when the model answered without text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrNotConfigured is returned by clients built without credentials.
	ErrNotConfigured = errors.New("llm client not configured")
)

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
}

// Generator produces a reply for an ordered conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// TranscriptionResult is the outcome of a transcription call.
type TranscriptionResult struct {
	Text    string `json:"text"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Transcriber turns recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) TranscriptionResult
}

// Stats counts calls made through a client.
type Stats struct {
	Requests int64 `json:"requests"`
	Failures int64 `json:"failures"`
}
