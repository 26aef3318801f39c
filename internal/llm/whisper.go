package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// TranscriberConfig holds the speech-to-text settings.
type TranscriberConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	Language   string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
}

// DefaultTranscriberConfig returns German whisper transcription settings.
func DefaultTranscriberConfig() TranscriberConfig {
	return TranscriberConfig{
		BaseURL:    "https://api.openai.com/v1",
		Model:      "whisper-1",
		Language:   "de",
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		Backoff:    time.Second,
	}
}

// HTTPError is a non-2xx answer from the transcription endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("transcription api: status %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// WhisperTranscriber implements Transcriber with the OpenAI audio API.
type WhisperTranscriber struct {
	cfg        TranscriberConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Transcriber = (*WhisperTranscriber)(nil)

// NewWhisperTranscriber creates a transcriber. It returns ErrNotConfigured
// without an API key.
func NewWhisperTranscriber(cfg TranscriberConfig, logger *slog.Logger) (*WhisperTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WhisperTranscriber{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Transcribe uploads audio and returns the recognized text. Failures are
// reported in the result, never as a panic or error value.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) TranscriptionResult {
	if len(audio) == 0 {
		return TranscriptionResult{Error: "empty audio"}
	}
	if filename == "" {
		filename = "audio.webm"
	}

	payload, contentType, err := w.encode(audio, filename)
	if err != nil {
		return TranscriptionResult{Error: err.Error()}
	}

	text, err := w.doMultipart(ctx, "/audio/transcriptions", payload, contentType)
	if err != nil {
		w.logger.Warn("transcription failed", "bytes", len(audio), "error", err)
		return TranscriptionResult{Error: err.Error()}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return TranscriptionResult{Error: "no speech recognized"}
	}
	return TranscriptionResult{Text: text, Success: true}
}

func (w *WhisperTranscriber) encode(audio []byte, filename string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"model":           w.cfg.Model,
		"language":        w.cfg.Language,
		"response_format": "text",
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func (w *WhisperTranscriber) doMultipart(ctx context.Context, path string, payload []byte, contentType string) (string, error) {
	backoff := w.cfg.Backoff

	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+w.cfg.APIKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := w.httpClient.Do(req)
		if err == nil {
			raw, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return "", readErr
			}
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return string(raw), nil
			}
			err = &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.retryable() {
			return "", err
		}
		if attempt == w.cfg.MaxRetries {
			return "", err
		}
		w.logger.Debug("transcription request failed, retrying", "attempt", attempt+1, "delay", backoff, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", errors.New("transcription request failed")
}
