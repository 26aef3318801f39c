package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/time/rate"

	"github.com/ashureev/nux-coach/internal/domain"
)

// GeneratorConfig holds the completion settings.
type GeneratorConfig struct {
	BaseURL          string
	APIKey           string
	Model            string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
	Timeout          time.Duration
	// RequestsPerSecond caps outgoing calls across all sessions. Zero disables the limit.
	RequestsPerSecond float64
	Burst             int
}

// DefaultGeneratorConfig returns the completion settings the coach is tuned for.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		BaseURL:           "https://api.openai.com/v1",
		Model:             "gpt-4o-mini",
		Temperature:       0.8,
		MaxTokens:         1000,
		PresencePenalty:   0.2,
		FrequencyPenalty:  0.1,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             10,
	}
}

// ChatGenerator implements Generator on top of a langchaingo model.
type ChatGenerator struct {
	model   llms.Model
	cfg     GeneratorConfig
	limiter *rate.Limiter
	logger  *slog.Logger

	requests atomic.Int64
	failures atomic.Int64
}

var _ Generator = (*ChatGenerator)(nil)

// NewOpenAIGenerator builds a generator against an OpenAI-compatible API.
func NewOpenAIGenerator(cfg GeneratorConfig, logger *slog.Logger) (*ChatGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	model, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewGenerator(model, cfg, logger), nil
}

// NewGenerator wraps any langchaingo model.
func NewGenerator(model llms.Model, cfg GeneratorConfig, logger *slog.Logger) *ChatGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &ChatGenerator{model: model, cfg: cfg, logger: logger}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return g
}

// Generate sends the conversation and returns the first choice.
func (g *ChatGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	g.requests.Add(1)
	text, err := g.generate(ctx, messages)
	if err != nil {
		g.failures.Add(1)
		g.logger.Warn("generation failed", "model", g.cfg.Model, "messages", len(messages), "error", err)
		return "", err
	}
	return text, nil
}

func (g *ChatGenerator) generate(ctx context.Context, messages []Message) (string, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.TextParts(chatType(m.Role), m.Content))
	}

	resp, err := g.model.GenerateContent(ctx, content,
		llms.WithTemperature(g.cfg.Temperature),
		llms.WithMaxTokens(g.cfg.MaxTokens),
		llms.WithPresencePenalty(g.cfg.PresencePenalty),
		llms.WithFrequencyPenalty(g.cfg.FrequencyPenalty),
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// Stats returns call counters.
func (g *ChatGenerator) Stats() Stats {
	return Stats{Requests: g.requests.Load(), Failures: g.failures.Load()}
}

func chatType(r domain.Role) schema.ChatMessageType {
	switch r {
	case domain.RoleSystem:
		return schema.ChatMessageTypeSystem
	case domain.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}
