package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

const (
	// SystemPrompt frames every generated utterance.
	SystemPrompt = "You are an in-car voice assistant. Be concise, natural, and helpful."
	// FallbackReply is spoken when the provider cannot answer.
	FallbackReply = "Sorry, I couldn't generate a response right now."
)

// GeneratorConfig holds the sampling settings of the response generator.
type GeneratorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Generator produces spoken replies with a chat model.
type Generator struct {
	client ChatClient
	cfg    GeneratorConfig
	logger *zap.Logger
}

// NewGenerator creates a generator.
func NewGenerator(client ChatClient, cfg GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// Generate returns the model's reply to prompt, given the conversation so
// far. Provider failures yield FallbackReply.
func (g *Generator) Generate(ctx context.Context, prompt, transcript string) string {
	messages := []ChatMessage{{Role: "system", Content: SystemPrompt}}
	if transcript != "" {
		messages = append(messages, ChatMessage{Role: "user", Content: "Conversation so far:\n" + transcript})
	}
	messages = append(messages, ChatMessage{Role: "user", Content: prompt})

	temperature := g.cfg.Temperature
	maxTokens := g.cfg.MaxTokens
	req := &ChatCompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	var content string
	if err == nil {
		content, err = resp.Content()
	}
	metrics.ObserveLLM("generate", start, err)
	if err != nil {
		g.logger.Warn("response generation failed", zap.Error(err))
		return FallbackReply
	}
	if content == "" {
		return FallbackReply
	}
	return content
}
