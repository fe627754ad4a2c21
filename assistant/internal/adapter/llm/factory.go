package llm

import (
	"strings"
	"time"

	"go.uber.org/zap"
)

// ModeMock selects the offline mock client.
const ModeMock = "mock"

// NewChatClient creates a chat client for the configured mode.
func NewChatClient(mode, baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) ChatClient {
	if strings.EqualFold(mode, ModeMock) {
		if logger != nil {
			logger.Info("using mock LLM client")
		}
		return NewMockClient()
	}
	return NewClient(baseURL, apiKey, timeout)
}
