package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MockClient answers chat completions offline. Classification prompts get a
// rule-based intent list, everything else a short canned proposal.
type MockClient struct {
	keywords *KeywordClassifier
}

var _ ChatClient = (*MockClient)(nil)

// NewMockClient creates a new mock client.
func NewMockClient() *MockClient {
	return &MockClient{keywords: NewKeywordClassifier()}
}

// CreateChatCompletion returns a mock response.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content := m.respond(req)
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Message:      &ChatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
	}, nil
}

func (m *MockClient) respond(req *ChatCompletionRequest) string {
	var last string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			last = req.Messages[i].Content
			break
		}
	}

	if strings.Contains(last, intentMarker) {
		query := between(last, `User request: "`, `"`)
		intent, _ := m.keywords.Classify(context.Background(), query)
		parts := append([]string{string(intent.Category)}, intent.Keywords...)
		return `["` + strings.Join(parts, `", "`) + `"]`
	}

	var names []string
	for _, line := range strings.Split(last, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "- ") {
			if i := strings.Index(line, " ("); i > 2 {
				names = append(names, line[2:i])
			}
		}
	}
	if len(names) == 0 {
		return "Got it. Which option would you like, the first, second or third?"
	}
	return fmt.Sprintf("I found %s. Which one would you like?", strings.Join(names, ", "))
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return s
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}
