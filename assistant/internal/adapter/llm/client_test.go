package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

func TestClientCreateChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Fatalf("missing bearer token")
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt","choices":[{"index":0,"message":{"role":"assistant","content":" hi "},"finish_reason":"stop"}]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "key", time.Second)
	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	})
	require.NoError(t, err)
	content, err := resp.Content()
	require.NoError(t, err)
	assert.Equal(t, "hi", content)
}

func TestClientCreateChatCompletionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{Model: "gpt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

type fakeChat struct {
	reply string
	err   error
	last  *ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &ChatCompletionResponse{Choices: []Choice{{Message: &ChatMessage{Role: "assistant", Content: f.reply}}}}, nil
}

func TestGeneratorSendsSettingsAndContext(t *testing.T) {
	chat := &fakeChat{reply: "Try S1."}
	g := NewGenerator(chat, GeneratorConfig{Model: "m", Temperature: 0.6, MaxTokens: 150}, nil)

	assert.Equal(t, "Try S1.", g.Generate(context.Background(), "PROMPT", "User: hi\n"))
	require.NotNil(t, chat.last)
	assert.Equal(t, 0.6, *chat.last.Temperature)
	assert.Equal(t, 150, *chat.last.MaxTokens)
	require.Len(t, chat.last.Messages, 3)
	assert.Equal(t, SystemPrompt, chat.last.Messages[0].Content)
	assert.Contains(t, chat.last.Messages[1].Content, "User: hi")
	assert.Equal(t, "PROMPT", chat.last.Messages[2].Content)
}

func TestGeneratorFallback(t *testing.T) {
	g := NewGenerator(&fakeChat{err: errors.New("timeout")}, GeneratorConfig{}, nil)
	assert.Equal(t, FallbackReply, g.Generate(context.Background(), "p", ""))

	g = NewGenerator(&fakeChat{reply: "   "}, GeneratorConfig{}, nil)
	assert.Equal(t, FallbackReply, g.Generate(context.Background(), "p", ""))
}

func TestGeneratorOverHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req ChatCompletionRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	g := NewGenerator(NewClient(server.URL, "", time.Second), GeneratorConfig{Model: "m"}, nil)
	assert.Equal(t, FallbackReply, g.Generate(context.Background(), "p", ""))
}

func TestParseIntent(t *testing.T) {
	intent, ok := ParseIntent(`["restaurants", "seafood", "5km", "4.4"]`)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryRestaurants, intent.Category)
	assert.Equal(t, []string{"seafood"}, intent.Keywords)
	require.NotNil(t, intent.MaxDistanceKm)
	assert.Equal(t, 5.0, *intent.MaxDistanceKm)
	require.NotNil(t, intent.MinRating)
	assert.Equal(t, 4.4, *intent.MinRating)

	intent, ok = ParseIntent(`['hobbies']`)
	require.True(t, ok)
	assert.Equal(t, domain.CategoryHobbies, intent.Category)
	assert.Empty(t, intent.Keywords)

	_, ok = ParseIntent("None")
	assert.False(t, ok)
	_, ok = ParseIntent(`["weather"]`)
	assert.False(t, ok)
}

func TestIntentClassifierFallsBackToKeywords(t *testing.T) {
	c := NewIntentClassifier(&fakeChat{err: errors.New("down")}, "m", nil)
	intent, err := c.Classify(context.Background(), "I'm hungry, any sushi within 3 km?")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryRestaurants, intent.Category)
	assert.Equal(t, []string{"sushi"}, intent.Keywords)
	require.NotNil(t, intent.MaxDistanceKm)
	assert.Equal(t, 3.0, *intent.MaxDistanceKm)

	c = NewIntentClassifier(&fakeChat{reply: "None"}, "m", nil)
	intent, err = c.Classify(context.Background(), "let's go bowling")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHobbies, intent.Category)
}

func TestIntentClassifierUsesModel(t *testing.T) {
	chat := &fakeChat{reply: `["stations", "diesel"]`}
	c := NewIntentClassifier(chat, "m", nil)
	intent, err := c.Classify(context.Background(), "I need to refuel")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryStations, intent.Category)
	assert.Equal(t, []string{"diesel"}, intent.Keywords)
	assert.True(t, strings.Contains(chat.last.Messages[1].Content, `User request: "I need to refuel"`))
}

func TestKeywordClassifierDefaultsToStations(t *testing.T) {
	intent, err := NewKeywordClassifier().Classify(context.Background(), "hmm")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryStations, intent.Category)
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()

	c := NewIntentClassifier(m, "mock", nil)
	intent, err := c.Classify(context.Background(), "find a museum with 4.5 stars")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryHobbies, intent.Category)
	assert.Equal(t, []string{"museum"}, intent.Keywords)

	g := NewGenerator(m, GeneratorConfig{Model: "mock"}, nil)
	reply := g.Generate(context.Background(), "Here are the filtered recommendations:\n- S1 (Ionity), 1 km away\n- S2 (Tesla), 2 km away\n", "")
	assert.Equal(t, "I found S1, S2. Which one would you like?", reply)

	assert.IsType(t, &MockClient{}, NewChatClient("MOCK", "", "", time.Second, nil))
	assert.IsType(t, &Client{}, NewChatClient("", "http://x", "", time.Second, nil))
}
