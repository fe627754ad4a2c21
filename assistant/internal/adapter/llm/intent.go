package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiaot623/gogo/assistant/internal/domain"
	"github.com/xiaot623/gogo/assistant/internal/metrics"
)

const intentMarker = "The expected intention must be: stations, restaurants, hobbies."

// BuildIntentPrompt asks the model for the category and conditions of a
// driver's request as a bracketed list.
func BuildIntentPrompt(query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User request: %q\n\n", query)
	b.WriteString("Act as an expert in artificial intelligence. Based on the user's query, highlight the intention that is most evident in the question asked by the driver.\n")
	b.WriteString(intentMarker + "\n")
	b.WriteString("Only one output is expected, not two at the same time. If the user specifies the name of his point of interest in the query, return that name.\n")
	b.WriteString("And if other conditions are mentioned in the queries, return them also.\n")
	b.WriteString("Expected output: intention, name.\n")
	b.WriteString(`For example, if the user asks: "Find me a place for biking near here.", the expected output is: ["hobbies", "biking"]` + "\n")
	b.WriteString(`If the user asks: "Suggest me a place where can I have fun?", the expected output is: ["hobbies"]` + "\n")
	b.WriteString(`If the user asks: "Find some bakeries with a minimum rating of 4.5 stars near me", the expected output is: ["restaurants", "bakeries", "4.5"]` + "\n")
	b.WriteString(`If the user asks: "Recommend me a seafood restaurant in 5km with a minimum rating of 4.4 stars.", the expected output is: ["restaurants", "seafood", "5km", "4.4"]` + "\n")
	b.WriteString("If you do not detect the intentions I mentioned before (stations, restaurants, hobbies) in the user's question, return None.")
	return b.String()
}

// IntentClassifier classifies requests with a chat model and falls back to
// keyword rules when the model fails or detects nothing.
type IntentClassifier struct {
	client   ChatClient
	model    string
	fallback *KeywordClassifier
	logger   *zap.Logger
}

// NewIntentClassifier creates a classifier.
func NewIntentClassifier(client ChatClient, model string, logger *zap.Logger) *IntentClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentClassifier{
		client:   client,
		model:    model,
		fallback: NewKeywordClassifier(),
		logger:   logger,
	}
}

// Classify implements dialogue.Classifier. It does not fail.
func (c *IntentClassifier) Classify(ctx context.Context, query string) (domain.Intent, error) {
	temperature := 0.0
	req := &ChatCompletionRequest{
		Model: c.model,
		Messages: []ChatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: BuildIntentPrompt(query)},
		},
		Temperature: &temperature,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	var content string
	if err == nil {
		content, err = resp.Content()
	}
	metrics.ObserveLLM("classify", start, err)
	if err != nil {
		c.logger.Warn("intent classification failed, using keyword rules", zap.Error(err))
		return c.fallback.Classify(ctx, query)
	}

	intent, ok := ParseIntent(content)
	if !ok {
		c.logger.Debug("no intent in model reply", zap.String("reply", content))
		return c.fallback.Classify(ctx, query)
	}
	return intent, nil
}

var distanceToken = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*km$`)

// ParseIntent decodes replies such as ["restaurants", "seafood", "5km", "4.4"].
// Tokens ending in km set the distance limit, bare numbers up to 5 set the
// minimum rating and anything else becomes a keyword.
func ParseIntent(reply string) (domain.Intent, bool) {
	reply = strings.TrimSpace(reply)
	reply = strings.TrimSuffix(strings.TrimPrefix(reply, "["), "]")
	if reply == "" || strings.EqualFold(reply, "none") {
		return domain.Intent{}, false
	}

	var tokens []string
	for _, part := range strings.Split(reply, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			tokens = append(tokens, part)
		}
	}
	if len(tokens) == 0 {
		return domain.Intent{}, false
	}

	category, ok := domain.ParseCategory(tokens[0])
	if !ok {
		return domain.Intent{}, false
	}

	intent := domain.Intent{Category: category}
	for _, tok := range tokens[1:] {
		lower := strings.ToLower(tok)
		if m := distanceToken.FindStringSubmatch(lower); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				intent.MaxDistanceKm = &v
				continue
			}
		}
		if v, err := strconv.ParseFloat(lower, 64); err == nil && v >= 0 && v <= 5 {
			intent.MinRating = &v
			continue
		}
		intent.Keywords = append(intent.Keywords, lower)
	}
	return intent, true
}
