// Package policy evaluates the OPA admission policy applied to every
// retrieved point of interest.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

// Decisions returned by the policy.
const (
	DecisionAllow = "allow"
	DecisionBlock = "block"
)

// Decision is the outcome of evaluating one candidate.
type Decision struct {
	Decision string
	Reason   string
}

// Allowed reports whether the candidate may be proposed.
func (d Decision) Allowed() bool {
	return d.Decision != DecisionBlock
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a policy engine from rego source.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.poi_admission.decision"),
		rego.Module("poi_admission.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Engine{query: query}, nil
}

// NewEngineFromFile loads the policy from path, or the default policy when
// path is empty.
func NewEngineFromFile(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Evaluate runs the policy on an arbitrary input document.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Decision: DecisionAllow, Reason: "default"}, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Decision: v}, nil
	case map[string]interface{}:
		d := Decision{Decision: DecisionAllow}
		if s, ok := v["decision"].(string); ok {
			d.Decision = s
		}
		if s, ok := v["reason"].(string); ok {
			d.Reason = s
		}
		return d, nil
	}
	return Decision{Decision: DecisionAllow, Reason: "unexpected return type"}, nil
}

// Admit evaluates one candidate against the category preferences.
func (e *Engine) Admit(ctx context.Context, category domain.Category, poi domain.POI, prefs domain.CategoryPreferences) (Decision, error) {
	return e.Evaluate(ctx, Input(category, poi, prefs))
}

// Input builds the policy input document.
func Input(category domain.Category, poi domain.POI, prefs domain.CategoryPreferences) map[string]interface{} {
	return map[string]interface{}{
		"category": string(category),
		"poi": map[string]interface{}{
			"name":        poi.Name,
			"provider":    poi.Provider,
			"address":     poi.Address,
			"rating":      poi.Rating,
			"distance_km": poi.DistanceKm,
		},
		"preferences": map[string]interface{}{
			"excluded":  stringsOrEmpty(prefs.Excluded),
			"avoid":     stringsOrEmpty(prefs.Avoid),
			"preferred": stringsOrEmpty(prefs.Preferred),
		},
	}
}

func stringsOrEmpty(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// DefaultPolicy blocks blacklisted restaurants and hobby venues matching an
// excluded activity.
const DefaultPolicy = `
package poi_admission

default decision = {"decision": "allow", "reason": ""}

poi_name = lower(input.poi.name)

decision = {"decision": "block", "reason": "blacklisted restaurant"} {
	input.category == "restaurants"
	some i
	lower(input.preferences.excluded[i]) == poi_name
}

decision = {"decision": "block", "reason": "excluded activity"} {
	input.category == "hobbies"
	some i
	term := lower(input.preferences.excluded[i])
	term != ""
	contains(poi_name, term)
}
`
