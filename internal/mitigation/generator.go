// Package mitigation generates mitigation strategies for detected risks.
//
// Defines a Generator interface and a Groq-backed implementation. The
// Service wraps a Generator with retry, response parsing, and a
// deterministic rule-based fallback, so an analysis always carries
// mitigations even when no LLM is configured or reachable.
package mitigation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/yosoku-ai/yosoku/internal/model"
)

// Generator produces a raw strategy response for a prompt. Implementations
// are expected to return the model's text verbatim; the Service owns
// parsing and validation.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service generates mitigation strategies for risks, preferring the LLM
// generator and falling back to the rule-based catalog when the generator
// is absent, fails, or returns unparseable output.
type Service struct {
	gen     Generator
	retries int
	sleep   func(time.Duration)
	log     *slog.Logger
}

// NewService creates a mitigation service. A nil generator is valid and
// makes the service fallback-only.
func NewService(gen Generator, retries int, log *slog.Logger) *Service {
	if retries < 1 {
		retries = 1
	}
	return &Service{gen: gen, retries: retries, sleep: time.Sleep, log: log}
}

// Mitigate returns 2-5 strategies for a risk. Never returns an empty
// slice: every failure path lands on the fallback catalog.
func (s *Service) Mitigate(ctx context.Context, risk model.RiskItem) []model.MitigationStrategy {
	if s.gen == nil {
		return Fallback(risk)
	}

	response, err := s.generateWithRetry(ctx, buildPrompt(risk), risk.RiskID)
	if err != nil {
		s.log.Warn("mitigation generation failed, using fallback",
			"risk_id", risk.RiskID, "error", err)
		return Fallback(risk)
	}

	strategies := parseStrategies(response)
	if len(strategies) == 0 {
		s.log.Warn("mitigation response unparseable, using fallback",
			"risk_id", risk.RiskID)
		return Fallback(risk)
	}

	s.log.Info("generated mitigation strategies",
		"risk_id", risk.RiskID,
		"category", risk.Category,
		"count", len(strategies))
	return strategies
}

// MitigateTop attaches mitigations to the first limit risks in place.
// Risks arrive sorted by score, so the prefix is the highest-scoring set.
// A limit of 0 disables mitigation generation.
func (s *Service) MitigateTop(ctx context.Context, risks []model.RiskItem, limit int) {
	if limit > len(risks) {
		limit = len(risks)
	}
	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			return
		}
		risks[i].Mitigations = s.Mitigate(ctx, risks[i])
	}
}

func (s *Service) generateWithRetry(ctx context.Context, prompt, riskID string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		response, err := s.gen.Generate(ctx, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err
		s.log.Warn("mitigation generator attempt failed",
			"risk_id", riskID,
			"attempt", attempt+1,
			"max_attempts", s.retries,
			"error", err)
		if attempt < s.retries-1 {
			s.sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return "", fmt.Errorf("mitigation: all %d attempts failed: %w", s.retries, lastErr)
}

// promptTemplate asks for a fixed-schema JSON array so the response can be
// unmarshaled straight into MitigationStrategy.
const promptTemplate = `You are a supply chain expert. Given the following risk:

Risk Category: %s
Sub-Categories: %s
Business Impact: %s
Risk Score: %.1f (Priority: %s)
Timeline: %d days until potential disruption

Context:
- Affected Entities:
%s

- Root Causes:
%s

- Current State/Metrics:
%s

Generate 3-5 prioritized mitigation strategies. For EACH strategy provide:
1. Strategy Name
2. Detailed Action Steps (numbered list)
3. Implementation Timeline (in days)
4. Estimated Cost (USD)
5. Expected Risk Reduction (percentage)
6. Dependencies/Prerequisites
7. Pros and Cons

Format your response as a JSON array with these exact fields for each strategy:
[
  {
    "strategy_name": "string",
    "action_steps": ["step1", "step2", ...],
    "timeline_days": number,
    "estimated_cost": number,
    "risk_reduction": number,
    "dependencies": ["dep1", "dep2", ...],
    "pros": ["pro1", "pro2", ...],
    "cons": ["con1", "con2", ...]
  }
]

Respond ONLY with the JSON array, no additional text.`

func buildPrompt(risk model.RiskItem) string {
	return fmt.Sprintf(promptTemplate,
		risk.Category,
		strings.Join(risk.SubCategories, ", "),
		risk.Impact,
		risk.RiskScore,
		risk.Priority,
		risk.TimelineDays,
		formatEntities(risk.Affected),
		formatRootCauses(risk.RootCauses),
		formatMetrics(risk.Metrics),
	)
}

func formatEntities(e model.AffectedEntities) string {
	var lines []string
	add := func(label string, ids []string) {
		if len(ids) > 0 {
			lines = append(lines, label+": "+strings.Join(ids, ", "))
		}
	}
	add("suppliers", e.Suppliers)
	add("plants", e.Plants)
	add("warehouses", e.Warehouses)
	add("skus", e.SKUs)
	add("routes", e.Routes)
	add("regions", e.Regions)
	if len(lines) == 0 {
		return "Not specified"
	}
	return strings.Join(lines, "\n")
}

func formatRootCauses(causes []string) string {
	if len(causes) == 0 {
		return "- Not specified"
	}
	var b strings.Builder
	for i, c := range causes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + c)
	}
	return b.String()
}

func formatMetrics(metrics []model.ForecastedMetric) string {
	if len(metrics) == 0 {
		return "Not available"
	}
	var b strings.Builder
	for i, m := range metrics {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: %g (baseline: %g)", m.MetricName, m.Forecasted, m.Baseline)
	}
	return b.String()
}

// jsonArrayRe finds a JSON array of objects embedded in surrounding prose.
var jsonArrayRe = regexp.MustCompile(`(?s)\[\s*\{.*\}\s*\]`)

// jsonObjectRe finds flat JSON objects, the last resort when the model
// emitted objects without the enclosing array.
var jsonObjectRe = regexp.MustCompile(`\{[^{}]+\}`)

// parseStrategies extracts strategies from a model response. Tries a
// direct unmarshal first, then an embedded array, then loose objects.
// Returns nil when nothing usable is found so the caller can fall back.
func parseStrategies(response string) []model.MitigationStrategy {
	var raw []model.MitigationStrategy
	if err := json.Unmarshal([]byte(response), &raw); err == nil {
		return sanitizeStrategies(raw)
	}

	if match := jsonArrayRe.FindString(response); match != "" {
		if err := json.Unmarshal([]byte(match), &raw); err == nil {
			return sanitizeStrategies(raw)
		}
	}

	var loose []model.MitigationStrategy
	for _, obj := range jsonObjectRe.FindAllString(response, -1) {
		var s model.MitigationStrategy
		if err := json.Unmarshal([]byte(obj), &s); err == nil && s.StrategyName != "" {
			loose = append(loose, s)
		}
	}
	return sanitizeStrategies(loose)
}

// sanitizeStrategies clamps model output into the schema's bounds and
// drops anything that still fails validation, such as a strategy with no
// action steps.
func sanitizeStrategies(raw []model.MitigationStrategy) []model.MitigationStrategy {
	var out []model.MitigationStrategy
	for _, s := range raw {
		if s.StrategyName == "" {
			s.StrategyName = "Strategy"
		}
		s.StrategyName = truncate(s.StrategyName, 100)
		s.ActionSteps = truncateAll(capSlice(s.ActionSteps, 10), 500)
		if s.TimelineDays < 1 {
			s.TimelineDays = 1
		}
		if s.EstimatedCost < 0 {
			s.EstimatedCost = 0
		}
		s.RiskReduction = min(100, max(0, s.RiskReduction))
		s.Dependencies = truncateAll(capSlice(s.Dependencies, 5), 200)
		s.Pros = truncateAll(capSlice(s.Pros, 5), 200)
		s.Cons = truncateAll(capSlice(s.Cons, 5), 200)

		if err := model.Validate(s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func truncateAll(ss []string, n int) []string {
	for i, s := range ss {
		ss[i] = truncate(s, n)
	}
	return ss
}

func capSlice(ss []string, n int) []string {
	if len(ss) > n {
		return ss[:n]
	}
	return ss
}
