// Package llm generates claim narrative summaries, falling back through a
// chain of providers to a deterministic template.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/resilience"
)

const systemPrompt = `You are an insurance claims analyst. Write a concise, factual summary of the claim below for an adjuster. Cover the policy holder, claim type, extracted identifiers, diagnosis codes, and any fraud indicators. Do not invent details that are not in the provided data.`

// FraudContext carries the latest fraud assessment into the prompt.
type FraudContext struct {
	Score    int
	Risk     model.RiskTier
	RuleHits map[string]int
}

// SummaryContext is everything a generator needs to summarize one claim.
type SummaryContext struct {
	ClaimNumber         string
	PolicyHolder        string
	ClaimType           string
	IncidentDescription string
	Fields              model.StructuredFields
	Snippets            []string
	Fraud               *FraudContext
}

// Generator produces a narrative summary from a claim context.
type Generator interface {
	Name() string
	GenerateSummary(ctx context.Context, sc SummaryContext) (string, error)
}

// BuildPrompt renders the user prompt shared by every provider.
func BuildPrompt(sc SummaryContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Claim #: %s\n", sc.ClaimNumber)
	fmt.Fprintf(&sb, "Policy Holder: %s\n", sc.PolicyHolder)
	fmt.Fprintf(&sb, "Type: %s\n", sc.ClaimType)
	if sc.IncidentDescription != "" {
		fmt.Fprintf(&sb, "Incident: %s\n", sc.IncidentDescription)
	}
	if sc.Fraud != nil {
		fmt.Fprintf(&sb, "Fraud score: %d (%s)\n", sc.Fraud.Score, sc.Fraud.Risk)
	}

	fieldsJSON, err := json.MarshalIndent(sc.Fields, "", "  ")
	if err != nil {
		fieldsJSON = []byte("{}")
	}
	fmt.Fprintf(&sb, "\nStructured Data:\n%s\n", fieldsJSON)

	if len(sc.Snippets) > 0 {
		sb.WriteString("\nDocument Snippets:\n")
		for i, snippet := range sc.Snippets {
			fmt.Fprintf(&sb, "--- snippet %d ---\n%s\n", i+1, snippet)
		}
	}
	return sb.String()
}

// FallbackSummary renders a deterministic template summary used when no LLM
// provider is reachable or summarization is disabled.
func FallbackSummary(sc SummaryContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Claim #: %s\n", sc.ClaimNumber)
	fmt.Fprintf(&sb, "Policy Holder: %s\n", sc.PolicyHolder)
	fmt.Fprintf(&sb, "Type: %s\n", sc.ClaimType)
	if sc.Fraud != nil {
		fmt.Fprintf(&sb, "Risk: %s (score %d)\n", sc.Fraud.Risk, sc.Fraud.Score)
	}

	if codes := sc.Fields.DistinctValues(model.FieldDiagnosisCode); len(codes) > 0 {
		fmt.Fprintf(&sb, "Codes: %s\n", strings.Join(codes, ", "))
	}

	if sc.Fraud != nil && len(sc.Fraud.RuleHits) > 0 {
		rules := make([]string, 0, len(sc.Fraud.RuleHits))
		for rule := range sc.Fraud.RuleHits {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		fmt.Fprintf(&sb, "Issues: %s\n", strings.Join(rules, ", "))
	}
	return sb.String()
}

// Chain tries generators in priority order, falling back to the template
// summary when every provider fails. Summarize therefore always produces a
// summary.
type Chain struct {
	generators []Generator
	timeout    time.Duration
}

// NewChain creates a Chain with the given per-provider call timeout.
func NewChain(timeout time.Duration, generators ...Generator) *Chain {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Chain{generators: generators, timeout: timeout}
}

// Summarize returns the summary text and the name of the provider that
// produced it ("fallback" when no generator succeeded).
func (c *Chain) Summarize(ctx context.Context, sc SummaryContext) (string, string) {
	for _, g := range c.generators {
		var summary string
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := resilience.Do(callCtx, resilience.DefaultRetryConfig(), func(ctx context.Context) error {
			var genErr error
			summary, genErr = g.GenerateSummary(ctx, sc)
			return genErr
		})
		cancel()
		if err == nil && strings.TrimSpace(summary) != "" {
			return summary, g.Name()
		}
		zap.L().Warn("llm: provider failed, trying next",
			zap.String("provider", g.Name()),
			zap.String("claim_number", sc.ClaimNumber),
			zap.Error(err),
		)
	}
	return FallbackSummary(sc), "fallback"
}
