package llm

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-idp/internal/model"
)

type stubGenerator struct {
	name    string
	summary string
	err     error
	calls   int
}

func (s *stubGenerator) Name() string { return s.name }

func (s *stubGenerator) GenerateSummary(ctx context.Context, sc SummaryContext) (string, error) {
	s.calls++
	return s.summary, s.err
}

func testContext() SummaryContext {
	return SummaryContext{
		ClaimNumber:  "CLM-1001",
		PolicyHolder: "Ada Lovelace",
		ClaimType:    "health",
		Fields: model.StructuredFields{
			model.FieldPolicyNumber:  {"TEMP-9999"},
			model.FieldDiagnosisCode: {"E11.9", "I10"},
		},
		Fraud: &FraudContext{
			Score: 70,
			Risk:  model.RiskHigh,
			RuleHits: map[string]int{
				"temporary_policy_number": 25,
				"missing_claim_number":    20,
			},
		},
	}
}

func TestBuildPrompt_ContainsClaimData(t *testing.T) {
	prompt := BuildPrompt(testContext())

	assert.Contains(t, prompt, "Claim #: CLM-1001")
	assert.Contains(t, prompt, "Policy Holder: Ada Lovelace")
	assert.Contains(t, prompt, "Fraud score: 70 (HIGH)")
	assert.Contains(t, prompt, "Structured Data:")
	assert.Contains(t, prompt, "TEMP-9999")
}

func TestBuildPrompt_IncludesSnippets(t *testing.T) {
	sc := testContext()
	sc.Snippets = []string{"first page text", "second page text"}

	prompt := BuildPrompt(sc)

	assert.Contains(t, prompt, "--- snippet 1 ---\nfirst page text")
	assert.Contains(t, prompt, "--- snippet 2 ---\nsecond page text")
}

func TestBuildPrompt_IncidentDescription(t *testing.T) {
	sc := testContext()
	sc.IncidentDescription = "Vehicle rear-ended at a stop light."

	prompt := BuildPrompt(sc)

	assert.Contains(t, prompt, "Incident: Vehicle rear-ended at a stop light.")
	assert.NotContains(t, BuildPrompt(testContext()), "Incident:")
}

func TestFallbackSummary_Deterministic(t *testing.T) {
	sc := testContext()

	first := FallbackSummary(sc)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FallbackSummary(sc))
	}

	assert.Contains(t, first, "Claim #: CLM-1001")
	assert.Contains(t, first, "Policy Holder: Ada Lovelace")
	assert.Contains(t, first, "Type: health")
	assert.Contains(t, first, "Risk: HIGH (score 70)")
	assert.Contains(t, first, "Codes: E11.9, I10")
	assert.Contains(t, first, "Issues: missing_claim_number, temporary_policy_number")
}

func TestFallbackSummary_OmitsEmptySections(t *testing.T) {
	summary := FallbackSummary(SummaryContext{
		ClaimNumber:  "CLM-2001",
		PolicyHolder: "Grace Hopper",
		ClaimType:    "auto",
	})

	assert.Contains(t, summary, "Claim #: CLM-2001")
	assert.NotContains(t, summary, "Risk:")
	assert.NotContains(t, summary, "Codes:")
	assert.NotContains(t, summary, "Issues:")
}

func TestChain_FirstProviderWins(t *testing.T) {
	first := &stubGenerator{name: "first", summary: "summary from first"}
	second := &stubGenerator{name: "second", summary: "summary from second"}
	chain := NewChain(time.Second, first, second)

	summary, provider := chain.Summarize(context.Background(), testContext())

	assert.Equal(t, "summary from first", summary)
	assert.Equal(t, "first", provider)
	assert.Zero(t, second.calls)
}

func TestChain_FallsThroughOnError(t *testing.T) {
	failing := &stubGenerator{name: "failing", err: eris.New("provider down")}
	working := &stubGenerator{name: "working", summary: "recovered summary"}
	chain := NewChain(time.Second, failing, working)

	summary, provider := chain.Summarize(context.Background(), testContext())

	assert.Equal(t, "recovered summary", summary)
	assert.Equal(t, "working", provider)
	assert.Equal(t, 1, failing.calls)
}

func TestChain_EmptySummaryTreatedAsFailure(t *testing.T) {
	blank := &stubGenerator{name: "blank", summary: "   "}
	working := &stubGenerator{name: "working", summary: "real summary"}
	chain := NewChain(time.Second, blank, working)

	summary, provider := chain.Summarize(context.Background(), testContext())

	assert.Equal(t, "real summary", summary)
	assert.Equal(t, "working", provider)
}

func TestChain_AllProvidersFail_UsesFallback(t *testing.T) {
	failing := &stubGenerator{name: "failing", err: eris.New("provider down")}
	chain := NewChain(time.Second, failing)

	summary, provider := chain.Summarize(context.Background(), testContext())

	assert.Equal(t, "fallback", provider)
	assert.Contains(t, summary, "Claim #: CLM-1001")
	assert.Contains(t, summary, "Risk: HIGH (score 70)")
}

func TestChain_NoProviders_UsesFallback(t *testing.T) {
	chain := NewChain(time.Second)

	summary, provider := chain.Summarize(context.Background(), testContext())

	require.NotEmpty(t, summary)
	assert.Equal(t, "fallback", provider)
}
