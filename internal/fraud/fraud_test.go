package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/claims-idp/internal/model"
)

func TestScore_NoFields(t *testing.T) {
	score, risk, hits := Score(model.StructuredFields{})

	// Both identifiers missing: 10 + 20.
	assert.Equal(t, 30, score)
	assert.Equal(t, model.RiskMedium, risk)
	assert.Equal(t, map[string]int{
		"missing_policy_number": 10,
		"missing_claim_number":  20,
	}, hits)
}

func TestScore_CleanClaim(t *testing.T) {
	score, risk, hits := Score(model.StructuredFields{
		model.FieldPolicyNumber: {"POL-123456"},
		model.FieldClaimNumber:  {"CLM-1001"},
	})

	assert.Equal(t, 10, score)
	assert.Equal(t, model.RiskLow, risk)
	assert.Equal(t, map[string]int{
		"policy_number_present": 5,
		"claim_number_present":  5,
	}, hits)
}

func TestScore_TemporaryPolicyManyCodes(t *testing.T) {
	score, risk, hits := Score(model.StructuredFields{
		model.FieldPolicyNumber:  {"TEMP-9999"},
		model.FieldDiagnosisCode: {"E11.9", "I10", "J45", "M54.5", "K21.9", "F41.1"},
	})

	// policy present 5 + temporary 25 + codes present 5 + many codes 15 +
	// missing claim number 20.
	assert.Equal(t, 70, score)
	assert.Equal(t, model.RiskHigh, risk)
	assert.Contains(t, hits, "temporary_policy_number")
	assert.Contains(t, hits, "many_icd_codes")
	assert.Contains(t, hits, "missing_claim_number")
}

func TestScore_InconsistentPolicyNumbers(t *testing.T) {
	score, _, hits := Score(model.StructuredFields{
		model.FieldPolicyNumber: {"POL-123456", "POL-999999"},
		model.FieldClaimNumber:  {"CLM-1001"},
	})

	assert.Contains(t, hits, "policy_number_inconsistent")
	assert.NotContains(t, hits, "missing_policy_number")
	assert.Equal(t, 30, score)
}

func TestScore_ExactlyFiveCodesIsNotMany(t *testing.T) {
	_, _, hits := Score(model.StructuredFields{
		model.FieldPolicyNumber:  {"POL-123456"},
		model.FieldClaimNumber:   {"CLM-1001"},
		model.FieldDiagnosisCode: {"E11.9", "I10", "J45", "M54.5", "K21.9"},
	})

	assert.Contains(t, hits, "icd_codes_present")
	assert.NotContains(t, hits, "many_icd_codes")
}

func TestScore_DuplicateValuesCountOnce(t *testing.T) {
	_, _, hits := Score(model.StructuredFields{
		model.FieldPolicyNumber: {"POL-123456", "POL-123456", "POL-123456"},
		model.FieldClaimNumber:  {"CLM-1001"},
	})

	assert.NotContains(t, hits, "policy_number_inconsistent")
}

func TestScore_Deterministic(t *testing.T) {
	fields := model.StructuredFields{
		model.FieldPolicyNumber:  {"TEMP-42-TEMP"},
		model.FieldDiagnosisCode: {"E11.9", "I10"},
	}

	firstScore, firstRisk, firstHits := Score(fields)
	for i := 0; i < 10; i++ {
		score, risk, hits := Score(fields)
		assert.Equal(t, firstScore, score)
		assert.Equal(t, firstRisk, risk)
		assert.Equal(t, firstHits, hits)
	}
}
