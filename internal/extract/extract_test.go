package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-idp/internal/model"
)

func valuesFor(candidates []Candidate, field string) []string {
	var values []string
	for _, c := range candidates {
		if c.Field == field {
			values = append(values, c.Value)
		}
	}
	return values
}

func TestRecognize_PolicyAndClaimNumbers(t *testing.T) {
	text := "Policy Number: POL-123456\nClaim: CLM-2024-0042\nSee attached records."

	candidates := Recognize(text)

	assert.Equal(t, []string{"POL-123456"}, valuesFor(candidates, model.FieldPolicyNumber))
	assert.Equal(t, []string{"CLM-2024-0042"}, valuesFor(candidates, model.FieldClaimNumber))
}

func TestRecognize_CaseInsensitiveLabels(t *testing.T) {
	text := "policy: ABC-998877\nCLAIM NUMBER: XYZ-112233"

	candidates := Recognize(text)

	assert.Equal(t, []string{"ABC-998877"}, valuesFor(candidates, model.FieldPolicyNumber))
	assert.Equal(t, []string{"XYZ-112233"}, valuesFor(candidates, model.FieldClaimNumber))
}

func TestRecognize_ICDCodes(t *testing.T) {
	text := "Diagnoses: E11.9, I10 and J45.909 were recorded."

	candidates := Recognize(text)

	codes := valuesFor(candidates, model.FieldDiagnosisCode)
	assert.Contains(t, codes, "E11.9")
	assert.Contains(t, codes, "I10")
	assert.Contains(t, codes, "J45.909")
}

func TestRecognize_DuplicatesCollapsedPerDocument(t *testing.T) {
	text := "E11.9 noted. Follow-up for E11.9 again. Also E11.9."

	candidates := Recognize(text)

	assert.Equal(t, []string{"E11.9"}, valuesFor(candidates, model.FieldDiagnosisCode))
}

func TestRecognize_FirstIdentifierMatchWins(t *testing.T) {
	text := "Policy Number: POL-123456\nPolicy Number: POL-999999"

	candidates := Recognize(text)

	assert.Equal(t, []string{"POL-123456"}, valuesFor(candidates, model.FieldPolicyNumber))
}

func TestRecognize_SingleCandidatePerIdentifier(t *testing.T) {
	// A "Policy Holder" line must not add a second policy-number candidate
	// next to the real one.
	text := "Policy Holder: Maxine Smith\nPolicy Number: POL-123456"

	candidates := Recognize(text)

	assert.Len(t, valuesFor(candidates, model.FieldPolicyNumber), 1)
}

func TestRecognize_ShortValuesIgnored(t *testing.T) {
	// Identifier values below six characters never match.
	candidates := Recognize("Policy: AB-12")

	assert.Empty(t, valuesFor(candidates, model.FieldPolicyNumber))
}

func TestRecognize_EmptyText(t *testing.T) {
	assert.Empty(t, Recognize(""))
}

func TestRecognize_Confidence(t *testing.T) {
	candidates := Recognize("Policy: POL-123456 with diagnosis E11.9")
	require.NotEmpty(t, candidates)

	for _, c := range candidates {
		switch c.Field {
		case model.FieldPolicyNumber, model.FieldClaimNumber:
			assert.Equal(t, 0.9, c.Confidence)
		case model.FieldDiagnosisCode:
			assert.Equal(t, 0.8, c.Confidence)
		}
	}
}
