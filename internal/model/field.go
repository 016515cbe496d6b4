package model

// Canonical names for extracted fields. The scoring engine and summary
// context key off these, so recognizers and fallback injection must agree.
const (
	FieldPolicyNumber  = "policy_number"
	FieldClaimNumber   = "claim_number"
	FieldPolicyHolder  = "policy_holder"
	FieldDiagnosisCode = "icd10_code"
)

// Audit action tags written by the pipeline.
const (
	AuditDocumentRegistered = "document_registered"
	AuditFieldsExtracted    = "fields_extracted"
	AuditFraudScored        = "fraud_scored"
	AuditSummaryGenerated   = "llm_summary_generated"
)

// StructuredFields aggregates every extracted field of a claim by name.
// Multiple values per name are expected; order within a name is not
// significant.
type StructuredFields map[string][]string

// DistinctValues returns the deduplicated values for a field name,
// preserving first-appearance order.
func (s StructuredFields) DistinctValues(name string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range s[name] {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
