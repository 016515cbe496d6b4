// Package fraud computes rule-based fraud indicator scores for claims.
package fraud

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/store"
)

// Rule point values. Scoring is additive over the rules that fire.
const (
	pointsManyICDCodes       = 15
	pointsICDCodesPresent    = 5
	pointsMissingPolicy      = 10
	pointsInconsistentPolicy = 20
	pointsClaimPresent       = 5
	pointsPolicyPresent      = 5
	pointsTemporaryPolicy    = 25
	pointsMissingClaim       = 20

	manyICDThreshold = 5
)

// Score evaluates the fraud rules against a claim's aggregated fields. It is
// pure; the same field map always yields the same score, tier, and rule hits.
func Score(fields model.StructuredFields) (int, model.RiskTier, map[string]int) {
	hits := make(map[string]int)

	icdCodes := fields.DistinctValues(model.FieldDiagnosisCode)
	if len(icdCodes) > manyICDThreshold {
		hits["many_icd_codes"] = pointsManyICDCodes
	}
	if len(icdCodes) > 0 {
		hits["icd_codes_present"] = pointsICDCodesPresent
	}

	policyNumbers := fields.DistinctValues(model.FieldPolicyNumber)
	switch {
	case len(policyNumbers) == 0:
		hits["missing_policy_number"] = pointsMissingPolicy
	case len(policyNumbers) > 1:
		hits["policy_number_inconsistent"] = pointsInconsistentPolicy
	}
	if len(policyNumbers) > 0 {
		hits["policy_number_present"] = pointsPolicyPresent
	}
	for _, pn := range policyNumbers {
		if strings.HasPrefix(pn, "TEMP-") {
			hits["temporary_policy_number"] = pointsTemporaryPolicy
			break
		}
	}

	claimNumbers := fields.DistinctValues(model.FieldClaimNumber)
	if len(claimNumbers) > 0 {
		hits["claim_number_present"] = pointsClaimPresent
	} else {
		hits["missing_claim_number"] = pointsMissingClaim
	}

	score := 0
	for _, pts := range hits {
		score += pts
	}
	return score, model.TierFor(score), hits
}

// Persist records a computed score with its audit entry.
func Persist(ctx context.Context, st store.Store, claimID string, score int, risk model.RiskTier, hits map[string]int) error {
	if err := st.RecordFraudScore(ctx, claimID, score, risk, hits); err != nil {
		return err
	}

	details := fmt.Sprintf("score=%d risk=%s", score, risk)
	if err := st.AppendAudit(ctx, model.AuditFraudScored, details, &claimID, nil); err != nil {
		return err
	}

	zap.L().Info("fraud scored",
		zap.String("claim_id", claimID),
		zap.Int("score", score),
		zap.String("risk", string(risk)))
	return nil
}
