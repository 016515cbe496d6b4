// Package model defines the typed records persisted by the claim store.
package model

import "time"

// RiskTier classifies a fraud score.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// TierFor maps a numeric fraud score onto a risk tier.
func TierFor(score int) RiskTier {
	switch {
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Claim is the business record identified by a unique claim number.
// Re-submitting a claim number updates the mutable attributes in place.
type Claim struct {
	ID                  string    `json:"id"`
	ClaimNumber         string    `json:"claim_number"`
	PolicyHolder        string    `json:"policy_holder"`
	ClaimType           string    `json:"claim_type"`
	IncidentDescription *string   `json:"incident_description,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// ClaimInput carries the claim attributes accepted at submission time.
type ClaimInput struct {
	ClaimNumber         string
	PolicyHolder        string
	ClaimType           string
	IncidentDescription *string
}

// Document is one ingested file associated with a claim. ContentText stays
// nil until text extraction completes for the document.
type Document struct {
	ID          string    `json:"id"`
	ClaimID     string    `json:"claim_id"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type"`
	ContentText *string   `json:"content_text,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExtractedField is a structured datum recognized from document text.
// DocumentID is a weak reference: the field survives document removal.
type ExtractedField struct {
	ID         string    `json:"id"`
	ClaimID    string    `json:"claim_id"`
	DocumentID *string   `json:"document_id,omitempty"`
	FieldName  string    `json:"field_name"`
	FieldValue string    `json:"field_value"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FieldInsert carries the values for a new extracted field row.
type FieldInsert struct {
	ClaimID    string
	DocumentID *string
	FieldName  string
	FieldValue string
	Confidence *float64
}

// FraudScore is one append-only scoring record. RuleHits maps each fired
// rule name to the points it contributed.
type FraudScore struct {
	ID        string         `json:"id"`
	ClaimID   string         `json:"claim_id"`
	Score     int            `json:"score"`
	Risk      RiskTier       `json:"risk"`
	RuleHits  map[string]int `json:"rule_hits"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditLogEntry is an immutable record of a pipeline event.
type AuditLogEntry struct {
	ID         string    `json:"id"`
	ClaimID    *string   `json:"claim_id,omitempty"`
	DocumentID *string   `json:"document_id,omitempty"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}
