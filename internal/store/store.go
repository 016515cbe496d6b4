// Package store provides the persistence layer for claims, documents,
// extracted fields, fraud scores, and audit entries.
package store

import (
	"context"

	"github.com/sells-group/claims-idp/internal/model"
)

// PreviewLength is the truncation applied to document texts returned by
// SampleDocumentTexts. Previews feed summary prompts, not completeness.
const PreviewLength = 1000

// Store defines the persistence contract the claim pipeline depends on.
// Lookups return the zero value with a nil error when no row matches;
// every failure is a *StorageError.
type Store interface {
	// Claims
	FindClaimIDByNumber(ctx context.Context, claimNumber string) (string, error)
	UpsertClaim(ctx context.Context, in model.ClaimInput) (string, error)
	GetClaimByNumber(ctx context.Context, claimNumber string) (*model.Claim, error)

	// Documents. RegisterDocument dedups on (claim_id, file_name):
	// re-registering a file returns the existing document id.
	RegisterDocument(ctx context.Context, claimID, fileName, fileType string) (string, error)
	SetDocumentText(ctx context.Context, documentID, text string) error
	ListDocuments(ctx context.Context, claimID string) ([]model.Document, error)
	SampleDocumentTexts(ctx context.Context, claimID string, limit int) ([]string, error)

	// Extracted fields
	InsertExtractedField(ctx context.Context, in model.FieldInsert) (string, error)
	DeleteDocumentFields(ctx context.Context, documentID string) error
	DeleteClaimLevelFields(ctx context.Context, claimID string) error
	AggregateFieldsByClaim(ctx context.Context, claimID string) (model.StructuredFields, error)

	// Fraud scores
	RecordFraudScore(ctx context.Context, claimID string, score int, risk model.RiskTier, ruleHits map[string]int) error
	LatestFraudScore(ctx context.Context, claimID string) (*model.FraudScore, error)

	// Audit log
	AppendAudit(ctx context.Context, action, details string, claimID, documentID *string) error
	LatestAuditDetail(ctx context.Context, claimID, action string) (string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
