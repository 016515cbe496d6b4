package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/store"
)

// Coordinator runs recognition over a document's text and persists the
// results.
type Coordinator struct {
	store store.Store
}

// NewCoordinator creates a Coordinator on the given store.
func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{store: st}
}

// ExtractAndPersist recognizes fields in text and replaces the document's
// previously extracted fields with the new set. A document with no usable
// text is skipped entirely, including its audit entry. Returns the number of
// fields persisted.
func (c *Coordinator) ExtractAndPersist(ctx context.Context, claimID, documentID, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		zap.L().Debug("no text to extract from",
			zap.String("claim_id", claimID),
			zap.String("document_id", documentID))
		return 0, nil
	}

	candidates := Recognize(text)

	// Replace rather than append so reprocessing stays idempotent.
	if err := c.store.DeleteDocumentFields(ctx, documentID); err != nil {
		return 0, err
	}

	for _, cand := range candidates {
		conf := cand.Confidence
		_, err := c.store.InsertExtractedField(ctx, model.FieldInsert{
			ClaimID:    claimID,
			DocumentID: &documentID,
			FieldName:  cand.Field,
			FieldValue: cand.Value,
			Confidence: &conf,
		})
		if err != nil {
			return 0, err
		}
	}

	details := fmt.Sprintf("extracted %d fields", len(candidates))
	if err := c.store.AppendAudit(ctx, model.AuditFieldsExtracted, details, &claimID, &documentID); err != nil {
		return 0, err
	}

	zap.L().Info("fields extracted",
		zap.String("claim_id", claimID),
		zap.String("document_id", documentID),
		zap.Int("count", len(candidates)))

	return len(candidates), nil
}
