package extract

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/store"
)

func newCoordinatorFixture(t *testing.T) (*Coordinator, store.Store, string, string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	claimID, err := st.UpsertClaim(ctx, model.ClaimInput{
		ClaimNumber:  "CLM-1001",
		PolicyHolder: "Ada Lovelace",
		ClaimType:    "health",
	})
	require.NoError(t, err)

	docID, err := st.RegisterDocument(ctx, claimID, "intake.txt", "txt")
	require.NoError(t, err)

	return NewCoordinator(st), st, claimID, docID
}

func TestExtractAndPersist_PersistsFieldsAndAudit(t *testing.T) {
	coord, st, claimID, docID := newCoordinatorFixture(t)
	ctx := context.Background()

	count, err := coord.ExtractAndPersist(ctx, claimID, docID, "Policy Number: POL-123456\nDiagnosis E11.9")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	fields, err := st.AggregateFieldsByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Equal(t, []string{"POL-123456"}, fields[model.FieldPolicyNumber])
	assert.Equal(t, []string{"E11.9"}, fields[model.FieldDiagnosisCode])

	detail, err := st.LatestAuditDetail(ctx, claimID, model.AuditFieldsExtracted)
	require.NoError(t, err)
	assert.Equal(t, "extracted 2 fields", detail)
}

func TestExtractAndPersist_EmptyTextSkipsEverything(t *testing.T) {
	coord, st, claimID, docID := newCoordinatorFixture(t)
	ctx := context.Background()

	count, err := coord.ExtractAndPersist(ctx, claimID, docID, "   \n\t ")
	require.NoError(t, err)
	assert.Zero(t, count)

	detail, err := st.LatestAuditDetail(ctx, claimID, model.AuditFieldsExtracted)
	require.NoError(t, err)
	assert.Empty(t, detail)
}

func TestExtractAndPersist_ReplacesPriorFields(t *testing.T) {
	coord, st, claimID, docID := newCoordinatorFixture(t)
	ctx := context.Background()

	_, err := coord.ExtractAndPersist(ctx, claimID, docID, "Policy: POL-111111")
	require.NoError(t, err)

	_, err = coord.ExtractAndPersist(ctx, claimID, docID, "Policy: POL-222222")
	require.NoError(t, err)

	fields, err := st.AggregateFieldsByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Equal(t, []string{"POL-222222"}, fields[model.FieldPolicyNumber])
}

func TestExtractAndPersist_NoMatchesStillAudited(t *testing.T) {
	coord, st, claimID, docID := newCoordinatorFixture(t)
	ctx := context.Background()

	count, err := coord.ExtractAndPersist(ctx, claimID, docID, "nothing of interest here")
	require.NoError(t, err)
	assert.Zero(t, count)

	detail, err := st.LatestAuditDetail(ctx, claimID, model.AuditFieldsExtracted)
	require.NoError(t, err)
	assert.Equal(t, "extracted 0 fields", detail)
}
