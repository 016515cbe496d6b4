package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/claims-idp/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedClaim(t *testing.T, st *SQLiteStore, claimNumber string) string {
	t.Helper()
	id, err := st.UpsertClaim(context.Background(), model.ClaimInput{
		ClaimNumber:  claimNumber,
		PolicyHolder: "Ada Lovelace",
		ClaimType:    "health",
	})
	require.NoError(t, err)
	return id
}

// --- Claims ---

func TestSQLite_UpsertClaim_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.UpsertClaim(ctx, model.ClaimInput{
		ClaimNumber:  "CLM-1001",
		PolicyHolder: "Ada Lovelace",
		ClaimType:    "health",
	})
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := st.UpsertClaim(ctx, model.ClaimInput{
		ClaimNumber:  "CLM-1001",
		PolicyHolder: "Ada K. Lovelace",
		ClaimType:    "auto",
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	claim, err := st.GetClaimByNumber(ctx, "CLM-1001")
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, "Ada K. Lovelace", claim.PolicyHolder)
	assert.Equal(t, "auto", claim.ClaimType)
}

func TestSQLite_GetClaimByNumber_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	claim, err := st.GetClaimByNumber(context.Background(), "CLM-NOPE")
	require.NoError(t, err)
	assert.Nil(t, claim)
}

func TestSQLite_FindClaimIDByNumber(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id := seedClaim(t, st, "CLM-1002")

	found, err := st.FindClaimIDByNumber(ctx, "CLM-1002")
	require.NoError(t, err)
	assert.Equal(t, id, found)

	missing, err := st.FindClaimIDByNumber(ctx, "CLM-MISSING")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

// --- Documents ---

func TestSQLite_RegisterDocument_DedupByFileName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-2001")

	first, err := st.RegisterDocument(ctx, claimID, "report.pdf", "pdf")
	require.NoError(t, err)

	second, err := st.RegisterDocument(ctx, claimID, "report.pdf", "pdf")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	docs, err := st.ListDocuments(ctx, claimID)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestSQLite_SetDocumentText(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-2002")

	docID, err := st.RegisterDocument(ctx, claimID, "notes.txt", "txt")
	require.NoError(t, err)

	require.NoError(t, st.SetDocumentText(ctx, docID, "policy POL-123456"))

	docs, err := st.ListDocuments(ctx, claimID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.NotNil(t, docs[0].ContentText)
	assert.Equal(t, "policy POL-123456", *docs[0].ContentText)
}

func TestSQLite_SetDocumentText_MissingDocument(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetDocumentText(context.Background(), "no-such-doc", "text")
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestSQLite_SampleDocumentTexts_TruncatesAndLimits(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-2003")

	long := strings.Repeat("x", PreviewLength+500)
	for _, name := range []string{"a.txt", "b.txt", "c.txt", "d.txt"} {
		docID, err := st.RegisterDocument(ctx, claimID, name, "txt")
		require.NoError(t, err)
		require.NoError(t, st.SetDocumentText(ctx, docID, long))
	}

	// Empty-text documents are excluded from sampling.
	_, err := st.RegisterDocument(ctx, claimID, "empty.txt", "txt")
	require.NoError(t, err)

	texts, err := st.SampleDocumentTexts(ctx, claimID, 3)
	require.NoError(t, err)
	require.Len(t, texts, 3)
	for _, text := range texts {
		assert.Len(t, text, PreviewLength)
	}
}

// --- Extracted fields ---

func TestSQLite_Fields_AggregateAndDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-3001")

	docID, err := st.RegisterDocument(ctx, claimID, "scan.pdf", "pdf")
	require.NoError(t, err)

	conf := 0.9
	_, err = st.InsertExtractedField(ctx, model.FieldInsert{
		ClaimID:    claimID,
		DocumentID: &docID,
		FieldName:  model.FieldPolicyNumber,
		FieldValue: "POL-123456",
		Confidence: &conf,
	})
	require.NoError(t, err)

	_, err = st.InsertExtractedField(ctx, model.FieldInsert{
		ClaimID:    claimID,
		FieldName:  model.FieldClaimNumber,
		FieldValue: "CLM-3001",
	})
	require.NoError(t, err)

	fields, err := st.AggregateFieldsByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Equal(t, []string{"POL-123456"}, fields[model.FieldPolicyNumber])
	assert.Equal(t, []string{"CLM-3001"}, fields[model.FieldClaimNumber])

	// Deleting document fields keeps claim-level rows.
	require.NoError(t, st.DeleteDocumentFields(ctx, docID))
	fields, err = st.AggregateFieldsByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Empty(t, fields[model.FieldPolicyNumber])
	assert.Equal(t, []string{"CLM-3001"}, fields[model.FieldClaimNumber])

	// Deleting claim-level fields clears the rest.
	require.NoError(t, st.DeleteClaimLevelFields(ctx, claimID))
	fields, err = st.AggregateFieldsByClaim(ctx, claimID)
	require.NoError(t, err)
	assert.Empty(t, fields)
}

// --- Fraud scores ---

func TestSQLite_FraudScores_LatestWins(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-4001")

	require.NoError(t, st.RecordFraudScore(ctx, claimID, 30, model.RiskMedium, map[string]int{
		"missing_policy_number": 10,
		"missing_claim_number":  20,
	}))
	require.NoError(t, st.RecordFraudScore(ctx, claimID, 10, model.RiskLow, map[string]int{
		"missing_policy_number": 10,
	}))

	fs, err := st.LatestFraudScore(ctx, claimID)
	require.NoError(t, err)
	require.NotNil(t, fs)
	assert.Equal(t, 10, fs.Score)
	assert.Equal(t, model.RiskLow, fs.Risk)
	assert.Equal(t, map[string]int{"missing_policy_number": 10}, fs.RuleHits)
}

func TestSQLite_LatestFraudScore_NoneRecorded(t *testing.T) {
	st := newTestSQLiteStore(t)
	claimID := seedClaim(t, st, "CLM-4002")

	fs, err := st.LatestFraudScore(context.Background(), claimID)
	require.NoError(t, err)
	assert.Nil(t, fs)
}

// --- Audit log ---

func TestSQLite_Audit_LatestDetail(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	claimID := seedClaim(t, st, "CLM-5001")

	require.NoError(t, st.AppendAudit(ctx, model.AuditSummaryGenerated, "first summary", &claimID, nil))
	require.NoError(t, st.AppendAudit(ctx, model.AuditSummaryGenerated, "second summary", &claimID, nil))
	require.NoError(t, st.AppendAudit(ctx, model.AuditFraudScored, "score=30 risk=MEDIUM", &claimID, nil))

	detail, err := st.LatestAuditDetail(ctx, claimID, model.AuditSummaryGenerated)
	require.NoError(t, err)
	assert.Equal(t, "second summary", detail)

	detail, err = st.LatestAuditDetail(ctx, claimID, model.AuditDocumentRegistered)
	require.NoError(t, err)
	assert.Empty(t, detail)
}

func TestSQLite_Audit_AllowsNilClaim(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.AppendAudit(context.Background(), model.AuditFraudScored, "system event", nil, nil)
	require.NoError(t, err)
}

func TestSQLiteStore_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)

	require.NoError(t, st.Ping(context.Background()))
}
