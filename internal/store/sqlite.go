package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sells-group/claims-idp/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store against an embedded SQLite database. It is
// the zero-infrastructure backend for local runs and tests.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storageWrap(err, "sqlite: open")
	}
	// modernc's driver is not safe for concurrent writes over multiple
	// connections.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storageWrap(err, fmt.Sprintf("sqlite: %s", pragma))
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id                   TEXT PRIMARY KEY,
	claim_number         TEXT NOT NULL UNIQUE,
	policy_holder        TEXT NOT NULL,
	claim_type           TEXT NOT NULL,
	incident_description TEXT,
	created_at           TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	file_name    TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	content_text TEXT,
	created_at   TIMESTAMP NOT NULL,
	UNIQUE (claim_id, file_name)
);

CREATE TABLE IF NOT EXISTS extracted_fields (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	document_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
	field_name  TEXT NOT NULL,
	field_value TEXT NOT NULL,
	confidence  REAL,
	created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS fraud_scores (
	id         TEXT PRIMARY KEY,
	claim_id   TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	score      INTEGER NOT NULL,
	risk_level TEXT NOT NULL,
	rule_hits  TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT REFERENCES claims(id) ON DELETE CASCADE,
	document_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
	action      TEXT NOT NULL,
	details     TEXT,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_claim_id ON documents(claim_id);
CREATE INDEX IF NOT EXISTS idx_extracted_fields_claim_id ON extracted_fields(claim_id);
CREATE INDEX IF NOT EXISTS idx_extracted_fields_document_id ON extracted_fields(document_id);
CREATE INDEX IF NOT EXISTS idx_fraud_scores_claim_id ON fraud_scores(claim_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_logs_claim_action ON audit_logs(claim_id, action, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return storageWrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return storageWrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return storageWrap(s.db.Close(), "sqlite: close")
}

func (s *SQLiteStore) FindClaimIDByNumber(ctx context.Context, claimNumber string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM claims WHERE claim_number = ?`,
		claimNumber,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageWrap(err, "sqlite: find claim by number")
	}
	return id, nil
}

// UpsertClaim has no RETURNING support on older SQLite schemas, so it does
// a select-then-write under a transaction.
func (s *SQLiteStore) UpsertClaim(ctx context.Context, in model.ClaimInput) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageWrap(err, "sqlite: begin upsert claim")
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM claims WHERE claim_number = ?`,
		in.ClaimNumber,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO claims (id, claim_number, policy_holder, claim_type, incident_description, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, in.ClaimNumber, in.PolicyHolder, in.ClaimType, in.IncidentDescription, time.Now().UTC(),
		)
		if err != nil {
			return "", storageWrap(err, "sqlite: insert claim")
		}
	case err != nil:
		return "", storageWrap(err, "sqlite: find claim for upsert")
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE claims SET policy_holder = ?, claim_type = ?, incident_description = ? WHERE id = ?`,
			in.PolicyHolder, in.ClaimType, in.IncidentDescription, id,
		)
		if err != nil {
			return "", storageWrap(err, "sqlite: update claim")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storageWrap(err, "sqlite: commit upsert claim")
	}
	return id, nil
}

func (s *SQLiteStore) GetClaimByNumber(ctx context.Context, claimNumber string) (*model.Claim, error) {
	var c model.Claim
	err := s.db.QueryRowContext(ctx,
		`SELECT id, claim_number, policy_holder, claim_type, incident_description, created_at
		 FROM claims WHERE claim_number = ?`,
		claimNumber,
	).Scan(&c.ID, &c.ClaimNumber, &c.PolicyHolder, &c.ClaimType, &c.IncidentDescription, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageWrap(err, "sqlite: get claim by number")
	}
	return &c, nil
}

func (s *SQLiteStore) RegisterDocument(ctx context.Context, claimID, fileName, fileType string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", storageWrap(err, "sqlite: begin register document")
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE claim_id = ? AND file_name = ?`,
		claimID, fileName,
	).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (id, claim_id, file_name, file_type, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			id, claimID, fileName, fileType, time.Now().UTC(),
		)
		if err != nil {
			return "", storageWrap(err, "sqlite: insert document")
		}
	case err != nil:
		return "", storageWrap(err, "sqlite: find document for upsert")
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE documents SET file_type = ? WHERE id = ?`,
			fileType, id,
		)
		if err != nil {
			return "", storageWrap(err, "sqlite: update document")
		}
	}

	if err := tx.Commit(); err != nil {
		return "", storageWrap(err, "sqlite: commit register document")
	}
	return id, nil
}

func (s *SQLiteStore) SetDocumentText(ctx context.Context, documentID, text string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET content_text = ? WHERE id = ?`,
		text, documentID,
	)
	if err != nil {
		return storageWrap(err, "sqlite: set document text")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageWrap(err, "sqlite: set document text rows affected")
	}
	if affected == 0 {
		return storageErrf("sqlite: set document text", "document not found: %s", documentID)
	}
	return nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, claimID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, claim_id, file_name, file_type, content_text, created_at
		 FROM documents WHERE claim_id = ? ORDER BY file_name`,
		claimID,
	)
	if err != nil {
		return nil, storageWrap(err, "sqlite: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.FileName, &d.FileType, &d.ContentText, &d.CreatedAt); err != nil {
			return nil, storageWrap(err, "sqlite: scan document")
		}
		docs = append(docs, d)
	}
	return docs, storageWrap(rows.Err(), "sqlite: list documents iterate")
}

func (s *SQLiteStore) SampleDocumentTexts(ctx context.Context, claimID string, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT substr(content_text, 1, ?) FROM documents
		 WHERE claim_id = ? AND content_text IS NOT NULL AND content_text <> ''
		 ORDER BY created_at LIMIT ?`,
		PreviewLength, claimID, limit,
	)
	if err != nil {
		return nil, storageWrap(err, "sqlite: sample document texts")
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storageWrap(err, "sqlite: scan document text")
		}
		texts = append(texts, t)
	}
	return texts, storageWrap(rows.Err(), "sqlite: sample document texts iterate")
}

func (s *SQLiteStore) InsertExtractedField(ctx context.Context, in model.FieldInsert) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO extracted_fields (id, claim_id, document_id, field_name, field_value, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, in.ClaimID, in.DocumentID, in.FieldName, in.FieldValue, in.Confidence, time.Now().UTC(),
	)
	if err != nil {
		return "", storageWrap(err, "sqlite: insert extracted field")
	}
	return id, nil
}

func (s *SQLiteStore) DeleteDocumentFields(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM extracted_fields WHERE document_id = ?`,
		documentID,
	)
	return storageWrap(err, "sqlite: delete document fields")
}

func (s *SQLiteStore) DeleteClaimLevelFields(ctx context.Context, claimID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM extracted_fields WHERE claim_id = ? AND document_id IS NULL`,
		claimID,
	)
	return storageWrap(err, "sqlite: delete claim-level fields")
}

func (s *SQLiteStore) AggregateFieldsByClaim(ctx context.Context, claimID string) (model.StructuredFields, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT field_name, field_value FROM extracted_fields WHERE claim_id = ?`,
		claimID,
	)
	if err != nil {
		return nil, storageWrap(err, "sqlite: aggregate fields")
	}
	defer rows.Close()

	structured := make(model.StructuredFields)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, storageWrap(err, "sqlite: scan field")
		}
		structured[name] = append(structured[name], value)
	}
	return structured, storageWrap(rows.Err(), "sqlite: aggregate fields iterate")
}

func (s *SQLiteStore) RecordFraudScore(ctx context.Context, claimID string, score int, risk model.RiskTier, ruleHits map[string]int) error {
	hitsJSON, err := json.Marshal(ruleHits)
	if err != nil {
		return storageWrap(err, "sqlite: marshal rule hits")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO fraud_scores (id, claim_id, score, risk_level, rule_hits, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), claimID, score, string(risk), string(hitsJSON), time.Now().UTC(),
	)
	return storageWrap(err, "sqlite: record fraud score")
}

func (s *SQLiteStore) LatestFraudScore(ctx context.Context, claimID string) (*model.FraudScore, error) {
	var fs model.FraudScore
	var risk string
	var hitsJSON sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, claim_id, score, risk_level, rule_hits, created_at FROM fraud_scores
		 WHERE claim_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		claimID,
	).Scan(&fs.ID, &fs.ClaimID, &fs.Score, &risk, &hitsJSON, &fs.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageWrap(err, "sqlite: latest fraud score")
	}
	fs.Risk = model.RiskTier(risk)
	if hitsJSON.Valid && hitsJSON.String != "" {
		if err := json.Unmarshal([]byte(hitsJSON.String), &fs.RuleHits); err != nil {
			return nil, storageWrap(err, "sqlite: unmarshal rule hits")
		}
	}
	return &fs, nil
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, action, details string, claimID, documentID *string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, claim_id, document_id, action, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), claimID, documentID, action, details, time.Now().UTC(),
	)
	return storageWrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) LatestAuditDetail(ctx context.Context, claimID, action string) (string, error) {
	var details string
	err := s.db.QueryRowContext(ctx,
		`SELECT details FROM audit_logs
		 WHERE claim_id = ? AND action = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		claimID, action,
	).Scan(&details)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageWrap(err, "sqlite: latest audit detail")
	}
	return details, nil
}
