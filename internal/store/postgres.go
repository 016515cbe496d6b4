package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/claims-idp/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// preparedStatements lists queries to prepare on each new connection for
// the hot path of a pipeline run.
var preparedStatements = map[string]string{
	"upsert_claim": `INSERT INTO claims (id, claim_number, policy_holder, claim_type, incident_description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (claim_number) DO UPDATE SET
		   policy_holder = EXCLUDED.policy_holder,
		   claim_type = EXCLUDED.claim_type,
		   incident_description = EXCLUDED.incident_description
		 RETURNING id`,
	"register_document": `INSERT INTO documents (id, claim_id, file_name, file_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (claim_id, file_name) DO UPDATE SET file_type = EXCLUDED.file_type
		 RETURNING id`,
	"insert_field": `INSERT INTO extracted_fields (id, claim_id, document_id, field_name, field_value, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
	"append_audit": `INSERT INTO audit_logs (id, claim_id, document_id, action, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, storageWrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, storageWrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storageWrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS claims (
	id                   TEXT PRIMARY KEY,
	claim_number         TEXT NOT NULL UNIQUE,
	policy_holder        TEXT NOT NULL,
	claim_type           TEXT NOT NULL,
	incident_description TEXT,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	claim_id     TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	file_name    TEXT NOT NULL,
	file_type    TEXT NOT NULL,
	content_text TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (claim_id, file_name)
);

CREATE TABLE IF NOT EXISTS extracted_fields (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	document_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
	field_name  TEXT NOT NULL,
	field_value TEXT NOT NULL,
	confidence  DOUBLE PRECISION,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS fraud_scores (
	id         TEXT PRIMARY KEY,
	claim_id   TEXT NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
	score      INTEGER NOT NULL,
	risk_level TEXT NOT NULL,
	rule_hits  JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_logs (
	id          TEXT PRIMARY KEY,
	claim_id    TEXT REFERENCES claims(id) ON DELETE CASCADE,
	document_id TEXT REFERENCES documents(id) ON DELETE SET NULL,
	action      TEXT NOT NULL,
	details     TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_documents_claim_id ON documents(claim_id);
CREATE INDEX IF NOT EXISTS idx_extracted_fields_claim_id ON extracted_fields(claim_id);
CREATE INDEX IF NOT EXISTS idx_extracted_fields_document_id ON extracted_fields(document_id);
CREATE INDEX IF NOT EXISTS idx_fraud_scores_claim_id ON fraud_scores(claim_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_logs_claim_action ON audit_logs(claim_id, action, created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return storageWrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return storageWrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) FindClaimIDByNumber(ctx context.Context, claimNumber string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM claims WHERE claim_number = $1`,
		claimNumber,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageWrap(err, "postgres: find claim by number")
	}
	return id, nil
}

func (s *PostgresStore) UpsertClaim(ctx context.Context, in model.ClaimInput) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO claims (id, claim_number, policy_holder, claim_type, incident_description, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (claim_number) DO UPDATE SET
		   policy_holder = EXCLUDED.policy_holder,
		   claim_type = EXCLUDED.claim_type,
		   incident_description = EXCLUDED.incident_description
		 RETURNING id`,
		uuid.New().String(), in.ClaimNumber, in.PolicyHolder, in.ClaimType, in.IncidentDescription, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", storageWrap(err, "postgres: upsert claim")
	}
	return id, nil
}

func (s *PostgresStore) GetClaimByNumber(ctx context.Context, claimNumber string) (*model.Claim, error) {
	var c model.Claim
	err := s.pool.QueryRow(ctx,
		`SELECT id, claim_number, policy_holder, claim_type, incident_description, created_at
		 FROM claims WHERE claim_number = $1`,
		claimNumber,
	).Scan(&c.ID, &c.ClaimNumber, &c.PolicyHolder, &c.ClaimType, &c.IncidentDescription, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageWrap(err, "postgres: get claim by number")
	}
	return &c, nil
}

func (s *PostgresStore) RegisterDocument(ctx context.Context, claimID, fileName, fileType string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`INSERT INTO documents (id, claim_id, file_name, file_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (claim_id, file_name) DO UPDATE SET file_type = EXCLUDED.file_type
		 RETURNING id`,
		uuid.New().String(), claimID, fileName, fileType, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return "", storageWrap(err, "postgres: register document")
	}
	return id, nil
}

func (s *PostgresStore) SetDocumentText(ctx context.Context, documentID, text string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET content_text = $1 WHERE id = $2`,
		text, documentID,
	)
	if err != nil {
		return storageWrap(err, "postgres: set document text")
	}
	if tag.RowsAffected() == 0 {
		return storageErrf("postgres: set document text", "document not found: %s", documentID)
	}
	return nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, claimID string) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, claim_id, file_name, file_type, content_text, created_at
		 FROM documents WHERE claim_id = $1 ORDER BY file_name`,
		claimID,
	)
	if err != nil {
		return nil, storageWrap(err, "postgres: list documents")
	}
	defer rows.Close()

	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.ClaimID, &d.FileName, &d.FileType, &d.ContentText, &d.CreatedAt); err != nil {
			return nil, storageWrap(err, "postgres: scan document")
		}
		docs = append(docs, d)
	}
	return docs, storageWrap(rows.Err(), "postgres: list documents iterate")
}

func (s *PostgresStore) SampleDocumentTexts(ctx context.Context, claimID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT left(content_text, $2) FROM documents
		 WHERE claim_id = $1 AND content_text IS NOT NULL AND content_text <> ''
		 ORDER BY created_at LIMIT $3`,
		claimID, PreviewLength, limit,
	)
	if err != nil {
		return nil, storageWrap(err, "postgres: sample document texts")
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, storageWrap(err, "postgres: scan document text")
		}
		texts = append(texts, t)
	}
	return texts, storageWrap(rows.Err(), "postgres: sample document texts iterate")
}

func (s *PostgresStore) InsertExtractedField(ctx context.Context, in model.FieldInsert) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO extracted_fields (id, claim_id, document_id, field_name, field_value, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, in.ClaimID, in.DocumentID, in.FieldName, in.FieldValue, in.Confidence, time.Now().UTC(),
	)
	if err != nil {
		return "", storageWrap(err, "postgres: insert extracted field")
	}
	return id, nil
}

func (s *PostgresStore) DeleteDocumentFields(ctx context.Context, documentID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM extracted_fields WHERE document_id = $1`,
		documentID,
	)
	return storageWrap(err, "postgres: delete document fields")
}

func (s *PostgresStore) DeleteClaimLevelFields(ctx context.Context, claimID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM extracted_fields WHERE claim_id = $1 AND document_id IS NULL`,
		claimID,
	)
	return storageWrap(err, "postgres: delete claim-level fields")
}

func (s *PostgresStore) AggregateFieldsByClaim(ctx context.Context, claimID string) (model.StructuredFields, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT field_name, field_value FROM extracted_fields WHERE claim_id = $1`,
		claimID,
	)
	if err != nil {
		return nil, storageWrap(err, "postgres: aggregate fields")
	}
	defer rows.Close()

	structured := make(model.StructuredFields)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, storageWrap(err, "postgres: scan field")
		}
		structured[name] = append(structured[name], value)
	}
	return structured, storageWrap(rows.Err(), "postgres: aggregate fields iterate")
}

func (s *PostgresStore) RecordFraudScore(ctx context.Context, claimID string, score int, risk model.RiskTier, ruleHits map[string]int) error {
	hitsJSON, err := json.Marshal(ruleHits)
	if err != nil {
		return storageWrap(err, "postgres: marshal rule hits")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO fraud_scores (id, claim_id, score, risk_level, rule_hits, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), claimID, score, string(risk), hitsJSON, time.Now().UTC(),
	)
	return storageWrap(err, "postgres: record fraud score")
}

func (s *PostgresStore) LatestFraudScore(ctx context.Context, claimID string) (*model.FraudScore, error) {
	var fs model.FraudScore
	var risk string
	var hitsJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, claim_id, score, risk_level, rule_hits, created_at FROM fraud_scores
		 WHERE claim_id = $1 ORDER BY created_at DESC LIMIT 1`,
		claimID,
	).Scan(&fs.ID, &fs.ClaimID, &fs.Score, &risk, &hitsJSON, &fs.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageWrap(err, "postgres: latest fraud score")
	}
	fs.Risk = model.RiskTier(risk)
	if len(hitsJSON) > 0 {
		if err := json.Unmarshal(hitsJSON, &fs.RuleHits); err != nil {
			return nil, storageWrap(err, "postgres: unmarshal rule hits")
		}
	}
	return &fs, nil
}

func (s *PostgresStore) AppendAudit(ctx context.Context, action, details string, claimID, documentID *string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, claim_id, document_id, action, details, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New().String(), claimID, documentID, action, details, time.Now().UTC(),
	)
	return storageWrap(err, "postgres: append audit")
}

func (s *PostgresStore) LatestAuditDetail(ctx context.Context, claimID, action string) (string, error) {
	var details string
	err := s.pool.QueryRow(ctx,
		`SELECT details FROM audit_logs
		 WHERE claim_id = $1 AND action = $2
		 ORDER BY created_at DESC LIMIT 1`,
		claimID, action,
	).Scan(&details)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", storageWrap(err, "postgres: latest audit detail")
	}
	return details, nil
}
