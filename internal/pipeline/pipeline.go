// Package pipeline orchestrates claim processing end to end: registration,
// text extraction, field extraction, fraud scoring, and summarization.
package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/claims-idp/internal/config"
	"github.com/sells-group/claims-idp/internal/extract"
	"github.com/sells-group/claims-idp/internal/fraud"
	"github.com/sells-group/claims-idp/internal/ingest"
	"github.com/sells-group/claims-idp/internal/llm"
	"github.com/sells-group/claims-idp/internal/model"
	"github.com/sells-group/claims-idp/internal/ocr"
	"github.com/sells-group/claims-idp/internal/store"
)

// Summarizer produces a narrative summary plus the name of the provider that
// produced it. llm.Chain is the production implementation.
type Summarizer interface {
	Summarize(ctx context.Context, sc llm.SummaryContext) (string, string)
}

// ProcessInput is one claim submission.
type ProcessInput struct {
	ClaimNumber         string
	PolicyHolder        string
	ClaimType           string
	PolicyNumber        string
	IncidentDescription string
	DocumentsFolder     string
}

// Result is the outcome of one pipeline run.
type Result struct {
	ClaimID            string                 `json:"claim_id"`
	ClaimNumber        string                 `json:"claim_number"`
	DocumentsProcessed int                    `json:"documents_processed"`
	FieldsExtracted    int                    `json:"fields_extracted"`
	FraudScore         int                    `json:"fraud_score"`
	RiskLevel          model.RiskTier         `json:"risk_level"`
	RuleHits           map[string]int         `json:"rule_hits"`
	Summary            string                 `json:"summary"`
	SummaryProvider    string                 `json:"summary_provider"`
	Fields             model.StructuredFields `json:"fields"`
}

// Processor runs the claim pipeline against a store.
type Processor struct {
	store       store.Store
	extractor   ocr.Extractor
	summarizer  Summarizer
	registrar   *ingest.Registrar
	coordinator *extract.Coordinator
	cfg         config.PipelineConfig
}

// New wires a Processor. All three components are required.
func New(st store.Store, extractor ocr.Extractor, summarizer Summarizer, cfg config.PipelineConfig) (*Processor, error) {
	if st == nil {
		return nil, &ConfigurationError{Setting: "store", Reason: "required"}
	}
	if extractor == nil {
		return nil, &ConfigurationError{Setting: "extractor", Reason: "required"}
	}
	if summarizer == nil {
		return nil, &ConfigurationError{Setting: "summarizer", Reason: "required"}
	}
	if cfg.MaxConcurrentExtractions <= 0 {
		cfg.MaxConcurrentExtractions = 4
	}
	if cfg.ExtractionTimeoutSecs <= 0 {
		cfg.ExtractionTimeoutSecs = 120
	}
	if cfg.SnippetLimit <= 0 {
		cfg.SnippetLimit = 3
	}
	return &Processor{
		store:       st,
		extractor:   extractor,
		summarizer:  summarizer,
		registrar:   ingest.NewRegistrar(st),
		coordinator: extract.NewCoordinator(st),
		cfg:         cfg,
	}, nil
}

func validate(in ProcessInput) error {
	if strings.TrimSpace(in.ClaimNumber) == "" {
		return &ValidationError{Field: "claim_number", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.PolicyHolder) == "" {
		return &ValidationError{Field: "policy_holder", Reason: "must not be empty"}
	}
	if strings.TrimSpace(in.ClaimType) == "" {
		return &ValidationError{Field: "claim_type", Reason: "must not be empty"}
	}
	return nil
}

// ProcessClaim runs the full pipeline for one claim. Reprocessing the same
// claim number updates the claim in place and replaces extracted fields
// rather than accumulating duplicates.
func (p *Processor) ProcessClaim(ctx context.Context, in ProcessInput) (*Result, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("claim_number", in.ClaimNumber))
	start := time.Now()

	claimInput := model.ClaimInput{
		ClaimNumber:  in.ClaimNumber,
		PolicyHolder: in.PolicyHolder,
		ClaimType:    in.ClaimType,
	}
	if desc := strings.TrimSpace(in.IncidentDescription); desc != "" {
		claimInput.IncidentDescription = &desc
	}

	claimID, err := p.store.UpsertClaim(ctx, claimInput)
	if err != nil {
		return nil, err
	}

	files, err := ingest.Discover(in.DocumentsFolder)
	if err != nil {
		return nil, err
	}
	if in.DocumentsFolder != "" && len(files) == 0 {
		log.Info("no documents found", zap.String("folder", in.DocumentsFolder))
	}

	docs, err := p.registrar.RegisterAll(ctx, claimID, files)
	if err != nil {
		return nil, err
	}

	texts := p.extractTexts(ctx, docs)

	fieldsExtracted := 0
	for i, doc := range docs {
		if texts[i] == "" {
			continue
		}
		if err := p.store.SetDocumentText(ctx, doc.DocumentID, texts[i]); err != nil {
			return nil, err
		}
		n, err := p.coordinator.ExtractAndPersist(ctx, claimID, doc.DocumentID, texts[i])
		if err != nil {
			return nil, err
		}
		fieldsExtracted += n
	}

	structured, err := p.injectKnownFields(ctx, claimID, in)
	if err != nil {
		return nil, err
	}

	score, risk, hits := fraud.Score(structured)
	if err := fraud.Persist(ctx, p.store, claimID, score, risk, hits); err != nil {
		return nil, err
	}

	snippets, err := p.store.SampleDocumentTexts(ctx, claimID, p.cfg.SnippetLimit)
	if err != nil {
		return nil, err
	}

	sc := llm.SummaryContext{
		ClaimNumber:         in.ClaimNumber,
		PolicyHolder:        in.PolicyHolder,
		ClaimType:           in.ClaimType,
		IncidentDescription: strings.TrimSpace(in.IncidentDescription),
		Fields:              structured,
		Snippets:            snippets,
		Fraud:               &llm.FraudContext{Score: score, Risk: risk, RuleHits: hits},
	}
	summary, provider := p.summarizer.Summarize(ctx, sc)

	if err := p.store.AppendAudit(ctx, model.AuditSummaryGenerated, summary, &claimID, nil); err != nil {
		return nil, err
	}

	log.Info("claim processed",
		zap.String("claim_id", claimID),
		zap.Int("documents", len(docs)),
		zap.Int("fields", fieldsExtracted),
		zap.Int("fraud_score", score),
		zap.String("risk", string(risk)),
		zap.String("summary_provider", provider),
		zap.Duration("elapsed", time.Since(start)),
	)

	return &Result{
		ClaimID:            claimID,
		ClaimNumber:        in.ClaimNumber,
		DocumentsProcessed: len(docs),
		FieldsExtracted:    fieldsExtracted,
		FraudScore:         score,
		RiskLevel:          risk,
		RuleHits:           hits,
		Summary:            summary,
		SummaryProvider:    provider,
		Fields:             structured,
	}, nil
}

// extractTexts runs OCR over the documents with bounded concurrency. A
// failed extraction degrades to empty text so one unreadable scan does not
// sink the claim.
func (p *Processor) extractTexts(ctx context.Context, docs []ingest.RegisteredDoc) []string {
	texts := make([]string, len(docs))
	timeout := time.Duration(p.cfg.ExtractionTimeoutSecs) * time.Second

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.MaxConcurrentExtractions)

	for i, doc := range docs {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gCtx, timeout)
			defer cancel()

			text, err := p.extractor.ExtractText(callCtx, doc.File.Path)
			if err != nil {
				zap.L().Warn("text extraction failed, continuing without text",
					zap.String("document_id", doc.DocumentID),
					zap.String("file", doc.File.Name),
					zap.Error(err),
				)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	_ = g.Wait()

	return texts
}

// injectKnownFields records identifiers supplied with the submission as
// claim-level fields with no source document. The claim number and policy
// holder backfill only when extraction found nothing; a supplied policy
// number is always added alongside any extracted values so that scoring
// sees it. Claim-level fields are replaced on every run.
func (p *Processor) injectKnownFields(ctx context.Context, claimID string, in ProcessInput) (model.StructuredFields, error) {
	if err := p.store.DeleteClaimLevelFields(ctx, claimID); err != nil {
		return nil, err
	}

	structured, err := p.store.AggregateFieldsByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	known := []struct {
		field  string
		value  string
		always bool
	}{
		{field: model.FieldClaimNumber, value: in.ClaimNumber},
		{field: model.FieldPolicyHolder, value: in.PolicyHolder},
		{field: model.FieldPolicyNumber, value: in.PolicyNumber, always: true},
	}
	for _, k := range known {
		if k.value == "" || (!k.always && len(structured[k.field]) > 0) {
			continue
		}
		conf := 1.0
		_, err := p.store.InsertExtractedField(ctx, model.FieldInsert{
			ClaimID:    claimID,
			FieldName:  k.field,
			FieldValue: k.value,
			Confidence: &conf,
		})
		if err != nil {
			return nil, err
		}
		structured[k.field] = append(structured[k.field], k.value)
	}

	return structured, nil
}

// LatestSummary returns the most recent summary recorded for a claim number.
// Empty string means the claim exists but has no summary yet.
func (p *Processor) LatestSummary(ctx context.Context, claimNumber string) (string, error) {
	claimID, err := p.store.FindClaimIDByNumber(ctx, claimNumber)
	if err != nil {
		return "", err
	}
	if claimID == "" {
		return "", ErrClaimNotFound
	}
	return p.store.LatestAuditDetail(ctx, claimID, model.AuditSummaryGenerated)
}

// LatestFraudScore returns the most recent fraud assessment for a claim
// number. A nil score means the claim exists but was never scored.
func (p *Processor) LatestFraudScore(ctx context.Context, claimNumber string) (*model.FraudScore, error) {
	claimID, err := p.store.FindClaimIDByNumber(ctx, claimNumber)
	if err != nil {
		return nil, err
	}
	if claimID == "" {
		return nil, ErrClaimNotFound
	}
	return p.store.LatestFraudScore(ctx, claimID)
}

// GetClaim returns a claim with its documents.
func (p *Processor) GetClaim(ctx context.Context, claimNumber string) (*model.Claim, []model.Document, error) {
	claim, err := p.store.GetClaimByNumber(ctx, claimNumber)
	if err != nil {
		return nil, nil, err
	}
	if claim == nil {
		return nil, nil, ErrClaimNotFound
	}
	docs, err := p.store.ListDocuments(ctx, claim.ID)
	if err != nil {
		return nil, nil, err
	}
	return claim, docs, nil
}
