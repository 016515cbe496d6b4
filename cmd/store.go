package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/llm"
	"github.com/sells-group/claims-idp/internal/ocr"
	"github.com/sells-group/claims-idp/internal/pipeline"
	"github.com/sells-group/claims-idp/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "claims.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// newSummarizer builds the provider chain from config. With llm.disabled the
// chain is empty and every summary comes from the deterministic template.
func newSummarizer() pipeline.Summarizer {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second

	if cfg.LLM.Disabled {
		zap.L().Info("llm summarization disabled, using template summaries")
		return llm.NewChain(timeout)
	}

	var generators []llm.Generator
	for _, provider := range cfg.LLM.Providers {
		switch provider {
		case "anthropic":
			if cfg.LLM.AnthropicKey == "" {
				zap.L().Warn("anthropic provider configured without api key, skipping")
				continue
			}
			generators = append(generators, llm.NewAnthropic(cfg.LLM.AnthropicKey, cfg.LLM.AnthropicModel, cfg.LLM.MaxTokens))
		case "ollama":
			generators = append(generators, llm.NewOllama(cfg.LLM.OllamaBaseURL, cfg.LLM.OllamaModel))
		default:
			zap.L().Warn("unknown llm provider, skipping", zap.String("provider", provider))
		}
	}
	return llm.NewChain(timeout, generators...)
}

// newProcessor wires a fully configured pipeline over a migrated store. The
// caller owns closing the returned store.
func newProcessor(ctx context.Context) (*pipeline.Processor, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	proc, err := pipeline.New(st, extractor, newSummarizer(), cfg.Pipeline)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return proc, st, nil
}
