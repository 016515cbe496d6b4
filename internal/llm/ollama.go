package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"

	"github.com/sells-group/claims-idp/internal/resilience"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.1:8b"
)

// OllamaGenerator produces summaries from a local Ollama server through its
// OpenAI-compatible endpoint.
type OllamaGenerator struct {
	client *openai.Client
	model  string
}

// NewOllama creates an OllamaGenerator. Empty baseURL and model fall back to
// the local defaults.
func NewOllama(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	return &OllamaGenerator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (g *OllamaGenerator) Name() string { return "ollama" }

func (g *OllamaGenerator) GenerateSummary(ctx context.Context, sc SummaryContext) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(sc)},
		},
	})
	if err != nil {
		wrapped := eris.Wrap(err, "llm: ollama chat completion")
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode) {
			return "", resilience.NewTransientError(wrapped, apiErr.HTTPStatusCode)
		}
		return "", wrapped
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: ollama returned no choices")
	}

	summary := strings.TrimSpace(resp.Choices[0].Message.Content)
	if summary == "" {
		return "", eris.New("llm: ollama returned empty summary")
	}
	return summary, nil
}
