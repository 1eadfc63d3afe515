package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"
)

type EmbedderConfig struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string // OpenAI-compatible endpoint or Ollama server URL
	BatchSize  int
	HTTPClient *http.Client
}

// Embedder turns chunks and questions into vectors.
type Embedder struct {
	Config EmbedderConfig
	impl   *embeddings.EmbedderImpl
}

func NewEmbedderWithConfig(ctx context.Context, config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch config.Provider {
	case ProviderOpenAI:
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithEmbeddingModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		if config.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(config.HTTPClient))
		}
		client, err = openai.New(opts...)
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "nomic-embed-text"
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		opts := []ollama.Option{
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		}
		if config.HTTPClient != nil {
			opts = append(opts, ollama.WithHTTPClient(config.HTTPClient))
		}
		client, err = ollama.New(opts...)
	case ProviderGemini:
		if config.Model == "" {
			config.Model = "text-embedding-004"
		}
		var gc *genai.Client
		gc, err = newGeminiClient(ctx, ChatConfig{
			APIKey:     config.APIKey,
			BaseURL:    config.BaseURL,
			HTTPClient: config.HTTPClient,
		})
		if err == nil {
			client = geminiEmbedFunc(gc, config.Model)
		}
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(config.BatchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{Config: config, impl: impl}, nil
}

func geminiEmbedFunc(client *genai.Client, model string) embeddings.EmbedderClientFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		contents := make([]*genai.Content, 0, len(texts))
		for _, text := range texts {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := client.Models.EmbedContent(ctx, model, contents, nil)
		if err != nil {
			return nil, err
		}

		vectors := make([][]float32, 0, len(resp.Embeddings))
		for _, e := range resp.Embeddings {
			vectors = append(vectors, e.Values)
		}
		return vectors, nil
	}
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return vector, nil
}
