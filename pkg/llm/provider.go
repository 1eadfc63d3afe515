package llm

import (
	"context"

	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/config"
	"go.uber.org/zap"
)

// New builds the completer selected by cfg.LLM.Provider.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (types.Completer, error) {
	chat := ChatConfig{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		Logger:      logger,
	}

	if chat.Provider == ProviderGemini {
		engine, err := NewGeminiWithConfig(ctx, chat)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}

	engine, err := NewWithConfig(chat)
	if err != nil {
		return nil, err
	}
	return engine, nil
}

// NewEmbedder builds the embedder selected by cfg.Embedding.Provider. The
// API key follows the completion provider when both use the same service.
func NewEmbedder(ctx context.Context, cfg *config.Config) (types.Embedder, error) {
	ec := EmbedderConfig{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		BaseURL:   cfg.Embedding.BaseURL,
		BatchSize: cfg.Embedding.BatchSize,
	}
	if ec.Provider == "" {
		ec.Provider = cfg.LLM.Provider
	}
	if ec.Provider == cfg.LLM.Provider {
		ec.APIKey = cfg.LLM.APIKey
		if ec.BaseURL == "" {
			ec.BaseURL = cfg.LLM.BaseURL
		}
	}

	embedder, err := NewEmbedderWithConfig(ctx, ec)
	if err != nil {
		return nil, err
	}
	return embedder, nil
}
