package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/skim/internal/logging"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiEngine talks to the Gemini API directly through the genai SDK.
type GeminiEngine struct {
	config ChatConfig
	client *genai.Client
	logger *zap.Logger
}

func newGeminiClient(ctx context.Context, config ChatConfig) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: config.HTTPClient,
	}
	if config.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client, nil
}

func NewGeminiWithConfig(ctx context.Context, config ChatConfig) (*GeminiEngine, error) {
	config.Provider = ProviderGemini
	if err := applyChatDefaults(&config); err != nil {
		return nil, err
	}

	client, err := newGeminiClient(ctx, config)
	if err != nil {
		return nil, err
	}

	return &GeminiEngine{
		config: config,
		client: client,
		logger: logging.OrNop(config.Logger),
	}, nil
}

func (g *GeminiEngine) ModelName() string {
	return g.config.Model
}

func (g *GeminiEngine) generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.config.Temperature)),
		MaxOutputTokens: int32(g.config.MaxTokens),
	}
}

func (g *GeminiEngine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.Timeout > 0 {
		return context.WithTimeout(ctx, g.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func (g *GeminiEngine) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), g.generateConfig())
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	g.logger.Debug("completion finished",
		zap.String("model", g.config.Model),
		zap.Duration("elapsed", time.Since(start)))

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiEngine) CompleteStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var sb strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.config.Model, genai.Text(prompt), g.generateConfig()) {
		if err != nil {
			return "", fmt.Errorf("completion failed: %w", err)
		}
		chunk := resp.Text()
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return "", err
		}
	}

	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
