package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/xhad/skim/internal/logging"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string // OpenAI-compatible endpoint or Ollama server URL
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// ChatEngine sends prompts to an OpenAI or Ollama model through langchaingo.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
	logger *zap.Logger
}

func applyChatDefaults(config *ChatConfig) error {
	if config.Provider == "" {
		config.Provider = ProviderOpenAI
	}
	if config.Model == "" {
		switch config.Provider {
		case ProviderOllama:
			config.Model = "mistral"
		case ProviderGemini:
			config.Model = "gemini-2.0-flash"
		default:
			config.Model = "gpt-3.5-turbo"
		}
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 800
	}
	if config.Provider == ProviderOllama && config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	return nil
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if err := applyChatDefaults(&config); err != nil {
		return nil, err
	}

	var (
		model llms.Model
		err   error
	)
	switch config.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(config.APIKey),
			openai.WithModel(config.Model),
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		if config.HTTPClient != nil {
			opts = append(opts, openai.WithHTTPClient(config.HTTPClient))
		}
		model, err = openai.New(opts...)
	case ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(config.Model),
			ollama.WithServerURL(config.BaseURL),
		}
		if config.HTTPClient != nil {
			opts = append(opts, ollama.WithHTTPClient(config.HTTPClient))
		}
		model, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported chat provider %q", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(config, model), nil
}

// NewWithModel wraps an already constructed langchaingo model.
func NewWithModel(config ChatConfig, model llms.Model) *ChatEngine {
	_ = applyChatDefaults(&config)
	return &ChatEngine{
		config: config,
		llm:    model,
		logger: logging.OrNop(config.Logger),
	}
}

func (ce *ChatEngine) ModelName() string {
	return ce.config.Model
}

func (ce *ChatEngine) callOptions() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens),
	}
}

func (ce *ChatEngine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ce.config.Timeout > 0 {
		return context.WithTimeout(ctx, ce.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// Complete sends prompt as a single user message and returns the reply.
func (ce *ChatEngine) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := ce.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, ce.llm, prompt, ce.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	ce.logger.Debug("completion finished",
		zap.String("model", ce.config.Model),
		zap.Int("promptLength", len(prompt)),
		zap.Duration("elapsed", time.Since(start)))

	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// CompleteStream is Complete with incremental delivery. Backends that do not
// stream get the full reply passed to onChunk once.
func (ce *ChatEngine) CompleteStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	ctx, cancel := ce.withTimeout(ctx)
	defer cancel()

	streamed := false
	opts := append(ce.callOptions(), llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		streamed = true
		return onChunk(string(chunk))
	}))

	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return "", ErrEmptyResponse
	}

	text := resp.Choices[0].Content
	if !streamed {
		if err := onChunk(text); err != nil {
			return "", err
		}
	}
	return text, nil
}
