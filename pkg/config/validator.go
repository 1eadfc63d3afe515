package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/xhad/skim/internal/models"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func validURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// LLM
	if !oneOf(c.LLM.Provider, "openai", "ollama", "gemini") {
		errors = append(errors, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider),
		})
	}

	if c.LLM.Provider == "ollama" && c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.LLM.BaseURL != "" && !validURL(c.LLM.BaseURL) {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 8192 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 8192",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	if !oneOf(c.Embedding.Provider, "openai", "ollama", "gemini") {
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider),
		})
	}

	// Scraper
	if c.Scraper.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "scraper.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.Scraper.MaxBytes < 1 {
		errors = append(errors, ValidationError{
			Field:   "scraper.max_bytes",
			Message: "max_bytes must be positive",
		})
	}

	if !oneOf(c.Scraper.Strategy, "readability", "paragraphs") {
		errors = append(errors, ValidationError{
			Field:   "scraper.strategy",
			Message: "strategy must be readability or paragraphs",
		})
	}

	if !oneOf(c.Scraper.Format, "text", "markdown") {
		errors = append(errors, ValidationError{
			Field:   "scraper.format",
			Message: "format must be text or markdown",
		})
	}

	for _, ext := range c.Scraper.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") && ext != "" && ext != "/" {
			errors = append(errors, ValidationError{
				Field:   "scraper.allowed_extensions",
				Message: fmt.Sprintf("invalid extension format: %s", ext),
			})
		}
	}

	// Processor
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if !oneOf(c.Processor.Splitter, "recursive", "sentence") {
		errors = append(errors, ValidationError{
			Field:   "processor.splitter",
			Message: "splitter must be recursive or sentence",
		})
	}

	// Summary
	if _, err := models.ParseStyle(c.Summary.DefaultStyle); err != nil {
		errors = append(errors, ValidationError{
			Field:   "summary.default_style",
			Message: err.Error(),
		})
	}

	if c.Summary.MinContentLength < 1 {
		errors = append(errors, ValidationError{
			Field:   "summary.min_content_length",
			Message: "min_content_length must be positive",
		})
	}

	// Q&A and stores
	if c.QA.TopK < 1 {
		errors = append(errors, ValidationError{
			Field:   "qa.top_k",
			Message: "top_k must be positive",
		})
	}

	if !oneOf(c.QA.Store, "memory", "pgvector", "redis", "chroma") {
		errors = append(errors, ValidationError{
			Field:   "qa.store",
			Message: fmt.Sprintf("unknown store %q", c.QA.Store),
		})
	}

	if c.QA.Store == "pgvector" && c.Database.URL == "" {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "database URL is required for the pgvector store",
		})
	}

	if c.Database.URL != "" && !validURL(c.Database.URL) {
		errors = append(errors, ValidationError{
			Field:   "database.url",
			Message: "invalid database URL",
		})
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Chroma.URL != "" && !validURL(c.Chroma.URL) {
		errors = append(errors, ValidationError{
			Field:   "chroma.url",
			Message: "invalid chroma URL",
		})
	}

	// PDF and server
	if c.PDF.MaxPages < 1 {
		errors = append(errors, ValidationError{
			Field:   "pdf.max_pages",
			Message: "max_pages must be positive",
		})
	}

	if c.PDF.MaxUploadMB < 1 {
		errors = append(errors, ValidationError{
			Field:   "pdf.max_upload_mb",
			Message: "max_upload_mb must be positive",
		})
	}

	if !oneOf(c.Log.Format, "console", "json") {
		errors = append(errors, ValidationError{
			Field:   "log.format",
			Message: "format must be console or json",
		})
	}

	return errors
}
