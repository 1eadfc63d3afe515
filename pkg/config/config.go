package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	BatchSize int    `yaml:"batch_size"`
}

type ScraperConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	UserAgent         string        `yaml:"user_agent"`
	MaxBytes          int64         `yaml:"max_bytes"`
	RateLimit         float64       `yaml:"rate_limit"`
	Strategy          string        `yaml:"strategy"`
	Format            string        `yaml:"format"`
	MaxDepth          int           `yaml:"max_depth"`
	IgnorePatterns    []string      `yaml:"ignore_patterns"`
	AllowedExtensions []string      `yaml:"allowed_extensions"`
}

type PDFConfig struct {
	LicenseKey  string `yaml:"license_key"`
	MaxPages    int    `yaml:"max_pages"`
	Repair      *bool  `yaml:"repair"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

type ProcessorConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	ChunkOverlap    int    `yaml:"chunk_overlap"`
	MinChunkLength  int    `yaml:"min_chunk_length"`
	Splitter        string `yaml:"splitter"`
	RemoveStopwords bool   `yaml:"remove_stopwords"`
}

type SummaryConfig struct {
	DefaultStyle     string `yaml:"default_style"`
	MinContentLength int    `yaml:"min_content_length"`
	Annotate         bool   `yaml:"annotate"`
	KeywordCount     int    `yaml:"keyword_count"`
}

type QAConfig struct {
	TopK  int    `yaml:"top_k"`
	Store string `yaml:"store"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	TableName    string `yaml:"table_name"`
	HistoryTable string `yaml:"history_table"`
	VectorDim    int    `yaml:"vector_dim"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	IndexName string `yaml:"index_name"`
}

type ChromaConfig struct {
	URL              string `yaml:"url"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	PDF       PDFConfig       `yaml:"pdf"`
	Processor ProcessorConfig `yaml:"processor"`
	Summary   SummaryConfig   `yaml:"summary"`
	QA        QAConfig        `yaml:"qa"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Chroma    ChromaConfig    `yaml:"chroma"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

// RepairPDF reports whether uploads are passed through pdfcpu before extraction.
func (c *Config) RepairPDF() bool {
	return c.PDF.Repair == nil || *c.PDF.Repair
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/skim/config.yaml"),
			"/etc/skim/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "openai"
	}
	if config.LLM.Model == "" {
		switch config.LLM.Provider {
		case "ollama":
			config.LLM.Model = "mistral"
		case "gemini":
			config.LLM.Model = "gemini-2.0-flash"
		default:
			config.LLM.Model = "gpt-3.5-turbo"
		}
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 800
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Timeout == 0 {
		config.LLM.Timeout = 60 * time.Second
	}

	if config.Embedding.Provider == "" {
		config.Embedding.Provider = config.LLM.Provider
	}
	if config.Embedding.Model == "" {
		switch config.Embedding.Provider {
		case "ollama":
			config.Embedding.Model = "nomic-embed-text"
		case "gemini":
			config.Embedding.Model = "text-embedding-004"
		default:
			config.Embedding.Model = "text-embedding-3-small"
		}
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == config.LLM.Provider {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 64
	}

	if config.Scraper.Timeout == 0 {
		config.Scraper.Timeout = 30 * time.Second
	}
	if config.Scraper.UserAgent == "" {
		config.Scraper.UserAgent = "Mozilla/5.0 (compatible; skim/1.0)"
	}
	if config.Scraper.MaxBytes == 0 {
		config.Scraper.MaxBytes = 5 * 1024 * 1024
	}
	if config.Scraper.RateLimit == 0 {
		config.Scraper.RateLimit = 2.0
	}
	if config.Scraper.Strategy == "" {
		config.Scraper.Strategy = "readability"
	}
	if config.Scraper.Format == "" {
		config.Scraper.Format = "text"
	}
	if config.Scraper.MaxDepth == 0 {
		config.Scraper.MaxDepth = 1
	}
	if len(config.Scraper.AllowedExtensions) == 0 {
		config.Scraper.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}

	if config.PDF.MaxPages == 0 {
		config.PDF.MaxPages = 500
	}
	if config.PDF.MaxUploadMB == 0 {
		config.PDF.MaxUploadMB = 10
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}
	if config.Processor.MinChunkLength == 0 {
		config.Processor.MinChunkLength = 20
	}
	if config.Processor.Splitter == "" {
		config.Processor.Splitter = "recursive"
	}

	if config.Summary.DefaultStyle == "" {
		config.Summary.DefaultStyle = "Short"
	}
	if config.Summary.MinContentLength == 0 {
		config.Summary.MinContentLength = 100
	}
	if config.Summary.KeywordCount == 0 {
		config.Summary.KeywordCount = 10
	}

	if config.QA.TopK == 0 {
		config.QA.TopK = 4
	}
	if config.QA.Store == "" {
		config.QA.Store = "memory"
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "chunks"
	}
	if config.Database.HistoryTable == "" {
		config.Database.HistoryTable = "summaries"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 1536
	}

	if config.Redis.Addr == "" {
		config.Redis.Addr = "localhost:6379"
	}
	if config.Redis.IndexName == "" {
		config.Redis.IndexName = "skim-chunks"
	}

	if config.Chroma.CollectionPrefix == "" {
		config.Chroma.CollectionPrefix = "skim-"
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":8080"
	}
	if len(config.Server.CORSOrigins) == 0 {
		config.Server.CORSOrigins = []string{"*"}
	}
	if config.Server.ReadTimeout == 0 {
		config.Server.ReadTimeout = 30 * time.Second
	}
	if config.Server.ShutdownTimeout == 0 {
		config.Server.ShutdownTimeout = 10 * time.Second
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("LLM_MODEL"); model != "" {
		config.LLM.Model = model
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}

	switch config.LLM.Provider {
	case "gemini":
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			config.LLM.APIKey = key
		}
	case "ollama":
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			config.LLM.APIKey = key
		}
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		config.Redis.Addr = addr
	}
	if chromaURL := os.Getenv("CHROMA_URL"); chromaURL != "" {
		config.Chroma.URL = chromaURL
	}
	if key := os.Getenv("UNIDOC_LICENSE_KEY"); key != "" {
		config.PDF.LicenseKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			config.Server.Addr = ":" + port
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}
