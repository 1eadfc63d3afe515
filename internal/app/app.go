// Package app assembles the summarizer's components from a loaded config.
// Both the CLI and the HTTP server start from here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/annotate"
	"github.com/xhad/skim/pkg/config"
	"github.com/xhad/skim/pkg/events"
	"github.com/xhad/skim/pkg/llm"
	"github.com/xhad/skim/pkg/pdftext"
	"github.com/xhad/skim/pkg/processor"
	"github.com/xhad/skim/pkg/qa"
	"github.com/xhad/skim/pkg/scraper"
	"github.com/xhad/skim/pkg/store"
	"github.com/xhad/skim/pkg/summarizer"
	"go.uber.org/zap"
)

type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Completer  types.Completer
	Scraper    *scraper.Scraper
	PDF        *pdftext.Extractor
	History    types.SummaryHistory
	Events     *events.Broker[models.Progress]
	Summarizer *summarizer.Summarizer

	// QA and Store are nil unless Options.QA is set.
	QA    *qa.Engine
	Store types.VectorStore
}

type Options struct {
	// QA builds the embedder, vector store and Q&A engine.
	QA bool
	// OnPage is called for every page the crawler fetches.
	OnPage func(url string)
}

// New wires every component. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
		Events: events.NewBroker[models.Progress](),
	}

	completer, err := llm.New(ctx, cfg, logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat engine: %w", err)
	}
	a.Completer = completer

	a.Scraper, err = scraper.NewWithConfig(scraper.ScraperConfig{
		MaxDepth:          cfg.Scraper.MaxDepth,
		RateLimit:         cfg.Scraper.RateLimit,
		IgnorePatterns:    cfg.Scraper.IgnorePatterns,
		AllowedExtensions: cfg.Scraper.AllowedExtensions,
		Timeout:           cfg.Scraper.Timeout,
		UserAgent:         cfg.Scraper.UserAgent,
		MaxBytes:          cfg.Scraper.MaxBytes,
		Strategy:          cfg.Scraper.Strategy,
		Format:            cfg.Scraper.Format,
		MinArticleLength:  cfg.Summary.MinContentLength,
		OnProgress:        opts.OnPage,
		Logger:            logger.Named("scraper"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	a.PDF, err = pdftext.NewWithConfig(pdftext.ExtractorConfig{
		LicenseKey: cfg.PDF.LicenseKey,
		MaxPages:   cfg.PDF.MaxPages,
		Repair:     cfg.RepairPDF(),
		Logger:     logger.Named("pdf"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDF extractor: %w", err)
	}

	a.History, err = store.NewHistoryFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize summary history: %w", err)
	}

	style, err := models.ParseStyle(cfg.Summary.DefaultStyle)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Summarizer, err = summarizer.NewWithConfig(summarizer.SummarizerConfig{
		Completer:    completer,
		URLExtractor: a.Scraper,
		PDFExtractor: a.PDF,
		Annotator: annotate.NewWithConfig(annotate.AnnotatorConfig{
			KeywordCount: cfg.Summary.KeywordCount,
		}),
		History:          a.History,
		Events:           a.Events,
		Logger:           logger.Named("summarizer"),
		MinContentLength: cfg.Summary.MinContentLength,
		DefaultStyle:     style,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize summarizer: %w", err)
	}

	if opts.QA {
		if err := a.initQA(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) initQA(ctx context.Context) error {
	cfg := a.Config

	embedder, err := llm.NewEmbedder(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	a.Store, err = store.NewFromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}

	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       cfg.Processor.ChunkSize,
		ChunkOverlap:    cfg.Processor.ChunkOverlap,
		MinChunkLength:  cfg.Processor.MinChunkLength,
		Splitter:        cfg.Processor.Splitter,
		RemoveStopwords: cfg.Processor.RemoveStopwords,
	})

	a.QA, err = qa.NewWithConfig(qa.EngineConfig{
		Completer: a.Completer,
		Embedder:  embedder,
		Store:     a.Store,
		Splitter:  &p,
		TopK:      cfg.QA.TopK,
		Logger:    a.Logger.Named("qa"),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Q&A engine: %w", err)
	}
	return nil
}

// Close drops Q&A sessions, closes the stores and stops the event broker.
func (a *App) Close() {
	if a.QA != nil {
		a.QA.CloseAll(context.Background())
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("failed to close vector store", zap.Error(err))
		}
	}
	if a.History != nil {
		if err := a.History.Close(); err != nil {
			a.Logger.Warn("failed to close summary history", zap.Error(err))
		}
	}
	a.Events.Shutdown()
}

// LoadConfig loads and validates the config at path. An empty path searches
// the default locations.
func LoadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, v := range cfg.Validate() {
		errs = append(errs, v)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return cfg, nil
}
