// Package summarizer runs the extract, annotate, prompt and complete
// pipeline for web pages and PDF uploads.
package summarizer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/annotate"
	"github.com/xhad/skim/pkg/events"
	"go.uber.org/zap"
)

const (
	StageExtracting  = "extracting"
	StageAnnotating  = "annotating"
	StageSummarizing = "summarizing"
	StageDone        = "done"
	StageError       = "error"
)

type SummarizerConfig struct {
	Completer    types.Completer
	URLExtractor types.URLExtractor
	PDFExtractor types.PDFExtractor
	// Annotator is used for requests that ask for annotation; nil disables it.
	Annotator *annotate.Annotator
	History   types.SummaryHistory
	Events    *events.Broker[models.Progress]
	Logger    *zap.Logger

	MinContentLength int
	DefaultStyle     models.Style
}

// Options tune a single request.
type Options struct {
	Style    models.Style
	Annotate bool
	// OnChunk, when set, receives the summary as it streams in.
	OnChunk func(chunk string) error
}

type Summarizer struct {
	config SummarizerConfig
	logger *zap.Logger
}

func NewWithConfig(config SummarizerConfig) (*Summarizer, error) {
	if config.Completer == nil {
		return nil, fmt.Errorf("a completer is required")
	}
	if config.MinContentLength == 0 {
		config.MinContentLength = 100
	}
	if config.DefaultStyle == "" {
		config.DefaultStyle = models.StyleShort
	}

	return &Summarizer{
		config: config,
		logger: logging.OrNop(config.Logger),
	}, nil
}

func (s *Summarizer) publish(ctx context.Context, stage, message string) {
	s.config.Events.Publish(models.Progress{
		RequestID: events.RequestID(ctx),
		Stage:     stage,
		Message:   message,
	})
}

func (s *Summarizer) fail(ctx context.Context, err error) error {
	s.publish(ctx, StageError, UserMessage(err))
	return err
}

// SummarizeURL fetches rawURL and summarizes its article text. Any
// extraction failure is reported as ErrInsufficientContent.
func (s *Summarizer) SummarizeURL(ctx context.Context, rawURL string, opts Options) (*models.Summary, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, s.fail(ctx, ErrEmptyInput)
	}
	if s.config.URLExtractor == nil {
		return nil, s.fail(ctx, fmt.Errorf("no URL extractor configured"))
	}

	s.publish(ctx, StageExtracting, rawURL)
	doc, err := s.config.URLExtractor.Extract(ctx, rawURL)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("url", rawURL), zap.Error(err))
		return nil, s.fail(ctx, ExtractionError(err))
	}
	if doc.URL == "" {
		doc.URL = rawURL
	}

	return s.summarize(ctx, doc, models.KindURL, opts, start)
}

// SummarizePDF extracts the text of an uploaded PDF and summarizes it.
func (s *Summarizer) SummarizePDF(ctx context.Context, r io.Reader, filename string, opts Options) (*models.Summary, error) {
	start := time.Now()
	if r == nil {
		return nil, s.fail(ctx, ErrNoFile)
	}
	if s.config.PDFExtractor == nil {
		return nil, s.fail(ctx, fmt.Errorf("no PDF extractor configured"))
	}

	s.publish(ctx, StageExtracting, filename)
	doc, err := s.config.PDFExtractor.Extract(ctx, r, filename)
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("file", filename), zap.Error(err))
		return nil, s.fail(ctx, ExtractionError(err))
	}

	return s.summarize(ctx, doc, models.KindPDF, opts, start)
}

// SummarizeDocument summarizes text that was extracted elsewhere.
func (s *Summarizer) SummarizeDocument(ctx context.Context, doc models.Document, kind models.Kind, opts Options) (*models.Summary, error) {
	return s.summarize(ctx, doc, kind, opts, time.Now())
}

func (s *Summarizer) summarize(ctx context.Context, doc models.Document, kind models.Kind, opts Options, start time.Time) (*models.Summary, error) {
	content := strings.TrimSpace(doc.Content)
	length := utf8.RuneCountInString(content)
	if length < s.config.MinContentLength {
		s.logger.Info("content too short to summarize",
			zap.String("source", doc.Source()),
			zap.Int("length", length),
			zap.Int("minimum", s.config.MinContentLength))
		return nil, s.fail(ctx, ErrInsufficientContent)
	}

	style := opts.Style
	if style == "" {
		style = s.config.DefaultStyle
	}

	var annotation *models.Annotation
	if opts.Annotate && s.config.Annotator != nil {
		s.publish(ctx, StageAnnotating, "")
		a := s.config.Annotator.Annotate(content)
		annotation = &a
	}

	s.publish(ctx, StageSummarizing, s.config.Completer.ModelName())
	prompt := BuildPrompt(style, kind, content)

	var (
		text string
		err  error
	)
	if opts.OnChunk != nil {
		text, err = s.config.Completer.CompleteStream(ctx, prompt, opts.OnChunk)
	} else {
		text, err = s.config.Completer.Complete(ctx, prompt)
	}
	if err != nil {
		s.logger.Error("completion failed", zap.String("source", doc.Source()), zap.Error(err))
		return nil, s.fail(ctx, &CompletionError{Err: err})
	}

	summary := &models.Summary{
		ID:            uuid.NewString(),
		Source:        doc.Source(),
		Kind:          kind,
		Title:         doc.Title,
		Style:         style,
		Text:          strings.TrimSpace(text),
		Model:         s.config.Completer.ModelName(),
		Annotation:    annotation,
		ContentLength: length,
		DurationMS:    time.Since(start).Milliseconds(),
		CreatedAt:     time.Now().UTC(),
	}

	if s.config.History != nil {
		if err := s.config.History.Save(ctx, *summary); err != nil {
			s.logger.Warn("failed to record summary", zap.String("id", summary.ID), zap.Error(err))
		}
	}

	s.publish(ctx, StageDone, summary.ID)
	return summary, nil
}
