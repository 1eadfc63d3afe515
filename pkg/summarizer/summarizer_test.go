package summarizer_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/unidoc"
	"github.com/xhad/skim/pkg/annotate"
	"github.com/xhad/skim/pkg/events"
	"github.com/xhad/skim/pkg/llm"
	"github.com/xhad/skim/pkg/scraper"
	"github.com/xhad/skim/pkg/store"
	"github.com/xhad/skim/pkg/summarizer"
)

type countingCompleter struct {
	prompts []string
	reply   string
	err     error
}

func (c *countingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *countingCompleter) CompleteStream(ctx context.Context, prompt string, onChunk func(string) error) (string, error) {
	c.prompts = append(c.prompts, prompt)
	if c.err != nil {
		return "", c.err
	}
	for _, word := range strings.SplitAfter(c.reply, " ") {
		if err := onChunk(word); err != nil {
			return "", err
		}
	}
	return c.reply, nil
}

func (c *countingCompleter) ModelName() string { return "counting" }

type stubPDF struct {
	doc models.Document
	err error
}

func (s stubPDF) Extract(ctx context.Context, r io.Reader, filename string) (models.Document, error) {
	return s.doc, s.err
}

type failingHistory struct{ store.MemoryHistory }

func (failingHistory) Save(context.Context, models.Summary) error { return errors.New("disk full") }

var longText = strings.Repeat("Go makes concurrent network services pleasant to build and operate. ", 4)

func articleServer(t *testing.T, paragraph string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, "<html><head><title>Gophers</title></head><body><p>%s</p></body></html>", paragraph)
	}))
	t.Cleanup(server.Close)
	return server
}

func newScraper(t *testing.T) *scraper.Scraper {
	t.Helper()
	s, err := scraper.NewWithConfig(scraper.ScraperConfig{RateLimit: 100, Strategy: scraper.StrategyParagraphs})
	require.NoError(t, err)
	return s
}

func newSummarizer(t *testing.T, config summarizer.SummarizerConfig) *summarizer.Summarizer {
	t.Helper()
	s, err := summarizer.NewWithConfig(config)
	require.NoError(t, err)
	return s
}

func TestBuildPrompt(t *testing.T) {
	tests := []struct {
		style models.Style
		kind  models.Kind
		want  string
	}{
		{models.StyleShort, models.KindURL, "Summarize the following article in a short format:\n\nbody"},
		{models.StyleDetailed, models.KindURL, "Summarize the following article in a detailed format:\n\nbody"},
		{models.StyleBullet, models.KindPDF, "Summarize the following document in a bullet format:\n\nbody"},
	}

	for _, tt := range tests {
		t.Run(string(tt.style)+"/"+string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, summarizer.BuildPrompt(tt.style, tt.kind, "body"))
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"empty", summarizer.ErrEmptyInput, "Please enter a URL."},
		{"no file", summarizer.ErrNoFile, "Please upload a PDF file."},
		{"short", fmt.Errorf("%w: %w", summarizer.ErrInsufficientContent, errors.New("404")), "Failed to extract article content. Try another URL."},
		{"completion", &summarizer.CompletionError{Err: errors.New("rate limited")}, "Error: rate limited"},
		{"unlicensed", unidoc.ErrUnlicensed, summarizer.MsgPDFUnavailable},
		{"other", errors.New("boom"), "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, summarizer.UserMessage(tt.err))
		})
	}
}

func TestNewWithConfigRequiresCompleter(t *testing.T) {
	_, err := summarizer.NewWithConfig(summarizer.SummarizerConfig{})
	assert.Error(t, err)
}

func TestSummarizeURL(t *testing.T) {
	server := articleServer(t, longText)
	history := store.NewMemoryHistory()
	engine := llm.NewWithModel(llm.ChatConfig{Model: "fake-model"}, fake.NewFakeLLM([]string{"  Go is pleasant.  "}))

	s := newSummarizer(t, summarizer.SummarizerConfig{
		Completer:    engine,
		URLExtractor: newScraper(t),
		History:      history,
	})

	summary, err := s.SummarizeURL(context.Background(), server.URL, summarizer.Options{Style: models.StyleDetailed})
	require.NoError(t, err)

	assert.Equal(t, "Go is pleasant.", summary.Text)
	assert.Equal(t, server.URL+"/", summary.Source)
	assert.Equal(t, "Gophers", summary.Title)
	assert.Equal(t, models.KindURL, summary.Kind)
	assert.Equal(t, models.StyleDetailed, summary.Style)
	assert.Equal(t, "fake-model", summary.Model)
	assert.Equal(t, len(strings.TrimSpace(longText)), summary.ContentLength)
	assert.Nil(t, summary.Annotation)
	assert.NotEmpty(t, summary.ID)

	saved, err := history.Get(context.Background(), summary.ID)
	require.NoError(t, err)
	assert.Equal(t, summary.Text, saved.Text)
}

func TestSummarizeURLSendsPromptOnce(t *testing.T) {
	server := articleServer(t, longText)
	completer := &countingCompleter{reply: "ok"}

	s := newSummarizer(t, summarizer.SummarizerConfig{Completer: completer, URLExtractor: newScraper(t)})

	_, err := s.SummarizeURL(context.Background(), server.URL, summarizer.Options{})
	require.NoError(t, err)
	require.Len(t, completer.prompts, 1)
	assert.True(t, strings.HasPrefix(completer.prompts[0], "Summarize the following article in a short format:\n\n"))
	assert.Contains(t, completer.prompts[0], "concurrent network services")
}

func TestSummarizeURLFailuresSkipModel(t *testing.T) {
	short := articleServer(t, "Too short.")
	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	tests := []struct {
		name string
		url  string
		want error
		msg  string
	}{
		{"empty", "   ", summarizer.ErrEmptyInput, "Please enter a URL."},
		{"short content", short.URL, summarizer.ErrInsufficientContent, summarizer.MsgInsufficientContent},
		{"unreachable", unreachable, summarizer.ErrInsufficientContent, summarizer.MsgInsufficientContent},
		{"bad scheme", "ftp://example.com/x", summarizer.ErrInsufficientContent, summarizer.MsgInsufficientContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &countingCompleter{reply: "never"}
			s := newSummarizer(t, summarizer.SummarizerConfig{Completer: completer, URLExtractor: newScraper(t)})

			summary, err := s.SummarizeURL(context.Background(), tt.url, summarizer.Options{})
			assert.Nil(t, summary)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.msg, summarizer.UserMessage(err))
			assert.Empty(t, completer.prompts)
		})
	}
}

func TestMinimumContentBoundary(t *testing.T) {
	tests := []struct {
		length    int
		wantCalls int
	}{
		{0, 0},
		{99, 0},
		{100, 1},
		{250, 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.length), func(t *testing.T) {
			completer := &countingCompleter{reply: "summary"}
			s := newSummarizer(t, summarizer.SummarizerConfig{Completer: completer})

			doc := models.Document{URL: "https://example.com", Content: strings.Repeat("é", tt.length)}
			_, err := s.SummarizeDocument(context.Background(), doc, models.KindURL, summarizer.Options{})
			if tt.wantCalls == 0 {
				assert.ErrorIs(t, err, summarizer.ErrInsufficientContent)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, completer.prompts, tt.wantCalls)
		})
	}
}

func TestCompletionFailure(t *testing.T) {
	completer := &countingCompleter{err: errors.New("invalid api key")}
	s := newSummarizer(t, summarizer.SummarizerConfig{Completer: completer})

	_, err := s.SummarizeDocument(context.Background(), models.Document{Content: longText}, models.KindURL, summarizer.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, summarizer.ErrCompletion)
	assert.Equal(t, "Error: invalid api key", summarizer.UserMessage(err))
	assert.Len(t, completer.prompts, 1)
}

func TestHistoryFailureIsNotFatal(t *testing.T) {
	s := newSummarizer(t, summarizer.SummarizerConfig{
		Completer: &countingCompleter{reply: "fine"},
		History:   &failingHistory{},
	})

	summary, err := s.SummarizeDocument(context.Background(), models.Document{Content: longText}, models.KindURL, summarizer.Options{})
	require.NoError(t, err)
	assert.Equal(t, "fine", summary.Text)
}

func TestAnnotation(t *testing.T) {
	s := newSummarizer(t, summarizer.SummarizerConfig{
		Completer: &countingCompleter{reply: "fine"},
		Annotator: annotate.NewWithConfig(annotate.AnnotatorConfig{KeywordCount: 3}),
	})
	doc := models.Document{Content: longText}

	summary, err := s.SummarizeDocument(context.Background(), doc, models.KindURL, summarizer.Options{Annotate: true})
	require.NoError(t, err)
	require.NotNil(t, summary.Annotation)
	assert.Len(t, summary.Annotation.Keywords, 3)
	assert.Equal(t, "positive", summary.Annotation.Sentiment.Label)

	summary, err = s.SummarizeDocument(context.Background(), doc, models.KindURL, summarizer.Options{})
	require.NoError(t, err)
	assert.Nil(t, summary.Annotation)
}

func TestStreaming(t *testing.T) {
	s := newSummarizer(t, summarizer.SummarizerConfig{Completer: &countingCompleter{reply: "one two three"}})

	var chunks []string
	summary, err := s.SummarizeDocument(context.Background(), models.Document{Content: longText}, models.KindURL,
		summarizer.Options{OnChunk: func(c string) error {
			chunks = append(chunks, c)
			return nil
		}})
	require.NoError(t, err)
	assert.Equal(t, "one two three", summary.Text)
	assert.Equal(t, []string{"one ", "two ", "three"}, chunks)
}

func TestSummarizePDF(t *testing.T) {
	completer := &countingCompleter{reply: "pdf summary"}
	s := newSummarizer(t, summarizer.SummarizerConfig{
		Completer: completer,
		PDFExtractor: stubPDF{doc: models.Document{
			Title:    "report",
			Content:  longText,
			Metadata: map[string]interface{}{"filename": "/tmp/report.pdf"},
		}},
	})

	summary, err := s.SummarizePDF(context.Background(), strings.NewReader("%PDF-"), "report.pdf", summarizer.Options{Style: models.StyleBullet})
	require.NoError(t, err)
	assert.Equal(t, models.KindPDF, summary.Kind)
	assert.Equal(t, "report.pdf", summary.Source)
	assert.True(t, strings.HasPrefix(completer.prompts[0], "Summarize the following document in a bullet format:"))

	_, err = s.SummarizePDF(context.Background(), nil, "", summarizer.Options{})
	assert.ErrorIs(t, err, summarizer.ErrNoFile)

	broken := newSummarizer(t, summarizer.SummarizerConfig{
		Completer:    completer,
		PDFExtractor: stubPDF{err: errors.New("file is not a PDF")},
	})
	_, err = broken.SummarizePDF(context.Background(), strings.NewReader("x"), "x.pdf", summarizer.Options{})
	assert.ErrorIs(t, err, summarizer.ErrInsufficientContent)
	assert.Len(t, completer.prompts, 1)

	unlicensed := newSummarizer(t, summarizer.SummarizerConfig{
		Completer:    completer,
		PDFExtractor: stubPDF{err: unidoc.ErrUnlicensed},
	})
	_, err = unlicensed.SummarizePDF(context.Background(), strings.NewReader("%PDF-"), "x.pdf", summarizer.Options{})
	require.ErrorIs(t, err, unidoc.ErrUnlicensed)
	assert.NotErrorIs(t, err, summarizer.ErrInsufficientContent)
	assert.Equal(t, summarizer.MsgPDFUnavailable, summarizer.UserMessage(err))
	assert.Len(t, completer.prompts, 1)
}

func TestProgressEvents(t *testing.T) {
	broker := events.NewBroker[models.Progress]()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := broker.Subscribe(ctx)

	s := newSummarizer(t, summarizer.SummarizerConfig{
		Completer:    &countingCompleter{reply: "fine"},
		URLExtractor: newScraper(t),
		Annotator:    annotate.NewWithConfig(annotate.AnnotatorConfig{}),
		Events:       broker,
	})

	server := articleServer(t, longText)
	reqCtx := events.WithRequestID(context.Background(), "req-1")
	_, err := s.SummarizeURL(reqCtx, server.URL, summarizer.Options{Annotate: true})
	require.NoError(t, err)

	var stages []string
	for i := 0; i < 4; i++ {
		ev := <-sub
		assert.Equal(t, "req-1", ev.Payload.RequestID)
		stages = append(stages, ev.Payload.Stage)
	}
	assert.Equal(t, []string{
		summarizer.StageExtracting,
		summarizer.StageAnnotating,
		summarizer.StageSummarizing,
		summarizer.StageDone,
	}, stages)
}
