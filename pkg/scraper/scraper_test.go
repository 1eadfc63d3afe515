package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
	<head><title>Test Page</title><script>var tracking = "do not include";</script></head>
	<body>
		<nav><a href="/">Home</a> | <a href="/about.html">About</a></nav>
		<header><p>Site banner paragraph</p></header>
		<main>
			<article>
				<h1>Gophers Ship Faster</h1>
				<p>Go teams report that small static binaries make deployments boring, which is exactly what operators want from a release pipeline.</p>
				<p>The standard library covers HTTP, JSON and cryptography, so most services start with <b>very few</b> third-party dependencies.</p>
				<p>Concurrency with goroutines and channels keeps request handling straightforward even under heavy load from many clients.</p>
				<a href="/page2.html">Next page</a>
			</article>
		</main>
		<footer><p>Cookie Policy and other footer text</p></footer>
	</body>
</html>`

func newTestScraper(t *testing.T, config ScraperConfig) *Scraper {
	t.Helper()
	if config.RateLimit == 0 {
		config.RateLimit = 100
	}
	s, err := NewWithConfig(config)
	require.NoError(t, err)
	return s
}

func htmlServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScraperConfig(t *testing.T) {
	config := ScraperConfig{
		BaseURL:        "https://example.com",
		MaxDepth:       5,
		RateLimit:      1.0,
		IgnorePatterns: []string{"/ignore/", "private"},
		Timeout:        10 * time.Second,
	}

	s, err := NewWithConfig(config)
	require.NoError(t, err)
	assert.Equal(t, config.BaseURL, s.config.BaseURL)
	assert.Equal(t, config.MaxDepth, s.config.MaxDepth)
	assert.Equal(t, "example.com", s.baseHost)
	assert.Equal(t, StrategyReadability, s.config.Strategy)
	assert.Equal(t, int64(5*1024*1024), s.config.MaxBytes)

	_, err = NewWithConfig(ScraperConfig{BaseURL: "ftp://example.com"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"https://example.com/a", "https://example.com/a", false},
		{"  example.com/news  ", "https://example.com/news", false},
		{"http://example.com", "http://example.com/", false},
		{"", "", true},
		{"ftp://example.com/file", "", true},
		{"https://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestShouldProcessURL(t *testing.T) {
	s := newTestScraper(t, ScraperConfig{
		BaseURL:           "https://example.com",
		IgnorePatterns:    []string{"/ignore/", "private"},
		AllowedExtensions: []string{".html", "/"},
	})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/docs/", true},
		{"https://example.com/page.html", true},
		{"https://example.com/ignore/page.html", false},
		{"https://other-domain.com/page.html", false},
		{"https://example.com/file.pdf", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.shouldProcessURL("example.com", tt.url))
		})
	}
}

func TestExtractParagraphs(t *testing.T) {
	server := htmlServer(t, articleHTML)
	s := newTestScraper(t, ScraperConfig{Strategy: StrategyParagraphs})

	doc, err := s.Extract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, server.URL+"/", doc.URL)
	assert.Equal(t, "Test Page", doc.Title)
	assert.NotEmpty(t, doc.ID)
	assert.Contains(t, doc.Content, "small static binaries")
	assert.Contains(t, doc.Content, "very few third-party")
	assert.NotContains(t, doc.Content, "Site banner")
	assert.NotContains(t, doc.Content, "Cookie Policy")
	assert.NotContains(t, doc.Content, "tracking")
	assert.Len(t, strings.Split(doc.Content, "\n"), 3)
	assert.Equal(t, StrategyParagraphs, doc.Metadata["strategy"])
}

func TestExtractReadability(t *testing.T) {
	server := htmlServer(t, articleHTML)
	s := newTestScraper(t, ScraperConfig{})

	doc, err := s.Extract(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Contains(t, doc.Content, "small static binaries")
	assert.Contains(t, doc.Content, "goroutines and channels")
	assert.NotContains(t, doc.Content, "do not include")
	assert.GreaterOrEqual(t, len(doc.Content), 100)
}

func TestExtractMarkdown(t *testing.T) {
	server := htmlServer(t, articleHTML)
	s := newTestScraper(t, ScraperConfig{Strategy: StrategyParagraphs, Format: FormatMarkdown})

	doc, err := s.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "**very few**")
}

func TestExtractFallsBackToMainContent(t *testing.T) {
	server := htmlServer(t, `<html><head><title>No paragraphs</title></head><body>
		<div class="content">`+strings.Repeat("Plain div text without paragraph tags. ", 5)+`</div></body></html>`)
	s := newTestScraper(t, ScraperConfig{Strategy: StrategyParagraphs})

	doc, err := s.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "Plain div text")
}

func TestExtractPlainText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "first   line\n\nsecond line")
	}))
	defer server.Close()

	doc, err := newTestScraper(t, ScraperConfig{}).Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", doc.Content)
}

func TestExtractFailures(t *testing.T) {
	notFound := httptest.NewServer(http.NotFoundHandler())
	defer notFound.Close()

	pdf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	}))
	defer pdf.Close()

	closed := httptest.NewServer(http.NotFoundHandler())
	unreachable := closed.URL
	closed.Close()

	s := newTestScraper(t, ScraperConfig{Timeout: 2 * time.Second})

	_, err := s.Extract(context.Background(), notFound.URL)
	assert.ErrorContains(t, err, "status code 404")

	_, err = s.Extract(context.Background(), pdf.URL)
	assert.True(t, errors.Is(err, ErrUnsupportedContent))

	doc, err := s.Extract(context.Background(), unreachable)
	assert.Error(t, err)
	assert.Empty(t, doc.Content)

	_, err = s.Extract(context.Background(), "ftp://example.com/file.txt")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestExtractRespectsMaxBytes(t *testing.T) {
	server := htmlServer(t, "<html><body><p>"+strings.Repeat("x", 4096)+"</p></body></html>")
	s := newTestScraper(t, ScraperConfig{Strategy: StrategyParagraphs, MaxBytes: 1024})

	doc, err := s.Extract(context.Background(), server.URL)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(doc.Content), 1024)
	assert.Equal(t, true, doc.Metadata["truncated"])
}

func TestScrapeWithMockServer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, articleHTML)
	})
	mux.HandleFunc("/page2.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Second</title></head><body><p>`+
			strings.Repeat("The second page talks about garbage collection pauses. ", 3)+
			`</p><a href="/">back</a></body></html>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var visited []string
	s := newTestScraper(t, ScraperConfig{
		BaseURL:    server.URL,
		MaxDepth:   2,
		Strategy:   StrategyParagraphs,
		OnProgress: func(url string) { visited = append(visited, url) },
	})

	docs, err := s.Scrape(context.Background(), server.URL)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "Test Page", docs[0].Title)
	assert.Equal(t, 0, docs[0].Metadata["depth"])
	assert.Equal(t, "Second", docs[1].Title)
	assert.Contains(t, docs[1].Content, "garbage collection")
	assert.Equal(t, 1, docs[1].Metadata["depth"])
	// about.html 404s and is skipped
	assert.Len(t, visited, 3)
}
