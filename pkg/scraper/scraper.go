package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	StrategyReadability = "readability"
	StrategyParagraphs  = "paragraphs"

	FormatText     = "text"
	FormatMarkdown = "markdown"
)

var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrUnsupportedContent = errors.New("unsupported content type")
)

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	RateLimit         float64 // requests per second
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	UserAgent         string
	MaxBytes          int64
	Strategy          string
	Format            string
	// MinArticleLength is the readability result size below which the
	// paragraph strategy is tried instead.
	MinArticleLength int
	OnProgress       func(url string)
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

type Scraper struct {
	config   ScraperConfig
	client   *http.Client
	limiter  *rate.Limiter
	baseHost string
	logger   *zap.Logger
}

func NewWithConfig(config ScraperConfig) (*Scraper, error) {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = 1
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if len(config.AllowedExtensions) == 0 {
		config.AllowedExtensions = []string{".html", ".htm", "/", ""}
	}
	if config.UserAgent == "" {
		config.UserAgent = "Mozilla/5.0 (compatible; skim/1.0)"
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 5 * 1024 * 1024
	}
	if config.Strategy == "" {
		config.Strategy = StrategyReadability
	}
	if config.Format == "" {
		config.Format = FormatText
	}
	if config.MinArticleLength == 0 {
		config.MinArticleLength = 100
	}

	s := &Scraper{
		config:  config,
		client:  config.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		logger:  logging.OrNop(config.Logger),
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: config.Timeout}
	}

	if config.BaseURL != "" {
		parsedURL, err := NormalizeURL(config.BaseURL)
		if err != nil {
			return nil, err
		}
		s.baseHost = parsedURL.Host
	}

	return s, nil
}

func New() *Scraper {
	s, _ := NewWithConfig(ScraperConfig{})
	return s
}

// NormalizeURL trims raw, adds https:// when no scheme is given and rejects
// anything that is not an absolute http(s) URL.
func NormalizeURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

type page struct {
	url         *url.URL
	body        []byte
	contentType string
	status      int
	truncated   bool
}

func (s *Scraper) fetch(ctx context.Context, u *url.URL) (*page, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, u)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}

	return &page{
		url:         resp.Request.URL,
		body:        body,
		contentType: contentType,
		status:      resp.StatusCode,
		truncated:   int64(len(body)) >= s.config.MaxBytes,
	}, nil
}

// Extract fetches a single page and returns its readable text. It never
// retries; callers treat any error as "nothing extracted".
func (s *Scraper) Extract(ctx context.Context, rawURL string) (models.Document, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return models.Document{}, err
	}

	p, err := s.fetch(ctx, u)
	if err != nil {
		return models.Document{}, err
	}

	mediaType, _, _ := mime.ParseMediaType(p.contentType)
	switch {
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
	case strings.HasPrefix(mediaType, "text/"):
		return s.plainDocument(p), nil
	default:
		return models.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedContent, p.contentType)
	}

	doc, err := s.extractHTML(p)
	if err != nil {
		return models.Document{}, err
	}
	return doc, nil
}

func (s *Scraper) plainDocument(p *page) models.Document {
	return models.Document{
		ID:      uuid.NewString(),
		URL:     p.url.String(),
		Title:   p.url.Host + p.url.Path,
		Content: cleanParagraphs(strings.Split(string(p.body), "\n")),
		Metadata: s.metadata(p, map[string]interface{}{
			"strategy": "plain",
		}),
	}
}

func (s *Scraper) metadata(p *page, extra map[string]interface{}) map[string]interface{} {
	m := map[string]interface{}{
		"status":      p.status,
		"contentType": p.contentType,
		"fetchedAt":   time.Now().UTC(),
		"truncated":   p.truncated,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

func (s *Scraper) extractHTML(p *page) (models.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.body))
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())

	var (
		content  string
		strategy = s.config.Strategy
		extra    = map[string]interface{}{}
	)

	if strategy == StrategyReadability {
		article, err := s.readable(p)
		if err != nil {
			s.logger.Debug("readability failed, falling back to paragraphs",
				zap.String("url", p.url.String()), zap.Error(err))
		} else {
			content = article.text
			if article.title != "" {
				title = article.title
			}
			if article.byline != "" {
				extra["byline"] = article.byline
			}
			if article.siteName != "" {
				extra["siteName"] = article.siteName
			}
		}
		if len(content) < s.config.MinArticleLength {
			strategy = StrategyParagraphs
		}
	}

	if strategy == StrategyParagraphs {
		stripNoise(doc)
		content = s.paragraphs(doc)
		if len(content) < s.config.MinArticleLength {
			if main := s.extractMainContent(doc); len(main) > len(content) {
				content = main
			}
		}
	}
	extra["strategy"] = strategy

	return models.Document{
		ID:       uuid.NewString(),
		URL:      p.url.String(),
		Title:    title,
		Content:  content,
		Metadata: s.metadata(p, extra),
	}, nil
}

// stripNoise removes markup that never carries article text.
func stripNoise(doc *goquery.Document) {
	doc.Find("script, style, noscript, template, svg, iframe, nav, header, footer, aside, form").Remove()
}

// paragraphs concatenates the text of every <p>, one paragraph per line.
func (s *Scraper) paragraphs(doc *goquery.Document) string {
	if s.config.Format == FormatMarkdown {
		var parts []string
		doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
			if html, err := goquery.OuterHtml(sel); err == nil {
				parts = append(parts, html)
			}
		})
		if md, err := toMarkdown(strings.Join(parts, "\n")); err == nil {
			return md
		}
	}

	var texts []string
	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		texts = append(texts, sel.Text())
	})
	return cleanParagraphs(texts)
}

func (s *Scraper) extractMainContent(doc *goquery.Document) string {
	selectors := []string{
		"main",
		"article",
		"[role=main]",
		".content",
		"#content",
		".post",
		".entry-content",
	}

	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			return cleanContent(selected.First().Text())
		}
	}

	return cleanContent(doc.Find("body").Text())
}

var noisePatterns = []string{
	"Cookie Policy",
	"Accept Cookies",
	"Accept all cookies",
	"Privacy Policy",
	"Terms of Service",
}

func cleanContent(content string) string {
	content = strings.Join(strings.Fields(content), " ")

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}

func cleanParagraphs(texts []string) string {
	var kept []string
	for _, t := range texts {
		if t = cleanContent(t); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n")
}
