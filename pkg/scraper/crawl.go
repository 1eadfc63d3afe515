package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/skim/internal/models"
	"go.uber.org/zap"
)

type crawl struct {
	host      string
	visited   map[string]bool
	documents []models.Document
}

func (s *Scraper) shouldProcessURL(host, urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	if parsedURL.Host != host {
		return false
	}

	ext := strings.ToLower(parsedURL.Path)
	validExt := false
	for _, allowedExt := range s.config.AllowedExtensions {
		if strings.HasSuffix(ext, allowedExt) {
			validExt = true
			break
		}
	}
	if !validExt {
		return false
	}

	for _, pattern := range s.config.IgnorePatterns {
		if strings.Contains(urlStr, pattern) {
			return false
		}
	}

	return true
}

// Scrape extracts startURL and then follows same-host links breadth-first
// down to MaxDepth. Pages that fail are logged and skipped; only a failure on
// startURL itself is returned.
func (s *Scraper) Scrape(ctx context.Context, startURL string) ([]models.Document, error) {
	u, err := NormalizeURL(startURL)
	if err != nil {
		return nil, err
	}

	host := s.baseHost
	if host == "" {
		host = u.Host
	}
	c := &crawl{host: host, visited: make(map[string]bool)}

	frontier := []string{u.String()}
	for depth := 0; depth < s.config.MaxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, link := range frontier {
			if ctx.Err() != nil {
				return c.documents, ctx.Err()
			}
			if c.visited[link] {
				continue
			}
			c.visited[link] = true

			links, err := s.scrapePage(ctx, c, link, depth)
			if err != nil {
				if depth == 0 {
					return nil, err
				}
				s.logger.Warn("skipping page", zap.String("url", link), zap.Error(err))
				continue
			}
			next = append(next, links...)
		}
		frontier = next
	}

	return c.documents, nil
}

func (s *Scraper) scrapePage(ctx context.Context, c *crawl, link string, depth int) ([]string, error) {
	if s.config.OnProgress != nil {
		s.config.OnProgress(link)
	}

	pageURL, err := url.Parse(link)
	if err != nil {
		return nil, err
	}

	p, err := s.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := s.extractHTML(p)
	if err != nil {
		return nil, err
	}
	doc.Metadata["depth"] = depth
	c.documents = append(c.documents, doc)

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(string(p.body)))
	if err != nil {
		return nil, nil
	}

	var links []string
	parsed.Find("a[href]").Each(func(_ int, selection *goquery.Selection) {
		href, _ := selection.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := p.url.ResolveReference(ref)
		abs.Fragment = ""
		if !c.visited[abs.String()] && s.shouldProcessURL(c.host, abs.String()) {
			links = append(links, abs.String())
		}
	})

	return links, nil
}
