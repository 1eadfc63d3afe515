package scraper

import (
	"bytes"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	readability "github.com/go-shiori/go-readability"
)

type article struct {
	title    string
	byline   string
	siteName string
	text     string
}

func (s *Scraper) readable(p *page) (article, error) {
	parsed, err := readability.FromReader(bytes.NewReader(p.body), p.url)
	if err != nil {
		return article{}, err
	}

	a := article{
		title:    strings.TrimSpace(parsed.Title),
		byline:   strings.TrimSpace(parsed.Byline),
		siteName: strings.TrimSpace(parsed.SiteName),
	}

	if s.config.Format == FormatMarkdown && parsed.Content != "" {
		if out, err := toMarkdown(parsed.Content); err == nil {
			a.text = out
			return a, nil
		}
	}

	a.text = cleanParagraphs(strings.Split(parsed.TextContent, "\n"))
	return a, nil
}

func toMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", err
	}

	// Drop the blank-line runs the converter leaves between blocks.
	lines := strings.Split(out, "\n")
	var result []string
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if !blank && len(result) > 0 {
				result = append(result, "")
			}
			blank = true
			continue
		}
		blank = false
		result = append(result, line)
	}

	return strings.TrimSpace(strings.Join(result, "\n")), nil
}
