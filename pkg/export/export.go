// Package export renders summaries as downloadable files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/unidoc/unipdf/v3/creator"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/unidoc"
)

const (
	FormatPDF      = "pdf"
	FormatText     = "txt"
	FormatMarkdown = "md"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat accepts a format name or a file name and returns the format.
func ParseFormat(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := path.Ext(s); ext != "" {
		s = ext[1:]
	}
	switch s {
	case FormatPDF, FormatText, FormatMarkdown:
		return s, nil
	case "text":
		return FormatText, nil
	case "markdown":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func ContentType(format string) string {
	switch format {
	case FormatPDF:
		return "application/pdf"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Filename derives a download name from the summary title, falling back to
// "summary".
func Filename(s models.Summary, format string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(s.Title), "-"), "-")
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}
	if base == "" {
		base = "summary"
	}
	return base + "." + format
}

// Render encodes s in the given format.
func Render(format string, s models.Summary) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(renderText(s)), nil
	case FormatMarkdown:
		return []byte(renderMarkdown(s)), nil
	case FormatPDF:
		if !unidoc.Licensed() {
			return nil, unidoc.ErrUnlicensed
		}
		return renderPDF(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func title(s models.Summary) string {
	if s.Title != "" {
		return s.Title
	}
	return "Summary"
}

func metaLines(s models.Summary) []string {
	lines := []string{"Source: " + s.Source}
	if s.Style != "" {
		lines = append(lines, "Style: "+string(s.Style))
	}
	if s.Model != "" {
		lines = append(lines, "Model: "+s.Model)
	}
	if !s.CreatedAt.IsZero() {
		lines = append(lines, "Created: "+s.CreatedAt.Format("2006-01-02 15:04 MST"))
	}
	if a := s.Annotation; a != nil {
		lines = append(lines, fmt.Sprintf("Sentiment: %s (%.2f)", a.Sentiment.Label, a.Sentiment.Polarity))
		if len(a.Keywords) > 0 {
			terms := make([]string, len(a.Keywords))
			for i, k := range a.Keywords {
				terms[i] = k.Term
			}
			lines = append(lines, "Keywords: "+strings.Join(terms, ", "))
		}
	}
	return lines
}

func renderText(s models.Summary) string {
	var b strings.Builder
	b.WriteString(title(s))
	b.WriteString("\n")
	for _, line := range metaLines(s) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(s.Text))
	b.WriteString("\n")
	return b.String()
}

func renderMarkdown(s models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title(s))
	for _, line := range metaLines(s) {
		fmt.Fprintf(&b, "- %s\n", line)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(s.Text))
	b.WriteString("\n")
	return b.String()
}

func renderPDF(s models.Summary) ([]byte, error) {
	c := creator.New()
	c.SetPageMargins(50, 50, 50, 50)

	bold, err := model.NewStandard14Font(model.HelveticaBoldName)
	if err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	heading := c.NewParagraph(title(s))
	heading.SetFont(bold)
	heading.SetFontSize(18)
	heading.SetMargins(0, 0, 0, 12)
	if err := c.Draw(heading); err != nil {
		return nil, fmt.Errorf("failed to draw title: %w", err)
	}

	for _, line := range metaLines(s) {
		p := c.NewParagraph(line)
		p.SetFontSize(9)
		if err := c.Draw(p); err != nil {
			return nil, fmt.Errorf("failed to draw metadata: %w", err)
		}
	}

	for _, block := range strings.Split(strings.TrimSpace(s.Text), "\n\n") {
		if block = strings.TrimSpace(block); block == "" {
			continue
		}
		p := c.NewParagraph(block)
		p.SetFontSize(11)
		p.SetMargins(0, 0, 10, 0)
		if err := c.Draw(p); err != nil {
			return nil, fmt.Errorf("failed to draw summary: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := c.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}
