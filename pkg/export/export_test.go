package export

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/unidoc"
)

var sample = models.Summary{
	Source:    "https://example.com/post",
	Title:     "Why Gophers Dig: A Field Guide!",
	Style:     models.StyleShort,
	Text:      "First paragraph.\n\nSecond paragraph.",
	Model:     "gpt-3.5-turbo",
	CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	Annotation: &models.Annotation{
		Sentiment: models.Sentiment{Label: "positive", Polarity: 0.25},
		Keywords:  []models.Keyword{{Term: "gophers", Count: 4}, {Term: "burrow", Count: 2}},
	},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"pdf", FormatPDF, false},
		{"TXT", FormatText, false},
		{"markdown", FormatMarkdown, false},
		{"out/summary.md", FormatMarkdown, false},
		{"report.PDF", FormatPDF, false},
		{"docx", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "why-gophers-dig-a-field-guide.pdf", Filename(sample, FormatPDF))
	assert.Equal(t, "summary.txt", Filename(models.Summary{}, FormatText))
	assert.LessOrEqual(t, len(Filename(models.Summary{Title: strings.Repeat("long title ", 20)}, FormatMarkdown)), 63)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentType(FormatPDF))
	assert.Contains(t, ContentType(FormatMarkdown), "text/markdown")
	assert.Contains(t, ContentType(FormatText), "text/plain")
}

func TestRenderText(t *testing.T) {
	out, err := Render(FormatText, sample)
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, "Why Gophers Dig: A Field Guide!\nSource: https://example.com/post\n"))
	assert.Contains(t, text, "Style: Short")
	assert.Contains(t, text, "Keywords: gophers, burrow")
	assert.True(t, strings.HasSuffix(text, "First paragraph.\n\nSecond paragraph.\n"))
}

func TestRenderMarkdown(t *testing.T) {
	out, err := Render(FormatMarkdown, sample)
	require.NoError(t, err)

	md := string(out)
	assert.True(t, strings.HasPrefix(md, "# Why Gophers Dig: A Field Guide!\n\n- Source: https://example.com/post\n"))
	assert.Contains(t, md, "- Sentiment: positive (0.25)")
	assert.Contains(t, md, "- Created: 2024-05-01 12:00 UTC")
}

func TestRenderUnknown(t *testing.T) {
	_, err := Render("docx", sample)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRenderPDFWithoutLicense(t *testing.T) {
	if unidoc.Licensed() {
		t.Skip("unidoc license installed")
	}
	_, err := Render(FormatPDF, sample)
	assert.ErrorIs(t, err, unidoc.ErrUnlicensed)
}

// unipdf refuses to write without a license key.
func TestRenderPDF(t *testing.T) {
	key := os.Getenv("UNIDOC_LICENSE_KEY")
	if key == "" {
		t.Skip("UNIDOC_LICENSE_KEY not set")
	}
	require.NoError(t, unidoc.SetLicense(key))

	out, err := Render(FormatPDF, sample)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
