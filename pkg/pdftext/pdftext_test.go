package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/skim/internal/unidoc"
)

// onePagePDF builds a valid single page PDF with a correct xref table.
func onePagePDF() []byte {
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Contents 4 0 R /Resources << >> >>",
		"<< /Length 3 >>\nstream\nq Q\nendstream",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := NewWithConfig(ExtractorConfig{TempDir: t.TempDir(), Repair: true})
	require.NoError(t, err)
	return e
}

func TestNewWithConfigDefaults(t *testing.T) {
	e, err := NewWithConfig(ExtractorConfig{})
	require.NoError(t, err)
	assert.Equal(t, 500, e.config.MaxPages)
	assert.NotEmpty(t, e.config.TempDir)
	assert.NotNil(t, e.logger)
}

func TestExtractRejectsNonPDF(t *testing.T) {
	e := newTestExtractor(t)

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "%PD"},
		{"html", "<html><body>not a pdf</body></html>"},
		{"text", strings.Repeat("plain text ", 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Extract(context.Background(), strings.NewReader(tt.input), "upload.pdf")
			assert.ErrorIs(t, err, ErrNotPDF)
		})
	}
}

func TestExtractCorruptPDF(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract(context.Background(), bytes.NewReader([]byte("%PDF-1.4\nthis is not a real body")), "broken.pdf")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotPDF)
	assert.ErrorContains(t, err, "failed to read PDF")
}

func TestExtractWithoutLicense(t *testing.T) {
	if unidoc.Licensed() {
		t.Skip("unidoc license installed")
	}
	e := newTestExtractor(t)

	_, err := e.Extract(context.Background(), bytes.NewReader(onePagePDF()), "one.pdf")
	assert.ErrorIs(t, err, unidoc.ErrUnlicensed)
}

func TestExtractCleansTempDir(t *testing.T) {
	dir := t.TempDir()
	e, err := NewWithConfig(ExtractorConfig{TempDir: dir})
	require.NoError(t, err)

	_, _ = e.Extract(context.Background(), strings.NewReader("%PDF-1.4\n"), "x.pdf")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractFileMissing(t *testing.T) {
	e := newTestExtractor(t)
	_, err := e.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

// Text extraction needs a unidoc key; set SKIM_TEST_PDF to a sample file to run it.
func TestExtractFileLive(t *testing.T) {
	path := os.Getenv("SKIM_TEST_PDF")
	key := os.Getenv("UNIDOC_LICENSE_KEY")
	if path == "" || key == "" {
		t.Skip("SKIM_TEST_PDF and UNIDOC_LICENSE_KEY not set")
	}

	e, err := NewWithConfig(ExtractorConfig{LicenseKey: key, Repair: true})
	require.NoError(t, err)

	doc, err := e.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.NotEmpty(t, doc.Content)
	assert.Greater(t, doc.Metadata["pages"], 0)
	assert.Equal(t, path, doc.Metadata["filename"])
}
