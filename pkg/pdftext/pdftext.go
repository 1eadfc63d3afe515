// Package pdftext turns uploaded PDF files into plain text.
//
// Uploads are spooled to a temporary file, optionally rewritten by pdfcpu in
// relaxed validation mode to repair common structural damage, counted, and
// then read page by page with unipdf.
package pdftext

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/unidoc"
	"go.uber.org/zap"
)

var (
	ErrNotPDF       = errors.New("file is not a PDF")
	ErrTooManyPages = errors.New("PDF has too many pages")
)

var pdfMagic = []byte("%PDF-")

type ExtractorConfig struct {
	LicenseKey string
	MaxPages   int
	Repair     bool
	TempDir    string
	Logger     *zap.Logger
}

type Extractor struct {
	config ExtractorConfig
	logger *zap.Logger
}

func NewWithConfig(config ExtractorConfig) (*Extractor, error) {
	if config.MaxPages == 0 {
		config.MaxPages = 500
	}
	if config.TempDir == "" {
		config.TempDir = os.TempDir()
	}

	if err := unidoc.SetLicense(config.LicenseKey); err != nil {
		return nil, fmt.Errorf("failed to set unidoc license key: %w", err)
	}

	return &Extractor{
		config: config,
		logger: logging.OrNop(config.Logger),
	}, nil
}

// Extract reads a PDF from r. filename is only used for metadata.
func (e *Extractor) Extract(ctx context.Context, r io.Reader, filename string) (models.Document, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(pdfMagic))
	if err != nil || !bytes.Equal(head, pdfMagic) {
		return models.Document{}, ErrNotPDF
	}

	dir, err := os.MkdirTemp(e.config.TempDir, "skim-pdf-")
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.pdf")
	out, err := os.Create(path)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	size, err := io.Copy(out, br)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to spool upload: %w", err)
	}

	doc, err := e.extractPath(ctx, path)
	if err != nil {
		return models.Document{}, err
	}
	doc.Metadata["filename"] = filename
	doc.Metadata["size"] = size
	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	return doc, nil
}

func (e *Extractor) ExtractFile(ctx context.Context, path string) (models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()
	return e.Extract(ctx, f, path)
}

func (e *Extractor) extractPath(ctx context.Context, path string) (models.Document, error) {
	source := path
	repaired := false
	if e.config.Repair {
		optimized := strings.TrimSuffix(path, ".pdf") + ".optimized.pdf"
		if err := optimize(path, optimized); err != nil {
			e.logger.Debug("pdfcpu could not optimize upload, using original", zap.Error(err))
		} else {
			source = optimized
			repaired = true
		}
	}

	pageCount, err := api.PageCountFile(source)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to read PDF: %w", err)
	}
	if pageCount > e.config.MaxPages {
		return models.Document{}, fmt.Errorf("%w: %d > %d", ErrTooManyPages, pageCount, e.config.MaxPages)
	}

	if !unidoc.Licensed() {
		return models.Document{}, unidoc.ErrUnlicensed
	}

	text, title, err := extractText(ctx, source)
	if err != nil {
		return models.Document{}, err
	}

	return models.Document{
		ID:      uuid.NewString(),
		Title:   title,
		Content: text,
		Metadata: map[string]interface{}{
			"pages":    pageCount,
			"repaired": repaired,
		},
	}, nil
}

func optimize(inPath, outPath string) error {
	cfg := pdfmodel.NewDefaultConfiguration()
	cfg.ValidationMode = pdfmodel.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

// extractText uses UniPDF to get all text from a PDF file, one blank line
// between pages.
func extractText(ctx context.Context, path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return "", "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var title string
	if info, err := pdfReader.GetPdfInfo(); err == nil && info != nil && info.Title != nil {
		title = strings.TrimSpace(info.Title.Decoded())
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", "", err
	}

	var pages []string
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}

		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", "", fmt.Errorf("failed to read page %d: %w", i, err)
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", "", fmt.Errorf("failed to prepare page %d: %w", i, err)
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}

	return strings.Join(pages, "\n\n"), title, nil
}
