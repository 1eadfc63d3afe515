package types

import (
	"context"
	"io"

	"github.com/xhad/skim/internal/models"
)

// Core interfaces
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteStream(ctx context.Context, prompt string, onChunk func(chunk string) error) (string, error)
	ModelName() string
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.ScoredChunk, error)
	DeleteDocument(ctx context.Context, documentID string) error
	Close() error
}

type SummaryHistory interface {
	Save(ctx context.Context, summary models.Summary) error
	Get(ctx context.Context, id string) (*models.Summary, error)
	List(ctx context.Context, limit int) ([]models.Summary, error)
	Close() error
}

type URLExtractor interface {
	Extract(ctx context.Context, rawURL string) (models.Document, error)
}

type PDFExtractor interface {
	Extract(ctx context.Context, r io.Reader, filename string) (models.Document, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
}
