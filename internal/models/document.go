package models

import "path"

// Kind tells where a document's text came from.
type Kind string

const (
	KindURL Kind = "url"
	KindPDF Kind = "pdf"
)

type Document struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

// Source returns the URL for web pages and the file name for uploads.
func (d Document) Source() string {
	if d.URL != "" {
		return d.URL
	}
	if name, ok := d.Metadata["filename"].(string); ok && name != "" {
		return path.Base(name)
	}
	return d.Title
}

type ProcessedDocument struct {
	Document
	Chunks []string
}

// Chunk is one embedded slice of a document as held by a vector store.
type Chunk struct {
	ID         string
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
	Metadata   map[string]interface{}
}

type ScoredChunk struct {
	Chunk
	Score float32
}
