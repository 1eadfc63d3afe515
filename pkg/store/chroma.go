package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/xhad/skim/internal/models"
)

type ChromaConfig struct {
	URL              string
	CollectionPrefix string
}

// ChromaStore keeps one Chroma collection per indexed document.
type ChromaStore struct {
	config      ChromaConfig
	client      chromago.Client
	mu          sync.Mutex
	collections map[string]chromago.Collection
}

func NewChromaWithConfig(ctx context.Context, config ChromaConfig) (*ChromaStore, error) {
	if config.CollectionPrefix == "" {
		config.CollectionPrefix = "skim-"
	}

	var opts []chromago.ClientOption
	if config.URL != "" {
		opts = append(opts, chromago.WithBaseURL(config.URL))
	}

	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	return &ChromaStore{
		config:      config,
		client:      client,
		collections: make(map[string]chromago.Collection),
	}, nil
}

var invalidCollectionChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// collectionName maps a document ID onto Chroma's naming rules: 3-63 chars
// of [a-zA-Z0-9._-], starting and ending with an alphanumeric.
func (s *ChromaStore) collectionName(documentID string) string {
	name := invalidCollectionChars.ReplaceAllString(s.config.CollectionPrefix+documentID, "-")
	if len(name) > 63 {
		name = name[:63]
	}
	name = strings.Trim(name, "._-")
	for len(name) < 3 {
		name += "0"
	}
	return name
}

func (s *ChromaStore) collection(ctx context.Context, documentID string) (chromago.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.collectionName(documentID)
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	c, err := s.client.GetOrCreateCollection(ctx, name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("document_id", documentID),
				chromago.NewStringAttribute("created_by", "skim"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	s.collections[name] = c
	return c, nil
}

// existing returns the document's collection without creating it.
func (s *ChromaStore) existing(ctx context.Context, documentID string) (chromago.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.collectionName(documentID)
	if c, ok := s.collections[name]; ok {
		return c, nil
	}

	cols, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, c := range cols {
		if c.Name() == name {
			s.collections[name] = c
			return c, nil
		}
	}
	return nil, nil
}

func (s *ChromaStore) Upsert(ctx context.Context, chunks []models.Chunk) error {
	for _, chunk := range chunks {
		c, err := s.collection(ctx, chunk.DocumentID)
		if err != nil {
			return err
		}

		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("document_id", chunk.DocumentID),
			chromago.NewIntAttribute("chunk_index", int64(chunk.Index)),
		)
		err = c.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(chunkID(chunk))),
			chromago.WithTexts(chunk.Content),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(chunk.Embedding)),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("failed to add chunk %d to chroma: %w", chunk.Index, err)
		}
	}
	return nil
}

func (s *ChromaStore) Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = 4
	}

	c, err := s.existing(ctx, documentID)
	if err != nil || c == nil {
		return nil, err
	}

	results, err := c.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(embedding)),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chroma: %w", err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return nil, nil
	}

	var scored []models.ScoredChunk
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}

		sc := models.ScoredChunk{
			Chunk: models.Chunk{
				DocumentID: documentID,
				Content:    doc.ContentString(),
				Metadata:   map[string]interface{}{},
			},
			// Results arrive nearest first; score by rank.
			Score: 1 - float32(i)/float32(limit+1),
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) && metadataGroups[0][i] != nil {
			if raw, err := json.Marshal(metadataGroups[0][i]); err == nil {
				_ = json.Unmarshal(raw, &sc.Metadata)
			}
		}
		if idx, ok := sc.Metadata["chunk_index"].(float64); ok {
			sc.Index = int(idx)
		}
		sc.ID = fmt.Sprintf("%s_%d", documentID, sc.Index)
		scored = append(scored, sc)
	}

	return scored, nil
}

// DeleteDocument drops the document's whole collection.
func (s *ChromaStore) DeleteDocument(ctx context.Context, documentID string) error {
	c, err := s.existing(ctx, documentID)
	if err != nil || c == nil {
		return err
	}

	name := s.collectionName(documentID)
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}

	s.mu.Lock()
	delete(s.collections, name)
	s.mu.Unlock()
	return nil
}

func (s *ChromaStore) Close() error {
	return s.client.Close()
}
