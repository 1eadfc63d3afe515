package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/xhad/skim/internal/models"
)

// MemoryStore is an in-process vector store. It is the default for
// interactive sessions, where the index lives only as long as the process.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]models.Chunk
}

func NewMemory() *MemoryStore {
	return &MemoryStore{chunks: make(map[string][]models.Chunk)}
}

func (m *MemoryStore) Upsert(ctx context.Context, chunks []models.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		c.ID = chunkID(c)
		existing := m.chunks[c.DocumentID]
		replaced := false
		for i := range existing {
			if existing[i].ID == c.ID {
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		m.chunks[c.DocumentID] = existing
	}
	return nil
}

func (m *MemoryStore) Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	candidates := m.chunks[documentID]
	results := make([]models.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, models.ScoredChunk{Chunk: c, Score: cosine(embedding, c.Embedding)})
	}
	m.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) DeleteDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	delete(m.chunks, documentID)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// cosine returns 0 for mismatched or zero-length vectors.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
