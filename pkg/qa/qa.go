// Package qa answers questions about loaded documents by retrieving the most
// similar chunks and handing them to the completion model.
package qa

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/summarizer"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrNoContent       = errors.New("documents produced no chunks")
)

const defaultContextTemplate = `Answer the question using only the passages below. If the answer is not in the passages, say you don't know.

%s
Question: %s`

type EngineConfig struct {
	Completer   types.Completer
	Embedder    types.Embedder
	Store       types.VectorStore
	Splitter    types.Processor
	TopK        int
	ContextTmpl string
	Logger      *zap.Logger
}

// Session is one loaded set of documents with its vectors in the store.
type Session struct {
	ID        string    `json:"id"`
	Sources   []string  `json:"sources"`
	Title     string    `json:"title,omitempty"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

type Answer struct {
	SessionID string               `json:"session_id"`
	Question  string               `json:"question"`
	Text      string               `json:"answer"`
	Sources   []models.ScoredChunk `json:"sources"`
}

type Engine struct {
	config   EngineConfig
	logger   *zap.Logger
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewWithConfig(config EngineConfig) (*Engine, error) {
	if config.Completer == nil || config.Embedder == nil || config.Store == nil || config.Splitter == nil {
		return nil, fmt.Errorf("completer, embedder, store and splitter are required")
	}
	if config.TopK <= 0 {
		config.TopK = 4
	}
	if config.ContextTmpl == "" {
		config.ContextTmpl = defaultContextTemplate
	}

	return &Engine{
		config:   config,
		logger:   logging.OrNop(config.Logger),
		sessions: make(map[string]*Session),
	}, nil
}

// Index chunks and embeds docs once and registers a session for them. Every
// document must yield at least one chunk.
func (e *Engine) Index(ctx context.Context, docs ...models.Document) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	processed, err := e.config.Splitter.Process(docs)
	if err != nil {
		return nil, err
	}
	if len(processed) == 0 {
		return nil, ErrNoContent
	}

	var chunks []models.Chunk
	for _, doc := range processed {
		if len(doc.Chunks) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoContent, doc.Source())
		}
		for _, part := range doc.Chunks {
			chunks = append(chunks, models.Chunk{
				DocumentID: session.ID,
				Index:      len(chunks),
				Content:    part,
				Metadata: map[string]interface{}{
					"source": doc.Source(),
					"title":  doc.Title,
				},
			})
		}
		session.Sources = append(session.Sources, doc.Source())
		if session.Title == "" {
			session.Title = doc.Title
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.config.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := e.config.Store.Upsert(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}
	session.Chunks = len(chunks)

	e.mu.Lock()
	e.sessions[session.ID] = session
	e.mu.Unlock()

	e.logger.Info("indexed session",
		zap.String("session", session.ID),
		zap.Strings("sources", session.Sources),
		zap.Int("chunks", session.Chunks))

	return session, nil
}

func (e *Engine) Session(id string) (*Session, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Ask retrieves the closest chunks for question and asks the model once.
// onChunk may be nil.
func (e *Engine) Ask(ctx context.Context, sessionID, question string, onChunk func(string) error) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if _, err := e.Session(sessionID); err != nil {
		return nil, err
	}

	vector, err := e.config.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := e.config.Store.Search(ctx, sessionID, vector, e.config.TopK)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	prompt := e.buildPrompt(hits, question)

	var text string
	if onChunk != nil {
		text, err = e.config.Completer.CompleteStream(ctx, prompt, onChunk)
	} else {
		text, err = e.config.Completer.Complete(ctx, prompt)
	}
	if err != nil {
		return nil, &summarizer.CompletionError{Err: err}
	}

	return &Answer{
		SessionID: sessionID,
		Question:  question,
		Text:      strings.TrimSpace(text),
		Sources:   hits,
	}, nil
}

func (e *Engine) buildPrompt(hits []models.ScoredChunk, question string) string {
	var sb strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&sb, "[%d]", i+1)
		if source, ok := hit.Metadata["source"].(string); ok && source != "" {
			fmt.Fprintf(&sb, " (%s)", source)
		}
		fmt.Fprintf(&sb, "\n%s\n\n", hit.Content)
	}
	return fmt.Sprintf(e.config.ContextTmpl, sb.String(), question)
}

// Close drops the session's vectors and forgets it.
func (e *Engine) Close(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	_, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	e.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	if err := e.config.Store.DeleteDocument(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session vectors: %w", err)
	}
	return nil
}

// Sessions lists active sessions, oldest first.
func (e *Engine) Sessions() []Session {
	e.mu.RLock()
	out := make([]Session, 0, len(e.sessions))
	for _, s := range e.sessions {
		out = append(out, *s)
	}
	e.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// CloseAll drops every session; used on shutdown.
func (e *Engine) CloseAll(ctx context.Context) {
	for _, s := range e.Sessions() {
		if err := e.Close(ctx, s.ID); err != nil {
			e.logger.Warn("failed to close session", zap.String("session", s.ID), zap.Error(err))
		}
	}
}
