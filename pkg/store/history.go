package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xhad/skim/internal/models"
)

var ErrSummaryNotFound = errors.New("summary not found")

type HistoryConfig struct {
	ConnString string
	TableName  string
}

// PostgresHistory records generated summaries in a Postgres table.
type PostgresHistory struct {
	config HistoryConfig
	pool   *pgxpool.Pool
}

func NewPostgresHistory(ctx context.Context, config HistoryConfig) (*PostgresHistory, error) {
	if config.TableName == "" {
		config.TableName = "summaries"
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			kind TEXT NOT NULL,
			title TEXT,
			style TEXT NOT NULL,
			summary TEXT NOT NULL,
			model TEXT,
			annotation JSONB,
			content_length INTEGER,
			duration_ms BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, config.TableName)

	if _, err := pool.Exec(ctx, createTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresHistory{config: config, pool: pool}, nil
}

func (h *PostgresHistory) Save(ctx context.Context, s models.Summary) error {
	var annotation []byte
	if s.Annotation != nil {
		var err error
		if annotation, err = json.Marshal(s.Annotation); err != nil {
			return fmt.Errorf("failed to encode annotation: %w", err)
		}
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, source, kind, title, style, summary, model, annotation, content_length, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`, h.config.TableName)

	_, err := h.pool.Exec(ctx, stmt,
		s.ID, s.Source, string(s.Kind), s.Title, string(s.Style), sanitizeUTF8(s.Text),
		s.Model, annotation, s.ContentLength, s.DurationMS, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

const historyColumns = "id, source, kind, title, style, summary, model, annotation, content_length, duration_ms, created_at"

func scanSummary(row pgx.Row) (models.Summary, error) {
	var (
		s          models.Summary
		kind       string
		style      string
		annotation []byte
	)
	err := row.Scan(&s.ID, &s.Source, &kind, &s.Title, &style, &s.Text, &s.Model,
		&annotation, &s.ContentLength, &s.DurationMS, &s.CreatedAt)
	if err != nil {
		return s, err
	}
	s.Kind = models.Kind(kind)
	s.Style = models.Style(style)
	if len(annotation) > 0 {
		s.Annotation = &models.Annotation{}
		if err := json.Unmarshal(annotation, s.Annotation); err != nil {
			return s, fmt.Errorf("failed to decode annotation: %w", err)
		}
	}
	return s, nil
}

func (h *PostgresHistory) Get(ctx context.Context, id string) (*models.Summary, error) {
	row := h.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", historyColumns, h.config.TableName), id)

	s, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSummaryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	return &s, nil
}

func (h *PostgresHistory) List(ctx context.Context, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := h.pool.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1", historyColumns, h.config.TableName), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (h *PostgresHistory) Close() error {
	h.pool.Close()
	return nil
}

// MemoryHistory keeps summaries for the life of the process.
type MemoryHistory struct {
	mu        sync.RWMutex
	summaries map[string]models.Summary
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{summaries: make(map[string]models.Summary)}
}

func (h *MemoryHistory) Save(ctx context.Context, s models.Summary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.summaries[s.ID]; !ok {
		h.summaries[s.ID] = s
	}
	return nil
}

func (h *MemoryHistory) Get(ctx context.Context, id string) (*models.Summary, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.summaries[id]
	if !ok {
		return nil, ErrSummaryNotFound
	}
	return &s, nil
}

func (h *MemoryHistory) List(ctx context.Context, limit int) ([]models.Summary, error) {
	h.mu.RLock()
	out := make([]models.Summary, 0, len(h.summaries))
	for _, s := range h.summaries {
		out = append(out, s)
	}
	h.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *MemoryHistory) Close() error {
	return nil
}
