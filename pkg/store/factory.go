package store

import (
	"context"
	"fmt"

	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/config"
)

const (
	BackendMemory   = "memory"
	BackendPgvector = "pgvector"
	BackendRedis    = "redis"
	BackendChroma   = "chroma"
)

// NewFromConfig opens the vector store named by cfg.QA.Store.
func NewFromConfig(ctx context.Context, cfg *config.Config) (types.VectorStore, error) {
	switch cfg.QA.Store {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendPgvector:
		s, err := NewPgvectorWithConfig(ctx, PgvectorConfig{
			ConnString:  cfg.Database.URL,
			TableName:   cfg.Database.TableName,
			VectorDim:   cfg.Database.VectorDim,
			SearchLimit: cfg.QA.TopK,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		s, err := NewRedisWithConfig(ctx, RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			IndexName: cfg.Redis.IndexName,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendChroma:
		s, err := NewChromaWithConfig(ctx, ChromaConfig{
			URL:              cfg.Chroma.URL,
			CollectionPrefix: cfg.Chroma.CollectionPrefix,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.QA.Store)
	}
}

// NewHistoryFromConfig uses Postgres when a database URL is configured and
// an in-memory history otherwise.
func NewHistoryFromConfig(ctx context.Context, cfg *config.Config) (types.SummaryHistory, error) {
	if cfg.Database.URL == "" {
		return NewMemoryHistory(), nil
	}
	h, err := NewPostgresHistory(ctx, HistoryConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.HistoryTable,
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}
