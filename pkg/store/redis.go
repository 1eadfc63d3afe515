package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/redis/go-redis/v9"
	"github.com/xhad/skim/internal/models"
)

const (
	defaultEFConstruction = 200
	defaultM              = 16

	fieldContent    = "content"
	fieldVector     = "vector"
	fieldDocumentID = "document_id"
	fieldChunkIndex = "chunk_index"
	fieldMetadata   = "metadata"
	fieldScore      = "score"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	IndexName string
	KeyPrefix string
}

// RedisStore keeps chunks as hashes searched through a RediSearch HNSW index.
type RedisStore struct {
	client       *redis.Client
	config       RedisConfig
	mu           sync.Mutex
	indexCreated bool
}

func NewRedisWithConfig(ctx context.Context, config RedisConfig) (*RedisStore, error) {
	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}
	if config.IndexName == "" {
		config.IndexName = "skim-chunks"
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = config.IndexName + ":"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		// RESP2 replies decode to []interface{} for FT.SEARCH.
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, config: config}, nil
}

// ensureIndex creates the index the first time a vector size is known.
func (s *RedisStore) ensureIndex(ctx context.Context, dim int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexCreated {
		return nil
	}

	if _, err := s.client.Do(ctx, "FT.INFO", s.config.IndexName).Result(); err == nil {
		s.indexCreated = true
		return nil
	}

	_, err := s.client.Do(ctx, "FT.CREATE", s.config.IndexName,
		"ON", "HASH",
		"PREFIX", "1", s.config.KeyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(dim),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(defaultEFConstruction),
		"M", strconv.Itoa(defaultM),
		fieldContent, "TEXT",
		fieldDocumentID, "TAG",
		fieldChunkIndex, "NUMERIC",
	).Result()
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	s.indexCreated = true
	return nil
}

func (s *RedisStore) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureIndex(ctx, len(chunks[0].Embedding)); err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}

		pipe.HSet(ctx, s.config.KeyPrefix+chunkID(c),
			fieldContent, c.Content,
			fieldVector, encodeVector(c.Embedding),
			fieldDocumentID, c.DocumentID,
			fieldChunkIndex, c.Index,
			fieldMetadata, metadataJSON,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	return nil
}

func (s *RedisStore) Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]models.ScoredChunk, error) {
	if limit <= 0 {
		limit = 4
	}
	if err := s.ensureIndex(ctx, len(embedding)); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("(@%s:{%s})=>[KNN %d @%s $vec AS %s]",
		fieldDocumentID, escapeTag(documentID), limit, fieldVector, fieldScore)

	result, err := s.client.Do(ctx, "FT.SEARCH", s.config.IndexName, query,
		"PARAMS", "2", "vec", encodeVector(embedding),
		"RETURN", "5", fieldContent, fieldDocumentID, fieldChunkIndex, fieldMetadata, fieldScore,
		"SORTBY", fieldScore,
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	return s.parseSearchResults(result)
}

// parseSearchResults reads the RESP2 FT.SEARCH reply: a count followed by
// key/fields pairs.
func (s *RedisStore) parseSearchResults(result interface{}) ([]models.ScoredChunk, error) {
	values, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result format %T", result)
	}

	var results []models.ScoredChunk
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		sc := models.ScoredChunk{Chunk: models.Chunk{
			ID:       strings.TrimPrefix(key, s.config.KeyPrefix),
			Metadata: map[string]interface{}{},
		}}
		for j := 0; j+1 < len(fields); j += 2 {
			name, _ := fields[j].(string)
			value, _ := fields[j+1].(string)
			switch name {
			case fieldContent:
				sc.Content = value
			case fieldDocumentID:
				sc.DocumentID = value
			case fieldChunkIndex:
				sc.Index, _ = strconv.Atoi(value)
			case fieldMetadata:
				_ = json.Unmarshal([]byte(value), &sc.Metadata)
			case fieldScore:
				// COSINE reports a distance; convert it to a similarity.
				if d, err := strconv.ParseFloat(value, 32); err == nil {
					sc.Score = float32(1 - d)
				}
			}
		}
		results = append(results, sc)
	}

	return results, nil
}

func (s *RedisStore) DeleteDocument(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document ID cannot be empty")
	}

	result, err := s.client.Do(ctx, "FT.SEARCH", s.config.IndexName,
		fmt.Sprintf("@%s:{%s}", fieldDocumentID, escapeTag(documentID)),
		"NOCONTENT",
		"LIMIT", "0", "10000",
	).Result()
	if err != nil {
		// No index yet means nothing was stored.
		return nil
	}

	values, ok := result.([]interface{})
	if !ok || len(values) < 2 {
		return nil
	}

	keys := make([]string, 0, len(values)-1)
	for _, v := range values[1:] {
		if key, ok := v.(string); ok {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// encodeVector packs v as little-endian FLOAT32, the layout RediSearch expects.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// escapeTag backslash-escapes everything but letters, digits and underscore
// so IDs like UUIDs survive TAG query syntax.
func escapeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
