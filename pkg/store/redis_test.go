package store

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector(t *testing.T) {
	buf := encodeVector([]float32{1.5, -2})
	require.Len(t, buf, 8)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
	assert.Equal(t, float32(-2), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
	assert.Empty(t, encodeVector(nil))
}

func TestEscapeTag(t *testing.T) {
	tests := map[string]string{
		"abc_123": "abc_123",
		"3f2a-b1": `3f2a\-b1`,
		"a b,c":   `a\ b\,c`,
		"x.y:z":   `x\.y\:z`,
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, escapeTag(in))
		})
	}
}

func TestParseSearchResults(t *testing.T) {
	s := &RedisStore{config: RedisConfig{KeyPrefix: "skim-chunks:"}}

	reply := []interface{}{
		int64(2),
		"skim-chunks:doc_0", []interface{}{
			"content", "gophers",
			"document_id", "doc",
			"chunk_index", "0",
			"metadata", `{"title":"Go"}`,
			"score", "0.1",
		},
		"skim-chunks:doc_2", []interface{}{
			"content", "more gophers",
			"document_id", "doc",
			"chunk_index", "2",
			"score", "0.25",
		},
	}

	results, err := s.parseSearchResults(reply)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "doc_0", results[0].ID)
	assert.Equal(t, "gophers", results[0].Content)
	assert.Equal(t, "Go", results[0].Metadata["title"])
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.Equal(t, 2, results[1].Index)
	assert.InDelta(t, 0.75, results[1].Score, 1e-6)

	_, err = s.parseSearchResults("nope")
	assert.Error(t, err)
}

func TestChromaCollectionName(t *testing.T) {
	s := &ChromaStore{config: ChromaConfig{CollectionPrefix: "skim-"}}

	assert.Equal(t, "skim-3f2a-b1", s.collectionName("3f2a-b1"))
	assert.Equal(t, "skim-a-b", s.collectionName("a b"))
	assert.Len(t, s.collectionName(string(make([]byte, 100))), 4)

	long := s.collectionName("0123456789012345678901234567890123456789012345678901234567890123456789")
	assert.LessOrEqual(t, len(long), 63)
}
