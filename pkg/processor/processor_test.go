package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/processor"
)

const article = "Go is an open source programming language. It makes it simple to build secure, scalable systems. " +
	"The language was designed at Google. Its concurrency primitives are goroutines and channels! " +
	"Do people like it? Many teams use it for network services."

func TestProcessor_Process(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       80,
		ChunkOverlap:    10,
		MinChunkLength:  20,
		Splitter:        processor.SplitterSentence,
		RemoveStopwords: true,
		CustomStopwords: []string{"language"},
	})

	processedDocs, err := p.Process([]models.Document{{Content: article}})
	require.NoError(t, err)
	require.Len(t, processedDocs, 1)
	require.NotEmpty(t, processedDocs[0].Chunks)

	joined := strings.Join(processedDocs[0].Chunks, " ")
	assert.Contains(t, joined, "open source programming")
	assert.NotContains(t, strings.Fields(joined), "language")
	assert.NotContains(t, strings.Fields(joined), "the")

	processedDocs, err = p.Process([]models.Document{{Content: article}, {URL: "https://blank.example/", Content: " \n "}})
	require.NoError(t, err)
	require.Len(t, processedDocs, 2)
	assert.Empty(t, processedDocs[1].Chunks)
	assert.Equal(t, "https://blank.example/", processedDocs[1].Source())
}

func TestProcessor_SentenceChunks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      100,
		ChunkOverlap:   20,
		MinChunkLength: 10,
		Splitter:       processor.SplitterSentence,
	})

	chunks, err := p.Split(article)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 140, chunk)
	}
	assert.True(t, strings.HasPrefix(chunks[0], "Go is an open source"))
	assert.Contains(t, chunks[len(chunks)-1], "network services.")
}

func TestProcessor_RecursiveChunks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    60,
		ChunkOverlap: 10,
	})

	chunks, err := p.Split(article)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 60)
	}
}

func TestProcessor_ShortAndEmptyText(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{MinChunkLength: 50})

	chunks, err := p.Split("Tiny note.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tiny note."}, chunks)

	chunks, err = p.Split("   \n\t ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_UnknownSplitter(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{Splitter: "tokens"})
	_, err := p.Split(article)
	assert.Error(t, err)
}

func TestStopwordsIsACopy(t *testing.T) {
	words := processor.Stopwords()
	require.NotEmpty(t, words)
	words[0] = "changed"
	assert.NotEqual(t, "changed", processor.Stopwords()[0])
}
