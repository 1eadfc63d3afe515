package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/types"
	"github.com/xhad/skim/pkg/config"
	"github.com/xhad/skim/pkg/store"
)

func exerciseHistory(t *testing.T, h types.SummaryHistory) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	older := models.Summary{
		ID: uuid.NewString(), Source: "https://example.com/a", Kind: models.KindURL,
		Style: models.StyleShort, Text: "older", CreatedAt: now.Add(-time.Minute),
	}
	newer := models.Summary{
		ID: uuid.NewString(), Source: "report.pdf", Kind: models.KindPDF,
		Style: models.StyleBullet, Text: "- newer", CreatedAt: now,
		Annotation: &models.Annotation{
			Sentiment: models.Sentiment{Label: "positive", Polarity: 0.5, Positive: 1},
			Keywords:  []models.Keyword{{Term: "gopher", Count: 3}},
		},
	}
	require.NoError(t, h.Save(ctx, older))
	require.NoError(t, h.Save(ctx, newer))

	got, err := h.Get(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, "- newer", got.Text)
	assert.Equal(t, models.KindPDF, got.Kind)
	require.NotNil(t, got.Annotation)
	assert.Equal(t, "gopher", got.Annotation.Keywords[0].Term)

	_, err = h.Get(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrSummaryNotFound)

	list, err := h.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestMemoryHistory(t *testing.T) {
	h := store.NewMemoryHistory()
	defer h.Close()
	exerciseHistory(t, h)

	list, err := h.List(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestNewFromConfig(t *testing.T) {
	cfg := &config.Config{}

	s, err := store.NewFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, s)

	h, err := store.NewHistoryFromConfig(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryHistory{}, h)

	cfg.QA.Store = "sqlite"
	_, err = store.NewFromConfig(context.Background(), cfg)
	assert.Error(t, err)
}
