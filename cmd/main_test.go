package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/summarizer"
)

func TestSummaryPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"inbox/report.pdf", "inbox/report.summary.md"},
		{"/tmp/Scan.PDF", "/tmp/Scan.summary.md"},
		{"notes", "notes.summary.md"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, summaryPath(tt.in))
	}
}

func TestIsPDF(t *testing.T) {
	assert.True(t, isPDF("a.pdf"))
	assert.True(t, isPDF("dir/B.PDF"))
	assert.False(t, isPDF("a.summary.md"))
	assert.False(t, isPDF("pdf"))
}

func TestRunWithoutInput(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LLM_PROVIDER", "")

	err := run(Config{})
	assert.ErrorIs(t, err, summarizer.ErrEmptyInput)
	assert.Equal(t, summarizer.MsgEmptyURL, summarizer.UserMessage(err))

	assert.NoError(t, checkInput(Config{PDF: "a.pdf"}))
	assert.NoError(t, checkInput(Config{Watch: "inbox"}))
	assert.ErrorIs(t, checkInput(Config{QA: true}), summarizer.ErrEmptyInput)
}

func TestSummaryMarkdown(t *testing.T) {
	md := summaryMarkdown(&models.Summary{Title: "Gophers", Text: "- dig\n- burrow"})
	assert.Equal(t, "# Gophers\n\n- dig\n- burrow\n", md)

	assert.Equal(t, "Just text.\n", summaryMarkdown(&models.Summary{Text: "Just text."}))
}

func TestRenderRaw(t *testing.T) {
	assert.Equal(t, "# Title\n", render("# Title\n", true))
	assert.Contains(t, render("# Title\n\nBody text.\n", false), "Body text.")
}
