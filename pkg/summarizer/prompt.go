package summarizer

import (
	"fmt"
	"strings"

	"github.com/xhad/skim/internal/models"
)

const promptTemplate = "Summarize the following %s in a %s format:\n\n%s"

// BuildPrompt fills the summary template. Content is passed through whole.
func BuildPrompt(style models.Style, kind models.Kind, content string) string {
	noun := "article"
	if kind == models.KindPDF {
		noun = "document"
	}
	return fmt.Sprintf(promptTemplate, noun, strings.ToLower(string(style)), content)
}
