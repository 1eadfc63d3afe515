package processor

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
	"github.com/xhad/skim/internal/models"
)

const (
	SplitterRecursive = "recursive"
	SplitterSentence  = "sentence"
)

type ProcessorConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	MinChunkLength  int
	Splitter        string
	Lowercase       bool
	RemoveStopwords bool
	CustomStopwords []string
}

type Processor struct {
	config    ProcessorConfig
	recursive textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 1000
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 200
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize / 5
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 20
	}
	if config.Splitter == "" {
		config.Splitter = SplitterRecursive
	}

	return Processor{
		config: config,
		recursive: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
	}
}

func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	var processed []models.ProcessedDocument

	for _, doc := range docs {
		chunks, err := p.Split(doc.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to split %s: %w", doc.Source(), err)
		}

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   chunks,
		})
	}

	return processed, nil
}

// Split cleans text and cuts it into chunks no shorter than MinChunkLength.
// Text that is shorter than MinChunkLength as a whole is kept as one chunk.
func (p *Processor) Split(text string) ([]string, error) {
	text = p.cleanText(text)
	if text == "" {
		return nil, nil
	}

	var chunks []string
	switch p.config.Splitter {
	case SplitterSentence:
		chunks = p.splitIntoChunks(text)
	case SplitterRecursive:
		var err error
		chunks, err = p.recursive.SplitText(text)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown splitter %q", p.config.Splitter)
	}

	var kept []string
	for _, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) >= p.config.MinChunkLength {
			kept = append(kept, chunk)
		}
	}
	if len(kept) == 0 {
		kept = []string{text}
	}
	return kept, nil
}

func (p *Processor) cleanText(text string) string {
	if p.config.Lowercase {
		text = strings.ToLower(text)
	}

	// Collapse runs of spaces but keep paragraph breaks for the recursive splitter.
	paragraphs := strings.Split(text, "\n")
	var kept []string
	for _, para := range paragraphs {
		para = strings.Join(strings.Fields(para), " ")
		if p.config.RemoveStopwords {
			para = p.removeStopwords(para)
		}
		if para != "" {
			kept = append(kept, para)
		}
	}

	return strings.Join(kept, "\n")
}

func (p *Processor) splitIntoChunks(text string) []string {
	var chunks []string

	sentences := p.splitIntoSentences(text)

	currentChunk := strings.Builder{}

	for _, sentence := range sentences {
		if currentChunk.Len() > 0 && currentChunk.Len()+len(sentence) > p.config.ChunkSize {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))

			// Start new chunk with overlap
			tail := overlapTail(currentChunk.String(), p.config.ChunkOverlap)
			currentChunk.Reset()
			currentChunk.WriteString(tail)
		}

		currentChunk.WriteString(sentence)
		currentChunk.WriteString(" ")
	}

	if strings.TrimSpace(currentChunk.String()) != "" {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

// overlapTail returns roughly the last n bytes of s, starting on a word boundary.
func overlapTail(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return ""
	}
	tail := s[len(s)-n:]
	if i := strings.IndexByte(tail, ' '); i >= 0 {
		tail = tail[i+1:]
	}
	return tail
}

func (p *Processor) splitIntoSentences(text string) []string {
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		c := text[i]
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		if i+1 < len(text) && text[i+1] != ' ' && text[i+1] != '\n' {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func (p *Processor) removeStopwords(text string) string {
	stop := make(map[string]struct{}, len(stopwords)+len(p.config.CustomStopwords))
	for _, w := range Stopwords() {
		stop[w] = struct{}{}
	}
	for _, w := range p.config.CustomStopwords {
		stop[strings.ToLower(w)] = struct{}{}
	}

	var filtered []string
	for _, word := range strings.Fields(text) {
		if _, ok := stop[strings.ToLower(word)]; !ok {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

var stopwords = []string{
	"a", "about", "after", "all", "also", "an", "and", "any", "are", "as", "at",
	"be", "been", "but", "by", "can", "could", "did", "do", "does", "for", "from",
	"had", "has", "have", "he", "her", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "may", "more", "most", "not", "of", "on", "or", "our", "out",
	"she", "so", "some", "such", "than", "that", "the", "their", "them", "then",
	"there", "these", "they", "this", "those", "to", "up", "was", "we", "were",
	"what", "when", "which", "who", "will", "with", "would", "you", "your",
}

// Stopwords returns the common English stopword list.
func Stopwords() []string {
	out := make([]string, len(stopwords))
	copy(out, stopwords)
	return out
}
