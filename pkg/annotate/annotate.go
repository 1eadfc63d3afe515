// Package annotate derives a coarse sentiment reading and the most frequent
// keywords from extracted text.
package annotate

import (
	"sort"
	"strings"
	"unicode"

	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/processor"
)

const neutralBand = 0.05

type AnnotatorConfig struct {
	KeywordCount  int
	MinWordLength int
	ExtraStops    []string
}

type Annotator struct {
	config AnnotatorConfig
	stops  map[string]struct{}
}

func NewWithConfig(config AnnotatorConfig) *Annotator {
	if config.KeywordCount == 0 {
		config.KeywordCount = 10
	}
	if config.MinWordLength == 0 {
		config.MinWordLength = 3
	}

	stops := make(map[string]struct{})
	for _, w := range processor.Stopwords() {
		stops[w] = struct{}{}
	}
	for _, w := range config.ExtraStops {
		stops[strings.ToLower(w)] = struct{}{}
	}

	return &Annotator{config: config, stops: stops}
}

func (a *Annotator) Annotate(text string) models.Annotation {
	words := tokenize(text)
	return models.Annotation{
		Sentiment: sentiment(words),
		Keywords:  a.keywords(words),
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

func sentiment(words []string) models.Sentiment {
	var s models.Sentiment
	for i, w := range words {
		w = strings.Trim(w, "'")
		score := 0
		if _, ok := positiveWords[w]; ok {
			score = 1
		} else if _, ok := negativeWords[w]; ok {
			score = -1
		}
		if score == 0 {
			continue
		}
		if negated(words, i) {
			score = -score
		}
		if score > 0 {
			s.Positive++
		} else {
			s.Negative++
		}
	}

	if total := s.Positive + s.Negative; total > 0 {
		s.Polarity = float64(s.Positive-s.Negative) / float64(total)
	}

	switch {
	case s.Polarity > neutralBand:
		s.Label = "positive"
	case s.Polarity < -neutralBand:
		s.Label = "negative"
	default:
		s.Label = "neutral"
	}
	return s
}

// negated looks up to two words back for a negator.
func negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-2; j-- {
		if _, ok := negators[words[j]]; ok {
			return true
		}
	}
	return false
}

func (a *Annotator) keywords(words []string) []models.Keyword {
	counts := make(map[string]int)
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len([]rune(w)) < a.config.MinWordLength {
			continue
		}
		if _, ok := a.stops[w]; ok {
			continue
		}
		counts[w]++
	}

	keywords := make([]models.Keyword, 0, len(counts))
	for term, n := range counts {
		keywords = append(keywords, models.Keyword{Term: term, Count: n})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Term < keywords[j].Term
	})

	if len(keywords) > a.config.KeywordCount {
		keywords = keywords[:a.config.KeywordCount]
	}
	return keywords
}
