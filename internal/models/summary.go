package models

import (
	"fmt"
	"strings"
	"time"
)

type Style string

const (
	StyleShort    Style = "Short"
	StyleDetailed Style = "Detailed"
	StyleBullet   Style = "Bullet"
)

var Styles = []Style{StyleShort, StyleDetailed, StyleBullet}

// ParseStyle matches s case-insensitively against the known styles.
// An empty string selects StyleShort.
func ParseStyle(s string) (Style, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return StyleShort, nil
	}
	for _, style := range Styles {
		if strings.EqualFold(s, string(style)) {
			return style, nil
		}
	}
	return "", fmt.Errorf("unknown summary style %q", s)
}

type Sentiment struct {
	Label    string  `json:"label"`
	Polarity float64 `json:"polarity"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
}

type Keyword struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

type Annotation struct {
	Sentiment Sentiment `json:"sentiment"`
	Keywords  []Keyword `json:"keywords"`
}

type Summary struct {
	ID            string      `json:"id"`
	Source        string      `json:"source"`
	Kind          Kind        `json:"kind"`
	Title         string      `json:"title,omitempty"`
	Style         Style       `json:"style"`
	Text          string      `json:"summary"`
	Model         string      `json:"model,omitempty"`
	Annotation    *Annotation `json:"annotation,omitempty"`
	ContentLength int         `json:"content_length"`
	DurationMS    int64       `json:"duration_ms"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Progress is a pipeline stage notification.
type Progress struct {
	RequestID string `json:"request_id,omitempty"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
}
