package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStyle(t *testing.T) {
	tests := []struct {
		in      string
		want    Style
		wantErr bool
	}{
		{"", StyleShort, false},
		{"short", StyleShort, false},
		{"DETAILED", StyleDetailed, false},
		{" Bullet ", StyleBullet, false},
		{"haiku", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStyle(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentSource(t *testing.T) {
	assert.Equal(t, "https://example.com/a", Document{URL: "https://example.com/a"}.Source())
	assert.Equal(t, "report.pdf", Document{Metadata: map[string]interface{}{"filename": "/tmp/up/report.pdf"}}.Source())
	assert.Equal(t, "Untitled", Document{Title: "Untitled"}.Source())
}
