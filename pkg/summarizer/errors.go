package summarizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/skim/internal/unidoc"
)

var (
	ErrEmptyInput          = errors.New("empty input")
	ErrNoFile              = errors.New("no file uploaded")
	ErrInsufficientContent = errors.New("insufficient content")
	ErrCompletion          = errors.New("completion failed")
)

const (
	MsgEmptyURL            = "Please enter a URL."
	MsgNoFile              = "Please upload a PDF file."
	MsgInsufficientContent = "Failed to extract article content. Try another URL."
	MsgPDFUnavailable      = "PDF support is not configured. Set UNIDOC_LICENSE_KEY to enable PDF upload and export."
)

// CompletionError carries the provider's error. It matches ErrCompletion.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return "completion failed: " + e.Err.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

func (e *CompletionError) Is(target error) bool {
	return target == ErrCompletion
}

// ExtractionError marks an extraction failure as insufficient content. A
// missing PDF license is passed through so it is not blamed on the input.
func ExtractionError(err error) error {
	if errors.Is(err, unidoc.ErrUnlicensed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInsufficientContent, err)
}

// UserMessage turns a pipeline error into the text shown to people.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ce *CompletionError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return MsgEmptyURL
	case errors.Is(err, ErrNoFile):
		return MsgNoFile
	case errors.Is(err, ErrInsufficientContent):
		return MsgInsufficientContent
	case errors.Is(err, unidoc.ErrUnlicensed):
		return MsgPDFUnavailable
	case errors.As(err, &ce):
		return "Error: " + strings.TrimSpace(ce.Err.Error())
	default:
		return "Error: " + err.Error()
	}
}
