package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/events"
	"github.com/xhad/skim/pkg/summarizer"
)

var stageLabels = map[string]string{
	summarizer.StageExtracting:  "📄 Extracting content...",
	summarizer.StageAnnotating:  "🔎 Annotating...",
	summarizer.StageSummarizing: "🤖 Generating summary...",
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// spinner animates a progressbar spinner and, when given a broker, relabels
// it from pipeline events.
type spinner struct {
	bar    *progressbar.ProgressBar
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func startSpinner(ctx context.Context, description string, broker *events.Broker[models.Progress]) *spinner {
	ctx, cancel := context.WithCancel(ctx)
	s := &spinner{bar: getSpinner(description), cancel: cancel}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		var ch <-chan events.Event[models.Progress]
		if broker != nil {
			ch = broker.Subscribe(ctx)
		}
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.bar.Add(1)
			case ev, ok := <-ch:
				if !ok {
					ch = nil
					continue
				}
				if label, found := stageLabels[ev.Payload.Stage]; found {
					s.bar.Describe(color.CyanString(label))
				}
			}
		}
	}()

	return s
}

// Stop halts the spinner and clears its line. Safe to call more than once.
func (s *spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.bar.Finish()
		s.bar.Clear()
		fmt.Fprint(os.Stderr, "\r")
	})
}

// render formats markdown for the terminal. raw prints it unchanged.
func render(markdown string, raw bool) string {
	if raw {
		return markdown
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}

func summaryMarkdown(s *models.Summary) string {
	var b strings.Builder
	if s.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", s.Title)
	}
	b.WriteString(s.Text)
	b.WriteString("\n")
	return b.String()
}

func printAnnotation(a *models.Annotation) {
	if a == nil {
		return
	}

	sentiment := color.New(color.FgYellow)
	switch a.Sentiment.Label {
	case "positive":
		sentiment = color.New(color.FgGreen)
	case "negative":
		sentiment = color.New(color.FgRed)
	}
	fmt.Print("Sentiment: ")
	sentiment.Printf("%s (%.2f)\n", a.Sentiment.Label, a.Sentiment.Polarity)

	if len(a.Keywords) > 0 {
		terms := make([]string, len(a.Keywords))
		for i, k := range a.Keywords {
			terms[i] = fmt.Sprintf("%s(%d)", k.Term, k.Count)
		}
		fmt.Printf("Keywords:  %s\n", color.BlueString(strings.Join(terms, ", ")))
	}
}

func printMeta(s *models.Summary) {
	color.New(color.Faint).Printf("%s · %s · %s · %.1fs\n",
		s.Source, s.Style, s.Model, float64(s.DurationMS)/1000)
}
