package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/xhad/skim/internal/app"
	"github.com/xhad/skim/pkg/export"
	"github.com/xhad/skim/pkg/summarizer"
	"go.uber.org/zap"
)

// settleDelay is how long a file must go without writes before it is read.
const settleDelay = 750 * time.Millisecond

// summaryPath returns where the summary of a watched PDF is written.
func summaryPath(pdfPath string) string {
	return strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath)) + ".summary.md"
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// watch summarizes every PDF created or rewritten in dir until ctx is done.
func watch(ctx context.Context, a *app.App, dir string, opts summarizer.Options) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	color.Cyan("Watching %s for PDFs (Ctrl+C to stop)", dir)

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
		wg      sync.WaitGroup
	)
	defer wg.Wait()

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := pending[path]; ok && t.Stop() {
			t.Reset(settleDelay)
			return
		}

		wg.Add(1)
		var t *time.Timer
		t = time.AfterFunc(settleDelay, func() {
			defer wg.Done()
			mu.Lock()
			if pending[path] == t {
				delete(pending, path)
			}
			mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			summarizeFile(ctx, a, path, opts)
		})
		pending[path] = t
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for path, t := range pending {
				if t.Stop() {
					wg.Done()
				}
				delete(pending, path)
			}
			mu.Unlock()
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isPDF(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				a.Logger.Debug("pdf changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
				schedule(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.Logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func summarizeFile(ctx context.Context, a *app.App, path string, opts summarizer.Options) {
	f, err := os.Open(path)
	if err != nil {
		color.Red("✗ %s: %v", filepath.Base(path), err)
		return
	}
	defer f.Close()

	summary, err := a.Summarizer.SummarizePDF(ctx, f, path, opts)
	if err != nil {
		color.Red("✗ %s: %s", filepath.Base(path), summarizer.UserMessage(err))
		return
	}

	data, err := export.Render(export.FormatMarkdown, *summary)
	if err != nil {
		color.Red("✗ %s: %v", filepath.Base(path), err)
		return
	}

	out := summaryPath(path)
	if err := os.WriteFile(out, data, 0o644); err != nil {
		color.Red("✗ %s: %v", filepath.Base(path), err)
		return
	}
	color.Green("✓ %s -> %s", filepath.Base(path), filepath.Base(out))
}
