package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/fatih/color"
	"github.com/xhad/skim/internal/app"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/pkg/export"
	"github.com/xhad/skim/pkg/summarizer"
)

type Config struct {
	ConfigPath string
	URL        string
	PDF        string
	Style      string
	Annotate   bool
	Export     string
	QA         bool
	Depth      int
	Streaming  bool
	Watch      string
	Raw        bool
	Verbose    bool
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		color.Red("%s", summarizer.UserMessage(err))
		os.Exit(1)
	}
}

func parseFlags() Config {
	var config Config

	flag.StringVar(&config.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&config.URL, "url", "", "Web page to summarize")
	flag.StringVar(&config.PDF, "pdf", "", "PDF file to summarize")
	flag.StringVar(&config.Style, "style", "", "Summary style: Short, Detailed or Bullet")
	flag.BoolVar(&config.Annotate, "annotate", false, "Add sentiment and keywords")
	flag.StringVar(&config.Export, "export", "", "Write the summary to this file (.pdf, .txt or .md)")
	flag.BoolVar(&config.QA, "qa", false, "Ask questions about the page or PDF instead of summarizing")
	flag.IntVar(&config.Depth, "depth", 0, "Crawl depth for -qa (overrides scraper.max_depth)")
	flag.BoolVar(&config.Streaming, "stream", false, "Print the summary as it is generated")
	flag.StringVar(&config.Watch, "watch", "", "Summarize every PDF dropped into this directory")
	flag.BoolVar(&config.Raw, "raw", false, "Print markdown without terminal rendering")
	flag.BoolVar(&config.Verbose, "v", false, "Verbose logging")
	flag.Parse()

	// A bare argument is taken as the URL.
	if config.URL == "" && config.PDF == "" && flag.NArg() > 0 {
		arg := flag.Arg(0)
		if strings.HasSuffix(strings.ToLower(arg), ".pdf") {
			config.PDF = arg
		} else {
			config.URL = arg
		}
	}

	return config
}

// checkInput rejects a run with nothing to read before any client is built.
func checkInput(config Config) error {
	if config.Watch == "" && config.URL == "" && config.PDF == "" {
		return summarizer.ErrEmptyInput
	}
	return nil
}

func run(config Config) error {
	if err := checkInput(config); err != nil {
		return err
	}

	cfg, err := app.LoadConfig(config.ConfigPath)
	if err != nil {
		return err
	}
	if config.Depth > 0 {
		cfg.Scraper.MaxDepth = config.Depth
	}

	level := "warn"
	if config.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	style, err := models.ParseStyle(config.Style)
	if err != nil {
		return err
	}
	if config.Style == "" {
		style, _ = models.ParseStyle(cfg.Summary.DefaultStyle)
	}

	exportFormat := ""
	if config.Export != "" {
		if exportFormat, err = export.ParseFormat(config.Export); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pages int32
	a, err := app.New(ctx, cfg, logger, app.Options{
		QA: config.QA,
		OnPage: func(url string) {
			atomic.AddInt32(&pages, 1)
		},
	})
	if err != nil {
		return err
	}
	defer a.Close()

	opts := summarizer.Options{
		Style:    style,
		Annotate: config.Annotate || cfg.Summary.Annotate,
	}

	switch {
	case config.Watch != "":
		return watch(ctx, a, config.Watch, opts)
	case config.QA:
		return chat(ctx, a, config, &pages)
	default:
		return summarize(ctx, a, config, opts, exportFormat)
	}
}

func summarize(ctx context.Context, a *app.App, config Config, opts summarizer.Options, exportFormat string) error {
	if config.URL == "" && config.PDF == "" {
		return summarizer.ErrEmptyInput
	}

	spin := startSpinner(ctx, "📄 Extracting content...", a.Events)
	defer spin.Stop()

	if config.Streaming {
		started := false
		opts.OnChunk = func(chunk string) error {
			if !started {
				spin.Stop()
				started = true
			}
			fmt.Print(chunk)
			return nil
		}
	}

	var (
		summary *models.Summary
		err     error
	)
	if config.PDF != "" {
		f, openErr := os.Open(config.PDF)
		if openErr != nil {
			return fmt.Errorf("failed to open %s: %w", config.PDF, openErr)
		}
		defer f.Close()
		summary, err = a.Summarizer.SummarizePDF(ctx, f, config.PDF, opts)
	} else {
		summary, err = a.Summarizer.SummarizeURL(ctx, config.URL, opts)
	}
	spin.Stop()
	if err != nil {
		return err
	}

	if config.Streaming {
		fmt.Println()
	} else {
		fmt.Print(render(summaryMarkdown(summary), config.Raw))
	}
	printAnnotation(summary.Annotation)
	printMeta(summary)

	if exportFormat != "" {
		data, err := export.Render(exportFormat, *summary)
		if err != nil {
			return err
		}
		if err := os.WriteFile(config.Export, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", config.Export, err)
		}
		color.Green("✓ Saved %s", config.Export)
	}
	return nil
}

func loadDocuments(ctx context.Context, a *app.App, config Config, pages *int32) ([]models.Document, error) {
	if config.PDF != "" {
		doc, err := a.PDF.ExtractFile(ctx, config.PDF)
		if err != nil {
			return nil, summarizer.ExtractionError(err)
		}
		return []models.Document{doc}, nil
	}
	if config.URL == "" {
		return nil, summarizer.ErrEmptyInput
	}

	if a.Config.Scraper.MaxDepth > 1 {
		color.Blue("Crawling %s (depth %d)", config.URL, a.Config.Scraper.MaxDepth)
		docs, err := a.Scraper.Scrape(ctx, config.URL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", summarizer.ErrInsufficientContent, err)
		}
		color.Green("✓ Scraped %d pages", atomic.LoadInt32(pages))
		return docs, nil
	}

	doc, err := a.Scraper.Extract(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", summarizer.ErrInsufficientContent, err)
	}
	return []models.Document{doc}, nil
}

// chat indexes the input once and answers questions until "exit".
func chat(ctx context.Context, a *app.App, config Config, pages *int32) error {
	spin := startSpinner(ctx, "📄 Loading documents...", nil)
	docs, err := loadDocuments(ctx, a, config, pages)
	spin.Stop()
	if err != nil {
		return err
	}

	spin = startSpinner(ctx, "🔄 Indexing...", nil)
	session, err := a.QA.Index(ctx, docs...)
	spin.Stop()
	if err != nil {
		return err
	}
	color.Green("✓ Indexed %d chunks from %d source(s)", session.Chunks, len(session.Sources))

	color.Cyan("\nAsk about %s (type 'exit' to quit)", strings.Join(session.Sources, ", "))

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(question, "exit") {
			break
		}
		if question == "" {
			continue
		}

		var onChunk func(string) error
		if config.Streaming {
			assistantPrompt("Assistant: ")
			onChunk = func(chunk string) error {
				fmt.Print(chunk)
				return nil
			}
		}

		answer, err := a.QA.Ask(ctx, session.ID, question, onChunk)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			color.Red("\n%s", summarizer.UserMessage(err))
			continue
		}

		if config.Streaming {
			fmt.Println()
		} else {
			assistantPrompt("Assistant: ")
			fmt.Print(render(answer.Text, config.Raw))
		}
	}

	return scanner.Err()
}
