package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/xhad/skim/internal/app"
	"github.com/xhad/skim/internal/logging"
	"github.com/xhad/skim/internal/models"
	"github.com/xhad/skim/internal/unidoc"
	"github.com/xhad/skim/server"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	addr := flag.String("addr", "", "Listen address (overrides server.addr)")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		log.Fatal(err)
	}
}

func run(configPath, addr string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{QA: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if !unidoc.Licensed() {
		logger.Warn("no unidoc license key; PDF upload and PDF export will return 501",
			zap.String("env", "UNIDOC_LICENSE_KEY"))
	}

	// Validate has already rejected unknown styles.
	style, _ := models.ParseStyle(cfg.Summary.DefaultStyle)

	srv := server.NewWithConfig(server.ServerConfig{
		Summarizer:     a.Summarizer,
		QA:             a.QA,
		History:        a.History,
		URLExtractor:   a.Scraper,
		PDFExtractor:   a.PDF,
		Crawler:        a.Scraper,
		Events:         a.Events,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxUploadBytes: int64(cfg.PDF.MaxUploadMB) << 20,
		DefaultStyle:   style,
		Logger:         logger.Named("server"),
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("provider", cfg.LLM.Provider),
			zap.String("model", a.Completer.ModelName()),
			zap.String("store", cfg.QA.Store))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
