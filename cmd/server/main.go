package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/dgallion1/docsift/internal/api"
	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/langid"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/textnorm"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize collaborators.
	tok, err := textnorm.NewTokenizer(cfg.JapaneseTokenizer)
	if err != nil {
		log.Error("init tokenizer", "error", err)
		os.Exit(1)
	}
	var rdb *redis.Client
	if cfg.EmbedRedisURL != "" {
		opts, err := redis.ParseURL(cfg.EmbedRedisURL)
		if err != nil {
			log.Error("invalid EMBED_REDIS_URL", "error", err)
			os.Exit(1)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}
	enc, stats, err := embed.New(embed.Options{
		URL:        cfg.EmbedURL,
		Model:      cfg.EmbedModel,
		Dim:        cfg.EmbedDim,
		CacheSize:  cfg.EmbedCacheSize,
		RatePerSec: cfg.EmbedRatePerSec,
		Timeout:    cfg.EmbedTimeout,
		Tokenizer:  tok,
		Redis:      rdb,
		RedisTTL:   cfg.EmbedRedisTTL,
		Log:        log,
	})
	if err != nil {
		log.Error("init encoder", "error", err)
		os.Exit(1)
	}
	det := langid.New(cfg.LangIDBackend)

	// Initialize pipeline.
	proc := pipeline.NewProcessor(cfg, enc, tok, det, log)
	orch := pipeline.NewOrchestrator(cfg, proc, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, enc, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
	}()

	log.Info("starting docsift", "port", cfg.Port, "encoder", enc.Version(), "langid", cfg.LangIDBackend)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
