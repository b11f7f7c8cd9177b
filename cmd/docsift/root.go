package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/langid"
	"github.com/dgallion1/docsift/internal/pipeline"
	"github.com/dgallion1/docsift/internal/textnorm"
)

var (
	verbose    bool
	tuningFile string
)

var rootCmd = &cobra.Command{
	Use:   "docsift",
	Short: "Extract document outlines and rank sections for a persona",
	Long: `docsift reads a directory of documents (PDF, Markdown, HTML, DOCX, text, CSV),
recovers each document's heading outline from font statistics, and ranks the
resulting sections against a persona and the task they need done.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "could not load .env file:", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().StringVar(&tuningFile, "tuning", "", "YAML tuning file (overrides DOCSIFT_TUNING_FILE)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newProcessor loads configuration and wires the collaborators the batch
// commands share.
func newProcessor(log *slog.Logger) (*pipeline.Processor, config.Config, error) {
	if tuningFile != "" {
		os.Setenv("DOCSIFT_TUNING_FILE", tuningFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, cfg, err
	}

	tok, err := textnorm.NewTokenizer(cfg.JapaneseTokenizer)
	if err != nil {
		return nil, cfg, err
	}
	var rdb *redis.Client
	if cfg.EmbedRedisURL != "" {
		opts, err := redis.ParseURL(cfg.EmbedRedisURL)
		if err != nil {
			return nil, cfg, fmt.Errorf("parse EMBED_REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opts)
	}
	enc, _, err := embed.New(embed.Options{
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
		return nil, cfg, fmt.Errorf("init encoder: %w", err)
	}
	log.Debug("collaborators ready", "encoder", enc.Version(), "langid", cfg.LangIDBackend)
	return pipeline.NewProcessor(cfg, enc, tok, langid.New(cfg.LangIDBackend), log), cfg, nil
}
