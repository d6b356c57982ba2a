// docqa answers questions about a local directory of documents. It
// ingests .txt, .md and .pdf files into a local vector index and
// retrieves the most relevant passages for a question, optionally
// synthesizing an answer through a local model runtime.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/answer"
	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/ollama"
	"docqa/internal/loader"
	"docqa/internal/service"
	"docqa/internal/vectorstore/memory"
	"docqa/internal/vectorstore/qdrant"
	"docqa/internal/vectorstore/sqlite"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over a local directory of documents",
	Long: `docqa ingests text, markdown and PDF files into a local vector
index and answers questions about them, citing the source passages.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config (default: ./config.yaml, then ~/.config/docqa/config.yaml)")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the assembled pipeline for one command invocation.
type app struct {
	cfg   *config.AppConfig
	log   *slog.Logger
	svc   *service.Service
	store domain.VectorStore
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing store", "error", err)
	}
}

func newApp() (*app, error) {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := newLogger(cfg.Log.Level)

	emb := ollama.NewClient(ollama.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		Model:     cfg.Embedder.Model,
		BatchSize: cfg.Embedder.BatchSize,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	})

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	var synth *answer.Synthesizer
	if cfg.Answer.Enabled {
		completer := answer.NewOllamaClient(answer.OllamaConfig{
			BaseURL: cfg.Answer.BaseURL,
			Model:   cfg.Answer.Model,
			Timeout: time.Duration(cfg.Answer.TimeoutSecs) * time.Second,
		})
		synth = answer.New(completer, time.Duration(cfg.Answer.TimeoutSecs)*time.Second, cfg.Answer.MaxContextChunks)
	}

	svc := service.New(
		loader.New(log),
		chunker.New(cfg.Chunker.Size, cfg.Chunker.Overlap, cfg.Chunker.BoundaryWindow),
		emb,
		store,
		synth,
		log,
		service.Config{Workers: cfg.Workers, TopK: cfg.Search.TopK},
	)
	return &app{cfg: cfg, log: log, svc: svc, store: store}, nil
}

func newStore(cfg *config.AppConfig) (domain.VectorStore, error) {
	switch cfg.Store.Type {
	case "sqlite", "":
		return sqlite.Open(cfg.Store.Path)
	case "qdrant":
		qcfg := qdrant.Config{}
		if cfg.Store.Qdrant != nil {
			qcfg = qdrant.Config{
				Host:       cfg.Store.Qdrant.Host,
				Port:       cfg.Store.Qdrant.Port,
				Collection: cfg.Store.Qdrant.Collection,
			}
		}
		return qdrant.Open(qcfg)
	case "memory":
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
