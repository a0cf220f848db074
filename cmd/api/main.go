package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"docrag/internal/api"
	"docrag/internal/config"
	"docrag/internal/ingest"
	"docrag/internal/providers"
	"docrag/internal/storage"
	"docrag/internal/vector"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		log.Error("postgres ping failed", "err", err)
		os.Exit(1)
	}

	mgr, err := providers.NewManager(cfg.EmbedProviders, cfg.LLMProviders, cfg.EmbedDim)
	if err != nil {
		log.Error("provider setup failed", "err", err)
		os.Exit(1)
	}
	embedder := providers.NewEmbedder(mgr.EmbeddingProvider(), cfg.EmbedDim)

	pipeline := ingest.NewPipeline(storage.NewStore(db), embedder, cfg.ChunkMaxChars, cfg.ChunkOverlap, log)
	searcher := vector.NewSearcher(db.Pool)

	var generator providers.AnswerProvider
	if p, ok := mgr.AnswerProvider(); ok {
		generator = p
	}

	srv := api.NewServer(cfg, log, pipeline, embedder, searcher, generator)
	log.Info("docrag api listening",
		"addr", cfg.APIAddr,
		"embed_providers", cfg.EmbedProviders,
		"llm_providers", cfg.LLMProviders,
		"embed_dim", cfg.EmbedDim)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Error("server exited", "err", err)
		os.Exit(1)
	}
}
