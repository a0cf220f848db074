package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"docrag/internal/config"
	"docrag/internal/ingest"
	"docrag/internal/providers"
	"docrag/internal/storage"

	"github.com/joho/godotenv"
)

// Ingests a PDF from disk through the same pipeline the API uses. Handy for
// bulk-loading a corpus without going through multipart uploads.
func main() {
	pdfPath := flag.String("pdf", "", "path to the PDF file to ingest")
	title := flag.String("title", "", "document title (defaults to the filename)")
	flag.Parse()

	if *pdfPath == "" {
		fmt.Fprintln(os.Stderr, "usage: ingest -pdf <file.pdf> [-title <title>]")
		os.Exit(2)
	}

	_ = godotenv.Load(".env")
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	data, err := os.ReadFile(*pdfPath)
	if err != nil {
		log.Error("read pdf failed", "path", *pdfPath, "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	mgr, err := providers.NewManager(cfg.EmbedProviders, cfg.LLMProviders, cfg.EmbedDim)
	if err != nil {
		log.Error("provider setup failed", "err", err)
		os.Exit(1)
	}
	embedder := providers.NewEmbedder(mgr.EmbeddingProvider(), cfg.EmbedDim)

	pipeline := ingest.NewPipeline(storage.NewStore(db), embedder, cfg.ChunkMaxChars, cfg.ChunkOverlap, log)

	res, err := pipeline.IngestPDF(ctx, data, filepath.Base(*pdfPath), *title)
	if err != nil {
		log.Error("ingest failed", "path", *pdfPath, "err", err)
		os.Exit(1)
	}
	log.Info("ingested", "document_id", res.DocumentID, "chunks", res.ChunksInserted, "title", res.Title)
}
