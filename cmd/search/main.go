package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docrag/internal/config"
	"docrag/internal/providers"
	"docrag/internal/storage"
	"docrag/internal/util"
	"docrag/internal/vector"

	"github.com/joho/godotenv"
)

// Queries the chunk store from the command line: same retrieval path as the
// /search endpoint, plus a -debug mode that checks the health of the stored
// embeddings (normalization, distance spread, broken vectors).
func main() {
	query := flag.String("query", "", "search text")
	topK := flag.Int("k", 0, "top-k results (defaults to TOP_K)")
	minScore := flag.Float64("min-score", -1, "keep results at or above this similarity (defaults to MIN_COSINE_SIM)")
	docID := flag.String("doc-id", "", "limit to a specific document UUID")
	chars := flag.Int("chars", 220, "preview characters to display, 0 for full text")
	debug := flag.Bool("debug", false, "print embedding diagnostics and raw cosine distances")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: search -query <text> [-k N] [-min-score S] [-doc-id UUID] [-chars N] [-debug]")
		os.Exit(2)
	}

	_ = godotenv.Load(".env")
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
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

	qvec, err := embedder.EmbedQuery(ctx, *query)
	if err != nil {
		log.Error("query embedding failed", "err", err)
		os.Exit(1)
	}

	if *debug {
		log.Info("query vector", "dim", len(qvec), "norm", vector.Norm(qvec))
		d, err := vector.Diagnose(ctx, db.Pool, qvec)
		if err != nil {
			log.Error("diagnostics failed", "err", err)
			os.Exit(1)
		}
		log.Info("chunk store", "count", d.ChunkCount, "near_zero_norms", d.NearZeroNorms)
		log.Info("self dot product", "avg", d.SelfDotAvg, "min", d.SelfDotMin, "max", d.SelfDotMax)
		log.Info("cosine distance to query", "min", d.CosDistMin, "max", d.CosDistMax, "avg", d.CosDistAvg, "std", d.CosDistStd)
	}

	params := vector.SearchParams{
		Vector:     qvec,
		DocumentID: *docID,
		TopK:       cfg.TopK,
		MinScore:   cfg.MinScore,
	}
	if *topK > 0 {
		params.TopK = *topK
	}
	if *minScore >= 0 {
		params.MinScore = *minScore
	}

	hits, err := vector.NewSearcher(db.Pool).Search(ctx, params)
	if err != nil {
		log.Error("search failed", "err", err)
		os.Exit(1)
	}
	if len(hits) == 0 {
		fmt.Println("No results.")
		return
	}

	for i, h := range hits {
		label := h.Title
		if label == "" {
			label = h.DocumentID
		}
		line := fmt.Sprintf("[%d] %s | page %d | idx %d | score %.6f", i+1, label, h.PageNumber, h.ChunkIndex, h.Score)
		if *debug {
			line += fmt.Sprintf(" | cos_dist %.6f", 1-h.Score)
		}
		fmt.Println(line)
		fmt.Println(previewFor(h.ChunkText, *chars) + "\n")
	}
}

func previewFor(text string, chars int) string {
	if chars <= 0 {
		return text
	}
	return util.Preview(text, chars)
}
