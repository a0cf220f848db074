// Package ingest runs the synchronous PDF ingestion pipeline: extract pages,
// normalize, chunk, embed, then persist the checksum-upserted document and
// its replacement chunk set in a single transaction.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"docrag/internal/extract"
	"docrag/internal/models"
	"docrag/internal/storage"
	"docrag/internal/util"
	"docrag/internal/vector"
)

// Pages whose raw extracted text is empty or shorter than this never reach
// the chunker. The threshold applies before normalization.
const minPageChars = 30

// Store writes the document row and its chunk set as one atomic unit; a
// failed write must leave neither behind.
type Store interface {
	ReplaceDocument(ctx context.Context, doc models.Document, rows []storage.ChunkRecord) (string, error)
}

type PassageEmbedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

type Pipeline struct {
	store    Store
	embedder PassageEmbedder
	maxChars int
	overlap  int
	log      *slog.Logger

	// extractPages is swappable so pipeline tests can feed page texts
	// without crafting real PDF bytes.
	extractPages func(data []byte) ([]string, error)
}

func NewPipeline(store Store, embedder PassageEmbedder, maxChars, overlap int, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if maxChars <= 0 {
		maxChars = 900
	}
	if overlap < 0 {
		overlap = 150
	}
	return &Pipeline{
		store:        store,
		embedder:     embedder,
		maxChars:     maxChars,
		overlap:      overlap,
		log:          log,
		extractPages: extract.Pages,
	}
}

type Result struct {
	DocumentID     string `json:"document_id"`
	ChunksInserted int    `json:"chunks_inserted"`
	Title          string `json:"title,omitempty"`
}

// IngestPDF runs the full pipeline for one uploaded PDF. Validation problems
// surface as the util sentinel errors before any embedding or store work;
// embedding and store failures abort with no partial writes.
func (p *Pipeline) IngestPDF(ctx context.Context, data []byte, filename, title string) (Result, error) {
	if len(data) == 0 {
		return Result{}, util.ErrEmptyUpload
	}
	pages, err := p.extractPages(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", util.ErrBadPDF, err)
	}
	if title == "" {
		title = filename
	}
	if title == "" {
		title = "Untitled PDF"
	}

	texts, metas := p.chunkPages(pages)
	if len(texts) == 0 {
		return Result{}, util.ErrNoExtractableText
	}

	vectors, err := p.embedder.EmbedPassages(ctx, texts)
	if err != nil {
		return Result{}, err
	}

	rows := make([]storage.ChunkRecord, 0, len(texts))
	for i, txt := range texts {
		rows = append(rows, storage.ChunkRecord{
			PageNumber: metas[i].page,
			ChunkIndex: i,
			Text:       txt,
			Embedding:  vector.ToLiteral(vectors[i]),
			Metadata: map[string]any{
				"title":     title,
				"file_type": "pdf",
				"filename":  filename,
				"page":      metas[i].page,
			},
		})
	}

	// Document row and chunk set commit or roll back together.
	docID, err := p.store.ReplaceDocument(ctx, models.Document{
		Title:      title,
		SourcePath: "upload:" + filename,
		Checksum:   util.SHA256Hex(data),
	}, rows)
	if err != nil {
		return Result{}, err
	}

	p.log.Info("document ingested", "document_id", docID, "pages", len(pages), "chunks", len(rows))
	return Result{DocumentID: docID, ChunksInserted: len(rows), Title: title}, nil
}

type chunkMeta struct {
	page int
}

// chunkPages drops unusable pages, normalizes the rest, and produces the
// flat chunk list with a document-global chunk index implied by position.
func (p *Pipeline) chunkPages(pages []string) ([]string, []chunkMeta) {
	texts := make([]string, 0, len(pages))
	metas := make([]chunkMeta, 0, len(pages))
	for i, raw := range pages {
		pageNum := i + 1
		if utf8.RuneCountInString(raw) < minPageChars {
			continue
		}
		cleaned := util.CleanText(raw)
		if cleaned == "" {
			continue
		}
		for _, c := range util.ChunkText(cleaned, p.maxChars, p.overlap) {
			texts = append(texts, c)
			metas = append(metas, chunkMeta{page: pageNum})
		}
	}
	return texts, metas
}
