package storage

import (
	"context"
	"fmt"

	"docrag/internal/models"
)

// ChunkRecord is one row destined for the chunks table. Embedding is the
// pgvector text literal; Metadata lands in the jsonb column with the fixed
// keys title, file_type, filename and page. The document id is assigned by
// the store at write time.
type ChunkRecord struct {
	PageNumber int
	ChunkIndex int
	Text       string
	Embedding  string
	Metadata   map[string]any
}

// Store persists documents together with their chunk sets.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// ReplaceDocument upserts the document by checksum and swaps its chunk set,
// all inside one transaction. A failure at any point rolls back every write,
// the document row included, so the store never holds a half-ingested
// document. Returns the id of the surviving document row.
func (s *Store) ReplaceDocument(ctx context.Context, doc models.Document, rows []ChunkRecord) (string, error) {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx replace document: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id string
	err = tx.QueryRow(ctx, `
INSERT INTO documents (title, source_path, file_checksum)
VALUES ($1, $2, $3)
ON CONFLICT (file_checksum)
DO UPDATE SET
  title = EXCLUDED.title,
  source_path = EXCLUDED.source_path
RETURNING id::text`,
		doc.Title, doc.SourcePath, doc.Checksum,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1::uuid`, id); err != nil {
		return "", fmt.Errorf("delete old chunks: %w", err)
	}
	for _, c := range rows {
		_, err := tx.Exec(ctx, `
INSERT INTO chunks (document_id, page_number, chunk_index, chunk_text, embedding, metadata)
VALUES ($1::uuid, $2, $3, $4, $5::vector, $6)`,
			id, c.PageNumber, c.ChunkIndex, c.Text, c.Embedding, c.Metadata,
		)
		if err != nil {
			return "", fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit replace document: %w", err)
	}
	return id, nil
}
