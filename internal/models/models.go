package models

import "time"

// Document identity is content-addressed: the sha256 checksum of the raw
// uploaded bytes. Re-ingesting identical bytes updates title/source_path of
// the existing row instead of creating a duplicate.
type Document struct {
	ID         string    `json:"document_id"`
	Title      string    `json:"title,omitempty"`
	SourcePath string    `json:"source_path,omitempty"`
	Checksum   string    `json:"file_checksum"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
}

// Chunk is the unit of embedding and retrieval: a bounded substring of one
// document page. Column names at the storage boundary are fixed by the
// documents/chunks schema.
type Chunk struct {
	DocumentID string         `json:"document_id"`
	PageNumber int            `json:"page_number"`
	ChunkIndex int            `json:"chunk_index"`
	Text       string         `json:"chunk_text"`
	Embedding  []float32      `json:"-"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// RetrievalHit is derived at query time, never stored.
// Score = 1 - cosine_distance(query, embedding).
type RetrievalHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	ChunkText  string  `json:"chunk_text,omitempty"`
	Score      float64 `json:"score"`
}

// Citation is the truncated-preview projection of a hit for user display.
type Citation struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	PageNumber int     `json:"page_number"`
	ChunkIndex int     `json:"chunk_index"`
	Preview    string  `json:"preview"`
	Score      float64 `json:"score"`
}
