// Package vector builds and executes ranked nearest-neighbor retrieval
// against the pgvector-backed chunk store.
package vector

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"docrag/internal/models"

	"github.com/jackc/pgx/v5"
)

// SearchParams describe one retrieval request. MinScore <= 0 disables the
// threshold; DocumentID narrows the search to a single document.
type SearchParams struct {
	Vector     []float32
	DocumentID string
	MinScore   float64
	TopK       int
}

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Searcher struct {
	q Queryer
}

func NewSearcher(q Queryer) *Searcher {
	return &Searcher{q: q}
}

// Search returns hits ordered by descending similarity score, deduplicated by
// (document, page, chunk index) with the highest-scoring row winning, limited
// to TopK and restricted to score >= MinScore when a threshold is set.
func (s *Searcher) Search(ctx context.Context, p SearchParams) ([]models.RetrievalHit, error) {
	if p.TopK <= 0 {
		p.TopK = 8
	}
	query, args := buildSearchQuery(p)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	hits := make([]models.RetrievalHit, 0, p.TopK)
	for rows.Next() {
		var h models.RetrievalHit
		if err := rows.Scan(&h.DocumentID, &h.Title, &h.PageNumber, &h.ChunkIndex, &h.ChunkText, &h.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	// The window function already keeps one row per partition; ranking again
	// is idempotent and guards against store-level duplicate anomalies.
	return RankHits(hits, p.MinScore, p.TopK), nil
}

// buildSearchQuery constructs the single correct ranked query: duplicates are
// collapsed by a window partition before the score threshold and limit apply.
func buildSearchQuery(p SearchParams) (string, []any) {
	args := []any{ToLiteral(p.Vector)}

	var b strings.Builder
	b.WriteString("WITH q AS (SELECT $1::vector AS v)\n")
	b.WriteString(`SELECT document_id, title, page_number, chunk_index, chunk_text, score
FROM (
    SELECT
        d.id::text AS document_id,
        COALESCE(d.title, '') AS title,
        c.page_number,
        c.chunk_index,
        c.chunk_text,
        (1 - (c.embedding <=> q.v)) AS score,
        ROW_NUMBER() OVER (
            PARTITION BY d.id, c.page_number, c.chunk_index
            ORDER BY (1 - (c.embedding <=> q.v)) DESC
        ) AS rn
    FROM chunks c
    JOIN documents d ON d.id = c.document_id, q
) ranked
WHERE ranked.rn = 1`)

	if p.DocumentID != "" {
		args = append(args, p.DocumentID)
		b.WriteString(" AND ranked.document_id = $" + strconv.Itoa(len(args)))
	}
	if p.MinScore > 0 {
		args = append(args, p.MinScore)
		b.WriteString(" AND ranked.score >= $" + strconv.Itoa(len(args)))
	}

	args = append(args, p.TopK)
	b.WriteString("\nORDER BY ranked.score DESC\nLIMIT $" + strconv.Itoa(len(args)))

	return b.String(), args
}

// ToLiteral renders a vector as the pgvector text literal "[x,y,...]".
func ToLiteral(v []float32) string {
	parts := make([]string, 0, len(v))
	for _, x := range v {
		parts = append(parts, strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
