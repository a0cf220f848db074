package vector

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
)

// Diagnostics summarize embedding health across the chunk store: whether
// stored vectors are unit-normalized (self dot product ~ 1.0), how cosine
// distance to a probe query spreads, and whether any vectors collapsed to
// near-zero norm.
type Diagnostics struct {
	ChunkCount    int64
	SelfDotAvg    float64
	SelfDotMin    float64
	SelfDotMax    float64
	CosDistMin    float64
	CosDistMax    float64
	CosDistAvg    float64
	CosDistStd    float64
	NearZeroNorms int64
}

type RowQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	countChunksSQL = `SELECT COUNT(*) FROM chunks`

	// -(a <#> a) is the self dot product; ~1.0 everywhere means the stored
	// embeddings are normalized.
	selfDotSQL = `
SELECT
    COALESCE(AVG(- (embedding <#> embedding)), 0),
    COALESCE(MIN(- (embedding <#> embedding)), 0),
    COALESCE(MAX(- (embedding <#> embedding)), 0)
FROM chunks`

	cosSpreadSQL = `
WITH q AS (SELECT $1::vector AS v)
SELECT
    COALESCE(MIN(c.embedding <=> q.v), 0),
    COALESCE(MAX(c.embedding <=> q.v), 0),
    COALESCE(AVG(c.embedding <=> q.v), 0),
    COALESCE(STDDEV_POP(c.embedding <=> q.v), 0)
FROM chunks c, q`

	nearZeroSQL = `
SELECT COUNT(*)
FROM chunks
WHERE (- (embedding <#> embedding)) < 1e-6`
)

// Diagnose runs the store-health queries against the chunks table using the
// given query vector as the distance probe.
func Diagnose(ctx context.Context, q RowQueryer, vec []float32) (Diagnostics, error) {
	var d Diagnostics
	if err := q.QueryRow(ctx, countChunksSQL).Scan(&d.ChunkCount); err != nil {
		return d, fmt.Errorf("count chunks: %w", err)
	}
	if err := q.QueryRow(ctx, selfDotSQL).Scan(&d.SelfDotAvg, &d.SelfDotMin, &d.SelfDotMax); err != nil {
		return d, fmt.Errorf("self-dot stats: %w", err)
	}
	if err := q.QueryRow(ctx, cosSpreadSQL, ToLiteral(vec)).Scan(&d.CosDistMin, &d.CosDistMax, &d.CosDistAvg, &d.CosDistStd); err != nil {
		return d, fmt.Errorf("cosine spread: %w", err)
	}
	if err := q.QueryRow(ctx, nearZeroSQL).Scan(&d.NearZeroNorms); err != nil {
		return d, fmt.Errorf("near-zero norms: %w", err)
	}
	return d, nil
}

// Norm reports the L2 length of a vector. Unit-normalized query vectors keep
// cosine similarity scores inside [0,1].
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
