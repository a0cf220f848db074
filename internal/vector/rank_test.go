package vector

import (
	"testing"

	"docrag/internal/models"

	"github.com/stretchr/testify/require"
)

func hit(doc string, page, idx int, score float64) models.RetrievalHit {
	return models.RetrievalHit{DocumentID: doc, PageNumber: page, ChunkIndex: idx, Score: score}
}

func TestRankHitsKeepsHighestScoringDuplicate(t *testing.T) {
	in := []models.RetrievalHit{
		hit("D", 3, 2, 0.91),
		hit("D", 3, 2, 0.93),
		hit("D", 1, 0, 0.5),
	}
	out := RankHits(in, 0, 10)
	require.Len(t, out, 2)
	require.Equal(t, 0.93, out[0].Score)
	require.Equal(t, 2, out[0].ChunkIndex)
}

func TestRankHitsDedupesBeforeThreshold(t *testing.T) {
	// The 0.93 duplicate must survive a 0.92 threshold even though its
	// sibling row scores below it.
	in := []models.RetrievalHit{
		hit("D", 3, 2, 0.91),
		hit("D", 3, 2, 0.93),
	}
	out := RankHits(in, 0.92, 10)
	require.Len(t, out, 1)
	require.Equal(t, 0.93, out[0].Score)
}

func TestRankHitsThresholdAndLimit(t *testing.T) {
	in := []models.RetrievalHit{
		hit("A", 1, 0, 0.8),
		hit("A", 1, 1, 0.85),
		hit("A", 1, 2, 0.95),
		hit("B", 1, 0, 0.92),
	}
	out := RankHits(in, 0.9, 1)
	require.Len(t, out, 1)
	require.Equal(t, 0.95, out[0].Score)

	empty := RankHits(in[:2], 0.9, 10)
	require.Empty(t, empty)
}

func TestRankHitsIdempotent(t *testing.T) {
	in := []models.RetrievalHit{
		hit("A", 2, 1, 0.7),
		hit("A", 2, 1, 0.6),
		hit("B", 1, 0, 0.9),
		hit("C", 4, 3, 0.4),
	}
	once := RankHits(in, 0.5, 5)
	twice := RankHits(once, 0.5, 5)
	require.Equal(t, once, twice)
}

func TestRankHitsDoesNotMaskOutOfRangeScores(t *testing.T) {
	// A score outside [0,1] means the upstream vectors were not normalized;
	// the ranker must surface it, not clip it.
	in := []models.RetrievalHit{hit("A", 1, 0, 1.2), hit("B", 1, 0, -0.3)}
	out := RankHits(in, 0, 10)
	require.Len(t, out, 2)
	require.Equal(t, 1.2, out[0].Score)
	require.Equal(t, -0.3, out[1].Score)
}

func TestRankHitsDeterministicTieBreak(t *testing.T) {
	in := []models.RetrievalHit{
		hit("B", 1, 0, 0.5),
		hit("A", 1, 0, 0.5),
	}
	out := RankHits(in, 0, 10)
	require.Equal(t, "A", out[0].DocumentID)
	require.Equal(t, "B", out[1].DocumentID)
}
