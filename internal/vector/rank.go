package vector

import (
	"sort"

	"docrag/internal/models"
)

type hitKey struct {
	doc   string
	page  int
	chunk int
}

// RankHits collapses duplicate rows per (document, page, chunk index) keeping
// the highest-scoring instance, then applies the score threshold, orders by
// descending score, and truncates to topK. Dedupe happens strictly before the
// threshold and limit: filtering first could admit a lower-scoring duplicate
// or under-fill the result. topK <= 0 means no limit. Out-of-range scores
// pass through untouched; clamping is the caller's projection concern.
func RankHits(hits []models.RetrievalHit, minScore float64, topK int) []models.RetrievalHit {
	best := make(map[hitKey]models.RetrievalHit, len(hits))
	for _, h := range hits {
		k := hitKey{doc: h.DocumentID, page: h.PageNumber, chunk: h.ChunkIndex}
		if cur, ok := best[k]; !ok || h.Score > cur.Score {
			best[k] = h
		}
	}

	out := make([]models.RetrievalHit, 0, len(best))
	for _, h := range best {
		if minScore > 0 && h.Score < minScore {
			continue
		}
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		if out[i].PageNumber != out[j].PageNumber {
			return out[i].PageNumber < out[j].PageNumber
		}
		return out[i].ChunkIndex < out[j].ChunkIndex
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}
