// Package answer assembles a short extractive answer from retrieved chunks
// when no generative model is available.
package answer

import (
	"sort"
	"strings"

	"docrag/internal/models"
)

const (
	maxHits          = 5
	maxCandidates    = 4
	maxSelected      = 5
	maxBullets       = 4
	maxSentenceRunes = 300
	maxAnswerRunes   = 700
	similarThreshold = 0.75
)

// NoEvidenceAnswer is returned when retrieval produced zero hits; neither the
// generative nor the extractive path runs in that case.
const NoEvidenceAnswer = "No relevant information was found in the ingested documents for this question."

// Similarity reports how close two sentences are, in [0,1]. Used for
// near-duplicate suppression during sentence selection.
type Similarity interface {
	Score(a, b string) float64
}

// JaccardSimilarity compares lowercased whitespace-tokenized word sets.
// Empty sets never count as similar.
type JaccardSimilarity struct{}

func (JaccardSimilarity) Score(a, b string) float64 {
	as := wordSet(a)
	bs := wordSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}
	inter := 0
	for w := range as {
		if _, ok := bs[w]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Extractor synthesizes an answer verbatim from retrieved sentences.
type Extractor struct {
	sim Similarity
}

func NewExtractor(sim Similarity) *Extractor {
	if sim == nil {
		sim = JaccardSimilarity{}
	}
	return &Extractor{sim: sim}
}

// Extract picks the best-weighted non-redundant sentences from the top hits.
// The answer text is the space-joined selection truncated to 700 characters;
// up to the first four selected sentences become bullets. Hits whose text has
// no sentence boundaries fall back to the raw text of the top-scoring hit.
func (e *Extractor) Extract(hits []models.RetrievalHit) (string, []string) {
	if len(hits) == 0 {
		return NoEvidenceAnswer, nil
	}

	top := make([]models.RetrievalHit, len(hits))
	copy(top, hits)
	sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
	if len(top) > maxHits {
		top = top[:maxHits]
	}

	type candidate struct {
		sentence string
		weight   float64
	}
	candidates := make([]candidate, 0, len(top)*maxCandidates)
	for _, h := range top {
		sentences := SplitSentences(h.ChunkText)
		for i, s := range sentences {
			if i >= maxCandidates {
				break
			}
			candidates = append(candidates, candidate{
				sentence: s,
				weight:   h.Score * positionBonus(i),
			})
		}
	}

	if len(candidates) == 0 {
		return truncateRunes(top[0].ChunkText, maxAnswerRunes), nil
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].weight > candidates[j].weight })

	selected := make([]string, 0, maxSelected)
	for _, c := range candidates {
		if len(selected) == maxSelected {
			break
		}
		redundant := false
		for _, s := range selected {
			if e.sim.Score(c.sentence, s) >= similarThreshold {
				redundant = true
				break
			}
		}
		if !redundant {
			selected = append(selected, c.sentence)
		}
	}

	text := truncateRunes(strings.Join(selected, " "), maxAnswerRunes)
	bullets := selected
	if len(bullets) > maxBullets {
		bullets = bullets[:maxBullets]
	}
	return text, bullets
}

// positionBonus weights sentences that open a chunk higher: 1.0 for the
// first, 0.85 for the second, 0.7 thereafter.
func positionBonus(i int) float64 {
	switch i {
	case 0:
		return 1.0
	case 1:
		return 0.85
	default:
		return 0.7
	}
}

// SplitSentences splits on a terminal punctuation mark (. ! ?) followed by
// whitespace or end of text. Internal whitespace runs collapse to single
// spaces and each sentence is capped at 300 characters. A trailing fragment with
// no terminal punctuation is dropped.
func SplitSentences(text string) []string {
	runes := []rune(text)
	out := make([]string, 0, 8)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		atEnd := i == len(runes)-1
		if !atEnd && !isSpace(runes[i+1]) {
			continue
		}
		s := strings.Join(strings.Fields(string(runes[start:i+1])), " ")
		if s != "" {
			out = append(out, truncateRunes(s, maxSentenceRunes))
		}
		start = i + 1
	}
	return out
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
