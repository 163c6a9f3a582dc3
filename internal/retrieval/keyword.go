package retrieval

import (
	"context"
	"sort"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

// KeywordRanker is the lowest-quality, always-available tier. It ranks
// chunks by Jaccard similarity between lowercase token sets and requires a
// non-zero overlap for inclusion. It cannot fail to produce a ranking; with
// no token overlap the ranking is legitimately empty.
type KeywordRanker struct{}

// NewKeywordRanker creates the keyword-overlap tier.
func NewKeywordRanker() *KeywordRanker {
	return &KeywordRanker{}
}

// Name returns the tier identifier.
func (r *KeywordRanker) Name() string { return MethodKeyword }

// Rank scores chunks by Jaccard similarity against the query token set.
func (r *KeywordRanker) Rank(_ context.Context, query *queryparser.ParsedQuery, doc *document.Document, k int) ([]Hit, error) {
	queryTokens := tokenSet(query.Raw)
	if len(queryTokens) == 0 {
		return nil, nil
	}

	hits := make([]Hit, 0, len(doc.Chunks))
	for _, chunk := range doc.Chunks {
		score := jaccard(queryTokens, tokenSet(chunk.Text))
		if score > 0 {
			hits = append(hits, Hit{Chunk: chunk, Score: score})
		}
	}

	sortHits(hits)
	return truncate(hits, k), nil
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range tokenize(text) {
		set[token] = true
	}
	return set
}

// jaccard computes |a ∩ b| / |a ∪ b| for two token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for token := range a {
		if b[token] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// sortHits orders hits by score descending; equal scores are ordered by
// chunk index ascending so earlier text deterministically wins ties.
func sortHits(hits []Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
}

func truncate(hits []Hit, k int) []Hit {
	if k > 0 && len(hits) > k {
		return hits[:k]
	}
	return hits
}
