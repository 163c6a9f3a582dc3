// Package retrieval ranks document chunks against a query using a tiered
// set of strategies with automatic capability-based fallback.
//
// Three tiers are attempted in priority order: dense-vector similarity over
// a per-document chromem index, TF-IDF cosine similarity with domain-synonym
// query expansion, and Jaccard token overlap. A tier signals that it cannot
// produce a ranking with ErrTierUnavailable; the engine catches exactly that
// signal and moves on. The last tier has no external dependency and always
// yields a ranking (possibly empty).
package retrieval

import (
	"context"
	"errors"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

// Sentinel errors for retrieval operations.
var (
	// ErrTierUnavailable signals that a tier cannot initialize or score.
	// The engine catches it and falls back to the next tier; it never
	// surfaces to callers.
	ErrTierUnavailable = errors.New("retrieval tier unavailable")

	// ErrInvalidConfig indicates invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid retrieval configuration")
)

// Tier identifiers, reported in Result.Method.
const (
	MethodEmbedding = "embedding"
	MethodLexical   = "tfidf"
	MethodKeyword   = "keyword-overlap"
)

// Hit is one ranked chunk with the score that justified its inclusion.
type Hit struct {
	Chunk document.Chunk `json:"chunk"`
	Score float64        `json:"score"`
	Rank  int            `json:"rank"`
}

// Result is an ordered ranking of chunks. Method names the tier that
// actually produced the output; callers rely on it for explainability, not
// just diagnostics. TotalChunks carries the source document's chunk count
// so consumers can tell an empty document from a query with no overlap.
type Result struct {
	Method      string `json:"method"`
	Hits        []Hit  `json:"hits"`
	TotalChunks int    `json:"total_chunks"`
}

// Empty reports whether the ranking contains no hits.
func (r *Result) Empty() bool {
	return len(r.Hits) == 0
}

// Ranker scores a document's chunks against a parsed query and returns them
// in descending score order. Implementations return ErrTierUnavailable
// (wrapped) for any initialization or scoring failure; they never return
// broad errors.
type Ranker interface {
	// Name returns the tier identifier.
	Name() string

	// Rank scores the document's chunks against the query and returns up
	// to k scored chunks, highest score first. Ties are broken by chunk
	// index ascending.
	Rank(ctx context.Context, query *queryparser.ParsedQuery, doc *document.Document, k int) ([]Hit, error)
}

// releaser is implemented by tiers that cache per-document index state.
// Release discards the state for one document so callers that mint a
// document per request do not accumulate dead indexes.
type releaser interface {
	Release(docID string)
}
