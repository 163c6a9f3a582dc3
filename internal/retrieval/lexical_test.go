package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomworks/verdictd/internal/queryparser"
)

func TestLexicalRankerRanksByRelevance(t *testing.T) {
	ranker := NewLexicalRanker()
	doc := testDoc("d1",
		"payroll schedules are published quarterly by finance",
		"knee surgery requires a waiting period of twelve months",
		"knee surgery knee surgery knee surgery",
	)

	query := queryparser.Parse("knee surgery waiting period")
	hits, err := ranker.Rank(context.Background(), query, doc, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// The payroll chunk shares no query vocabulary and must not appear.
	for _, hit := range hits {
		assert.NotEqual(t, 0, hit.Chunk.Index)
	}
	// Scores are normalized cosine similarities, descending.
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		assert.LessOrEqual(t, hits[i].Score, 1.0+1e-9)
	}
}

func TestLexicalRankerSynonymExpansion(t *testing.T) {
	ranker := NewLexicalRanker()
	// The document never uses the query's words, only their domain
	// synonyms.
	doc := testDoc("d2",
		"orthopedic joint operation notes",
		"quarterly payroll report",
	)

	query := queryparser.Parse("knee surgery")
	hits, err := ranker.Rank(context.Background(), query, doc, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 0, hits[0].Chunk.Index)
}

func TestLexicalRankerNoSharedVocabulary(t *testing.T) {
	ranker := NewLexicalRanker()
	doc := testDoc("d3", "quarterly payroll report for finance")

	_, err := ranker.Rank(context.Background(), queryparser.Parse("zebra migration patterns"), doc, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTierUnavailable)
}

func TestLexicalRankerEmptyDocument(t *testing.T) {
	ranker := NewLexicalRanker()
	doc := testDoc("d4")

	_, err := ranker.Rank(context.Background(), queryparser.Parse("anything"), doc, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTierUnavailable)
}

func TestLexicalRankerModelReuse(t *testing.T) {
	ranker := NewLexicalRanker()
	doc := testDoc("d5", "knee surgery waiting period", "premium payment schedule")

	first, err := ranker.Rank(context.Background(), queryparser.Parse("knee surgery"), doc, 10)
	require.NoError(t, err)
	second, err := ranker.Rank(context.Background(), queryparser.Parse("knee surgery"), doc, 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLexicalRankerReleaseDropsModel(t *testing.T) {
	ranker := NewLexicalRanker()

	// Each request-scoped document must leave nothing behind once
	// released, or the cache grows with every request.
	for i := 0; i < 100; i++ {
		doc := testDoc(fmt.Sprintf("req-%d", i), "knee surgery waiting period")
		_, err := ranker.Rank(context.Background(), queryparser.Parse("knee surgery"), doc, 10)
		require.NoError(t, err)
		ranker.Release(doc.ID)
	}
	assert.Empty(t, ranker.models)

	// Releasing an unknown document is a no-op.
	ranker.Release("never-ranked")

	// A released document is simply refitted on the next request.
	doc := testDoc("d6", "knee surgery waiting period")
	_, err := ranker.Rank(context.Background(), queryparser.Parse("knee surgery"), doc, 10)
	require.NoError(t, err)
	assert.Len(t, ranker.models, 1)
}

func TestExpandQuery(t *testing.T) {
	expanded := expandQuery([]string{"knee", "surgery"})

	// Originals kept, synonyms appended in token order.
	assert.Equal(t, []string{
		"knee", "surgery",
		"patella", "orthopedic", "joint",
		"procedure", "operation", "surgical",
	}, expanded)

	assert.Equal(t, []string{"zebra"}, expandQuery([]string{"zebra"}))
}
