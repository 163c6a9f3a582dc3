package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomworks/verdictd/internal/document"
	"github.com/fathomworks/verdictd/internal/queryparser"
)

// stubTier is a Ranker fixture with a canned response.
type stubTier struct {
	name string
	hits []Hit
	err  error
}

func (s *stubTier) Name() string { return s.name }

func (s *stubTier) Rank(context.Context, *queryparser.ParsedQuery, *document.Document, int) ([]Hit, error) {
	return s.hits, s.err
}

func unavailableTier(name string) *stubTier {
	return &stubTier{name: name, err: ErrTierUnavailable}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "defaults", config: Config{}},
		{name: "custom", config: Config{TopK: 8, MinScore: 0.2}},
		{name: "negative top_k", config: Config{TopK: -1, MinScore: 0.1}, wantErr: true},
		{name: "min_score out of range", config: Config{TopK: 4, MinScore: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEngineFallsBackPastUnavailableTier(t *testing.T) {
	// Embedding tier has no embedder, so retrieval must land on TF-IDF.
	engine, err := NewEngine(Config{}, nil, nil)
	require.NoError(t, err)

	doc := testDoc("d1",
		"knee surgery is covered after a waiting period of twelve months",
		"payroll schedules are published quarterly",
	)

	res, err := engine.Retrieve(context.Background(), doc, queryparser.Parse("knee surgery waiting period"), 0)
	require.NoError(t, err)
	assert.Equal(t, MethodLexical, res.Method)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, 0, res.Hits[0].Chunk.Index)
	assert.Equal(t, 2, res.TotalChunks)
}

func TestEngineFallsThroughToKeywordTier(t *testing.T) {
	engine, err := NewEngine(Config{}, nil, nil)
	require.NoError(t, err)

	// The query shares only stopwords with the document: the TF-IDF tier
	// (which drops stopwords) reports no shared vocabulary, while the
	// keyword tier still finds a non-zero overlap.
	doc := testDoc("d1", "the claimant is covered")
	res, err := engine.Retrieve(context.Background(), doc, queryparser.Parse("what is the answer"), 0)
	require.NoError(t, err)
	assert.Equal(t, MethodKeyword, res.Method)
	assert.NotEmpty(t, res.Hits)
}

func TestEngineEmptyDocument(t *testing.T) {
	engine, err := NewEngine(Config{}, nil, nil)
	require.NoError(t, err)

	res, err := engine.Retrieve(context.Background(), &document.Document{ID: "d"}, queryparser.Parse("anything"), 0)
	require.NoError(t, err)
	assert.Equal(t, MethodKeyword, res.Method)
	assert.True(t, res.Empty())
	assert.Zero(t, res.TotalChunks)
}

func TestEngineSurfacesNonFallbackErrors(t *testing.T) {
	boom := errors.New("index corrupted")
	engine, err := NewEngineWithTiers(Config{}, nil,
		&stubTier{name: "broken", err: boom},
		NewKeywordRanker(),
	)
	require.NoError(t, err)

	doc := testDoc("d1", "some text")
	_, err = engine.Retrieve(context.Background(), doc, queryparser.Parse("some text"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestEngineAssignsRanksAndTruncates(t *testing.T) {
	doc := testDoc("d1", "a", "b", "c")
	tier := &stubTier{name: "stub", hits: []Hit{
		{Chunk: doc.Chunks[2], Score: 0.2},
		{Chunk: doc.Chunks[0], Score: 0.9},
		{Chunk: doc.Chunks[1], Score: 0.5},
	}}
	engine, err := NewEngineWithTiers(Config{}, nil, tier)
	require.NoError(t, err)

	res, err := engine.Retrieve(context.Background(), doc, queryparser.Parse("q"), 2)
	require.NoError(t, err)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, 0, res.Hits[0].Chunk.Index)
	assert.Equal(t, 1, res.Hits[0].Rank)
	assert.Equal(t, 1, res.Hits[1].Chunk.Index)
	assert.Equal(t, 2, res.Hits[1].Rank)
}

func TestEngineFiltersBelowMinScore(t *testing.T) {
	doc := testDoc("d1", "a", "b")
	tier := &stubTier{name: "stub", hits: []Hit{
		{Chunk: doc.Chunks[0], Score: 0.9},
		{Chunk: doc.Chunks[1], Score: 0.01},
	}}
	engine, err := NewEngineWithTiers(Config{MinScore: 0.1}, nil, tier)
	require.NoError(t, err)

	res, err := engine.Retrieve(context.Background(), doc, queryparser.Parse("q"), 0)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, 0, res.Hits[0].Chunk.Index)
}

func TestEngineReleaseDropsTierState(t *testing.T) {
	engine, err := NewEngine(Config{}, nil, nil)
	require.NoError(t, err)

	doc := testDoc("d1", "knee surgery is covered after twelve months")
	_, err = engine.Retrieve(context.Background(), doc, queryparser.Parse("knee surgery"), 0)
	require.NoError(t, err)

	lexical := engine.tiers[1].(*LexicalRanker)
	require.Len(t, lexical.models, 1)

	engine.Release(doc.ID)
	assert.Empty(t, lexical.models)
}

func TestEngineAllTiersUnavailable(t *testing.T) {
	engine, err := NewEngineWithTiers(Config{}, nil,
		unavailableTier("one"),
		unavailableTier("two"),
	)
	require.NoError(t, err)

	doc := testDoc("d1", "text")
	_, err = engine.Retrieve(context.Background(), doc, queryparser.Parse("q"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTierUnavailable)
}
