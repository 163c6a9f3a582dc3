// Package assembler shapes pipeline outputs into the response contract
// returned by the HTTP API and the CLI.
package assembler

import (
	"time"

	"github.com/google/uuid"

	"github.com/fathomworks/verdictd/internal/decision"
	"github.com/fathomworks/verdictd/internal/queryparser"
	"github.com/fathomworks/verdictd/internal/retrieval"
)

// Response is the full analysis payload for one request.
type Response struct {
	RequestID string             `json:"request_id"`
	Query     QuerySummary       `json:"query"`
	Decision  *decision.Decision `json:"decision"`
	Retrieval RetrievalMeta      `json:"retrieval"`

	// Analysis is an optional free-text narrative from the LLM analyst.
	// Empty when no analyst is configured.
	Analysis string `json:"analysis,omitempty"`

	ElapsedMS int64 `json:"elapsed_ms"`
}

// QuerySummary echoes back how the query was understood.
type QuerySummary struct {
	Raw     string            `json:"raw"`
	Summary string            `json:"summary"`
	Domain  string            `json:"domain"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// RetrievalMeta describes how evidence was gathered.
type RetrievalMeta struct {
	Method      string   `json:"method"`
	TotalChunks int      `json:"total_chunks"`
	Clauses     []Clause `json:"clauses"`
}

// Clause is one retrieved chunk, scored and positioned.
type Clause struct {
	Rank       int     `json:"rank"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// Build assembles the response contract from the pipeline stages' outputs.
// It copies what it needs and holds no references to the inputs' internals
// beyond the decision value.
func Build(query *queryparser.ParsedQuery, res *retrieval.Result, dec *decision.Decision, analysis string, elapsed time.Duration) *Response {
	resp := &Response{
		RequestID: uuid.New().String(),
		Query: QuerySummary{
			Raw:     query.Raw,
			Summary: query.Summary(),
			Domain:  string(query.Domain),
			Fields:  query.Fields,
		},
		Decision:  dec,
		Analysis:  analysis,
		ElapsedMS: elapsed.Milliseconds(),
	}
	if res != nil {
		resp.Retrieval = RetrievalMeta{
			Method:      res.Method,
			TotalChunks: res.TotalChunks,
			Clauses:     make([]Clause, 0, len(res.Hits)),
		}
		for _, hit := range res.Hits {
			resp.Retrieval.Clauses = append(resp.Retrieval.Clauses, Clause{
				Rank:       hit.Rank,
				ChunkIndex: hit.Chunk.Index,
				Score:      hit.Score,
				Text:       hit.Chunk.Text,
			})
		}
	}
	return resp
}
