package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTEIStub serves a minimal TEI-compatible /embed endpoint returning one
// fixed vector per input.
func newTEIStub(t *testing.T, vector []float32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Inputs may be a single string (query) or an array (documents).
		count := 1
		if inputs, ok := req.Inputs.([]interface{}); ok {
			count = len(inputs)
		}

		out := make([][]float32, count)
		for i := range out {
			out[i] = vector
		}
		require.NoError(t, json.NewEncoder(w).Encode(out))
	}))
}

func TestNewServiceRequiresBaseURL(t *testing.T) {
	_, err := NewService(Config{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbedDocuments(t *testing.T) {
	stub := newTEIStub(t, []float32{0.6, 0.8})
	defer stub.Close()

	svc, err := NewService(Config{BaseURL: stub.URL}, nil)
	require.NoError(t, err)

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.6, 0.8}, vectors[0])
}

func TestEmbedDocumentsEmptyInput(t *testing.T) {
	stub := newTEIStub(t, []float32{1})
	defer stub.Close()

	svc, err := NewService(Config{BaseURL: stub.URL}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedQuery(t *testing.T) {
	stub := newTEIStub(t, []float32{0, 1})
	defer stub.Close()

	svc, err := NewService(Config{BaseURL: stub.URL}, nil)
	require.NoError(t, err)

	vector, err := svc.EmbedQuery(context.Background(), "a query")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, vector)
}

func TestEmbedServerError(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer stub.Close()

	svc, err := NewService(Config{BaseURL: stub.URL}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "a query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
}
