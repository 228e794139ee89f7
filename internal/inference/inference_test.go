package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
)

func result(probs ...apptype.ClassificationProbability) apptype.ClassificationResult {
	return apptype.ClassificationResult{Probabilities: probs}
}

func TestMaxProbability(t *testing.T) {
	res := result(
		apptype.ClassificationProbability{Label: "spam", Probability: 0.2},
		apptype.ClassificationProbability{Label: "ham", Probability: 0.7},
		apptype.ClassificationProbability{Label: "other", Probability: 0.1},
	)

	got := MaxProbability(res, 0)
	require.NotNil(t, got)
	assert.Equal(t, "ham", got.Label)

	got = MaxProbability(res, 0.9)
	require.NotNil(t, got)
	assert.Equal(t, UncertainLabel, got.Label)
	assert.Equal(t, 1.0, got.Probability)

	assert.Nil(t, MaxProbability(result(), 0))
}

func TestMinProbability(t *testing.T) {
	res := result(
		apptype.ClassificationProbability{Label: "a", Probability: 0.5},
		apptype.ClassificationProbability{Label: "b", Probability: 0.3},
	)
	got := MinProbability(res, 1.0)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Label)

	got = MinProbability(res, 0.1)
	require.NotNil(t, got)
	assert.Equal(t, UncertainLabel, got.Label)

	assert.Nil(t, MinProbability(result(), 1.0))
}

func TestTiesKeepFirstLabel(t *testing.T) {
	res := result(
		apptype.ClassificationProbability{Label: "first", Probability: 0.5},
		apptype.ClassificationProbability{Label: "second", Probability: 0.5},
	)
	assert.Equal(t, "first", MaxProbability(res, 0).Label)
	assert.Equal(t, "first", MinProbability(res, 1).Label)
}

func TestHTTPClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, "sentiment", req.ModelID)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		out := map[string]apptype.ClassificationResult{}
		for k := range req.Texts {
			out[k] = result(
				apptype.ClassificationProbability{Label: "positive", Probability: 0.8},
				apptype.ClassificationProbability{Label: "negative", Probability: 0.2},
			)
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, time.Second, nil)
	require.NoError(t, err)
	svc := New(c, nil)

	res, err := svc.ClassifyText(context.Background(), "sentiment", "great product")
	require.NoError(t, err)
	assert.Equal(t, "positive", MaxProbability(res, 0).Label)

	batch, err := svc.ClassifyTexts(context.Background(), "sentiment", map[string]string{"a": "x", "b": "y"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestHTTPClassifierErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := NewHTTPClassifier(srv.URL, time.Second, nil)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "m", map[string]string{"text": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")

	_, err = NewHTTPClassifier("not a url", 0, nil)
	assert.Error(t, err)

	_, err = New(nil, nil).ClassifyText(context.Background(), "m", "x")
	assert.ErrorIs(t, err, ErrNoClassifier)
}

func TestComputeTextEmbeddings(t *testing.T) {
	reg := embeddings.NewRegistry(embeddings.NewHashProvider(8))
	svc := New(nil, reg)

	v, err := svc.ComputeTextEmbedding(context.Background(), "", "hello world")
	require.NoError(t, err)
	assert.Len(t, v, 8)

	batch, err := svc.ComputeTextEmbeddings(context.Background(), embeddings.DefaultName, map[string]string{"a": "hello world", "b": "other"})
	require.NoError(t, err)
	assert.Equal(t, v, batch["a"])
	assert.Len(t, batch["b"], 8)

	_, err = svc.ComputeTextEmbedding(context.Background(), "missing", "x")
	assert.Error(t, err)
}
