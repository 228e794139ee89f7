package collections

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
)

const testDims = 32

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	// cache=shared lets every pooled connection see the same in-memory database
	url := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	reg := embeddings.NewRegistry(embeddings.NewHashProvider(testDims))
	s, err := NewStore(Config{URL: url, EmbeddingDims: testDims}, reg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func TestUpsertGetAndRemove(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	res := s.UpsertToCollection(ctx, "products", "p1", "red running shoes")
	assert.Equal(t, apptype.StatusSuccess, res.Status)
	assert.Equal(t, "p1", res.Key)
	assert.Equal(t, OpUpsert, res.Operation)

	text, err := s.GetText(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, "red running shoes", text)

	res = s.UpsertToCollection(ctx, "products", "p1", "blue running shoes")
	require.Equal(t, apptype.StatusSuccess, res.Status)
	text, err = s.GetText(ctx, "products", "p1")
	require.NoError(t, err)
	assert.Equal(t, "blue running shoes", text)

	res = s.DeleteFromCollection(ctx, "products", "p1")
	assert.Equal(t, apptype.StatusSuccess, res.Status)
	_, err = s.GetText(ctx, "products", "p1")
	assert.ErrorIs(t, err, errKeyNotFound)

	res = s.DeleteFromCollection(ctx, "products", "p1")
	assert.NotEqual(t, apptype.StatusSuccess, res.Status)
	assert.Contains(t, res.Error, "key not found")
}

func TestUpsertGeneratesKey(t *testing.T) {
	s := setupTestStore(t)
	res := s.UpsertToCollection(context.Background(), "notes", "", "hello")
	require.Equal(t, apptype.StatusSuccess, res.Status)
	assert.Len(t, res.Key, 36)
}

func TestSearchRanksIdenticalTextFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	for key, text := range map[string]string{
		"a": "red running shoes",
		"b": "stainless steel kettle",
		"c": "wireless noise cancelling headphones",
	} {
		require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "products", key, text).Status)
	}

	res := s.SearchCollection(ctx, "products", "", "stainless steel kettle", 2, true)
	require.Equal(t, apptype.StatusSuccess, res.Status)
	assert.Equal(t, embeddings.DefaultName, res.SearchMethod)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "b", res.Objects[0].Key)
	assert.Equal(t, "stainless steel kettle", res.Objects[0].Text)
	assert.InDelta(t, 1.0, res.Objects[0].Score, 1e-4)
	assert.GreaterOrEqual(t, res.Objects[0].Score, res.Objects[1].Score)

	res = s.SearchCollection(ctx, "products", "", "kettle", 3, false)
	require.Equal(t, apptype.StatusSuccess, res.Status)
	for _, o := range res.Objects {
		assert.Empty(t, o.Text)
	}

	res = s.SearchCollection(ctx, "empty", "", "kettle", 3, false)
	require.Equal(t, apptype.StatusSuccess, res.Status)
	assert.Empty(t, res.Objects)
}

func TestSearchFailures(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	res := s.SearchCollection(ctx, "products", "semantic", "x", 3, false)
	assert.Contains(t, res.Status, "unknown search method")

	res = s.SearchCollection(ctx, "products", "", "x", 0, false)
	assert.Contains(t, res.Status, "limit must be positive")
}

func TestRecomputeSearchMethod(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "docs", "d1", "graph databases").Status)
	require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "docs", "d2", "vector search").Status)

	// a method registered after the texts were stored has no vectors yet
	s.providers.Register("alt", embeddings.NewHashProvider(testDims))
	res := s.SearchCollection(ctx, "docs", "alt", "vector search", 5, false)
	require.Equal(t, apptype.StatusSuccess, res.Status)
	assert.Empty(t, res.Objects)

	rec := s.RecomputeSearchMethod(ctx, "docs", "alt")
	require.Equal(t, apptype.StatusSuccess, rec.Status)
	assert.Equal(t, OpRecompute, rec.Operation)

	res = s.SearchCollection(ctx, "docs", "alt", "vector search", 5, false)
	require.Equal(t, apptype.StatusSuccess, res.Status)
	require.Len(t, res.Objects, 2)
	assert.Equal(t, "d2", res.Objects[0].Key)

	rec = s.RecomputeSearchMethod(ctx, "docs", "missing")
	assert.NotEqual(t, apptype.StatusSuccess, rec.Status)
}

func TestComputeSimilarityAndGetTexts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "docs", "x", "alpha beta").Status)
	require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "docs", "y", "alpha beta").Status)
	require.Equal(t, apptype.StatusSuccess, s.UpsertToCollection(ctx, "docs", "z", "unrelated words entirely").Status)

	same, err := s.ComputeSimilarity(ctx, "docs", "", "x", "y")
	require.NoError(t, err)
	assert.Equal(t, "y", same.Key)
	assert.InDelta(t, 1.0, same.Score, 1e-5)

	diff, err := s.ComputeSimilarity(ctx, "docs", "", "x", "z")
	require.NoError(t, err)
	assert.Less(t, diff.Score, same.Score)

	_, err = s.ComputeSimilarity(ctx, "docs", "", "x", "nope")
	assert.ErrorIs(t, err, errKeyNotFound)

	texts, err := s.GetTexts(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"x": "alpha beta", "y": "alpha beta", "z": "unrelated words entirely"}, texts)
}

func TestVectorHelpers(t *testing.T) {
	s, err := vectorToString([]float32{1, 0.5, float32(0)}, 3)
	require.NoError(t, err)
	assert.Equal(t, "[1, 0.5, 0]", s)

	_, err = vectorToString([]float32{1}, 3)
	assert.Error(t, err)

	blob := []byte{0, 0, 128, 63, 0, 0, 0, 64} // 1.0, 2.0
	v, err := extractVector(blob, 2)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	_, err = extractVector(blob, 3)
	assert.Error(t, err)
}

func TestNewStoreRejectsBadConfig(t *testing.T) {
	reg := embeddings.NewRegistry(embeddings.NewHashProvider(4))
	_, err := NewStore(Config{URL: "file:x?mode=memory", EmbeddingDims: 0}, reg, nil)
	assert.Error(t, err)
	_, err = NewStore(Config{URL: "file:x?mode=memory", EmbeddingDims: 4}, nil, nil)
	assert.Error(t, err)
}

func TestConnURL(t *testing.T) {
	assert.Equal(t, "file:./a.db", connURL(Config{URL: "file:./a.db", AuthToken: "t"}))
	assert.Equal(t, "libsql://db.turso.io?authToken=t", connURL(Config{URL: "libsql://db.turso.io", AuthToken: "t"}))
}
