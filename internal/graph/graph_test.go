package graph

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

type fakeExecutor struct {
	mu       sync.Mutex
	response string
	err      error
	calls    []string
}

func (f *fakeExecutor) ExecuteDQL(_ context.Context, stmt string, _ map[string]string, isMutation bool) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if isMutation {
		return nil, errors.New("unexpected mutation")
	}
	f.calls = append(f.calls, stmt)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.response), nil
}

func categorySpec() apptype.SchemaSpec {
	return apptype.SchemaSpec{
		ParentType:           "Category",
		ChildType:            "Product",
		ParentIDField:        "Category.id",
		ChildIDField:         "Product.id",
		ParentChildPredicate: "Category.products",
		ChildParentPredicate: "Product.categories",
	}
}

func TestJaccardSimilarParentsEndToEnd(t *testing.T) {
	exec := &fakeExecutor{response: `{"data":{"similarNodes":[{"id":"cat-2","uid":"0x2","jaccard_distance":0.2,"union_size":10,"intersection_size":8}]}}`}
	a := New(exec, nil)

	nodes, err := a.JaccardSimilarParents(context.Background(), "cat-1", 3, categorySpec(), false)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "cat-2", nodes[0].ID)
	assert.Equal(t, "0x2", nodes[0].UID)
	assert.InDelta(t, 0.2, nodes[0].JaccardDistance, 1e-9)
	assert.InDelta(t, 10, nodes[0].UnionSize, 1e-9)
	assert.InDelta(t, 8, nodes[0].IntersectionSize, 1e-9)

	require.Len(t, exec.calls, 1)
	q := exec.calls[0]
	assert.Contains(t, q, `eq(Category.id,"cat-1")`)
	assert.Contains(t, q, "first:3")
	assert.Contains(t, q, "NOT uid(m1)")
}

func TestTopKZeroThroughFacade(t *testing.T) {
	exec := &fakeExecutor{response: `{"data":{"similarNodes":[]}}`}
	a := New(exec, nil)

	nodes, err := a.JaccardSimilarParents(context.Background(), "cat-1", 0, categorySpec(), false)
	require.NoError(t, err)
	assert.NotNil(t, nodes)
	assert.Empty(t, nodes)

	require.Len(t, exec.calls, 1)
	assert.Contains(t, exec.calls[0], "first:0")
}

func TestJaccardRecommendedItemsKeepsEngineOrder(t *testing.T) {
	exec := &fakeExecutor{response: `{"data":{"items":[
		{"id":"p-9","uid":"0x9","score":0.4},
		{"id":"p-7","uid":"0x7","score":1.3},
		{"id":"p-8","uid":"0x8","score":0.9}
	]}}`}
	items, err := New(exec, nil).JaccardRecommendedItems(context.Background(), "cat-1", 5, categorySpec())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "p-9", items[0].ID)
	assert.Equal(t, "p-7", items[1].ID)
	assert.Equal(t, "p-8", items[2].ID)
	assert.Contains(t, exec.calls[0], "orderdesc:val(item_score)")
}

func TestEmptyResultIsDistinctFromDecodeFailure(t *testing.T) {
	a := New(&fakeExecutor{response: `{"data":{"items":[]}}`}, nil)
	items, err := a.JaccardRecommendedItems(context.Background(), "cat-1", 5, categorySpec())
	require.NoError(t, err)
	assert.Empty(t, items)

	a = New(&fakeExecutor{response: `{"data":{}}`}, nil)
	items, err = a.JaccardRecommendedItems(context.Background(), "cat-1", 5, categorySpec())
	require.Error(t, err)
	assert.Nil(t, items)
	assert.True(t, apperr.IsDecode(err))

	a = New(&fakeExecutor{response: `{"data":{"items":[]}}`}, nil)
	_, err = a.JaccardSimilarParents(context.Background(), "cat-1", 5, categorySpec(), true)
	assert.True(t, apperr.IsDecode(err), "similarNodes key is missing")
}

func TestInvalidSpecNeverReachesExecutor(t *testing.T) {
	exec := &fakeExecutor{response: `{"data":{"similarNodes":[]}}`}
	spec := categorySpec()
	spec.ChildParentPredicate = `Product.categories } } evil {`

	_, err := New(exec, nil).JaccardSimilarParents(context.Background(), "cat-1", 3, spec, false)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, exec.calls)

	_, err = New(exec, nil).JaccardRecommendedItems(context.Background(), "", 3, categorySpec())
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, exec.calls)
}

func TestExecutorFailureIsWrappedNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	exec := &fakeExecutor{err: boom}

	_, err := New(exec, nil).JaccardSimilarParents(context.Background(), "cat-1", 3, categorySpec(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsQueryExecution(err))
	assert.ErrorIs(t, err, boom)
	assert.Len(t, exec.calls, 1)
}

func TestEngineErrorsInEnvelope(t *testing.T) {
	exec := &fakeExecutor{response: `{"errors":[{"message":"Predicate Category.products is not indexed"}]}`}
	_, err := New(exec, nil).JaccardSimilarParents(context.Background(), "cat-1", 3, categorySpec(), false)
	require.Error(t, err)
	assert.True(t, apperr.IsQueryExecution(err))
}

func TestConcurrentCalls(t *testing.T) {
	exec := &fakeExecutor{response: `{"data":{"similarNodes":[]}}`}
	a := New(exec, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.JaccardSimilarParents(context.Background(), "cat-1", 3, categorySpec(), false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, exec.calls, 8)
}
