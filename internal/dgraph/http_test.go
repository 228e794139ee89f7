package dgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/graph"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
)

type recorded struct {
	path        string
	query       string
	contentType string
	token       string
	requestID   string
	body        []byte
}

func newAlpha(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var seen []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recorded{
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			token:       r.Header.Get(accessTokenHeader),
			requestID:   r.Header.Get(requestIDHeader),
			body:        body,
		})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestHTTPExecutorQuery(t *testing.T) {
	srv, seen := newAlpha(t, http.StatusOK, `{"data":{"q":[{"name":"x"}]},"extensions":{"server_latency":{"total_ns":10}}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL + "/", AuthToken: "secret", Timeout: time.Second})
	require.NoError(t, err)

	raw, err := exec.ExecuteDQL(context.Background(), "query q($n: string) { q(func: eq(name, $n)) { name } }", map[string]string{"$n": "x"}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":{"q":[{"name":"x"}]},"extensions":{"server_latency":{"total_ns":10}}}`, string(raw))

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, "/query", req.path)
	assert.Equal(t, "application/json", req.contentType)
	assert.Equal(t, "secret", req.token)
	assert.NotEmpty(t, req.requestID)

	var body struct {
		Query     string            `json:"query"`
		Variables map[string]string `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(req.body, &body))
	assert.Equal(t, "x", body.Variables["$n"])
}

func TestHTTPExecutorMutation(t *testing.T) {
	srv, seen := newAlpha(t, http.StatusOK, `{"data":{"code":"Success","message":"Done","uids":{"a":"0x1"}}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := hostapi.Mutate(context.Background(), exec, `{"set":[{"uid":"_:a","name":"x"}]}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "0x1", resp.Data.UIDs["a"])

	_, err = exec.ExecuteDQL(context.Background(), `{ set { _:a <name> "x" . } }`, nil, true)
	require.NoError(t, err)

	require.Len(t, *seen, 2)
	assert.Equal(t, "/mutate", (*seen)[0].path)
	assert.Equal(t, "commitNow=true", (*seen)[0].query)
	assert.Equal(t, "application/json", (*seen)[0].contentType)
	assert.Equal(t, "application/rdf", (*seen)[1].contentType)
	assert.Equal(t, `{ set { _:a <name> "x" . } }`, string((*seen)[1].body))

	_, err = exec.ExecuteDQL(context.Background(), `_:a <name> $n .`, map[string]string{"$n": "x"}, true)
	assert.Error(t, err)
}

func TestHTTPExecutorRejectsMalformedMutation(t *testing.T) {
	srv, seen := newAlpha(t, http.StatusOK, `{"data":{"code":"Success"}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	for _, stmt := range []string{`_:a <name> "x" .`, `{"uid":"_:a","name":"x"}`, `{ set { _:a <name> "x" . }`} {
		_, err := hostapi.Mutate(context.Background(), exec, stmt, nil)
		assert.Error(t, err, stmt)
	}
	assert.Empty(t, *seen)
}

func TestHTTPExecutorStatusError(t *testing.T) {
	srv, _ := newAlpha(t, http.StatusServiceUnavailable, `alpha is draining`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = exec.ExecuteDQL(context.Background(), "{ q(func: has(name)) { name } }", nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "alpha is draining")
}

func TestHTTPExecutorGraphQL(t *testing.T) {
	srv, seen := newAlpha(t, http.StatusOK, `{"data":{"queryThing":[{"id":"1"}]}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	resp, err := hostapi.GraphQL[map[string][]map[string]string](context.Background(), exec, "{ queryThing { id } }", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Data["queryThing"][0]["id"])
	assert.Equal(t, "/graphql", (*seen)[0].path)
	assert.JSONEq(t, `{"query":"{ queryThing { id } }","variables":{}}`, string((*seen)[0].body))
}

func TestHTTPExecutorRejectsBadURL(t *testing.T) {
	_, err := NewHTTPExecutor(HTTPOptions{BaseURL: "localhost"})
	assert.Error(t, err)
}

func TestHTTPExecutorHonorsContext(t *testing.T) {
	srv, _ := newAlpha(t, http.StatusOK, `{"data":{}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exec.ExecuteDQL(ctx, "{ q(func: has(name)) { name } }", nil, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPExecutorDrivesFacade(t *testing.T) {
	srv, seen := newAlpha(t, http.StatusOK, `{"data":{"items":[{"id":"p-1","uid":"0x10","score":1.5}]}}`)
	exec, err := NewHTTPExecutor(HTTPOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	spec := apptype.SchemaSpec{
		ParentType: "Category", ChildType: "Product",
		ParentIDField: "Category.id", ChildIDField: "Product.id",
		ParentChildPredicate: "Category.products", ChildParentPredicate: "Product.categories",
	}
	items, err := graph.New(exec, nil).JaccardRecommendedItems(context.Background(), "cat-1", 3, spec)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.InDelta(t, 1.5, items[0].Score, 1e-9)

	var body struct {
		Query string `json:"query"`
	}
	require.NoError(t, json.Unmarshal((*seen)[0].body, &body))
	assert.Contains(t, body.Query, `eq(Category.id,"cat-1")`)
}
