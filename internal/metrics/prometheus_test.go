//go:build !noprom

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusEndpoints(t *testing.T) {
	registry := prom.NewRegistry()
	rec := newPromRecorder(registry)
	rec.IncExecTotal("dql_query", true)
	rec.ObserveToolSeconds("jaccard_similar_parents", true, 0.01)
	rec.ObservePoolStats(2, 3)

	srv := httptest.NewServer(newMux(registry))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `graph_exec_total{op="dql_query",success="true"} 1`)
	assert.Contains(t, string(body), "tool_call_seconds")
	assert.Contains(t, string(body), "db_pool_idle 3")

	resp, err = srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}
