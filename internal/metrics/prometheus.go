//go:build !noprom

package metrics

import (
	"net/http"
	"strconv"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

type promRecorder struct {
	execTotal    *prom.CounterVec
	execSeconds  *prom.HistogramVec
	storeTotal   *prom.CounterVec
	storeSeconds *prom.HistogramVec
	toolTotal    *prom.CounterVec
	toolSeconds  *prom.HistogramVec
	poolInUse    prom.Gauge
	poolIdle     prom.Gauge
}

func (p *promRecorder) IncExecTotal(op string, success bool) {
	p.execTotal.WithLabelValues(op, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveExecSeconds(op string, success bool, seconds float64) {
	p.execSeconds.WithLabelValues(op, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) IncStoreOpTotal(op string, success bool) {
	p.storeTotal.WithLabelValues(op, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveStoreOpSeconds(op string, success bool, seconds float64) {
	p.storeSeconds.WithLabelValues(op, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) IncToolTotal(tool string, success bool) {
	p.toolTotal.WithLabelValues(tool, strconv.FormatBool(success)).Inc()
}

func (p *promRecorder) ObserveToolSeconds(tool string, success bool, seconds float64) {
	p.toolSeconds.WithLabelValues(tool, strconv.FormatBool(success)).Observe(seconds)
}

func (p *promRecorder) ObservePoolStats(inUse, idle int) {
	p.poolInUse.Set(float64(inUse))
	p.poolIdle.Set(float64(idle))
}

func newPromRecorder(registry *prom.Registry) *promRecorder {
	p := &promRecorder{
		execTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "graph_exec_total",
			Help: "Total number of graph engine calls",
		}, []string{"op", "success"}),
		execSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "graph_exec_seconds",
			Help:    "Graph engine call duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		storeTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "collection_ops_total",
			Help: "Total number of collection store operations",
		}, []string{"op", "success"}),
		storeSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "collection_op_seconds",
			Help:    "Collection store operation duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"op", "success"}),
		toolTotal: prom.NewCounterVec(prom.CounterOpts{
			Name: "tool_calls_total",
			Help: "Total number of tool handler calls",
		}, []string{"tool", "success"}),
		toolSeconds: prom.NewHistogramVec(prom.HistogramOpts{
			Name:    "tool_call_seconds",
			Help:    "Tool handler duration in seconds",
			Buckets: prom.DefBuckets,
		}, []string{"tool", "success"}),
		poolInUse: prom.NewGauge(prom.GaugeOpts{
			Name: "db_pool_in_use",
			Help: "Collection store connections in use",
		}),
		poolIdle: prom.NewGauge(prom.GaugeOpts{
			Name: "db_pool_idle",
			Help: "Idle collection store connections",
		}),
	}
	registry.MustRegister(p.execTotal, p.execSeconds, p.storeTotal, p.storeSeconds, p.toolTotal, p.toolSeconds, p.poolInUse, p.poolIdle)
	return p
}

func newMux(registry *prom.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func enablePrometheus(addr string) error {
	registry := prom.NewRegistry()
	SetRecorder(newPromRecorder(registry))
	mux := newMux(registry)
	go func() { _ = http.ListenAndServe(addr, mux) }()
	return nil
}
