package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
)

type StepResult struct {
	Name      string `json:"name"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type Report struct {
	SSEURL     string       `json:"sse_url"`
	StartedAt  time.Time    `json:"started_at"`
	DurationMs int64        `json:"duration_ms"`
	Steps      []StepResult `json:"steps"`
	Passed     bool         `json:"passed"`
}

func main() {
	sseURL := flag.String("sse-url", "http://localhost:8080/sse", "SSE endpoint URL")
	collection := flag.String("collection", "integration", "Collection to write test texts to")
	parentID := flag.String("parent-id", "", "Parent id for the Jaccard steps; skipped when empty")
	specJSON := flag.String("spec", `{"parentType":"Category","childType":"Product","parentIdField":"Category.id","childIdField":"Product.id","parentChildPredicate":"Category.products","childParentPredicate":"Product.categories"}`, "SchemaSpec as JSON")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	var spec apptype.SchemaSpec
	if err := json.Unmarshal([]byte(*specJSON), &spec); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -spec: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-tester", Version: "dev"}, nil)
	transport := mcp.NewSSEClientTransport(*sseURL, nil)

	start := time.Now()
	report := Report{SSEURL: *sseURL, StartedAt: start}
	steps := make([]StepResult, 0, 16)

	// Connect
	tConn := time.Now()
	connRes := StepResult{Name: "connect"}
	session, err := client.Connect(ctx, transport)
	if err != nil {
		connRes.Error = err.Error()
		connRes.ElapsedMs = elapsedMsSince(tConn)
		report.Steps = append(steps, connRes)
		report.DurationMs = elapsedMsSince(start)
		writeReport(report)
		os.Exit(1)
	}
	defer session.Close()
	connRes.Success = true
	connRes.ElapsedMs = elapsedMsSince(tConn)
	steps = append(steps, connRes)

	// Individual steps
	steps = append(steps, runListTools(ctx, session))
	steps = append(steps, runTool(ctx, session, "health_check", apptype.HealthArgs{}))
	steps = append(steps, runTool(ctx, session, "build_jaccard_query", apptype.BuildQueryArgs{
		Kind: "recommendation", ParentID: "integration", TopK: 3, Spec: spec,
	}))
	steps = append(steps, runTool(ctx, session, "collection_upsert", apptype.CollectionUpsertArgs{
		Collection: *collection, Key: "it-1", Text: "graph based product recommendations",
	}))
	steps = append(steps, runTool(ctx, session, "collection_upsert", apptype.CollectionUpsertArgs{
		Collection: *collection, Key: "it-2", Text: "vector search over text collections",
	}))
	steps = append(steps, runTool(ctx, session, "collection_search", apptype.CollectionSearchArgs{
		Collection: *collection, Text: "product recommendations", Limit: 2, ReturnText: true,
	}))
	steps = append(steps, runTool(ctx, session, "collection_compute_similarity", apptype.CollectionSimilarityArgs{
		Collection: *collection, Key1: "it-1", Key2: "it-2",
	}))
	steps = append(steps, runTool(ctx, session, "collection_get_text", apptype.CollectionKeyArgs{Collection: *collection, Key: "it-1"}))
	steps = append(steps, runTool(ctx, session, "collection_get_texts", apptype.CollectionArgs{Collection: *collection}))
	steps = append(steps, runTool(ctx, session, "collection_recompute_search_method", apptype.CollectionRecomputeArgs{Collection: *collection}))
	steps = append(steps, runTool(ctx, session, "embed_text", apptype.EmbedTextArgs{Text: "hello"}))
	if *parentID != "" {
		steps = append(steps, runTool(ctx, session, "jaccard_similar_parents", apptype.JaccardSimilarArgs{ParentID: *parentID, TopK: 5, Spec: spec}))
		steps = append(steps, runTool(ctx, session, "jaccard_recommended_items", apptype.JaccardRecommendArgs{ParentID: *parentID, TopK: 5, Spec: spec}))
	}
	// DELETE tests last
	steps = append(steps, runTool(ctx, session, "collection_remove", apptype.CollectionKeyArgs{Collection: *collection, Key: "it-1"}))
	steps = append(steps, runTool(ctx, session, "collection_remove", apptype.CollectionKeyArgs{Collection: *collection, Key: "it-2"}))

	// finalize report
	report.Steps = steps
	report.DurationMs = elapsedMsSince(start)
	report.Passed = true
	for _, s := range steps {
		if !s.Success {
			report.Passed = false
			break
		}
	}
	writeReport(report)

	if !report.Passed {
		os.Exit(1)
	}
}

func writeReport(report Report) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
}

func runListTools(ctx context.Context, session *mcp.ClientSession) StepResult {
	t0 := time.Now()
	res := StepResult{Name: "list_tools"}
	if _, err := session.ListTools(ctx, &mcp.ListToolsParams{}); err != nil {
		res.Error = err.Error()
	} else {
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

// runTool calls name with args. A tool-level error result fails the step.
func runTool(ctx context.Context, session *mcp.ClientSession, name string, args any) StepResult {
	t0 := time.Now()
	res := StepResult{Name: name}
	raw, _ := json.Marshal(args)
	out, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: json.RawMessage(raw)})
	switch {
	case err != nil:
		res.Error = err.Error()
	case out.IsError:
		res.Error = contentText(out.Content)
	default:
		res.Success = true
	}
	res.ElapsedMs = elapsedMsSince(t0)
	return res
}

func contentText(content []mcp.Content) string {
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			return tc.Text
		}
	}
	return "tool returned an error"
}

// elapsedMsSince returns max(1ms, elapsed) to avoid zero durations on fast steps
func elapsedMsSince(t0 time.Time) int64 {
	d := time.Since(t0) / time.Millisecond
	if d <= 0 {
		return 1
	}
	return int64(d)
}
