package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/collections"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/dql"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/graph"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/inference"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
)

const (
	serverName   = "mcp-graph-reco-go"
	defaultTopK  = 10
	defaultLimit = 5
)

var errUnavailable = errors.New("not configured on this server")

// Deps are the collaborators behind the tools. Any of them may be nil; tools
// that need a missing one fail with an error.
type Deps struct {
	DQL       hostapi.DQLExecutor
	GQL       hostapi.GQLExecutor
	Store     *collections.Store
	Inference *inference.Service
	// Transport is reported by health_check ("http" or "grpc").
	Transport string
	Logger    *zap.Logger
}

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server      *mcp.Server
	graph       *graph.Analytics
	dql         hostapi.DQLExecutor
	gql         hostapi.GQLExecutor
	store       *collections.Store
	collections *collections.Client
	inference   *inference.Service
	transport   string
	logger      *zap.Logger
}

// NewMCPServer creates a new MCP server
func NewMCPServer(deps Deps) *MCPServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: buildinfo.Version,
	}, nil)

	s := &MCPServer{
		server:    server,
		dql:       deps.DQL,
		gql:       deps.GQL,
		store:     deps.Store,
		inference: deps.Inference,
		transport: deps.Transport,
		logger:    logging.OrNop(deps.Logger),
	}
	if deps.DQL != nil {
		s.graph = graph.New(deps.DQL, s.logger)
	}
	if deps.Store != nil {
		s.collections = collections.NewClient(deps.Store)
	}
	s.setupToolHandlers()
	return s
}

func mustSchema[T any](name string) *jsonschema.Schema {
	schema, err := jsonschema.For[T]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for %s: %v", name, err))
	}
	return schema
}

// setupToolHandlers registers all MCP tools
func (s *MCPServer) setupToolHandlers() {
	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Jaccard Similar Parents", ReadOnlyHint: true},
		Name:         "jaccard_similar_parents",
		Title:        "Jaccard Similar Parents",
		Description:  "Find the parents whose child sets are closest to the target's by Jaccard distance.",
		InputSchema:  mustSchema[apptype.JaccardSimilarArgs]("JaccardSimilarArgs"),
		OutputSchema: mustSchema[apptype.SimilarityResult]("SimilarityResult"),
	}, s.handleSimilarParents)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Jaccard Recommended Items", ReadOnlyHint: true},
		Name:         "jaccard_recommended_items",
		Title:        "Jaccard Recommended Items",
		Description:  "Recommend children of similar parents that the target parent does not have yet.",
		InputSchema:  mustSchema[apptype.JaccardRecommendArgs]("JaccardRecommendArgs"),
		OutputSchema: mustSchema[apptype.RecommendationResult]("RecommendationResult"),
	}, s.handleRecommendedItems)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Build Jaccard Query", ReadOnlyHint: true},
		Name:         "build_jaccard_query",
		Title:        "Build Jaccard Query",
		Description:  "Render a similarity or recommendation query without running it.",
		InputSchema:  mustSchema[apptype.BuildQueryArgs]("BuildQueryArgs"),
		OutputSchema: mustSchema[apptype.QueryTextResult]("QueryTextResult"),
	}, s.handleBuildQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "DQL Query", ReadOnlyHint: true},
		Name:         "dql_query",
		Title:        "DQL Query",
		Description:  "Run a read-only DQL query.",
		InputSchema:  mustSchema[apptype.DQLQueryArgs]("DQLQueryArgs"),
		OutputSchema: mustSchema[apptype.EngineResult]("EngineResult (dql_query)"),
	}, s.handleDQLQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "dql_mutate",
		Title:        "DQL Mutate",
		Description:  "Run a DQL mutation and commit it.",
		InputSchema:  mustSchema[apptype.DQLMutateArgs]("DQLMutateArgs"),
		OutputSchema: mustSchema[apptype.MutationResult]("MutationResult"),
	}, s.handleDQLMutate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "graphql_execute",
		Title:        "GraphQL Execute",
		Description:  "Run a GraphQL statement against the engine's GraphQL endpoint.",
		InputSchema:  mustSchema[apptype.GraphQLArgs]("GraphQLArgs"),
		OutputSchema: mustSchema[apptype.EngineResult]("EngineResult (graphql)"),
	}, s.handleGraphQL)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "collection_upsert",
		Title:        "Collection Upsert",
		Description:  "Store a text in a collection and index it with every search method.",
		InputSchema:  mustSchema[apptype.CollectionUpsertArgs]("CollectionUpsertArgs"),
		OutputSchema: mustSchema[apptype.CollectionMutationResult]("CollectionMutationResult (upsert)"),
	}, s.handleCollectionUpsert)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Collection Remove", DestructiveHint: boolPtr(true)},
		Name:         "collection_remove",
		Title:        "Collection Remove",
		Description:  "Remove a text and its vectors from a collection.",
		InputSchema:  mustSchema[apptype.CollectionKeyArgs]("CollectionKeyArgs (remove)"),
		OutputSchema: mustSchema[apptype.CollectionMutationResult]("CollectionMutationResult (remove)"),
	}, s.handleCollectionRemove)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Collection Search", ReadOnlyHint: true},
		Name:         "collection_search",
		Title:        "Collection Search",
		Description:  "Search a collection by embedding similarity.",
		InputSchema:  mustSchema[apptype.CollectionSearchArgs]("CollectionSearchArgs"),
		OutputSchema: mustSchema[apptype.CollectionSearchResult]("CollectionSearchResult"),
	}, s.handleCollectionSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:         "collection_recompute_search_method",
		Title:        "Recompute Search Method",
		Description:  "Re-embed every text of a collection with a search method.",
		InputSchema:  mustSchema[apptype.CollectionRecomputeArgs]("CollectionRecomputeArgs"),
		OutputSchema: mustSchema[apptype.SearchMethodMutationResult]("SearchMethodMutationResult"),
	}, s.handleCollectionRecompute)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Compute Similarity", ReadOnlyHint: true},
		Name:         "collection_compute_similarity",
		Title:        "Compute Similarity",
		Description:  "Cosine similarity of two stored texts under a search method.",
		InputSchema:  mustSchema[apptype.CollectionSimilarityArgs]("CollectionSimilarityArgs"),
		OutputSchema: mustSchema[apptype.CollectionSearchResultObject]("CollectionSearchResultObject"),
	}, s.handleCollectionSimilarity)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Get Text", ReadOnlyHint: true},
		Name:         "collection_get_text",
		Title:        "Get Text",
		Description:  "Fetch one stored text by key.",
		InputSchema:  mustSchema[apptype.CollectionKeyArgs]("CollectionKeyArgs (get_text)"),
		OutputSchema: mustSchema[apptype.TextResult]("TextResult"),
	}, s.handleCollectionGetText)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Get Texts", ReadOnlyHint: true},
		Name:         "collection_get_texts",
		Title:        "Get Texts",
		Description:  "Fetch every stored text of a collection.",
		InputSchema:  mustSchema[apptype.CollectionArgs]("CollectionArgs"),
		OutputSchema: mustSchema[apptype.TextsResult]("TextsResult"),
	}, s.handleCollectionGetTexts)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Classify Text", ReadOnlyHint: true},
		Name:         "classify_text",
		Title:        "Classify Text",
		Description:  "Classify a text and report the most probable label.",
		InputSchema:  mustSchema[apptype.ClassifyTextArgs]("ClassifyTextArgs"),
		OutputSchema: mustSchema[apptype.ClassifyTextResult]("ClassifyTextResult"),
	}, s.handleClassifyText)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Embed Text", ReadOnlyHint: true},
		Name:         "embed_text",
		Title:        "Embed Text",
		Description:  "Compute the embedding of a text with a named model.",
		InputSchema:  mustSchema[apptype.EmbedTextArgs]("EmbedTextArgs"),
		OutputSchema: mustSchema[apptype.EmbedTextResult]("EmbedTextResult"),
	}, s.handleEmbedText)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations:  &mcp.ToolAnnotations{Title: "Health Check", ReadOnlyHint: true},
		Name:         "health_check",
		Title:        "Health Check",
		Description:  "Report server version and which collaborators are configured.",
		InputSchema:  mustSchema[apptype.HealthArgs]("HealthArgs"),
		OutputSchema: mustSchema[apptype.HealthResult]("HealthResult"),
	}, s.handleHealth)
}

func boolPtr(b bool) *bool { return &b }

func topKOrDefault(k uint32) uint32 {
	if k == 0 {
		return defaultTopK
	}
	return k
}

func text(msg string) []mcp.Content {
	return []mcp.Content{&mcp.TextContent{Text: msg}}
}

// errorKind names the kind of err for logs.
func errorKind(err error) string {
	switch {
	case errors.Is(err, errUnavailable):
		return "unavailable"
	case apperr.IsValidation(err):
		return "validation"
	case apperr.IsStatus(err):
		return "status"
	case apperr.IsDecode(err):
		return "decode"
	case apperr.IsQueryExecution(err):
		return "query_execution"
	default:
		return "internal"
	}
}

// failed logs a tool failure and returns err. Bad input is logged at info,
// everything else at warn.
func (s *MCPServer) failed(tool string, err error) error {
	kind := errorKind(err)
	fields := []zap.Field{zap.String("tool", tool), zap.String("kind", kind), zap.Error(err)}
	if kind == "validation" || kind == "status" {
		s.logger.Info("tool call rejected", fields...)
	} else {
		s.logger.Warn("tool call failed", fields...)
	}
	return err
}

// handleSimilarParents handles the jaccard_similar_parents tool call
func (s *MCPServer) handleSimilarParents(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.JaccardSimilarArgs],
) (*mcp.CallToolResultFor[apptype.SimilarityResult], error) {
	done := metrics.TimeTool("jaccard_similar_parents")
	var success bool
	defer func() { done(success) }()
	if s.graph == nil {
		return nil, fmt.Errorf("graph engine: %w", errUnavailable)
	}
	args := params.Arguments

	nodes, err := s.graph.JaccardSimilarParents(ctx, args.ParentID, topKOrDefault(args.TopK), args.Spec, args.OnlyMoreChildren)
	if err != nil {
		return nil, s.failed("jaccard_similar_parents", fmt.Errorf("similarity query failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.SimilarityResult]{
		Content:           text(fmt.Sprintf("Found %d similar parents of %q", len(nodes), args.ParentID)),
		StructuredContent: apptype.SimilarityResult{SimilarNodes: nodes},
	}, nil
}

// handleRecommendedItems handles the jaccard_recommended_items tool call
func (s *MCPServer) handleRecommendedItems(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.JaccardRecommendArgs],
) (*mcp.CallToolResultFor[apptype.RecommendationResult], error) {
	done := metrics.TimeTool("jaccard_recommended_items")
	var success bool
	defer func() { done(success) }()
	if s.graph == nil {
		return nil, fmt.Errorf("graph engine: %w", errUnavailable)
	}
	args := params.Arguments

	items, err := s.graph.JaccardRecommendedItems(ctx, args.ParentID, topKOrDefault(args.TopK), args.Spec)
	if err != nil {
		return nil, s.failed("jaccard_recommended_items", fmt.Errorf("recommendation query failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.RecommendationResult]{
		Content:           text(fmt.Sprintf("Recommended %d items for %q", len(items), args.ParentID)),
		StructuredContent: apptype.RecommendationResult{Items: items},
	}, nil
}

func (s *MCPServer) handleBuildQuery(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.BuildQueryArgs],
) (*mcp.CallToolResultFor[apptype.QueryTextResult], error) {
	done := metrics.TimeTool("build_jaccard_query")
	var success bool
	defer func() { done(success) }()
	args := params.Arguments
	topK := topKOrDefault(args.TopK)

	if err := dql.ValidateSchema(args.Spec); err != nil {
		return nil, s.failed("build_jaccard_query", fmt.Errorf("invalid schema spec: %w", err))
	}

	var (
		q   string
		err error
	)
	switch args.Kind {
	case "similarity":
		q, err = dql.BuildSimilarityQuery(args.ParentID, topK, args.Spec, args.OnlyMoreChildren)
	case "recommendation":
		q, err = dql.BuildRecommendationQuery(args.ParentID, topK, args.Spec)
	default:
		return nil, s.failed("build_jaccard_query", apperr.Invalid("kind", fmt.Sprintf("%q is not similarity or recommendation", args.Kind)))
	}
	if err != nil {
		return nil, s.failed("build_jaccard_query", fmt.Errorf("build query failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.QueryTextResult]{
		Content:           text(q),
		StructuredContent: apptype.QueryTextResult{Kind: args.Kind, Query: q},
	}, nil
}

func (s *MCPServer) handleDQLQuery(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DQLQueryArgs],
) (*mcp.CallToolResultFor[apptype.EngineResult], error) {
	done := metrics.TimeTool("dql_query")
	var success bool
	defer func() { done(success) }()
	if s.dql == nil {
		return nil, fmt.Errorf("graph engine: %w", errUnavailable)
	}

	resp, err := hostapi.Query[map[string]any](ctx, s.dql, params.Arguments.Query, params.Arguments.Variables)
	if err != nil {
		return nil, s.failed("dql_query", fmt.Errorf("dql query failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.EngineResult]{
		Content:           text(fmt.Sprintf("Query returned %d blocks", len(resp.Data))),
		StructuredContent: apptype.EngineResult{Data: resp.Data, Extensions: resp.Extensions},
	}, nil
}

func (s *MCPServer) handleDQLMutate(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.DQLMutateArgs],
) (*mcp.CallToolResultFor[apptype.MutationResult], error) {
	done := metrics.TimeTool("dql_mutate")
	var success bool
	defer func() { done(success) }()
	if s.dql == nil {
		return nil, fmt.Errorf("graph engine: %w", errUnavailable)
	}

	resp, err := hostapi.Mutate(ctx, s.dql, params.Arguments.Mutation, nil)
	if err != nil {
		return nil, s.failed("dql_mutate", fmt.Errorf("dql mutation failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.MutationResult]{
		Content:           text(fmt.Sprintf("Mutation %s: %s (%d uids assigned)", resp.Data.Code, resp.Data.Message, len(resp.Data.UIDs))),
		StructuredContent: resp.Data,
	}, nil
}

func (s *MCPServer) handleGraphQL(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.GraphQLArgs],
) (*mcp.CallToolResultFor[apptype.EngineResult], error) {
	done := metrics.TimeTool("graphql_execute")
	var success bool
	defer func() { done(success) }()
	if s.gql == nil {
		return nil, fmt.Errorf("graphql endpoint: %w", errUnavailable)
	}

	resp, err := hostapi.GraphQL[map[string]any](ctx, s.gql, params.Arguments.Query, params.Arguments.Variables)
	if err != nil {
		return nil, s.failed("graphql_execute", fmt.Errorf("graphql failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.EngineResult]{
		Content:           text("GraphQL statement executed"),
		StructuredContent: apptype.EngineResult{Data: resp.Data, Extensions: resp.Extensions},
	}, nil
}

func (s *MCPServer) handleCollectionUpsert(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionUpsertArgs],
) (*mcp.CallToolResultFor[apptype.CollectionMutationResult], error) {
	done := metrics.TimeTool("collection_upsert")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}
	args := params.Arguments

	res, err := s.collections.Upsert(ctx, args.Collection, args.Key, args.Text)
	if err != nil {
		return nil, s.failed("collection_upsert", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.CollectionMutationResult]{
		Content:           text(fmt.Sprintf("Stored %q in collection %s", res.Key, res.Collection)),
		StructuredContent: res,
	}, nil
}

func (s *MCPServer) handleCollectionRemove(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionKeyArgs],
) (*mcp.CallToolResultFor[apptype.CollectionMutationResult], error) {
	done := metrics.TimeTool("collection_remove")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}

	res, err := s.collections.Remove(ctx, params.Arguments.Collection, params.Arguments.Key)
	if err != nil {
		return nil, s.failed("collection_remove", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.CollectionMutationResult]{
		Content:           text(fmt.Sprintf("Removed %q from collection %s", res.Key, res.Collection)),
		StructuredContent: res,
	}, nil
}

func (s *MCPServer) handleCollectionSearch(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionSearchArgs],
) (*mcp.CallToolResultFor[apptype.CollectionSearchResult], error) {
	done := metrics.TimeTool("collection_search")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}
	args := params.Arguments
	limit := args.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	res, err := s.collections.Search(ctx, args.Collection, args.SearchMethod, args.Text, limit, args.ReturnText)
	if err != nil {
		return nil, s.failed("collection_search", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.CollectionSearchResult]{
		Content:           text(fmt.Sprintf("Search returned %d results", len(res.Objects))),
		StructuredContent: res,
	}, nil
}

func (s *MCPServer) handleCollectionRecompute(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionRecomputeArgs],
) (*mcp.CallToolResultFor[apptype.SearchMethodMutationResult], error) {
	done := metrics.TimeTool("collection_recompute_search_method")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}

	res, err := s.collections.RecomputeSearchMethod(ctx, params.Arguments.Collection, params.Arguments.SearchMethod)
	if err != nil {
		return nil, s.failed("collection_recompute_search_method", err)
	}
	success = true

	return &mcp.CallToolResultFor[apptype.SearchMethodMutationResult]{
		Content:           text(fmt.Sprintf("Recomputed search method %s for collection %s", res.SearchMethod, res.Collection)),
		StructuredContent: res,
	}, nil
}

func (s *MCPServer) handleCollectionSimilarity(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionSimilarityArgs],
) (*mcp.CallToolResultFor[apptype.CollectionSearchResultObject], error) {
	done := metrics.TimeTool("collection_compute_similarity")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}
	args := params.Arguments

	res, err := s.collections.ComputeSimilarity(ctx, args.Collection, args.SearchMethod, args.Key1, args.Key2)
	if err != nil {
		return nil, s.failed("collection_compute_similarity", fmt.Errorf("compute similarity failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.CollectionSearchResultObject]{
		Content:           text(fmt.Sprintf("Similarity of %q and %q: %.4f", args.Key1, args.Key2, res.Score)),
		StructuredContent: res,
	}, nil
}

func (s *MCPServer) handleCollectionGetText(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionKeyArgs],
) (*mcp.CallToolResultFor[apptype.TextResult], error) {
	done := metrics.TimeTool("collection_get_text")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}

	t, err := s.collections.GetText(ctx, params.Arguments.Collection, params.Arguments.Key)
	if err != nil {
		return nil, s.failed("collection_get_text", fmt.Errorf("get text failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.TextResult]{
		Content:           text(t),
		StructuredContent: apptype.TextResult{Key: params.Arguments.Key, Text: t},
	}, nil
}

func (s *MCPServer) handleCollectionGetTexts(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.CollectionArgs],
) (*mcp.CallToolResultFor[apptype.TextsResult], error) {
	done := metrics.TimeTool("collection_get_texts")
	var success bool
	defer func() { done(success) }()
	if s.collections == nil {
		return nil, fmt.Errorf("collections: %w", errUnavailable)
	}

	texts, err := s.collections.GetTexts(ctx, params.Arguments.Collection)
	if err != nil {
		return nil, s.failed("collection_get_texts", fmt.Errorf("get texts failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.TextsResult]{
		Content:           text(fmt.Sprintf("Collection %s holds %d texts", params.Arguments.Collection, len(texts))),
		StructuredContent: apptype.TextsResult{Collection: params.Arguments.Collection, Texts: texts},
	}, nil
}

func (s *MCPServer) handleClassifyText(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.ClassifyTextArgs],
) (*mcp.CallToolResultFor[apptype.ClassifyTextResult], error) {
	done := metrics.TimeTool("classify_text")
	var success bool
	defer func() { done(success) }()
	if s.inference == nil {
		return nil, fmt.Errorf("inference: %w", errUnavailable)
	}
	args := params.Arguments

	res, err := s.inference.ClassifyText(ctx, args.ModelID, args.Text)
	if err != nil {
		return nil, s.failed("classify_text", fmt.Errorf("classification failed: %w", err))
	}
	success = true

	top := inference.MaxProbability(res, args.Threshold)
	msg := "No labels returned"
	if top != nil {
		msg = fmt.Sprintf("Top label %s (%.3f)", top.Label, top.Probability)
	}
	return &mcp.CallToolResultFor[apptype.ClassifyTextResult]{
		Content:           text(msg),
		StructuredContent: apptype.ClassifyTextResult{Probabilities: res.Probabilities, Top: top},
	}, nil
}

func (s *MCPServer) handleEmbedText(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.EmbedTextArgs],
) (*mcp.CallToolResultFor[apptype.EmbedTextResult], error) {
	done := metrics.TimeTool("embed_text")
	var success bool
	defer func() { done(success) }()
	if s.inference == nil {
		return nil, fmt.Errorf("inference: %w", errUnavailable)
	}
	args := params.Arguments

	vec, err := s.inference.ComputeTextEmbedding(ctx, args.ModelID, args.Text)
	if err != nil {
		return nil, s.failed("embed_text", fmt.Errorf("embedding failed: %w", err))
	}
	success = true

	return &mcp.CallToolResultFor[apptype.EmbedTextResult]{
		Content:           text(fmt.Sprintf("Computed %d-dimensional embedding", len(vec))),
		StructuredContent: apptype.EmbedTextResult{ModelID: args.ModelID, Embedding: vec},
	}, nil
}

// handleHealth returns basic server health information
func (s *MCPServer) handleHealth(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[apptype.HealthArgs],
) (*mcp.CallToolResultFor[apptype.HealthResult], error) {
	done := metrics.TimeTool("health_check")
	defer func() { done(true) }()

	res := apptype.HealthResult{
		Name:           serverName,
		Version:        buildinfo.Version,
		Revision:       buildinfo.Revision,
		BuildDate:      buildinfo.BuildDate,
		GraphTransport: s.transport,
		Collections:    s.store != nil,
		Classifier:     s.inference != nil,
	}
	if s.store != nil {
		inUse, idle := s.store.PoolStats()
		metrics.Default().ObservePoolStats(inUse, idle)
		res.EmbeddingDims = s.store.Dims()
		res.SearchMethods = s.store.SearchMethods()
		res.CollectionsPing = "ok"
		if err := s.store.Ping(ctx); err != nil {
			res.CollectionsPing = err.Error()
		}
	}
	return &mcp.CallToolResultFor[apptype.HealthResult]{
		Content:           text(fmt.Sprintf("%s %s", serverName, buildinfo.Version)),
		StructuredContent: res,
	}, nil
}

// reportPoolStats feeds the pool gauges until ctx is done.
func (s *MCPServer) reportPoolStats(ctx context.Context) {
	if s.store == nil {
		return
	}
	ticker := time.NewTicker(5 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				inUse, idle := s.store.PoolStats()
				metrics.Default().ObservePoolStats(inUse, idle)
			}
		}
	}()
}

// Run starts the MCP server with stdio transport
func (s *MCPServer) Run(ctx context.Context) error {
	s.reportPoolStats(ctx)
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}

// RunSSE starts the MCP server over SSE at the given address and endpoint
func (s *MCPServer) RunSSE(ctx context.Context, addr string, endpoint string) error {
	s.reportPoolStats(ctx)
	handler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server { return s.server })
	mux := http.NewServeMux()
	mux.Handle(endpoint, handler)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("SSE MCP server listening", zap.String("addr", addr), zap.String("endpoint", endpoint))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
