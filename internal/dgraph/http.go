// Package dgraph implements the DQL and GraphQL executors against a Dgraph
// alpha, over its HTTP API or over gRPC with dgo.
package dgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
)

const (
	accessTokenHeader = "X-Dgraph-AccessToken"
	requestIDHeader   = "X-Request-Id"
	maxResponseBytes  = 64 << 20
)

// HTTPOptions configures an HTTPExecutor.
type HTTPOptions struct {
	// BaseURL of the alpha, e.g. http://localhost:8080.
	BaseURL string
	// GraphQLURL defaults to BaseURL + "/graphql".
	GraphQLURL string
	AuthToken  string
	Timeout    time.Duration
	Client     *http.Client
	Logger     *zap.Logger
}

// HTTPExecutor posts statements to the alpha's /query, /mutate and /graphql
// endpoints and returns the response body unchanged.
type HTTPExecutor struct {
	queryURL   string
	mutateURL  string
	graphqlURL string
	token      string
	client     *http.Client
	logger     *zap.Logger
}

// NewHTTPExecutor validates opts and builds an executor.
func NewHTTPExecutor(opts HTTPOptions) (*HTTPExecutor, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid dgraph url %q", opts.BaseURL)
	}
	gql := opts.GraphQLURL
	if gql == "" {
		gql = base.String() + "/graphql"
	}
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPExecutor{
		queryURL:   base.String() + "/query",
		mutateURL:  base.String() + "/mutate?commitNow=true",
		graphqlURL: gql,
		token:      opts.AuthToken,
		client:     client,
		logger:     logging.OrNop(opts.Logger),
	}, nil
}

// ExecuteDQL runs a query, or a mutation committed immediately. Mutations
// must be in the /mutate body format (see parseMutation); JSON ones go as
// application/json, anything else as application/rdf. Variables are only
// supported on queries.
func (e *HTTPExecutor) ExecuteDQL(ctx context.Context, stmt string, vars map[string]string, isMutation bool) (out []byte, err error) {
	op := "dql_query"
	if isMutation {
		op = "dql_mutate"
	}
	done := metrics.TimeExec(op)
	defer func() { done(err == nil) }()

	if !isMutation {
		body, err := requestBody(stmt, vars)
		if err != nil {
			return nil, fmt.Errorf("encode query: %w", err)
		}
		return e.post(ctx, op, e.queryURL, "application/json", body)
	}

	if len(vars) > 0 {
		return nil, fmt.Errorf("variables are not supported on mutations")
	}
	if _, _, err := parseMutation(stmt); err != nil {
		return nil, err
	}
	contentType := "application/rdf"
	if isJSON(stmt) {
		contentType = "application/json"
	}
	return e.post(ctx, op, e.mutateURL, contentType, []byte(stmt))
}

// ExecuteGQL posts a GraphQL request.
func (e *HTTPExecutor) ExecuteGQL(ctx context.Context, stmt string, vars map[string]string) (out []byte, err error) {
	done := metrics.TimeExec("graphql")
	defer func() { done(err == nil) }()

	body, err := requestBody(stmt, vars)
	if err != nil {
		return nil, fmt.Errorf("encode graphql request: %w", err)
	}
	return e.post(ctx, "graphql", e.graphqlURL, "application/json", body)
}

func (e *HTTPExecutor) post(ctx context.Context, op, target, contentType string, body []byte) ([]byte, error) {
	reqID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)
	if e.token != "" {
		req.Header.Set(accessTokenHeader, e.token)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dgraph %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("dgraph %s: read response: %w", op, err)
	}
	e.logger.Debug("dgraph request",
		zap.String("op", op),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dgraph %s: http status %s: %s", op, resp.Status, snippet(raw))
	}
	return raw, nil
}

// requestBody is the {query, variables} document posted to /query and
// /graphql.
func requestBody(stmt string, vars map[string]string) ([]byte, error) {
	encoded, err := hostapi.EncodeVars(vars)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Query     string          `json:"query"`
		Variables json.RawMessage `json:"variables"`
	}{Query: stmt, Variables: encoded})
}

func isJSON(stmt string) bool {
	s := strings.TrimSpace(stmt)
	return strings.HasPrefix(s, "{") && json.Valid([]byte(s))
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		s = s[:256] + "..."
	}
	return s
}
