// Package graph composes query building, execution and decoding into the
// Jaccard similarity and recommendation entry points.
package graph

import (
	"context"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apperr"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/dql"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
)

// Analytics runs Jaccard queries through a DQL executor. It holds no
// per-call state and is safe for concurrent use.
type Analytics struct {
	exec   hostapi.DQLExecutor
	logger *zap.Logger
}

// New returns an Analytics bound to exec. A nil logger disables logging.
func New(exec hostapi.DQLExecutor, logger *zap.Logger) *Analytics {
	return &Analytics{exec: exec, logger: logging.OrNop(logger)}
}

// JaccardSimilarParents returns up to topK parents ordered by ascending
// Jaccard distance to parentID, as ordered by the engine.
func (a *Analytics) JaccardSimilarParents(ctx context.Context, parentID string, topK uint32, spec apptype.SchemaSpec, onlyMoreChildren bool) ([]apptype.SimilarityNode, error) {
	query, err := dql.BuildSimilarityQuery(parentID, topK, spec, onlyMoreChildren)
	if err != nil {
		return nil, err
	}
	raw, err := a.run(ctx, "jaccard similar parents", query)
	if err != nil {
		return nil, err
	}
	return hostapi.DecodeList[apptype.SimilarityNode](raw, dql.SimilarNodesKey)
}

// JaccardRecommendedItems returns up to topK children of similar parents
// that parentID lacks, ordered by descending accumulated score.
func (a *Analytics) JaccardRecommendedItems(ctx context.Context, parentID string, topK uint32, spec apptype.SchemaSpec) ([]apptype.RecommendedItem, error) {
	query, err := dql.BuildRecommendationQuery(parentID, topK, spec)
	if err != nil {
		return nil, err
	}
	raw, err := a.run(ctx, "jaccard recommended items", query)
	if err != nil {
		return nil, err
	}
	return hostapi.DecodeList[apptype.RecommendedItem](raw, dql.ItemsKey)
}

// run executes query once. Failures are returned as is; there is no retry.
func (a *Analytics) run(ctx context.Context, op, query string) ([]byte, error) {
	a.logger.Debug("executing dql", zap.String("op", op), zap.String("query", query))
	raw, err := a.exec.ExecuteDQL(ctx, query, nil, false)
	if err != nil {
		a.logger.Warn("dql execution failed", zap.String("op", op), zap.Error(err))
		return nil, &apperr.QueryExecutionError{Op: op, Err: err}
	}
	return raw, nil
}
