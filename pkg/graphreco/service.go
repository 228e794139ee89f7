// Package graphreco provides a library-first API for Jaccard recommendations,
// collections and inference without MCP transport.
package graphreco

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/app"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/dql"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/inference"
)

// Re-exported types so callers can name them.
type (
	SchemaSpec                = apptype.SchemaSpec
	SimilarityNode            = apptype.SimilarityNode
	RecommendedItem           = apptype.RecommendedItem
	MutationResult            = apptype.MutationResult
	CollectionMutationResult  = apptype.CollectionMutationResult
	CollectionSearchResult    = apptype.CollectionSearchResult
	ClassificationResult      = apptype.ClassificationResult
	ClassificationProbability = apptype.ClassificationProbability
)

// ErrNoCollections is returned by collection methods when the service was
// built with DisableCollections.
var ErrNoCollections = errors.New("collections are disabled")

// Service wraps the wired collaborators.
type Service struct {
	app *app.App
}

// NewService constructs a Service with the provided config.
func NewService(cfg *Config, logger *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	internal := cfg.toInternal()
	if err := internal.Validate(); err != nil {
		return nil, err
	}
	a, err := app.New(internal, logger)
	if err != nil {
		return nil, err
	}
	return &Service{app: a}, nil
}

// Close releases resources.
func (s *Service) Close() error { return s.app.Close() }

// SimilarParents returns the topK parents closest to parentID by Jaccard distance.
func (s *Service) SimilarParents(ctx context.Context, parentID string, topK uint32, spec SchemaSpec, onlyMoreChildren bool) ([]SimilarityNode, error) {
	return s.app.Graph.JaccardSimilarParents(ctx, parentID, topK, spec, onlyMoreChildren)
}

// RecommendedItems returns the topK children of similar parents parentID lacks.
func (s *Service) RecommendedItems(ctx context.Context, parentID string, topK uint32, spec SchemaSpec) ([]RecommendedItem, error) {
	return s.app.Graph.JaccardRecommendedItems(ctx, parentID, topK, spec)
}

// BuildSimilarityQuery renders the similarity query without running it.
func BuildSimilarityQuery(parentID string, topK uint32, spec SchemaSpec, onlyMoreChildren bool) (string, error) {
	return dql.BuildSimilarityQuery(parentID, topK, spec, onlyMoreChildren)
}

// BuildRecommendationQuery renders the recommendation query without running it.
func BuildRecommendationQuery(parentID string, topK uint32, spec SchemaSpec) (string, error) {
	return dql.BuildRecommendationQuery(parentID, topK, spec)
}

// Query runs a read-only DQL query and returns its data payload.
func (s *Service) Query(ctx context.Context, query string, vars map[string]string) (map[string]any, error) {
	resp, err := hostapi.Query[map[string]any](ctx, s.app.DQL, query, vars)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Mutate runs a DQL mutation, in the /mutate body format, committed
// immediately.
func (s *Service) Mutate(ctx context.Context, mutation string) (MutationResult, error) {
	resp, err := hostapi.Mutate(ctx, s.app.DQL, mutation, nil)
	if err != nil {
		return MutationResult{}, err
	}
	return resp.Data, nil
}

// Upsert stores text under key in collection and indexes it with every
// search method. An empty key gets a generated UUID.
func (s *Service) Upsert(ctx context.Context, collection, key, text string) (CollectionMutationResult, error) {
	if s.app.Collections == nil {
		return CollectionMutationResult{}, ErrNoCollections
	}
	return s.app.Collections.Upsert(ctx, collection, key, text)
}

// Remove deletes a text and its vectors. An unknown key is an error.
func (s *Service) Remove(ctx context.Context, collection, key string) (CollectionMutationResult, error) {
	if s.app.Collections == nil {
		return CollectionMutationResult{}, ErrNoCollections
	}
	return s.app.Collections.Remove(ctx, collection, key)
}

// Search returns up to limit texts of collection closest to text under
// searchMethod ("" = default), best first.
func (s *Service) Search(ctx context.Context, collection, searchMethod, text string, limit int, returnText bool) (CollectionSearchResult, error) {
	if s.app.Collections == nil {
		return CollectionSearchResult{}, ErrNoCollections
	}
	return s.app.Collections.Search(ctx, collection, searchMethod, text, limit, returnText)
}

// GetText returns the text stored under key.
func (s *Service) GetText(ctx context.Context, collection, key string) (string, error) {
	if s.app.Collections == nil {
		return "", ErrNoCollections
	}
	return s.app.Collections.GetText(ctx, collection, key)
}

// ClassifyText classifies one text and picks the top label; top is nil when
// the classifier returns no labels.
func (s *Service) ClassifyText(ctx context.Context, modelID, text string, threshold float64) (res ClassificationResult, top *ClassificationProbability, err error) {
	res, err = s.app.Inference.ClassifyText(ctx, modelID, text)
	if err != nil {
		return res, nil, err
	}
	return res, inference.MaxProbability(res, threshold), nil
}

// Embed computes the embedding of text with the named model ("" = default).
func (s *Service) Embed(ctx context.Context, modelID, text string) ([]float32, error) {
	return s.app.Inference.ComputeTextEmbedding(ctx, modelID, text)
}
