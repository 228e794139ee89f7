package graphreco

import (
	"time"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/config"
)

// Config exposes a stable wrapper for configuration in package mode.
// Zero fields keep the defaults of internal/config.
type Config struct {
	// Transport is "http" (default) or "grpc".
	Transport      string
	DgraphURL      string
	DgraphGRPCAddr string
	GraphQLURL     string
	AuthToken      string
	Timeout        time.Duration

	// CollectionsURL is a libSQL URL. Set DisableCollections to run without
	// a collection store.
	CollectionsURL       string
	CollectionsAuthToken string
	DisableCollections   bool
	EmbeddingDims        int
	EmbeddingsProvider   string
	MaxOpenConns         int
	MaxIdleConns         int

	ClassifierURL string
}

func (c *Config) toInternal() *config.Config {
	cfg := config.Defaults()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Dgraph.Transport, c.Transport)
	set(&cfg.Dgraph.HTTPURL, c.DgraphURL)
	set(&cfg.Dgraph.GRPCAddr, c.DgraphGRPCAddr)
	set(&cfg.Dgraph.GraphQLURL, c.GraphQLURL)
	set(&cfg.Dgraph.AuthToken, c.AuthToken)
	if c.Timeout > 0 {
		cfg.Dgraph.Timeout = c.Timeout
	}

	set(&cfg.Collections.URL, c.CollectionsURL)
	set(&cfg.Collections.AuthToken, c.CollectionsAuthToken)
	if c.DisableCollections {
		cfg.Collections.URL = ""
	}
	if c.EmbeddingDims > 0 {
		cfg.Embeddings.Dims = c.EmbeddingDims
	}
	set(&cfg.Embeddings.Provider, c.EmbeddingsProvider)
	cfg.Collections.MaxOpenConns = c.MaxOpenConns
	cfg.Collections.MaxIdleConns = c.MaxIdleConns

	set(&cfg.Inference.ClassifierURL, c.ClassifierURL)
	return cfg
}
