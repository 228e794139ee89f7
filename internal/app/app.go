// Package app wires the collaborators described by a config.Config.
package app

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/collections"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/config"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/dgraph"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/graph"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/hostapi"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/inference"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/server"
)

// App holds the wired collaborators. Store, Collections and Classifier are
// nil when not configured.
type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DQL         hostapi.DQLExecutor
	GQL         hostapi.GQLExecutor
	Graph       *graph.Analytics
	Models      *embeddings.Registry
	Store       *collections.Store
	Collections *collections.Client
	Inference   *inference.Service

	closers []func() error
}

// New builds every collaborator cfg enables. On error, whatever was already
// opened is closed.
func New(cfg *config.Config, logger *zap.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logging.OrNop(logger)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	// GraphQL is HTTP-only, so the HTTP executor exists on either transport.
	httpExec, err := dgraph.NewHTTPExecutor(dgraph.HTTPOptions{
		BaseURL:    cfg.Dgraph.HTTPURL,
		GraphQLURL: cfg.Dgraph.GraphQLURL,
		AuthToken:  cfg.Dgraph.AuthToken,
		Timeout:    cfg.Dgraph.Timeout,
		Logger:     a.Logger.Named("dgraph"),
	})
	if err != nil {
		return nil, err
	}
	a.DQL, a.GQL = httpExec, httpExec

	if strings.EqualFold(cfg.Dgraph.Transport, "grpc") {
		grpcExec, err := dgraph.NewGRPCExecutor(dgraph.GRPCOptions{
			Addr:      cfg.Dgraph.GRPCAddr,
			AuthToken: cfg.Dgraph.AuthToken,
			Logger:    a.Logger.Named("dgraph"),
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, grpcExec.Close)
		a.DQL = grpcExec
	}
	a.Graph = graph.New(a.DQL, a.Logger.Named("graph"))

	def, err := embeddings.New(cfg.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	a.Models = embeddings.NewRegistry(def)

	if cfg.Collections.URL != "" {
		a.Store, err = collections.NewStore(collections.Config{
			URL:            cfg.Collections.URL,
			AuthToken:      cfg.Collections.AuthToken,
			EmbeddingDims:  cfg.Embeddings.Dims,
			MaxOpenConns:   cfg.Collections.MaxOpenConns,
			MaxIdleConns:   cfg.Collections.MaxIdleConns,
			ConnMaxIdleSec: cfg.Collections.ConnMaxIdleSec,
			ConnMaxLifeSec: cfg.Collections.ConnMaxLifeSec,
		}, a.Models, a.Logger.Named("collections"))
		if err != nil {
			return nil, fmt.Errorf("collections: %w", err)
		}
		a.closers = append(a.closers, a.Store.Close)
		a.Collections = collections.NewClient(a.Store)
	}

	var classifier inference.Classifier
	if cfg.Inference.ClassifierURL != "" {
		classifier, err = inference.NewHTTPClassifier(cfg.Inference.ClassifierURL, cfg.Inference.ClassifierTimeout, a.Logger.Named("inference"))
		if err != nil {
			return nil, err
		}
	}
	a.Inference = inference.New(classifier, a.Models)

	return a, nil
}

// ServerDeps exposes the collaborators to the MCP server.
func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		DQL:       a.DQL,
		GQL:       a.GQL,
		Store:     a.Store,
		Inference: a.Inference,
		Transport: strings.ToLower(a.Config.Dgraph.Transport),
		Logger:    a.Logger.Named("server"),
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
