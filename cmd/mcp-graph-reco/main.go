package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/app"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/buildinfo"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/config"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/server"
)

var (
	transport       = flag.String("transport", "stdio", "Transport to use: stdio or sse")
	addr            = flag.String("addr", ":8080", "Address to listen on when using SSE transport")
	sseEndpoint     = flag.String("sse-endpoint", "/sse", "SSE endpoint path when using SSE transport")
	dgraphTransport = flag.String("dgraph-transport", "", "Graph engine transport: http or grpc (default from DGRAPH_TRANSPORT)")
	dgraphURL       = flag.String("dgraph-url", "", "Dgraph HTTP URL (default from DGRAPH_HTTP_URL)")
	dgraphGRPC      = flag.String("dgraph-grpc", "", "Dgraph gRPC address (default from DGRAPH_GRPC_ADDR)")
	authToken       = flag.String("auth-token", "", "Dgraph access token")
	libsqlURL       = flag.String("libsql-url", "", "libSQL URL of the collection store (default: file:./collections.db)")
	libsqlToken     = flag.String("libsql-auth-token", "", "Authentication token for remote libSQL databases")
	classifierURL   = flag.String("classifier-url", "", "Classification service URL")
	logLevel        = flag.String("log-level", "", "Log level: debug, info, warn, error")
	showVersion     = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("mcp-graph-reco %s (%s, %s)\n", buildinfo.Version, buildinfo.Revision, buildinfo.BuildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// applyFlags overrides env configuration with command line flags if provided.
func applyFlags(cfg *config.Config) {
	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Dgraph.Transport, *dgraphTransport)
	override(&cfg.Dgraph.HTTPURL, *dgraphURL)
	override(&cfg.Dgraph.GRPCAddr, *dgraphGRPC)
	override(&cfg.Dgraph.AuthToken, *authToken)
	override(&cfg.Collections.URL, *libsqlURL)
	override(&cfg.Collections.AuthToken, *libsqlToken)
	override(&cfg.Inference.ClassifierURL, *classifierURL)
	override(&cfg.LogLevel, *logLevel)
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal, closing server")
		cancel()
	}()

	// Initialize metrics (noop if disabled)
	if err := metrics.Init(cfg.MetricsPrometheus, cfg.MetricsAddr); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("error closing collaborators", zap.Error(err))
		}
	}()

	mcpServer := server.NewMCPServer(a.ServerDeps())

	logger.Info("starting MCP graph recommendation server",
		zap.String("version", buildinfo.Version),
		zap.String("transport", *transport),
		zap.String("dgraph_transport", cfg.Dgraph.Transport),
		zap.Bool("collections", a.Store != nil))

	switch *transport {
	case "stdio":
		err = mcpServer.Run(ctx)
	case "sse":
		err = mcpServer.RunSSE(ctx, *addr, *sseEndpoint)
	default:
		return fmt.Errorf("unknown transport: %s (expected: stdio or sse)", *transport)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
