// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
)

// Config holds all application configuration
type Config struct {
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	MetricsPrometheus bool   `env:"METRICS_PROMETHEUS" envDefault:"false"`
	MetricsAddr       string `env:"METRICS_ADDR" envDefault:":9090"`

	Dgraph      DgraphConfig
	Collections CollectionsConfig
	Inference   InferenceConfig
	Embeddings  embeddings.Config
}

// DgraphConfig selects and configures the graph engine executor.
type DgraphConfig struct {
	// Transport is "http" or "grpc".
	Transport  string        `env:"DGRAPH_TRANSPORT" envDefault:"http"`
	HTTPURL    string        `env:"DGRAPH_HTTP_URL" envDefault:"http://localhost:8080"`
	GRPCAddr   string        `env:"DGRAPH_GRPC_ADDR" envDefault:"localhost:9080"`
	AuthToken  string        `env:"DGRAPH_AUTH_TOKEN"`
	Timeout    time.Duration `env:"DGRAPH_TIMEOUT" envDefault:"30s"`
	GraphQLURL string        `env:"GRAPHQL_URL"`
}

// CollectionsConfig holds libSQL connection settings for the collection store.
type CollectionsConfig struct {
	URL            string `env:"LIBSQL_URL" envDefault:"file:./collections.db"`
	AuthToken      string `env:"LIBSQL_AUTH_TOKEN"`
	MaxOpenConns   int    `env:"DB_MAX_OPEN_CONNS" envDefault:"0"`
	MaxIdleConns   int    `env:"DB_MAX_IDLE_CONNS" envDefault:"0"`
	ConnMaxIdleSec int    `env:"DB_CONN_MAX_IDLE_SEC" envDefault:"0"`
	ConnMaxLifeSec int    `env:"DB_CONN_MAX_LIFE_SEC" envDefault:"0"`
}

// InferenceConfig points at the classification service.
type InferenceConfig struct {
	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns the configuration with every field at its default,
// ignoring the process environment.
func Defaults() *Config {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Dgraph.Transport) {
	case "http", "grpc":
	default:
		return fmt.Errorf("invalid DGRAPH_TRANSPORT %q (expected http or grpc)", c.Dgraph.Transport)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q (expected json or console)", c.LogFormat)
	}
	if c.Embeddings.Dims <= 0 {
		return fmt.Errorf("EMBEDDING_DIMS must be positive, got %d", c.Embeddings.Dims)
	}
	return nil
}
