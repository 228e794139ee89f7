package inference

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

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/logging"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/metrics"
)

// Classifier scores each text of a keyed batch against a model's labels.
type Classifier interface {
	Classify(ctx context.Context, modelID string, texts map[string]string) (map[string]apptype.ClassificationResult, error)
}

// HTTPClassifier posts {"modelId":..., "texts":{...}} to a classification
// service and expects a map from the same keys to results.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPClassifier builds a classifier for endpoint.
func NewHTTPClassifier(endpoint string, timeout time.Duration, logger *zap.Logger) (*HTTPClassifier, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid classifier url %q", endpoint)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClassifier{
		endpoint: u.String(),
		client:   &http.Client{Timeout: timeout},
		logger:   logging.OrNop(logger),
	}, nil
}

type classifyRequest struct {
	ModelID string            `json:"modelId"`
	Texts   map[string]string `json:"texts"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, modelID string, texts map[string]string) (out map[string]apptype.ClassificationResult, err error) {
	done := metrics.TimeExec("classify")
	defer func() { done(err == nil) }()

	body, err := json.Marshal(classifyRequest{ModelID: modelID, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("encode classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("classify: read response: %w", err)
	}
	c.logger.Debug("classifier request",
		zap.String("model", modelID),
		zap.String("request_id", reqID),
		zap.Int("texts", len(texts)),
		zap.Int("status", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 256 {
			msg = msg[:256] + "..."
		}
		return nil, fmt.Errorf("classify: http status %s: %s", resp.Status, msg)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("classify: decode response: %w", err)
	}
	return out, nil
}
