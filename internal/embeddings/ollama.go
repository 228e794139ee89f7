package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"
)

type ollamaProvider struct {
	host  string
	model string
	dims  int
	http  *http.Client
}

// NewOllamaProvider returns a provider for a local Ollama server. The
// default timeout is long enough to tolerate cold model loads.
func NewOllamaProvider(host, model string, timeout time.Duration) Provider {
	if model == "" {
		model = "nomic-embed-text"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ollamaProvider{host: host, model: model, dims: 768, http: &http.Client{Timeout: timeout}}
}

func (p *ollamaProvider) Name() string    { return "ollama" }
func (p *ollamaProvider) Dimensions() int { return p.dims }

func (p *ollamaProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	base, err := url.Parse(p.host)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]any{"model": p.model, "input": inputs})
	if err != nil {
		return nil, err
	}

	// /api/embed needs Ollama v0.2.6+; older servers only have /api/embeddings
	embedURL := *base
	embedURL.Path = path.Join(embedURL.Path, "/api/embed")
	resp, err := p.post(ctx, embedURL.String(), body)
	if err != nil && (isTimeout(err) || errors.Is(err, context.DeadlineExceeded)) && ctx.Err() == nil {
		resp, err = p.post(ctx, embedURL.String(), body)
	}
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Body.Close()
		return p.embedLegacy(ctx, base, inputs)
	}
	defer resp.Body.Close()
	if err := ollamaStatus(resp); err != nil {
		return nil, err
	}

	var out struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(inputs))
	}
	return out.Embeddings, nil
}

// embedLegacy calls /api/embeddings once per input.
func (p *ollamaProvider) embedLegacy(ctx context.Context, base *url.URL, inputs []string) ([][]float32, error) {
	legacyURL := *base
	legacyURL.Path = path.Join(legacyURL.Path, "/api/embeddings")
	results := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		b, err := json.Marshal(map[string]any{"model": p.model, "prompt": in})
		if err != nil {
			return nil, err
		}
		resp, err := p.post(ctx, legacyURL.String(), b)
		if err != nil {
			return nil, err
		}
		var single struct {
			Embedding []float64 `json:"embedding"`
		}
		err = ollamaStatus(resp)
		if err == nil {
			err = json.NewDecoder(resp.Body).Decode(&single)
		}
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		if len(single.Embedding) == 0 {
			return nil, fmt.Errorf("ollama returned no embedding")
		}
		results = append(results, f64to32(single.Embedding))
	}
	return results, nil
}

func (p *ollamaProvider) post(ctx context.Context, u string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return p.http.Do(req)
}

func ollamaStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	var b struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&b)
	if b.Error != "" {
		return fmt.Errorf("ollama error: %s", b.Error)
	}
	return fmt.Errorf("ollama http status: %s", resp.Status)
}

// isTimeout returns true if the error represents a timeout
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
