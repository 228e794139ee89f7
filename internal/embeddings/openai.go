package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// openAIProvider talks to /embeddings on OpenAI or any compatible server
// (LocalAI, llama.cpp).
type openAIProvider struct {
	name    string
	baseURL string
	model   string
	dims    int
	apiKey  string
	http    *http.Client
}

// NewOpenAIProvider returns a provider for an OpenAI-compatible embeddings API.
// apiKey may be empty for local servers.
func NewOpenAIProvider(name, baseURL, apiKey, model string, timeout time.Duration) Provider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	dims := 1536
	if strings.Contains(model, "large") {
		dims = 3072
	}
	return &openAIProvider{
		name:    name,
		baseURL: baseURL,
		model:   model,
		dims:    dims,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (p *openAIProvider) Name() string    { return p.name }
func (p *openAIProvider) Dimensions() int { return p.dims }

func (p *openAIProvider) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	// Request: {"model": ..., "input": ["..."]}
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	base, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s embeddings: bad base url: %w", p.name, err)
	}
	embURL := *base
	embURL.Path = path.Join(embURL.Path, "/embeddings")

	body, err := json.Marshal(map[string]any{"model": p.model, "input": inputs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, embURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var b struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&b)
		if b.Error.Message != "" {
			return nil, fmt.Errorf("%s embeddings error: %s", p.name, b.Error.Message)
		}
		return nil, fmt.Errorf("%s embeddings http status: %s", p.name, resp.Status)
	}
	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(inputs) {
		return nil, fmt.Errorf("%s embeddings: got %d vectors for %d inputs", p.name, len(out.Data), len(inputs))
	}
	res := make([][]float32, len(inputs))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(res) || res[idx] != nil {
			idx = i
		}
		res[idx] = f64to32(d.Embedding)
	}
	return res, nil
}

func f64to32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}
