// Package inference wraps the classification and embedding collaborators
// behind the helpers callers use: single-text convenience forms and the
// max/min probability pickers.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/apptype"
	"github.com/ZanzyTHEbar/mcp-graph-reco-go/internal/embeddings"
)

// TextKey is the key a single text is sent under.
const TextKey = "text"

// ErrNoClassifier is returned when classification is requested but no
// classifier is configured.
var ErrNoClassifier = errors.New("no classifier configured")

// Service binds a classifier and the embedding models. Either may be nil.
type Service struct {
	classifier Classifier
	models     *embeddings.Registry
}

func New(classifier Classifier, models *embeddings.Registry) *Service {
	return &Service{classifier: classifier, models: models}
}

// ClassifyText classifies one text.
func (s *Service) ClassifyText(ctx context.Context, modelID, text string) (apptype.ClassificationResult, error) {
	res, err := s.ClassifyTexts(ctx, modelID, map[string]string{TextKey: text})
	if err != nil {
		return apptype.ClassificationResult{}, err
	}
	r, ok := res[TextKey]
	if !ok {
		return apptype.ClassificationResult{}, fmt.Errorf("classify: response has no %q entry", TextKey)
	}
	return r, nil
}

// ClassifyTexts classifies a keyed batch; results keep the input keys.
func (s *Service) ClassifyTexts(ctx context.Context, modelID string, texts map[string]string) (map[string]apptype.ClassificationResult, error) {
	if s.classifier == nil {
		return nil, ErrNoClassifier
	}
	return s.classifier.Classify(ctx, modelID, texts)
}

// ComputeTextEmbedding embeds one text with the named model.
func (s *Service) ComputeTextEmbedding(ctx context.Context, modelID, text string) ([]float32, error) {
	res, err := s.ComputeTextEmbeddings(ctx, modelID, map[string]string{TextKey: text})
	if err != nil {
		return nil, err
	}
	return res[TextKey], nil
}

// ComputeTextEmbeddings embeds a keyed batch with the named model. An empty
// model id selects the default model.
func (s *Service) ComputeTextEmbeddings(ctx context.Context, modelID string, texts map[string]string) (map[string][]float32, error) {
	if s.models == nil {
		return nil, fmt.Errorf("unknown embedding model %q", modelID)
	}
	p, ok := s.models.Get(modelID)
	if !ok {
		return nil, fmt.Errorf("unknown embedding model %q", modelID)
	}
	keys := make([]string, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	for k, t := range texts {
		keys = append(keys, k)
		inputs = append(inputs, t)
	}
	vecs, err := p.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed with %q: %w", modelID, err)
	}
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embed with %q: got %d vectors for %d texts", modelID, len(vecs), len(inputs))
	}
	out := make(map[string][]float32, len(keys))
	for i, k := range keys {
		out[k] = vecs[i]
	}
	return out, nil
}
