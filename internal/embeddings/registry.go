package embeddings

import (
	"sort"
	"sync"
)

// DefaultName is the name always bound in a Registry.
const DefaultName = "default"

// Registry maps names to providers. Collections use the names as search
// methods; the inference helpers use them as model ids.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry returns a registry with def bound to DefaultName.
func NewRegistry(def Provider) *Registry {
	return &Registry{providers: map[string]Provider{DefaultName: def}}
}

// Register binds name to p, replacing any previous binding.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Get looks up name. An empty name resolves to the default provider.
func (r *Registry) Get(name string) (Provider, bool) {
	if name == "" {
		name = DefaultName
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok && p != nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
