package classifier

import (
	"fmt"
	"sort"
)

// Registry keeps a mapping from strategy names to their implementations.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{strategies: map[string]Strategy{}}
}

// DefaultRegistry registers the json and keyword strategies for the given areas.
func DefaultRegistry(areas Areas) *Registry {
	r := NewRegistry()
	r.Register(NewJSONStrategy(areas))
	r.Register(NewKeywordStrategy(areas))
	return r
}

// Register adds or replaces a strategy implementation.
func (r *Registry) Register(strategy Strategy) {
	if r.strategies == nil {
		r.strategies = map[string]Strategy{}
	}
	r.strategies[strategy.Name()] = strategy
}

// Resolve returns a strategy by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Strategy, error) {
	if strategy, ok := r.strategies[name]; ok {
		return strategy, nil
	}
	return nil, fmt.Errorf("classifier format %s is not registered (have %v)", name, r.names())
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
