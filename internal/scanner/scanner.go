package scanner

import (
	"fmt"
	"sort"

	"LeakScanner/internal/domain"
	"LeakScanner/internal/ports"
)

// Registry keeps a mapping from source kinds to their adapters.
type Registry struct {
	adapters map[domain.SourceKind]ports.Adapter
	listings map[domain.SourceKind]ports.ListingSource
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[domain.SourceKind]ports.Adapter{},
		listings: map[domain.SourceKind]ports.ListingSource{},
	}
}

// Register adds or replaces a candidate adapter.
func (r *Registry) Register(adapter ports.Adapter) {
	r.adapters[adapter.Kind()] = adapter
}

// RegisterListing adds or replaces a listing source.
func (r *Registry) RegisterListing(source ports.ListingSource) {
	r.listings[source.Kind()] = source
}

// Resolve returns an adapter by kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.SourceKind) (ports.Adapter, error) {
	if adapter, ok := r.adapters[kind]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", kind)
}

// ResolveListing returns a listing source by kind or an error if it is absent.
func (r *Registry) ResolveListing(kind domain.SourceKind) (ports.ListingSource, error) {
	if source, ok := r.listings[kind]; ok {
		return source, nil
	}
	return nil, fmt.Errorf("listing source %s is not registered", kind)
}

// Subscribers returns the registered push-style adapters.
func (r *Registry) Subscribers() []ports.Subscriber {
	var out []ports.Subscriber
	for _, kind := range r.Kinds() {
		if sub, ok := r.adapters[kind].(ports.Subscriber); ok {
			out = append(out, sub)
		}
	}
	return out
}

// Kinds lists every registered kind, adapters and listings, sorted.
func (r *Registry) Kinds() []domain.SourceKind {
	seen := map[domain.SourceKind]struct{}{}
	for k := range r.adapters {
		seen[k] = struct{}{}
	}
	for k := range r.listings {
		seen[k] = struct{}{}
	}
	kinds := make([]domain.SourceKind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
