package providers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"zkregistry/internal/compliance/models"
)

// Protocol defines the supported communication protocols for data sources
type Protocol string

const (
	ProtocolHTTP   Protocol = "http"
	ProtocolStatic Protocol = "static"
)

// FieldCapability advertises a raw field a provider returns
type FieldCapability struct {
	FieldName string
	Available bool
}

// Capabilities describes what a provider supports
type Capabilities struct {
	Protocol   Protocol
	EntityType models.EntityType
	Fields     []FieldCapability
	Version    string
	// Filters are the identifier kinds Lookup accepts, e.g. "lei", "name".
	Filters []string
}

// RawEntityRecord is an entity as returned by its source registry. Values
// keeps the source's nesting; schemas address it with dotted paths.
type RawEntityRecord struct {
	EntityType models.EntityType `json:"entity_type"`
	Identifier string            `json:"identifier"`
	Values     map[string]any    `json:"values"`
	FetchedAt  time.Time         `json:"fetched_at"`
	Source     string            `json:"source"`
}

// Provider is the data source capability for one entity type
type Provider interface {
	// ID returns a unique identifier for this provider instance
	ID() string

	// Capabilities returns what this provider supports
	Capabilities() Capabilities

	// Lookup fetches the raw record for identifier (an ID or a name,
	// depending on Capabilities().Filters)
	Lookup(ctx context.Context, identifier string) (*RawEntityRecord, error)

	// Health checks if the provider is available
	Health(ctx context.Context) error
}

// ProviderRegistry maps entity types to their provider
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[models.EntityType]Provider
}

// NewProviderRegistry creates a new empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[models.EntityType]Provider),
	}
}

// Register adds a provider for its entity type
func (r *ProviderRegistry) Register(p Provider) error {
	t := p.Capabilities().EntityType
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, exists := r.providers[t]; exists {
		return fmt.Errorf("provider %s already registered for %s", existing.ID(), t)
	}
	r.providers[t] = p
	return nil
}

// ForType returns the provider serving t
func (r *ProviderRegistry) ForType(t models.EntityType) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, t)
	}
	return p, nil
}

// All returns all registered providers ordered by entity type
func (r *ProviderRegistry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Capabilities().EntityType < result[j].Capabilities().EntityType
	})
	return result
}

// Health checks every provider and returns the failures by provider ID
func (r *ProviderRegistry) Health(ctx context.Context) map[string]error {
	failures := make(map[string]error)
	for _, p := range r.All() {
		if err := p.Health(ctx); err != nil {
			failures[p.ID()] = err
		}
	}
	return failures
}
