// Package static serves raw entity records from memory. It backs local
// development and tests.
package static

import (
	"context"
	"strings"
	"sync"
	"time"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
)

// Provider answers lookups from a fixed record set keyed by identifier.
type Provider struct {
	id         string
	entityType models.EntityType

	mu      sync.RWMutex
	records map[string]map[string]any
	fail    error
	calls   int
}

func New(id string, t models.EntityType) *Provider {
	return &Provider{
		id:         id,
		entityType: t,
		records:    make(map[string]map[string]any),
	}
}

func key(identifier string) string {
	return strings.ToUpper(strings.TrimSpace(identifier))
}

// Add registers values under identifier. Lookups are case-insensitive.
func (p *Provider) Add(identifier string, values map[string]any) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records[key(identifier)] = values
	return p
}

// FailWith makes every lookup return err until cleared with nil.
func (p *Provider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = err
}

// Calls reports how many lookups reached the provider.
func (p *Provider) Calls() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.calls
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Capabilities() providers.Capabilities {
	var fields []providers.FieldCapability
	if schema, err := models.SchemaFor(p.entityType); err == nil {
		for _, s := range schema.Slots {
			fields = append(fields, providers.FieldCapability{FieldName: s.Path, Available: true})
		}
	}
	return providers.Capabilities{
		Protocol:   providers.ProtocolStatic,
		EntityType: p.entityType,
		Fields:     fields,
		Version:    "v1",
		Filters:    []string{"identifier"},
	}
}

func (p *Provider) Lookup(ctx context.Context, identifier string) (*providers.RawEntityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, providers.TransportError(p.id, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail != nil {
		return nil, p.fail
	}
	values, ok := p.records[key(identifier)]
	if !ok {
		return nil, providers.NewProviderError(providers.ErrorNotFound, p.id, "no record for "+identifier, nil)
	}
	copied := make(map[string]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &providers.RawEntityRecord{
		EntityType: p.entityType,
		Identifier: identifier,
		Values:     copied,
		FetchedAt:  time.Now().UTC(),
		Source:     p.id,
	}, nil
}

func (p *Provider) Health(context.Context) error { return nil }
