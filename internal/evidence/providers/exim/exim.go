// Package exim looks up importer-exporter codes in the DGFT registry.
package exim

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
)

const version = "v1"

type Provider struct {
	id      string
	baseURL string
	http    *providers.HTTPClient
	now     func() time.Time
}

func New(id, baseURL, apiKey string, timeout time.Duration) *Provider {
	c := providers.NewHTTPClient(id, timeout)
	if apiKey != "" {
		c.Header.Set("X-API-Key", apiKey)
	}
	return &Provider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    c,
		now:     time.Now,
	}
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Protocol:   providers.ProtocolHTTP,
		EntityType: models.EntityTypeEXIM,
		Fields: []providers.FieldCapability{
			{FieldName: "entityName", Available: true},
			{FieldName: "iec", Available: true},
			{FieldName: "iecStatus", Available: true},
			{FieldName: "iecIssueDate", Available: true},
			{FieldName: "branch", Available: true},
		},
		Version: version,
		Filters: []string{"entity_name"},
	}
}

// Lookup searches by entity name and keeps the first match. The IEC
// service returns numbers as JSON numbers; they are kept as json.Number so
// codes such as "0305008111" survive intact.
func (p *Provider) Lookup(ctx context.Context, identifier string) (*providers.RawEntityRecord, error) {
	name := strings.TrimSpace(identifier)
	if name == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "empty entity name", nil)
	}
	q := url.Values{}
	q.Set("entityName", name)

	var body json.RawMessage
	if err := p.http.GetJSON(ctx, p.baseURL+"/iec?"+q.Encode(), &body); err != nil {
		return nil, err
	}
	values, err := parseResponse(p.id, body)
	if err != nil {
		return nil, err
	}
	return &providers.RawEntityRecord{
		EntityType: models.EntityTypeEXIM,
		Identifier: name,
		Values:     values,
		FetchedAt:  p.now().UTC(),
		Source:     p.id,
	}, nil
}

func (p *Provider) Health(ctx context.Context) error {
	return p.http.Ping(ctx, p.baseURL+"/health")
}

func parseResponse(providerID string, body []byte) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.UseNumber()
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	if err := dec.Decode(&envelope); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode response", err)
	}
	if len(envelope.Data) == 0 {
		return nil, providers.NewProviderError(providers.ErrorNotFound, providerID, "no matching IEC", nil)
	}
	rec := envelope.Data[0]
	if _, ok := rec["iec"]; !ok {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, providerID, "record has no iec", nil)
	}
	return rec, nil
}
