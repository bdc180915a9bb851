// Package gleif looks up legal entities in the GLEIF LEI registry.
package gleif

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
)

const version = "v1"

var leiPattern = regexp.MustCompile(`^[A-Z0-9]{18}[0-9]{2}$`)

// Provider queries the GLEIF lei-records API by LEI or legal name.
type Provider struct {
	id      string
	baseURL string
	http    *providers.HTTPClient
	now     func() time.Time
}

func New(id, baseURL string, timeout time.Duration) *Provider {
	return &Provider{
		id:      id,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    providers.NewHTTPClient(id, timeout),
		now:     time.Now,
	}
}

func (p *Provider) ID() string { return p.id }

func (p *Provider) Capabilities() providers.Capabilities {
	return providers.Capabilities{
		Protocol:   providers.ProtocolHTTP,
		EntityType: models.EntityTypeGLEIF,
		Fields: []providers.FieldCapability{
			{FieldName: "lei", Available: true},
			{FieldName: "entity", Available: true},
			{FieldName: "registration", Available: true},
			{FieldName: "conformityFlag", Available: true},
			{FieldName: "bic", Available: true},
			{FieldName: "mic", Available: true},
		},
		Version: version,
		Filters: []string{"lei", "legal_name"},
	}
}

// IsLEI reports whether s is shaped like an ISO 17442 LEI.
func IsLEI(s string) bool { return leiPattern.MatchString(s) }

func (p *Provider) Lookup(ctx context.Context, identifier string) (*providers.RawEntityRecord, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "empty identifier", nil)
	}

	var endpoint string
	if IsLEI(identifier) {
		endpoint = p.baseURL + "/lei-records/" + url.PathEscape(identifier)
	} else {
		q := url.Values{}
		q.Set("filter[entity.legalName]", identifier)
		q.Set("page[size]", "1")
		endpoint = p.baseURL + "/lei-records?" + q.Encode()
	}

	var body json.RawMessage
	if err := p.http.GetJSON(ctx, endpoint, &body); err != nil {
		return nil, err
	}
	attrs, err := parseResponse(p.id, body)
	if err != nil {
		return nil, err
	}
	return &providers.RawEntityRecord{
		EntityType: models.EntityTypeGLEIF,
		Identifier: identifier,
		Values:     attrs,
		FetchedAt:  p.now().UTC(),
		Source:     p.id,
	}, nil
}

func (p *Provider) Health(ctx context.Context) error {
	return p.http.Ping(ctx, p.baseURL+"/lei-records?page[size]=1")
}

type record struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// parseResponse accepts both the single-record shape ({"data": {...}})
// and the search shape ({"data": [...]}), returning the first record's
// attributes.
func parseResponse(providerID string, body []byte) (map[string]any, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode envelope", err)
	}
	data := strings.TrimSpace(string(envelope.Data))
	if data == "" || data == "null" {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, providerID, "response has no data member", nil)
	}

	var rec record
	if strings.HasPrefix(data, "[") {
		var list []record
		if err := json.Unmarshal(envelope.Data, &list); err != nil {
			return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode records", err)
		}
		if len(list) == 0 {
			return nil, providers.NewProviderError(providers.ErrorNotFound, providerID, "no matching lei record", nil)
		}
		rec = list[0]
	} else if err := json.Unmarshal(envelope.Data, &rec); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode record", err)
	}

	if rec.Attributes == nil {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, providerID, "record has no attributes", nil)
	}
	if _, ok := rec.Attributes["lei"]; !ok && rec.ID != "" {
		rec.Attributes["lei"] = rec.ID
	}
	if _, ok := rec.Attributes["entity"].(map[string]any); !ok {
		return nil, providers.NewProviderError(providers.ErrorContractMismatch, providerID, "record has no entity object", fmt.Errorf("type %T", rec.Attributes["entity"]))
	}
	return rec.Attributes, nil
}
