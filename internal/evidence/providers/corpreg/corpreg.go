// Package corpreg looks up companies in the corporate (MCA) registry by CIN.
package corpreg

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
)

const version = "v1"

var cinPattern = regexp.MustCompile(`^[A-Z]\d{5}[A-Z]{2}\d{4}[A-Z]{3}\d{6}$`)

// IsCIN reports whether s is a well-formed corporate identification number.
func IsCIN(s string) bool { return cinPattern.MatchString(s) }

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
		EntityType: models.EntityTypeCorporateRegistration,
		Fields: []providers.FieldCapability{
			{FieldName: "companyName", Available: true},
			{FieldName: "cin", Available: true},
			{FieldName: "companyStatus", Available: true},
			{FieldName: "dateOfIncorporation", Available: true},
			{FieldName: "activeCompliance", Available: true},
		},
		Version: version,
		Filters: []string{"cin"},
	}
}

type response struct {
	Data map[string]any `json:"data"`
}

func (p *Provider) Lookup(ctx context.Context, identifier string) (*providers.RawEntityRecord, error) {
	cin := strings.ToUpper(strings.TrimSpace(identifier))
	if !IsCIN(cin) {
		return nil, providers.NewProviderError(providers.ErrorBadData, p.id, "malformed CIN "+identifier, nil)
	}

	var resp response
	if err := p.http.GetJSON(ctx, p.baseURL+"/companies/"+url.PathEscape(cin), &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, providers.NewProviderError(providers.ErrorNotFound, p.id, "no company for "+cin, nil)
	}
	if _, ok := resp.Data["cin"]; !ok {
		resp.Data["cin"] = cin
	}
	return &providers.RawEntityRecord{
		EntityType: models.EntityTypeCorporateRegistration,
		Identifier: cin,
		Values:     resp.Data,
		FetchedAt:  p.now().UTC(),
		Source:     p.id,
	}, nil
}

func (p *Provider) Health(ctx context.Context) error {
	return p.http.Ping(ctx, p.baseURL+"/health")
}
