package gleif

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkregistry/internal/compliance/fields"
	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/evidence/providers/contract"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	search, err := os.ReadFile("testdata/lei_search.json")
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/lei-records", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		switch r.URL.Query().Get("filter[entity.legalName]") {
		case "ZENINVEST S.R.L.", "":
			_, _ = w.Write(search)
		case "SLOW":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write(search)
		case "BROKEN":
			w.WriteHeader(http.StatusBadGateway)
		default:
			_, _ = w.Write([]byte(`{"meta":{},"data":[]}`))
		}
	})
	mux.HandleFunc("/lei-records/3358004DXAMRWRUIYJ05", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"type":"lei-records","id":"3358004DXAMRWRUIYJ05","attributes":{"entity":{"legalName":{"name":"ZENINVEST S.R.L."},"status":"ACTIVE"},"registration":{"status":"ISSUED"}}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGLEIFProvider(t *testing.T) {
	srv := newServer(t)
	p := New("gleif-test", srv.URL, 100*time.Millisecond)
	ctx := context.Background()

	t.Run("capabilities are correctly declared", func(t *testing.T) {
		caps := p.Capabilities()
		assert.Equal(t, providers.ProtocolHTTP, caps.Protocol)
		assert.Equal(t, models.EntityTypeGLEIF, caps.EntityType)
		assert.Contains(t, caps.Filters, "legal_name")
	})

	t.Run("lookup by legal name", func(t *testing.T) {
		rec, err := p.Lookup(ctx, "ZENINVEST S.R.L.")
		require.NoError(t, err)
		assert.Equal(t, "3358004DXAMRWRUIYJ05", rec.Values["lei"])

		v, ok := fields.Lookup(rec.Values, "entity.legalAddress.city")
		require.True(t, ok)
		assert.Equal(t, "BRESCIA", v)
	})

	t.Run("lookup by LEI fills lei from record id", func(t *testing.T) {
		rec, err := p.Lookup(ctx, "3358004DXAMRWRUIYJ05")
		require.NoError(t, err)
		assert.Equal(t, "3358004DXAMRWRUIYJ05", rec.Values["lei"])
	})

	t.Run("unknown name is not found and not retryable", func(t *testing.T) {
		_, err := p.Lookup(ctx, "UNKNOWN_CORP_X")
		require.Error(t, err)
		assert.Equal(t, providers.ErrorNotFound, providers.GetCategory(err))
		assert.False(t, providers.IsRetryable(err))
	})

	t.Run("upstream 5xx is a retryable outage", func(t *testing.T) {
		_, err := p.Lookup(ctx, "BROKEN")
		assert.Equal(t, providers.ErrorProviderOutage, providers.GetCategory(err))
		assert.True(t, providers.IsRetryable(err))
	})

	t.Run("client timeout", func(t *testing.T) {
		_, err := p.Lookup(ctx, "SLOW")
		assert.Equal(t, providers.ErrorTimeout, providers.GetCategory(err))
		assert.True(t, providers.IsRetryable(err))
	})

	t.Run("empty identifier", func(t *testing.T) {
		_, err := p.Lookup(ctx, "  ")
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, p.Health(ctx))
	})
}

func TestGLEIFContract(t *testing.T) {
	srv := newServer(t)
	p := New("gleif-contract", srv.URL, time.Second)

	s := &contract.ContractSuite{
		ProviderID: "gleif-contract",
		Tests: []contract.ContractTest{
			{
				Name:         "search result encodes every schema slot",
				Provider:     p,
				Identifier:   "ZENINVEST S.R.L.",
				ExpectedType: models.EntityTypeGLEIF,
				RequiredPaths: []string{
					"lei", "entity.legalName.name", "entity.status",
					"registration.status", "registration.nextRenewalDate",
				},
			},
		},
	}
	s.Run(t)

	(&contract.ErrorContractTest{
		Name:          "not found",
		Provider:      p,
		Identifier:    "UNKNOWN_CORP_X",
		ExpectedError: providers.ErrorNotFound,
		ExpectedRetry: false,
	}).Run(t)
}

func TestParseResponse(t *testing.T) {
	_, err := parseResponse("p", []byte(`{"errors":[]}`))
	assert.Equal(t, providers.ErrorContractMismatch, providers.GetCategory(err))

	_, err = parseResponse("p", []byte(`{"data":{"id":"x","attributes":{"entity":"flat"}}}`))
	assert.Equal(t, providers.ErrorContractMismatch, providers.GetCategory(err))

	_, err = parseResponse("p", []byte(`{"data":[{"attributes":`))
	assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))

	assert.True(t, IsLEI("3358004DXAMRWRUIYJ05"))
	assert.False(t, IsLEI("ZENINVEST"))
}
