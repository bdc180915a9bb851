package corpreg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zkregistry/internal/compliance/models"
	"zkregistry/internal/evidence/providers"
	"zkregistry/internal/evidence/providers/contract"
)

const knownCIN = "U01112TZ2022PTC039493"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/companies/" + knownCIN:
			_, _ = w.Write([]byte(`{"data":{
				"companyName":"SREE PALANI ANDAVAR AGROS PRIVATE LIMITED",
				"cin":"U01112TZ2022PTC039493",
				"companyStatus":"Active",
				"registrationNumber":39493,
				"dateOfIncorporation":"2022-03-02",
				"categoryOfCompany":"Company limited by Shares",
				"authorisedCapital":1500000,
				"dateOfLastAGM":"2023-09-30",
				"activeCompliance":"ACTIVE compliant"
			}}`))
		case "/health":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCorpRegProvider(t *testing.T) {
	srv := newServer(t)
	p := New("corpreg-test", srv.URL, "secret", time.Second)
	ctx := context.Background()

	(&contract.CapabilityTest{Provider: p}).Run(t)

	s := &contract.ContractSuite{
		ProviderID: "corpreg-test",
		Tests: []contract.ContractTest{{
			Name:          "company by CIN",
			Provider:      p,
			Identifier:    knownCIN,
			ExpectedType:  models.EntityTypeCorporateRegistration,
			RequiredPaths: []string{"companyName", "cin", "companyStatus", "activeCompliance"},
		}},
	}
	s.Run(t)

	t.Run("lower-case CIN is normalized", func(t *testing.T) {
		rec, err := p.Lookup(ctx, "u01112tz2022ptc039493")
		require.NoError(t, err)
		assert.Equal(t, knownCIN, rec.Identifier)
		assert.EqualValues(t, 1500000, rec.Values["authorisedCapital"])
	})

	t.Run("malformed CIN is bad data", func(t *testing.T) {
		_, err := p.Lookup(ctx, "ACME")
		assert.Equal(t, providers.ErrorBadData, providers.GetCategory(err))
		assert.False(t, providers.IsRetryable(err))
	})

	(&contract.ErrorContractTest{
		Name:          "unknown CIN",
		Provider:      p,
		Identifier:    "L12345MH2000PLC123456",
		ExpectedError: providers.ErrorNotFound,
	}).Run(t)

	t.Run("missing key is an authentication error", func(t *testing.T) {
		noKey := New("corpreg-nokey", srv.URL, "", time.Second)
		_, err := noKey.Lookup(ctx, knownCIN)
		assert.Equal(t, providers.ErrorAuthentication, providers.GetCategory(err))
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, p.Health(ctx))
	})
}

func TestIsCIN(t *testing.T) {
	assert.True(t, IsCIN(knownCIN))
	assert.False(t, IsCIN("U01112TZ2022PTC03949"))
	assert.False(t, IsCIN(""))
}
