package exim

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("entityName") {
		case "ZENEGY LABS":
			_, _ = w.Write([]byte(`{"data":[{
				"iec":"0305008111",
				"entityName":"ZENEGY LABS",
				"iecStatus":0,
				"pan":"AAKCZ1234E",
				"iecIssueDate":"2018-04-11",
				"dataAsOn":"2024-05-01",
				"natureOfConcern":"Private Limited",
				"branch":[{"code":1},null,{"code":2}]
			}]}`))
		case "NO IEC FIELD":
			_, _ = w.Write([]byte(`{"data":[{"entityName":"X"}]}`))
		default:
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEXIMProvider(t *testing.T) {
	srv := newServer(t)
	p := New("exim-test", srv.URL, "", time.Second)
	ctx := context.Background()

	(&contract.ContractSuite{
		ProviderID: "exim-test",
		Tests: []contract.ContractTest{{
			Name:          "IEC by entity name",
			Provider:      p,
			Identifier:    "ZENEGY LABS",
			ExpectedType:  models.EntityTypeEXIM,
			RequiredPaths: []string{"iec", "entityName", "iecStatus", "branch"},
		}},
	}).Run(t)

	t.Run("numbers keep their literal form", func(t *testing.T) {
		rec, err := p.Lookup(ctx, "ZENEGY LABS")
		require.NoError(t, err)
		assert.Equal(t, json.Number("0"), rec.Values["iecStatus"])

		status, err := fields.Normalize(rec.Values["iecStatus"])
		require.NoError(t, err)
		assert.Equal(t, "0", status)

		branches, err := fields.Normalize(rec.Values["branch"])
		require.NoError(t, err)
		assert.Equal(t, `{"code":1},{"code":2}`, branches)
	})

	(&contract.ErrorContractTest{
		Name:          "unknown entity",
		Provider:      p,
		Identifier:    "UNKNOWN_CORP_X",
		ExpectedError: providers.ErrorNotFound,
	}).Run(t)

	(&contract.ErrorContractTest{
		Name:          "record without iec",
		Provider:      p,
		Identifier:    "NO IEC FIELD",
		ExpectedError: providers.ErrorContractMismatch,
	}).Run(t)
}
