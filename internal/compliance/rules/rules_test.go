package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zkregistry/internal/compliance/models"
)

func compliantGLEIF() models.ComplianceData {
	return models.ComplianceData{
		EntityType:      models.EntityTypeGLEIF,
		Name:            "ACME CORP",
		Identifier:      "5493001KJTIIGC8Y1R12",
		Status:          "ACTIVE",
		SecondaryStatus: "ISSUED",
		Classification:  "CONFORMING",
		StartDate:       "2024-06-01T00:00:00Z",
		EndDate:         "2025-06-01T00:00:00Z",
	}
}

func TestEvaluateGLEIF(t *testing.T) {
	t.Run("all rules pass", func(t *testing.T) {
		res := Evaluate(compliantGLEIF())
		assert.True(t, res.Verdict)
		assert.Equal(t, 100, res.Score)
		assert.Empty(t, res.FailedRules)
		assert.Equal(t, 6, res.Total)
	})

	t.Run("status match is case-insensitive but exact", func(t *testing.T) {
		d := compliantGLEIF()
		d.Status = "active"
		assert.True(t, Evaluate(d).Verdict)

		d.Status = "ACTIVE-ISH"
		res := Evaluate(d)
		assert.False(t, res.Verdict)
		assert.Equal(t, []string{"entity_status_active"}, res.FailedRules)
	})

	t.Run("verdict is strict, score is partial credit", func(t *testing.T) {
		d := compliantGLEIF()
		d.Status = "INACTIVE"
		d.EndDate = ""
		res := Evaluate(d)
		assert.False(t, res.Verdict)
		assert.Equal(t, 67, res.Score) // 4 of 6
		assert.Equal(t, []string{"entity_status_active", "registration_dates_present"}, res.FailedRules)
	})

	t.Run("empty conformity flag is acceptable", func(t *testing.T) {
		d := compliantGLEIF()
		d.Classification = ""
		assert.True(t, Evaluate(d).Verdict)
	})

	t.Run("dates are presence-only", func(t *testing.T) {
		d := compliantGLEIF()
		d.StartDate, d.EndDate = "2030-01-01", "1999-01-01"
		assert.True(t, Evaluate(d).Verdict)
	})
}

func TestEvaluateCorporateRegistration(t *testing.T) {
	d := models.ComplianceData{
		EntityType:      models.EntityTypeCorporateRegistration,
		Name:            "SREE PALANI ANDAVAR AGRO PRIVATE LIMITED",
		Identifier:      "U01112TZ2022PTC039493",
		Status:          "Active",
		SecondaryStatus: "ACTIVE compliant",
		StartDate:       "2022-03-02",
		EndDate:         "2023-09-30",
	}
	res := Evaluate(d)
	assert.True(t, res.Verdict)
	assert.Equal(t, 100, res.Score)

	d.SecondaryStatus = "ACTIVE non-compliant"
	d.Identifier = ""
	res = Evaluate(d)
	assert.False(t, res.Verdict)
	assert.Equal(t, 60, res.Score)
	assert.Equal(t, []string{"active_compliance", "identifier_present"}, res.FailedRules)
}

func TestEvaluateEXIM(t *testing.T) {
	d := models.ComplianceData{
		EntityType: models.EntityTypeEXIM,
		Name:       "ZENEGY LABS",
		Identifier: "AAKCZ1234E",
		Status:     "0",
		StartDate:  "2018-04-11",
		EndDate:    "2024-05-01",
	}
	assert.True(t, Evaluate(d).Verdict)

	d.Status = "3"
	res := Evaluate(d)
	assert.False(t, res.Verdict)
	assert.Equal(t, 75, res.Score)
}

func TestEvaluateUnknownType(t *testing.T) {
	res := Evaluate(models.ComplianceData{EntityType: "basel3"})
	assert.False(t, res.Verdict)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, []string{"entity_type_supported"}, res.FailedRules)
}

func TestEvaluateIsPure(t *testing.T) {
	d := compliantGLEIF()
	assert.Equal(t, Evaluate(d), Evaluate(d))
	assert.Equal(t, []string{
		"entity_status_active", "registration_issued", "conformity_acceptable",
		"identifier_present", "name_present", "registration_dates_present",
	}, RulesFor(models.EntityTypeGLEIF))
}
