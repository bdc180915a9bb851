package static

import "zkregistry/internal/compliance/models"

// GLEIFRecord builds a lei-record in the GLEIF API shape. status is the
// entity status; the registration is always ISSUED.
func GLEIFRecord(lei, name, status string) map[string]any {
	return map[string]any{
		"lei":            lei,
		"conformityFlag": "CONFORMING",
		"bic":            []any{},
		"mic":            nil,
		"entity": map[string]any{
			"legalName":    map[string]any{"name": name},
			"status":       status,
			"jurisdiction": "US-DE",
			"category":     "GENERAL",
			"legalAddress": map[string]any{
				"addressLines": []any{"1 Main St"},
				"city":         "Wilmington",
				"country":      "US",
				"postalCode":   "19801",
			},
			"headquartersAddress": map[string]any{"country": "US"},
		},
		"registration": map[string]any{
			"status":                  "ISSUED",
			"initialRegistrationDate": "2012-06-06T15:52:00Z",
			"lastUpdateDate":          "2024-06-01T00:00:00Z",
			"nextRenewalDate":         "2025-06-01T00:00:00Z",
			"managingLou":             "5493001KJTIIGC8Y1R12",
			"corroborationLevel":      "FULLY_CORROBORATED",
		},
	}
}

// CorpRegRecord builds an MCA master-data record. compliance is the
// active-compliance flag, e.g. "ACTIVE compliant".
func CorpRegRecord(cin, name, status, compliance string) map[string]any {
	return map[string]any{
		"companyName":         name,
		"cin":                 cin,
		"companyStatus":       status,
		"registrationNumber":  "123456",
		"dateOfIncorporation": "2001-04-12",
		"classOfCompany":      "Private",
		"categoryOfCompany":   "Company limited by Shares",
		"rocCode":             "RoC-Mumbai",
		"registeredAddress":   "12 Marine Drive, Mumbai",
		"listingStatus":       "Unlisted",
		"authorisedCapital":   float64(1000000),
		"paidUpCapital":       float64(500000),
		"dateOfLastAGM":       "2024-09-30",
		"dateOfBalanceSheet":  "2024-03-31",
		"activeCompliance":    compliance,
	}
}

// EXIMRecord builds a DGFT importer-exporter record.
func EXIMRecord(iec, name, status string) map[string]any {
	return map[string]any{
		"entityName":          name,
		"iec":                 iec,
		"iecStatus":           status,
		"pan":                 "AAACA1234A",
		"iecIssueDate":        "2010-01-15",
		"iecModificationDate": "2023-11-02",
		"dataAsOn":            "2024-06-01",
		"addressLine1":        "Plot 7, MIDC",
		"city":                "Pune",
		"state":               "Maharashtra",
		"pin":                 "411001",
		"exporterType":        "Merchant Exporter",
		"natureOfConcern":     "Private Limited",
		"branch":              []any{map[string]any{"branchCode": "1", "city": "Pune"}},
	}
}

// Samples returns one provider per entity type preloaded with a compliant
// and a non-compliant entity, each reachable by name and by identifier.
func Samples() []*Provider {
	gleif := New("static-gleif", models.EntityTypeGLEIF)
	addBoth(gleif, "5493001KJTIIGC8Y1R12", "ACME CORP", GLEIFRecord("5493001KJTIIGC8Y1R12", "ACME CORP", "ACTIVE"))
	addBoth(gleif, "529900T8BM49AURSDO55", "GLOBEX LTD", GLEIFRecord("529900T8BM49AURSDO55", "GLOBEX LTD", "INACTIVE"))

	corp := New("static-corpreg", models.EntityTypeCorporateRegistration)
	addBoth(corp, "U01234MH2001PTC123456", "ACME INDIA PRIVATE LIMITED",
		CorpRegRecord("U01234MH2001PTC123456", "ACME INDIA PRIVATE LIMITED", "Active", "ACTIVE compliant"))
	addBoth(corp, "U05678DL2005PTC654321", "INITECH PRIVATE LIMITED",
		CorpRegRecord("U05678DL2005PTC654321", "INITECH PRIVATE LIMITED", "Strike Off", "ACTIVE non-compliant"))

	exim := New("static-exim", models.EntityTypeEXIM)
	addBoth(exim, "0305012345", "ACME EXPORTS", EXIMRecord("0305012345", "ACME EXPORTS", "0"))
	addBoth(exim, "0305067890", "UMBRELLA TRADING", EXIMRecord("0305067890", "UMBRELLA TRADING", "CANCELLED"))

	return []*Provider{gleif, corp, exim}
}

func addBoth(p *Provider, identifier, name string, values map[string]any) {
	p.Add(identifier, values)
	p.Add(name, values)
}
