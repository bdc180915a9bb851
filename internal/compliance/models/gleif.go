package models

// GLEIF slots. Paths are relative to a lei-record's attributes object.
const (
	GLEIFLegalName Slot = iota
	GLEIFLEI
	GLEIFEntityStatus
	GLEIFRegistrationStatus
	GLEIFConformityFlag
	GLEIFInitialRegistrationDate
	GLEIFLastUpdateDate
	GLEIFNextRenewalDate
	GLEIFJurisdiction
	GLEIFLegalForm
	GLEIFRegisteredAs
	GLEIFLegalAddressLines
	GLEIFLegalAddressCity
	GLEIFLegalAddressRegion
	GLEIFLegalAddressCountry
	GLEIFLegalAddressPostalCode
	GLEIFHeadquartersCountry
	GLEIFManagingLOU
	GLEIFCorroborationLevel
	GLEIFBICCodes
	GLEIFMICCodes
	GLEIFEntityCategory
)

var gleifSchema = &Schema{
	Type:       EntityTypeGLEIF,
	TreeHeight: 8,
	Slots: []SlotSpec{
		{GLEIFLegalName, "legal_name", "entity.legalName.name"},
		{GLEIFLEI, "lei", "lei"},
		{GLEIFEntityStatus, "entity_status", "entity.status"},
		{GLEIFRegistrationStatus, "registration_status", "registration.status"},
		{GLEIFConformityFlag, "conformity_flag", "conformityFlag"},
		{GLEIFInitialRegistrationDate, "initial_registration_date", "registration.initialRegistrationDate"},
		{GLEIFLastUpdateDate, "last_update_date", "registration.lastUpdateDate"},
		{GLEIFNextRenewalDate, "next_renewal_date", "registration.nextRenewalDate"},
		{GLEIFJurisdiction, "jurisdiction", "entity.jurisdiction"},
		{GLEIFLegalForm, "legal_form", "entity.legalForm.id"},
		{GLEIFRegisteredAs, "registered_as", "entity.registeredAs"},
		{GLEIFLegalAddressLines, "legal_address_lines", "entity.legalAddress.addressLines"},
		{GLEIFLegalAddressCity, "legal_address_city", "entity.legalAddress.city"},
		{GLEIFLegalAddressRegion, "legal_address_region", "entity.legalAddress.region"},
		{GLEIFLegalAddressCountry, "legal_address_country", "entity.legalAddress.country"},
		{GLEIFLegalAddressPostalCode, "legal_address_postal_code", "entity.legalAddress.postalCode"},
		{GLEIFHeadquartersCountry, "headquarters_country", "entity.headquartersAddress.country"},
		{GLEIFManagingLOU, "managing_lou", "registration.managingLou"},
		{GLEIFCorroborationLevel, "corroboration_level", "registration.corroborationLevel"},
		{GLEIFBICCodes, "bic_codes", "bic"},
		{GLEIFMICCodes, "mic_codes", "mic"},
		{GLEIFEntityCategory, "entity_category", "entity.category"},
	},
	Projection: Projection{
		RoleName:            GLEIFLegalName,
		RoleIdentifier:      GLEIFLEI,
		RoleStatus:          GLEIFEntityStatus,
		RoleSecondaryStatus: GLEIFRegistrationStatus,
		RoleClassification:  GLEIFConformityFlag,
		RoleStartDate:       GLEIFLastUpdateDate,
		RoleEndDate:         GLEIFNextRenewalDate,
	},
}
