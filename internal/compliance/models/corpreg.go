package models

// Corporate registration (MCA master data) slots, keyed by CIN.
const (
	CorpRegCompanyName Slot = iota
	CorpRegCIN
	CorpRegCompanyStatus
	CorpRegRegistrationNumber
	CorpRegDateOfIncorporation
	CorpRegClassOfCompany
	CorpRegCategoryOfCompany
	CorpRegSubcategoryOfCompany
	CorpRegROCCode
	CorpRegRegisteredAddress
	CorpRegEmail
	CorpRegListingStatus
	CorpRegAuthorisedCapital
	CorpRegPaidUpCapital
	CorpRegDateOfLastAGM
	CorpRegDateOfBalanceSheet
	CorpRegActiveCompliance
)

var corpRegSchema = &Schema{
	Type:       EntityTypeCorporateRegistration,
	TreeHeight: 8,
	Slots: []SlotSpec{
		{CorpRegCompanyName, "company_name", "companyName"},
		{CorpRegCIN, "cin", "cin"},
		{CorpRegCompanyStatus, "company_status", "companyStatus"},
		{CorpRegRegistrationNumber, "registration_number", "registrationNumber"},
		{CorpRegDateOfIncorporation, "date_of_incorporation", "dateOfIncorporation"},
		{CorpRegClassOfCompany, "class_of_company", "classOfCompany"},
		{CorpRegCategoryOfCompany, "category_of_company", "categoryOfCompany"},
		{CorpRegSubcategoryOfCompany, "subcategory_of_company", "subcategoryOfCompany"},
		{CorpRegROCCode, "roc_code", "rocCode"},
		{CorpRegRegisteredAddress, "registered_address", "registeredAddress"},
		{CorpRegEmail, "email", "email"},
		{CorpRegListingStatus, "listing_status", "listingStatus"},
		{CorpRegAuthorisedCapital, "authorised_capital", "authorisedCapital"},
		{CorpRegPaidUpCapital, "paid_up_capital", "paidUpCapital"},
		{CorpRegDateOfLastAGM, "date_of_last_agm", "dateOfLastAGM"},
		{CorpRegDateOfBalanceSheet, "date_of_balance_sheet", "dateOfBalanceSheet"},
		{CorpRegActiveCompliance, "active_compliance", "activeCompliance"},
	},
	Projection: Projection{
		RoleName:            CorpRegCompanyName,
		RoleIdentifier:      CorpRegCIN,
		RoleStatus:          CorpRegCompanyStatus,
		RoleSecondaryStatus: CorpRegActiveCompliance,
		RoleClassification:  CorpRegCategoryOfCompany,
		RoleStartDate:       CorpRegDateOfIncorporation,
		RoleEndDate:         CorpRegDateOfLastAGM,
	},
}
