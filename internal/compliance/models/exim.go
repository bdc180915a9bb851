package models

// EXIM (DGFT importer-exporter code) slots.
const (
	EXIMEntityName Slot = iota
	EXIMIEC
	EXIMIECStatus
	EXIMPAN
	EXIMIECIssueDate
	EXIMIECModificationDate
	EXIMDataAsOn
	EXIMAddressLine1
	EXIMAddressLine2
	EXIMCity
	EXIMState
	EXIMPin
	EXIMContactNo
	EXIMEmail
	EXIMExporterType
	EXIMNatureOfConcern
	EXIMBranches
)

var eximSchema = &Schema{
	Type:       EntityTypeEXIM,
	TreeHeight: 8,
	Slots: []SlotSpec{
		{EXIMEntityName, "entity_name", "entityName"},
		{EXIMIEC, "iec", "iec"},
		{EXIMIECStatus, "iec_status", "iecStatus"},
		{EXIMPAN, "pan", "pan"},
		{EXIMIECIssueDate, "iec_issue_date", "iecIssueDate"},
		{EXIMIECModificationDate, "iec_modification_date", "iecModificationDate"},
		{EXIMDataAsOn, "data_as_on", "dataAsOn"},
		{EXIMAddressLine1, "address_line1", "addressLine1"},
		{EXIMAddressLine2, "address_line2", "addressLine2"},
		{EXIMCity, "city", "city"},
		{EXIMState, "state", "state"},
		{EXIMPin, "pin", "pin"},
		{EXIMContactNo, "contact_no", "contactNo"},
		{EXIMEmail, "email", "email"},
		{EXIMExporterType, "exporter_type", "exporterType"},
		{EXIMNatureOfConcern, "nature_of_concern", "natureOfConcern"},
		{EXIMBranches, "branches", "branch"},
	},
	Projection: Projection{
		RoleName:            EXIMEntityName,
		RoleIdentifier:      EXIMIEC,
		RoleStatus:          EXIMIECStatus,
		RoleSecondaryStatus: EXIMExporterType,
		RoleClassification:  EXIMNatureOfConcern,
		RoleStartDate:       EXIMIECIssueDate,
		RoleEndDate:         EXIMDataAsOn,
	},
}
