package constants

// Field names an extracted identity-card field.
type Field string

const (
	FieldIDNumber     Field = "id_number"
	FieldFullName     Field = "full_name"
	FieldDateOfBirth  Field = "date_of_birth"
	FieldPlaceOfBirth Field = "place_of_birth"
	FieldGender       Field = "gender"
	FieldAddress      Field = "address"
	FieldExpiryDate   Field = "expiry_date"
)

// AllFields is the stable field order used for display and export.
var AllFields = []Field{
	FieldIDNumber,
	FieldFullName,
	FieldDateOfBirth,
	FieldPlaceOfBirth,
	FieldGender,
	FieldAddress,
	FieldExpiryDate,
}

// MandatoryFields are reported as warnings when absent, in this order.
var MandatoryFields = []Field{
	FieldIDNumber,
	FieldFullName,
	FieldDateOfBirth,
}

// Gender is the normalized two-value enumeration.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)
