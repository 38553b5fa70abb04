package extract

import (
	"cloud.google.com/go/civil"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// Record holds the extracted card fields. A nil field is absent: no pattern
// matched. That is different from an empty value.
type Record struct {
	IDNumber     *string           `json:"id_number"`
	FullName     *string           `json:"full_name"`
	DateOfBirth  *civil.Date       `json:"date_of_birth"`
	PlaceOfBirth *string           `json:"place_of_birth"`
	Gender       *constants.Gender `json:"gender"`
	Address      *string           `json:"address"`
	ExpiryDate   *civil.Date       `json:"expiry_date"`
}

// Has reports whether field f was extracted.
func (r Record) Has(f constants.Field) bool {
	_, ok := r.Value(f)
	return ok
}

// Value returns field f rendered as text; dates use ISO YYYY-MM-DD.
func (r Record) Value(f constants.Field) (string, bool) {
	switch f {
	case constants.FieldIDNumber:
		return str(r.IDNumber)
	case constants.FieldFullName:
		return str(r.FullName)
	case constants.FieldDateOfBirth:
		return date(r.DateOfBirth)
	case constants.FieldPlaceOfBirth:
		return str(r.PlaceOfBirth)
	case constants.FieldGender:
		if r.Gender == nil {
			return "", false
		}
		return string(*r.Gender), true
	case constants.FieldAddress:
		return str(r.Address)
	case constants.FieldExpiryDate:
		return date(r.ExpiryDate)
	}
	return "", false
}

// Fields returns the extracted fields keyed by name, omitting absent ones.
func (r Record) Fields() map[constants.Field]string {
	out := make(map[constants.Field]string, len(constants.AllFields))
	for _, f := range constants.AllFields {
		if v, ok := r.Value(f); ok {
			out[f] = v
		}
	}
	return out
}

func str(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

func date(d *civil.Date) (string, bool) {
	if d == nil {
		return "", false
	}
	return d.String(), true
}
