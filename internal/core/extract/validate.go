package extract

import (
	"fmt"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// Warning is an advisory note about one field.
type Warning struct {
	Field   constants.Field `json:"field"`
	Message string          `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.Field, w.Message)
}

// Report carries the validation outcome and, per extracted field, the name
// of the pattern that produced it.
type Report struct {
	Warnings []Warning                  `json:"warnings"`
	Sources  map[constants.Field]string `json:"sources,omitempty"`
}

// Complete reports whether every mandatory field was found.
func (r Report) Complete() bool { return len(r.Warnings) == 0 }

// Validate lists one warning per missing mandatory field, in
// constants.MandatoryFields order. It never rejects the record.
func Validate(rec Record) Report {
	var rep Report
	for _, f := range constants.MandatoryFields {
		if !rec.Has(f) {
			rep.Warnings = append(rep.Warnings, Warning{Field: f, Message: "mandatory field not found"})
		}
	}
	return rep
}
