// Package extract recovers identity-card fields from normalized OCR text
// with a bilingual pattern bank.
package extract

import (
	"strings"

	"github.com/joseph-ayodele/idcard-reader/constants"
)

// Extractor applies a pattern bank. It holds no mutable state; the same
// text always yields the same Record.
type Extractor struct {
	byField map[constants.Field][]Pattern
}

// New returns an extractor over the built-in pattern bank.
func New() *Extractor {
	return NewWithPatterns(defaultBank())
}

// NewWithPatterns builds an extractor over a custom bank. Patterns are
// ordered by script priority, keeping their relative order within a script.
func NewWithPatterns(bank []Pattern) *Extractor {
	e := &Extractor{byField: make(map[constants.Field][]Pattern)}
	for _, s := range scriptOrder {
		for _, p := range bank {
			if p.Script == s {
				e.byField[p.Field] = append(e.byField[p.Field], p)
			}
		}
	}
	return e
}

var defaultExtractor = New()

// Extract runs the built-in extractor.
func Extract(normalized string) (Record, Report) {
	return defaultExtractor.Extract(normalized)
}

// Extract pulls fields out of normalized text. For each field the first
// script whose pattern matches owns the field: later patterns of the same
// script may still supply a usable value, other scripts are not consulted.
// A matched value that does not convert leaves the field nil.
// It never fails: unmatched fields stay nil.
func (e *Extractor) Extract(normalized string) (Record, Report) {
	text := stripHeaders(normalized)
	var rec Record
	sources := make(map[constants.Field]string)

	for _, f := range constants.AllFields {
		var owner Script
		for _, p := range e.byField[f] {
			if owner != "" && p.Script != owner {
				break
			}
			raw, ok := p.Find(text)
			if !ok {
				continue
			}
			owner = p.Script
			if assign(&rec, f, raw) {
				sources[f] = p.Name
				break
			}
		}
	}

	rep := Validate(rec)
	rep.Sources = sources
	return rec, rep
}

// stripHeaders blanks boilerplate titles so loose patterns cannot pick
// them up as values.
func stripHeaders(text string) string {
	return strings.Join(strings.Fields(headerPattern.ReplaceAllString(text, " ")), " ")
}

// assign converts a captured string into the field's type and stores it.
// It returns false when the capture is unusable.
func assign(rec *Record, f constants.Field, raw string) bool {
	switch f {
	case constants.FieldDateOfBirth, constants.FieldExpiryDate:
		d, ok := ParseDate(raw)
		if !ok {
			return false
		}
		if f == constants.FieldDateOfBirth {
			rec.DateOfBirth = &d
		} else {
			rec.ExpiryDate = &d
		}
	case constants.FieldGender:
		g, ok := ParseGender(raw)
		if !ok {
			return false
		}
		rec.Gender = &g
	case constants.FieldFullName, constants.FieldPlaceOfBirth:
		v := trimAtStopWord(raw)
		if v == "" {
			return false
		}
		if f == constants.FieldFullName {
			rec.FullName = &v
		} else {
			rec.PlaceOfBirth = &v
		}
	case constants.FieldIDNumber:
		rec.IDNumber = &raw
	case constants.FieldAddress:
		v := strings.Trim(raw, " ,;:-")
		if v == "" {
			return false
		}
		rec.Address = &v
	default:
		return false
	}
	return true
}

var (
	maleCodes   = map[string]bool{"M": true, "MASCULIN": true, "MALE": true, "ذ": true, "ذكر": true}
	femaleCodes = map[string]bool{"F": true, "FEMININ": true, "FEMALE": true, "ا": true, "انثي": true, "انثا": true}
)

// ParseGender maps M/F and the Arabic male/female codes onto Gender.
// Unknown codes are rejected rather than guessed.
func ParseGender(code string) (constants.Gender, bool) {
	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case maleCodes[c]:
		return constants.GenderMale, true
	case femaleCodes[c]:
		return constants.GenderFemale, true
	}
	return "", false
}
