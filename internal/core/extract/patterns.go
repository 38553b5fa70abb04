package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/idcard-reader/constants"
	"github.com/joseph-ayodele/idcard-reader/internal/core/normalize"
)

// Script groups patterns by the label language they key on.
type Script string

const (
	ScriptAny    Script = "any"
	ScriptFrench Script = "fra"
	ScriptArabic Script = "ara"
)

// scriptOrder is the matching priority: script-agnostic, French, Arabic.
var scriptOrder = []Script{ScriptAny, ScriptFrench, ScriptArabic}

// PatternBankVersion changes whenever a pattern changes, so stored records
// can be traced to the bank that produced them.
const PatternBankVersion = "3"

// Pattern is one named regular expression for a field. Group 1 holds the value.
type Pattern struct {
	Name   string
	Field  constants.Field
	Script Script
	re     *regexp.Regexp
}

// Find returns the first value the pattern captures in text.
func (p Pattern) Find(text string) (string, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

const (
	latinWords  = `[A-Z][A-Z'\-]*\b(?:\s+[A-Z][A-Z'\-]*\b)*`
	arabicWords = `\p{Arabic}+(?:\s+\p{Arabic}+){0,3}`
)

// label builds an alternation from human-spelled labels. Each label goes
// through the same normalizer as the OCR text, so accents and Arabic letter
// variants in the source spelling do not matter. Spaces accept any run of
// whitespace, including none.
func label(caseInsensitive bool, labels ...string) string {
	alts := make([]string, len(labels))
	for i, l := range labels {
		words := strings.Fields(normalize.Normalize(l))
		for j, w := range words {
			words[j] = regexp.QuoteMeta(w)
		}
		alts[i] = strings.Join(words, `\s*`)
	}
	flags := ""
	if caseInsensitive {
		flags = "i"
	}
	return fmt.Sprintf("(?%s:%s)", flags, strings.Join(alts, "|"))
}

func pattern(name string, f constants.Field, s Script, expr string) Pattern {
	return Pattern{Name: name, Field: f, Script: s, re: regexp.MustCompile(expr)}
}

// French labels are case-insensitive; the values they introduce are not.
var (
	frName    = label(true, "nom et prénoms", "nom et prénom", "nom & prénom")
	frBirth   = `\b` + label(true, "né le", "née le", "né(e) le")
	frSex     = `\b` + label(true, "sexe")
	frAddress = `\b` + label(true, "adresse")
	frExpiry  = `(?i:valable\s*jusqu\W{0,2}\s*au|date\s*d\W{0,2}\s*expiration)`
	frStop    = label(true, "valable", "sexe", "cin", "né le", "nom et", "adresse")

	arName    = label(false, "الاسم الكامل", "الإسم الشخصي والعائلي", "الاسم الشخصي", "الاسم العائلي", "الإسم")
	arBirth   = label(false, "تاريخ الازدياد", "تاريخ الميلاد", "مزداد بتاريخ", "مزدادة بتاريخ", "ولد بتاريخ", "ولدت بتاريخ")
	arPlace   = label(false, "مكان الازدياد", "مكان الميلاد")
	arSex     = label(false, "الجنس")
	arAddress = label(false, "العنوان")
	arExpiry  = label(false, "صالحة إلى غاية", "صالحة الى", "تاريخ الانتهاء", "تنتهي صلاحيتها في")
	arStop    = label(false, "صالحة", "تاريخ", "الجنس", "رقم", "مكان", "العنوان")
)

// defaultBank lists every pattern. Within a field and script, patterns are
// tried in order.
func defaultBank() []Pattern {
	return []Pattern{
		pattern("cin", constants.FieldIDNumber, ScriptAny, `(?:^|[^\p{L}\p{N}])([A-Z]{1,2}\d{6})(?:[^\p{L}\p{N}]|$)`),

		pattern("fr_name", constants.FieldFullName, ScriptFrench, frName+`\s*:?\s*(`+latinWords+`)`),
		pattern("ar_name", constants.FieldFullName, ScriptArabic, arName+`\s*:?\s*(`+arabicWords+`)`),

		pattern("fr_birth_date", constants.FieldDateOfBirth, ScriptFrench, frBirth+`\s*:?\s*(`+datePattern+`)`),
		pattern("ar_birth_date", constants.FieldDateOfBirth, ScriptArabic, arBirth+`\s*:?\s*(`+datePattern+`)`),

		pattern("fr_birth_place", constants.FieldPlaceOfBirth, ScriptFrench, frBirth+`\s*:?\s*`+datePattern+`\s+[aA]\s*:?\s+(`+latinWords+`)`),
		pattern("fr_birth_place_loose", constants.FieldPlaceOfBirth, ScriptFrench, `\ba\s+([A-Z]{2,}[A-Z'\-]*\b(?:\s+[A-Z][A-Z'\-]*\b)*)`),
		pattern("ar_birth_place", constants.FieldPlaceOfBirth, ScriptArabic, arPlace+`\s*:?\s*(`+arabicWords+`)`),
		pattern("ar_birth_place_after_date", constants.FieldPlaceOfBirth, ScriptArabic, arBirth+`\s*:?\s*`+datePattern+`\s+ب\s*(`+arabicWords+`)`),

		pattern("fr_gender", constants.FieldGender, ScriptFrench, frSex+`\s*:?\s*([A-Za-z]+)\b`),
		pattern("ar_gender", constants.FieldGender, ScriptArabic, arSex+`\s*:?\s*(\p{Arabic}+)`),

		pattern("fr_address", constants.FieldAddress, ScriptFrench, frAddress+`\s*:?\s*(.+?)(?:\s+`+frStop+`\b|\s+\p{Arabic}|$)`),
		pattern("ar_address", constants.FieldAddress, ScriptArabic, arAddress+`\s*:?\s*(.+?)(?:\s+`+arStop+`|\s+`+frStop+`\b|$)`),

		pattern("fr_expiry", constants.FieldExpiryDate, ScriptFrench, frExpiry+`\s*:?\s*(`+datePattern+`)`),
		pattern("ar_expiry", constants.FieldExpiryDate, ScriptArabic, arExpiry+`\s*:?\s*(`+datePattern+`)`),
	}
}

// headerPattern matches boilerplate titles printed on both card layouts.
var headerPattern = regexp.MustCompile(strings.Join([]string{
	label(true, "royaume du maroc"),
	`(?i:carte\s*nationale\s*d\W{0,2}\s*identite)`,
	label(false, "المملكة المغربية"),
	label(false, "البطاقة الوطنية للتعريف"),
}, "|"))

// stopWords end a captured name or place: they are labels the loose word
// patterns can run into.
var stopWords = map[string]bool{
	"NE": true, "NEE": true, "LE": true, "A": true, "CIN": true, "SEXE": true,
	"VALABLE": true, "ADRESSE": true, "NOM": true, "PRENOM": true, "DATE": true,
	"N": true, "NO": true, "LIEU": true,

	"تاريخ": true, "مزداد": true, "مزداده": true, "مكان": true, "الجنس": true,
	"العنوان": true, "صالحه": true, "رقم": true, "ب": true, "بتاريخ": true,
	"ولد": true, "ولدت": true,
}

// trimAtStopWord cuts a word sequence at its first stop word.
func trimAtStopWord(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if stopWords[strings.ToUpper(w)] {
			words = words[:i]
			break
		}
	}
	return strings.Join(words, " ")
}
