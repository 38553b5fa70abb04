package constants

import (
	"fmt"
	"strings"
)

// Language selects the language packs handed to an OCR engine.
type Language string

const (
	LanguageArabic       Language = "ara"
	LanguageFrench       Language = "fra"
	LanguageEnglish      Language = "eng"
	LanguageArabicFrench Language = "ara+fra"
)

var allLanguages = []Language{
	LanguageArabic,
	LanguageFrench,
	LanguageEnglish,
	LanguageArabicFrench,
}

// DefaultLanguage covers both scripts printed on the card.
const DefaultLanguage = LanguageArabicFrench

// ParseLanguage canonicalizes user input ("fr", "arabic", "ara,fra", ...).
func ParseLanguage(input string) (Language, error) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return DefaultLanguage, nil
	}

	synonyms := map[string]Language{
		"ar":      LanguageArabic,
		"arabic":  LanguageArabic,
		"fr":      LanguageFrench,
		"fre":     LanguageFrench,
		"french":  LanguageFrench,
		"en":      LanguageEnglish,
		"english": LanguageEnglish,
		"ara,fra": LanguageArabicFrench,
		"fra+ara": LanguageArabicFrench,
		"ara,fre": LanguageArabicFrench,
		"both":    LanguageArabicFrench,
	}
	if l, ok := synonyms[normalized]; ok {
		return l, nil
	}
	for _, l := range allLanguages {
		if normalized == string(l) {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown language %q (want one of %s)", input, strings.Join(LanguageStrings(), ", "))
}

// LanguageStrings returns the accepted language selectors.
func LanguageStrings() []string {
	out := make([]string, len(allLanguages))
	for i, l := range allLanguages {
		out[i] = string(l)
	}
	return out
}
