package holiday

import "strings"

// defaultCountries associates display locales with the country whose
// holidays they name natively. Lookups fall back from the full locale code
// to its language part.
var defaultCountries = map[string]string{
	"cs":    "CZ",
	"da":    "DK",
	"de":    "DE",
	"de_AT": "AT",
	"de_CH": "CH",
	"en":    "US",
	"en_AU": "AU",
	"en_CA": "CA",
	"en_GB": "GB",
	"en_IE": "IE",
	"en_NZ": "NZ",
	"en_US": "US",
	"es":    "ES",
	"fi":    "FI",
	"fr":    "FR",
	"fr_CA": "CA",
	"fr_CH": "CH",
	"it":    "IT",
	"ja":    "JP",
	"nb":    "NO",
	"nl":    "NL",
	"pl":    "PL",
	"pt":    "PT",
	"pt_BR": "BR",
	"ru":    "RU",
	"sv":    "SE",
}

// Mapping resolves a locale to its associated country. Explicit overrides
// (user settings) take precedence over the built-in defaults.
type Mapping struct {
	overrides map[string]string
}

// NewMapping creates a Mapping with no overrides.
func NewMapping() Mapping {
	return Mapping{overrides: map[string]string{}}
}

// WithOverride returns a copy with locale explicitly mapped to country.
func (m Mapping) WithOverride(locale, country string) Mapping {
	overrides := make(map[string]string, len(m.overrides)+1)
	for k, v := range m.overrides {
		overrides[k] = v
	}
	overrides[normalizeLocale(locale)] = country
	return Mapping{overrides: overrides}
}

// Country returns the country associated with locale, or "" when unknown.
func (m Mapping) Country(locale string) string {
	locale = normalizeLocale(locale)
	if c, ok := m.overrides[locale]; ok {
		return c
	}
	if c, ok := defaultCountries[locale]; ok {
		return c
	}
	if lang, _, found := strings.Cut(locale, "_"); found {
		if c, ok := m.overrides[lang]; ok {
			return c
		}
		if c, ok := defaultCountries[lang]; ok {
			return c
		}
	}
	return ""
}

// normalizeLocale maps "de-DE" style tags onto the "de_DE" form used
// throughout.
func normalizeLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
}
