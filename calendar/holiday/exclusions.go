package holiday

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed exclusions.yaml
var builtinExclusions []byte

// Exclusions maps a country code to the canonical holiday names that are
// present in raw datasets but not observed there. Matching is exact and
// case-sensitive on the canonical name. Access goes through this one lookup
// for every country; there is no per-country branch code.
type Exclusions struct {
	byCountry map[string]map[string]struct{}
}

// ParseExclusions loads an exclusion table from a YAML document mapping
// country codes to name lists.
func ParseExclusions(data []byte) (Exclusions, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Exclusions{}, fmt.Errorf("parse exclusion list: %w", err)
	}
	byCountry := make(map[string]map[string]struct{}, len(raw))
	for country, names := range raw {
		set := make(map[string]struct{}, len(names))
		for _, n := range names {
			set[n] = struct{}{}
		}
		byCountry[country] = set
	}
	return Exclusions{byCountry: byCountry}, nil
}

// BuiltinExclusions returns the exclusion table shipped with the module.
func BuiltinExclusions() Exclusions {
	excl, err := ParseExclusions(builtinExclusions)
	if err != nil {
		// The embedded document is validated by tests; a parse failure here
		// is a build defect.
		panic(err)
	}
	return excl
}

// Excluded reports whether name is on country's exclusion list.
func (e Exclusions) Excluded(country, name string) bool {
	set, ok := e.byCountry[country]
	if !ok {
		return false
	}
	_, excluded := set[name]
	return excluded
}
