// Package dataset provides the builtin holiday Dataset, backed by the
// rickar/cal country packs. Countries outside the builtin set resolve to
// holiday.ErrUnsupportedCountry; callers treat that as an empty set.
package dataset

import (
	"fmt"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/ch"
	"github.com/rickar/cal/v2/cz"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fi"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/pl"
	"github.com/rickar/cal/v2/pt"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"

	"github.com/oernster/calendifier-sub002/calendar/holiday"
)

var countryHolidays = map[string][]*cal.Holiday{
	"AT": at.Holidays,
	"AU": au.Holidays,
	"BE": be.Holidays,
	"CA": ca.Holidays,
	"CH": ch.Holidays,
	"CZ": cz.Holidays,
	"DE": de.Holidays,
	"DK": dk.Holidays,
	"ES": es.Holidays,
	"FI": fi.Holidays,
	"FR": fr.Holidays,
	"GB": gb.Holidays,
	"IE": ie.Holidays,
	"IT": it.Holidays,
	"NL": nl.Holidays,
	"NO": no.Holidays,
	"NZ": nz.Holidays,
	"PL": pl.Holidays,
	"PT": pt.Holidays,
	"SE": se.Holidays,
	"US": us.Holidays,
}

// religiousNames marks holidays whose source category is religious rather
// than national. The country packs don't distinguish the two, so the builtin
// dataset keeps its own table.
var religiousNames = map[string]struct{}{
	"Good Friday":          {},
	"Easter Monday":        {},
	"Christmas Day":        {},
	"St. Stephen's Day":    {},
	"Epiphany":             {},
	"Ascension Day":        {},
	"Whit Monday":          {},
	"Assumption of Mary":   {},
	"All Saints' Day":      {},
	"Immaculate Conception": {},
	"Karfreitag":           {},
	"Ostermontag":          {},
	"Christi Himmelfahrt":  {},
	"Pfingstmontag":        {},
	"Weihnachtstag":        {},
	"Heilige Drei Könige":  {},
	"Fronleichnam":         {},
	"Mariä Himmelfahrt":    {},
	"Allerheiligen":        {},
	"Vendredi saint":       {},
	"Lundi de Pâques":      {},
	"Ascension":            {},
	"Lundi de Pentecôte":   {},
	"Assomption":           {},
	"Toussaint":            {},
	"Noël":                 {},
}

// Builtin is a holiday.Dataset over the compiled-in country packs.
type Builtin struct{}

var _ holiday.Dataset = Builtin{}

// New returns the builtin dataset.
func New() Builtin { return Builtin{} }

// Countries lists the supported country codes.
func (Builtin) Countries() []string {
	out := make([]string, 0, len(countryHolidays))
	for c := range countryHolidays {
		out = append(out, c)
	}
	return out
}

// RawHolidays implements holiday.Dataset. Dates are the actual holiday
// dates, not shifted observance days.
func (Builtin) RawHolidays(country string, year int) ([]holiday.Raw, error) {
	defs, ok := countryHolidays[country]
	if !ok {
		return nil, fmt.Errorf("country %q: %w", country, holiday.ErrUnsupportedCountry)
	}
	var out []holiday.Raw
	for _, h := range defs {
		actual, _ := h.Calc(year)
		if actual.IsZero() {
			// Not observed that year (bounded or one-off holidays).
			continue
		}
		out = append(out, holiday.Raw{
			Date:     actual,
			Name:     h.Name,
			Category: categoryOf(h),
		})
	}
	return out, nil
}

func categoryOf(h *cal.Holiday) holiday.Category {
	if _, ok := religiousNames[h.Name]; ok {
		return holiday.Religious
	}
	if h.Type == cal.ObservancePublic {
		return holiday.National
	}
	return holiday.Observance
}
