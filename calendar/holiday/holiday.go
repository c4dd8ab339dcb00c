// Package holiday resolves a country and year into a filtered, translated,
// deterministically ordered set of holiday entries. Raw holiday data comes
// from a Dataset collaborator; localized names from a Translator; the
// locale→country association decides whether translation applies at all.
package holiday

import (
	"errors"
	"time"

	"github.com/samber/mo"
)

// ErrUnsupportedCountry is returned when the dataset has no data for a
// country. Callers building a month degrade to an empty holiday set instead
// of failing the build.
var ErrUnsupportedCountry = errors.New("unsupported country")

// Category is the source category of a holiday, used for exclusion matching
// and display styling.
type Category int

const (
	National Category = iota
	Religious
	Observance
)

func (c Category) String() string {
	switch c {
	case National:
		return "national"
	case Religious:
		return "religious"
	default:
		return "observance"
	}
}

// Raw is one holiday as delivered by a dataset: a date and a canonical name.
type Raw struct {
	Date     time.Time
	Name     string
	Category Category
}

// Entry is one resolved holiday. LocalName equals Name when no translation
// applied.
type Entry struct {
	Country   string
	Date      time.Time
	Name      string
	LocalName string
	Category  Category
}

// Dataset is the raw holiday data collaborator. Implementations may block on
// I/O; they own their retry and timeout policy.
type Dataset interface {
	// RawHolidays returns the unfiltered holiday set for country and year,
	// or ErrUnsupportedCountry.
	RawHolidays(country string, year int) ([]Raw, error)
}

// Translator supplies localized holiday names. Absent translations fall back
// to the canonical name.
type Translator interface {
	TranslateHolidayName(name, locale string) mo.Option[string]
}
