// Package translate provides the builtin translation catalog: localized
// month names, weekday names and holiday names per locale, loaded from
// embedded YAML documents. It implements the Translator interfaces of the
// calendar and holiday packages; unknown locales or names yield mo.None and
// callers fall back to canonical (English) forms.
package translate

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtinLocales embed.FS

type localeData struct {
	Months   []string          `yaml:"months"`   // January..December
	Weekdays []string          `yaml:"weekdays"` // Monday..Sunday
	Holidays map[string]string `yaml:"holidays"` // canonical -> localized
}

// Catalog holds per-locale translation tables.
type Catalog struct {
	locales map[string]localeData
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{locales: map[string]localeData{}}
}

// Builtin loads the catalogs shipped with the module.
func Builtin() (*Catalog, error) {
	c := NewCatalog()
	entries, err := builtinLocales.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read builtin locales: %w", err)
	}
	for _, e := range entries {
		data, err := builtinLocales.ReadFile(path.Join("locales", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", e.Name(), err)
		}
		locale := strings.TrimSuffix(e.Name(), ".yaml")
		if err := c.Add(locale, data); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add parses one locale's YAML document into the catalog.
func (c *Catalog) Add(locale string, data []byte) error {
	var ld localeData
	if err := yaml.Unmarshal(data, &ld); err != nil {
		return fmt.Errorf("parse locale %s: %w", locale, err)
	}
	if len(ld.Months) != 12 {
		return fmt.Errorf("locale %s: want 12 month names, got %d", locale, len(ld.Months))
	}
	if len(ld.Weekdays) != 7 {
		return fmt.Errorf("locale %s: want 7 weekday names, got %d", locale, len(ld.Weekdays))
	}
	c.locales[normalize(locale)] = ld
	return nil
}

// Locales lists the catalog's locale codes.
func (c *Catalog) Locales() []string {
	out := make([]string, 0, len(c.locales))
	for l := range c.locales {
		out = append(out, l)
	}
	return out
}

// TranslateHolidayName returns the localized name of a holiday, if known.
func (c *Catalog) TranslateHolidayName(name, locale string) mo.Option[string] {
	ld, ok := c.lookup(locale)
	if !ok {
		return mo.None[string]()
	}
	if t, ok := ld.Holidays[name]; ok {
		return mo.Some(t)
	}
	return mo.None[string]()
}

// MonthName returns the localized name of m, if known.
func (c *Catalog) MonthName(m time.Month, locale string) mo.Option[string] {
	ld, ok := c.lookup(locale)
	if !ok || m < time.January || m > time.December {
		return mo.None[string]()
	}
	return mo.Some(ld.Months[m-1])
}

// WeekdayName returns the localized name of d, if known.
func (c *Catalog) WeekdayName(d time.Weekday, locale string) mo.Option[string] {
	ld, ok := c.lookup(locale)
	if !ok {
		return mo.None[string]()
	}
	// Catalog rows are Monday-first.
	return mo.Some(ld.Weekdays[(int(d)+6)%7])
}

// lookup falls back from the full locale code to its language part.
func (c *Catalog) lookup(locale string) (localeData, bool) {
	locale = normalize(locale)
	if ld, ok := c.locales[locale]; ok {
		return ld, true
	}
	if lang, _, found := strings.Cut(locale, "_"); found {
		for code, ld := range c.locales {
			if strings.HasPrefix(code, lang+"_") || code == lang {
				return ld, true
			}
		}
	}
	return localeData{}, false
}

func normalize(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
}
