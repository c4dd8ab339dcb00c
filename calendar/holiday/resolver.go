package holiday

import (
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Resolver turns (country, year, locale) requests into filtered, translated
// holiday entries.
type Resolver struct {
	dataset    Dataset
	translator Translator
	mapping    Mapping
	exclusions Exclusions
	logger     *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithTranslator supplies the localized-name collaborator. Without one,
// canonical names are always retained.
func WithTranslator(t Translator) ResolverOption {
	return func(r *Resolver) { r.translator = t }
}

// WithMapping replaces the locale→country mapping.
func WithMapping(m Mapping) ResolverOption {
	return func(r *Resolver) { r.mapping = m }
}

// WithExclusions replaces the cultural exclusion table.
func WithExclusions(e Exclusions) ResolverOption {
	return func(r *Resolver) { r.exclusions = e }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver over dataset with the builtin exclusion
// table and locale mapping.
func NewResolver(dataset Dataset, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		dataset:    dataset,
		mapping:    NewMapping(),
		exclusions: BuiltinExclusions(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Mapping returns the resolver's locale→country mapping.
func (r *Resolver) Mapping() Mapping { return r.mapping }

// Resolve returns country's holidays for year: culturally filtered,
// deduplicated by (country, date, name), translated into locale only when
// locale's associated country is the requested country, and sorted by date
// with name breaking ties. An unknown country yields ErrUnsupportedCountry.
func (r *Resolver) Resolve(country string, year int, locale string) ([]Entry, error) {
	raw, err := r.dataset.RawHolidays(country, year)
	if err != nil {
		return nil, fmt.Errorf("holidays for %s/%d: %w", country, year, err)
	}

	translate := r.translator != nil && r.mapping.Country(locale) == country

	seen := make(map[string]struct{}, len(raw))
	entries := make([]Entry, 0, len(raw))
	for _, h := range raw {
		if r.exclusions.Excluded(country, h.Name) {
			continue
		}
		date := normalizeDate(h.Date)
		dedup := date.Format(time.DateOnly) + "\x00" + h.Name
		if _, dup := seen[dedup]; dup {
			continue
		}
		seen[dedup] = struct{}{}

		localName := h.Name
		if translate {
			if t, ok := r.translator.TranslateHolidayName(h.Name, locale).Get(); ok {
				localName = t
			} else {
				// Translation gaps are non-fatal; the canonical name stands in.
				r.logger.Debug("no holiday translation", "name", h.Name, "locale", locale)
			}
		}
		entries = append(entries, Entry{
			Country:   country,
			Date:      date,
			Name:      h.Name,
			LocalName: localName,
			Category:  h.Category,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
