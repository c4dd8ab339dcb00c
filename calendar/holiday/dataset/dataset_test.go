package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oernster/calendifier-sub002/calendar/holiday"
)

func TestRawHolidays_US(t *testing.T) {
	raw, err := New().RawHolidays("US", 2025)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	var independence *holiday.Raw
	for i := range raw {
		assert.Equal(t, 2025, raw[i].Date.Year())
		if raw[i].Name == "Independence Day" {
			independence = &raw[i]
		}
	}
	require.NotNil(t, independence)
	assert.Equal(t, time.July, independence.Date.Month())
	assert.Equal(t, 4, independence.Date.Day())
}

func TestRawHolidays_GB(t *testing.T) {
	raw, err := New().RawHolidays("GB", 2025)
	require.NoError(t, err)

	names := make(map[string]bool, len(raw))
	for _, h := range raw {
		names[h.Name] = true
	}
	assert.True(t, names["Christmas Day"])
}

func TestRawHolidays_UnsupportedCountry(t *testing.T) {
	_, err := New().RawHolidays("ZZ", 2025)
	assert.ErrorIs(t, err, holiday.ErrUnsupportedCountry)
}

func TestRawHolidays_Categories(t *testing.T) {
	raw, err := New().RawHolidays("GB", 2025)
	require.NoError(t, err)

	byName := make(map[string]holiday.Category, len(raw))
	for _, h := range raw {
		byName[h.Name] = h.Category
	}
	assert.Equal(t, holiday.Religious, byName["Christmas Day"])
	assert.Equal(t, holiday.Religious, byName["Good Friday"])
}

func TestCountries(t *testing.T) {
	countries := New().Countries()
	assert.Contains(t, countries, "US")
	assert.Contains(t, countries, "GB")
	assert.Contains(t, countries, "DE")
	assert.NotContains(t, countries, "ZZ")
}
