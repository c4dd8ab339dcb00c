package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithRegisterer(reg), WithNamespace("test"))

	m.RecordBuild(20 * time.Millisecond)
	m.RecordBuild(30 * time.Millisecond)
	m.RecordExpansion(time.Millisecond, nil)
	m.RecordExpansion(time.Millisecond, errors.New("bad rule"))
	m.RecordHolidayResolution()
	m.RecordCacheAccess("expansion", true)
	m.RecordCacheAccess("expansion", false)
	m.RecordCacheAccess("holidays", true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.builds))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.expansionErrors))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.holidayResolutions))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHits.WithLabelValues("expansion")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheMisses.WithLabelValues("expansion")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.cacheHits.WithLabelValues("holidays")))
}

func TestNilAndDisabledAreNoOps(t *testing.T) {
	var nilManager *Manager
	require.NotPanics(t, func() {
		nilManager.RecordBuild(time.Millisecond)
		nilManager.RecordExpansion(time.Millisecond, nil)
		nilManager.RecordHolidayResolution()
		nilManager.RecordCacheAccess("expansion", true)
	})

	disabled := New(WithEnabled(false), WithRegisterer(prometheus.NewRegistry()))
	require.NotPanics(t, func() {
		disabled.RecordBuild(time.Millisecond)
		disabled.RecordExpansion(time.Millisecond, errors.New("x"))
		disabled.RecordHolidayResolution()
		disabled.RecordCacheAccess("holidays", false)
	})
}
