package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHorizon(t *testing.T) {
	for _, h := range Horizons() {
		parsed, ok := ParseHorizon(string(h))
		assert.True(t, ok, string(h))
		assert.Equal(t, h, parsed)
	}

	for _, bad := range []string{"", "7y", "1d", "1Y", "MAX"} {
		_, ok := ParseHorizon(bad)
		assert.False(t, ok, bad)
	}
}

func TestHorizonDays(t *testing.T) {
	assert.Equal(t, 30, Horizon1M.Days())
	assert.Equal(t, 365, Horizon1Y.Days())
	assert.Equal(t, 1825, Horizon5Y.Days())
	assert.Equal(t, 0, HorizonMax.Days(), "max means no window slicing")
}

func TestEmptyReport(t *testing.T) {
	report := EmptyReport(Horizon1Y, "^GSPC", "S&P 500")

	require.NotNil(t, report)
	assert.Empty(t, report.Symbols)
	assert.NotNil(t, report.Series, "empty, not absent")
	assert.NotNil(t, report.Metrics)
	assert.Equal(t, "^GSPC", report.Benchmark)
	assert.Equal(t, Horizon1Y, report.Horizon)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestPriceSeriesLast(t *testing.T) {
	_, ok := PriceSeries{}.Last()
	assert.False(t, ok)

	series := PriceSeries{Points: []PricePoint{
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), Close: 10},
		{Date: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), Close: 11},
	}}
	last, ok := series.Last()
	require.True(t, ok)
	assert.InDelta(t, 11.0, last.Close, 1e-9)
}

func TestPriceSeriesTail(t *testing.T) {
	series := PriceSeries{Points: make([]PricePoint, 10)}

	assert.Len(t, series.Tail(3), 3)
	assert.Len(t, series.Tail(10), 10)
	assert.Len(t, series.Tail(100), 10, "short series returns everything")
}
