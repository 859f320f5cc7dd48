package referencedata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgehrsitz/simkernel/internal/logging"
)

func TestLoadHistorical_USSeries(t *testing.T) {
	store, err := LoadHistorical(logging.NopLogger{})
	require.NoError(t, err)

	series, err := store.Series("US")
	require.NoError(t, err)
	assert.Equal(t, 1970, series.MinYear)
	assert.Equal(t, 1979, series.MaxYear)
	require.Len(t, series.Years, 10)

	// Spec S4: stock returns 0..9 tenths across 1970..1979.
	for i, y := range series.Years {
		want := float64(i) / 10
		got, _ := y.Stock.Float64()
		assert.InDelta(t, want, got, 1e-9, "year %d", y.Year)
	}
}

func TestLoadHistorical_UnknownCountry(t *testing.T) {
	store, err := LoadHistorical(logging.NopLogger{})
	require.NoError(t, err)

	_, err = store.Series("ZZ")
	require.Error(t, err)
}

func TestListCountries(t *testing.T) {
	store, err := LoadHistorical(logging.NopLogger{})
	require.NoError(t, err)

	countries := store.ListCountries()
	info, ok := countries["US"]
	require.True(t, ok)
	assert.Equal(t, 1970, info.StartYear)
	assert.Equal(t, 1979, info.EndYear)
	assert.Equal(t, 10, info.NumYears)
	assert.True(t, info.StockStdDev.IsPositive(), "expected a nonzero stock stddev across a 10-year series")
	assert.True(t, info.BondStdDev.IsPositive(), "expected a nonzero bond stddev across a 10-year series")

	wantMean, wantStdDev, err := store.MeanStdDev("US")
	require.NoError(t, err)
	assert.True(t, info.StockMeanReturn.Equal(wantMean))
	assert.True(t, info.StockStdDev.Equal(wantStdDev))
}
