package analytics_test

import (
	"testing"

	"github.com/lorrc/service-desk-analytics/internal/core/analytics"
	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElapsedHours(t *testing.T) {
	tests := []struct {
		name       string
		start, end domain.Timestamp
		want       float64
	}{
		{"ninety minutes", "2025-03-10T09:00:00Z", "2025-03-10T10:30:00Z", 1.5},
		{"across zones", "2025-03-10T09:00:00Z", "2025-03-10T13:00:00+02:00", 2},
		{"negative clamps to zero", "2025-03-10T10:00:00Z", "2025-03-10T09:00:00Z", 0},
		{"missing end", "2025-03-10T09:00:00Z", "", 0},
		{"unparsable start", "soon", "2025-03-10T09:00:00Z", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, analytics.ElapsedHours(tt.start, tt.end), 1e-9)
		})
	}
}

func TestMean(t *testing.T) {
	assert.Nil(t, analytics.Mean(nil))

	got := analytics.Mean([]float64{1, 2, 2})
	require.NotNil(t, got)
	assert.Equal(t, 1.67, *got)
}

func TestPercentile(t *testing.T) {
	t.Run("p90 interpolates between ranks", func(t *testing.T) {
		got := analytics.Percentile([]float64{10, 20, 30, 40, 50}, 0.9)
		require.NotNil(t, got)
		assert.Equal(t, 46.0, *got)
	})

	t.Run("input order does not matter", func(t *testing.T) {
		got := analytics.Percentile([]float64{50, 10, 40, 30, 20}, 0.9)
		require.NotNil(t, got)
		assert.Equal(t, 46.0, *got)
	})

	t.Run("does not reorder the caller's slice", func(t *testing.T) {
		values := []float64{3, 1, 2}
		analytics.Percentile(values, 0.5)
		assert.Equal(t, []float64{3, 1, 2}, values)
	})

	t.Run("single value", func(t *testing.T) {
		got := analytics.Percentile([]float64{7.123}, 0.9)
		require.NotNil(t, got)
		assert.Equal(t, 7.12, *got)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Nil(t, analytics.Percentile(nil, 0.9))
	})
}

func TestMedian(t *testing.T) {
	even := analytics.Median([]float64{1, 2, 3, 4})
	require.NotNil(t, even)
	assert.Equal(t, 2.5, *even)

	odd := analytics.Median([]float64{3, 1, 2})
	require.NotNil(t, odd)
	assert.Equal(t, 2.0, *odd)

	assert.Nil(t, analytics.Median([]float64{}))
}
