// Package analytics computes ticket performance KPIs. Every function in
// it is pure: the same tickets, filter and "now" always produce the same
// payload.
package analytics

import (
	"math"
	"sort"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
)

// ElapsedHours returns the hours between start and end. It returns 0 if
// either timestamp is missing or unparsable, and never goes negative.
func ElapsedHours(start, end domain.Timestamp) float64 {
	h, _ := elapsed(start, end)
	return h
}

// elapsed is ElapsedHours that also reports whether both timestamps
// parsed, so callers can leave a ticket out of a sample.
func elapsed(start, end domain.Timestamp) (float64, bool) {
	s, ok := start.Time()
	if !ok {
		return 0, false
	}
	e, ok := end.Time()
	if !ok {
		return 0, false
	}
	ms := float64(e.Sub(s).Milliseconds())
	return math.Max(0, ms/3_600_000), true
}

// Mean returns the arithmetic mean rounded to 2 decimals, or nil for an
// empty input.
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return round2(sum / float64(len(values)))
}

// Percentile returns the p-th percentile (0 <= p <= 1) using linear
// interpolation between the two closest ranks, rounded to 2 decimals.
// It returns nil for an empty input.
func Percentile(values []float64, p float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := sortedCopy(values)

	pos := float64(len(sorted)-1) * p
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower < 0 {
		lower = 0
	}
	if upper > len(sorted)-1 {
		upper = len(sorted) - 1
	}
	if lower == upper {
		return round2(sorted[lower])
	}
	weight := pos - float64(lower)
	return round2(sorted[lower] + (sorted[upper]-sorted[lower])*weight)
}

// Median returns the middle value, or the mean of the two middle values
// for an even count, rounded to 2 decimals. It returns nil for an empty
// input.
func Median(values []float64) *float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	sorted := sortedCopy(values)
	if n%2 == 1 {
		return round2(sorted[n/2])
	}
	return round2((sorted[n/2-1] + sorted[n/2]) / 2)
}

// rate returns part/whole as a percentage rounded to 2 decimals, or nil
// when whole is 0.
func rate(part, whole int) *float64 {
	if whole == 0 {
		return nil
	}
	return round2(float64(part) / float64(whole) * 100)
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

func round2(v float64) *float64 {
	r := math.Round(v*100) / 100
	return &r
}
