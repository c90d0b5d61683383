package validation

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
)

func TestParseMetricsFilter(t *testing.T) {
	t.Run("Valid query is normalized", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/x?scope=AFTER&date_from=2025-01-01&date_to=2025-01-31&category=network&assignee=%20Alice%20", nil)

		f, err := ParseMetricsFilter(r)
		require.NoError(t, err)
		assert.Equal(t, domain.MetricsFilter{
			Scope:    domain.ScopeAfter,
			DateFrom: "2025-01-01",
			DateTo:   "2025-01-31",
			Category: "network",
			Assignee: "Alice",
		}, f)
	})

	t.Run("Empty query means all", func(t *testing.T) {
		f, err := ParseMetricsFilter(httptest.NewRequest("GET", "/x", nil))
		require.NoError(t, err)
		assert.Equal(t, domain.ScopeAll, f.Scope)
	})

	t.Run("Field errors are collected", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/x?scope=sometimes&date_from=01/02/2025&assignee="+strings.Repeat("a", 129), nil)

		_, err := ParseMetricsFilter(r)
		var verrs *apperrors.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Equal(t, []string{"Must be one of: all, before, after"}, verrs.Errors["scope"])
		assert.Equal(t, []string{"Must be a calendar date (YYYY-MM-DD)"}, verrs.Errors["date_from"])
		assert.Equal(t, []string{"Must be at most 128 characters"}, verrs.Errors["assignee"])
		assert.NotContains(t, verrs.Errors, "date_to")
	})

	t.Run("Inverted range", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/x?date_from=2025-02-01&date_to=2025-01-01", nil)

		_, err := ParseMetricsFilter(r)
		require.ErrorIs(t, err, apperrors.ErrInvalidDateRange)

		var appErr *apperrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, 422, appErr.StatusCode)
		assert.Equal(t, "INVALID_DATE_RANGE", appErr.Code)
	})
}

func TestValidateParams_SameDayRange(t *testing.T) {
	f, err := ValidateParams(FilterParams{DateFrom: "2025-03-01", DateTo: "2025-03-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", f.DateFrom)
}
