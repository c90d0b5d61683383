package validation

import (
	"errors"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-analytics/internal/core/errors"
)

// FilterParams are the metrics filter fields as they arrive from a query
// string or a websocket message.
type FilterParams struct {
	Scope    string `json:"scope" validate:"omitempty,filter_scope"`
	DateFrom string `json:"date_from" validate:"omitempty,calendar_date"`
	DateTo   string `json:"date_to" validate:"omitempty,calendar_date"`
	Category string `json:"category" validate:"omitempty,max=64"`
	Assignee string `json:"assignee" validate:"omitempty,max=128"`
}

// Filter converts the params into a domain filter.
func (p FilterParams) Filter() domain.MetricsFilter {
	return domain.MetricsFilter{
		Scope:    domain.Scope(p.Scope),
		DateFrom: p.DateFrom,
		DateTo:   p.DateTo,
		Category: p.Category,
		Assignee: p.Assignee,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator with the filter rules
// registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			return jsonName(f.Tag.Get("json"))
		})
		if err := registerRules(v); err != nil {
			panic("registering filter validation rules: " + err.Error())
		}
		validate = v
	})
	return validate
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("filter_scope", isScope); err != nil {
		return err
	}
	return v.RegisterValidation("calendar_date", isCalendarDate)
}

func isScope(fl validator.FieldLevel) bool {
	return domain.MetricsFilter{Scope: domain.Scope(fl.Field().String())}.Normalized().Scope.IsValid()
}

func isCalendarDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(domain.DateLayout, strings.TrimSpace(fl.Field().String()))
	return err == nil
}

// ParseFilterQuery reads the filter parameters from a query string.
func ParseFilterQuery(q url.Values) FilterParams {
	return FilterParams{
		Scope:    q.Get("scope"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Category: q.Get("category"),
		Assignee: q.Get("assignee"),
	}
}

// ParseMetricsFilter extracts and validates the metrics filter of r.
func ParseMetricsFilter(r *http.Request) (domain.MetricsFilter, error) {
	return ValidateParams(ParseFilterQuery(r.URL.Query()))
}

// ValidateParams checks field formats and then the date ordering. Field
// problems are returned as *apperrors.ValidationErrors; an inverted range
// is returned as the INVALID_DATE_RANGE AppError.
func ValidateParams(p FilterParams) (domain.MetricsFilter, error) {
	if err := Validator().Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return domain.MetricsFilter{}, apperrors.NewBadRequestError(err, "Invalid filter")
		}
		verrs := apperrors.NewValidationErrors()
		for _, fe := range fieldErrs {
			verrs.Add(fe.Field(), message(fe))
		}
		if verrs.HasErrors() {
			return domain.MetricsFilter{}, verrs
		}
	}

	filter := p.Filter()
	if err := filter.Validate(); err != nil {
		return domain.MetricsFilter{}, err
	}
	return filter.Normalized(), nil
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "filter_scope":
		return "Must be one of: all, before, after"
	case "calendar_date":
		return "Must be a calendar date (YYYY-MM-DD)"
	case "max":
		return "Must be at most " + fe.Param() + " characters"
	default:
		return "Is invalid"
	}
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
