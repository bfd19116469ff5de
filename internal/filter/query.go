package filter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrInvalidInput is returned when a filter parameter cannot be parsed.
// It is a form validation problem, reported next to the form.
var ErrInvalidInput = errors.New("invalid filter input")

// Bound says which side of a DateRange a parameter fills.
type Bound int

const (
	From Bound = iota
	To
	// On fills both sides, selecting a single day.
	On
)

// DateParam binds a YYYY-MM-DD request parameter to a record field.
type DateParam struct {
	Param string
	Field string
	Bound Bound
}

// Schema describes how one list page reads its filters from a request.
type Schema struct {
	Dates []DateParam
	// Exact maps request parameter names to record fields.
	Exact map[string]string
	// Defaults for exact parameters absent from the request.
	Defaults map[string]string

	QueryParam string
	// FieldParam names the parameter choosing a single search field.
	FieldParam string
	// QueryFields is the OR set used when no single field is chosen.
	QueryFields []string

	SortParam string
	// Sortable lists the fields SortParam may name.
	Sortable []string
}

// Parsed is a Criteria together with the sort the request asked for.
type Parsed struct {
	Criteria Criteria
	SortBy   string
	Values   url.Values
}

// Value returns the effective value of a request parameter, defaults included.
func (p Parsed) Value(param string) string {
	return p.Values.Get(param)
}

// Parse reads a Criteria out of request values. Unknown search or sort fields are
// ignored rather than rejected; malformed dates and inverted ranges are errors.
func (s Schema) Parse(values url.Values) (Parsed, error) {
	effective := url.Values{}
	for k, v := range values {
		effective[k] = append([]string(nil), v...)
	}
	for param, def := range s.Defaults {
		if effective.Get(param) == "" {
			effective.Set(param, def)
		}
	}

	c := Criteria{Exact: map[string]string{}}
	ranges := map[string]*DateRange{}
	var order []string
	var problems []string

	for _, dp := range s.Dates {
		raw := strings.TrimSpace(effective.Get(dp.Param))
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %q is not a valid date", dp.Param, raw))
			continue
		}
		r, ok := ranges[dp.Field]
		if !ok {
			r = &DateRange{Field: dp.Field}
			ranges[dp.Field] = r
			order = append(order, dp.Field)
		}
		switch dp.Bound {
		case From:
			r.From = t
		case To:
			r.To = t
		case On:
			r.From, r.To = t, t
		}
	}
	for _, field := range order {
		r := ranges[field]
		if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
			problems = append(problems, fmt.Sprintf("%s: end date is before start date", field))
		}
		c.Dates = append(c.Dates, *r)
	}

	for param, field := range s.Exact {
		if v := strings.TrimSpace(effective.Get(param)); v != "" {
			c.Exact[field] = v
		}
	}

	if s.QueryParam != "" {
		c.Query = strings.TrimSpace(effective.Get(s.QueryParam))
		c.QueryFields = s.QueryFields
		if s.FieldParam != "" {
			if f := effective.Get(s.FieldParam); contains(s.QueryFields, f) {
				c.QueryField = f
			}
		}
	}

	p := Parsed{Criteria: c, Values: effective}
	if s.SortParam != "" {
		if f := effective.Get(s.SortParam); contains(s.Sortable, f) {
			p.SortBy = f
		}
	}

	if len(problems) > 0 {
		return p, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return p, nil
}

func contains(list []string, v string) bool {
	if v == "" {
		return false
	}
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
