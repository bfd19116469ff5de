package report

import (
	"net/url"
	"sort"

	"finboard/internal/core"
	"finboard/internal/filter"
)

// Encoding maps a Criteria onto backend query parameters.
type Encoding struct {
	// DateField selects the range to send. Empty uses the first range.
	DateField  string
	StartParam string
	EndParam   string
	// Exact maps record fields to parameter names. Unmapped fields are not sent.
	Exact       map[string]string
	SearchParam string
}

// DefaultEncoding sends the date range as start_date/end_date and the query as search.
func DefaultEncoding() Encoding {
	return Encoding{StartParam: "start_date", EndParam: "end_date", SearchParam: "search"}
}

// Encode serializes the enabled parts of c. Dates are DD/MM/YYYY.
func (e Encoding) Encode(c filter.Criteria) url.Values {
	q := url.Values{}

	if r, ok := e.dateRange(c); ok {
		if !r.From.IsZero() && e.StartParam != "" {
			q.Set(e.StartParam, core.FormatDMY(r.From))
		}
		if !r.To.IsZero() && e.EndParam != "" {
			q.Set(e.EndParam, core.FormatDMY(r.To))
		}
	}

	fields := make([]string, 0, len(e.Exact))
	for f := range e.Exact {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		v := c.Exact[f]
		if v == "" || v == filter.All {
			continue
		}
		q.Set(e.Exact[f], v)
	}

	if e.SearchParam != "" && c.Query != "" {
		q.Set(e.SearchParam, c.Query)
	}
	return q
}

func (e Encoding) dateRange(c filter.Criteria) (filter.DateRange, bool) {
	for _, r := range c.Dates {
		if e.DateField == "" || r.Field == e.DateField {
			return r, true
		}
	}
	return filter.DateRange{}, false
}

// ReverseISO turns a YYYY-MM-DD input value into DD/MM/YYYY.
func ReverseISO(iso string) (string, error) {
	return core.ISOToDMY(iso)
}
