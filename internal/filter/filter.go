// Package filter narrows and orders lists fetched from the backend.
//
// A Criteria is rebuilt from request parameters on every render and compiled into
// a predicate. Enabled clauses are AND-ed. A record that lacks a field never
// panics; it simply fails the clause that needed the field.
package filter

import (
	"slices"
	"strings"
	"time"
)

// All is the select-box sentinel meaning "do not filter on this field".
const All = "all"

// Record is anything a list shows. Text and Time report ok=false for missing fields.
type Record interface {
	Text(field string) (string, bool)
	Time(field string) (time.Time, bool)
}

// DateRange constrains one date-valued field. Zero bounds are open.
// Both bounds are inclusive and compared at day precision.
type DateRange struct {
	Field string
	From  time.Time
	To    time.Time
}

func (r DateRange) enabled() bool {
	return r.Field != "" && (!r.From.IsZero() || !r.To.IsZero())
}

// Criteria is the user's current narrowing of a list.
type Criteria struct {
	Dates []DateRange
	// Exact maps field names to required values. "" and All disable a clause.
	Exact map[string]string
	// Query is matched case-insensitively as a substring.
	Query string
	// QueryField restricts Query to one field. Empty means any of QueryFields.
	QueryField  string
	QueryFields []string
}

// Predicate compiles the criteria. The returned func is pure.
func (c Criteria) Predicate() func(Record) bool {
	var clauses []func(Record) bool

	for _, r := range c.Dates {
		if r.enabled() {
			clauses = append(clauses, dateClause(r))
		}
	}
	for field, want := range c.Exact {
		if want == "" || want == All {
			continue
		}
		clauses = append(clauses, exactClause(field, want))
	}
	if q := strings.TrimSpace(c.Query); q != "" {
		fields := c.QueryFields
		if c.QueryField != "" {
			fields = []string{c.QueryField}
		}
		clauses = append(clauses, textClause(strings.ToLower(q), fields))
	}

	return func(rec Record) bool {
		for _, clause := range clauses {
			if !clause(rec) {
				return false
			}
		}
		return true
	}
}

func dateClause(r DateRange) func(Record) bool {
	from, to := day(r.From), day(r.To)
	return func(rec Record) bool {
		t, ok := rec.Time(r.Field)
		if !ok {
			return false
		}
		d := day(t)
		if !from.IsZero() && d.Before(from) {
			return false
		}
		if !to.IsZero() && d.After(to) {
			return false
		}
		return true
	}
}

func exactClause(field, want string) func(Record) bool {
	return func(rec Record) bool {
		got, ok := rec.Text(field)
		return ok && got == want
	}
}

func textClause(query string, fields []string) func(Record) bool {
	return func(rec Record) bool {
		for _, f := range fields {
			if v, ok := rec.Text(f); ok && strings.Contains(strings.ToLower(v), query) {
				return true
			}
		}
		return false
	}
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Apply returns the records of items admitted by c, in their original order.
// The input slice is not modified.
func Apply[T Record](items []T, c Criteria) []T {
	keep := c.Predicate()
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Sort orders items in place by field, case-insensitively. Records missing the
// field sort as "". An empty field leaves the order untouched.
func Sort[T Record](items []T, field string, descending bool) {
	if field == "" {
		return
	}
	key := func(rec T) string {
		v, _ := rec.Text(field)
		return strings.ToLower(v)
	}
	slices.SortStableFunc(items, func(a, b T) int {
		c := strings.Compare(key(a), key(b))
		if descending {
			return -c
		}
		return c
	})
}
