package filter

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finboard/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ids[T interface{ Key() string }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Key())
	}
	return out
}

// tenTransactions has exactly three January entries under cat1.
func tenTransactions() []core.Transaction {
	cat1 := core.Ref{ID: "cat1", Name: "Expense"}
	cat2 := core.Ref{ID: "cat2", Name: "Income"}
	return []core.Transaction{
		{ID: "1", Date: "2025-01-01", Category: cat1},
		{ID: "2", Date: "2025-01-15T10:00:00Z", Category: cat1},
		{ID: "3", Date: "2025-01-31T23:59:59Z", Category: cat1},
		{ID: "4", Date: "2025-01-10", Category: cat2},
		{ID: "5", Date: "2024-12-31", Category: cat1},
		{ID: "6", Date: "2025-02-01", Category: cat1},
		{ID: "7", Date: "2025-03-03", Category: cat2},
		{ID: "8", Date: "", Category: cat1},
		{ID: "9", Date: "2025-01-20"},
		{ID: "10", Date: "2025-02-14", Category: cat1},
	}
}

func TestApply_DateRangeAndCategory(t *testing.T) {
	c := Criteria{
		Dates: []DateRange{{Field: "date", From: date(2025, 1, 1), To: date(2025, 1, 31)}},
		Exact: map[string]string{"category_id": "cat1"},
	}
	got := Apply(tenTransactions(), c)
	assert.Equal(t, []string{"1", "2", "3"}, ids(got))
}

func TestApply_OpenBoundsAdmitEverything(t *testing.T) {
	txs := tenTransactions()
	c := Criteria{Dates: []DateRange{{Field: "date"}}}
	assert.Len(t, Apply(txs, c), len(txs), "a range without bounds is not a clause")

	onlyFrom := Criteria{Dates: []DateRange{{Field: "date", From: date(2025, 2, 1)}}}
	assert.Equal(t, []string{"6", "7", "10"}, ids(Apply(txs, onlyFrom)))

	onlyTo := Criteria{Dates: []DateRange{{Field: "date", To: date(2024, 12, 31)}}}
	assert.Equal(t, []string{"5"}, ids(Apply(txs, onlyTo)))
}

func TestApply_ExactSentinels(t *testing.T) {
	txs := tenTransactions()
	for _, v := range []string{"", All} {
		c := Criteria{Exact: map[string]string{"category_id": v}}
		assert.Len(t, Apply(txs, c), len(txs), "value %q must disable the clause", v)
	}
	missing := Criteria{Exact: map[string]string{"subcategory_id": "s1"}}
	assert.Empty(t, Apply(txs, missing), "records without the field fail the clause")
}

func TestApply_EmptyQueryAdmitsAll(t *testing.T) {
	users := []core.User{{ID: "a"}, {ID: "b", Username: "bob"}}
	for _, q := range []string{"", "   "} {
		c := Criteria{Query: q, QueryFields: []string{"username"}}
		assert.Len(t, Apply(users, c), 2)
	}
}

func TestApply_FreeText(t *testing.T) {
	users := []core.User{
		{ID: "1", Username: "AliceW", Email: "a@example.com", FirstName: "Alice"},
		{ID: "2", Username: "bob", Email: "bob@alice.dev", FirstName: "Bob"},
		{ID: "3", Username: "carol", Email: "c@example.com", LastName: "Malice"},
		{ID: "4"},
	}
	fields := []string{"username", "email", "firstName", "lastName"}

	anyField := Criteria{Query: "ALICE", QueryFields: fields}
	assert.Equal(t, []string{"1", "2", "3"}, ids(Apply(users, anyField)))

	one := Criteria{Query: "alice", QueryField: "email", QueryFields: fields}
	assert.Equal(t, []string{"2"}, ids(Apply(users, one)))
}

func TestApply_Idempotent(t *testing.T) {
	txs := tenTransactions()
	c := Criteria{
		Dates: []DateRange{{Field: "date", From: date(2025, 1, 1)}},
		Exact: map[string]string{"category_id": "cat1"},
	}
	first := Apply(txs, c)
	second := Apply(first, c)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, ids(first), ids(Apply(txs, c)))
	assert.Len(t, txs, 10, "input must not be modified")
}

func TestApply_MultipleRanges(t *testing.T) {
	reports := []core.TransactionReport{
		{ID: "r1", StartDate: "01/02/2025", EndDate: "10/02/2025", GeneratedAt: "11/02/2025 09:00"},
		{ID: "r2", StartDate: "01/01/2025", EndDate: "31/01/2025", GeneratedAt: "01/02/2025 10:30"},
		{ID: "r3", StartDate: "05/02/2025", EndDate: "06/02/2025", GeneratedAt: "06/02/2025 18:00"},
		{ID: "r4"},
	}
	c := Criteria{Dates: []DateRange{
		{Field: "start_date", From: date(2025, 2, 1)},
		{Field: "generated_at", From: date(2025, 2, 6), To: date(2025, 2, 6)},
	}}
	assert.Equal(t, []string{"r3"}, ids(Apply(reports, c)))
}

func TestSort(t *testing.T) {
	users := []core.User{
		{ID: "1", Username: "charlie"},
		{ID: "2", Username: "Alice"},
		{ID: "3"},
		{ID: "4", Username: "bob"},
	}
	Sort(users, "username", false)
	assert.Equal(t, []string{"3", "2", "4", "1"}, ids(users))

	Sort(users, "username", true)
	assert.Equal(t, []string{"1", "4", "2", "3"}, ids(users))

	before := ids(users)
	Sort(users, "", false)
	assert.Equal(t, before, ids(users))
}

func TestSchema_Parse(t *testing.T) {
	schema := Schema{
		Dates: []DateParam{
			{Param: "start", Field: "date", Bound: From},
			{Param: "end", Field: "date", Bound: To},
		},
		Exact:       map[string]string{"role": "role", "status": "status"},
		Defaults:    map[string]string{"role": core.RoleUser, "status": All},
		QueryParam:  "q",
		FieldParam:  "field",
		QueryFields: []string{"username", "email"},
		SortParam:   "sort",
		Sortable:    []string{"username", "email"},
	}

	t.Run("defaults and sentinels", func(t *testing.T) {
		p, err := schema.Parse(url.Values{})
		require.NoError(t, err)
		assert.Equal(t, core.RoleUser, p.Criteria.Exact["role"])
		assert.Equal(t, All, p.Criteria.Exact["status"])
		assert.Equal(t, core.RoleUser, p.Value("role"))
		assert.Empty(t, p.Criteria.Dates)
		assert.Empty(t, p.SortBy)
	})

	t.Run("full request", func(t *testing.T) {
		v := url.Values{
			"start": {"2025-01-01"}, "end": {"2025-01-31"},
			"role": {"admin"}, "q": {" ann "}, "field": {"email"}, "sort": {"username"},
		}
		p, err := schema.Parse(v)
		require.NoError(t, err)
		require.Len(t, p.Criteria.Dates, 1)
		assert.Equal(t, date(2025, 1, 1), p.Criteria.Dates[0].From)
		assert.Equal(t, date(2025, 1, 31), p.Criteria.Dates[0].To)
		assert.Equal(t, "ann", p.Criteria.Query)
		assert.Equal(t, "email", p.Criteria.QueryField)
		assert.Equal(t, "username", p.SortBy)
	})

	t.Run("unknown search and sort fields are ignored", func(t *testing.T) {
		p, err := schema.Parse(url.Values{"field": {"password"}, "sort": {"password"}})
		require.NoError(t, err)
		assert.Empty(t, p.Criteria.QueryField)
		assert.Empty(t, p.SortBy)
	})

	for _, v := range []url.Values{
		{"start": {"31/01/2025"}},
		{"start": {"2025-02-01"}, "end": {"2025-01-01"}},
	} {
		t.Run(fmt.Sprintf("invalid %v", v), func(t *testing.T) {
			_, err := schema.Parse(v)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}
