package core

import (
	"sort"
	"strings"
)

// CategoryAmount represents an amount aggregated by name.
type CategoryAmount struct {
	Name   string  `json:"name"`
	Amount Money   `json:"-"`
	Value  float64 `json:"value"`
}

// TransactionSummary feeds the income/expense charts.
type TransactionSummary struct {
	Income           Money            `json:"-"`
	Expense          Money            `json:"-"`
	IncomeValue      float64          `json:"income"`
	ExpenseValue     float64          `json:"expense"`
	BySubCategory    []CategoryAmount `json:"by_subcategory"`
	IncomeBySub      []CategoryAmount `json:"income_by_subcategory"`
	ExpenseBySub     []CategoryAmount `json:"expense_by_subcategory"`
	TransactionCount int              `json:"transaction_count"`
}

// Balance is income minus expense.
func (s TransactionSummary) Balance() Money {
	return Money{Cents: s.Income.Cents - s.Expense.Cents}
}

// SummarizeTransactions totals the given transactions. Subcategories without a
// name are grouped under "Unknown"; types other than income/expense count only
// toward the per-subcategory totals.
func SummarizeTransactions(txs []Transaction) TransactionSummary {
	var s TransactionSummary
	all := map[string]Money{}
	income := map[string]Money{}
	expense := map[string]Money{}

	for _, t := range txs {
		sub := t.SubCategory.Name
		if sub == "" {
			sub = "Unknown"
		}
		switch strings.ToLower(t.Category.Name) {
		case CategoryIncome:
			s.Income = s.Income.Add(t.Amount)
			income[sub] = income[sub].Add(t.Amount)
		case CategoryExpense:
			s.Expense = s.Expense.Add(t.Amount)
			expense[sub] = expense[sub].Add(t.Amount)
		}
		all[sub] = all[sub].Add(t.Amount)
	}

	s.IncomeValue = s.Income.Float()
	s.ExpenseValue = s.Expense.Float()
	s.BySubCategory = sortedAmounts(all)
	s.IncomeBySub = sortedAmounts(income)
	s.ExpenseBySub = sortedAmounts(expense)
	s.TransactionCount = len(txs)
	return s
}

// sortedAmounts orders by amount descending, then by name.
func sortedAmounts(m map[string]Money) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(m))
	for name, amount := range m {
		out = append(out, CategoryAmount{Name: name, Amount: amount, Value: amount.Float()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StatusCount is one bar of the user status chart.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// CountUserStatuses returns counts for the four known statuses, in a fixed order,
// followed by any unknown statuses alphabetically.
func CountUserStatuses(users []User) []StatusCount {
	known := []string{StatusActive, StatusInactive, StatusPendingDeactivation, StatusPendingDeletion}
	counts := map[string]int{}
	for _, u := range users {
		counts[u.Status]++
	}
	out := make([]StatusCount, 0, len(counts))
	for _, st := range known {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
		delete(counts, st)
	}
	var extra []string
	for st := range counts {
		if st != "" {
			extra = append(extra, st)
		}
	}
	sort.Strings(extra)
	for _, st := range extra {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out
}

// YearsOf lists the distinct years present in the transactions, newest first.
func YearsOf(txs []Transaction) []int {
	seen := map[int]bool{}
	for _, t := range txs {
		if d, err := ParseDate(t.Date); err == nil {
			seen[d.Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	return years
}
