package core

import "testing"

func TestSummarizeTransactions(t *testing.T) {
	income := Ref{ID: "c1", Name: "Income"}
	expense := Ref{ID: "c2", Name: "expense"}
	txs := []Transaction{
		{Amount: Money{Cents: 300000}, Category: income, SubCategory: Ref{Name: "Salary"}},
		{Amount: Money{Cents: 5000}, Category: income, SubCategory: Ref{Name: "Gift"}},
		{Amount: Money{Cents: 12050}, Category: expense, SubCategory: Ref{Name: "Food"}},
		{Amount: Money{Cents: 2950}, Category: expense, SubCategory: Ref{Name: "Food"}},
		{Amount: Money{Cents: 1000}, Category: expense},
		{Amount: Money{Cents: 999}, Category: Ref{Name: "Transfer"}, SubCategory: Ref{Name: "Food"}},
	}

	s := SummarizeTransactions(txs)

	if s.Income.Cents != 305000 {
		t.Errorf("Income = %d", s.Income.Cents)
	}
	if s.Expense.Cents != 16000 {
		t.Errorf("Expense = %d", s.Expense.Cents)
	}
	if s.Balance().Cents != 289000 {
		t.Errorf("Balance = %d", s.Balance().Cents)
	}
	if len(s.ExpenseBySub) != 2 || s.ExpenseBySub[0].Name != "Food" || s.ExpenseBySub[0].Amount.Cents != 15000 {
		t.Errorf("ExpenseBySub = %+v", s.ExpenseBySub)
	}
	if s.ExpenseBySub[1].Name != "Unknown" {
		t.Errorf("unnamed subcategory should be Unknown, got %q", s.ExpenseBySub[1].Name)
	}
	var food int64
	for _, c := range s.BySubCategory {
		if c.Name == "Food" {
			food = c.Amount.Cents
		}
	}
	if food != 15999 {
		t.Errorf("BySubCategory[Food] = %d, want 15999", food)
	}
	if s.TransactionCount != 6 {
		t.Errorf("TransactionCount = %d", s.TransactionCount)
	}
}

func TestCountUserStatuses(t *testing.T) {
	users := []User{
		{Status: StatusActive}, {Status: StatusActive}, {Status: StatusPendingDeletion},
		{Status: "suspended"}, {Status: ""},
	}
	got := CountUserStatuses(users)
	want := []StatusCount{
		{StatusActive, 2}, {StatusInactive, 0}, {StatusPendingDeactivation, 0},
		{StatusPendingDeletion, 1}, {"suspended", 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestYearsOf(t *testing.T) {
	txs := []Transaction{{Date: "2023-05-01"}, {Date: "2025-01-01"}, {Date: "2023-12-31"}, {Date: "bogus"}}
	got := YearsOf(txs)
	if len(got) != 2 || got[0] != 2025 || got[1] != 2023 {
		t.Errorf("YearsOf() = %v", got)
	}
}
