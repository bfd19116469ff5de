package services

import (
	"context"
	"fmt"
	"net/url"

	"finboard/internal/core"
	"finboard/internal/filter"
	"finboard/internal/report"
	"finboard/internal/session"
)

// TransactionSchema reads the transaction list filters.
var TransactionSchema = filter.Schema{
	Dates: []filter.DateParam{
		{Param: "start_date", Field: "date", Bound: filter.From},
		{Param: "end_date", Field: "date", Bound: filter.To},
	},
	Exact: map[string]string{
		"type":        "category_id",
		"subcategory": "subcategory_id",
	},
	QueryParam:  "search",
	QueryFields: []string{"description"},
	SortParam:   "sort",
	Sortable:    []string{"date", "description", "category", "subcategory"},
}

// TransactionReportEncoding is the wire form of a transaction export request.
var TransactionReportEncoding = report.Encoding{
	DateField:   "date",
	StartParam:  "start_date",
	EndParam:    "end_date",
	Exact:       map[string]string{"category_id": "category_id", "subcategory_id": "subcategory_id"},
	SearchParam: "search",
}

// TransactionPage is what the transactions screen renders.
type TransactionPage struct {
	Filter        filter.Parsed
	Year          string
	Years         []int
	Transactions  []core.Transaction
	Total         int
	Categories    []core.Category
	SubCategories []core.SubCategory
	Summary       core.TransactionSummary
}

type TransactionService struct {
	api API
}

func NewTransactionService(api API) *TransactionService {
	return &TransactionService{api: api}
}

// List fetches the user's transactions of the selected year and narrows them.
// A filter error is returned together with an unfiltered page.
func (s *TransactionService) List(ctx context.Context, sess session.Session, values url.Values) (TransactionPage, error) {
	parsed, perr := TransactionSchema.Parse(values)
	page := TransactionPage{Filter: parsed, Year: values.Get("year")}

	all, err := s.api.TransactionsByUser(ctx, sess.UserID, page.Year)
	if err != nil {
		return page, fmt.Errorf("fetch transactions: %w", err)
	}
	page.Years = core.YearsOf(all)
	page.Total = len(all)

	cats, err := s.api.Categories(ctx)
	if err != nil {
		return page, fmt.Errorf("fetch categories: %w", err)
	}
	page.Categories = cats

	if typeID := parsed.Value("type"); typeID != "" && typeID != filter.All {
		subs, err := s.api.SubCategories(ctx, typeID, sess.UserID, sess.RoleID)
		if err != nil {
			return page, fmt.Errorf("fetch subcategories: %w", err)
		}
		page.SubCategories = subs
	}

	if perr != nil {
		page.Transactions = all
		page.Summary = core.SummarizeTransactions(all)
		return page, perr
	}
	page.Transactions = filter.Apply(all, parsed.Criteria)
	if parsed.SortBy != "" {
		filter.Sort(page.Transactions, parsed.SortBy, values.Get("order") == "desc")
	}
	page.Summary = core.SummarizeTransactions(page.Transactions)
	return page, nil
}

// SubCategories lists the subcategories of a transaction type. Empty and "all"
// yield nothing.
func (s *TransactionService) SubCategories(ctx context.Context, sess session.Session, typeID string) ([]core.SubCategory, error) {
	if typeID == "" || typeID == filter.All {
		return nil, nil
	}
	subs, err := s.api.SubCategories(ctx, typeID, sess.UserID, sess.RoleID)
	if err != nil {
		return nil, fmt.Errorf("fetch subcategories: %w", err)
	}
	return subs, nil
}

// Chart totals a year of transactions for the chart.
func (s *TransactionService) Chart(ctx context.Context, sess session.Session, year string) (core.TransactionSummary, error) {
	txs, err := s.api.TransactionsByUser(ctx, sess.UserID, year)
	if err != nil {
		return core.TransactionSummary{}, fmt.Errorf("fetch transactions: %w", err)
	}
	return core.SummarizeTransactions(txs), nil
}

// ReportRequest describes an export of the visible transactions.
func (s *TransactionService) ReportRequest(sess session.Session, page TransactionPage) report.Request {
	rows := make([][]string, 0, len(page.Transactions))
	for _, t := range page.Transactions {
		rows = append(rows, []string{t.Date, t.Category.Name, t.SubCategory.Name, t.Description, t.Amount.String()})
	}
	return report.Request{
		Kind:     report.KindTransactions,
		TargetID: sess.UserID,
		Criteria: page.Filter.Criteria,
		Table: report.Table{
			Title:  "Transactions",
			Header: []string{"Date", "Type", "Category", "Description", "Amount"},
			Rows:   rows,
		},
	}
}
